package report

import (
	"bufio"
	"bytes"
	"io"
	"regexp"
	"strings"
)

const (
	maxLineBytes    = 1 << 20
	maxHitTextRunes = 400
	sniffBytes      = 8000
)

// LooksBinary reports whether the leading bytes contain a NUL byte.
func LooksBinary(head []byte) bool {
	if len(head) > sniffBytes {
		head = head[:sniffBytes]
	}
	return bytes.IndexByte(head, 0) >= 0
}

// ScanLines returns up to limit lines of r matching re. file is recorded on
// each hit as given. The bool result is true when more matches were left.
func ScanLines(r io.Reader, file string, re *regexp.Regexp, limit int) ([]SearchHit, bool, error) {
	var hits []SearchHit
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if !re.MatchString(text) {
			continue
		}
		if len(hits) >= limit {
			return hits, true, nil
		}
		hits = append(hits, SearchHit{File: file, Line: line, Text: clip(strings.TrimRight(text, "\r"), maxHitTextRunes)})
	}
	if err := sc.Err(); err != nil {
		return hits, false, err
	}
	return hits, false, nil
}

// CompileSearch compiles a search pattern, optionally case-insensitive.
func CompileSearch(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	if ignoreCase {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
