package report

import (
	"strconv"
	"strings"
)

// GitLogFormat is the --pretty format ParseGitLog expects: unit-separated
// fields, record-separated commits.
const GitLogFormat = "%H%x1f%an%x1f%aI%x1f%s%x1e"

var conflictCodes = map[string]bool{
	"DD": true, "AU": true, "UD": true, "UA": true, "DU": true, "AA": true, "UU": true,
}

// ParseGitStatus parses `git status --porcelain=v1 -b` output.
func ParseGitStatus(path, out string) *GitStatusDocument {
	doc := &GitStatusDocument{
		Path:      path,
		Staged:    []GitFileChange{},
		Unstaged:  []GitFileChange{},
		Untracked: []string{},
	}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			parseBranchLine(doc, line[3:])
			continue
		}
		if len(line) < 4 {
			continue
		}
		code, rest := line[:2], line[3:]
		if code == "??" {
			doc.Untracked = append(doc.Untracked, unquote(rest))
			continue
		}
		if code == "!!" {
			continue
		}
		change := GitFileChange{Path: unquote(rest)}
		if from, to, ok := strings.Cut(rest, " -> "); ok {
			change.OrigPath, change.Path = unquote(from), unquote(to)
		}
		if conflictCodes[code] {
			doc.Conflicted = append(doc.Conflicted, change.Path)
			continue
		}
		if x := code[0]; x != ' ' {
			c := change
			c.Status = statusWord(x)
			doc.Staged = append(doc.Staged, c)
		}
		if y := code[1]; y != ' ' {
			c := change
			c.Status = statusWord(y)
			c.OrigPath = ""
			doc.Unstaged = append(doc.Unstaged, c)
		}
	}
	doc.Clean = len(doc.Staged) == 0 && len(doc.Unstaged) == 0 &&
		len(doc.Untracked) == 0 && len(doc.Conflicted) == 0
	return doc
}

// parseBranchLine handles the "## " header forms:
//
//	main...origin/main [ahead 1, behind 2]
//	No commits yet on main
//	HEAD (no branch)
func parseBranchLine(doc *GitStatusDocument, s string) {
	if rest, ok := strings.CutPrefix(s, "No commits yet on "); ok {
		doc.Branch = rest
		return
	}
	if rest, ok := strings.CutPrefix(s, "Initial commit on "); ok {
		doc.Branch = rest
		return
	}
	if strings.HasPrefix(s, "HEAD (no branch)") {
		doc.Branch = "HEAD"
		return
	}
	head, tracking, _ := strings.Cut(s, " [")
	branch, upstream, _ := strings.Cut(head, "...")
	doc.Branch = branch
	doc.Upstream = upstream
	tracking = strings.TrimSuffix(tracking, "]")
	for _, part := range strings.Split(tracking, ",") {
		part = strings.TrimSpace(part)
		if n, ok := strings.CutPrefix(part, "ahead "); ok {
			doc.Ahead, _ = strconv.Atoi(n)
		} else if n, ok := strings.CutPrefix(part, "behind "); ok {
			doc.Behind, _ = strconv.Atoi(n)
		}
	}
}

func statusWord(c byte) string {
	switch c {
	case 'M':
		return "modified"
	case 'A':
		return "added"
	case 'D':
		return "deleted"
	case 'R':
		return "renamed"
	case 'C':
		return "copied"
	case 'T':
		return "typechange"
	case 'U':
		return "unmerged"
	}
	return string(c)
}

// unquote strips the C-style quoting git applies to unusual file names.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
	}
	return s
}

// ParseGitLog parses `git log --pretty=format:<GitLogFormat>` output.
func ParseGitLog(path, out string) *GitLogDocument {
	doc := &GitLogDocument{Path: path, Commits: []GitCommit{}}
	for _, rec := range strings.Split(out, "\x1e") {
		rec = strings.Trim(rec, "\r\n")
		if rec == "" {
			continue
		}
		f := strings.SplitN(rec, "\x1f", 4)
		if len(f) < 4 {
			continue
		}
		doc.Commits = append(doc.Commits, GitCommit{Hash: f[0], Author: f[1], Date: f[2], Subject: f[3]})
	}
	return doc
}
