package report

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"safegate/internal/domain"
)

// renderText writes a human-oriented rendering of doc. Every document type
// must have a case here.
func renderText(w io.Writer, doc domain.Document) error {
	bw := bufio.NewWriter(w)
	switch d := doc.(type) {
	case *TreeDocument:
		textTree(bw, d)
	case *SearchDocument:
		textSearch(bw, d)
	case *FileDocument:
		textFile(bw, d)
	case *GitStatusDocument:
		textGitStatus(bw, d)
	case *GitLogDocument:
		textGitLog(bw, d)
	case *PortsDocument:
		textPorts(bw, d)
	case *EnvDocument:
		textEnv(bw, d)
	case *ProjectDocument:
		textProject(bw, d)
	case *ExecDocument:
		textExec(bw, d)
	case *QueryDocument:
		textQuery(bw, d)
	case *SchemaDocument:
		textSchema(bw, d)
	case *CheckDocument:
		textCheck(bw, d)
	case *ValuesDocument:
		textValues(bw, d)
	default:
		return fmt.Errorf("no text rendering for %T", doc)
	}
	return bw.Flush()
}

func textTree(w *bufio.Writer, d *TreeDocument) {
	fmt.Fprintln(w, d.Root)
	for i, c := range d.Tree.Children {
		textNode(w, c, "", i == len(d.Tree.Children)-1)
	}
	fmt.Fprintf(w, "\n%d directories, %d files", d.Dirs, d.Files)
	if d.Truncated {
		fmt.Fprint(w, " (truncated)")
	}
	fmt.Fprintln(w)
}

func textNode(w *bufio.Writer, n *Node, prefix string, last bool) {
	branch, next := "├── ", "│   "
	if last {
		branch, next = "└── ", "    "
	}
	label := n.Name
	switch n.Kind {
	case NodeDir:
		label += "/"
		if n.Truncated {
			label += " …"
		}
	case NodeSymlink:
		label += " -> " + n.Target
	case NodeFile:
		if n.Size != nil {
			label += "  (" + humanize.IBytes(uint64(*n.Size)) + ")"
		}
	}
	fmt.Fprintln(w, prefix+branch+label)
	for i, c := range n.Children {
		textNode(w, c, prefix+next, i == len(n.Children)-1)
	}
}

func textSearch(w *bufio.Writer, d *SearchDocument) {
	for _, h := range d.Matches {
		fmt.Fprintf(w, "%s:%d: %s\n", h.File, h.Line, h.Text)
	}
	fmt.Fprintf(w, "\n%s in %s", plural(d.Count, "match", "matches"), d.Root)
	if d.Skipped > 0 {
		fmt.Fprintf(w, ", %s skipped", plural(d.Skipped, "file", "files"))
	}
	if d.Truncated {
		fmt.Fprint(w, " (truncated)")
	}
	fmt.Fprintln(w)
}

func textFile(w *bufio.Writer, d *FileDocument) {
	if d.Binary {
		fmt.Fprintf(w, "%s: binary file, %s\n", d.Path, humanize.IBytes(uint64(d.Size)))
		return
	}
	body := d.Content
	if d.Lang != "" {
		body = d.Code
	}
	fmt.Fprint(w, body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		fmt.Fprintln(w)
	}
	if d.Truncated {
		fmt.Fprintf(w, "… (truncated, %s total)\n", humanize.IBytes(uint64(d.Size)))
	}
}

func textGitStatus(w *bufio.Writer, d *GitStatusDocument) {
	fmt.Fprintf(w, "On branch %s", d.Branch)
	if d.Upstream != "" {
		fmt.Fprintf(w, " (tracking %s", d.Upstream)
		if d.Ahead > 0 || d.Behind > 0 {
			fmt.Fprintf(w, ", ahead %d, behind %d", d.Ahead, d.Behind)
		}
		fmt.Fprint(w, ")")
	}
	fmt.Fprintln(w)
	if d.Clean {
		fmt.Fprintln(w, "working tree clean")
		return
	}
	changes := func(title string, cs []GitFileChange) {
		if len(cs) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		width := 0
		for _, c := range cs {
			width = max(width, len(c.Status))
		}
		for _, c := range cs {
			p := c.Path
			if c.OrigPath != "" {
				p = c.OrigPath + " -> " + c.Path
			}
			fmt.Fprintf(w, "  %-*s  %s\n", width, c.Status, p)
		}
	}
	names := func(title string, ps []string) {
		if len(ps) == 0 {
			return
		}
		fmt.Fprintf(w, "\n%s:\n", title)
		for _, p := range ps {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	changes("Staged", d.Staged)
	changes("Not staged", d.Unstaged)
	names("Conflicted", d.Conflicted)
	names("Untracked", d.Untracked)
}

func textGitLog(w *bufio.Writer, d *GitLogDocument) {
	authorWidth := 0
	for _, c := range d.Commits {
		authorWidth = max(authorWidth, runewidth.StringWidth(c.Author))
	}
	for _, c := range d.Commits {
		hash := c.Hash
		if len(hash) > 10 {
			hash = hash[:10]
		}
		date := c.Date
		if len(date) >= 10 {
			date = date[:10]
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n", hash, date, runewidth.FillRight(c.Author, authorWidth), c.Subject)
	}
}

func textPorts(w *bufio.Writer, d *PortsDocument) {
	rows := [][]string{{"PROTO", "ADDRESS", "PORT", "PID", "PROCESS"}}
	for _, l := range d.Listeners {
		pid := ""
		if l.PID > 0 {
			pid = fmt.Sprint(l.PID)
		}
		rows = append(rows, []string{l.Proto, l.Address, fmt.Sprint(l.Port), pid, l.Process})
	}
	table(w, rows)
	fmt.Fprintf(w, "\n%s (source: %s)\n", plural(len(d.Listeners), "listener", "listeners"), d.Source)
}

func textEnv(w *bufio.Writer, d *EnvDocument) {
	s := d.System
	fmt.Fprintf(w, "host:    %s (%s/%s)\n", s.Hostname, s.OS, s.Arch)
	if s.OSVersion != "" {
		fmt.Fprintf(w, "os:      %s\n", s.OSVersion)
	}
	if s.CPUModel != "" {
		fmt.Fprintf(w, "cpu:     %s x%d\n", s.CPUModel, s.CPUs)
	} else {
		fmt.Fprintf(w, "cpus:    %d\n", s.CPUs)
	}
	if s.Uptime != "" {
		fmt.Fprintf(w, "uptime:  %s\n", s.Uptime)
	}
	fmt.Fprintf(w, "workdir: %s\n\n", s.WorkDir)

	names := make([]string, 0, len(d.Variables))
	width := 0
	for k := range d.Variables {
		names = append(names, k)
		width = max(width, runewidth.StringWidth(k))
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(k, width), d.Variables[k])
	}
	if d.Omitted > 0 {
		fmt.Fprintf(w, "\n(%s omitted)\n", plural(d.Omitted, "secret variable", "secret variables"))
	}
}

func textProject(w *bufio.Writer, d *ProjectDocument) {
	if d.Name != "" {
		fmt.Fprintf(w, "%s (%s)\n", d.Name, d.Path)
	} else {
		fmt.Fprintln(w, d.Path)
	}
	if len(d.Kinds) == 0 {
		fmt.Fprintln(w, "no known project manifests")
		return
	}
	fmt.Fprintf(w, "kinds:     %s\n", strings.Join(d.Kinds, ", "))
	fmt.Fprintf(w, "manifests: %s\n", strings.Join(d.Manifests, ", "))
	for _, m := range d.Manifests {
		deps := d.Dependencies[m]
		if len(deps) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d):\n", m, len(deps))
		for _, dep := range deps {
			fmt.Fprintf(w, "  %s\n", dep)
		}
	}
}

func textExec(w *bufio.Writer, d *ExecDocument) {
	fmt.Fprint(w, d.Stdout)
	if d.Stderr != "" {
		if d.Stdout != "" && !strings.HasSuffix(d.Stdout, "\n") {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, d.Stderr)
	}
	if d.Truncated {
		fmt.Fprintln(w, "\n… (output truncated)")
	}
}

func textQuery(w *bufio.Writer, d *QueryDocument) {
	rows := [][]string{d.Columns}
	for _, r := range d.Rows {
		cells := make([]string, len(r))
		for i, v := range r {
			if v == nil {
				cells[i] = "NULL"
			} else {
				cells[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, cells)
	}
	table(w, rows)
	fmt.Fprintf(w, "\n(%s", plural(d.RowCount, "row", "rows"))
	if d.Truncated {
		fmt.Fprint(w, ", truncated")
	}
	fmt.Fprintln(w, ")")
}

func textSchema(w *bufio.Writer, d *SchemaDocument) {
	if d.Table == "" {
		for _, t := range d.Tables {
			fmt.Fprintln(w, t)
		}
		fmt.Fprintf(w, "\n(%s)\n", plural(len(d.Tables), "table", "tables"))
		return
	}
	rows := [][]string{{"COLUMN", "TYPE", "NULL"}}
	for _, c := range d.Columns {
		null := "NO"
		if c.Nullable {
			null = "YES"
		}
		rows = append(rows, []string{c.Name, c.Type, null})
	}
	fmt.Fprintf(w, "%s\n\n", d.Table)
	table(w, rows)
}

func textCheck(w *bufio.Writer, d *CheckDocument) {
	if d.Allowed {
		fmt.Fprintf(w, "allowed  %s %q", d.Check, d.Input)
		if d.Value != "" && d.Value != d.Input {
			fmt.Fprintf(w, " -> %s", d.Value)
		}
		fmt.Fprintln(w)
		return
	}
	fmt.Fprintf(w, "blocked  %s %q: %s", d.Check, d.Input, d.Reason)
	if d.Rule != "" {
		fmt.Fprintf(w, " (rule %s)", d.Rule)
	}
	fmt.Fprintln(w)
}

func textValues(w *bufio.Writer, d *ValuesDocument) {
	width := 0
	for _, e := range d.Entries {
		width = max(width, runewidth.StringWidth(e.Key))
	}
	for _, e := range d.Entries {
		if e.Key == "" {
			fmt.Fprintln(w, e.Value)
			continue
		}
		fmt.Fprintf(w, "%s  %s\n", runewidth.FillRight(e.Key, width), e.Value)
	}
}

// table writes rows as left-aligned columns; the first row is the header.
func table(w *bufio.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, r := range rows {
		for i, c := range r {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(c))
			}
		}
	}
	for _, r := range rows {
		var b strings.Builder
		for i, c := range r {
			if i >= len(widths) {
				break
			}
			if i == len(r)-1 {
				b.WriteString(c)
			} else {
				b.WriteString(runewidth.FillRight(c, widths[i]))
				b.WriteString("  ")
			}
		}
		fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
