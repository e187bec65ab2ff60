package report

import (
	"io/fs"
	"path"
)

// DefaultTreeEntries bounds the number of nodes in one tree.
const DefaultTreeEntries = 5000

type TreeOptions struct {
	MaxDepth   int
	MaxEntries int // 0 means DefaultTreeEntries
	// Prune, when set, is asked about every directory below the root. A
	// pruned directory is listed but its contents are not.
	Prune func(rel string) bool
}

// BuildTree lists fsys from its root down to opts.MaxDepth levels. Symlinks
// are reported with their target but never followed. root is only used as
// the display path of the document.
func BuildTree(fsys fs.FS, root string, opts TreeOptions) (*TreeDocument, error) {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultTreeEntries
	}
	info, err := fs.Stat(fsys, ".")
	if err != nil {
		return nil, err
	}
	doc := &TreeDocument{Root: root, Depth: opts.MaxDepth}
	top := &Node{Name: path.Base(root), Path: ".", Kind: NodeDir}
	if !info.IsDir() {
		top.Kind = NodeFile
		size := info.Size()
		top.Size = &size
		doc.Files = 1
		doc.Tree = top
		return doc, nil
	}

	b := &treeBuilder{fsys: fsys, maxDepth: opts.MaxDepth, remaining: opts.MaxEntries, prune: opts.Prune, doc: doc}
	if err := b.fill(top, ".", 0); err != nil {
		return nil, err
	}
	doc.Tree = top
	return doc, nil
}

type treeBuilder struct {
	fsys      fs.FS
	maxDepth  int
	remaining int
	prune     func(rel string) bool
	doc       *TreeDocument
}

func (b *treeBuilder) fill(parent *Node, dir string, depth int) error {
	if depth >= b.maxDepth || (depth > 0 && b.prune != nil && b.prune(dir)) {
		parent.Truncated = true
		return nil
	}
	entries, err := fs.ReadDir(b.fsys, dir)
	if err != nil {
		if depth == 0 {
			return err
		}
		// unreadable subdirectory: keep the node, drop its contents
		parent.Truncated = true
		return nil
	}
	for _, e := range entries {
		if b.remaining <= 0 {
			b.doc.Truncated = true
			return nil
		}
		b.remaining--

		rel := path.Join(dir, e.Name())
		n := &Node{Name: e.Name(), Path: rel}
		mode := e.Type()
		switch {
		case mode&fs.ModeSymlink != 0:
			n.Kind = NodeSymlink
			if target, err := fs.ReadLink(b.fsys, rel); err == nil {
				n.Target = target
			}
		case e.IsDir():
			n.Kind = NodeDir
			b.doc.Dirs++
			if err := b.fill(n, rel, depth+1); err != nil {
				return err
			}
		case mode.IsRegular():
			n.Kind = NodeFile
			b.doc.Files++
			if info, err := e.Info(); err == nil {
				size := info.Size()
				n.Size = &size
			}
		default:
			n.Kind = NodeOther
		}
		parent.Children = append(parent.Children, n)
	}
	return nil
}
