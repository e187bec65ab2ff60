package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"safegate/internal/domain"
	"safegate/internal/report"
)

const fakeTCP = `  sl  local_address rem_address   st tx_queue rx_queue tr tm->when retrnsmt   uid  timeout inode
   0: 0100007F:1F90 00000000:0000 0A 00000000:00000000 00:00000000 00000000  1000        0 4242 1 0000000000000000 100 0 0 10 0
   1: 0100007F:A1B2 0100007F:1F90 01 00000000:00000000 00:00000000 00000000  1000        0 4343 1 0000000000000000 20 4 30 10 -1
`

// fakeProc lays out a minimal procfs: one tcp table and one process holding
// the listening socket's inode.
func fakeProc(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "net", "tcp"), fakeTCP)
	writeFile(t, filepath.Join(root, "321", "comm"), "devserver\n")
	fd := filepath.Join(root, "321", "fd")
	if err := os.MkdirAll(fd, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("socket:[4242]", filepath.Join(fd, "3")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	if err := os.Symlink("/dev/null", filepath.Join(fd, "0")); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestPortsTool_FromProc(t *testing.T) {
	tool := NewPortsTool(time.Second, testLogger())
	tool.procRoot = fakeProc(t)

	doc, err := tool.Execute(context.Background(), domain.Request{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	p := doc.(*report.PortsDocument)
	if p.Source != "procfs" {
		t.Errorf("source: got %q", p.Source)
	}
	if len(p.Listeners) != 1 {
		t.Fatalf("expected 1 listener, got %+v", p.Listeners)
	}
	l := p.Listeners[0]
	if l.Proto != "tcp" || l.Address != "127.0.0.1" || l.Port != 8080 {
		t.Errorf("listener: %+v", l)
	}
	if l.PID != 321 || l.Process != "devserver" {
		t.Errorf("owner: pid=%d process=%q", l.PID, l.Process)
	}
}

func TestPortsTool_SocketOwnersIgnoresUnreadable(t *testing.T) {
	tool := NewPortsTool(time.Second, testLogger())
	tool.procRoot = t.TempDir()
	writeFile(t, filepath.Join(tool.procRoot, "self", "comm"), "x")
	if owners := tool.socketOwners(); len(owners) != 0 {
		t.Errorf("expected no owners, got %v", owners)
	}
}

func TestPortsTool_NoProcTables(t *testing.T) {
	tool := NewPortsTool(time.Second, testLogger())
	tool.procRoot = t.TempDir()
	if _, err := tool.fromProc(); err == nil {
		t.Fatal("expected error when no tables are readable")
	}
}
