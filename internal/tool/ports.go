package tool

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"safegate/internal/domain"
	"safegate/internal/report"
)

var procNetTables = []string{"tcp", "tcp6", "udp", "udp6"}

// PortsTool lists listening sockets from procfs, falling back to lsof where
// procfs is unavailable.
type PortsTool struct {
	procRoot string
	timeout  time.Duration
	logger   *slog.Logger
}

func NewPortsTool(timeout time.Duration, logger *slog.Logger) *PortsTool {
	return &PortsTool{procRoot: "/proc", timeout: timeout, logger: logger}
}

func (t *PortsTool) Kind() domain.OperationKind { return domain.OpPorts }
func (t *PortsTool) Description() string {
	return "List listening TCP and UDP sockets with the owning process where visible."
}

func (t *PortsTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	ls, err := t.fromProc()
	if err == nil {
		return report.BuildPorts("procfs", ls), nil
	}
	t.logger.Debug("procfs unavailable, falling back to lsof", "error", err)

	stdout, err := runHelper(ctx, t.timeout, "", "lsof", "-nP", "-iTCP", "-sTCP:LISTEN", "-iUDP")
	if domain.CodeOf(err) != "" {
		return nil, err
	}
	// lsof exits 1 when nothing matched; whatever it printed is still usable
	return report.BuildPorts("lsof", report.ParseLsof(stdout)), nil
}

func (t *PortsTool) fromProc() ([]report.Listener, error) {
	var all []report.Listener
	read := 0
	for _, proto := range procNetTables {
		data, err := os.ReadFile(filepath.Join(t.procRoot, "net", proto))
		if err != nil {
			continue
		}
		read++
		ls, err := report.ParseProcNet(proto, data)
		if err != nil {
			return nil, err
		}
		all = append(all, ls...)
	}
	if read == 0 {
		return nil, errors.New("no /proc/net tables readable")
	}

	owners := t.socketOwners()
	for i := range all {
		if o, ok := owners[all[i].Inode]; ok {
			all[i].PID = o.pid
			all[i].Process = o.comm
		}
	}
	return all, nil
}

type socketOwner struct {
	pid  int
	comm string
}

// socketOwners maps socket inodes to the processes holding them. Processes
// whose fd table is not readable are silently left out.
func (t *PortsTool) socketOwners() map[uint64]socketOwner {
	owners := map[uint64]socketOwner{}
	procs, err := os.ReadDir(t.procRoot)
	if err != nil {
		return owners
	}
	for _, p := range procs {
		pid, err := strconv.Atoi(p.Name())
		if err != nil {
			continue
		}
		fdDir := filepath.Join(t.procRoot, p.Name(), "fd")
		fds, err := os.ReadDir(fdDir)
		if err != nil {
			continue
		}
		var comm string
		for _, fd := range fds {
			target, err := os.Readlink(filepath.Join(fdDir, fd.Name()))
			if err != nil || !strings.HasPrefix(target, "socket:[") {
				continue
			}
			inode, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(target, "socket:["), "]"), 10, 64)
			if err != nil {
				continue
			}
			if comm == "" {
				b, _ := os.ReadFile(filepath.Join(t.procRoot, p.Name(), "comm"))
				comm = strings.TrimSpace(string(b))
			}
			if _, seen := owners[inode]; !seen {
				owners[inode] = socketOwner{pid: pid, comm: comm}
			}
		}
	}
	return owners
}
