package tool

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"safegate/internal/domain"
	"safegate/internal/report"
	"safegate/internal/security"
)

// EnvTool snapshots the environment. Variables whose names look like
// secrets are dropped before the document is built.
type EnvTool struct {
	engine  *security.Engine
	environ func() []string
	logger  *slog.Logger
}

func NewEnvTool(engine *security.Engine, logger *slog.Logger) *EnvTool {
	return &EnvTool{engine: engine, environ: os.Environ, logger: logger}
}

func (t *EnvTool) Kind() domain.OperationKind { return domain.OpEnv }
func (t *EnvTool) Description() string {
	return "Snapshot environment variables (secret-like names omitted) and host information."
}

func (t *EnvTool) Execute(ctx context.Context, req domain.Request) (domain.Document, error) {
	sys := collectSystemInfo(ctx, t.engine.WorkDir())
	doc := report.BuildEnv(t.environ(), t.engine.IsSecretEnvName, sys)
	if doc.Omitted > 0 {
		t.logger.Info("secret environment variables omitted", "count", doc.Omitted)
	}
	return doc, nil
}

func collectSystemInfo(ctx context.Context, workDir string) report.SystemInfo {
	hostname, _ := os.Hostname()
	return report.SystemInfo{
		Hostname:  hostname,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		OSVersion: getOSVersion(ctx),
		CPUModel:  getCPUName(ctx),
		CPUs:      runtime.NumCPU(),
		WorkDir:   workDir,
		Uptime:    getSystemUptime(ctx),
	}
}

// runCmd runs a fixed informational command and returns trimmed stdout, or
// "" on any failure.
func runCmd(ctx context.Context, name string, args ...string) string {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return ""
	}
	return strings.TrimSpace(out.String())
}

func getOSVersion(ctx context.Context) string {
	switch runtime.GOOS {
	case "darwin":
		ver := runCmd(ctx, "sw_vers", "-productVersion")
		name := runCmd(ctx, "sw_vers", "-productName")
		if name != "" && ver != "" {
			return fmt.Sprintf("%s %s", name, ver)
		}
		return ver
	case "linux":
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if v, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
					return strings.Trim(v, `"`)
				}
			}
		}
		return runCmd(ctx, "uname", "-r")
	}
	return ""
}

func getCPUName(ctx context.Context) string {
	switch runtime.GOOS {
	case "darwin":
		return runCmd(ctx, "sysctl", "-n", "machdep.cpu.brand_string")
	case "linux":
		data, err := os.ReadFile("/proc/cpuinfo")
		if err != nil {
			return ""
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.HasPrefix(line, "model name") {
				if _, v, ok := strings.Cut(line, ":"); ok {
					return strings.TrimSpace(v)
				}
			}
		}
	}
	return ""
}

// getSystemUptime reads /proc/uptime on linux and falls back to sysctl on
// darwin.
func getSystemUptime(ctx context.Context) string {
	switch runtime.GOOS {
	case "linux":
		data, err := os.ReadFile("/proc/uptime")
		if err != nil {
			return ""
		}
		f := strings.Fields(string(data))
		if len(f) == 0 {
			return ""
		}
		secs, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return ""
		}
		return formatUptime(time.Duration(secs * float64(time.Second)))
	case "darwin":
		// { sec = 1700000000, usec = 0 } Tue Nov 14 ...
		out := runCmd(ctx, "sysctl", "-n", "kern.boottime")
		var sec int64
		if _, err := fmt.Sscanf(out, "{ sec = %d,", &sec); err != nil || sec == 0 {
			return ""
		}
		return formatUptime(time.Since(time.Unix(sec, 0)))
	}
	return ""
}

func formatUptime(d time.Duration) string {
	boot := time.Now().Add(-d)
	return "up since " + humanize.Time(boot)
}
