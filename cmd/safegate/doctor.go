package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"safegate/internal/database"
	"safegate/internal/report"
)

type checkStatus string

const (
	statusPass checkStatus = "PASS"
	statusWarn checkStatus = "WARN"
	statusFail checkStatus = "FAIL"
)

type doctorCheck struct {
	Check  string      `json:"check" yaml:"check"`
	Status checkStatus `json:"status" yaml:"status"`
	Detail string      `json:"detail" yaml:"detail"`
}

type doctorReport struct {
	checks []doctorCheck
}

func (r *doctorReport) add(status checkStatus, check, detail string) {
	r.checks = append(r.checks, doctorCheck{Check: check, Status: status, Detail: detail})
}

func (r *doctorReport) count(s checkStatus) int {
	n := 0
	for _, c := range r.checks {
		if c.Status == s {
			n++
		}
	}
	return n
}

func (r *doctorReport) document() *report.ValuesDocument {
	entries := make([]report.KeyValue, 0, len(r.checks)+1)
	for _, c := range r.checks {
		entries = append(entries, report.KeyValue{Key: fmt.Sprintf("[%s] %s", c.Status, c.Check), Value: c.Detail})
	}
	entries = append(entries, report.KeyValue{Value: fmt.Sprintf("\nResults: %d passed, %d warnings, %d failed",
		r.count(statusPass), r.count(statusWarn), r.count(statusFail))})
	return &report.ValuesDocument{Entries: entries, Data: r.checks}
}

func (a *app) doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, policy and external tools",
		Long: `Verifies that the configuration and policy load, that the working
directory exists, that the shell and helper tools are installed and that the
configured database connections answer. Exits 1 when a check failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.diagnose(cmd.Context())
			if err := a.emit(r.document()); err != nil {
				return err
			}
			if r.count(statusFail) > 0 {
				a.exitStatus = 1
			}
			return nil
		},
	}
}

func (a *app) diagnose(ctx context.Context) *doctorReport {
	r := &doctorReport{}

	// 1. Config file
	cfgPath := a.resolveConfigPath()
	if _, err := os.Stat(cfgPath); err != nil {
		r.add(statusWarn, "Config file", fmt.Sprintf("not found at %s (using defaults)", cfgPath))
	} else {
		r.add(statusPass, "Config file", cfgPath)
	}

	// 2. Policy
	if store, err := a.loadPolicy(); err != nil {
		r.add(statusFail, "Policy", err.Error())
	} else {
		r.add(statusPass, "Policy", fmt.Sprintf("%s, %d rules", store.Version(), len(store.Rules())))
	}

	// 3. Working directory
	workDir := firstNonEmpty(a.opts.workDir, a.cfg.General.WorkDir)
	if workDir == "" {
		workDir, _ = os.Getwd()
	}
	if info, err := os.Stat(workDir); err != nil {
		r.add(statusFail, "Working directory", fmt.Sprintf("not found: %s", workDir))
	} else if !info.IsDir() {
		r.add(statusFail, "Working directory", fmt.Sprintf("not a directory: %s", workDir))
	} else {
		r.add(statusPass, "Working directory", workDir)
	}

	// 4. Shell and helpers
	if p, err := exec.LookPath(a.cfg.Exec.Shell); err != nil {
		r.add(statusFail, "Shell", fmt.Sprintf("%s not found in PATH", a.cfg.Exec.Shell))
	} else {
		r.add(statusPass, "Shell", p)
	}
	for _, helper := range []string{"git", "lsof"} {
		if p, err := exec.LookPath(helper); err != nil {
			r.add(statusWarn, "Helper: "+helper, "not found in PATH")
		} else {
			r.add(statusPass, "Helper: "+helper, p)
		}
	}
	if _, err := os.Stat("/proc/net/tcp"); err == nil {
		r.add(statusPass, "Procfs", "/proc/net readable")
	} else {
		r.add(statusWarn, "Procfs", "unavailable, ports falls back to lsof")
	}

	// 5. Connections
	a.diagnoseConnections(ctx, r)
	return r
}

func (a *app) diagnoseConnections(ctx context.Context, r *doctorReport) {
	resolver := database.NewFileResolver(a.cfg.Database.ConnectionsFile, a.logger)
	info, err := os.Stat(resolver.Path())
	if err != nil {
		r.add(statusWarn, "Connections file", fmt.Sprintf("not found at %s (query disabled)", resolver.Path()))
		return
	}
	if info.Mode().Perm()&0o077 != 0 {
		r.add(statusWarn, "Connections file", fmt.Sprintf("%s is mode %04o; run chmod 600", resolver.Path(), info.Mode().Perm()))
	} else {
		r.add(statusPass, "Connections file", resolver.Path())
	}

	names, err := resolver.Names()
	if err != nil {
		r.add(statusFail, "Connections", err.Error())
		return
	}
	client := database.NewClient(5*time.Second, a.logger)
	for _, name := range names {
		desc, err := resolver.Resolve(name)
		if err != nil {
			r.add(statusFail, "Connection: "+name, err.Error())
			continue
		}
		if err := client.Ping(ctx, desc); err != nil {
			r.add(statusWarn, "Connection: "+name, err.Error())
			continue
		}
		detail := desc.Driver
		if desc.Host != "" {
			detail += " " + desc.Host
		} else if desc.Database != "" {
			detail += " " + filepath.Base(desc.Database)
		}
		r.add(statusPass, "Connection: "+name, strings.TrimSpace(detail))
	}
	if len(names) == 0 {
		r.add(statusWarn, "Connections", "file defines no connections")
	}
}
