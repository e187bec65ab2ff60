package main

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"safegate/internal/config"
	"safegate/internal/policy"
	"safegate/internal/report"
)

func (a *app) policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the effective policy",
	}

	var kind string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print every rule of the effective policy store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.loadPolicy()
			if err != nil {
				return err
			}
			rules := store.Rules()
			// the connections file is forbidden by the engine, not the store
			rules = append(rules, policy.Rule{
				Kind:        policy.KindPathPrefix,
				Pattern:     config.ExpandPath(a.cfg.Database.ConnectionsFile),
				Description: "connections file",
			})

			var shown []policy.Rule
			for _, r := range rules {
				if kind == "" || string(r.Kind) == kind {
					shown = append(shown, r)
				}
			}
			return a.emit(policyDocument(store.Version(), shown))
		},
	}
	show.Flags().StringVar(&kind, "kind", "", "only rules of this kind (command-regex, path-prefix, ...)")
	cmd.AddCommand(show)
	return cmd
}

func policyDocument(version string, rules []policy.Rule) *report.ValuesDocument {
	entries := []report.KeyValue{{Value: "policy " + version}}
	for _, r := range rules {
		v := r.Pattern
		if r.Description != "" {
			v += "  # " + r.Description
		}
		entries = append(entries, report.KeyValue{Key: string(r.Kind), Value: v})
	}
	if rules == nil {
		rules = []policy.Rule{}
	}
	return &report.ValuesDocument{
		Entries: entries,
		Data: struct {
			Version string        `json:"version" yaml:"version"`
			Rules   []policy.Rule `json:"rules" yaml:"rules"`
		}{version, rules},
	}
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and modify configuration",
		Long:  "Get, set, and list configuration values. Changes are saved to the config file.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <path>",
		Short: "Get a config value (e.g. exec.timeoutSeconds)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := config.GetByPath(a.cfg, args[0])
			if err != nil {
				return err
			}
			return a.emit(valueDocument(args[0], val))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <path> <value>",
		Short: "Set a config value (e.g. exec.timeoutSeconds 60)",
		Long:  "Sets one value and saves the config file. Lists take comma-separated values.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.SetByPath(a.cfg, args[0], args[1]); err != nil {
				return fmt.Errorf("set value: %w", err)
			}
			if err := config.Validate(a.cfg); err != nil {
				return err
			}
			cfgPath := a.resolveConfigPath()
			if err := config.Save(cfgPath, a.cfg); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
			a.logger.Info("config updated", "path", args[0], "value", args[1], "file", cfgPath)
			val, _ := config.GetByPath(a.cfg, args[0])
			return a.emit(valueDocument(args[0], val))
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list := config.ListPaths(a.cfg)
			entries := make([]report.KeyValue, len(list))
			for i, e := range list {
				entries[i] = report.KeyValue{Key: e.Path, Value: formatValue(e.Value)}
			}
			return a.emit(&report.ValuesDocument{Entries: entries, Data: list})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := a.resolveConfigPath()
			return a.emit(&report.ValuesDocument{
				Entries: []report.KeyValue{{Value: p}},
				Data:    map[string]string{"path": p},
			})
		},
	})

	return cmd
}

func valueDocument(path string, val any) *report.ValuesDocument {
	return &report.ValuesDocument{
		Entries: []report.KeyValue{{Key: path, Value: formatValue(val)}},
		Data:    config.Entry{Path: path, Value: val},
	}
}

// formatValue renders a config leaf for text output; strings stay bare.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":  version,
				"go":       runtime.Version(),
				"platform": runtime.GOOS + "/" + runtime.GOARCH,
				"policy":   policy.DefaultVersion,
			}
			return a.emit(&report.ValuesDocument{
				Entries: []report.KeyValue{
					{Key: "safegate", Value: info["version"]},
					{Key: "go", Value: info["go"]},
					{Key: "platform", Value: info["platform"]},
					{Key: "policy", Value: info["policy"]},
				},
				Data: info,
			})
		},
	}
}
