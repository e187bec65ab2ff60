package main

import (
	"strings"

	"github.com/spf13/cobra"

	"safegate/internal/domain"
	"safegate/internal/tool"
)

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func (a *app) execCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <command>",
		Short: "Run a shell command after the dangerous-command check",
		Long: `Runs <command> with "sh -c" in the working directory. The exit status of
the command becomes the exit status of safegate. Words after <command> are
joined with spaces, so quoting the whole command is optional.`,
		Example: `  safegate exec 'ls -la'
  safegate exec -- grep -rn TODO .`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpExec, domain.Request{Arg: strings.Join(args, " ")})
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func (a *app) readCmd() *cobra.Command {
	var maxBytes int
	cmd := &cobra.Command{
		Use:   "read <path>",
		Short: "Read a file (secret files are refused)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpRead, domain.Request{Arg: args[0], Limit: maxBytes})
		},
	}
	cmd.Flags().IntVar(&maxBytes, "max-bytes", 0, "truncate after N bytes (default from config)")
	return cmd
}

func (a *app) treeCmd() *cobra.Command {
	var depth, limit int
	cmd := &cobra.Command{
		Use:   "tree [path]",
		Short: "Show a directory tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpTree, domain.Request{Arg: optionalArg(args), Depth: depth, Limit: limit})
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "maximum depth (default from config)")
	cmd.Flags().IntVar(&limit, "max-entries", 0, "stop after N entries")
	return cmd
}

func (a *app) searchCmd() *cobra.Command {
	var (
		limit      int
		ignoreCase bool
	)
	cmd := &cobra.Command{
		Use:   "search <pattern> [path]",
		Short: "Search file contents for a regular expression",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpSearch, domain.Request{
				Arg:        args[0],
				Path:       optionalArg(args[1:]),
				Limit:      limit,
				IgnoreCase: ignoreCase,
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum matches (default from config)")
	cmd.Flags().BoolVarP(&ignoreCase, "ignore-case", "i", false, "case-insensitive match")
	return cmd
}

func (a *app) gitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "git",
		Short: "Read-only git inspection",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status [path]",
		Short: "Branch, upstream and changed files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpGitStatus, domain.Request{Arg: optionalArg(args)})
		},
	})

	var n int
	logCmd := &cobra.Command{
		Use:   "log [path]",
		Short: "Recent commits",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpGitLog, domain.Request{Arg: optionalArg(args), Limit: n})
		},
	}
	logCmd.Flags().IntVarP(&n, "max-count", "n", 0, "number of commits (default from config)")
	cmd.AddCommand(logCmd)
	return cmd
}

func (a *app) portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List listening TCP and UDP sockets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpPorts, domain.Request{})
		},
	}
}

func (a *app) envCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "Environment snapshot with secret-like variables omitted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpEnv, domain.Request{})
		},
	}
}

func (a *app) projectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "project [path]",
		Short: "Detect project type and dependencies",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpProject, domain.Request{Arg: optionalArg(args)})
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	var (
		conn  string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query against a named connection",
		Long: `Runs <sql> on the connection named by --conn. Any statement mentioning a
write keyword (INSERT, UPDATE, DELETE, DROP, ...) anywhere in its text is
refused, including inside string literals and comments.`,
		Example: `  safegate query --conn analytics 'SELECT id, name FROM users LIMIT 5'`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpQuery, domain.Request{
				Arg:        strings.Join(args, " "),
				Connection: conn,
				Limit:      limit,
			})
		},
	}
	cmd.Flags().StringVar(&conn, "conn", "", "connection name from the connections file")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum rows (default from config)")
	return cmd
}

func (a *app) schemaCmd() *cobra.Command {
	var conn string
	cmd := &cobra.Command{
		Use:   "schema [table]",
		Short: "List tables, or the columns of one table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpSchema, domain.Request{Arg: optionalArg(args), Connection: conn})
		},
	}
	cmd.Flags().StringVar(&conn, "conn", "", "connection name from the connections file")
	return cmd
}

func (a *app) sampleCmd() *cobra.Command {
	var (
		conn string
		n    int
	)
	cmd := &cobra.Command{
		Use:   "sample <table>",
		Short: "Show the first rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpSample, domain.Request{Arg: args[0], Connection: conn, Limit: n})
		},
	}
	cmd.Flags().StringVar(&conn, "conn", "", "connection name from the connections file")
	cmd.Flags().IntVarP(&n, "rows", "n", 0, "number of rows (default 10)")
	return cmd
}

func (a *app) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "check <" + strings.Join(tool.CheckKinds, "|") + "> <input>",
		Short:     "Validate an input without running anything",
		Long:      "Reports whether <input> would pass the given validator. The exit status is 0 either way.",
		Example:   "  safegate check command 'rm -rf /'\n  safegate check path ~/.ssh/config",
		ValidArgs: tool.CheckKinds,
		Args:      cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, domain.OpCheck, domain.Request{
				CheckKind: args[0],
				Arg:       strings.Join(args[1:], " "),
			})
		},
	}
	cmd.Flags().SetInterspersed(false)
	return cmd
}
