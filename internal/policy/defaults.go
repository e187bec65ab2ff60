package policy

// DefaultVersion is the version of the built-in rule set.
const DefaultVersion = "builtin-2026.10"

// wide targets for recursive removal: root (any spelling such as // or /./),
// home, cwd, glob-all and top-level system dirs
const wideTarget = `(?:/[/.]*\*?|~/?|~/\*|\$HOME/?|\$\{HOME\}/?|\.\.?/?|\*|/+(?:bin|boot|dev|etc|home|lib|lib64|opt|proc|root|sbin|srv|sys|usr|var)/*\*?)(?:\s|$|[;&|])`

// DefaultRules returns the built-in rule set. Command rules match the literal
// string; quoting or variable expansion can hide a command from them.
func DefaultRules() []Rule {
	var rules []Rule
	add := func(kind RuleKind, desc string, patterns ...string) {
		for _, p := range patterns {
			rules = append(rules, Rule{Kind: kind, Pattern: p, Description: desc})
		}
	}

	add(KindCommandSubstring, "fork bomb",
		":(){:|:&};:",
		":(){ :|:& };:",
	)
	add(KindCommandRegex, "fork bomb",
		`[\w:]+\s*\(\)\s*\{\s*[\w:]+\s*\|\s*[\w:]+\s*&\s*\}\s*;\s*[\w:]+`,
	)
	add(KindCommandRegex, "recursive remove of a root or wide path",
		`\brm\s+(?:-{1,2}[A-Za-z-]+\s+)*-{1,2}[A-Za-z-]*[rR][A-Za-z-]*\s+(?:-{1,2}[A-Za-z-]+\s+)*`+wideTarget,
	)
	add(KindCommandRegex, "recursive permission change of the root",
		`\bch(?:mod|own|grp)\s+(?:-[A-Za-z]*\s+)*-[A-Za-z]*R[A-Za-z]*\s+\S+\s+/[/.]*(?:\s|$|[;&|])`,
	)
	add(KindCommandRegex, "raw block device write",
		`\bdd\b[^;&|]*\bof=/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk|mapper/|md)`,
		`>\s*/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk|md)[a-z0-9]*`,
		`\bshred\b[^;&|]*/dev/(?:sd|hd|vd|xvd|nvme|mmcblk|disk|md)`,
	)
	add(KindCommandRegex, "filesystem formatting",
		`\bmkfs(?:\.[A-Za-z0-9]+)?\b`,
		`\bmke2fs\b`,
		`\bmkswap\b`,
		`\bwipefs\b`,
	)
	add(KindCommandSubstring, "move of the root into the void",
		"mv /* /dev/null",
		"mv / /dev/null",
	)
	add(KindCommandRegex, "recursive invocation of the gateway",
		"(?:^|[;&|(]|\\$\\(|`)\\s*(?:\\S*/)?safegate(?:\\s|$)",
		`\b(?:sh|bash|zsh|dash|env|exec|xargs|nohup|sudo|doas)\s+(?:-\S+\s+)*['"]?(?:\S*/)?safegate(?:\s|$|['"])`,
	)

	add(KindPathPrefix, "credential directory",
		"~/.ssh",
		"/root/.ssh",
		"~/.aws",
		"~/.azure",
		"~/.gnupg",
		"~/.kube",
		"~/.docker",
		"~/.config/gcloud",
		"~/.password-store",
	)
	add(KindPathPrefix, "shadow or password database",
		"/etc/shadow",
		"/etc/gshadow",
		"/etc/master.passwd",
		"/etc/security/opasswd",
		"/etc/sudoers",
		"/etc/sudoers.d",
		"/etc/ssl/private",
	)

	add(KindSecretPattern, "dotenv file",
		".env", ".env.*", "*.env",
	)
	add(KindSecretPattern, "private key",
		"id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
		"*.pem", "*.key", "*.p12", "*.pfx", "*.jks", "*.keystore",
	)
	add(KindSecretPattern, "credential store",
		".netrc", ".pgpass", ".my.cnf", ".git-credentials", ".npmrc", ".pypirc",
		".htpasswd", "*.kdbx", "credentials", "credentials.json",
		"secrets.yml", "secrets.yaml", "secrets.json", "service-account*.json",
		"shadow", "gshadow",
	)

	add(KindSQLKeyword, "write statement",
		"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "TRUNCATE",
		"CREATE", "GRANT", "REVOKE",
		"REPLACE", "MERGE", "UPSERT", "ATTACH", "DETACH", "COPY",
		"CALL", "EXEC", "EXECUTE", "VACUUM", "REINDEX", "LOCK", "RENAME",
	)
	add(KindSQLKeyword, "server-side file write",
		"OUTFILE", "DUMPFILE",
	)

	add(KindEnvSecret, "secret-like variable name",
		"SECRET", "TOKEN", "PASSWORD", "PASSWD", "PASSPHRASE", "KEY",
		"CREDENTIAL", "PRIVATE", "COOKIE", "AUTH", "DSN",
		"DATABASE_URL", "CONNECTION_STRING",
	)
	return rules
}

// Default compiles the built-in rule set.
func Default() *Store {
	s, err := New(DefaultVersion, DefaultRules())
	if err != nil {
		panic("policy: invalid built-in rules: " + err.Error())
	}
	return s
}
