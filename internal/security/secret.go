package security

import (
	"path/filepath"
	"strings"
)

// IsSecretFile reports whether the basename of nameOrPath looks like a
// secret-bearing file (dotenv, private key, credential store).
func (e *Engine) IsSecretFile(nameOrPath string) bool {
	name := strings.TrimSpace(nameOrPath)
	if name == "" {
		return false
	}
	_, ok := e.store.MatchSecretName(filepath.Base(name))
	return ok
}

// IsSecretEnvName reports whether an environment variable must be left out
// of environment snapshots.
func (e *Engine) IsSecretEnvName(name string) bool {
	return e.store.MatchEnvName(name)
}
