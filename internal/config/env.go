package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv loads environment variables from dotenv files so ${VAR} references
// in the config and connections files can resolve. Existing variables are
// never overwritten. Priority, highest first:
//  1. variables already in the environment
//  2. envFile, when given (must exist)
//  3. ~/.safegate/.env
func LoadEnv(envFile string) error {
	var files []string

	if envFile != "" {
		envFile = ExpandPath(envFile)
		if _, err := os.Stat(envFile); err != nil {
			return fmt.Errorf("env file not found: %s", envFile)
		}
		files = append(files, envFile)
	}

	global := filepath.Join(DefaultConfigDir(), ".env")
	if _, err := os.Stat(global); err == nil {
		files = append(files, global)
	}

	if len(files) == 0 {
		return nil
	}

	// godotenv.Load does NOT overwrite existing env vars
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}
