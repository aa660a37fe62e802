// This file contains environment variable utilities for configuration
// processing.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var envVarPatterns = struct {
	withDefault *regexp.Regexp // ${VAR:-default}
	braced      *regexp.Regexp // ${VAR}
	simple      *regexp.Regexp // $VAR
}{
	withDefault: regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`),
}

// expandEnvVars expands environment variables in a string.
// Supported formats: ${VAR:-default}, ${VAR}, $VAR.
// Patterns are processed most-specific first to avoid conflicts.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envVarPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.withDefault.FindStringSubmatch(match)
		if len(parts) == 3 {
			if val := os.Getenv(parts[1]); val != "" {
				return val
			}
			return parts[2]
		}
		return match
	})

	s = envVarPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.braced.FindStringSubmatch(match)
		if len(parts) == 2 {
			return os.Getenv(parts[1])
		}
		return match
	})

	s = envVarPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.simple.FindStringSubmatch(match)
		if len(parts) == 2 {
			return os.Getenv(parts[1])
		}
		return match
	})

	return s
}

// LoadEnvFiles loads environment variables from .env files.
// Priority order: .env.local (highest), then .env, then the system
// environment. Existing variables are not overwritten.
func LoadEnvFiles() error {
	envFiles := []string{".env.local", ".env"}

	for _, file := range envFiles {
		if _, err := os.Stat(file); os.IsNotExist(err) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return nil
}
