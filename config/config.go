// Package config holds the runtime settings and credential resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	logger "github.com/sirupsen/logrus"
)

// TokenEnvVar is the environment variable supplying the hosting-API token.
const TokenEnvVar = "GITHUB_TOKEN"

// tokenPlaceholder is the literal some CI templates leave behind when the
// secret is unset; it is treated the same as an absent token.
const tokenPlaceholder = "None"

// Defaults for the flag surface. Zero-argument invocation works against a
// conventional meta-repository layout.
const (
	DefaultParentDir     = "./"
	DefaultBaseBranch    = "main"
	DefaultBranchPrefix  = "feat/update-"
	DefaultSemverPattern = `(v\d+\.\d+\.\d+)`
	DefaultManifestFile  = "deps.repos"
)

// Settings carries everything one reconciliation run needs.
type Settings struct {
	ParentDir     string // working-tree directory of the meta-repository
	TargetRepo    string // owner/name the pull requests are opened against
	BaseBranch    string
	BranchPrefix  string
	SemverPattern string // regular expression matched against pinned versions
	ManifestFile  string // manifest file name, relative to ParentDir
	Token         string
	Verbosity     int
}

// ResolveToken reads the hosting-API token from the environment. An absent
// token or the literal placeholder is a fatal configuration error.
func ResolveToken() (string, error) {
	token := os.Getenv(TokenEnvVar)
	if token == "" || token == tokenPlaceholder {
		return "", fmt.Errorf("please set %s as an environment variable", TokenEnvVar)
	}
	return token, nil
}

// Validate checks for required values and a compilable version pattern.
func (s *Settings) Validate() error {
	if s.Token == "" {
		return errors.New("token is required")
	}
	if s.BaseBranch == "" {
		return errors.New("base branch is required")
	}
	if s.ManifestFile == "" {
		return errors.New("manifest file name is required")
	}
	if _, err := regexp.Compile(s.SemverPattern); err != nil {
		return fmt.Errorf("invalid semantic version pattern %q: %w", s.SemverPattern, err)
	}
	return nil
}

// CompiledSemverPattern returns the compiled pin-filter pattern. Call
// Validate first; an invalid pattern panics here.
func (s *Settings) CompiledSemverPattern() *regexp.Regexp {
	return regexp.MustCompile(s.SemverPattern)
}

// ApplyVerbosity maps the -v flag count onto logrus levels:
// 0 warn, 1 info, 2 and above debug.
func ApplyVerbosity(count int) {
	switch {
	case count <= 0:
		logger.SetLevel(logger.WarnLevel)
	case count == 1:
		logger.SetLevel(logger.InfoLevel)
	default:
		logger.SetLevel(logger.DebugLevel)
	}
}
