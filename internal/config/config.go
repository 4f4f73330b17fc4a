// Package config loads Jira connection settings from the environment.
// It implements a simple interface with a single explicit Load entry point -
// no package-level singletons, so tests and commands construct their own Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ErrConfiguration indicates missing or invalid credentials or URL.
var ErrConfiguration = errors.New("configuration error")

// Environment variable names consumed at process start.
const (
	EnvBaseURL       = "JIRA_BASE_URL"
	EnvAuthToken     = "JIRA_AUTH_TOKEN"
	EnvUserAccountID = "JIRA_USER_ACCOUNT_ID"
	EnvOfflineMode   = "JIRA_OFFLINE_MODE"
)

// Config holds the resolved Jira connection settings.
// It is constructed once per CLI invocation and passed explicitly
// to the components that need it.
type Config struct {
	BaseURL       string // e.g. https://company.atlassian.net
	AuthToken     string // Basic auth token (already base64-encoded user:token)
	UserAccountID string // optional, used for account-reference fields
	Offline       bool   // when set, network commands refuse to run
}

// Load reads configuration from the environment, consulting a .env file
// in the working directory first if one exists. It returns ErrConfiguration
// (wrapped with an actionable message) when BaseURL or AuthToken is missing.
func Load() (*Config, error) {
	// A missing .env is fine; explicit environment variables win either way.
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:       strings.TrimRight(strings.TrimSpace(os.Getenv(EnvBaseURL)), "/"),
		AuthToken:     strings.TrimSpace(os.Getenv(EnvAuthToken)),
		UserAccountID: strings.TrimSpace(os.Getenv(EnvUserAccountID)),
		Offline:       isTruthy(os.Getenv(EnvOfflineMode)),
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: %s not set. Set it to your Jira instance URL, e.g. https://company.atlassian.net",
			ErrConfiguration, EnvBaseURL)
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("%w: %s not set. Generate an API token and export it before running network commands",
			ErrConfiguration, EnvAuthToken)
	}

	return cfg, nil
}

// APIBase returns the versioned REST base path for API calls.
func (c *Config) APIBase() string {
	return c.BaseURL + "/rest/api/2"
}

// BrowseURL returns the human-facing web URL for an issue key.
func (c *Config) BrowseURL(issueKey string) string {
	return c.BaseURL + "/browse/" + issueKey
}

// AuthHeader returns the value for the Authorization header.
func (c *Config) AuthHeader() string {
	return "Basic " + c.AuthToken
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
