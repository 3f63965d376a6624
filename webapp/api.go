package webapp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/drummonds/gonotes/config"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// configGlobal is the window property holding the frontend configuration
const configGlobal = "gonotesConfig"

// GetAPIBaseURL returns the configured API base URL
// It reads from window.gonotesConfig.apiURL if available,
// otherwise falls back to empty string (relative URLs)
func GetAPIBaseURL() string {
	if !app.IsClient {
		return "" // Server-side rendering - use relative URLs
	}

	cfg := app.Window().Get(configGlobal)
	if cfg.Truthy() {
		apiURL := cfg.Get("apiURL")
		if apiURL.Truthy() {
			return strings.TrimSuffix(apiURL.String(), "/")
		}
	}

	// Fallback to relative URLs (same origin)
	return ""
}

// BuildAPIURL constructs a full API URL from a path
// Example: BuildAPIURL("/api/about") -> "http://backend:8000/api/about"
// or just "/api/about" if using relative URLs
func BuildAPIURL(path string) string {
	baseURL := GetAPIBaseURL()
	if baseURL == "" {
		return path // Relative URL
	}
	return baseURL + path
}

// clientSettings are the viewer settings published in config.js
type clientSettings struct {
	TrustedHosts       []string
	RefreshInterval    time.Duration
	CredentialLifetime time.Duration
}

// viewerSettings reads window.gonotesConfig. Missing values are left zero so
// the viewer applies its own defaults.
func viewerSettings() clientSettings {
	var settings clientSettings
	if !app.IsClient {
		return settings
	}
	cfg := app.Window().Get(configGlobal)
	if !cfg.Truthy() {
		return settings
	}
	if hosts := cfg.Get("trustedHosts"); hosts.Truthy() {
		for i := 0; i < hosts.Length(); i++ {
			settings.TrustedHosts = append(settings.TrustedHosts, hosts.Index(i).String())
		}
	}
	if seconds := cfg.Get("refreshIntervalSeconds"); seconds.Truthy() {
		settings.RefreshInterval = time.Duration(seconds.Int()) * time.Second
	}
	if seconds := cfg.Get("urlLifetimeSeconds"); seconds.Truthy() {
		settings.CredentialLifetime = time.Duration(seconds.Int()) * time.Second
	}
	return settings
}

// ConfigScript renders config.js, which publishes frontend settings to the
// WASM app as window.gonotesConfig
func ConfigScript(frontend config.FrontEndConfig) string {
	hosts, _ := json.Marshal(frontend.TrustedHosts)
	return fmt.Sprintf(`
// gonotes Frontend Configuration
window.%s = {
    apiURL: %q,
    trustedHosts: %s,
    refreshIntervalSeconds: %d,
    urlLifetimeSeconds: %d
};
`, configGlobal, frontend.ServerAPIURL, hosts,
		int(frontend.RefreshInterval/time.Second), int(frontend.URLLifetime/time.Second))
}

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Version         string `json:"version"`
	Renderer        string `json:"renderer"`
	ServerRendering bool   `json:"serverRendering"`
	DocumentPath    string `json:"documentPath"`
	URLLifetime     string `json:"urlLifetime"`
	RefreshInterval string `json:"refreshInterval"`
	Debug           bool   `json:"debug"`
	CachedDocuments int    `json:"cachedDocuments"`
	Database        string `json:"database"`
	Notes           int    `json:"notes"`
}

// NoteSummary is one entry of /api/notes
type NoteSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Pages     int       `json:"pages"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"createdAt"`
}

// noteFileResponse is the body of /notes/{id}/file/
type noteFileResponse struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}
