package config

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func validConfig() ServerConfig {
	return ServerConfig{
		SigningKey: "secret",
		Renderer:   "pdfium",
		FrontEndConfig: FrontEndConfig{
			RefreshInterval: 4 * time.Minute,
			URLLifetime:     5 * time.Minute,
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *ServerConfig)
		wantErr string
	}{
		{"defaults are valid", func(c *ServerConfig) {}, ""},
		{"missing key", func(c *ServerConfig) { c.SigningKey = "" }, "URL_SIGNING_KEY"},
		{"missing key in debug", func(c *ServerConfig) { c.SigningKey = ""; c.Debug = true }, ""},
		{"refresh equals lifetime", func(c *ServerConfig) { c.RefreshInterval = 5 * time.Minute }, "VIEWER_REFRESH_INTERVAL"},
		{"zero lifetime", func(c *ServerConfig) { c.URLLifetime = 0 }, "URL_LIFETIME"},
		{"fitz renderer", func(c *ServerConfig) { c.Renderer = "fitz" }, ""},
		{"unknown renderer", func(c *ServerConfig) { c.Renderer = "poppler" }, "PDF_RENDERER"},
		{"registry disabled", func(c *ServerConfig) { c.DatabaseType = "none" }, ""},
		{"postgres registry", func(c *ServerConfig) { c.DatabaseType = "postgres" }, ""},
		{"unknown database", func(c *ServerConfig) { c.DatabaseType = "storm" }, "DATABASE_TYPE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.modify(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error mentioning %s, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TEST_DURATION_SECONDS", "300")
	t.Setenv("TEST_DURATION_TEXT", "90s")
	t.Setenv("TEST_DURATION_BAD", "soon")

	if got := getEnvDuration("TEST_DURATION_SECONDS", time.Minute); got != 5*time.Minute {
		t.Errorf("Expected 5m, got %s", got)
	}
	if got := getEnvDuration("TEST_DURATION_TEXT", time.Minute); got != 90*time.Second {
		t.Errorf("Expected 90s, got %s", got)
	}
	if got := getEnvDuration("TEST_DURATION_BAD", time.Minute); got != time.Minute {
		t.Errorf("Expected default for unparsable value, got %s", got)
	}
}

func TestLoadFrontEnd(t *testing.T) {
	t.Setenv("TRUSTED_HOSTS", " localhost, notes.internal ,,")
	t.Setenv("VIEWER_REFRESH_INTERVAL", "2m")
	t.Setenv("SERVER_API_URL", "")
	t.Setenv("URL_LIFETIME", "600")

	got := loadFrontEnd("http://localhost:8000")
	want := FrontEndConfig{
		ServerAPIURL:    "http://localhost:8000",
		RefreshInterval: 2 * time.Minute,
		URLLifetime:     10 * time.Minute,
		TrustedHosts:    []string{"localhost", "notes.internal"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FrontEndConfig mismatch (-want +got):\n%s", diff)
	}
}
