package viewer

import (
	"log/slog"
	"slices"
	"strings"
	"time"
)

const (
	// DefaultCredentialLifetime is how long a signed URL stays valid.
	DefaultCredentialLifetime = 5 * time.Minute
	// DefaultRefreshInterval must stay below DefaultCredentialLifetime.
	DefaultRefreshInterval = 4 * time.Minute
	// DefaultPadding is subtracted from the container width before scaling.
	DefaultPadding = 40
)

// DefaultTrustedHosts are the development hosts that never refresh
// credentials.
var DefaultTrustedHosts = []string{"localhost", "127.0.0.1"}

// Locator names the document to show: either a durable URL or a resource
// identifier that must be exchanged for a signed URL. URL wins when both are
// set.
type Locator struct {
	URL        string
	ResourceID string
}

func (l Locator) empty() bool {
	return l.URL == "" && l.ResourceID == ""
}

// Options wires a session to its collaborators.
type Options struct {
	Provider  SecureURLProvider
	Renderer  DocumentRenderer
	Host      Host
	Scheduler Scheduler

	RefreshInterval    time.Duration
	CredentialLifetime time.Duration
	TrustedHosts       []string

	// Padding is subtracted from the container width before scaling. Zero
	// means DefaultPadding; a negative value means no padding.
	Padding int

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Host == nil {
		o.Host = StaticHost{}
	}
	if o.Scheduler == nil {
		o.Scheduler = NewCronScheduler(o.Logger)
	}
	if o.TrustedHosts == nil {
		o.TrustedHosts = DefaultTrustedHosts
	}
	switch {
	case o.Padding == 0:
		o.Padding = DefaultPadding
	case o.Padding < 0:
		o.Padding = 0
	}
	if o.CredentialLifetime <= 0 {
		o.CredentialLifetime = DefaultCredentialLifetime
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.RefreshInterval >= o.CredentialLifetime {
		o.Logger.Warn("Refresh interval is not shorter than the credential lifetime, using defaults",
			"refresh_interval", o.RefreshInterval,
			"credential_lifetime", o.CredentialLifetime)
		o.RefreshInterval = DefaultRefreshInterval
		o.CredentialLifetime = DefaultCredentialLifetime
	}
	return o
}

// trusted reports whether host is a local development host.
func (o Options) trusted(host string) bool {
	return slices.Contains(o.TrustedHosts, strings.ToLower(host))
}
