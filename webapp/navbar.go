package webapp

import (
	"context"
	"fmt"
	"time"

	"github.com/drummonds/gonotes/internal/build"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// BuildDate can be set at build time with -ldflags
var BuildDate = ""

// healthInterval is how often the navbar checks the backend
const healthInterval = 30 * time.Second

// NavBar is the navigation bar component
type NavBar struct {
	app.Compo
	serverDown    bool
	refreshTicker *time.Ticker
}

// Render renders the navigation bar
func (n *NavBar) Render() app.UI {
	return app.Nav().
		Class("navbar").
		Body(
			app.Button().
				Class("hamburger-menu").
				ID("menu-toggle").
				OnClick(n.onMenuToggle).
				Body(
					// Three horizontal lines for hamburger menu
					app.Span().Class("hamburger-line"),
					app.Span().Class("hamburger-line"),
					app.Span().Class("hamburger-line"),
				),
			app.Div().Class("navbar-brand").Body(
				app.H1().Text("gonotes"),
				app.Span().Class("version-info").Body(
					app.Text(n.getVersionInfo()),
				),
			),
			app.Div().Class("navbar-menu").Body(
				app.A().
					Href("/").
					Class("navbar-item").
					Body(app.Text("Home")),
				app.A().
					Href("/about").
					Class("navbar-item").
					Body(app.Text("About")),
			),
		)
}

// onMenuToggle handles the hamburger menu click
func (n *NavBar) onMenuToggle(ctx app.Context, e app.Event) {
	ctx.Dispatch(func(ctx app.Context) {
		ctx.LocalStorage().Set("sidebar-open", !n.isSidebarOpen(ctx))
		ctx.Reload()
	})
}

// isSidebarOpen checks if the sidebar is currently open
func (n *NavBar) isSidebarOpen(ctx app.Context) bool {
	var isOpen bool
	ctx.LocalStorage().Get("sidebar-open", &isOpen)
	return isOpen
}

// OnMount is called when the component is mounted
func (n *NavBar) OnMount(ctx app.Context) {
	n.checkHealth(ctx)

	ctx.Async(func() {
		n.refreshTicker = time.NewTicker(healthInterval)
		for range n.refreshTicker.C {
			n.checkHealth(ctx)
		}
	})
}

// OnDismount is called when the component is unmounted
func (n *NavBar) OnDismount() {
	if n.refreshTicker != nil {
		n.refreshTicker.Stop()
	}
}

// getVersionInfo returns formatted version and date information with server status
func (n *NavBar) getVersionInfo() string {
	date := BuildDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	status := ""
	if n.serverDown {
		status = " | server unreachable"
	}
	return fmt.Sprintf("%s | %s%s", build.Version, date, status)
}

// checkHealth polls /api/health
func (n *NavBar) checkHealth(ctx app.Context) {
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		var body map[string]string
		status, err := fetchJSON(reqCtx, BuildAPIURL("/api/health"), &body)
		down := err != nil || status != 200 || body["status"] != "ok"
		ctx.Dispatch(func(ctx app.Context) {
			n.serverDown = down
		})
	})
}
