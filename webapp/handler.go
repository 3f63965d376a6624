package webapp

import (
	"net/http"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// RegisterRoutes registers the client-side routes. All of them use the App
// component, which includes navbar/sidebar.
func RegisterRoutes() {
	app.Route("/", func() app.Composer { return &App{} })
	app.Route("/about", func() app.Composer { return &App{} })
	app.RouteWithRegexp("^/notes/[^/]+/?$", func() app.Composer { return &App{} })
}

// Handler returns an HTTP handler for the web app
func Handler() http.Handler {
	RegisterRoutes()
	app.RunWhenOnBrowser()

	// wasm_exec.js is served at /wasm_exec.js by Echo
	// app.wasm is served from /web/app.wasm by Echo
	return &app.Handler{
		Name:        "gonotes",
		Title:       "gonotes",
		Description: "Notes with secure PDF attachments",
		Icon: app.Icon{
			Default: "/favicon.ico",
		},
		Styles: []string{
			"/webapp/webapp.css",
		},
		Scripts: []string{
			"/config.js", // Load backend API configuration
			pdfjsScript,
		},
		RawHeaders: []string{
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
	}
}
