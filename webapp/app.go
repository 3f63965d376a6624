package webapp

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// App is the root component of the application
type App struct {
	app.Compo
}

// Render renders the app
func (a *App) Render() app.UI {
	return app.Div().
		Class("app-container").
		Body(
			app.Header().Body(
				&NavBar{},
			),
			app.Div().Class("app-layout").Body(
				&Sidebar{},
				app.Main().Class("main-content").Body(
					app.Div().Class("content").Body(
						a.renderPage(),
					),
				),
			),
		)
}

// renderPage renders the current page based on the route
func (a *App) renderPage() app.UI {
	return pageFor(app.Window().URL().Path)
}

// pageFor picks the page component for path
func pageFor(path string) app.UI {
	switch {
	case path == "/":
		return &HomePage{}
	case path == "/about":
		return &AboutPage{}
	case strings.HasPrefix(path, notePathPrefix) && noteIDFromPath(path) != "":
		return &NotePage{}
	default:
		return &NotFoundPage{}
	}
}
