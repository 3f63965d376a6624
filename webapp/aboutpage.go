package webapp

import (
	"context"
	"fmt"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	a.fetchAboutInfo(ctx)
}

// fetchAboutInfo fetches the about information from the API
func (a *AboutPage) fetchAboutInfo(ctx app.Context) {
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var info AboutInfo
		_, err := fetchJSON(reqCtx, BuildAPIURL("/api/about"), &info)
		ctx.Dispatch(func(ctx app.Context) {
			if err != nil {
				a.error = err.Error()
			} else {
				a.aboutInfo = info
			}
			a.loading = false
		})
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About gonotes"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About gonotes"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About gonotes"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", a.aboutInfo.Version),
					a.renderInfoItem("Mode", a.getModeDisplay()),
					a.renderInfoItem("Server Rendering", a.getRendererStatus()),
					a.renderInfoItem("Note Registry", a.getRegistryDisplay()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Secure File Links"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Link Lifetime: "),
						app.Text(a.aboutInfo.URLLifetime),
					),
					app.P().Body(
						app.Strong().Text("Viewer Refresh Interval: "),
						app.Text(a.aboutInfo.RefreshInterval),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Document Storage"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Attachment Path: "),
						app.Text(a.aboutInfo.DocumentPath),
					),
				),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getModeDisplay describes how file links are issued
func (a *AboutPage) getModeDisplay() string {
	if a.aboutInfo.Debug {
		return "Development (unsigned links)"
	}
	return "Production (signed links)"
}

// getRendererStatus returns the server renderer as a user-friendly string
func (a *AboutPage) getRendererStatus() string {
	if !a.aboutInfo.ServerRendering {
		return "Disabled"
	}
	switch a.aboutInfo.Renderer {
	case "fitz", "mupdf":
		return "MuPDF"
	default:
		return "PDFium"
	}
}

// getRegistryDisplay describes where note attachments are looked up
func (a *AboutPage) getRegistryDisplay() string {
	if a.aboutInfo.Database == "" || a.aboutInfo.Database == "none" {
		return "File names only"
	}
	return fmt.Sprintf("%s (%d notes)", a.aboutInfo.Database, a.aboutInfo.Notes)
}
