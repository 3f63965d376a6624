package webapp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// HomePage lets the user open a note's attachment by note ID
type HomePage struct {
	app.Compo
	noteID string
	error  string
	recent []NoteSummary
}

// OnMount loads the recently registered notes
func (h *HomePage) OnMount(ctx app.Context) {
	ctx.Async(func() {
		reqCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var notes []NoteSummary
		if _, err := fetchJSON(reqCtx, BuildAPIURL("/api/notes"), &notes); err != nil {
			app.Log("Unable to load recent notes:", err)
			return
		}
		ctx.Dispatch(func(ctx app.Context) {
			h.recent = notes
		})
	})
}

// onInput keeps the typed note id
func (h *HomePage) onInput(ctx app.Context, e app.Event) {
	h.noteID = strings.TrimSpace(ctx.JSSrc().Get("value").String())
	h.error = ""
}

// onOpen navigates to the note page
func (h *HomePage) onOpen(ctx app.Context, e app.Event) {
	e.PreventDefault()
	if h.noteID == "" {
		h.error = "Enter a note ID"
		return
	}
	ctx.Navigate(notePathPrefix + h.noteID)
}

// Render renders the home page
func (h *HomePage) Render() app.UI {
	return app.Div().Class("home-page").Body(
		app.H2().Text("Open a note"),
		app.Form().Class("note-open-form").OnSubmit(h.onOpen).Body(
			app.Input().
				Type("text").
				Class("note-id-input").
				Placeholder("Note ID").
				Value(h.noteID).
				OnInput(h.onInput),
			app.Button().Type("submit").Text("Open"),
		),
		app.If(h.error != "", func() app.UI {
			return app.Div().Class("error").Text(h.error)
		}),
		app.If(len(h.recent) > 0, func() app.UI {
			return app.Div().Class("recent-notes").Body(
				app.H3().Text("Recent notes"),
				app.Ul().Body(
					app.Range(h.recent).Slice(func(i int) app.UI {
						note := h.recent[i]
						return app.Li().Body(
							app.A().Href(notePathPrefix + note.ID).Text(noteLabel(note)),
						)
					}),
				),
			)
		}),
	)
}

// noteLabel names a note by title when the attachment has one
func noteLabel(note NoteSummary) string {
	name := note.Title
	if name == "" {
		name = note.ID
	}
	return fmt.Sprintf("%s (%d pages)", name, note.Pages)
}
