package webapp

import (
	"strings"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// notePathPrefix is where note pages live: /notes/{id}
const notePathPrefix = "/notes/"

// noteIDFromPath extracts the note id from a /notes/{id} path
func noteIDFromPath(path string) string {
	if !strings.HasPrefix(path, notePathPrefix) {
		return ""
	}
	id := strings.TrimPrefix(path, notePathPrefix)
	id, _, _ = strings.Cut(id, "/")
	return id
}

// NotePage shows a note's PDF attachment. A ?url= query parameter loads a
// document directly instead of asking for a signed URL.
type NotePage struct {
	app.Compo
	noteID string
	url    string
}

// OnMount is called when the component is mounted
func (n *NotePage) OnMount(ctx app.Context) {
	n.readLocation()
}

// OnNav is called when navigation occurs
func (n *NotePage) OnNav(ctx app.Context) {
	n.readLocation()
}

func (n *NotePage) readLocation() {
	u := app.Window().URL()
	n.noteID = noteIDFromPath(u.Path)
	n.url = u.Query().Get("url")
}

// Render renders the note page
func (n *NotePage) Render() app.UI {
	title := "Note"
	if n.noteID != "" {
		title = "Note " + n.noteID
	}
	return app.Div().Class("note-page").Body(
		app.H2().Text(title),
		app.If(n.noteID != "" || n.url != "", func() app.UI {
			return &DocumentViewer{NoteID: n.noteID, URL: n.url}
		}).Else(func() app.UI {
			return app.Div().Class("loading").Text("Loading PDF...")
		}),
	)
}
