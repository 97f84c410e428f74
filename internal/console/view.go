package console

import (
	"bytes"
	"html/template"
	"io"
	"log"

	"github.com/vrsandeep/readme-console/internal/assets"
	"github.com/vrsandeep/readme-console/internal/models"
	"github.com/vrsandeep/readme-console/internal/render"
)

var panelTemplate = template.Must(template.ParseFS(assets.WebFS, "web/panel.html"))

// Panel is what the console output area displays for a snapshot.
type Panel struct {
	Busy bool
	// ShowLog is set while busy; Lines then holds the log or the placeholder.
	ShowLog bool
	Lines   []string
	Error   string
	// ShowDocument is set when there is a document and no error.
	ShowDocument bool
	DocumentHTML template.HTML
	Title        string
}

// View applies the rendering rules to a snapshot: the progress log while
// busy, the error whenever one is set, and otherwise the rendered document
// with a download control.
func View(s Snapshot) Panel {
	p := Panel{Busy: s.Busy, Error: s.Error}

	if s.Busy {
		p.ShowLog = true
		p.Lines = s.Log
		if len(p.Lines) == 0 {
			p.Lines = []string{PlaceholderLine}
		}
	}

	if s.Error == "" && s.Readme != "" {
		html, err := render.Markdown(s.Readme)
		if err != nil {
			log.Printf("Console %s: could not render document: %v", s.ConsoleID, err)
			html = template.HTML("<pre>" + template.HTMLEscapeString(s.Readme) + "</pre>")
		}
		p.ShowDocument = true
		p.DocumentHTML = html
		p.Title = render.Title(html)
	}
	return p
}

// RenderPanel writes the panel's HTML fragment.
func RenderPanel(w io.Writer, p Panel) error {
	return panelTemplate.ExecuteTemplate(w, "panel", p)
}

// PanelHTML renders the panel for s to a string.
func PanelHTML(s Snapshot) (string, error) {
	var buf bytes.Buffer
	if err := RenderPanel(&buf, View(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Update builds the message pushed to browsers for s.
func Update(s Snapshot) models.ConsoleUpdate {
	panel, err := PanelHTML(s)
	if err != nil {
		log.Printf("Console %s: could not render panel: %v", s.ConsoleID, err)
	}
	return models.ConsoleUpdate{
		ConsoleID: s.ConsoleID,
		Cycle:     s.Cycle,
		Busy:      s.Busy,
		LogLines:  len(s.Log),
		Error:     s.Error,
		HasReadme: s.Readme != "",
		Panel:     panel,
	}
}
