package api

import (
	"context"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"

	"github.com/vrsandeep/readme-console/internal/console"
	"github.com/vrsandeep/readme-console/internal/models"
)

// maxUploadMemory is how much of a multipart upload is held in memory;
// the rest spills to temporary files.
const maxUploadMemory = 32 << 20

type indexPage struct {
	Panel console.Panel
}

// handleIndex serves the console page with the current state pre-rendered.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	c := getConsoleFromContext(r)
	page := indexPage{Panel: console.View(c.Snapshot())}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.ExecuteTemplate(w, "index.html", page); err != nil {
		log.Printf("Error rendering console page: %v", err)
	}
}

// handleGenerate starts a submission cycle from the posted form and returns
// immediately; progress and the result arrive over the websocket.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	c := getConsoleFromContext(r)

	in, err := readSubmission(r)
	if err != nil {
		log.Printf("Console %s: invalid submission: %v", c.ID(), err)
		RespondWithError(w, http.StatusBadRequest, "Invalid form data")
		return
	}

	// The cycle outlives this request.
	c.Start(context.WithoutCancel(r.Context()), in)
	RespondWithJSON(w, http.StatusAccepted, c.Snapshot())
}

// readSubmission collects the optional file and repository URL. Neither is
// validated; an empty form is a valid submission.
func readSubmission(r *http.Request) (models.SubmissionInput, error) {
	err := r.ParseMultipartForm(maxUploadMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return models.SubmissionInput{}, err
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	in := models.SubmissionInput{RepoURL: r.FormValue("repo_url")}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return models.SubmissionInput{}, err
		}
		in.File = &models.Upload{Name: header.Filename, Data: data}
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return models.SubmissionInput{}, err
	}
	return in, nil
}

func (s *Server) handleGetConsole(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, getConsoleFromContext(r).Snapshot())
}

// handleGetPanel returns the console output area as an HTML fragment.
func (s *Server) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	c := getConsoleFromContext(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := console.RenderPanel(w, console.View(c.Snapshot())); err != nil {
		log.Printf("Console %s: error rendering panel: %v", c.ID(), err)
	}
}

// handleDownload serves the generated document as README.md.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	artifact, err := getConsoleFromContext(r).Download()
	if errors.Is(err, console.ErrNoDocument) {
		RespondWithError(w, http.StatusNotFound, "No README has been generated yet")
		return
	}
	if err != nil {
		RespondWithError(w, http.StatusInternalServerError, "Could not prepare download")
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Name}))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Data)
}

// handleConsoleWs attaches a websocket to the browser's console and sends
// the current state first.
func (s *Server) handleConsoleWs(w http.ResponseWriter, r *http.Request) {
	c := getConsoleFromContext(r)
	s.app.WsHub().ServeWs(w, r, c.ID(), console.Update(c.Snapshot()))
}
