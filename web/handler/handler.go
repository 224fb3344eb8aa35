package handler

import (
	"embed"
	"errors"
	"html/template"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"svsp-upload/internal/protocol"
	"svsp-upload/internal/ui"
	"svsp-upload/internal/upload"
)

//go:embed templates/*
var templates embed.FS

type PageData struct {
	State upload.State
	Color string

	// Idle and Uploading are applied in the browser when a file is picked
	// and when the form is submitted.
	Idle      StatusView
	Uploading StatusView
}

type StatusView struct {
	Status  upload.Status
	Message string
	Color   string
}

func viewOf(status upload.Status, message string) StatusView {
	return StatusView{Status: status, Message: message, Color: ui.Color(status)}
}

// Handler serves the upload page and forwards submitted files through a
// fresh upload.Form per request.
type Handler struct {
	poster upload.Poster
	tmpl   *template.Template
	logger *log.Logger
}

func New(poster upload.Poster, logger *log.Logger) (*Handler, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{poster: poster, tmpl: tmpl, logger: logger}, nil
}

// Router wires the gateway routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(Logger(h.logger))
	r.HandleFunc("/", h.Index).Methods(http.MethodGet)
	r.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	return r
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, upload.State{Status: upload.Idle})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	form := upload.NewForm(h.poster, h.logger)

	fh, err := formFile(r)
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}
	if err != nil {
		// A broken body is a failed upload, not a missing selection.
		h.logger.Printf("Reading form file: %v", err)
		h.render(w, http.StatusBadRequest, upload.State{Status: upload.Error, Message: upload.MsgFailure})
		return
	}
	if fh != nil {
		form.Select(upload.FromFileHeader(fh))
	}

	err = form.Submit(r.Context())
	status := http.StatusOK
	switch {
	case errors.Is(err, upload.ErrNoFile):
		status = http.StatusBadRequest
	case err != nil:
		status = http.StatusBadGateway
	}
	h.render(w, status, form.State())
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// formFile returns the first file in the FieldName part, or nil when the
// request carries none.
func formFile(r *http.Request) (*multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(protocol.MaxMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, err
	}
	files := r.MultipartForm.File[protocol.FieldName]
	if len(files) == 0 {
		return nil, nil
	}
	return files[0], nil
}

func (h *Handler) render(w http.ResponseWriter, status int, st upload.State) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	data := PageData{
		State:     st,
		Color:     ui.Color(st.Status),
		Idle:      viewOf(upload.Idle, ""),
		Uploading: viewOf(upload.Uploading, upload.MsgUploading),
	}
	if err := h.tmpl.ExecuteTemplate(w, "index.html", data); err != nil {
		h.logger.Printf("Template error: %v", err)
	}
}
