package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/wikistore/cosbackend/internal/backend"
	"github.com/wikistore/cosbackend/types"
)

const maxUploadBytes = 5 << 30

// Timeouts bound request contexts. Transfer covers the routes that move
// object bodies (store and content), Request covers everything else.
type Timeouts struct {
	Request  time.Duration
	Transfer time.Duration
}

// DefaultTimeouts matches the server's read and write timeouts for transfers.
var DefaultTimeouts = Timeouts{
	Request:  60 * time.Second,
	Transfer: 15 * time.Minute,
}

// FilesHandler exposes a FileBackend over HTTP.
type FilesHandler struct {
	backend backend.FileBackend
	tmpDir  string
	log     zerolog.Logger
}

// NewFilesHandler constructs a FilesHandler. Uploads are spooled in tmpDir.
func NewFilesHandler(fb backend.FileBackend, tmpDir string, log zerolog.Logger) *FilesHandler {
	return &FilesHandler{
		backend: fb,
		tmpDir:  tmpDir,
		log:     log.With().Str("component", "files-handler").Logger(),
	}
}

// FilesRouter registers file routes on the given router.
func FilesRouter(
	r chi.Router,
	fb backend.FileBackend,
	tmpDir string,
	log zerolog.Logger,
	authMiddleware func(http.Handler) http.Handler,
	timeouts Timeouts,
) {
	handler := NewFilesHandler(fb, tmpDir, log)
	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeouts.Transfer))
		r.Get("/content", handler.Content)
		r.Put("/", handler.Store)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeouts.Request))
		r.Get("/stat", handler.Stat)
		r.Post("/create", handler.Create)
		r.Post("/copy", handler.Copy)
		r.Delete("/", handler.Delete)
		r.Get("/list", handler.ListFiles)
		r.Get("/dirs", handler.ListDirectories)
		r.Get("/dir-exists", handler.DirectoryExists)
	})
}

// CreateRequest writes inline content to Dst.
type CreateRequest struct {
	Dst     string `json:"dst"`
	Content string `json:"content"`
}

// CopyRequest copies Src to Dst inside the bucket.
type CopyRequest struct {
	Src                 string `json:"src"`
	Dst                 string `json:"dst"`
	IgnoreMissingSource bool   `json:"ignore_missing_source"`
}

// StatResponse describes a stored object.
type StatResponse struct {
	Path     string            `json:"path"`
	Size     int64             `json:"size"`
	MTime    string            `json:"mtime"`
	SHA1     string            `json:"sha1,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ListResponse carries a listing.
type ListResponse struct {
	Items []string `json:"items"`
}

// Stat returns the stat record of ?path=.
func (h *FilesHandler) Stat(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}
	stat, found := h.backend.Stat(r.Context(), path)
	if !found {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	writeJSON(w, http.StatusOK, StatResponse{
		Path:     path,
		Size:     stat.Size,
		MTime:    stat.MTime,
		SHA1:     stat.SHA1,
		Metadata: stat.Metadata,
	})
}

// Content streams the object at ?path= through a local copy.
func (h *FilesHandler) Content(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}
	copies := h.backend.FetchLocalCopies(r.Context(), []string{path})
	if len(copies) == 0 || !copies[0].Available() {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	local := copies[0]
	defer func() {
		if err := local.Remove(); err != nil {
			h.log.Warn().Err(err).Str("path", local.Path).Msg("failed to remove local copy")
		}
	}()

	f, err := os.Open(local.Path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read local copy")
		return
	}
	defer f.Close()

	contentType := "application/octet-stream"
	if mt, err := mimetype.DetectReader(f); err == nil {
		contentType = mt.String()
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read local copy")
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(local.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		h.log.Warn().Err(err).Str("path", path).Msg("content stream interrupted")
	}
}

// Store spools the request body to disk and uploads it to ?path= with
// integrity metadata.
func (h *FilesHandler) Store(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}

	tmp, err := os.CreateTemp(h.tmpDir, "upload_*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to spool upload")
		return
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, http.MaxBytesReader(w, r.Body, maxUploadBytes))
	closeErr := tmp.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if closeErr != nil {
		writeError(w, http.StatusInternalServerError, "failed to spool upload")
		return
	}

	status := h.backend.Store(r.Context(), types.OpParams{
		Src:       tmp.Name(),
		Dst:       path,
		Overwrite: queryBool(r, "overwrite"),
	})
	if !status.OK() {
		writeStatus(w, status)
		return
	}
	h.logWrite(r, "store", path)
	w.WriteHeader(http.StatusNoContent)
}

// Create writes the JSON-provided content to dst.
func (h *FilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Dst = strings.TrimSpace(req.Dst)
	if req.Dst == "" {
		writeError(w, http.StatusBadRequest, "missing dst")
		return
	}

	status := h.backend.Create(r.Context(), types.OpParams{Dst: req.Dst, Content: []byte(req.Content)})
	if !status.OK() {
		writeStatus(w, status)
		return
	}
	h.logWrite(r, "create", req.Dst)
	w.WriteHeader(http.StatusNoContent)
}

// Copy performs a server-side copy.
func (h *FilesHandler) Copy(w http.ResponseWriter, r *http.Request) {
	var req CopyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Src = strings.TrimSpace(req.Src)
	req.Dst = strings.TrimSpace(req.Dst)
	if req.Src == "" || req.Dst == "" {
		writeError(w, http.StatusBadRequest, "missing src or dst")
		return
	}

	status := h.backend.Copy(r.Context(), types.OpParams{
		Src:                 req.Src,
		Dst:                 req.Dst,
		IgnoreMissingSource: req.IgnoreMissingSource,
	})
	if !status.OK() {
		writeStatus(w, status)
		return
	}
	h.logWrite(r, "copy", req.Dst)
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes ?path=.
func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path, ok := requiredQuery(w, r, "path")
	if !ok {
		return
	}
	status := h.backend.Delete(r.Context(), types.OpParams{
		Src:                 path,
		IgnoreMissingSource: queryBool(r, "ignore_missing"),
	})
	if !status.OK() {
		writeStatus(w, status)
		return
	}
	h.logWrite(r, "delete", path)
	w.WriteHeader(http.StatusNoContent)
}

// ListFiles lists ?container= under ?dir=.
func (h *FilesHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	container, ok := requiredQuery(w, r, "container")
	if !ok {
		return
	}
	items, err := h.backend.ListFiles(r.Context(), container, r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: nonNil(items)})
}

// ListDirectories lists virtual directories; ?top=true limits to the first level.
func (h *FilesHandler) ListDirectories(w http.ResponseWriter, r *http.Request) {
	container, ok := requiredQuery(w, r, "container")
	if !ok {
		return
	}
	items, err := h.backend.ListDirectories(r.Context(), container, r.URL.Query().Get("dir"), queryBool(r, "top"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Items: nonNil(items)})
}

// DirectoryExists reports whether any object lives under ?dir=.
func (h *FilesHandler) DirectoryExists(w http.ResponseWriter, r *http.Request) {
	container, ok := requiredQuery(w, r, "container")
	if !ok {
		return
	}
	exists, err := h.backend.DirectoryExists(r.Context(), container, r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

func (h *FilesHandler) logWrite(r *http.Request, op, path string) {
	event := h.log.Info().Str("op", op).Str("path", path)
	if subject, err := subjectFromContext(r.Context()); err == nil {
		event = event.Str("subject", subject)
	}
	event.Msg("file operation")
}

func requiredQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := strings.TrimSpace(r.URL.Query().Get(name))
	if value == "" {
		writeError(w, http.StatusBadRequest, "missing "+name)
		return "", false
	}
	return value, true
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
