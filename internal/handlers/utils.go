package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/wikistore/cosbackend/types"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string           `json:"error"`
	Kind  types.StatusKind `json:"kind,omitempty"`
}

func subjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return "", errors.New("missing subject")
	}
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeStatus renders a failed backend status with the matching HTTP code.
func writeStatus(w http.ResponseWriter, status types.Status) {
	code := http.StatusInternalServerError
	switch status.Kind {
	case types.StatusInvalid:
		code = http.StatusBadRequest
	case types.StatusExists:
		code = http.StatusConflict
	case types.StatusRemote, types.StatusUpload:
		code = http.StatusBadGateway
	}
	writeJSON(w, code, ErrorResponse{Error: status.Message, Kind: status.Kind})
}

func queryBool(r *http.Request, name string) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
