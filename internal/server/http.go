package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"diagramai/pkg/domain"
)

// request/response bodies

type authRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type promptRequest struct {
	Prompt string             `json:"prompt"`
	Kind   domain.DiagramKind `json:"kind"`
}

type renderResponse struct {
	State        string  `json:"state"`
	ContentType  string  `json:"contentType"`
	Artifact     string  `json:"artifact"`
	Zoom         float64 `json:"zoom"`
	FailedSource string  `json:"failedSource,omitempty"`
	Message      string  `json:"message,omitempty"`
}

// helpers

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

// splitDiagramPath parses /api/diagrams/{id} and its subresources
// (/api/diagrams/{id}/render, /api/diagrams/{id}/source).
func splitDiagramPath(path string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, "/api/diagrams/")
	if rest == "" || rest == path {
		return "", "", false
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch len(parts) {
	case 1:
		return parts[0], "", parts[0] != ""
	case 2:
		return parts[0], parts[1], parts[0] != "" && parts[1] != ""
	default:
		return "", "", false
	}
}
