package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"diagramai/internal/app"
	"diagramai/internal/util"
	"diagramai/pkg/auth"
	"diagramai/pkg/diagram"
	"diagramai/pkg/domain"
)

const jsonBodyLimit = 1 << 20

// auth handlers

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, jsonBodyLimit)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req authRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, jsonBodyLimit)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, token, err := s.app.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.app.Logout(token); err != nil {
		util.LoggerFromContext(r.Context()).Warn("logout", "err", err)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, _ *http.Request, user domain.User) {
	writeJSON(w, http.StatusOK, user)
}

// diagram handlers

func (s *Server) handleDiagrams(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleListDiagrams(w, r, user)
	case http.MethodPost:
		s.handlePromptGenerate(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListDiagrams(w http.ResponseWriter, r *http.Request, user domain.User) {
	search := r.URL.Query().Get("search")
	kind := domain.DiagramKind(r.URL.Query().Get("kind"))
	records, err := s.app.ListDiagrams(r.Context(), user, search, kind)
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("list diagrams", "err", err)
		writeError(w, http.StatusInternalServerError, "could not load diagrams")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"diagrams": records})
}

func (s *Server) handlePromptGenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if !s.allowGenerate(w, r) {
		return
	}
	var req promptRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, jsonBodyLimit)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := s.app.GenerateFromPrompt(r.Context(), user, req.Prompt, req.Kind)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDatasetGenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowGenerate(w, r) {
		return
	}
	var req diagram.DatasetRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, jsonBodyLimit)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	d, err := s.app.GenerateFromDataset(r.Context(), user, req)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDocumentGenerate(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowGenerate(w, r) {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()
	if !s.extensionAllowed(header.Filename) {
		writeError(w, http.StatusBadRequest, "unsupported file type")
		return
	}
	d, err := s.app.GenerateFromDocument(r.Context(), user, header.Filename, file)
	if err != nil {
		writeGenerateError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDiagramByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	id, action, ok := splitDiagramPath(r.URL.Path)
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch {
	case action == "" && r.Method == http.MethodGet:
		d, err := s.app.GetDiagram(r.Context(), user, id)
		if err != nil {
			writeDiagramError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	case action == "" && r.Method == http.MethodDelete:
		if err := s.app.DeleteDiagram(r.Context(), user, id); err != nil {
			writeDiagramError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	case action == "source" && r.Method == http.MethodGet:
		url, err := s.app.SourceDownloadURL(r.Context(), user, id)
		if err != nil {
			if errors.Is(err, app.ErrNoSourceFile) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeDiagramError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	case action == "render" && r.Method == http.MethodPost:
		result, err := s.app.RenderDiagram(r.Context(), user, id)
		if err != nil {
			writeDiagramError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, renderResponse{
			State:        string(result.State),
			ContentType:  result.ContentType,
			Artifact:     string(result.Artifact),
			Zoom:         result.Zoom,
			FailedSource: result.FailedSource,
			Message:      result.Message,
		})
	default:
		methodNotAllowed(w)
	}
}

func writeDiagramError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, app.ErrDiagramNotFound) {
		writeError(w, http.StatusNotFound, "diagram not found")
		return
	}
	util.LoggerFromContext(r.Context()).Error("diagram request failed", "err", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		util.LoggerFromContext(r.Context()).Error("auth request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
