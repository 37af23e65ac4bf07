package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"diagramai/internal/util"
	"diagramai/pkg/ai"
	"diagramai/pkg/auth"
	"diagramai/pkg/diagram"
	"diagramai/pkg/domain"
	"diagramai/pkg/extract"
	"diagramai/pkg/history"
	"diagramai/pkg/render"
	"diagramai/pkg/storage"
	"diagramai/pkg/store"
)

// sourceURLExpiry bounds how long a presigned source download link stays
// valid.
const sourceURLExpiry = 15 * time.Minute

// Config wires the application core's collaborators. Store, Sessions,
// Generator and Renderer are required; Objects is optional (without it
// uploaded source files are processed but not archived).
type Config struct {
	Store     store.Store
	Sessions  store.SessionStore
	Generator ai.TextGenerator
	Renderer  render.Renderer
	Objects   storage.ObjectStore
}

// App is the application core: it runs the generation pipeline, persists
// diagram records, and serves history and render requests. All session
// state is explicit; there are no hidden globals.
type App struct {
	store     store.Store
	sessions  store.SessionStore
	objects   storage.ObjectStore
	pipeline  *diagram.Pipeline
	renderer  render.Renderer
	extractor *extract.Extractor
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	return &App{
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		objects:   cfg.Objects,
		pipeline:  diagram.NewPipeline(cfg.Generator),
		renderer:  cfg.Renderer,
		extractor: extract.New(),
	}, nil
}

// SignUp registers a user and opens a session.
func (a *App) SignUp(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return domain.User{}, "", ErrInvalidEmail
	}
	taken, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("check email: %w", err)
	}
	if taken {
		return domain.User{}, "", ErrEmailTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, "", err
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           "u_" + util.NewID(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.SaveUser(ctx, user); err != nil {
		return domain.User{}, "", fmt.Errorf("save user: %w", err)
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Login authenticates a user and opens a session.
func (a *App) Login(ctx context.Context, email, password string) (domain.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("open session: %w", err)
	}
	return user, token, nil
}

// Logout closes the session. Stateless session backends treat this as a
// no-op.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserByToken resolves a session token to its user.
func (a *App) UserByToken(ctx context.Context, token string) (domain.User, bool) {
	userID, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, ok, err := a.store.GetUserByID(ctx, userID)
	if err != nil || !ok {
		return domain.User{}, false
	}
	return user, true
}

// GenerateFromPrompt runs the pipeline on a free-text prompt and persists
// the result.
func (a *App) GenerateFromPrompt(ctx context.Context, user domain.User, prompt string, kind domain.DiagramKind) (domain.Diagram, error) {
	d, err := a.pipeline.FromPrompt(ctx, user.ID, prompt, kind)
	if err != nil {
		return domain.Diagram{}, err
	}
	if err := a.store.SaveDiagram(ctx, d); err != nil {
		return domain.Diagram{}, fmt.Errorf("save diagram: %w", err)
	}
	return d, nil
}

// GenerateFromDataset runs the pipeline on tabular rows and persists the
// result.
func (a *App) GenerateFromDataset(ctx context.Context, user domain.User, req diagram.DatasetRequest) (domain.Diagram, error) {
	d, err := a.pipeline.FromDataset(ctx, user.ID, req)
	if err != nil {
		return domain.Diagram{}, err
	}
	if err := a.store.SaveDiagram(ctx, d); err != nil {
		return domain.Diagram{}, fmt.Errorf("save diagram: %w", err)
	}
	return d, nil
}

// GenerateFromDocument stores the uploaded source file, extracts its text,
// and runs the document pipeline (always a mind map). The stored object is
// removed again when persisting the record fails.
func (a *App) GenerateFromDocument(ctx context.Context, user domain.User, filename string, r io.Reader) (domain.Diagram, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.Diagram{}, fmt.Errorf("read upload: %w", err)
	}

	storageKey := ""
	if a.objects != nil {
		storageKey = buildStorageKey(user.ID, filename)
		contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		if err := a.objects.Put(ctx, storageKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			return domain.Diagram{}, fmt.Errorf("store source file: %w", err)
		}
	}

	text, err := a.extractor.FromReader(filename, bytes.NewReader(data))
	if err != nil {
		a.removeObject(ctx, storageKey)
		return domain.Diagram{}, fmt.Errorf("extract text: %w", err)
	}
	d, err := a.pipeline.FromDocument(ctx, user.ID, filename, text)
	if err != nil {
		a.removeObject(ctx, storageKey)
		return domain.Diagram{}, err
	}
	d.SourceKey = storageKey
	if err := a.store.SaveDiagram(ctx, d); err != nil {
		a.removeObject(ctx, storageKey)
		return domain.Diagram{}, fmt.Errorf("save diagram: %w", err)
	}
	return d, nil
}

// ListDiagrams returns the user's filtered history, newest-first.
func (a *App) ListDiagrams(ctx context.Context, user domain.User, search string, kind domain.DiagramKind) ([]domain.Diagram, error) {
	records, err := a.store.ListDiagramsByOwner(ctx, user.ID, history.MaxRecords)
	if err != nil {
		return nil, fmt.Errorf("list diagrams: %w", err)
	}
	return history.Filter(records, search, kind), nil
}

// GetDiagram returns one of the user's diagrams.
func (a *App) GetDiagram(ctx context.Context, user domain.User, id string) (domain.Diagram, error) {
	d, ok, err := a.store.GetDiagram(ctx, id)
	if err != nil {
		return domain.Diagram{}, fmt.Errorf("get diagram: %w", err)
	}
	if !ok || d.OwnerID != user.ID {
		return domain.Diagram{}, ErrDiagramNotFound
	}
	return d, nil
}

// DeleteDiagram removes one of the user's diagrams along with its stored
// source file.
func (a *App) DeleteDiagram(ctx context.Context, user domain.User, id string) error {
	d, ok, err := a.store.GetDiagram(ctx, id)
	if err != nil {
		return fmt.Errorf("get diagram: %w", err)
	}
	if !ok || d.OwnerID != user.ID {
		return ErrDiagramNotFound
	}
	if err := a.store.DeleteDiagram(ctx, user.ID, id); err != nil {
		if err == store.ErrNotFound {
			return ErrDiagramNotFound
		}
		return fmt.Errorf("delete diagram: %w", err)
	}
	a.removeObject(ctx, d.SourceKey)
	return nil
}

// RenderDiagram renders one of the user's diagrams through the adapter. The
// adapter guarantees a displayable result; render syntax problems never
// surface as errors.
func (a *App) RenderDiagram(ctx context.Context, user domain.User, id string) (render.Result, error) {
	d, err := a.GetDiagram(ctx, user, id)
	if err != nil {
		return render.Result{}, err
	}
	adapter := render.NewAdapter(a.renderer)
	return adapter.Show(ctx, d.Kind, d.Description), nil
}

// SourceDownloadURL returns a time-limited download URL for the uploaded
// document a diagram was generated from.
func (a *App) SourceDownloadURL(ctx context.Context, user domain.User, id string) (string, error) {
	d, err := a.GetDiagram(ctx, user, id)
	if err != nil {
		return "", err
	}
	if d.SourceKey == "" || a.objects == nil {
		return "", ErrNoSourceFile
	}
	url, err := a.objects.PresignGet(ctx, d.SourceKey, sourceURLExpiry)
	if err != nil {
		return "", fmt.Errorf("presign source file: %w", err)
	}
	return url, nil
}

func (a *App) removeObject(ctx context.Context, key string) {
	if a.objects == nil || key == "" {
		return
	}
	if err := a.objects.Delete(ctx, key); err != nil {
		util.LoggerFromContext(ctx).Warn("remove source object", "key", key, "err", err)
	}
}

func buildStorageKey(userID, filename string) string {
	return fmt.Sprintf("sources/%s/%s_%s", userID, util.NewID(), filepath.Base(filename))
}
