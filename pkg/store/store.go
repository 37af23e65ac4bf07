package store

import (
	"context"
	"errors"

	"diagramai/pkg/domain"
)

// ErrNotFound indicates the requested diagram does not exist for the owner.
// A delete racing a not-yet-persisted generate resolves to this error; the
// later persist wins.
var ErrNotFound = errors.New("diagram not found")

// Store defines persistence operations for users and diagram records.
type Store interface {
	// users
	SaveUser(ctx context.Context, u domain.User) error
	HasUserEmail(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// diagrams
	SaveDiagram(ctx context.Context, d domain.Diagram) error
	ListDiagramsByOwner(ctx context.Context, ownerID string, limit int) ([]domain.Diagram, error)
	GetDiagram(ctx context.Context, id string) (domain.Diagram, bool, error)
	DeleteDiagram(ctx context.Context, ownerID, id string) error
}

// SessionStore persists session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
