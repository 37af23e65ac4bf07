package app

import "errors"

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidEmail       = errors.New("invalid email")
	// ErrDiagramNotFound covers both unknown ids and ids owned by someone
	// else; callers must not be able to distinguish the two.
	ErrDiagramNotFound = errors.New("diagram not found")
	// ErrNoSourceFile means the diagram has no archived source document,
	// either because it was not generated from an upload or because object
	// storage is not configured.
	ErrNoSourceFile = errors.New("no source file for diagram")
)
