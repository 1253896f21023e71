package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyExists  = errors.New("already exists")
	ErrSessionEnded   = errors.New("session has ended")
	ErrEmptyRecipe    = errors.New("recipe has no steps")
	ErrStepNumbering  = errors.New("recipe steps are not numbered 1..n")
	ErrNoRecipe       = errors.New("no recipe found in markup")
	ErrUnsupportedURL = errors.New("unsupported recipe URL")
)
