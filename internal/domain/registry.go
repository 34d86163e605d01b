package domain

import "context"

// EntityChecker answers "does this entity still exist" for one module's data.
type EntityChecker interface {
	EntityExists(ctx context.Context, id string) (bool, error)
}

// Registry fans an existence check across every domain repository. The orphan
// alarm sweep uses it to decide whether a live alarm still has an owner.
type Registry struct {
	checkers []EntityChecker
}

// NewRegistry builds a registry over the given checkers.
func NewRegistry(checkers ...EntityChecker) *Registry {
	return &Registry{checkers: checkers}
}

// AnyEntityExists reports whether any repository still holds the id.
func (r *Registry) AnyEntityExists(ctx context.Context, id string) (bool, error) {
	for _, checker := range r.checkers {
		exists, err := checker.EntityExists(ctx, id)
		if err != nil {
			return false, err
		}
		if exists {
			return true, nil
		}
	}
	return false, nil
}
