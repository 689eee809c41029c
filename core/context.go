package core

import "context"

// Context keys for edit options
type contextKey string

const (
	editSourceKey contextKey = "editSource"
)

// Edit sources recorded on log lines.
const (
	sourceUser      = "user"
	sourceRecompute = "recompute"
)

// withEditSource tags edits issued under ctx with their origin
func withEditSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, editSourceKey, source)
}

// editSource returns the origin of an edit from context
func editSource(ctx context.Context) string {
	val := ctx.Value(editSourceKey)
	if val == nil {
		return sourceUser // default: direct edit
	}
	source, ok := val.(string)
	if !ok || source == "" {
		return sourceUser
	}
	return source
}
