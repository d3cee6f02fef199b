package store

import "github.com/castrove/castrove/internal/ideas"

// validateSelector compiles an idea selector expression to catch syntax and
// type errors before the workflow is persisted.
func validateSelector(expression string) error {
	_, err := ideas.CompileSelector(expression)
	return err
}
