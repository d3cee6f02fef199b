package castrove

import "github.com/google/uuid"

// GenerateID generates a random ID with the given prefix, e.g. "wf-4f9a1c2e".
func GenerateID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}
