package testutil

import (
	"strings"

	"github.com/google/uuid"
)

// RandomTargetID returns a unique target id with the given prefix.
func RandomTargetID(prefix string) string {
	return prefix + "-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
