package uuidutil

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// UUID returns a random identifier rendered as 32 hex characters.
func UUID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}
