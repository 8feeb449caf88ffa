// README: Identifier type shared by all modules and its generator.
package types

import (
	"encoding/hex"

	"github.com/google/uuid"
)

type ID string

// NewID returns a random 32-char lowercase hex identifier.
func NewID() ID {
	u := uuid.New()
	return ID(hex.EncodeToString(u[:]))
}

func (id ID) String() string { return string(id) }

// Ptr returns a pointer to a copy of id, or nil when id is empty.
func (id ID) Ptr() *ID {
	if id == "" {
		return nil
	}
	v := id
	return &v
}
