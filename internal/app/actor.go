package app

import "github.com/manalBatta/MyHealthPalestine/internal/domain"

// Actor identifies the authenticated caller of a role-gated operation. It is
// extracted from the bearer token at the transport boundary.
type Actor struct {
	ID   string
	Role domain.Role
}
