package xid

import "github.com/google/uuid"

// New returns a prefixed random identifier such as "inv-3f1c0a2e-...".
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
