// Package identity turns volatile catalog keys into stable ledger ids.
//
// The derived id is the join key between the external catalog and every
// stored score and interaction counter. Changing the hash orphans all of
// them, so Algorithm is exported and pinned by tests.
package identity

import (
	"crypto/md5" //nolint:gosec // identifier derivation, not a security boundary
	"strings"

	"github.com/google/uuid"
)

// Algorithm names the digest behind DeriveID.
const Algorithm = "md5"

// DeriveID maps an external key to a 128-bit id. The digest bytes are used
// verbatim; no UUID version or variant bits are rewritten.
func DeriveID(externalKey string) uuid.UUID {
	sum := md5.Sum([]byte(externalKey)) //nolint:gosec // see package doc
	return uuid.UUID(sum)
}

// NormalizeKey trims whitespace that catalog exports tend to carry around
// numeric ids. Callers apply it before DeriveID; DeriveID never does.
func NormalizeKey(key string) string {
	return strings.TrimSpace(key)
}
