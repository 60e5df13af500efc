// Package runid generates filesystem-safe, sortable identifiers for
// script executions, async action handles and zap iterations, the same
// role oklog/ulid plays for the teacher's RunID.
package runid

import (
	"crypto/rand"
	"strings"

	"github.com/oklog/ulid/v2"
)

// New returns a new lowercase ULID string.
func New() (string, error) {
	id, err := ulid.New(ulid.Now(), rand.Reader)
	if err != nil {
		return "", err
	}
	return strings.ToLower(id.String()), nil
}

// MustNew panics if ULID generation fails (entropy source exhaustion),
// for call sites that have no sane error path (e.g. struct literals).
func MustNew() string {
	id, err := New()
	if err != nil {
		panic(err)
	}
	return id
}
