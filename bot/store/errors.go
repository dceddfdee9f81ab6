// bot/store/errors.go
package store

import "github.com/cockroachdb/errors"

// Store-level outcomes the service layer translates into its own errors.
var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("document already exists")
)
