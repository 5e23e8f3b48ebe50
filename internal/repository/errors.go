package repository

import "errors"

// ErrDuplicate is returned by Create methods when the storage layer rejects
// a row that violates a natural-key unique constraint. Callers racing on
// lookup-then-create treat it as "row now exists, re-read".
var ErrDuplicate = errors.New("duplicate row")
