// Package repository implements the storage collaborator over MySQL
// using database/sql.  Single-entity lookups return (nil, nil) when no
// row matches so the service layer can map absence to its own sentinel
// errors without depending on driver error values.  Methods with a Tx
// suffix run inside a caller-owned transaction; the allocation unit of
// work in store.go is built from them.
package repository

import "errors"

// ErrEmailExists is returned when registering a user whose email is
// already taken.  Handlers translate it into an HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")
