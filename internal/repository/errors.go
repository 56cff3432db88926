// Package repository implements the persistence contracts consumed by the
// auth core: accounts and refresh tokens over MySQL, the access-token
// blacklist over Redis. Not-found conditions map onto the auth package's
// sentinel errors so callers never depend on database/sql directly.
package repository

import "errors"

// ErrUsernameExists is returned by Create when the username is taken.
// Handlers translate it into an HTTP 409.
var ErrUsernameExists = errors.New("username already exists")
