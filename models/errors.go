// models/errors.go
package models

import "errors"

// Error categories for pipeline failures. Stage errors wrap one of these so
// callers can classify with errors.Is; nothing is retried or recovered.
var (
	ErrNetwork    = errors.New("network error")
	ErrArchive    = errors.New("archive error")
	ErrSchema     = errors.New("schema error")
	ErrFilesystem = errors.New("filesystem error")
)
