/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"io"
)

// Storage interface abstracts audio file storage operations.
type Storage interface {
	Store(ctx context.Context, key string, file io.Reader) (string, error)
	Delete(ctx context.Context, path string) error
	URL(path string) string
	CheckAccess(ctx context.Context) error
}
