/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// FilesystemStorage implements Storage using the local filesystem.
type FilesystemStorage struct {
	rootDir string
	logger  zerolog.Logger
}

// NewFilesystemStorage creates a filesystem-based storage backend.
func NewFilesystemStorage(rootDir string, logger zerolog.Logger) *FilesystemStorage {
	return &FilesystemStorage{
		rootDir: rootDir,
		logger:  logger,
	}
}

// Store saves a file under the media root and returns its relative path.
func (fs *FilesystemStorage) Store(ctx context.Context, key string, file io.Reader) (string, error) {
	fullPath := filepath.Join(fs.rootDir, key)

	if err := os.MkdirAll(fs.rootDir, 0755); err != nil {
		return "", fmt.Errorf("create media root: %w", err)
	}

	dest, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, file); err != nil {
		os.Remove(fullPath) // Clean up on failure
		return "", fmt.Errorf("write file: %w", err)
	}

	fs.logger.Debug().
		Str("path", fullPath).
		Str("key", key).
		Msg("filesystem storage: file stored")

	// Return the relative key for database storage; the media root is
	// joined again when reading or deleting.
	return key, nil
}

// Delete removes a file from the filesystem. Missing files are not an error.
func (fs *FilesystemStorage) Delete(ctx context.Context, path string) error {
	fullPath := filepath.Join(fs.rootDir, path)
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}

	fs.logger.Debug().Str("path", fullPath).Msg("filesystem storage: file deleted")
	return nil
}

// URL returns the local filesystem path.
func (fs *FilesystemStorage) URL(path string) string {
	return filepath.Join(fs.rootDir, path)
}

// CheckAccess verifies the storage directory exists or can be created.
func (fs *FilesystemStorage) CheckAccess(ctx context.Context) error {
	if err := os.MkdirAll(fs.rootDir, 0755); err != nil {
		return fmt.Errorf("cannot create media root: %w", err)
	}
	info, err := os.Stat(fs.rootDir)
	if err != nil {
		return fmt.Errorf("cannot access media root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("media root is not a directory: %s", fs.rootDir)
	}
	return nil
}
