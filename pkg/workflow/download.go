// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Downloader fetches files produced by an ingestion.
type Downloader interface {
	Download(ctx context.Context, filename string, w io.Writer) (int64, error)
}

// DownloadTo saves the exported file into dir and returns its local path.
func DownloadTo(ctx context.Context, d Downloader, filename, dir string) (string, int64, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("create download directory: %w", err)
	}
	dest := filepath.Join(dir, filepath.Base(filename))
	n, err := Save(ctx, d, filename, dest)
	return dest, n, err
}

// Save writes the exported file to dest. The download goes to a temporary
// file next to dest, which replaces dest only once the download succeeds; a
// failed download leaves any existing file at dest untouched.
func Save(ctx context.Context, d Downloader, filename, dest string) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return 0, err
	}
	n, err := d.Download(ctx, filename, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		// CreateTemp makes the file private; exports get the usual mode.
		err = os.Chmod(tmp.Name(), 0o644)
	}
	if err == nil {
		err = os.Rename(tmp.Name(), dest)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return 0, err
	}
	return n, nil
}
