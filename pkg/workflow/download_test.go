// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/ingest-wizard/pkg/backend"
)

// staticDownloader writes body, then fails with err when set.
type staticDownloader struct {
	body string
	err  error
}

func (d staticDownloader) Download(_ context.Context, _ string, w io.Writer) (int64, error) {
	n, werr := io.WriteString(w, d.body)
	if d.err != nil {
		return int64(n), d.err
	}
	return int64(n), werr
}

func TestSaveReplacesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

	n, err := Save(context.Background(), staticDownloader{body: "id,name\n1,a\n"}, "report.csv", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "id,name\n1,a\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")
}

func TestSaveFailureKeepsExistingFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(dest, []byte("precious local data"), 0o644))

	failing := staticDownloader{body: "id,na", err: &backend.APIError{Status: 404, Message: "File not found"}}
	_, err := Save(context.Background(), failing, "report.csv", dest)
	require.EqualError(t, err, "File not found")

	data, err := os.ReadFile(dest)
	require.NoError(t, err, "a failed download must not delete the existing file")
	assert.Equal(t, "precious local data", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the partial download is removed")
}

func TestDownloadToCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports", "2024")

	path, n, err := DownloadTo(context.Background(), staticDownloader{body: "x"}, "nested/events.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "events.csv"), path)
	assert.Equal(t, int64(1), n)

	_, _, err = DownloadTo(context.Background(), staticDownloader{err: os.ErrDeadlineExceeded}, "missing.csv", dir)
	require.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "missing.csv"))
	assert.True(t, os.IsNotExist(statErr))
}
