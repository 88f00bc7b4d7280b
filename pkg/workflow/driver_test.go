// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

package workflow

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// fakeBackend records the last request of each kind and returns canned results.
type fakeBackend struct {
	err error

	conn    backend.ConnectionConfig
	columns backend.ColumnsRequest
	preview backend.PreviewRequest
	ingest  backend.IngestRequest
	path    string
}

func (f *fakeBackend) Connect(_ context.Context, cfg backend.ConnectionConfig) error {
	f.conn = cfg
	return f.err
}

func (f *fakeBackend) ListTables(_ context.Context, cfg backend.ConnectionConfig) ([]string, error) {
	f.conn = cfg
	return []string{"events", "users"}, f.err
}

func (f *fakeBackend) UploadFile(_ context.Context, path string) (backend.UploadResult, error) {
	f.path = path
	return backend.UploadResult{Filename: "upload_1_data.csv", Size: 42}, f.err
}

func (f *fakeBackend) ListColumns(_ context.Context, in backend.ColumnsRequest) ([]string, error) {
	f.columns = in
	return []string{"id", "name"}, f.err
}

func (f *fakeBackend) Preview(_ context.Context, in backend.PreviewRequest) (*backend.PreviewResponse, error) {
	f.preview = in
	if f.err != nil {
		return nil, f.err
	}
	return &backend.PreviewResponse{
		Columns: []string{"id", "name"},
		Rows:    []map[string]any{{"id": "1", "name": nil}},
	}, nil
}

func (f *fakeBackend) StartIngestion(_ context.Context, in backend.IngestRequest) (*backend.IngestResponse, error) {
	f.ingest = in
	if f.err != nil {
		return nil, f.err
	}
	return &backend.IngestResponse{Success: true, Message: "done", Filename: "out.csv", RecordCount: 7}, nil
}

func dbRequest(op wizard.Op) wizard.Request {
	return wizard.Request{
		Op:         op,
		Source:     wizard.KindDatabase,
		Target:     wizard.KindFlatFile,
		Connection: wizard.ConnectionConfig{Host: "h", Port: "8123", Database: "d", User: "u", Token: "secret-token"},
		FlatFile:   wizard.FlatFileConfig{Delimiter: "tab", OutputName: "out.csv"},
		Table:      "events",
		Columns:    []string{"id"},
	}
}

func TestExecuteOutcomes(t *testing.T) {
	fb := &fakeBackend{}
	d := NewDriver(fb, nil)
	ctx := context.Background()

	assert.Equal(t, wizard.ConnectSucceeded{}, d.Execute(ctx, dbRequest(wizard.OpConnect)))
	assert.Equal(t, "secret-token", fb.conn.Token)

	assert.Equal(t, wizard.TablesLoaded{Tables: []string{"events", "users"}}, d.Execute(ctx, dbRequest(wizard.OpListTables)))

	assert.Equal(t, wizard.ColumnsLoaded{Columns: []string{"id", "name"}}, d.Execute(ctx, dbRequest(wizard.OpListColumns)))
	require.NotNil(t, fb.columns.ClickHouse)
	assert.Equal(t, "events", fb.columns.TableName)
	assert.Empty(t, fb.columns.Filename)

	assert.Equal(t, wizard.PreviewLoaded{
		Columns: []string{"id", "name"},
		Rows:    [][]string{{"1", ""}},
	}, d.Execute(ctx, dbRequest(wizard.OpPreview)))
	assert.Equal(t, []string{"id"}, fb.preview.Columns)
	assert.Nil(t, fb.preview.FlatFile)

	assert.Equal(t, wizard.IngestSucceeded{Message: "done", Filename: "out.csv", RecordCount: 7}, d.Execute(ctx, dbRequest(wizard.OpIngest)))
	assert.Equal(t, "clickhouse", fb.ingest.SourceType)
	assert.Equal(t, "flatfile", fb.ingest.TargetType)
	assert.Equal(t, "events", fb.ingest.TableName)
	assert.Empty(t, fb.ingest.TargetTableName)
	require.NotNil(t, fb.ingest.FlatFile)
	assert.Equal(t, "out.csv", fb.ingest.FlatFile.OutputFilename)
	assert.Equal(t, "tab", fb.ingest.FlatFile.Delimiter)
}

func TestExecuteFlatFileRequests(t *testing.T) {
	fb := &fakeBackend{}
	d := NewDriver(fb, nil)
	ctx := context.Background()

	req := wizard.Request{
		Source:      wizard.KindFlatFile,
		Target:      wizard.KindDatabase,
		Connection:  wizard.ConnectionConfig{Host: "h", Port: "1", Database: "d"},
		FlatFile:    wizard.FlatFileConfig{Filename: "upload_1_data.csv", Delimiter: "comma"},
		TargetTable: "imported",
		Columns:     []string{"id", "name"},
		Path:        "/tmp/data.csv",
	}

	req.Op = wizard.OpUpload
	assert.Equal(t, wizard.UploadSucceeded{Filename: "upload_1_data.csv", Size: 42}, d.Execute(ctx, req))
	assert.Equal(t, "/tmp/data.csv", fb.path)

	req.Op = wizard.OpListColumns
	d.Execute(ctx, req)
	assert.Nil(t, fb.columns.ClickHouse)
	assert.Equal(t, "upload_1_data.csv", fb.columns.Filename)
	assert.Equal(t, "comma", fb.columns.Delimiter)

	req.Op = wizard.OpPreview
	d.Execute(ctx, req)
	require.NotNil(t, fb.preview.FlatFile)
	assert.Equal(t, "upload_1_data.csv", fb.preview.Filename)
	assert.Equal(t, "upload_1_data.csv", fb.preview.FlatFile.Filename)

	req.Op = wizard.OpIngest
	d.Execute(ctx, req)
	assert.Equal(t, "flatfile", fb.ingest.SourceType)
	assert.Equal(t, "clickhouse", fb.ingest.TargetType)
	assert.Equal(t, "imported", fb.ingest.TargetTableName)
	assert.Empty(t, fb.ingest.TableName)
	require.NotNil(t, fb.ingest.ClickHouse)
	require.NotNil(t, fb.ingest.FlatFile)
}

func TestExecuteFailures(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantMessage   string
		wantTransport bool
	}{
		{
			name:        "backend reported",
			err:         &backend.APIError{Endpoint: backend.ConnectPath, Status: 200, Message: "Authentication failed"},
			wantMessage: "Authentication failed",
		},
		{
			name:          "transport",
			err:           &backend.TransportError{Endpoint: backend.ConnectPath, Err: errors.New("connection refused")},
			wantMessage:   "connection refused",
			wantTransport: true,
		},
		{
			name:          "local",
			err:           errors.New("open data.csv: no such file or directory"),
			wantMessage:   "open data.csv: no such file or directory",
			wantTransport: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDriver(&fakeBackend{err: tt.err}, nil)
			got := d.Execute(context.Background(), dbRequest(wizard.OpConnect))
			assert.Equal(t, wizard.RequestFailed{
				Op:        wizard.OpConnect,
				Message:   tt.wantMessage,
				Transport: tt.wantTransport,
			}, got)
		})
	}
}

func TestExecuteNeverLogsToken(t *testing.T) {
	var buf bytes.Buffer
	d := NewDriver(&fakeBackend{}, log.New(&buf))
	d.Execute(context.Background(), dbRequest(wizard.OpConnect))
	assert.Contains(t, buf.String(), "request started")
	assert.Contains(t, buf.String(), "op=connect")
	assert.NotContains(t, buf.String(), "secret-token")
}
