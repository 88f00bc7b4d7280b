package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL + "/")
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("")
	assert.Equal(t, DefaultBaseURL, c.BaseURL())
	assert.Zero(t, c.httpClient.Timeout)

	c = NewClient("http://backend:9000/", WithTimeout(5*time.Second))
	assert.Equal(t, "http://backend:9000", c.BaseURL())
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestConnect(t *testing.T) {
	var got ConnectionConfig
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, ConnectPath, r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Connection successful"})
	})

	cfg := ConnectionConfig{Host: "localhost", Port: "8123", Database: "default", User: "default", Token: "secret"}
	require.NoError(t, c.Connect(context.Background(), cfg))
	assert.Equal(t, cfg, got)
}

func TestConnectFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantMsg   string
		transport bool
	}{
		{name: "success false", status: 200, body: `{"success": false, "error": "Authentication failed"}`, wantMsg: "Authentication failed"},
		{name: "missing success", status: 200, body: `{}`, wantMsg: "Unknown error"},
		{name: "server error", status: 500, body: `{"error": "boom"}`, wantMsg: "boom"},
		{name: "server error without reason", status: 502, body: `{}`, wantMsg: "Bad Gateway"},
		{name: "not json", status: 200, body: `<html>`, transport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			err := c.Connect(context.Background(), ConnectionConfig{})
			require.Error(t, err)
			assert.Equal(t, tt.transport, IsTransport(err))
			if !tt.transport {
				var ae *APIError
				require.ErrorAs(t, err, &ae)
				assert.Equal(t, tt.wantMsg, ae.Message)
				assert.Equal(t, tt.status, ae.Status)
				assert.Equal(t, ConnectPath, ae.Endpoint)
			}
		})
	}
}

func TestTransportErrorWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url).ListTables(context.Background(), ConnectionConfig{})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.NotEmpty(t, Message(err))
}

func TestListTables(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, TablesPath, r.URL.Path)
		writeJSON(w, http.StatusOK, map[string]any{"tables": []string{"events", "users"}})
	})
	tables, err := c.ListTables(context.Background(), ConnectionConfig{Host: "h"})
	require.NoError(t, err)
	assert.Equal(t, []string{"events", "users"}, tables)
}

func TestListColumns(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"columns": []string{"id", "name"}})
	})

	cols, err := c.ListColumns(context.Background(), ColumnsRequest{
		SourceType: "flatfile",
		Filename:   "upload_1.csv",
		Delimiter:  "comma",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, cols)
	assert.Equal(t, "flatfile", got["sourceType"])
	assert.Equal(t, "upload_1.csv", got["filename"])
	assert.NotContains(t, got, "clickhouseConfig")
	assert.NotContains(t, got, "tableName")
}

func TestPreview(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"columns": ["id", "name", "score"],
			"previewData": [
				{"name": "alice", "id": 12345678901234567890, "score": 1.5},
				{"id": 2, "name": null}
			]
		}`)
	})

	p, err := c.Preview(context.Background(), PreviewRequest{SourceType: "clickhouse", Columns: []string{"id", "name", "score"}})
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"12345678901234567890", "alice", "1.5"},
		{"2", "", ""},
	}, p.Table())
}

func TestPreviewFallsBackToRequestedColumns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"previewData": [{"b": "x", "a": true}]}`)
	})
	p, err := c.Preview(context.Background(), PreviewRequest{Columns: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, p.Columns)
	assert.Equal(t, [][]string{{"true", "x"}}, p.Table())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "abc", FormatValue("abc"))
	assert.Equal(t, "42", FormatValue(json.Number("42")))
	assert.Equal(t, "false", FormatValue(false))
	assert.Equal(t, `[1,2]`, FormatValue([]any{json.Number("1"), json.Number("2")}))
	assert.Equal(t, `{"k":"v"}`, FormatValue(map[string]any{"k": "v"}))
}

func TestExpandToken(t *testing.T) {
	t.Setenv("TEST_BACKEND_TOKEN", "from-env")

	assert.Equal(t, "from-env", ExpandToken("${TEST_BACKEND_TOKEN}"))
	assert.Equal(t, "", ExpandToken("${TEST_BACKEND_UNSET}"))
	for _, literal := range []string{"pa$$w0rd$x", "$TEST_BACKEND_TOKEN", "x${TEST_BACKEND_TOKEN}", "${}", "${1ABC}", "${TEST BACKEND}", ""} {
		assert.Equal(t, literal, ExpandToken(literal))
	}
}

func TestStartIngestion(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, IngestPath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     "Exported 1000 rows",
			"filename":    "export.csv",
			"recordCount": 1000,
		})
	})

	res, err := c.StartIngestion(context.Background(), IngestRequest{
		SourceType: "clickhouse",
		TargetType: "flatfile",
		Columns:    []string{"id"},
		ClickHouse: &ConnectionConfig{Host: "h", Port: "8123", Database: "d"},
		FlatFile:   &FlatFileConfig{Delimiter: "comma", OutputFilename: "export.csv"},
		TableName:  "events",
	})
	require.NoError(t, err)
	assert.Equal(t, "Exported 1000 rows", res.Message)
	assert.Equal(t, "export.csv", res.Filename)
	assert.EqualValues(t, 1000, res.RecordCount)

	assert.Equal(t, "clickhouse", got["sourceType"])
	assert.Equal(t, "flatfile", got["targetType"])
	assert.Equal(t, "events", got["tableName"])
	assert.NotContains(t, got, "targetTableName")
	ff := got["flatfileConfig"].(map[string]any)
	assert.Equal(t, "export.csv", ff["outputFilename"])
}

func TestStartIngestionFailure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Table not found"})
	})
	_, err := c.StartIngestion(context.Background(), IngestRequest{})
	require.Error(t, err)
	assert.False(t, IsTransport(err))
	assert.Equal(t, "Table not found", Message(err))
}

func TestUploadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "people.csv")
	content := []byte("id,name\n1,alice\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, UploadPath, r.URL.Path)
		f, hdr, err := r.FormFile("flatFile")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "people.csv", hdr.Filename)
		got, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, content, got)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "filename": "upload_42_people.csv"})
	})

	res, err := c.UploadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "upload_42_people.csv", res.Filename)
	assert.EqualValues(t, len(content), res.Size)
}

func TestUploadRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "error": "File type not allowed"})
	})
	_, err := c.Upload(context.Background(), "a.csv", bytes.NewReader([]byte("x")))
	require.Error(t, err)
	assert.Equal(t, "File type not allowed", Message(err))
}

func TestUploadFileMissing(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	_, err := c.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestDownload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/download/my export.csv":
			_, _ = io.WriteString(w, "id\n1\n")
		default:
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "File not found"})
		}
	})

	var buf bytes.Buffer
	n, err := c.Download(context.Background(), "my export.csv", &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	assert.Equal(t, "id\n1\n", buf.String())

	_, err = c.Download(context.Background(), "missing.csv", io.Discard)
	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.True(t, ae.NotFound())
	assert.Equal(t, "File not found", ae.Message)

	_, err = c.Download(context.Background(), "", io.Discard)
	assert.Error(t, err)
}

func TestDownloadURL(t *testing.T) {
	c := NewClient("http://localhost:8000")
	assert.Equal(t, "http://localhost:8000/download/a%20b.csv", c.DownloadURL("a b.csv"))
}

func TestContextCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Connect(ctx, ConnectionConfig{})
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.ErrorIs(t, err, context.Canceled)
}
