package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// Connect tests the ClickHouse connection.
func (c *Client) Connect(ctx context.Context, cfg ConnectionConfig) error {
	return c.postJSON(ctx, ConnectPath, cfg, nil, true)
}

// ListTables returns the tables of the configured database.
func (c *Client) ListTables(ctx context.Context, cfg ConnectionConfig) ([]string, error) {
	var out struct {
		Tables []string `json:"tables"`
	}
	if err := c.postJSON(ctx, TablesPath, cfg, &out, false); err != nil {
		return nil, err
	}
	return out.Tables, nil
}

// ListColumns returns the column names of a table or an uploaded file.
func (c *Client) ListColumns(ctx context.Context, in ColumnsRequest) ([]string, error) {
	var out struct {
		Columns []string `json:"columns"`
	}
	if err := c.postJSON(ctx, ColumnsPath, in, &out, false); err != nil {
		return nil, err
	}
	return out.Columns, nil
}

// Preview returns the first rows of the selected columns.
func (c *Client) Preview(ctx context.Context, in PreviewRequest) (*PreviewResponse, error) {
	var out PreviewResponse
	if err := c.postJSON(ctx, PreviewPath, in, &out, false); err != nil {
		return nil, err
	}
	if len(out.Columns) == 0 {
		out.Columns = in.Columns
	}
	return &out, nil
}

// StartIngestion runs the transfer and waits for it to finish.
func (c *Client) StartIngestion(ctx context.Context, in IngestRequest) (*IngestResponse, error) {
	var out IngestResponse
	if err := c.postJSON(ctx, IngestPath, in, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Upload streams r to the backend as the multipart field "flatFile" and
// returns the server-assigned filename.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile(uploadField, name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		pr.Close()
		return "", &TransportError{Endpoint: UploadPath, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out struct {
		Filename string `json:"filename"`
	}
	if err := c.do(req, UploadPath, &out, true); err != nil {
		return "", err
	}
	if out.Filename == "" {
		return "", &APIError{Endpoint: UploadPath, Status: http.StatusOK, Message: "backend did not return a filename"}
	}
	return out.Filename, nil
}

// UploadFile uploads the file at path.
func (c *Client) UploadFile(ctx context.Context, path string) (UploadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return UploadResult{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return UploadResult{}, err
	}
	name, err := c.Upload(ctx, filepath.Base(path), f)
	if err != nil {
		return UploadResult{}, err
	}
	return UploadResult{Filename: name, Size: info.Size()}, nil
}

// DownloadURL returns the absolute URL of an exported file.
func (c *Client) DownloadURL(filename string) string {
	return c.baseURL + DownloadPath + url.PathEscape(filename)
}

// Download copies an exported file to w and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, filename string, w io.Writer) (int64, error) {
	if filename == "" {
		return 0, fmt.Errorf("filename is required")
	}
	path := DownloadPath + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return 0, &TransportError{Endpoint: path, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &TransportError{Endpoint: path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var env envelope
		msg := http.StatusText(resp.StatusCode)
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			msg = env.reason(resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound && env.Error == "" {
			msg = "File not found"
		}
		return 0, &APIError{Endpoint: path, Status: resp.StatusCode, Message: msg}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Endpoint: path, Err: err}
	}
	return n, nil
}
