package backend

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ConnectionConfig is the ClickHouse connection payload.
type ConnectionConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Token    string `json:"token"`
}

// ExpandToken resolves a token written as exactly ${NAME} to the value of the
// environment variable NAME. Anything else is a literal token, dollar signs
// included, and is returned unchanged.
func ExpandToken(s string) string {
	name, ok := strings.CutPrefix(s, "${")
	if !ok {
		return s
	}
	name, ok = strings.CutSuffix(name, "}")
	if !ok || !validEnvName(name) {
		return s
	}
	return os.Getenv(name)
}

func validEnvName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// FlatFileConfig is the flat file payload used by preview and ingestion.
type FlatFileConfig struct {
	Filename       string `json:"filename"`
	Delimiter      string `json:"delimiter"`
	OutputFilename string `json:"outputFilename"`
}

// ColumnsRequest is the body of /get_columns.
type ColumnsRequest struct {
	SourceType string            `json:"sourceType"`
	ClickHouse *ConnectionConfig `json:"clickhouseConfig,omitempty"`
	TableName  string            `json:"tableName,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	Delimiter  string            `json:"delimiter,omitempty"`
}

// PreviewRequest is the body of /preview_data. Flat file sources carry the
// file both at the top level and as flatfileConfig.
type PreviewRequest struct {
	SourceType string            `json:"sourceType"`
	Columns    []string          `json:"columns"`
	ClickHouse *ConnectionConfig `json:"clickhouseConfig,omitempty"`
	FlatFile   *FlatFileConfig   `json:"flatfileConfig,omitempty"`
	TableName  string            `json:"tableName,omitempty"`
	Filename   string            `json:"filename,omitempty"`
	Delimiter  string            `json:"delimiter,omitempty"`
}

// PreviewResponse is the body returned by /preview_data.
type PreviewResponse struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"previewData"`
}

// Table returns the rows as cells ordered by Columns. Missing and null
// values become empty cells.
func (p PreviewResponse) Table() [][]string {
	out := make([][]string, 0, len(p.Rows))
	for _, row := range p.Rows {
		cells := make([]string, len(p.Columns))
		for i, col := range p.Columns {
			cells[i] = FormatValue(row[col])
		}
		out = append(out, cells)
	}
	return out
}

// FormatValue renders a decoded JSON value as a table cell.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool, float64:
		return fmt.Sprint(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// IngestRequest is the body of /start_ingestion.
type IngestRequest struct {
	SourceType      string            `json:"sourceType"`
	TargetType      string            `json:"targetType"`
	Columns         []string          `json:"columns"`
	ClickHouse      *ConnectionConfig `json:"clickhouseConfig,omitempty"`
	FlatFile        *FlatFileConfig   `json:"flatfileConfig,omitempty"`
	TableName       string            `json:"tableName,omitempty"`
	TargetTableName string            `json:"targetTableName,omitempty"`
}

// IngestResponse is the body returned by a successful /start_ingestion.
type IngestResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Filename    string `json:"filename,omitempty"`
	RecordCount int64  `json:"recordCount,omitempty"`
}

// UploadResult is the outcome of an upload.
type UploadResult struct {
	Filename string
	Size     int64
}

// envelope holds the fields every backend response may carry.
type envelope struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}
