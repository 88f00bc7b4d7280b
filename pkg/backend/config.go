package backend

// Endpoint paths of the ingestion backend.
// This file is the SINGLE SOURCE OF TRUTH for backend URLs.

const (
	// DefaultBaseURL is where the backend listens when nothing is configured.
	DefaultBaseURL = "http://localhost:8000"

	ConnectPath   = "/connect_clickhouse"
	TablesPath    = "/get_tables"
	UploadPath    = "/upload_flatfile"
	ColumnsPath   = "/get_columns"
	PreviewPath   = "/preview_data"
	IngestPath    = "/start_ingestion"
	DownloadPath  = "/download/"
	uploadField   = "flatFile"
	unknownReason = "Unknown error"
)
