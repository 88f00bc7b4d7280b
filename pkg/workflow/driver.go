// Copyright (C) ConfigHub, Inc.
// SPDX-License-Identifier: MIT

// Package workflow executes wizard requests against the backend and drives
// whole ingestion plans without a terminal UI.
package workflow

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/monadic/ingest-wizard/pkg/backend"
	"github.com/monadic/ingest-wizard/pkg/wizard"
)

// Backend is the subset of the backend client the driver calls.
type Backend interface {
	Connect(ctx context.Context, cfg backend.ConnectionConfig) error
	ListTables(ctx context.Context, cfg backend.ConnectionConfig) ([]string, error)
	UploadFile(ctx context.Context, path string) (backend.UploadResult, error)
	ListColumns(ctx context.Context, in backend.ColumnsRequest) ([]string, error)
	Preview(ctx context.Context, in backend.PreviewRequest) (*backend.PreviewResponse, error)
	StartIngestion(ctx context.Context, in backend.IngestRequest) (*backend.IngestResponse, error)
}

// Driver turns a wizard.Request into a backend call and the call's result
// into the outcome Action to dispatch next.
type Driver struct {
	backend Backend
	logger  *log.Logger
}

// NewDriver creates a driver. A nil logger discards log output.
func NewDriver(b Backend, logger *log.Logger) *Driver {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Driver{backend: b, logger: logger}
}

// Execute performs req and returns its outcome. It never returns nil: every
// failure becomes a wizard.RequestFailed.
func (d *Driver) Execute(ctx context.Context, req wizard.Request) wizard.Action {
	logger := d.logger.With("op", req.Op.String())
	logger.Info("request started", describe(req)...)
	start := time.Now()

	outcome, err := d.execute(ctx, req)
	if err != nil {
		failed := wizard.RequestFailed{
			Op:        req.Op,
			Message:   backend.Message(err),
			Transport: !isReported(err),
		}
		logger.Error("request failed", "err", err, "transport", failed.Transport, "elapsed", time.Since(start))
		return failed
	}
	logger.Info("request finished", "elapsed", time.Since(start))
	return outcome
}

func (d *Driver) execute(ctx context.Context, req wizard.Request) (wizard.Action, error) {
	switch req.Op {
	case wizard.OpConnect:
		if err := d.backend.Connect(ctx, connection(req)); err != nil {
			return nil, err
		}
		return wizard.ConnectSucceeded{}, nil

	case wizard.OpListTables:
		tables, err := d.backend.ListTables(ctx, connection(req))
		if err != nil {
			return nil, err
		}
		return wizard.TablesLoaded{Tables: tables}, nil

	case wizard.OpUpload:
		res, err := d.backend.UploadFile(ctx, req.Path)
		if err != nil {
			return nil, err
		}
		return wizard.UploadSucceeded{Filename: res.Filename, Size: res.Size}, nil

	case wizard.OpListColumns:
		cols, err := d.backend.ListColumns(ctx, columnsRequest(req))
		if err != nil {
			return nil, err
		}
		return wizard.ColumnsLoaded{Columns: cols}, nil

	case wizard.OpPreview:
		p, err := d.backend.Preview(ctx, previewRequest(req))
		if err != nil {
			return nil, err
		}
		return wizard.PreviewLoaded{Columns: p.Columns, Rows: p.Table()}, nil

	case wizard.OpIngest:
		res, err := d.backend.StartIngestion(ctx, ingestRequest(req))
		if err != nil {
			return nil, err
		}
		return wizard.IngestSucceeded{
			Message:     res.Message,
			Filename:    res.Filename,
			RecordCount: res.RecordCount,
		}, nil
	}
	return nil, errors.New("unsupported operation")
}

// isReported reports whether the backend itself answered with the failure.
func isReported(err error) bool {
	var ae *backend.APIError
	return errors.As(err, &ae)
}

// describe returns log fields for req. The token is never logged.
func describe(req wizard.Request) []any {
	fields := []any{"source", req.Source.String(), "target", req.Target.String()}
	if req.Source == wizard.KindDatabase || req.Target == wizard.KindDatabase {
		fields = append(fields, "host", req.Connection.Host, "database", req.Connection.Database)
	}
	if req.Table != "" {
		fields = append(fields, "table", req.Table)
	}
	if req.Path != "" {
		fields = append(fields, "path", req.Path)
	}
	if len(req.Columns) > 0 {
		fields = append(fields, "columns", len(req.Columns))
	}
	return fields
}

func connection(req wizard.Request) backend.ConnectionConfig {
	c := req.Connection
	return backend.ConnectionConfig{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		User:     c.User,
		Token:    c.Token,
	}
}

func flatFile(req wizard.Request) *backend.FlatFileConfig {
	return &backend.FlatFileConfig{
		Filename:       req.FlatFile.Filename,
		Delimiter:      req.FlatFile.Delimiter,
		OutputFilename: req.FlatFile.OutputName,
	}
}

func columnsRequest(req wizard.Request) backend.ColumnsRequest {
	out := backend.ColumnsRequest{SourceType: req.Source.String()}
	if req.Source == wizard.KindDatabase {
		conn := connection(req)
		out.ClickHouse = &conn
		out.TableName = req.Table
	} else {
		out.Filename = req.FlatFile.Filename
		out.Delimiter = req.FlatFile.Delimiter
	}
	return out
}

func previewRequest(req wizard.Request) backend.PreviewRequest {
	out := backend.PreviewRequest{
		SourceType: req.Source.String(),
		Columns:    req.Columns,
	}
	if req.Source == wizard.KindDatabase {
		conn := connection(req)
		out.ClickHouse = &conn
		out.TableName = req.Table
	} else {
		out.FlatFile = flatFile(req)
		out.Filename = req.FlatFile.Filename
		out.Delimiter = req.FlatFile.Delimiter
	}
	return out
}

func ingestRequest(req wizard.Request) backend.IngestRequest {
	out := backend.IngestRequest{
		SourceType: req.Source.String(),
		TargetType: req.Target.String(),
		Columns:    req.Columns,
	}
	if req.Source == wizard.KindDatabase || req.Target == wizard.KindDatabase {
		conn := connection(req)
		out.ClickHouse = &conn
	}
	if req.Source == wizard.KindFlatFile || req.Target == wizard.KindFlatFile {
		out.FlatFile = flatFile(req)
	}
	if req.Source == wizard.KindDatabase {
		out.TableName = req.Table
	}
	if req.Target == wizard.KindDatabase {
		out.TargetTableName = req.TargetTable
	}
	return out
}
