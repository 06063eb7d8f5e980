package recorder

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/logging"
)

// maxLineSize bounds a single export line.
const maxLineSize = 16 << 20

// ExportSource reads and removes export files.
type ExportSource interface {
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, core.ObjectInfo, error)
	Delete(ctx context.Context, bucket, key string) error
}

// ImportSummary counts the lines of one export file.
type ImportSummary struct {
	Lines  int
	Failed int
}

// Importer loads newline-delimited export files of {"document": event}.
type Importer struct {
	source   ExportSource
	recorder *Recorder
	logger   *slog.Logger
}

func NewImporter(source ExportSource, rec *Recorder, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{source: source, recorder: rec, logger: logger}
}

// ImportObject records every line of the file and then deletes it. A line
// that cannot be stored is logged and skipped. Billing and fraud rows are
// written only for events whose audit row is new.
func (i *Importer) ImportObject(ctx context.Context, bucket, key string) (ImportSummary, error) {
	logger := logging.Enrich(ctx, i.logger).With("bucket", bucket, "key", key)
	var summary ImportSummary

	body, _, err := i.source.Open(ctx, bucket, key)
	if err != nil {
		return summary, fmt.Errorf("opening %s/%s: %w", bucket, key, err)
	}
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		lineNo++

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		summary.Lines++

		event, err := ParseImportLine(line)
		if err == nil {
			err = i.recorder.Record(ctx, logger, event, true)
		}
		if err != nil {
			summary.Failed++
			logger.Error("Failed to store message", "error", err, "line", lineNo)
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("reading %s/%s: %w", bucket, key, err)
	}

	if err := i.source.Delete(ctx, bucket, key); err != nil {
		return summary, fmt.Errorf("deleting %s/%s: %w", bucket, key, err)
	}
	logger.Info("Imported export file", "lines", summary.Lines, "failed", summary.Failed)
	return summary, nil
}
