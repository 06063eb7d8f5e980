// event-importer Lambda loads exported audit event files (one
// {"document": event} per line) dropped into its bucket, then deletes them.
package main

import (
	"context"
	"errors"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/JonMunkholm/event-recorder/internal/app"
	"github.com/JonMunkholm/event-recorder/internal/logging"
	"github.com/JonMunkholm/event-recorder/internal/recorder"
	"github.com/JonMunkholm/event-recorder/internal/storage"
)

var importer = app.NewLazy(func(ctx context.Context) (*recorder.Importer, error) {
	d, err := app.Init(ctx)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("Created connection to DB")
	return recorder.NewImporter(d.Objects, recorder.New(d.Store), nil), nil
})

type fileImporter interface {
	ImportObject(ctx context.Context, bucket, key string) (recorder.ImportSummary, error)
}

type importResult struct {
	Files  int `json:"files"`
	Lines  int `json:"lines"`
	Failed int `json:"failed"`
}

// handleS3Event imports every file in the notification. A file that cannot
// be read is reported and left in place; the others still run.
func handleS3Event(ctx context.Context, imp fileImporter, ev events.S3Event) (importResult, error) {
	var res importResult
	refs, err := storage.Objects(ev)
	if err != nil {
		return res, err
	}

	var errs []error
	for _, ref := range refs {
		summary, err := imp.ImportObject(ctx, ref.Bucket, ref.Key)
		res.Lines += summary.Lines
		res.Failed += summary.Failed
		if err != nil {
			errs = append(errs, err)
			continue
		}
		res.Files++
	}

	logging.WithFields(ctx, "files", res.Files, "lines", res.Lines, "failed", res.Failed).
		Info("Finished importing export files")
	return res, errors.Join(errs...)
}

func handler(ctx context.Context, ev events.S3Event) (importResult, error) {
	imp, err := importer.Get(context.WithoutCancel(ctx))
	if err != nil {
		return importResult{}, err
	}
	return handleS3Event(ctx, imp, ev)
}

func main() {
	awslambda.Start(handler)
}
