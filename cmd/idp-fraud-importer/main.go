// idp-fraud-importer Lambda imports one IdP fraud-data CSV per S3 notification.
package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	awslambda "github.com/aws/aws-lambda-go/lambda"

	"github.com/JonMunkholm/event-recorder/internal/app"
	"github.com/JonMunkholm/event-recorder/internal/core"
	"github.com/JonMunkholm/event-recorder/internal/storage"
)

// service connects once per execution environment. A failed cold start is
// retried on the next invocation.
var service = app.NewLazy(newService)

func newService(ctx context.Context) (*core.Service, error) {
	d, err := app.Init(ctx)
	if err != nil {
		return nil, err
	}
	svc, err := core.NewService(d.Store, d.Objects, d.Config.Import)
	if err != nil {
		d.Close()
		return nil, err
	}
	return svc, nil
}

type objectImporter interface {
	ImportObject(ctx context.Context, bucket, key string) (*core.ImportResult, error)
}

// handleS3Event imports the object named by the first record.
func handleS3Event(ctx context.Context, imp objectImporter, ev events.S3Event) (*core.ImportResult, error) {
	ref, err := storage.FirstObject(ev)
	if err != nil {
		return nil, err
	}
	return imp.ImportObject(ctx, ref.Bucket, ref.Key)
}

func handler(ctx context.Context, ev events.S3Event) (*core.ImportResult, error) {
	s, err := service.Get(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	return handleS3Event(ctx, s, ev)
}

func main() {
	awslambda.Start(handler)
}
