// event-recorder Lambda drains the encrypted audit event queue into the
// audit and billing schemas. It is invoked on a schedule and stops when the
// queue is empty.
package main

import (
	"context"
	"fmt"
	"log/slog"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/JonMunkholm/event-recorder/internal/app"
	"github.com/JonMunkholm/event-recorder/internal/recorder"
)

var consumer = app.NewLazy(newConsumer)

func newConsumer(ctx context.Context) (_ *recorder.Consumer, err error) {
	d, err := app.Init(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()
	cfg := d.Config
	if err := cfg.ValidateQueue(); err != nil {
		return nil, fmt.Errorf("queue config: %w", err)
	}

	key, err := d.Secrets.ContentKey(ctx, cfg.Queue)
	if err != nil {
		return nil, err
	}
	decrypter, err := recorder.NewDecrypter(key)
	if err != nil {
		return nil, err
	}
	slog.Info("Created connection to DB")

	return recorder.NewConsumer(
		sqs.NewFromConfig(d.AWS),
		cfg.Queue.URL,
		decrypter,
		recorder.New(d.Store),
		recorder.WithWaitTime(cfg.Queue.WaitTime),
	), nil
}

type drainer interface {
	Drain(ctx context.Context) (int, error)
}

type drainResult struct {
	Events int `json:"events"`
}

func handleDrain(ctx context.Context, d drainer) (drainResult, error) {
	n, err := d.Drain(ctx)
	return drainResult{Events: n}, err
}

func handler(ctx context.Context) (drainResult, error) {
	c, err := consumer.Get(context.WithoutCancel(ctx))
	if err != nil {
		return drainResult{}, err
	}
	return handleDrain(ctx, c)
}

func main() {
	awslambda.Start(handler)
}
