package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/JonMunkholm/event-recorder/internal/logging"
)

// SQSAPI is the subset of the SQS client used by Consumer.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer drains the hub event queue.
type Consumer struct {
	client    SQSAPI
	queueURL  string
	waitTime  time.Duration
	decrypter *Decrypter
	recorder  *Recorder
	logger    *slog.Logger
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithWaitTime enables long polling for up to d per receive.
func WithWaitTime(d time.Duration) ConsumerOption {
	return func(c *Consumer) { c.waitTime = d }
}

// WithConsumerLogger sets the base logger (default slog.Default()).
func WithConsumerLogger(l *slog.Logger) ConsumerOption {
	return func(c *Consumer) { c.logger = l }
}

func NewConsumer(client SQSAPI, queueURL string, decrypter *Decrypter, rec *Recorder, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		client:    client,
		queueURL:  queueURL,
		decrypter: decrypter,
		recorder:  rec,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Drain receives and stores one message at a time until the queue is empty.
// A message that cannot be stored is logged and left on the queue; the
// returned count includes it. Errors are returned only when the queue
// itself cannot be read.
func (c *Consumer) Drain(ctx context.Context) (int, error) {
	logger := logging.Enrich(ctx, c.logger)

	count := 0
	for {
		if err := ctx.Err(); err != nil {
			return count, err
		}

		msg, ok, err := c.receive(ctx)
		if err != nil {
			return count, fmt.Errorf("receiving from queue: %w", err)
		}
		if !ok {
			logger.Info(fmt.Sprintf("Queue is empty - finishing after %d events", count))
			return count, nil
		}
		count++

		if err := c.handle(ctx, logger, msg); err != nil {
			logger.Error("Failed to store message", "error", err, "message_id", aws.ToString(msg.MessageId))
		}
	}
}

func (c *Consumer) receive(ctx context.Context) (types.Message, bool, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(c.waitTime / time.Second),
	})
	if err != nil {
		return types.Message{}, false, err
	}
	if len(out.Messages) == 0 {
		return types.Message{}, false, nil
	}
	return out.Messages[0], true, nil
}

func (c *Consumer) handle(ctx context.Context, logger *slog.Logger, msg types.Message) error {
	plain, err := c.decrypter.Decrypt(aws.ToString(msg.Body))
	if err != nil {
		return err
	}
	event, err := ParseEvent(plain)
	if err != nil {
		return err
	}
	logger.Info("Decrypted event with ID: " + event.EventID)

	if err := c.recorder.Record(ctx, logger, event, false); err != nil {
		return err
	}

	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	}); err != nil {
		return fmt.Errorf("deleting message %s: %w", event.EventID, err)
	}
	logger.Info("Deleted event from queue with ID: " + event.EventID)
	return nil
}
