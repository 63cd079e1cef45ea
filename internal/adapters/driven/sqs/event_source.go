// Package sqs implements the EventSource port on top of S3 event
// notifications delivered through an SQS queue.
package sqs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/harborsearch/harbor-ingest/internal/core/domain"
	"github.com/harborsearch/harbor-ingest/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.EventSource = (*EventSource)(nil)

// sqsAPI is the subset of the SQS client used by the adapter
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *awssqs.ReceiveMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *awssqs.DeleteMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.DeleteMessageOutput, error)
}

// Config holds SQS connection configuration
type Config struct {
	QueueURL  string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string

	// MaxMessages per receive call, capped at 10 by SQS
	MaxMessages int32

	// WaitTime enables long polling
	WaitTime int32

	Logger *slog.Logger
}

// EventSource implements driven.EventSource using SQS long polling
type EventSource struct {
	client   sqsAPI
	queueURL string
	maxMsgs  int32
	waitTime int32
	logger   *slog.Logger
}

// NewEventSource creates an SQS-backed EventSource
func NewEventSource(ctx context.Context, cfg Config) (*EventSource, error) {
	if cfg.QueueURL == "" {
		return nil, &domain.ConfigurationError{Field: "queue_url", Reason: "must not be empty"}
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := awssqs.NewFromConfig(awsCfg, func(o *awssqs.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return newEventSource(client, cfg), nil
}

func newEventSource(client sqsAPI, cfg Config) *EventSource {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxMsgs := cfg.MaxMessages
	if maxMsgs <= 0 || maxMsgs > 10 {
		maxMsgs = 10
	}
	waitTime := cfg.WaitTime
	if waitTime < 0 || waitTime > 20 {
		waitTime = 20
	}
	return &EventSource{
		client:   client,
		queueURL: cfg.QueueURL,
		maxMsgs:  maxMsgs,
		waitTime: waitTime,
		logger:   logger,
	}
}

// s3Notification is the S3 event envelope delivered through SQS
type s3Notification struct {
	Event   string `json:"Event"`
	Records []struct {
		EventSource string `json:"eventSource"`
		EventName   string `json:"eventName"`
		S3          struct {
			Object struct {
				Key  string `json:"key"`
				Size int64  `json:"size"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// Pull receives a batch of messages and translates S3 notifications into
// change events. Test events and unparseable messages are deleted so they
// do not block the queue.
func (e *EventSource) Pull(ctx context.Context) ([]domain.ChangeEvent, error) {
	out, err := e.client.ReceiveMessage(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:            aws.String(e.queueURL),
		MaxNumberOfMessages: e.maxMsgs,
		WaitTimeSeconds:     e.waitTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	var events []domain.ChangeEvent
	for _, msg := range out.Messages {
		receipt := aws.ToString(msg.ReceiptHandle)

		var note s3Notification
		if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &note); err != nil {
			e.logger.Warn("discarding unparseable message", "error", err)
			e.deleteMessage(ctx, receipt)
			continue
		}

		if note.Event == "s3:TestEvent" {
			e.logger.Debug("discarding s3 test event")
			e.deleteMessage(ctx, receipt)
			continue
		}

		msgEvents := e.translate(note, receipt)
		if len(msgEvents) == 0 {
			e.logger.Debug("message carried no s3 records, discarding")
			e.deleteMessage(ctx, receipt)
			continue
		}
		events = append(events, msgEvents...)
	}

	return events, nil
}

func (e *EventSource) translate(note s3Notification, receipt string) []domain.ChangeEvent {
	var events []domain.ChangeEvent
	for _, rec := range note.Records {
		if rec.EventSource != "aws:s3" {
			continue
		}

		key, err := decodeKey(rec.S3.Object.Key)
		if err != nil {
			e.logger.Warn("failed to decode object key", "key", rec.S3.Object.Key, "error", err)
			continue
		}

		var evType domain.EventType
		switch {
		case strings.HasPrefix(rec.EventName, "ObjectCreated:"):
			evType = domain.EventCreate
		case strings.HasPrefix(rec.EventName, "ObjectRemoved:"):
			evType = domain.EventDelete
		default:
			e.logger.Debug("ignoring event", "name", rec.EventName, "key", key)
			continue
		}

		events = append(events, domain.ChangeEvent{
			Key:           key,
			Type:          evType,
			Size:          rec.S3.Object.Size,
			ReceiptHandle: receipt,
		})
	}
	return events
}

// decodeKey reverses the URL encoding S3 applies to object keys in
// notifications, where spaces arrive as plus signs.
func decodeKey(raw string) (string, error) {
	return url.QueryUnescape(strings.ReplaceAll(raw, "+", "%20"))
}

// Ack deletes the underlying message so it is not redelivered
func (e *EventSource) Ack(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.ReceiptHandle == "" {
		return nil
	}
	_, err := e.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(e.queueURL),
		ReceiptHandle: aws.String(ev.ReceiptHandle),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func (e *EventSource) deleteMessage(ctx context.Context, receipt string) {
	_, err := e.client.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(e.queueURL),
		ReceiptHandle: aws.String(receipt),
	})
	if err != nil {
		e.logger.Warn("failed to delete message", "error", err)
	}
}
