package queue

import (
	"context"
)

// Manager owns the topics sync events are sent to, keyed by reference.
type Manager interface {
	AddPublisher(ctx context.Context, reference string, queueURL string) error
	GetPublisher(reference string) (Publisher, error)
	DiscardPublisher(ctx context.Context, reference string) error
	Publishers() []PublisherInfo

	Publish(ctx context.Context, reference string, payload any, headers ...map[string]string) error
	Close(ctx context.Context) error
}

// Publisher sends to a single topic. A stopped publisher is reopened on the next Manager.Publish.
type Publisher interface {
	Ref() string
	URL() string
	Initiated() bool
	Init(ctx context.Context) error

	Publish(ctx context.Context, payload any, headers ...map[string]string) error
	Stop(ctx context.Context) error
}

// PublisherInfo is a snapshot of one registered publisher.
type PublisherInfo struct {
	Reference string `json:"reference"`
	URL       string `json:"url"`
	Initiated bool   `json:"initiated"`
}
