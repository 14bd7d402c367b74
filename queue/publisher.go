package queue

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/pitabwire/natspubsub" // nats:// topics
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"gocloud.dev/pubsub"
	_ "gocloud.dev/pubsub/mempubsub" // mem:// topics
)

var ErrPublisherNotInitialized = errors.New("publisher is not initialized")

const (
	defaultPublisherShutdownTimeoutSeconds = 30
	contentTypeKey                         = "content-type"
)

type publisher struct {
	reference string
	url       string

	mu     sync.RWMutex
	topic  *pubsub.Topic
	isInit atomic.Bool
}

func newPublisher(reference string, queueURL string) *publisher {
	return &publisher{
		reference: reference,
		url:       queueURL,
	}
}

func (p *publisher) Ref() string {
	return p.reference
}

func (p *publisher) URL() string {
	return p.url
}

// marshal passes raw payloads through and encodes everything else as JSON.
func marshal(payload any) ([]byte, string, error) {
	switch v := payload.(type) {
	case []byte:
		return v, "application/octet-stream", nil
	case json.RawMessage:
		return v, "application/json", nil
	case string:
		return []byte(v), "text/plain", nil
	default:
		data, err := json.Marshal(payload)
		return data, "application/json", err
	}
}

func (p *publisher) Publish(ctx context.Context, payload any, headers ...map[string]string) error {
	metadata := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, metadata)

	message, contentType, err := marshal(payload)
	if err != nil {
		return err
	}
	metadata[contentTypeKey] = contentType

	for _, h := range headers {
		maps.Copy(metadata, h)
	}

	p.mu.RLock()
	topic := p.topic
	p.mu.RUnlock()
	if topic == nil {
		return ErrPublisherNotInitialized
	}

	return topic.Send(ctx, &pubsub.Message{
		Body:     message,
		Metadata: metadata,
	})
}

func (p *publisher) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isInit.Load() && p.topic != nil {
		return nil
	}

	topic, err := pubsub.OpenTopic(ctx, p.url)
	if err != nil {
		return err
	}

	p.topic = topic
	p.isInit.Store(true)
	return nil
}

func (p *publisher) Initiated() bool {
	return p.isInit.Load()
}

func (p *publisher) Stop(ctx context.Context) error {
	sctx := ctx
	if ctx.Err() != nil {
		sctx = context.WithoutCancel(ctx)
	}

	sctx, cancelFunc := context.WithTimeout(sctx, time.Second*defaultPublisherShutdownTimeoutSeconds)
	defer cancelFunc()

	p.mu.Lock()
	defer p.mu.Unlock()

	p.isInit.Store(false)

	if p.topic == nil {
		return nil
	}

	// mem:// topics are shared by URL within the process; shutting one down breaks other holders.
	if strings.HasPrefix(strings.ToLower(p.url), "mem://") {
		p.topic = nil
		return nil
	}

	err := p.topic.Shutdown(sctx)
	p.topic = nil
	if err != nil && !isTopicAlreadyShutdownErr(err) {
		return err
	}
	return nil
}

func isTopicAlreadyShutdownErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "topic has been shutdown")
}
