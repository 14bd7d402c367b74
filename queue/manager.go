package queue

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pitabwire/util"
)

var ErrPublisherNotFound = errors.New("publisher not found")

type queue struct {
	publishers sync.Map
}

// NewQueueManager returns an empty Manager.
func NewQueueManager(_ context.Context) Manager {
	return &queue{}
}

// AddPublisher opens a topic under reference. Adding an existing reference is a no-op.
func (s *queue) AddPublisher(ctx context.Context, reference string, queueURL string) error {
	if pub, _ := s.GetPublisher(reference); pub != nil {
		return nil
	}

	pub := newPublisher(reference, queueURL)
	if err := pub.Init(ctx); err != nil {
		return fmt.Errorf("open topic %s: %w", reference, err)
	}

	s.publishers.Store(reference, pub)
	util.Log(ctx).WithField("publisher", reference).Debug("publisher ready")
	return nil
}

func (s *queue) DiscardPublisher(ctx context.Context, reference string) error {
	var err error
	if pub, _ := s.GetPublisher(reference); pub != nil {
		err = pub.Stop(ctx)
	}

	s.publishers.Delete(reference)
	return err
}

func (s *queue) GetPublisher(reference string) (Publisher, error) {
	pub, ok := s.publishers.Load(reference)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPublisherNotFound, reference)
	}
	return pub.(*publisher), nil
}

func (s *queue) Publish(ctx context.Context, reference string, payload any, headers ...map[string]string) error {
	pub, err := s.GetPublisher(reference)
	if err != nil {
		return err
	}

	if !pub.Initiated() {
		if err = pub.Init(ctx); err != nil {
			return err
		}
	}

	return pub.Publish(ctx, payload, headers...)
}

// Close stops every publisher and joins their errors.
func (s *queue) Close(ctx context.Context) error {
	var errs []error
	s.publishers.Range(func(key, value any) bool {
		if pub, ok := value.(*publisher); ok {
			if err := pub.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("stop publisher %v: %w", key, err))
			}
		}
		s.publishers.Delete(key)
		return true
	})
	return errors.Join(errs...)
}

// Publishers lists the registered publishers ordered by reference.
func (s *queue) Publishers() []PublisherInfo {
	var out []PublisherInfo
	s.publishers.Range(func(_, value any) bool {
		if pub, ok := value.(*publisher); ok {
			out = append(out, PublisherInfo{
				Reference: pub.Ref(),
				URL:       pub.URL(),
				Initiated: pub.Initiated(),
			})
		}
		return true
	})
	slices.SortFunc(out, func(a, b PublisherInfo) int { return strings.Compare(a.Reference, b.Reference) })
	return out
}
