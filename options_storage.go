package localesync

import (
	"context"

	"github.com/pitabwire/localesync/storage"
	// registered backends
	_ "github.com/pitabwire/localesync/storage/blobstore"
	_ "github.com/pitabwire/localesync/storage/supabase"
)

// WithBucket replaces the object store.
func WithBucket(bucket storage.Bucket) Option {
	return func(_ context.Context, s *Service) {
		s.bucket = bucket
	}
}

func (s *Service) openBucket(ctx context.Context) (storage.Bucket, error) {
	return storage.Open(ctx, s.cfg.GetStorageURL(), storage.OpenOptions{
		Bucket:  s.cfg.GetStorageBucket(),
		Key:     s.cfg.GetStorageKey(),
		Timeout: s.cfg.GetStorageTimeout(),
		Invoker: s.invoker,
	})
}
