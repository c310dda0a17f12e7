package qa

import (
	"context"
	"fmt"
)

// CorpusBuilder indexes the corpus document tree into its store. The
// refresher implements it; routing the cold-start build through it means
// the build records its tree signature the same way a polled rebuild
// does.
type CorpusBuilder interface {
	Rebuild(ctx context.Context) error
}

// Bootstrap applies the cold-start policy to both stores. The answer
// cache only becomes queryable when a previous run persisted entries;
// the corpus is built from the document tree when nothing is persisted
// yet and is always finalized. A corpus that can be neither loaded nor
// built is fatal.
func Bootstrap(ctx context.Context, cache, corpus DocumentStore, builder CorpusBuilder) error {
	if err := cache.Load(ctx); err != nil {
		return fmt.Errorf("loading answer cache: %w", err)
	}
	if cache.Available() {
		cache.Setup()
	}

	if err := corpus.Load(ctx); err != nil {
		return fmt.Errorf("loading corpus index: %w", err)
	}
	if !corpus.Available() {
		if err := builder.Rebuild(ctx); err != nil {
			return fmt.Errorf("building corpus index: %w", err)
		}
		return nil
	}
	corpus.Setup()

	return nil
}
