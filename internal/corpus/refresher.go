package corpus

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/ryumin/askd/internal/retrieval"
	"github.com/ryumin/askd/internal/storage"
)

// signatureKey is the meta key the corpus tree signature persists under,
// next to the index it describes.
const signatureKey = "corpus_signature"

// DocumentStore is the slice of the retrieval store the refresher drives.
type DocumentStore interface {
	Build(ctx context.Context, docs []retrieval.Document) error
	Setup()
	PutMeta(key, value string) error
	Meta(key string) (string, error)
}

// Refresher watches the corpus tree and rebuilds the document store when
// files appear, change or disappear. Change detection hashes the tree
// listing rather than file contents, so a poll on an unchanged corpus
// costs one directory walk and no embedding calls.
//
// Every successful rebuild persists the tree signature with the index, so
// the next start can tell whether the corpus changed while the server was
// down.
type Refresher struct {
	reader   *Reader
	store    DocumentStore
	root     string
	interval time.Duration
	logger   *slog.Logger

	mu            sync.Mutex
	lastSignature string
}

// NewRefresher creates a Refresher polling root every interval.
// An interval <= 0 disables the polling loop; Rebuild still works.
func NewRefresher(reader *Reader, store DocumentStore, root string, interval time.Duration) *Refresher {
	return &Refresher{
		reader:   reader,
		store:    store,
		root:     root,
		interval: interval,
		logger:   slog.Default(),
	}
}

// Run polls for corpus changes until ctx is cancelled. The baseline
// signature is the one persisted with the index, so the immediate first
// comparison also catches edits made while the server was down. Refresh
// failures are logged and polling continues.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	r.prime()

	if changed, err := r.RunOnce(ctx); err != nil {
		r.logger.Error("startup corpus check failed", "root", r.root, "error", err)
	} else if changed {
		r.logger.Info("corpus changed while server was down, reindexed", "root", r.root)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.interval):
		}

		changed, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error("corpus refresh failed", "root", r.root, "error", err)
			continue
		}
		if changed {
			r.logger.Info("corpus reindexed", "root", r.root)
		}
	}
}

// prime seeds the baseline signature from the one recorded with the
// persisted index. When none exists (index predates signature recording,
// or the store is empty) the current tree is used instead so polling
// starts from a known state without a spurious rebuild.
func (r *Refresher) prime() {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig, err := r.store.Meta(signatureKey)
	if err == nil {
		r.lastSignature = sig
		return
	}
	if !errors.Is(err, storage.ErrNotFound) {
		r.logger.Warn("persisted corpus signature unreadable", "error", err)
	}

	if sig, err := signature(r.root); err == nil {
		r.lastSignature = sig
	} else {
		r.logger.Warn("corpus tree not scannable yet", "root", r.root, "error", err)
	}
}

// RunOnce recomputes the corpus signature and rebuilds the store when it
// differs from the last seen one. Returns whether a rebuild happened.
func (r *Refresher) RunOnce(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig, err := signature(r.root)
	if err != nil {
		return false, fmt.Errorf("scanning corpus tree: %w", err)
	}
	if sig == r.lastSignature {
		return false, nil
	}

	if err := r.rebuild(ctx, sig); err != nil {
		return false, err
	}
	return true, nil
}

// Rebuild re-reads the corpus and rebuilds the store regardless of
// whether anything changed on disk.
func (r *Refresher) Rebuild(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sig, err := signature(r.root)
	if err != nil {
		return fmt.Errorf("scanning corpus tree: %w", err)
	}
	return r.rebuild(ctx, sig)
}

// rebuild re-reads and re-indexes the corpus, then records sig both in
// memory and with the index. Callers hold the mutex.
func (r *Refresher) rebuild(ctx context.Context, sig string) error {
	docs, err := r.reader.ReadDocuments(r.root)
	if err != nil {
		return fmt.Errorf("reading corpus: %w", err)
	}
	if err := r.store.Build(ctx, docs); err != nil {
		return err
	}
	r.store.Setup()

	r.lastSignature = sig
	if err := r.store.PutMeta(signatureKey, sig); err != nil {
		// The index itself is fine; worst case is one redundant
		// comparison against the tree on the next start.
		r.logger.Warn("persisting corpus signature failed", "error", err)
	}
	return nil
}

// signature hashes every file's path, size and mtime so any content or
// layout change flips the hash.
func signature(root string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fmt.Fprintf(h, "%s\x00%d\x00%d\n", path, info.Size(), info.ModTime().UnixNano())
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
