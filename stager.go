package stager

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/dyncontent/stager/store"
	"github.com/dyncontent/stager/store/disk"
)

// Controller owns the slot-key→generation index for one session and drives
// the backing store accordingly.
//
// Stage decides, per call, whether the supplied content is genuinely new.
// New content supersedes the slot's previous blob and yields a fresh
// identifier; anything else returns the current identifier untouched.
// Failures while copying or reclaiming blobs are logged and absorbed: a
// render flow must not crash because caching misbehaved, so the worst
// outcome of any Stage call is an identifier that misses on Fetch.
//
// The whole Stage body runs under one mutex. Staging is a low-frequency,
// per-session path, so blocking a concurrent Stage for the duration of a
// file copy is acceptable; Fetch never takes that lock.
type Controller struct {
	mu          sync.Mutex
	generations map[string]uint64

	nonce  string
	store  store.Store
	logger *slog.Logger
}

// New creates a Controller for one session. Unless overridden with
// WithStore, blobs back onto temp files via the store/disk package.
func New(opts ...Option) (*Controller, error) {
	c := &Controller{
		generations: make(map[string]uint64),
		nonce:       uuid.NewString(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("stager: %w", err)
		}
	}
	if c.store == nil {
		st, err := disk.New("", disk.WithLogger(c.logger))
		if err != nil {
			return nil, fmt.Errorf("stager: %w", err)
		}
		c.store = st
	}
	return c, nil
}

// Stage resolves slotKey's current resource identifier and, when src
// reports new content, supersedes the slot's stored blob with the bytes
// src opens.
//
// With no new content available this is a pure read: the current
// identifier comes back and the store is untouched, so a client that
// already holds the identifier keeps its cached copy. With new content the
// superseded blob is reclaimed best-effort, the generation advances, and
// the new bytes are copied into the store under the returned identifier.
//
// Stage never fails: if the copy errors out, the returned identifier
// simply misses on Fetch until the slot is staged again.
func (c *Controller) Stage(ctx context.Context, slotKey string, src Source) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	gen := c.generations[slotKey]
	oldID := identifierFor(slotKey, gen, c.nonce)
	if !src.Available() {
		c.logger.Debug("no new content, identifier reused",
			slog.String("slot", slotKey),
			slog.String("id", oldID))
		return oldID
	}

	// Reclaim the superseded blob before writing its replacement, so
	// repeated uploads for one slot never accumulate backing files.
	if !c.store.Remove(oldID) {
		c.logger.Warn("superseded blob not reclaimed",
			slog.String("slot", slotKey),
			slog.String("id", oldID))
	}

	gen++
	c.generations[slotKey] = gen
	newID := identifierFor(slotKey, gen, c.nonce)

	rc, err := src.Open()
	if err != nil {
		c.logger.Error("content source open failed",
			slog.String("slot", slotKey),
			slog.String("id", newID),
			slog.Any("error", err))
		return newID
	}
	defer func() { _ = rc.Close() }()

	if err := c.store.Put(ctx, newID, rc); err != nil {
		c.logger.Error("staging copy failed",
			slog.String("slot", slotKey),
			slog.String("id", newID),
			slog.Any("error", err))
	}
	return newID
}

// Fetch opens the blob stored under resourceID. A false return is the
// normal miss outcome for unknown, reclaimed, or never-written
// identifiers; callers render an empty result rather than failing.
func (c *Controller) Fetch(resourceID string) (io.ReadCloser, bool) {
	return c.store.Get(resourceID)
}

// CurrentIdentifier returns the identifier Stage would reuse for slotKey
// right now, without touching the store or the generation index. A slot
// never staged reports its generation-zero identifier, which misses on
// Fetch.
func (c *Controller) CurrentIdentifier(slotKey string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return identifierFor(slotKey, c.generations[slotKey], c.nonce)
}

// Teardown reclaims every blob this controller staged. Called when the
// owning session ends; safe to call again (sweeping an empty store is a
// no-op).
func (c *Controller) Teardown() {
	c.store.RemoveAll()
}
