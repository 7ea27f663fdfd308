// Package disk provides a temp-file backed store implementation.
package disk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/dyncontent/stager/internal/fileio"
	"github.com/dyncontent/stager/store"
)

// Interface compliance.
var _ store.Store = (*Store)(nil)

const (
	defaultFilePattern = "stage-*"
	defaultBufferSize  = 16 * 1024
	defaultDirPerm     = 0o700
)

// Store implements store.Store using one temporary file per identifier.
//
// Backing files live under a single directory (the platform temp directory
// by default); their names are not part of the contract, only the
// identifier→file index held in memory is. The index does not survive the
// process: a restart orphans the files and the OS temp cleaner is the
// backstop.
type Store struct {
	mu    sync.RWMutex
	paths map[string]string // identifier -> absolute backing file path

	dir      string
	pattern  string
	bufSize  int
	compress bool
	logger   *slog.Logger
}

// Option configures a disk store.
type Option func(*Store)

// WithFilePattern sets the name pattern passed to os.CreateTemp for
// backing files. Defaults to "stage-*".
func WithFilePattern(pattern string) Option {
	return func(s *Store) {
		s.pattern = pattern
	}
}

// WithBufferSize sets the copy buffer size in bytes. Defaults to 16 KiB.
func WithBufferSize(n int) Option {
	return func(s *Store) {
		s.bufSize = n
	}
}

// WithZstd enables transparent zstd compression of backing files.
// Get always returns the original bytes.
func WithZstd() Option {
	return func(s *Store) {
		s.compress = true
	}
}

// WithLogger sets a custom logger for reclaim and copy failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a disk store writing backing files under dir.
// An empty dir selects the platform temp directory.
func New(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		paths:   make(map[string]string),
		dir:     dir,
		pattern: defaultFilePattern,
		bufSize: defaultBufferSize,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.bufSize <= 0 {
		return nil, errors.New("store: buffer size must be > 0")
	}
	if s.dir == "" {
		s.dir = os.TempDir()
	} else if err := os.MkdirAll(s.dir, defaultDirPerm); err != nil {
		return nil, fmt.Errorf("store: create dir: %w", err)
	}
	return s, nil
}

// Put copies all bytes from src into a fresh backing file and maps id to it.
// On any failure the partial file is removed and id stays unmapped.
func (s *Store) Put(ctx context.Context, id string, src io.Reader) error {
	f, err := os.CreateTemp(s.dir, s.pattern)
	if err != nil {
		return fmt.Errorf("store: create backing file: %w", err)
	}
	path := f.Name()

	var dst io.Writer = f
	var enc *zstd.Encoder
	if s.compress {
		enc, err = zstd.NewWriter(f)
		if err != nil {
			s.discard(f, path)
			return fmt.Errorf("store: zstd writer: %w", err)
		}
		dst = enc
	}

	if _, err := fileio.Copy(ctx, dst, src, s.bufSize); err != nil {
		if enc != nil {
			_ = enc.Close()
		}
		s.discard(f, path)
		return fmt.Errorf("store: copy to backing file: %w", err)
	}
	if enc != nil {
		if err := enc.Close(); err != nil {
			s.discard(f, path)
			return fmt.Errorf("store: close zstd writer: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("store: close backing file: %w", err)
	}

	s.mu.Lock()
	s.paths[id] = path
	s.mu.Unlock()
	return nil
}

// Get opens the backing file mapped under id.
// Returns nil, false when id is unmapped or the file has disappeared.
func (s *Store) Get(id string) (io.ReadCloser, bool) {
	s.mu.RLock()
	path, ok := s.paths[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	f, err := os.Open(path) //nolint:gosec // path comes from os.CreateTemp, not user input
	if err != nil {
		return nil, false
	}
	if !s.compress {
		return f, true
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, false
	}
	return &zstdReadCloser{dec: dec, f: f}, true
}

// Remove deletes the backing file mapped under id.
// A failed delete keeps the mapping so a later attempt can retry; the
// failure is logged and reported via the return value only.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

// RemoveAll deletes every mapped backing file, tolerating individual
// failures. Used at session teardown; a no-op on an empty index.
func (s *Store) RemoveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.paths {
		s.removeLocked(id)
	}
}

func (s *Store) removeLocked(id string) bool {
	path, ok := s.paths[id]
	if !ok {
		return true
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("backing file delete failed",
			slog.String("id", id),
			slog.String("path", path),
			slog.Any("error", err))
		return false
	}
	delete(s.paths, id)
	return true
}

// discard closes and removes a half-written backing file.
func (s *Store) discard(f *os.File, path string) {
	_ = f.Close()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("partial backing file not removed",
			slog.String("path", path),
			slog.Any("error", err))
	}
}

type zstdReadCloser struct {
	dec *zstd.Decoder
	f   *os.File
}

func (r *zstdReadCloser) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

func (r *zstdReadCloser) Close() error {
	r.dec.Close()
	return r.f.Close()
}
