package stager

import (
	"errors"
	"log/slog"

	"github.com/dyncontent/stager/store"
)

// Option configures a Controller.
type Option func(*Controller) error

// WithStore sets the backing store. Defaults to a disk store under the
// platform temp directory.
func WithStore(st store.Store) Option {
	return func(c *Controller) error {
		if st == nil {
			return errors.New("store is nil")
		}
		c.store = st
		return nil
	}
}

// WithNonce overrides the instance nonce mixed into every identifier.
// Defaults to a random UUID per Controller; two controllers sharing a
// nonce issue colliding identifiers, so overriding is meant for tests.
func WithNonce(nonce string) Option {
	return func(c *Controller) error {
		if nonce == "" {
			return errors.New("nonce is empty")
		}
		c.nonce = nonce
		return nil
	}
}

// WithLogger sets a custom logger. Also applied to the default disk store
// when no store is injected.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) error {
		if logger == nil {
			return errors.New("logger is nil")
		}
		c.logger = logger
		return nil
	}
}
