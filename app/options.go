package app

import (
	"github.com/gaborage/tilecache/cache"
	"github.com/gaborage/tilecache/storage"
)

// Options overrides the components New would otherwise build from the
// configuration. Nil fields are built as configured.
type Options struct {
	SignalHandler SignalHandler
	Server        ServerRunner
	Provider      cache.Provider
	Backing       storage.BlobStore
}

// Option configures App creation.
type Option func(*Options)

// WithSignalHandler replaces the os/signal handler.
func WithSignalHandler(h SignalHandler) Option {
	return func(o *Options) { o.SignalHandler = h }
}

// WithServer replaces the HTTP server.
func WithServer(s ServerRunner) Option {
	return func(o *Options) { o.Server = s }
}

// WithProvider replaces the configured cache provider.
func WithProvider(p cache.Provider) Option {
	return func(o *Options) { o.Provider = p }
}

// WithBacking replaces the configured backing store.
func WithBacking(b storage.BlobStore) Option {
	return func(o *Options) { o.Backing = b }
}
