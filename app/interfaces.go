package app

import (
	"context"
	"os"
	"os/signal"
)

// SignalHandler allows injectable signal handling for testing.
type SignalHandler interface {
	Notify(c chan<- os.Signal, sig ...os.Signal)
	Stop(c chan<- os.Signal)
}

// ServerRunner abstracts the HTTP server to allow injecting test-friendly implementations.
type ServerRunner interface {
	Start() error
	Shutdown(ctx context.Context) error
}

// osSignalHandler delegates to os/signal.
type osSignalHandler struct{}

func (osSignalHandler) Notify(c chan<- os.Signal, sig ...os.Signal) { signal.Notify(c, sig...) }
func (osSignalHandler) Stop(c chan<- os.Signal)                     { signal.Stop(c) }
