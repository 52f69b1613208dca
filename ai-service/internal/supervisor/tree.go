// Package supervisor runs the ai-service's long-lived components under a
// suture supervisor tree so a crashed consumer or hub is restarted without
// taking down the HTTP API.
//
// The tree has two layers:
//   - messaging: stream consumers and the websocket hub
//   - api: the HTTP server
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/pennywise/finance/shared/logging"
)

type TreeConfig struct {
	// FailureThreshold is the decayed failure count that triggers backoff.
	FailureThreshold float64
	// FailureDecay is the failure half-life in seconds.
	FailureDecay    float64
	FailureBackoff  time.Duration
	ShutdownTimeout time.Duration
}

func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	config    TreeConfig
}

func NewTree(name string, config TreeConfig) *Tree {
	defaults := DefaultTreeConfig()
	if config.FailureThreshold == 0 {
		config.FailureThreshold = defaults.FailureThreshold
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = defaults.FailureDecay
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = defaults.FailureBackoff
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}

	spec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	rootSpec := spec
	rootSpec.EventHook = EventHook(logging.WithComponent("supervisor"))

	t := &Tree{
		root:      suture.New(name, rootSpec),
		messaging: suture.New("messaging", spec),
		api:       suture.New("api", spec),
		config:    config,
	}
	t.root.Add(t.messaging)
	t.root.Add(t.api)
	return t
}

// EventHook logs supervisor events. Panics and terminations are errors,
// backoff and resume are warnings.
func EventHook(logger zerolog.Logger) suture.EventHook {
	return func(e suture.Event) {
		ev := logger.Warn()
		switch e.Type() {
		case suture.EventTypeServicePanic, suture.EventTypeServiceTerminate, suture.EventTypeStopTimeout:
			ev = logger.Error()
		}
		ev.Fields(e.Map()).Msg(e.String())
	}
}

func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

func (t *Tree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve blocks until ctx is cancelled and every service has stopped.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

func (t *Tree) UnstoppedServiceReport() (suture.UnstoppedServiceReport, error) {
	return t.root.UnstoppedServiceReport()
}
