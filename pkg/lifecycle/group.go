package lifecycle

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// Group starts a fixed set of services in order and stops them in reverse order.
type Group struct {
	services []Service
	started  []Service
	log      zerolog.Logger
}

func NewGroup(log zerolog.Logger, services ...Service) *Group {
	return &Group{services: services, log: log}
}

// Start starts every service in order. The first failure stops the services that already started
// and is returned; callers treat it as fatal.
func (g *Group) Start(ctx context.Context) error {
	for _, s := range g.services {
		g.log.Debug().Str("service", s.Name()).Msg("starting service")
		if err := s.Start(ctx); err != nil {
			stopErr := g.Stop(ctx)
			return errors.Join(eris.Wrapf(err, "failed to start %s", s.Name()), stopErr)
		}
		g.started = append(g.started, s)
		g.log.Info().Str("service", s.Name()).Msg("service started")
	}
	return nil
}

// Stop stops the started services in reverse order and joins their errors.
func (g *Group) Stop(ctx context.Context) error {
	var errs error
	for i := len(g.started) - 1; i >= 0; i-- {
		s := g.started[i]
		if err := s.Stop(ctx); err != nil {
			g.log.Error().Err(err).Str("service", s.Name()).Msg("failed to stop service")
			errs = errors.Join(errs, eris.Wrapf(err, "failed to stop %s", s.Name()))
			continue
		}
		g.log.Info().Str("service", s.Name()).Msg("service stopped")
	}
	g.started = nil
	return errs
}
