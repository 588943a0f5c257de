// Package service starts and stops the long-running parts of a process together.
package service

import (
	"context"
	"errors"
	"fmt"
)

// Runnable is a service with a background loop.
// Run must not block.
type Runnable interface {
	Run()
	Stop() error
}

// Group keeps services in the order they were added.
type Group struct {
	list []Runnable
}

func (g *Group) Add(services ...Runnable) { g.list = append(g.list, services...) }

func (g *Group) Start() {
	for _, s := range g.list {
		s.Run()
	}
}

// Shutdown stops the services last to first.
// It gives up on the rest when ctx is done.
func (g *Group) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(g.list) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%v left running: %w", i+1, err))
			break
		}
		s := g.list[i]
		if err := s.Stop(); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("stop [%v]: %w", s, err))
		}
	}
	return errors.Join(errs...)
}
