package notifications

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

type fanout struct {
	services []Service
}

// Fanout delivers every notification to all services concurrently. A failing
// channel does not cancel the others; all failures are joined.
func Fanout(services ...Service) Service {
	return &fanout{services: services}
}

func (f *fanout) NotifyRunCompleted(ctx context.Context, summary Summary) error {
	return f.each(func(s Service) error { return s.NotifyRunCompleted(ctx, summary) })
}

func (f *fanout) NotifyError(ctx context.Context, err error, contextLabel string) error {
	return f.each(func(s Service) error { return s.NotifyError(ctx, err, contextLabel) })
}

func (f *fanout) TestNotification(ctx context.Context) error {
	return f.each(func(s Service) error { return s.TestNotification(ctx) })
}

// each runs call once per service. The group has no shared context, so a
// failure never stops the remaining deliveries; Wait only signals that at
// least one failed and every failure is then joined in service order.
func (f *fanout) each(call func(Service) error) error {
	errs := make([]error, len(f.services))
	var g errgroup.Group
	for i, svc := range f.services {
		g.Go(func() error {
			errs[i] = call(svc)
			return errs[i]
		})
	}
	if err := g.Wait(); err == nil {
		return nil
	}
	return errors.Join(errs...)
}
