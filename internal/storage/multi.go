package storage

import (
	"context"
	"errors"

	"github.com/ignite/customer-alerts/internal/engine"
)

// Multi saves to every sink and joins their errors.
type Multi []Sink

func (m Multi) Save(ctx context.Context, res *engine.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Save(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
