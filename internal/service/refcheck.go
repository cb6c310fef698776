package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

// tripRefs names the reference ids to check. Nil ids are skipped, which is
// how a partial update only checks what it changes.
type tripRefs struct {
	vehicle, driver, client, material *int64
}

func refsOf(t domain.Trip) tripRefs {
	return tripRefs{vehicle: &t.VehicleID, driver: &t.DriverID, client: &t.ClientID, material: &t.MaterialID}
}

func refsOfPatch(p domain.TripPatch) tripRefs {
	return tripRefs{vehicle: p.VehicleID, driver: p.DriverID, client: p.ClientID, material: p.MaterialID}
}

// activeLookup reports whether the entity exists (error domain.ErrNotFound
// otherwise) and whether it is active.
type activeLookup func(ctx context.Context, id int64) (active bool, err error)

// referenceProblems looks up every supplied reference concurrently and
// returns one problem per missing or inactive entity, in a stable order.
// All lookups finish before it returns. A non-nil error means the reference
// store itself failed.
func referenceProblems(ctx context.Context, refs repo.RefDataRepo, ids tripRefs) ([]string, error) {
	checks := []struct {
		name   string
		id     *int64
		lookup activeLookup
	}{
		{"vehicle", ids.vehicle, func(ctx context.Context, id int64) (bool, error) {
			v, err := refs.FindVehicle(ctx, id)
			return v.Active, err
		}},
		{"driver", ids.driver, func(ctx context.Context, id int64) (bool, error) {
			d, err := refs.FindDriver(ctx, id)
			return d.Active, err
		}},
		{"client", ids.client, func(ctx context.Context, id int64) (bool, error) {
			c, err := refs.FindClient(ctx, id)
			return c.Active, err
		}},
		{"material", ids.material, func(ctx context.Context, id int64) (bool, error) {
			_, err := refs.FindMaterial(ctx, id)
			return true, err
		}},
	}

	problems := make([]string, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		if c.id == nil {
			continue
		}
		id := *c.id
		if id <= 0 {
			problems[i] = fmt.Sprintf("%s id is required", c.name)
			continue
		}
		g.Go(func() error {
			active, err := c.lookup(gctx, id)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				problems[i] = fmt.Sprintf("%s %d not found", c.name, id)
			case err != nil:
				return fmt.Errorf("%s lookup: %w", c.name, err)
			case !active:
				problems[i] = fmt.Sprintf("%s %d is not active", c.name, id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []string
	for _, p := range problems {
		if p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
