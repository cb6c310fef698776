package repo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetledger/backoffice/internal/domain"
	"github.com/fleetledger/backoffice/internal/repo"
)

func TestRefDataRepo_Find(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewRefDataRepo(tx)
	ctx := context.Background()
	refs := seedRefs(t, tx)

	v, err := r.FindVehicle(ctx, refs.vehicle)
	require.NoError(t, err)
	assert.True(t, v.Active)

	d, err := r.FindDriver(ctx, refs.driver)
	require.NoError(t, err)
	assert.Equal(t, "Ana Quispe", d.FullName)

	c, err := r.FindClient(ctx, refs.client)
	require.NoError(t, err)
	assert.Equal(t, "Minera Sur SAC", c.Name)

	m, err := r.FindMaterial(ctx, refs.material)
	require.NoError(t, err)
	assert.Equal(t, "Cemento", m.Name)
}

func TestRefDataRepo_InactiveAndMissing(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewRefDataRepo(tx)
	ctx := context.Background()
	refs := seedRefs(t, tx)

	_, err := tx.Exec(ctx, `UPDATE choferes SET estado = 'INACTIVO' WHERE id = $1`, refs.driver)
	require.NoError(t, err)

	d, err := r.FindDriver(ctx, refs.driver)
	require.NoError(t, err)
	assert.False(t, d.Active)

	_, err = r.FindVehicle(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = r.FindMaterial(ctx, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRefDataRepo_Counts(t *testing.T) {
	tx := newTestTx(t)
	r := repo.NewRefDataRepo(tx)
	ctx := context.Background()

	before, err := r.Counts(ctx)
	require.NoError(t, err)

	refs := seedRefs(t, tx)
	_, err = tx.Exec(ctx, `UPDATE clientes SET estado = 'INACTIVO' WHERE id = $1`, refs.client)
	require.NoError(t, err)

	after, err := r.Counts(ctx)

	require.NoError(t, err)
	assert.EqualValues(t, 1, after.Vehicles.Active-before.Vehicles.Active)
	assert.EqualValues(t, 1, after.Clients.Total-before.Clients.Total)
	assert.EqualValues(t, 0, after.Clients.Active-before.Clients.Active)
	assert.EqualValues(t, 1, after.Materials-before.Materials)
}
