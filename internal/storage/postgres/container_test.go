//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/storage/storagetest"
)

// TestContractContainer provisions its own PostgreSQL via testcontainers
// and runs the backend contract suite against it. One container serves
// the whole run; each subtest gets a truncated database.
//
//	go test -tags integration ./internal/storage/postgres/
func TestContractContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("lockit_test"),
		tcpostgres.WithUsername("lockit"),
		tcpostgres.WithPassword("lockit"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storagetest.Run(t, func(t *testing.T) storage.Store {
		return openClean(t, dsn)
	})
}
