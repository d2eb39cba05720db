package sqlite_test

import (
	"testing"

	"github.com/lockitd/lockit/internal/storage"
	"github.com/lockitd/lockit/internal/storage/storagetest"
	"github.com/lockitd/lockit/internal/testutil/teststore"
)

func TestContractServerMode(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return teststore.New(t)
	})
}

func TestContractOfflineMode(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		return teststore.NewOffline(t)
	})
}
