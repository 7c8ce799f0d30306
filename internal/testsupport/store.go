package testsupport

import (
	"context"
	"testing"

	"newsreel/internal/config"
	"newsreel/internal/runstore"
)

// MustOpenRunStore opens the run history database for tests and registers
// cleanup.
func MustOpenRunStore(t testing.TB, cfg *config.Config) *runstore.Store {
	t.Helper()

	store, err := runstore.Open(context.Background(), cfg.RunStorePath())
	if err != nil {
		t.Fatalf("runstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
