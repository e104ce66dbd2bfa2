package database

import (
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

// NewMockPool returns a pgxmock pool satisfying the repository DBTX surface.
// The pool is closed automatically when the test finishes.
func NewMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}
