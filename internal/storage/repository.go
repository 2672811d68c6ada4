package storage

import (
	"context"
	"errors"

	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// RunRepository is the persistence collaborator for finished test runs. The
// engine itself never persists anything; handlers own storage so history can
// be listed and comparisons can reference runs by ID.
type RunRepository interface {
	Create(ctx context.Context, run *veritest.TestRun) error
	Get(ctx context.Context, runID string) (*veritest.TestRun, error)
	List(ctx context.Context, limit, offset int) ([]*veritest.TestRun, error)
}
