// Package repository persists discovery runs, their dependency rows and the
// compressed report, through gorm or plain database/sql.
package repository

import (
	"context"

	apperrors "github.com/depdiscover/pkg/errors"
	"github.com/depdiscover/pkg/model"
)

// RunStore defines the interface for discovery run persistence.
type RunStore interface {
	// SaveRun stores the run, its dependencies and the encoded report, and
	// returns the run's database id.
	SaveRun(ctx context.Context, report *model.Report) (int64, error)

	// GetRun retrieves a run by its UUID.
	GetRun(ctx context.Context, runUUID string) (*model.Run, error)

	// GetReport retrieves the full report stored with a run.
	GetReport(ctx context.Context, runUUID string) (*model.Report, error)

	// ListRuns retrieves the most recent runs first.
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// ListDependencies retrieves a run's dependencies in report order.
	ListDependencies(ctx context.Context, runUUID string, filter DependencyFilter) ([]model.Dependency, error)
}

// DependencyFilter restricts ListDependencies. The zero value matches all.
type DependencyFilter struct {
	Kind        model.DependencyKind
	MissingOnly bool
}

// stateNotFound is the stored state of unresolved dependencies.
const stateNotFound = "not_found"

func runNotFound(runUUID string) error {
	return apperrors.Newf(apperrors.CodeNotFound, "run not found: %s", runUUID)
}

// IsNotFound reports whether err means the requested run does not exist.
func IsNotFound(err error) bool {
	return apperrors.GetErrorCode(err) == apperrors.CodeNotFound
}
