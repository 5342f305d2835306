package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/depdiscover/pkg/compression"
	"github.com/depdiscover/pkg/model"
)

// dependencyBatchSize bounds the rows inserted per statement.
const dependencyBatchSize = 500

// GormRunStore implements RunStore using GORM.
type GormRunStore struct {
	db    *gorm.DB
	codec *compression.Codec
}

// NewGormRunStore creates a new GormRunStore. A nil codec stores reports
// uncompressed.
func NewGormRunStore(db *gorm.DB, codec *compression.Codec) *GormRunStore {
	return &GormRunStore{db: db, codec: codec}
}

// SaveRun stores the run and its dependencies in one transaction.
func (s *GormRunStore) SaveRun(ctx context.Context, report *model.Report) (int64, error) {
	payload, err := encodeReport(s.codec, report)
	if err != nil {
		return 0, err
	}
	row, err := newRunRow(&report.Run, payload)
	if err != nil {
		return 0, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}
		if len(report.Dependencies) == 0 {
			return nil
		}
		deps := make([]RunDependency, len(report.Dependencies))
		for i, d := range report.Dependencies {
			deps[i] = newDependencyRow(row.ID, d)
		}
		if err := tx.CreateInBatches(deps, dependencyBatchSize).Error; err != nil {
			return fmt.Errorf("failed to insert dependencies: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

// GetRun retrieves a run by its UUID.
func (s *GormRunStore) GetRun(ctx context.Context, runUUID string) (*model.Run, error) {
	row, err := s.findRun(ctx, runUUID, false)
	if err != nil {
		return nil, err
	}
	return row.ToModel()
}

// GetReport retrieves the full report stored with a run. The run metadata
// of the report is taken from the run row.
func (s *GormRunStore) GetReport(ctx context.Context, runUUID string) (*model.Report, error) {
	row, err := s.findRun(ctx, runUUID, true)
	if err != nil {
		return nil, err
	}
	report, err := decodeReport(s.codec, row.Report)
	if err != nil {
		return nil, fmt.Errorf("failed to decode report of run %s: %w", runUUID, err)
	}
	run, err := row.ToModel()
	if err != nil {
		return nil, err
	}
	report.Run = *run
	return report, nil
}

// ListRuns retrieves the most recent runs first.
func (s *GormRunStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	var rows []DiscoveryRun

	query := s.db.WithContext(ctx).Omit("report").Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	runs := make([]model.Run, 0, len(rows))
	for i := range rows {
		run, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}

// ListDependencies retrieves a run's dependencies in report order.
func (s *GormRunStore) ListDependencies(ctx context.Context, runUUID string, filter DependencyFilter) ([]model.Dependency, error) {
	run, err := s.findRun(ctx, runUUID, false)
	if err != nil {
		return nil, err
	}

	query := s.db.WithContext(ctx).Where("run_id = ?", run.ID)
	if filter.Kind != "" {
		query = query.Where("kind = ?", string(filter.Kind))
	}
	if filter.MissingOnly {
		query = query.Where("state = ?", stateNotFound)
	}

	var rows []RunDependency
	if err := query.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}

	deps := make([]model.Dependency, len(rows))
	for i := range rows {
		deps[i] = rows[i].ToModel()
	}
	return deps, nil
}

func (s *GormRunStore) findRun(ctx context.Context, runUUID string, withReport bool) (*DiscoveryRun, error) {
	var row DiscoveryRun

	query := s.db.WithContext(ctx).Where("run_uuid = ?", runUUID)
	if !withReport {
		query = query.Omit("report")
	}
	if err := query.First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, runNotFound(runUUID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &row, nil
}
