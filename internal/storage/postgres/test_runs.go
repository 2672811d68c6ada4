// SPDX-License-Identifier: LicenseRef-Veritest-Proprietary

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/uptrace/bun"

	"github.com/veritest-ai/veritest-be/internal/storage"
	"github.com/veritest-ai/veritest-be/pkg/veritest"
)

type TestRunRepository struct {
	db *bun.DB
}

func NewTestRunRepository(db *bun.DB) *TestRunRepository {
	return &TestRunRepository{db: db}
}

func (r *TestRunRepository) Create(ctx context.Context, run *veritest.TestRun) error {
	resultsData, err := json.Marshal(run.Results)
	if err != nil {
		return err
	}

	summaryData, err := json.Marshal(run.Summary)
	if err != nil {
		return err
	}

	dbRun := &DBTestRun{
		RunID:      run.ID,
		RunAt:      run.RunAt,
		Status:     run.Status,
		Note:       run.Note,
		Iterations: run.Iterations,
		Results:    resultsData,
		Summary:    summaryData,
	}

	if run.ModelOverride != nil {
		overrideData, err := json.Marshal(run.ModelOverride)
		if err != nil {
			return err
		}
		dbRun.ModelOverride = overrideData
	}

	_, err = r.db.NewInsert().Model(dbRun).Exec(ctx)
	return err
}

func (r *TestRunRepository) Get(ctx context.Context, runID string) (*veritest.TestRun, error) {
	var dbRun DBTestRun
	err := r.db.NewSelect().
		Model(&dbRun).
		Where("run_id = ?", runID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return fromDB(&dbRun)
}

func (r *TestRunRepository) List(ctx context.Context, limit, offset int) ([]*veritest.TestRun, error) {
	var dbRuns []DBTestRun
	err := r.db.NewSelect().
		Model(&dbRuns).
		Order("run_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	runs := make([]*veritest.TestRun, len(dbRuns))
	for i := range dbRuns {
		run, err := fromDB(&dbRuns[i])
		if err != nil {
			return nil, err
		}
		runs[i] = run
	}

	return runs, nil
}

func fromDB(dbRun *DBTestRun) (*veritest.TestRun, error) {
	run := &veritest.TestRun{
		ID:         dbRun.RunID,
		RunAt:      dbRun.RunAt,
		Status:     dbRun.Status,
		Note:       dbRun.Note,
		Iterations: dbRun.Iterations,
	}

	if err := json.Unmarshal(dbRun.Results, &run.Results); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(dbRun.Summary, &run.Summary); err != nil {
		return nil, err
	}
	if len(dbRun.ModelOverride) > 0 {
		if err := json.Unmarshal(dbRun.ModelOverride, &run.ModelOverride); err != nil {
			return nil, err
		}
	}

	return run, nil
}
