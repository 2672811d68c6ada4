// SPDX-License-Identifier: LicenseRef-Veritest-Proprietary

package postgres

import (
	"time"

	"github.com/uptrace/bun"
)

// DBTestRun represents a test run in the database. Results and summary are
// stored wholesale as JSONB; the run is immutable once persisted.
type DBTestRun struct {
	bun.BaseModel `bun:"table:test_runs,alias:tr"`

	ID            string     `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	RunID         string     `bun:"run_id,notnull,unique"`
	RunAt         time.Time  `bun:"run_at,notnull"`
	Status        string     `bun:"status,notnull"`
	Note          string     `bun:"note"`
	Iterations    int        `bun:"iterations"`
	ModelOverride []byte     `bun:"model_override,type:jsonb"`
	Results       []byte     `bun:"results,type:jsonb,notnull"`
	Summary       []byte     `bun:"summary,type:jsonb,notnull"`
	CreatedAt     time.Time  `bun:"created_at,notnull,default:now()"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete"`
}
