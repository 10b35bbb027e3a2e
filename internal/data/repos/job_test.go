package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/animap/animap-backend/internal/data/repos/testutil"
	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
)

func newTestJob(platform domain.Platform, year int) *domain.MatchJob {
	return &domain.MatchJob{
		Platform:         platform,
		Year:             year,
		Provider:         domain.ProviderOpenAI,
		Model:            "gpt-4o-mini",
		NumAnimesToMatch: 10,
		Status:           domain.JobCreated,
		JobStartTime:     time.Now().UTC(),
	}
}

func TestJobRepoCreateDuplicateKey(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewJobRepo(db, testutil.Logger(t))

	if err := repo.Create(dbc, newTestJob(domain.PlatformTmdb, 2024)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Same platform+year collides.
	if err := repo.Create(dbc, newTestJob(domain.PlatformTmdb, 2024)); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// Same year on the other platform is a distinct job.
	if err := repo.Create(dbc, newTestJob(domain.PlatformBgmTv, 2024)); err != nil {
		t.Fatalf("Create other platform: %v", err)
	}
}

func TestJobRepoListOrder(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewJobRepo(db, testutil.Logger(t))

	for _, j := range []*domain.MatchJob{
		newTestJob(domain.PlatformTmdb, 2022),
		newTestJob(domain.PlatformTmdb, 2024),
		newTestJob(domain.PlatformBgmTv, 2024),
	} {
		if err := repo.Create(dbc, j); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	jobs, err := repo.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("jobs: got=%d want=3", len(jobs))
	}
	wantOrder := []struct {
		platform domain.Platform
		year     int
	}{
		{domain.PlatformBgmTv, 2024},
		{domain.PlatformTmdb, 2024},
		{domain.PlatformTmdb, 2022},
	}
	for i, want := range wantOrder {
		if jobs[i].Platform != want.platform || jobs[i].Year != want.year {
			t.Fatalf("order[%d]: got %s/%d want %s/%d", i, jobs[i].Platform, jobs[i].Year, want.platform, want.year)
		}
	}
}

func TestJobRepoUpdateFields(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewJobRepo(db, testutil.Logger(t))

	job := newTestJob(domain.PlatformTmdb, 2021)
	if err := repo.Create(dbc, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{
		"status":        domain.JobRunning,
		"num_processed": 3,
		"num_matched":   2,
		"num_failed":    1,
		"current_index": 3,
	})
	if err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}

	jobs, err := repo.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	got := jobs[0]
	if got.Status != domain.JobRunning || got.NumProcessed != 3 || got.NumMatched != 2 || got.NumFailed != 1 || got.CurrentIndex != 3 {
		t.Fatalf("updated row: %+v", got)
	}

	if err := repo.UpdateFields(dbc, 424242, map[string]interface{}{"status": domain.JobPaused}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRepoDelete(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: testutil.Tx(t, db)}
	repo := NewJobRepo(db, testutil.Logger(t))

	job := newTestJob(domain.PlatformBgmTv, 2019)
	if err := repo.Create(dbc, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Delete(dbc, job.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	jobs, err := repo.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("jobs after delete: got=%d want=0", len(jobs))
	}
	// Deleting an absent row is a no-op.
	if err := repo.Delete(dbc, job.ID); err != nil {
		t.Fatalf("Delete absent: %v", err)
	}
}
