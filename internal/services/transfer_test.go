package services

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/animap/animap-backend/internal/data/repos"
	"github.com/animap/animap-backend/internal/data/repos/testutil"
	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
)

func transferFixture(t *testing.T) (TransferService, repos.AnimeRepo, dbctx.Context, string) {
	t.Helper()
	db := testutil.DB(t)
	dir := t.TempDir()
	animes := repos.NewAnimeRepo(db, testutil.Logger(t))
	svc := NewTransferService(dir, animes, testutil.Logger(t))
	return svc, animes, dbctx.Context{Ctx: context.Background(), Tx: db}, dir
}

func TestTransferExportImportRoundTrip(t *testing.T) {
	svc, animes, dbc, dir := transferFixture(t)
	cleanupAnime(t, 5001, 5002)

	testutil.SeedAnime(t, dbc.Tx, 5001, 1997, "Evangelion")
	testutil.SeedMapping(t, dbc.Tx, 5001, domain.PlatformTmdb, testutil.PtrStr("890"), domain.ReviewAccepted, 97)
	testutil.SeedMapping(t, dbc.Tx, 5001, domain.PlatformBgmTv, nil, domain.ReviewUnMatched, 0)
	testutil.SeedAnime(t, dbc.Tx, 5002, 1997, "Utena")
	testutil.SeedMapping(t, dbc.Tx, 5002, domain.PlatformTmdb, testutil.PtrStr("891"), domain.ReviewDropped, 12)

	n, err := svc.Export(context.Background(), 1997)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n != 2 {
		t.Fatalf("exported: got=%d want=2", n)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "1997.json"))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var records []*domain.AnimeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if len(records) != 2 || records[0].AnilistID != 5001 {
		t.Fatalf("export content: %+v", records)
	}

	// Drift the store, then import the snapshot back over it.
	if err := animes.SetReviewStatus(dbc, 5001, domain.PlatformTmdb, domain.ReviewRejected); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	n, err = svc.Import(context.Background(), 1997)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported: got=%d want=2", n)
	}
	rec, err := animes.Get(dbc, 5001)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, m := range rec.Mappings {
		if m.Platform == domain.PlatformTmdb && m.ReviewStatus != domain.ReviewAccepted {
			t.Fatalf("import did not overwrite: %+v", m)
		}
	}
}

func TestTransferImportMissingFile(t *testing.T) {
	svc, _, _, _ := transferFixture(t)
	if _, err := svc.Import(context.Background(), 1980); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferImportMalformedFile(t *testing.T) {
	svc, _, _, dir := transferFixture(t)
	if err := os.WriteFile(filepath.Join(dir, "1981.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := svc.Import(context.Background(), 1981); !errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestTransferCompact(t *testing.T) {
	svc, _, _, dir := transferFixture(t)

	sn := 2
	writeYear := func(name string, records []*domain.AnimeRecord) {
		raw, err := json.Marshal(records)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	writeYear("1999.json", []*domain.AnimeRecord{
		{
			Anime: domain.Anime{AnilistID: 21, Titles: domain.TitlesJSON([]string{"One Piece"}), Year: 1999},
			Mappings: []domain.Mapping{
				{AnilistID: 21, Platform: domain.PlatformTmdb, PlatformID: testutil.PtrStr("37854"), ReviewStatus: domain.ReviewAccepted, Score: 99},
			},
		},
	})
	writeYear("2004.json", []*domain.AnimeRecord{
		{
			Anime: domain.Anime{AnilistID: 1, Titles: domain.TitlesJSON([]string{"Monster"}), Year: 2004, SeasonNumber: &sn},
			Mappings: []domain.Mapping{
				{AnilistID: 1, Platform: domain.PlatformBgmTv, PlatformID: nil, ReviewStatus: domain.ReviewUnMatched},
			},
		},
	})
	// Non-year files are ignored, including a stale dist.json.
	if err := os.WriteFile(filepath.Join(dir, "dist.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write dist: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write notes: %v", err)
	}

	n, err := svc.Compact(context.Background())
	if err != nil {
		t.Fatalf("Compact: %v", err)
	}
	if n != 2 {
		t.Fatalf("compacted: got=%d want=2", n)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "dist.json"))
	if err != nil {
		t.Fatalf("read dist: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("parse dist: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("dist records: got=%d want=2", len(out))
	}
	// Ordered by anilist_id across files.
	if out[0]["anilist_id"].(float64) != 1 || out[1]["anilist_id"].(float64) != 21 {
		t.Fatalf("dist order: %v, %v", out[0]["anilist_id"], out[1]["anilist_id"])
	}
	// Compact shape carries no review fields.
	if _, ok := out[0]["season_number"]; !ok {
		t.Fatal("season_number missing from compact record")
	}
	mappings := out[1]["mappings"].([]any)
	m0 := mappings[0].(map[string]any)
	if m0["id"] != "37854" || m0["platform"] != "Tmdb" {
		t.Fatalf("compact mapping: %v", m0)
	}
	if _, ok := m0["review_status"]; ok {
		t.Fatal("review_status leaked into compact mapping")
	}
}

func TestTransferCompactMissingDir(t *testing.T) {
	db := testutil.DB(t)
	animes := repos.NewAnimeRepo(db, testutil.Logger(t))
	svc := NewTransferService(filepath.Join(t.TempDir(), "absent"), animes, testutil.Logger(t))
	if _, err := svc.Compact(context.Background()); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
