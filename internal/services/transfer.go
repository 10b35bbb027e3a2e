package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/animap/animap-backend/internal/data/repos"
	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

// CompactFileName is the merged snapshot consumed by downstream clients.
const CompactFileName = "dist.json"

var yearFileRe = regexp.MustCompile(`^\d{4}\.json$`)

type TransferService interface {
	// Export snapshots one year to EXPORT_DIR/<year>.json and returns
	// the record count.
	Export(ctx context.Context, year int) (int, error)
	// Import replays EXPORT_DIR/<year>.json into the store, overwriting
	// existing rows. ErrNotFound when the file is absent.
	Import(ctx context.Context, year int) (int, error)
	// Compact merges every year file into EXPORT_DIR/dist.json and
	// returns the merged record count.
	Compact(ctx context.Context) (int, error)
}

type transferService struct {
	// Serializes export, import and compact; concurrent transfers over
	// the same directory would race on the year files.
	mu sync.Mutex

	dir    string
	animes repos.AnimeRepo
	log    *logger.Logger
}

func NewTransferService(exportDir string, animes repos.AnimeRepo, baseLog *logger.Logger) TransferService {
	return &transferService{
		dir:    exportDir,
		animes: animes,
		log:    baseLog.With("service", "TransferService"),
	}
}

func (s *transferService) Export(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.animes.ExportYear(dbctx.New(ctx), year)
	if err != nil {
		return 0, err
	}
	if err := s.writeAtomic(fmt.Sprintf("%d.json", year), records); err != nil {
		return 0, err
	}
	s.log.Info("Exported year", "year", year, "records", len(records))
	return len(records), nil
}

func (s *transferService) Import(ctx context.Context, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, fmt.Sprintf("%d.json", year))
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: no export for year %d", apperrors.ErrNotFound, year)
		}
		return 0, err
	}

	var records []*domain.AnimeRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return 0, fmt.Errorf("%w: malformed export file %s: %v", apperrors.ErrInvalidArgument, path, err)
	}
	if err := s.animes.ImportRecords(dbctx.New(ctx), records); err != nil {
		return 0, err
	}
	s.log.Info("Imported year", "year", year, "records", len(records))
	return len(records), nil
}

// compactRecord is the slim per-anime shape in dist.json; review fields
// and timestamps stay out of the published snapshot.
type compactRecord struct {
	AnilistID    int              `json:"anilist_id"`
	Titles       datatypes.JSON   `json:"titles"`
	Year         int              `json:"year"`
	StartDate    *string          `json:"start_date"`
	SeasonNumber *int             `json:"season_number"`
	Mappings     []compactMapping `json:"mappings"`
}

type compactMapping struct {
	ID       *string         `json:"id"`
	Platform domain.Platform `json:"platform"`
}

func (s *transferService) Compact(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: export directory %s", apperrors.ErrNotFound, s.dir)
		}
		return 0, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && yearFileRe.MatchString(e.Name()) {
			files = append(files, e.Name())
		}
	}

	perFile := make([][]*domain.AnimeRecord, len(files))
	g, _ := errgroup.WithContext(ctx)
	for i, name := range files {
		i, name := i, name
		g.Go(func() error {
			raw, err := os.ReadFile(filepath.Join(s.dir, name))
			if err != nil {
				return err
			}
			var records []*domain.AnimeRecord
			if err := json.Unmarshal(raw, &records); err != nil {
				return fmt.Errorf("parse %s: %w", name, err)
			}
			perFile[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var merged []compactRecord
	for _, records := range perFile {
		for _, rec := range records {
			mappings := make([]compactMapping, 0, len(rec.Mappings))
			for _, m := range rec.Mappings {
				mappings = append(mappings, compactMapping{ID: m.PlatformID, Platform: m.Platform})
			}
			merged = append(merged, compactRecord{
				AnilistID:    rec.AnilistID,
				Titles:       rec.Titles,
				Year:         rec.Year,
				StartDate:    rec.StartDate,
				SeasonNumber: rec.SeasonNumber,
				Mappings:     mappings,
			})
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].AnilistID < merged[j].AnilistID })

	if err := s.writeAtomic(CompactFileName, merged); err != nil {
		return 0, err
	}
	s.log.Info("Compacted exports", "files", len(files), "records", len(merged))
	return len(merged), nil
}

// writeAtomic lands the file via temp + rename so a crash mid-write
// never leaves a truncated snapshot behind.
func (s *transferService) writeAtomic(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
