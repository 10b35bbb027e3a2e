package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/animap/animap-backend/internal/data/repos"
	"github.com/animap/animap-backend/internal/domain"
	"github.com/animap/animap-backend/internal/matching"
	"github.com/animap/animap-backend/internal/pkg/dbctx"
	apperrors "github.com/animap/animap-backend/internal/pkg/errors"
	"github.com/animap/animap-backend/internal/pkg/httpx"
	"github.com/animap/animap-backend/internal/pkg/logger"
)

// Key identifies one job: at most one job per platform and year exists at
// a time, regardless of status.
type Key struct {
	Platform domain.Platform
	Year     int
}

func (k Key) String() string { return fmt.Sprintf("%s/%d", k.Platform, k.Year) }

// ProviderFactory builds the model client for a job when it starts
// running. Credentials are resolved here, not at creation, so a job
// created before keys were configured can still run later.
type ProviderFactory func(provider, model string) (matching.Provider, error)

type Options struct {
	// ItemTimeout bounds a single model call.
	ItemTimeout time.Duration
	// MaxRetries is the extra attempts per item on transient errors.
	MaxRetries int
	// RatePerSecond throttles model calls across all running jobs.
	// Zero or negative means unlimited.
	RatePerSecond float64
}

func (o Options) withDefaults() Options {
	if o.ItemTimeout <= 0 {
		o.ItemTimeout = 60 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	return o
}

type jobState struct {
	mu  sync.Mutex
	row *domain.MatchJob

	// Set while the loop goroutine is alive.
	cancel context.CancelFunc
	done   chan struct{}
}

// Runner owns the matching jobs. The registry is authoritative while the
// process lives; rows are persisted so counters and the resume position
// survive a restart.
type Runner struct {
	mu     sync.Mutex
	states map[Key]*jobState

	animes  repos.AnimeRepo
	jobs    repos.JobRepo
	factory ProviderFactory
	opts    Options
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewRunner(animes repos.AnimeRepo, jobs repos.JobRepo, factory ProviderFactory, opts Options, baseLog *logger.Logger) *Runner {
	opts = opts.withDefaults()
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Runner{
		states:  make(map[Key]*jobState),
		animes:  animes,
		jobs:    jobs,
		factory: factory,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		log:     baseLog.With("component", "JobRunner"),
	}
}

// Load fills the registry from persisted rows. Rows still marked Running
// belong to a previous process; they demote to Paused so the operator
// decides when to resume.
func (r *Runner) Load(ctx context.Context) error {
	dbc := dbctx.New(ctx)
	rows, err := r.jobs.List(dbc)
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range rows {
		if row.Status == domain.JobRunning {
			row.Status = domain.JobPaused
			if err := r.jobs.UpdateFields(dbc, row.ID, map[string]interface{}{"status": domain.JobPaused}); err != nil {
				return fmt.Errorf("demote job %s/%d: %w", row.Platform, row.Year, err)
			}
			r.log.Warn("Demoted stale running job to paused", "platform", row.Platform, "year", row.Year)
		}
		r.states[Key{Platform: row.Platform, Year: row.Year}] = &jobState{row: row}
	}
	r.log.Info("Loaded jobs", "count", len(rows))
	return nil
}

func (r *Runner) Create(ctx context.Context, platform domain.Platform, year int, provider, model string) (*domain.MatchJob, error) {
	if _, err := domain.ParseProvider(provider); err != nil {
		return nil, err
	}
	if model == "" {
		return nil, fmt.Errorf("%w: model required", apperrors.ErrInvalidArgument)
	}

	key := Key{Platform: platform, Year: year}
	dbc := dbctx.New(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.states[key]; ok {
		return nil, fmt.Errorf("%w: job %s already exists", apperrors.ErrConflict, key)
	}

	candidates, err := r.animes.Candidates(dbc, platform, year)
	if err != nil {
		return nil, err
	}

	row := &domain.MatchJob{
		Platform:         platform,
		Year:             year,
		Provider:         provider,
		Model:            model,
		NumAnimesToMatch: len(candidates),
		Status:           domain.JobCreated,
		JobStartTime:     time.Now().UTC(),
	}
	if err := r.jobs.Create(dbc, row); err != nil {
		return nil, err
	}

	r.states[key] = &jobState{row: row}
	r.log.Info("Created job", "key", key.String(), "provider", provider, "model", model, "candidates", len(candidates))
	return row.Clone(), nil
}

func (r *Runner) state(key Key) (*jobState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[key]
	if !ok {
		return nil, fmt.Errorf("%w: job %s", apperrors.ErrNotFound, key)
	}
	return st, nil
}

// Run starts or resumes the job's loop. Running is a no-op; a finished
// job cannot be re-run, remove and recreate it instead.
func (r *Runner) Run(ctx context.Context, platform domain.Platform, year int) error {
	key := Key{Platform: platform, Year: year}
	st, err := r.state(key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	switch st.row.Status {
	case domain.JobRunning:
		return nil
	case domain.JobCompleted, domain.JobFailed:
		return fmt.Errorf("%w: job %s already %s", apperrors.ErrConflict, key, st.row.Status)
	}

	provider, err := r.factory(st.row.Provider, st.row.Model)
	if err != nil {
		return err
	}

	// Matched items drop out of the candidate query, so the position of
	// the first untried item in a fresh snapshot is the number of failed
	// items still sitting ahead of it. Items run in ascending anilist_id
	// order, which is what makes this stable across pause cycles.
	st.row.Status = domain.JobRunning
	st.row.CurrentIndex = st.row.NumFailed
	st.row.JobStartTime = time.Now().UTC()
	if err := r.jobs.UpdateFields(dbctx.New(ctx), st.row.ID, map[string]interface{}{
		"status":         domain.JobRunning,
		"current_index":  st.row.CurrentIndex,
		"job_start_time": st.row.JobStartTime,
	}); err != nil {
		st.row.Status = domain.JobPaused
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	st.cancel = cancel
	st.done = make(chan struct{})
	go r.loop(loopCtx, key, st, provider)

	r.log.Info("Job running", "key", key.String(), "from_index", st.row.CurrentIndex)
	return nil
}

// Resume is Run's resume path under its HTTP-facing name.
func (r *Runner) Resume(ctx context.Context, platform domain.Platform, year int) error {
	return r.Run(ctx, platform, year)
}

// Pause stops the loop after the in-flight item and waits for it to
// exit, so no counter write lands after Pause returns.
func (r *Runner) Pause(ctx context.Context, platform domain.Platform, year int) error {
	key := Key{Platform: platform, Year: year}
	st, err := r.state(key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	switch st.row.Status {
	case domain.JobPaused:
		st.mu.Unlock()
		return nil
	case domain.JobRunning:
	default:
		status := st.row.Status
		st.mu.Unlock()
		return fmt.Errorf("%w: cannot pause job %s in status %s", apperrors.ErrConflict, key, status)
	}
	cancel, done := st.cancel, st.done
	st.mu.Unlock()

	cancel()
	<-done

	st.mu.Lock()
	defer st.mu.Unlock()
	// The loop may have finished on its own before the cancel landed.
	if st.row.Status != domain.JobRunning {
		return nil
	}
	st.row.Status = domain.JobPaused
	return r.jobs.UpdateFields(dbctx.New(ctx), st.row.ID, map[string]interface{}{"status": domain.JobPaused})
}

// Remove deletes the job in any status. Mappings the job produced stay.
func (r *Runner) Remove(ctx context.Context, platform domain.Platform, year int) error {
	key := Key{Platform: platform, Year: year}
	st, err := r.state(key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	running := st.row.Status == domain.JobRunning
	cancel, done := st.cancel, st.done
	id := st.row.ID
	st.mu.Unlock()

	if running {
		cancel()
		<-done
	}

	if err := r.jobs.Delete(dbctx.New(ctx), id); err != nil {
		return err
	}
	r.mu.Lock()
	delete(r.states, key)
	r.mu.Unlock()
	r.log.Info("Removed job", "key", key.String())
	return nil
}

// List snapshots every job, newest year first.
func (r *Runner) List(ctx context.Context) []*domain.MatchJob {
	r.mu.Lock()
	states := make([]*jobState, 0, len(r.states))
	for _, st := range r.states {
		states = append(states, st)
	}
	r.mu.Unlock()

	out := make([]*domain.MatchJob, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.row.Clone())
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}

func (r *Runner) loop(ctx context.Context, key Key, st *jobState, provider matching.Provider) {
	log := r.log.With("key", key.String(), "provider", provider.Name(), "model", provider.Model())
	defer func() {
		st.mu.Lock()
		st.cancel = nil
		done := st.done
		st.done = nil
		st.mu.Unlock()
		close(done)
	}()

	dbc := dbctx.New(ctx)
	candidates, err := r.animes.Candidates(dbc, key.Platform, key.Year)
	if err != nil {
		log.Error("Candidate query failed", "error", err)
		r.finish(ctx, st, domain.JobFailed)
		return
	}

	st.mu.Lock()
	start := st.row.CurrentIndex
	st.mu.Unlock()

	for i := start; i < len(candidates); i++ {
		if ctx.Err() != nil {
			return
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return
		}

		anime := candidates[i]
		cand, err := r.matchOne(ctx, provider, key.Platform, anime)
		if ctx.Err() != nil {
			// Cancelled mid-item: nothing counted, the item reruns on
			// resume.
			return
		}

		var matched bool
		switch {
		case err != nil && matching.IsSystemic(err):
			log.Error("Provider rejected credentials, failing job", "anilist_id", anime.AnilistID, "error", err)
			r.finish(ctx, st, domain.JobFailed)
			return
		case err != nil:
			log.Warn("Item failed", "anilist_id", anime.AnilistID, "error", err)
		case cand == nil:
			log.Debug("No match on platform", "anilist_id", anime.AnilistID)
		default:
			if uErr := r.applyMatch(dbc, key.Platform, anime.AnilistID, cand); uErr != nil {
				log.Error("Persisting match failed", "anilist_id", anime.AnilistID, "error", uErr)
			} else {
				matched = true
			}
		}

		st.mu.Lock()
		st.row.NumProcessed++
		if matched {
			st.row.NumMatched++
		} else {
			st.row.NumFailed++
		}
		st.row.CurrentIndex = i + 1
		updates := map[string]interface{}{
			"num_processed": st.row.NumProcessed,
			"num_matched":   st.row.NumMatched,
			"num_failed":    st.row.NumFailed,
			"current_index": st.row.CurrentIndex,
		}
		id := st.row.ID
		st.mu.Unlock()

		if err := r.jobs.UpdateFields(dbc, id, updates); err != nil && ctx.Err() == nil {
			log.Warn("Persisting job counters failed", "error", err)
		}
	}

	r.finish(ctx, st, domain.JobCompleted)
	log.Info("Job finished")
}

func (r *Runner) finish(ctx context.Context, st *jobState, status domain.JobStatus) {
	st.mu.Lock()
	st.row.Status = status
	id := st.row.ID
	st.mu.Unlock()

	// Survive the loop context being cancelled between the last item and
	// this transition.
	dbc := dbctx.New(context.WithoutCancel(ctx))
	if err := r.jobs.UpdateFields(dbc, id, map[string]interface{}{"status": status}); err != nil {
		r.log.Error("Persisting job status failed", "status", status, "error", err)
	}
}

func (r *Runner) matchOne(ctx context.Context, provider matching.Provider, platform domain.Platform, anime *domain.Anime) (*matching.Candidate, error) {
	req := matching.MatchRequest{
		AnilistID: anime.AnilistID,
		Titles:    anime.TitleList(),
		Year:      anime.Year,
		MediaType: anime.MediaType,
		StartDate: anime.StartDate,
		Platform:  platform,
	}

	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		itemCtx, cancel := context.WithTimeout(ctx, r.opts.ItemTimeout)
		cand, err := provider.ProposeMatch(itemCtx, req)
		cancel()
		if err == nil {
			return cand, nil
		}
		lastErr = err
		if ctx.Err() != nil || matching.IsSystemic(err) || !matching.IsRetryable(err) {
			return nil, err
		}
		if attempt == r.opts.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(httpx.JitterSleep(backoff)):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (r *Runner) applyMatch(dbc dbctx.Context, platform domain.Platform, anilistID int, cand *matching.Candidate) error {
	id := cand.PlatformID
	if err := r.animes.UpsertMapping(dbc, anilistID, platform, &id, domain.ReviewReady, cand.Confidence); err != nil {
		return err
	}
	if platform == domain.PlatformTmdb && cand.SeasonNumber != nil {
		if err := r.animes.UpdateSeasonNumber(dbc, anilistID, *cand.SeasonNumber); err != nil {
			return err
		}
	}
	return nil
}
