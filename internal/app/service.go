// Package service provides the core business service that implements
// the dependencies required by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	repository "github.com/okian/teamform/internal/adapters/repository"
	"github.com/okian/teamform/internal/domain/dedupe"
	"github.com/okian/teamform/internal/domain/model"
	"github.com/okian/teamform/internal/domain/scoring"
	"github.com/okian/teamform/internal/domain/types"
	"github.com/okian/teamform/pkg/logger"
	"github.com/okian/teamform/pkg/metrics"
)

// Explore sort orders.
const (
	SortRelevance = "relevance"
	SortRecent    = "recent"
)

// Service implements search, exploration and teammate suggestions over the
// entity store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store         repository.Store
	ownsStore     bool
	deduper       dedupe.Deduper
	pool          *scoring.Pool
	people        *scoring.Relevance[model.Profile]
	projects      *scoring.Relevance[model.Project]
	compatibility *scoring.Compatibility

	// Configuration
	storeDriver     string
	dataDir         string
	scoreWorkers    int
	suggestionLimit int
	dedupeSize      int
	maxTestimonials int
	table           scoring.Table
	now             func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a ready store. The service does not close it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithStoreDriver selects the store opened by Start.
func WithStoreDriver(driver, dataDir string) Option {
	return func(s *Service) {
		s.storeDriver = driver
		s.dataDir = dataDir
	}
}

// WithScoreWorkers sets the scoring pool size. 0 scores sequentially.
func WithScoreWorkers(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.scoreWorkers = n
		}
	}
}

// WithSuggestionLimit caps teammate suggestions.
func WithSuggestionLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.suggestionLimit = n
		}
	}
}

// WithDedupeSize sets the size of the idempotency key cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxTestimonials caps the testimonials returned in one call.
func WithMaxTestimonials(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTestimonials = n
		}
	}
}

// WithTable replaces the compatibility scoring table.
func WithTable(t scoring.Table) Option {
	return func(s *Service) {
		s.table = t
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used to stamp created entities.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:     repository.DriverMemory,
		scoreWorkers:    runtime.NumCPU(),
		suggestionLimit: scoring.SuggestionLimit,
		dedupeSize:      50000,
		maxTestimonials: 50,
		table:           scoring.DefaultTable(),
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and builds the scoring components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting matching service...")

	if err := s.table.Validate(); err != nil {
		return err
	}

	if s.store == nil {
		store, err := repository.Open(ctx, s.storeDriver, s.dataDir,
			repository.WithLogger(logger.Slog(s.logger.Named("store"))))
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
		s.ownsStore = true
	}

	pool, err := scoring.NewPool(s.scoreWorkers)
	if err != nil {
		if s.ownsStore {
			_ = s.store.Close()
			s.store = nil
		}
		return fmt.Errorf("create scoring pool: %w", err)
	}
	s.pool = pool

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.people = scoring.NewProfileRelevance()
	s.projects = scoring.NewProjectRelevance()
	s.compatibility = scoring.NewCompatibility(scoring.WithTable(s.table))

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.String("store", s.storeDriver),
		logger.Int("scoreWorkers", s.scoreWorkers),
		logger.Int("suggestionLimit", s.suggestionLimit),
	)

	return nil
}

// Stop releases the scoring pool and closes the store if the service opened it.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping matching service...")

	s.pool.Release()

	if s.ownsStore && s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error(context.Background(), "close store", logger.Error(err))
		}
		s.store = nil
		s.ownsStore = false
	}

	s.started = false
	s.logger.Info(context.Background(), "matching service stopped")
}

// Store exposes the underlying store, e.g. for seeding.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// SearchProfiles ranks people against a comma-separated keyword query.
// A blank query returns no results without touching the store.
func (s *Service) SearchProfiles(ctx context.Context, rawQuery string) ([]types.ProfileMatch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	q := scoring.Normalize(rawQuery)
	if len(q) == 0 {
		return []types.ProfileMatch{}, nil
	}
	metrics.RecordRankRequest(scoring.ModeRelevance)

	var profiles []model.Profile
	var testimonials []model.Testimonial
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ents, err := s.store.GetAll(gctx, model.KindProfiles)
		profiles = model.Collect[model.Profile](ents)
		return err
	})
	g.Go(func() error {
		ents, err := s.store.GetAll(gctx, model.KindTestimonials)
		testimonials = model.Collect[model.Testimonial](ents)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RecordStoreError("get_all")
		return nil, fmt.Errorf("search profiles: %w", err)
	}

	ranked := rankWith(s, scoring.ModeRelevance, len(profiles), func() []scoring.Scored[model.Profile] {
		return scoring.ScoreAll(s.pool, s.people, profiles, q)
	})

	byAuthor := make(map[string]*model.Testimonial, len(testimonials))
	for i := range testimonials {
		name := strings.TrimSpace(testimonials[i].AuthorName)
		if _, ok := byAuthor[name]; !ok && name != "" {
			byAuthor[name] = &testimonials[i]
		}
	}
	out := types.NewProfileMatches(ranked, func(fullName string) *model.Testimonial {
		return byAuthor[strings.TrimSpace(fullName)]
	})

	s.logger.Debug(ctx, "profile search",
		logger.Strings("keywords", q),
		logger.Int("candidates", len(profiles)),
		logger.Int("results", len(out)),
	)
	return out, nil
}

// ExploreProjects lists projects. A blank query returns every project; any
// other query keeps the projects whose text contains it and ranks them by
// required-skill relevance. sortBy "recent" orders by submission date instead.
func (s *Service) ExploreProjects(ctx context.Context, rawQuery, sortBy string) ([]types.ProjectMatch, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	switch sortBy {
	case "":
		sortBy = SortRelevance
	case SortRelevance, SortRecent:
	default:
		return nil, fmt.Errorf("%w: sort %q", ErrInvalidInput, sortBy)
	}
	metrics.RecordRankRequest(scoring.ModeExplore)

	ents, err := s.store.GetAll(ctx, model.KindProjects)
	if err != nil {
		return nil, fmt.Errorf("explore projects: %w", err)
	}
	all := model.Collect[model.Project](ents)

	var ranked []scoring.Scored[model.Project]
	if strings.TrimSpace(rawQuery) == "" {
		ranked = make([]scoring.Scored[model.Project], len(all))
		for i, p := range all {
			ranked[i] = scoring.Scored[model.Project]{Candidate: p, Result: scoring.Result{MatchedSkills: []string{}}}
		}
	} else {
		filter := scoring.ProjectSearchFields()
		kept := make([]model.Project, 0, len(all))
		for _, p := range all {
			if filter.Contains(p, rawQuery) {
				kept = append(kept, p)
			}
		}
		q := scoring.Normalize(rawQuery)
		ranked = rankWith(s, scoring.ModeExplore, len(kept), func() []scoring.Scored[model.Project] {
			return scoring.ScoreAll(s.pool, s.projects, kept, q)
		})
	}

	if sortBy == SortRecent {
		slices.SortStableFunc(ranked, func(a, b scoring.Scored[model.Project]) int {
			return compareRecent(a.Candidate.SubmissionDate, b.Candidate.SubmissionDate)
		})
	}
	return types.NewProjectMatches(ranked), nil
}

// compareRecent orders newer dates first and missing dates last.
func compareRecent(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return b.Compare(*a)
}

// Suggest recommends teammates for a required-skills list.
func (s *Service) Suggest(ctx context.Context, requiredSkills string) ([]types.Suggestion, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	metrics.RecordRankRequest(scoring.ModeSuggestion)

	ents, err := s.store.GetAll(ctx, model.KindProfiles)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	profiles := model.Collect[model.Profile](ents)

	ranked := rankWith(s, scoring.ModeSuggestion, len(profiles), func() []scoring.Scored[model.Profile] {
		return scoring.ScoreAll(s.pool, s.compatibility, profiles, requiredSkills)
	})
	return types.NewSuggestions(ranked), nil
}

// SuggestForProject recommends teammates for a stored project.
func (s *Service) SuggestForProject(ctx context.Context, projectID string) ([]types.Suggestion, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	e, err := s.store.Get(ctx, model.KindProjects, projectID)
	if err != nil {
		return nil, err
	}
	return s.Suggest(ctx, e.(*model.Project).RequiredSkills)
}

// rankWith scores n candidates, ranks them for mode and records metrics.
func rankWith[T any](s *Service, mode string, n int, score func() []scoring.Scored[T]) []scoring.Scored[T] {
	start := time.Now()
	scored := score()
	ranked := scoring.Rank(scored, scoring.ForMode(mode, s.suggestionLimit)...)

	metrics.RecordScoringLatency(mode, float64(time.Since(start).Microseconds())/1000)
	metrics.RecordCandidatesScored(mode, n)
	metrics.RecordResultsReturned(mode, len(ranked))
	if mode == scoring.ModeRelevance {
		metrics.RecordZeroScoreFiltered(mode, len(scored)-len(ranked))
	}
	return ranked
}

// Teams lists teams whose name, description or skills-needed text contains
// the query. recruitingOnly keeps teams looking for members with spots left.
func (s *Service) Teams(ctx context.Context, rawQuery string, recruitingOnly bool) ([]model.Team, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ents, err := s.store.GetAll(ctx, model.KindTeams)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	filter := scoring.TeamSearchFields()
	blank := strings.TrimSpace(rawQuery) == ""

	out := []model.Team{}
	for _, t := range model.Collect[model.Team](ents) {
		if !blank && !filter.Contains(t, rawQuery) {
			continue
		}
		if recruitingOnly && !t.Recruiting() {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// TeamProjects returns the active projects entered under the team's name.
func (s *Service) TeamProjects(ctx context.Context, teamID string) ([]model.Project, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}

	var team *model.Team
	var projects []model.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e, err := s.store.Get(gctx, model.KindTeams, teamID)
		if err != nil {
			return err
		}
		team = e.(*model.Team)
		return nil
	})
	g.Go(func() error {
		ents, err := s.store.GetAll(gctx, model.KindProjects)
		projects = model.Collect[model.Project](ents)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := []model.Project{}
	for _, p := range projects {
		if p.HackathonName == team.TeamName && p.IsActive() {
			out = append(out, p)
		}
	}
	return out, nil
}

// Testimonials returns the first limit testimonials in store order.
// limit <= 0 or above the configured maximum is clamped to the maximum.
func (s *Service) Testimonials(ctx context.Context, limit int) ([]model.Testimonial, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > s.maxTestimonials {
		limit = s.maxTestimonials
	}
	ents, err := s.store.GetAll(ctx, model.KindTestimonials)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	out := model.Collect[model.Testimonial](ents)
	return out[:min(limit, len(out))], nil
}

// List returns every entity of kind in store order.
func (s *Service) List(ctx context.Context, kind model.Kind) ([]model.Entity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.GetAll(ctx, kind)
}

// Get returns one entity.
func (s *Service) Get(ctx context.Context, kind model.Kind, id string) (model.Entity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, kind, id)
}

// Create stores e, assigning an ID and timestamps when absent. When
// idempotencyKey is not empty, repeated calls with the same key return the
// entity created by the first call and replayed is true.
func (s *Service) Create(ctx context.Context, e model.Entity, idempotencyKey string) (created model.Entity, replayed bool, err error) {
	if err := s.ready(); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		key := string(e.Kind()) + ":" + idempotencyKey
		if id, seen := s.deduper.Claim(ctx, key); seen {
			if id == "" {
				return nil, false, fmt.Errorf("%w: request with key %q in progress", ErrConflict, idempotencyKey)
			}
			metrics.RecordIdempotentReplay()
			prev, err := s.store.Get(ctx, e.Kind(), id)
			return prev, true, err
		}
		defer func() {
			if err != nil {
				s.deduper.Release(ctx, key)
				return
			}
			s.deduper.Complete(ctx, key, created.GetID())
		}()
	}

	repository.AssignID(e, s.now().UTC())
	if err := s.store.Create(ctx, e); err != nil {
		return nil, false, err
	}
	s.logger.Debug(ctx, "entity created",
		logger.String("kind", string(e.Kind())),
		logger.String("id", e.GetID()),
	)
	return e, false, nil
}

// Update replaces an existing entity, keeping its creation time.
func (s *Service) Update(ctx context.Context, e model.Entity) (model.Entity, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	prev, err := s.store.Get(ctx, e.Kind(), e.GetID())
	if err != nil {
		return nil, err
	}
	e.SetCreated(prev.Created())
	e.Stamp(s.now().UTC())
	if err := s.store.Update(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":         s.started,
		"storeDriver":     s.storeDriver,
		"scoreWorkers":    s.scoreWorkers,
		"suggestionLimit": s.suggestionLimit,
	}

	if s.started {
		counts := make(map[string]int, len(model.Kinds()))
		for _, k := range model.Kinds() {
			n, err := s.store.Count(ctx, k)
			if err != nil {
				continue
			}
			counts[string(k)] = n
			metrics.UpdateEntityCount(string(k), n)
		}
		stats["entities"] = counts
		stats["idempotencyKeys"] = s.deduper.Size()
	}

	return stats
}

// IsNotFound reports whether err means the requested entity does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}
