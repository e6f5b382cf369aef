package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/providers"
	"github.com/moviegrounds/backend/internal/domain/repositories"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
)

const (
	budgetTierMedium  = 10_000_000
	budgetTierHigh    = 50_000_000
	revenueTierMedium = 50_000_000
	revenueTierHigh   = 200_000_000

	popularityNicheCap    = 10_000_000
	popularityModerateCap = 100_000_000

	// progressInterval is how many records pass between progress reports.
	progressInterval = 10
)

const sentimentSchema = `{ "score": number between -1 and 1 }`

// ProgressUpdate describes how far a corpus rebuild has advanced.
type ProgressUpdate struct {
	Processed int
	Total     int
	Title     string
	Elapsed   time.Duration
	Remaining time.Duration
}

// ProgressFunc receives coarse progress reports during a rebuild.
type ProgressFunc func(ProgressUpdate)

// EnrichmentService builds the enriched movie corpus: deterministic derived
// attributes plus an LLM sentiment score per movie, cached on disk.
type EnrichmentService struct {
	movies     repositories.MovieRepository
	llm        providers.LLMProvider
	cache      providers.CorpusCache
	fetchLimit int
	progress   ProgressFunc
}

// NewEnrichmentService creates a new enrichment service. progress may be nil.
func NewEnrichmentService(
	movies repositories.MovieRepository,
	llm providers.LLMProvider,
	cache providers.CorpusCache,
	fetchLimit int,
	progress ProgressFunc,
) *EnrichmentService {
	if fetchLimit <= 0 {
		fetchLimit = 10_000
	}
	return &EnrichmentService{
		movies:     movies,
		llm:        llm,
		cache:      cache,
		fetchLimit: fetchLimit,
		progress:   progress,
	}
}

// DeriveAttributes computes the deterministic attributes of a movie.
// Pure and total: absent or NaN inputs map to the unknown buckets.
func DeriveAttributes(movie *entities.Movie) entities.DerivedAttributes {
	effectiveness := 0.0
	if movie.Budget != nil && movie.Revenue != nil && *movie.Budget > 0 {
		effectiveness = *movie.Revenue / *movie.Budget
	}

	return entities.DerivedAttributes{
		BudgetTier:              tierForValue(movie.Budget, budgetTierMedium, budgetTierHigh),
		RevenueTier:             tierForValue(movie.Revenue, revenueTierMedium, revenueTierHigh),
		ProductionEffectiveness: effectiveness,
		PopularityCategory:      popularityForRevenue(movie.Revenue),
	}
}

func tierForValue(value *float64, mediumAt, highAt float64) entities.Tier {
	if value == nil || math.IsNaN(*value) {
		return entities.TierUnknown
	}
	if *value < mediumAt {
		return entities.TierLow
	}
	if *value < highAt {
		return entities.TierMedium
	}
	return entities.TierHigh
}

func popularityForRevenue(revenue *float64) entities.PopularityCategory {
	var r float64
	if revenue != nil {
		r = *revenue
	}
	switch {
	case r <= 0 || math.IsNaN(r):
		return entities.PopularityUnknown
	case r < popularityNicheCap:
		return entities.PopularityNiche
	case r < popularityModerateCap:
		return entities.PopularityModerate
	default:
		return entities.PopularityBlockbuster
	}
}

// ScoreSentiment scores the sentiment of a movie overview in [-1, 1].
// Empty input short-circuits to 0 without a model call; every failure is
// contained and defaults to 0.
func (s *EnrichmentService) ScoreSentiment(ctx context.Context, overview *string) float64 {
	if overview == nil || strings.TrimSpace(*overview) == "" {
		return 0
	}

	messages := []providers.LLMMessage{{
		Role: "user",
		Content: `Analyze the sentiment of this movie overview. Return a JSON object with a single numeric field "score" between -1 and 1. Overview: ` + *overview,
	}}

	var payload struct {
		Score float64 `json:"score"`
	}
	err := s.llm.ChatJSON(ctx, messages, providers.JSONOptions{
		SchemaDescription: sentimentSchema,
	}, &payload)
	if err != nil {
		observability.GetLogger().Warn().Err(err).Msg("sentiment analysis failed, defaulting to 0")
		return 0
	}
	if math.IsNaN(payload.Score) {
		return 0
	}
	return math.Max(-1, math.Min(1, payload.Score))
}

// EnrichMovie merges derived attributes and the sentiment score into an
// enriched record.
func (s *EnrichmentService) EnrichMovie(ctx context.Context, movie *entities.Movie) entities.EnrichedMovie {
	return entities.EnrichedMovie{
		Movie:             *movie,
		SentimentScore:    s.ScoreSentiment(ctx, movie.Overview),
		DerivedAttributes: DeriveAttributes(movie),
	}
}

// LoadOrBuildCorpus returns the cached corpus when a valid artifact exists,
// otherwise rebuilds it from the source records in a single full pass and
// persists the result. There is no partial resume: the cache is only
// written after the whole pass succeeds.
func (s *EnrichmentService) LoadOrBuildCorpus(ctx context.Context) ([]entities.EnrichedMovie, error) {
	logger := observability.GetLogger()

	cached, err := s.cache.Load(ctx)
	if err == nil {
		logger.Info().Int("movies", len(cached)).Msg("loaded enriched corpus from cache")
		return cached, nil
	}
	if !errors.Is(err, providers.ErrCorpusCacheMiss) {
		return nil, err
	}
	logger.Info().Err(err).Msg("enriched corpus cache miss, rebuilding")

	movies, err := s.movies.GetRandom(ctx, s.fetchLimit)
	if err != nil {
		return nil, err
	}

	total := len(movies)
	start := time.Now()
	corpus := make([]entities.EnrichedMovie, 0, total)

	logger.Info().Int("movies", total).Msg("enriching movies, this may take a while")

	for i, movie := range movies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		corpus = append(corpus, s.EnrichMovie(ctx, movie))

		processed := i + 1
		if s.progress != nil && (processed%progressInterval == 0 || processed == total) {
			elapsed := time.Since(start)
			var remaining time.Duration
			if processed > 0 {
				remaining = time.Duration(float64(elapsed) / float64(processed) * float64(total-processed))
			}
			s.progress(ProgressUpdate{
				Processed: processed,
				Total:     total,
				Title:     movie.Title,
				Elapsed:   elapsed,
				Remaining: remaining,
			})
		}
	}

	if err := s.cache.Store(ctx, corpus); err != nil {
		return nil, err
	}
	logger.Info().Int("movies", len(corpus)).Dur("elapsed", time.Since(start)).Msg("enriched corpus rebuilt and cached")

	return corpus, nil
}
