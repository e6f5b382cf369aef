package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/repositories"
	"github.com/moviegrounds/backend/internal/infrastructure/clients/sqlite"
	"github.com/moviegrounds/backend/internal/infrastructure/observability"
	apperrors "github.com/moviegrounds/backend/pkg/errors"
)

var movieColumns = []any{
	"movieId", "imdbId", "title", "overview", "productionCompanies",
	"releaseDate", "budget", "revenue", "runtime", "language", "genres", "status",
}

// MovieAdapter implements MovieRepository over the read-only movie and
// rating SQLite databases.
type MovieAdapter struct {
	movies  *sqlite.Client
	ratings *sqlite.Client
	builder goqu.DialectWrapper
	metrics *observability.Metrics

	// queryConn is a pinned movies connection with the ratings database
	// attached, so generated SELECTs can join across both files. Arbitrary
	// queries are serialized over it.
	mu        sync.Mutex
	queryConn *sql.Conn
}

// NewMovieAdapter creates a new movie adapter. metrics may be nil.
func NewMovieAdapter(ctx context.Context, movies, ratings *sqlite.Client, metrics *observability.Metrics) (*MovieAdapter, error) {
	conn, err := movies.DB().Conn(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to pin query connection", err)
	}

	attach := fmt.Sprintf("ATTACH DATABASE 'file:%s?mode=ro' AS ratingsdb", url.PathEscape(ratings.Path()))
	if _, err := conn.ExecContext(ctx, attach); err != nil {
		conn.Close()
		return nil, apperrors.NewInternalError("failed to attach ratings database", err)
	}

	return &MovieAdapter{
		movies:    movies,
		ratings:   ratings,
		builder:   goqu.Dialect("sqlite3"),
		metrics:   metrics,
		queryConn: conn,
	}, nil
}

var _ repositories.MovieRepository = (*MovieAdapter)(nil)

// GetByID retrieves a movie by its primary key
func (a *MovieAdapter) GetByID(ctx context.Context, movieID int64) (*entities.Movie, error) {
	query, args, err := a.builder.From("movies").
		Select(movieColumns...).
		Where(goqu.Ex{"movieId": movieID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	row := a.movies.DB().QueryRowContext(ctx, query, args...)
	movie, err := scanMovie(row)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("movie %d not found", movieID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get movie", err)
	}
	return movie, nil
}

// GetRandom retrieves up to limit movies in random order
func (a *MovieAdapter) GetRandom(ctx context.Context, limit int) ([]*entities.Movie, error) {
	query, args, err := a.builder.From("movies").
		Select(movieColumns...).
		Order(goqu.L("RANDOM()").Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.movies.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get random movies", err)
	}
	defer rows.Close()

	var movies []*entities.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan movie", err)
		}
		movies = append(movies, movie)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate movies", err)
	}
	return movies, nil
}

// GetRatingsForMovie retrieves all ratings for a movie, newest first
func (a *MovieAdapter) GetRatingsForMovie(ctx context.Context, movieID int64) ([]*entities.Rating, error) {
	query, args, err := a.builder.From("ratings").
		Select("ratingId", "userId", "movieId", "rating", "timestamp").
		Where(goqu.Ex{"movieId": movieID}).
		Order(goqu.I("timestamp").Desc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.ratings.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get ratings", err)
	}
	defer rows.Close()

	var ratings []*entities.Rating
	for rows.Next() {
		rating := &entities.Rating{}
		if err := rows.Scan(&rating.RatingID, &rating.UserID, &rating.MovieID, &rating.Rating, &rating.Timestamp); err != nil {
			return nil, apperrors.NewInternalError("failed to scan rating", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate ratings", err)
	}
	return ratings, nil
}

// GetTopRated aggregates the highest-rated movies with more than five ratings
func (a *MovieAdapter) GetTopRated(ctx context.Context, limit int) ([]*entities.TopRatedMovie, error) {
	query, args, err := a.builder.From("ratings").
		Select(
			goqu.C("movieId"),
			goqu.AVG("rating").As("avgRating"),
			goqu.COUNT(goqu.Star()).As("count"),
		).
		GroupBy("movieId").
		Having(goqu.COUNT(goqu.Star()).Gt(5)).
		Order(goqu.I("avgRating").Desc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.ratings.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get top rated movies", err)
	}
	defer rows.Close()

	var top []*entities.TopRatedMovie
	for rows.Next() {
		entry := &entities.TopRatedMovie{}
		if err := rows.Scan(&entry.MovieID, &entry.AvgRating, &entry.Count); err != nil {
			return nil, apperrors.NewInternalError("failed to scan top rated movie", err)
		}
		top = append(top, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate top rated movies", err)
	}
	return top, nil
}

// RunReadOnlySelect executes an arbitrary SELECT statement and returns row
// maps. Non-SELECT statements are rejected up front; the connection itself
// is opened read-only so nothing that slips through can write.
func (a *MovieAdapter) RunReadOnlySelect(ctx context.Context, query string) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToUpper(trimmed), "SELECT") {
		return nil, apperrors.NewDataError("only SELECT statements are allowed", nil)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	rows, err := a.queryConn.QueryContext(ctx, trimmed)
	if a.metrics != nil {
		observability.RecordDBMetric(ctx, a.metrics, "generated_select", time.Since(start))
	}
	if err != nil {
		return nil, apperrors.NewDataError("query execution failed", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, apperrors.NewDataError("failed to read result columns", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, apperrors.NewDataError("failed to scan result row", err)
		}

		rowMap := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				rowMap[col] = string(b)
			} else {
				rowMap[col] = values[i]
			}
		}
		results = append(results, rowMap)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDataError("failed to iterate result rows", err)
	}
	return results, nil
}

// Close releases the pinned query connection.
func (a *MovieAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.queryConn.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMovie(row rowScanner) (*entities.Movie, error) {
	movie := &entities.Movie{}
	var overview, companies, releaseDate, language, genres, status sql.NullString
	var budget, revenue, runtime sql.NullFloat64

	err := row.Scan(
		&movie.MovieID,
		&movie.IMDBID,
		&movie.Title,
		&overview,
		&companies,
		&releaseDate,
		&budget,
		&revenue,
		&runtime,
		&language,
		&genres,
		&status,
	)
	if err != nil {
		return nil, err
	}

	movie.Overview = nullableString(overview)
	movie.ProductionCompanies = nullableString(companies)
	movie.ReleaseDate = nullableString(releaseDate)
	movie.Budget = nullableFloat(budget)
	movie.Revenue = nullableFloat(revenue)
	movie.Runtime = nullableFloat(runtime)
	movie.Language = nullableString(language)
	movie.Genres = nullableString(genres)
	movie.Status = nullableString(status)
	return movie, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
