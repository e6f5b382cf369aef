package repositories

import (
	"context"

	"github.com/moviegrounds/backend/internal/domain/entities"
)

// MovieRepository defines read-only access to the movie and rating databases.
type MovieRepository interface {
	// GetByID retrieves a movie by its primary key.
	GetByID(ctx context.Context, movieID int64) (*entities.Movie, error)

	// GetRandom retrieves up to limit movies in random order.
	GetRandom(ctx context.Context, limit int) ([]*entities.Movie, error)

	// GetRatingsForMovie retrieves all ratings for a movie, newest first.
	GetRatingsForMovie(ctx context.Context, movieID int64) ([]*entities.Rating, error)

	// GetTopRated aggregates the highest-rated movies with more than five ratings.
	GetTopRated(ctx context.Context, limit int) ([]*entities.TopRatedMovie, error)

	// RunReadOnlySelect executes an arbitrary SELECT statement and returns
	// the result as row maps. Non-SELECT statements are rejected and the
	// underlying connection is read-only.
	RunReadOnlySelect(ctx context.Context, query string) ([]map[string]any, error)
}
