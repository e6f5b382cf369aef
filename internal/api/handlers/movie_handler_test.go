package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moviegrounds/backend/internal/api/handlers"
	"github.com/moviegrounds/backend/internal/domain/entities"
	apperrors "github.com/moviegrounds/backend/pkg/errors"
)

type stubMovieReader struct {
	top       []*entities.TopRatedMovie
	topErr    error
	titles    map[int64]string
	lastLimit int
}

func (s *stubMovieReader) GetByID(ctx context.Context, movieID int64) (*entities.Movie, error) {
	title, ok := s.titles[movieID]
	if !ok {
		return nil, apperrors.NewNotFoundError("movie not found")
	}
	return &entities.Movie{MovieID: movieID, Title: title}, nil
}

func (s *stubMovieReader) GetTopRated(ctx context.Context, limit int) ([]*entities.TopRatedMovie, error) {
	s.lastLimit = limit
	if s.topErr != nil {
		return nil, s.topErr
	}
	return s.top, nil
}

func getTopRated(t *testing.T, handler http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestMovieHandler_TopRatedDecoratesTitles(t *testing.T) {
	reader := &stubMovieReader{
		top: []*entities.TopRatedMovie{
			{MovieID: 3, AvgRating: 4.5, Count: 6},
			{MovieID: 7, AvgRating: 4.2, Count: 9},
		},
		titles: map[int64]string{3: "Gamma"},
	}
	handler := handlers.NewMovieHandler(reader)

	rec := getTopRated(t, handler.TopRated, "/api/movies/top-rated")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, reader.lastLimit)

	var payload struct {
		Movies []struct {
			MovieID   int64   `json:"movieId"`
			Title     string  `json:"title"`
			AvgRating float64 `json:"avgRating"`
			Count     int64   `json:"count"`
		} `json:"movies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Movies, 2)
	assert.Equal(t, "Gamma", payload.Movies[0].Title)
	assert.InDelta(t, 4.5, payload.Movies[0].AvgRating, 1e-9)
	// Aggregates referencing movies missing from the catalogue keep an
	// empty title rather than failing the request.
	assert.Empty(t, payload.Movies[1].Title)
	assert.Equal(t, int64(9), payload.Movies[1].Count)
}

func TestMovieHandler_TopRatedLimitHandling(t *testing.T) {
	reader := &stubMovieReader{}
	handler := handlers.NewMovieHandler(reader)

	rec := getTopRated(t, handler.TopRated, "/api/movies/top-rated?limit=25")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 25, reader.lastLimit)

	// Oversized limits are capped.
	rec = getTopRated(t, handler.TopRated, "/api/movies/top-rated?limit=9999")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, reader.lastLimit)

	rec = getTopRated(t, handler.TopRated, "/api/movies/top-rated?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = getTopRated(t, handler.TopRated, "/api/movies/top-rated?limit=-3")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMovieHandler_TopRatedLookupFailureIsOpaque(t *testing.T) {
	reader := &stubMovieReader{topErr: errors.New("database gone")}
	handler := handlers.NewMovieHandler(reader)

	rec := getTopRated(t, handler.TopRated, "/api/movies/top-rated")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal error")
	assert.NotContains(t, rec.Body.String(), "database gone")
}
