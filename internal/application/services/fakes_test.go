package services_test

import (
	"context"
	"errors"

	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/providers"
)

// fakeLLM is a hand-rolled LLM provider fake. Unset functions fail the call
// so tests notice unexpected collaborator use.
type fakeLLM struct {
	chatFn     func(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error)
	chatJSONFn func(ctx context.Context, messages []providers.LLMMessage, opts providers.JSONOptions, out any) error

	chatCalls     int
	chatJSONCalls int
	lastMessages  []providers.LLMMessage
	lastOpts      providers.ChatOptions
}

func (f *fakeLLM) Chat(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
	f.chatCalls++
	f.lastMessages = messages
	f.lastOpts = opts
	if f.chatFn == nil {
		return "", errors.New("unexpected Chat call")
	}
	return f.chatFn(ctx, messages, opts)
}

func (f *fakeLLM) ChatJSON(ctx context.Context, messages []providers.LLMMessage, opts providers.JSONOptions, out any) error {
	f.chatJSONCalls++
	if f.chatJSONFn == nil {
		return errors.New("unexpected ChatJSON call")
	}
	return f.chatJSONFn(ctx, messages, opts, out)
}

// fakeEmbedder maps texts to fixed vectors; unknown texts get defaultVec.
type fakeEmbedder struct {
	vectors    map[string][]float32
	defaultVec []float32
	embedCalls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.embedCalls++
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.defaultVec, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := f.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeMovieRepo returns canned movies; other operations are unused in
// service tests.
type fakeMovieRepo struct {
	movies         []*entities.Movie
	getRandomErr   error
	getRandomCalls int
}

func (f *fakeMovieRepo) GetByID(ctx context.Context, movieID int64) (*entities.Movie, error) {
	return nil, errors.New("unexpected GetByID call")
}

func (f *fakeMovieRepo) GetRandom(ctx context.Context, limit int) ([]*entities.Movie, error) {
	f.getRandomCalls++
	if f.getRandomErr != nil {
		return nil, f.getRandomErr
	}
	if len(f.movies) > limit {
		return f.movies[:limit], nil
	}
	return f.movies, nil
}

func (f *fakeMovieRepo) GetRatingsForMovie(ctx context.Context, movieID int64) ([]*entities.Rating, error) {
	return nil, errors.New("unexpected GetRatingsForMovie call")
}

func (f *fakeMovieRepo) GetTopRated(ctx context.Context, limit int) ([]*entities.TopRatedMovie, error) {
	return nil, errors.New("unexpected GetTopRated call")
}

func (f *fakeMovieRepo) RunReadOnlySelect(ctx context.Context, query string) ([]map[string]any, error) {
	return nil, errors.New("unexpected RunReadOnlySelect call")
}

// fakeCorpusCache is an in-memory corpus cache.
type fakeCorpusCache struct {
	corpus     []entities.EnrichedMovie
	loadErr    error
	storeErr   error
	stored     []entities.EnrichedMovie
	storeCalls int
}

func (f *fakeCorpusCache) Load(ctx context.Context) ([]entities.EnrichedMovie, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.corpus, nil
}

func (f *fakeCorpusCache) Store(ctx context.Context, corpus []entities.EnrichedMovie) error {
	f.storeCalls++
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = corpus
	return nil
}

// fakeRetriever returns canned documents for any query.
type fakeRetriever struct {
	docs        []string
	searchErr   error
	searchCalls int
	lastQuery   string
	lastK       int
}

func (f *fakeRetriever) Search(ctx context.Context, query string, k int) ([]string, error) {
	f.searchCalls++
	f.lastQuery = query
	f.lastK = k
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.docs, nil
}

func (f *fakeRetriever) SchemaDocument() string {
	return "movies table columns: movieId, title, budget, revenue"
}

// fakeSQLExecutor records the query it was handed and returns canned rows.
type fakeSQLExecutor struct {
	rows      []map[string]any
	err       error
	calls     int
	lastQuery string
}

func (f *fakeSQLExecutor) RunReadOnlySelect(ctx context.Context, query string) ([]map[string]any, error) {
	f.calls++
	f.lastQuery = query
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func ptrFloat(v float64) *float64 { return &v }
func ptrString(v string) *string  { return &v }
