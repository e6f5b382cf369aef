package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/moviegrounds/backend/internal/domain/entities"
	"github.com/moviegrounds/backend/internal/domain/providers"
)

const defaultSearchK = 4

// schemaDocument describes the relational schema. It is indexed alongside
// the movie documents so retrieval can surface it for SQL synthesis.
const schemaDocument = `movies table columns: movieId (primary key), imdbId, title, overview, productionCompanies, releaseDate, budget (USD), revenue (USD), runtime (minutes), language, genres (pipe-separated), status.
ratings table columns: ratingId (primary key), userId, movieId (FK to movies.movieId), rating (0-5), timestamp (unix seconds).
Typical joins: movies.movieId = ratings.movieId.`

type indexedDocument struct {
	content   string
	embedding []float32
}

// VectorIndexService holds an in-memory similarity index over the enriched
// corpus. It is built once at startup and read-only afterwards, so lookups
// need no synchronization.
type VectorIndexService struct {
	embedder providers.EmbeddingProvider
	docs     []indexedDocument
}

// NewVectorIndexService creates an empty index backed by the given embedder.
func NewVectorIndexService(embedder providers.EmbeddingProvider) *VectorIndexService {
	return &VectorIndexService{embedder: embedder}
}

// Build synthesizes one document for the schema plus one per enriched movie
// and embeds them all. It must complete before Search is called.
func (s *VectorIndexService) Build(ctx context.Context, corpus []entities.EnrichedMovie) error {
	contents := make([]string, 0, len(corpus)+1)
	contents = append(contents, schemaDocument)
	for i := range corpus {
		contents = append(contents, buildMovieDocument(&corpus[i]))
	}

	embeddings, err := s.embedder.EmbedBatch(ctx, contents)
	if err != nil {
		return fmt.Errorf("embedding corpus documents: %w", err)
	}

	docs := make([]indexedDocument, len(contents))
	for i, content := range contents {
		docs[i] = indexedDocument{content: content, embedding: embeddings[i]}
	}
	s.docs = docs
	return nil
}

// Search embeds the query and returns the text of the top-k most similar
// documents, ordered by descending cosine similarity. Ties keep insertion
// order.
func (s *VectorIndexService) Search(ctx context.Context, query string, k int) ([]string, error) {
	if k <= 0 {
		k = defaultSearchK
	}

	queryEmbedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	type scoredDoc struct {
		content string
		score   float64
	}
	scored := make([]scoredDoc, len(s.docs))
	for i, doc := range s.docs {
		scored[i] = scoredDoc{
			content: doc.content,
			score:   cosineSimilarity(queryEmbedding, doc.embedding),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	results := make([]string, len(scored))
	for i, doc := range scored {
		results[i] = doc.content
	}
	return results, nil
}

// Len returns the number of indexed documents.
func (s *VectorIndexService) Len() int {
	return len(s.docs)
}

// SchemaDocument returns the schema description document.
func (s *VectorIndexService) SchemaDocument() string {
	return schemaDocument
}

// cosineSimilarity is the normalized dot product over the shared-length
// prefix of the two vectors. Zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

// buildMovieDocument concatenates the searchable fields of an enriched
// movie, omitting absent optional fields.
func buildMovieDocument(movie *entities.EnrichedMovie) string {
	parts := []string{"Title: " + movie.Title}
	if movie.Overview != nil {
		parts = append(parts, "Overview: "+*movie.Overview)
	}
	if movie.Genres != nil {
		parts = append(parts, "Genres: "+*movie.Genres)
	}
	if movie.ReleaseDate != nil {
		parts = append(parts, "Release date: "+*movie.ReleaseDate)
	}
	parts = append(parts,
		"Budget: "+floatOrUnknown(movie.Budget),
		"Revenue: "+floatOrUnknown(movie.Revenue),
		"Budget tier: "+string(movie.BudgetTier),
		"Revenue tier: "+string(movie.RevenueTier),
		fmt.Sprintf("Effectiveness: %.2f", movie.ProductionEffectiveness),
		"Popularity: "+string(movie.PopularityCategory),
	)
	if movie.Language != nil {
		parts = append(parts, "Language: "+*movie.Language)
	} else {
		parts = append(parts, "Language: unknown")
	}
	return strings.Join(parts, "\n")
}

func floatOrUnknown(v *float64) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
