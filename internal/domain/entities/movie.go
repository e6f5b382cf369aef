package entities

// Tier is a coarse bucket derived from a continuous numeric field.
type Tier string

const (
	TierLow     Tier = "low"
	TierMedium  Tier = "medium"
	TierHigh    Tier = "high"
	TierUnknown Tier = "unknown"
)

// PopularityCategory classifies a movie by revenue.
type PopularityCategory string

const (
	PopularityNiche       PopularityCategory = "niche"
	PopularityModerate    PopularityCategory = "moderate"
	PopularityBlockbuster PopularityCategory = "blockbuster"
	PopularityUnknown     PopularityCategory = "unknown"
)

// Movie is an immutable source record from the movies database.
// Optional columns are pointers so absent values survive round-trips.
type Movie struct {
	MovieID             int64    `json:"movieId"`
	IMDBID              string   `json:"imdbId"`
	Title               string   `json:"title"`
	Overview            *string  `json:"overview"`
	ProductionCompanies *string  `json:"productionCompanies"`
	ReleaseDate         *string  `json:"releaseDate"`
	Budget              *float64 `json:"budget"`
	Revenue             *float64 `json:"revenue"`
	Runtime             *float64 `json:"runtime"`
	Language            *string  `json:"language"`
	Genres              *string  `json:"genres"`
	Status              *string  `json:"status"`
}

// DerivedAttributes are the deterministic fields computed from a Movie.
type DerivedAttributes struct {
	BudgetTier              Tier               `json:"budgetTier"`
	RevenueTier             Tier               `json:"revenueTier"`
	ProductionEffectiveness float64            `json:"productionEffectiveness"`
	PopularityCategory      PopularityCategory `json:"popularityCategory"`
}

// EnrichedMovie is a Movie plus derived and LLM-scored attributes.
// SentimentScore is in [-1, 1] and defaults to 0 when scoring fails.
type EnrichedMovie struct {
	Movie
	SentimentScore float64 `json:"sentimentScore"`
	DerivedAttributes
}

// Rating is a user rating from the ratings database.
type Rating struct {
	RatingID  int64   `json:"ratingId"`
	UserID    int64   `json:"userId"`
	MovieID   int64   `json:"movieId"`
	Rating    float64 `json:"rating"`
	Timestamp int64   `json:"timestamp"`
}

// TopRatedMovie is an aggregate over the ratings table.
type TopRatedMovie struct {
	MovieID   int64   `json:"movieId"`
	AvgRating float64 `json:"avgRating"`
	Count     int64   `json:"count"`
}
