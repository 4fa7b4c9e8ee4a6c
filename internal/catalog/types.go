package catalog

// CanonicalRecord is the external catalog's current data for one media item.
// Enumeration values (status, format, source, country) are the catalog's own
// codes, untranslated; normalization is the caller's job.
type CanonicalRecord struct {
	ID          int
	Title       Titles
	Status      string
	Format      string
	Source      string
	Country     string
	StartDate   DateParts
	EndDate     DateParts
	Episodes    int
	Duration    int
	Chapters    int
	Volumes     int
	Genres      []string
	Description string
	CoverImage  string
	NextAiring  *AiringSeed
}

type Titles struct {
	Romaji  string
	English string
	Native  string
}

// DateParts is a partially-known date; nil components are unknown to the
// catalog.
type DateParts struct {
	Year  *int
	Month *int
	Day   *int
}

// AiringSeed is the catalog's next-episode report for releasing anime.
type AiringSeed struct {
	AiringAt int64
	Episode  int
}
