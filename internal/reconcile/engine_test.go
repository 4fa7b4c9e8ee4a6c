package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/internal/catalog"
	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

type fakeStore struct {
	media        map[string]*models.Media
	updateCalls  int
	updatedWith  map[string]any
}

func (f *fakeStore) GetMedia(_ context.Context, kind models.MediaKind, id string) (*models.Media, error) {
	m, ok := f.media[id]
	if !ok || m.Kind != kind {
		return nil, nil
	}
	cp := *m
	cp.Genres = append([]string(nil), m.Genres...)
	return &cp, nil
}

func (f *fakeStore) UpdateFields(_ context.Context, id string, fields map[string]any) error {
	f.updateCalls++
	f.updatedWith = fields
	m := f.media[id]
	m.LastActivityAt = time.Now()
	for k, val := range fields {
		switch k {
		case "format":
			m.Format = val.(string)
		case "status":
			m.Status = val.(string)
		case "source_of":
			m.SourceOf = val.(string)
		case "country":
			m.Country = val.(string)
		case "description":
			m.Description = val.(string)
		case "cover_image":
			m.CoverImage = val.(string)
		case "episodes":
			m.Episodes = val.(int)
		case "duration":
			m.Duration = val.(int)
		case "chapters":
			m.Chapters = val.(int)
		case "volumes":
			m.Volumes = val.(int)
		case "genres":
			_ = json.Unmarshal([]byte(val.(string)), &m.Genres)
		case "start_date":
			_ = json.Unmarshal([]byte(val.(string)), &m.StartDate)
		case "end_date":
			_ = json.Unmarshal([]byte(val.(string)), &m.EndDate)
		case "next_airing":
			if val == nil {
				m.NextAiring = nil
			} else {
				var na models.NextAiring
				_ = json.Unmarshal([]byte(val.(string)), &na)
				m.NextAiring = &na
			}
		}
	}
	return nil
}

type fakeCatalog struct {
	rec *catalog.CanonicalRecord
	err error
}

func (f *fakeCatalog) FetchByID(context.Context, models.MediaKind, int) (*catalog.CanonicalRecord, error) {
	return f.rec, f.err
}

func intp(v int) *int { return &v }

func storedAnime() *models.Media {
	return &models.Media{
		ID:          "a1",
		Kind:        models.KindAnime,
		SourceID:    101,
		Title:       models.TitleSet{Romaji: "Shingeki no Kyojin"},
		Format:      "TV",
		Status:      "Currently Releasing",
		SourceOf:    "Manga",
		Country:     "Japan",
		StartDate:   models.FuzzyDate{Year: "2013", Month: "4", Day: "7"},
		Episodes:    25,
		Duration:    24,
		Genres:      []string{"Action", "Comedy"},
		Description: "old text",
		CoverImage:  "https://img.example/old.png",
	}
}

func canonicalAnime() *catalog.CanonicalRecord {
	return &catalog.CanonicalRecord{
		ID:          101,
		Title:       catalog.Titles{Romaji: "Shingeki no Kyojin"},
		Status:      "RELEASING",
		Format:      "TV",
		Source:      "MANGA",
		Country:     "JP",
		StartDate:   catalog.DateParts{Year: intp(2013), Month: intp(4), Day: intp(7)},
		Episodes:    25,
		Duration:    24,
		Genres:      []string{"Comedy", "Action"},
		Description: "old text",
		CoverImage:  "https://img.example/old.png",
	}
}

func TestDiffNoDifferences(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	eng := NewEngine(store, &fakeCatalog{rec: canonicalAnime()}, nil)

	report, err := eng.Diff(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.False(t, report.Changed())
}

func TestDiffGenreOrderIndependent(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	rec := canonicalAnime()
	rec.Genres = []string{"Comedy", "Action"} // same set, different order
	eng := NewEngine(store, &fakeCatalog{rec: rec}, nil)

	report, err := eng.Diff(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	for _, f := range report.Fields {
		if f.Field == "genres" {
			assert.False(t, f.Different)
		}
	}
}

func TestDiffDetectsChanges(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	rec := canonicalAnime()
	rec.Status = "FINISHED"
	rec.Episodes = 26
	rec.Description = "new text"
	eng := NewEngine(store, &fakeCatalog{rec: rec}, nil)

	report, err := eng.Diff(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	assert.True(t, report.Changed())

	byField := map[string]FieldDiff{}
	for _, f := range report.Fields {
		byField[f.Field] = f
	}
	assert.True(t, byField["typing"].Different)
	assert.True(t, byField["lengths"].Different)
	assert.True(t, byField["description"].Different)
	assert.False(t, byField["dates"].Different)
	assert.False(t, byField["titles"].Different)
}

func TestDiffAbsentDateComponentsNotDifferent(t *testing.T) {
	stored := storedAnime()
	stored.EndDate = models.FuzzyDate{} // never set
	store := &fakeStore{media: map[string]*models.Media{"a1": stored}}
	rec := canonicalAnime()
	rec.EndDate = catalog.DateParts{} // all nil from the catalog
	eng := NewEngine(store, &fakeCatalog{rec: rec}, nil)

	report, err := eng.Diff(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	for _, f := range report.Fields {
		if f.Field == "dates" {
			assert.False(t, f.Different)
		}
	}
}

func TestDiffSkippedWhenCatalogEmpty(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	eng := NewEngine(store, &fakeCatalog{rec: nil}, nil)

	report, err := eng.Diff(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	assert.Nil(t, report, "missing canonical record means skipped, not clean")
}

func TestDiffEntityNotFound(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{}}
	eng := NewEngine(store, &fakeCatalog{rec: canonicalAnime()}, nil)

	_, err := eng.Diff(context.Background(), models.KindAnime, "ghost")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestApplyCanonicalFieldGranular(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	rec := canonicalAnime()
	rec.Status = "FINISHED"
	rec.EndDate = catalog.DateParts{Year: intp(2013), Month: intp(9), Day: intp(28)}
	eng := NewEngine(store, &fakeCatalog{rec: rec}, nil)

	updated, err := eng.ApplyCanonical(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "Finished Releasing", updated.Status)
	assert.Equal(t, models.FuzzyDate{Year: "2013", Month: "9", Day: "28"}, updated.EndDate)

	// only the differing groups were written
	assert.Contains(t, store.updatedWith, "status")
	assert.Contains(t, store.updatedWith, "end_date")
	assert.NotContains(t, store.updatedWith, "description")
	assert.NotContains(t, store.updatedWith, "genres")
}

func TestApplyCanonicalIdempotent(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	rec := canonicalAnime()
	rec.Episodes = 26
	eng := NewEngine(store, &fakeCatalog{rec: rec}, nil)

	ctx := context.Background()
	_, err := eng.ApplyCanonical(ctx, models.KindAnime, "a1")
	require.NoError(t, err)

	_, err = eng.ApplyCanonical(ctx, models.KindAnime, "a1")
	require.NoError(t, err)
	// second pass had nothing to write beyond the activity stamp
	assert.Empty(t, store.updatedWith)
}

func TestApplyCanonicalSeedsAiring(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	rec := canonicalAnime()
	rec.NextAiring = &catalog.AiringSeed{AiringAt: 1_700_000_000, Episode: 13}
	eng := NewEngine(store, &fakeCatalog{rec: rec}, nil)

	updated, err := eng.ApplyCanonical(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	require.NotNil(t, updated.NextAiring)
	assert.Equal(t, int64(1_700_000_000), updated.NextAiring.AiringAt)
	assert.Equal(t, 13, updated.NextAiring.Episode)
}

func TestApplyCanonicalUntouchedOnFetchFailure(t *testing.T) {
	before := storedAnime()
	store := &fakeStore{media: map[string]*models.Media{"a1": before}}
	eng := NewEngine(store, &fakeCatalog{err: apperr.Unavailable("catalog down", errors.New("timeout"))}, nil)

	_, err := eng.ApplyCanonical(context.Background(), models.KindAnime, "a1")
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	assert.Zero(t, store.updateCalls, "entity must not be written at all")
	assert.Equal(t, storedAnime(), store.media["a1"], "stored fields unchanged")
}

func TestApplyCanonicalSkippedWhenCatalogEmpty(t *testing.T) {
	store := &fakeStore{media: map[string]*models.Media{"a1": storedAnime()}}
	eng := NewEngine(store, &fakeCatalog{rec: nil}, nil)

	updated, err := eng.ApplyCanonical(context.Background(), models.KindAnime, "a1")
	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.Zero(t, store.updateCalls)
}
