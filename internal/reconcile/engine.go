// Package reconcile diffs stored media entities against the external
// canonical catalog and applies non-destructive, field-granular updates.
package reconcile

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"animehub/internal/catalog"
	"animehub/internal/normalize"
	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

// Store is the slice of the document store the engine needs. UpdateFields is
// a single-row atomic write that also stamps last_activity_at.
type Store interface {
	GetMedia(ctx context.Context, kind models.MediaKind, id string) (*models.Media, error)
	UpdateFields(ctx context.Context, id string, fields map[string]any) error
}

// Catalog fetches canonical records; (nil, nil) means "no such entry".
type Catalog interface {
	FetchByID(ctx context.Context, kind models.MediaKind, id int) (*catalog.CanonicalRecord, error)
}

type Engine struct {
	store Store
	cat   Catalog
	log   *zap.Logger
}

func NewEngine(store Store, cat Catalog, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{store: store, cat: cat, log: log}
}

// FieldDiff compares one tracked field group between the stored entity and
// the normalized canonical record.
type FieldDiff struct {
	Field     string `json:"field"`
	Current   any    `json:"current"`
	Canonical any    `json:"canonical"`
	Different bool   `json:"different"`
}

type Report struct {
	EntityID string      `json:"entity_id"`
	SourceID int         `json:"source_id"`
	Fields   []FieldDiff `json:"fields"`
}

// Changed reports whether any field group differs.
func (r *Report) Changed() bool {
	for _, f := range r.Fields {
		if f.Different {
			return true
		}
	}
	return false
}

// Diff fetches the canonical record for the entity's external id and compares
// every tracked field group. A nil report (with nil error) means the catalog
// had no data and the comparison was skipped — not that nothing differs.
func (e *Engine) Diff(ctx context.Context, kind models.MediaKind, id string) (*Report, error) {
	m, err := e.store.GetMedia(ctx, kind, id)
	if err != nil {
		return nil, apperr.Store("load entity", err)
	}
	if m == nil {
		return nil, apperr.NotFound("%s %s not found", kind, id)
	}

	rec, err := e.cat.FetchByID(ctx, kind, m.SourceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	return buildReport(m, normalizeRecord(rec)), nil
}

// ApplyCanonical overwrites the entity's reconciled field groups with the
// normalized canonical values and stamps last_activity_at. Only groups whose
// diff shows a difference are written. Returns (nil, nil) when the canonical
// record is unavailable; in that case the stored entity is untouched.
func (e *Engine) ApplyCanonical(ctx context.Context, kind models.MediaKind, id string) (*models.Media, error) {
	m, err := e.store.GetMedia(ctx, kind, id)
	if err != nil {
		return nil, apperr.Store("load entity", err)
	}
	if m == nil {
		return nil, apperr.NotFound("%s %s not found", kind, id)
	}

	rec, err := e.cat.FetchByID(ctx, kind, m.SourceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	view := normalizeRecord(rec)
	fields := updatedFields(m, view)
	if len(fields) > 0 {
		e.log.Info("applying canonical data",
			zap.String("id", m.ID),
			zap.Int("source_id", m.SourceID),
			zap.Int("field_count", len(fields)))
	}

	// empty fields still stamps the activity timestamp
	if err := e.store.UpdateFields(ctx, m.ID, fields); err != nil {
		return nil, apperr.Store("apply canonical fields", err)
	}

	updated, err := e.store.GetMedia(ctx, kind, id)
	if err != nil {
		return nil, apperr.Store("reload entity", err)
	}
	return updated, nil
}

// view is a canonical record translated into the internal taxonomy.
type view struct {
	title       models.TitleSet
	status      string
	format      string
	sourceOf    string
	country     string
	start, end  models.FuzzyDate
	episodes    int
	duration    int
	chapters    int
	volumes     int
	genres      []string
	description string
	cover       string
	airing      *models.NextAiring
}

func normalizeRecord(rec *catalog.CanonicalRecord) view {
	v := view{
		title: models.TitleSet{
			Romaji:  rec.Title.Romaji,
			English: rec.Title.English,
			Native:  rec.Title.Native,
		},
		status:      normalize.Status.Lookup(rec.Status),
		format:      normalize.Format.Lookup(rec.Format),
		sourceOf:    normalize.Source.Lookup(rec.Source),
		country:     normalize.Country.Lookup(rec.Country),
		start:       fuzzyDate(rec.StartDate),
		end:         fuzzyDate(rec.EndDate),
		episodes:    rec.Episodes,
		duration:    rec.Duration,
		chapters:    rec.Chapters,
		volumes:     rec.Volumes,
		genres:      rec.Genres,
		description: rec.Description,
		cover:       rec.CoverImage,
	}
	if rec.NextAiring != nil {
		v.airing = &models.NextAiring{AiringAt: rec.NextAiring.AiringAt, Episode: rec.NextAiring.Episode}
	}
	return v
}

// fuzzyDate renders absent components as empty strings, matching how absent
// internal components are stored; nil vs "" must not read as a difference.
func fuzzyDate(d catalog.DateParts) models.FuzzyDate {
	part := func(p *int) string {
		if p == nil {
			return ""
		}
		return strconv.Itoa(*p)
	}
	return models.FuzzyDate{Year: part(d.Year), Month: part(d.Month), Day: part(d.Day)}
}

type lengths struct {
	Episodes int `json:"episodes,omitempty"`
	Duration int `json:"duration,omitempty"`
	Chapters int `json:"chapters,omitempty"`
	Volumes  int `json:"volumes,omitempty"`
}

type typing struct {
	Format  string `json:"format"`
	Status  string `json:"status"`
	Source  string `json:"source"`
	Country string `json:"country"`
}

type window struct {
	Start models.FuzzyDate `json:"start"`
	End   models.FuzzyDate `json:"end"`
}

func buildReport(m *models.Media, v view) *Report {
	curTyping := typing{Format: m.Format, Status: m.Status, Source: m.SourceOf, Country: m.Country}
	canTyping := typing{Format: v.format, Status: v.status, Source: v.sourceOf, Country: v.country}

	curWindow := window{Start: m.StartDate, End: m.EndDate}
	canWindow := window{Start: v.start, End: v.end}

	curLen := lengths{Episodes: m.Episodes, Duration: m.Duration, Chapters: m.Chapters, Volumes: m.Volumes}
	canLen := lengths{Episodes: v.episodes, Duration: v.duration, Chapters: v.chapters, Volumes: v.volumes}

	return &Report{
		EntityID: m.ID,
		SourceID: m.SourceID,
		Fields: []FieldDiff{
			{Field: "titles", Current: m.Title, Canonical: v.title, Different: m.Title != v.title},
			{Field: "typing", Current: curTyping, Canonical: canTyping, Different: curTyping != canTyping},
			{Field: "description", Current: m.Description, Canonical: v.description, Different: m.Description != v.description},
			{Field: "dates", Current: curWindow, Canonical: canWindow,
				Different: !m.StartDate.Equal(v.start) || !m.EndDate.Equal(v.end)},
			{Field: "lengths", Current: curLen, Canonical: canLen, Different: curLen != canLen},
			{Field: "genres", Current: m.Genres, Canonical: v.genres,
				Different: !sameGenreSet(m.Genres, v.genres)},
			{Field: "cover_image", Current: m.CoverImage, Canonical: v.cover, Different: m.CoverImage != v.cover},
		},
	}
}

// sameGenreSet compares genre lists order-independently.
func sameGenreSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// updatedFields produces the column updates for every differing group.
// Titles are diffed for reporting but never overwritten here; they are set
// at import time and may carry manual curation.
func updatedFields(m *models.Media, v view) map[string]any {
	fields := make(map[string]any)

	if m.Format != v.format {
		fields["format"] = v.format
	}
	if m.Status != v.status {
		fields["status"] = v.status
	}
	if m.SourceOf != v.sourceOf {
		fields["source_of"] = v.sourceOf
	}
	if m.Country != v.country {
		fields["country"] = v.country
	}
	if !m.StartDate.Equal(v.start) {
		b, _ := json.Marshal(v.start)
		fields["start_date"] = string(b)
	}
	if !m.EndDate.Equal(v.end) {
		b, _ := json.Marshal(v.end)
		fields["end_date"] = string(b)
	}
	if m.Episodes != v.episodes {
		fields["episodes"] = v.episodes
	}
	if m.Duration != v.duration {
		fields["duration"] = v.duration
	}
	if m.Chapters != v.chapters {
		fields["chapters"] = v.chapters
	}
	if m.Volumes != v.volumes {
		fields["volumes"] = v.volumes
	}
	if !sameGenreSet(m.Genres, v.genres) {
		b, _ := json.Marshal(v.genres)
		fields["genres"] = string(b)
	}
	if m.Description != v.description {
		fields["description"] = v.description
	}
	if m.CoverImage != v.cover {
		fields["cover_image"] = v.cover
	}
	if m.Kind == models.KindAnime && !sameAiring(m.NextAiring, v.airing) {
		if v.airing == nil {
			fields["next_airing"] = nil
		} else {
			b, _ := json.Marshal(v.airing)
			fields["next_airing"] = string(b)
		}
	}
	return fields
}

func sameAiring(a, b *models.NextAiring) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.AiringAt == b.AiringAt && a.Episode == b.Episode
}
