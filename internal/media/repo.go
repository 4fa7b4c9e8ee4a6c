package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"animehub/pkg/models"
)

// Repo is the document-store port over sqlite. Entities are single rows with
// their embedded lists (relations, character links, genres) held in JSON text
// columns, so every mutation below is one atomic single-row UPDATE. There is
// deliberately no multi-row transaction across two entities; callers that
// touch both ends of a relation issue two sequential idempotent writes.
type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

type ListQuery struct {
	Kind   models.MediaKind
	Q      string // keyword search in titles
	Status string
	Genre  string
	Limit  int
	Offset int
}

const mediaColumns = `id, kind, source_id, title, format, status, source_of, country,
	start_date, end_date, episodes, duration, chapters, volumes,
	genres, description, cover_image, relations, characters, next_airing,
	last_activity_at, created_at`

func (r *Repo) InsertMedia(ctx context.Context, m *models.Media) error {
	title, _ := json.Marshal(m.Title)
	start, _ := json.Marshal(m.StartDate)
	end, _ := json.Marshal(m.EndDate)
	genres, _ := json.Marshal(orEmpty(m.Genres))
	relations, _ := json.Marshal(m.Relations)
	characters, _ := json.Marshal(m.Characters)

	var airing any
	if m.NextAiring != nil {
		b, _ := json.Marshal(m.NextAiring)
		airing = string(b)
	}

	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO media (`+mediaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.Kind, m.SourceID, string(title), m.Format, m.Status, m.SourceOf, m.Country,
		string(start), string(end), m.Episodes, m.Duration, m.Chapters, m.Volumes,
		string(genres), m.Description, m.CoverImage, relJSON(relations), relJSON(characters), airing,
		m.LastActivityAt, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert media: %w", err)
	}
	return nil
}

// GetMedia returns (nil, nil) when the id does not exist.
func (r *Repo) GetMedia(ctx context.Context, kind models.MediaKind, id string) (*models.Media, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE id = ? AND kind = ?
	`, id, kind)
	return scanMedia(row)
}

// GetMediaBySourceID looks an entity up by its external catalog id.
func (r *Repo) GetMediaBySourceID(ctx context.Context, kind models.MediaKind, sourceID int) (*models.Media, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE kind = ? AND source_id = ?
	`, kind, sourceID)
	return scanMedia(row)
}

func (r *Repo) ListMedia(ctx context.Context, q ListQuery) ([]models.Media, error) {
	sqlStr, args := buildListSQL(q, false)
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	out := make([]models.Media, 0, q.Limit)
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) CountMedia(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count media: %w", err)
	}
	return total, nil
}

// ListByStatus returns entities of one kind with the given status in the
// store's natural order. Sweeps iterate this result sequentially.
func (r *Repo) ListByStatus(ctx context.Context, kind models.MediaKind, status string) ([]models.Media, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE kind = ? AND status = ?
		ORDER BY id ASC
	`, kind, status)
	if err != nil {
		return nil, fmt.Errorf("list by status: %w", err)
	}
	defer rows.Close()
	return collectMedia(rows)
}

// ListAiring returns every anime that carries a next-airing record.
func (r *Repo) ListAiring(ctx context.Context) ([]models.Media, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE kind = ? AND next_airing IS NOT NULL
		ORDER BY id ASC
	`, models.KindAnime)
	if err != nil {
		return nil, fmt.Errorf("list airing: %w", err)
	}
	defer rows.Close()
	return collectMedia(rows)
}

// ListAllMedia returns every entity of one kind, natural order. Used by the
// reverse-edge repair pass.
func (r *Repo) ListAllMedia(ctx context.Context, kind models.MediaKind) ([]models.Media, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+mediaColumns+`
		FROM media
		WHERE kind = ?
		ORDER BY id ASC
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("list all media: %w", err)
	}
	defer rows.Close()
	return collectMedia(rows)
}

// SetRelations rewrites the relation list of one entity in a single UPDATE.
func (r *Repo) SetRelations(ctx context.Context, id string, edges []models.RelationEdge) error {
	b, _ := json.Marshal(orEmptyEdges(edges))
	res, err := r.DB.ExecContext(ctx, `
		UPDATE media SET relations = ?, last_activity_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(b), id)
	if err != nil {
		return fmt.Errorf("set relations: %w", err)
	}
	return requireRow(res, id)
}

// SetMediaCharacters rewrites the character-link list of one media entity.
func (r *Repo) SetMediaCharacters(ctx context.Context, id string, links []models.CharacterLink) error {
	b, _ := json.Marshal(orEmptyLinks(links))
	res, err := r.DB.ExecContext(ctx, `
		UPDATE media SET characters = ?, last_activity_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(b), id)
	if err != nil {
		return fmt.Errorf("set media characters: %w", err)
	}
	return requireRow(res, id)
}

// SetNextAiring writes (or clears, with nil) the recurring-event state.
func (r *Repo) SetNextAiring(ctx context.Context, id string, na *models.NextAiring) error {
	var airing any
	if na != nil {
		b, _ := json.Marshal(na)
		airing = string(b)
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE media SET next_airing = ? WHERE id = ?
	`, airing, id)
	if err != nil {
		return fmt.Errorf("set next airing: %w", err)
	}
	return requireRow(res, id)
}

// UpdateFields applies a field-granular update to one media row. Keys are
// whitelisted column names; values for JSON columns must be pre-marshalled
// strings. Applied in sorted key order so generated SQL is deterministic.
func (r *Repo) UpdateFields(ctx context.Context, id string, fields map[string]any) error {
	if len(fields) == 0 {
		return r.StampActivity(ctx, id)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !updatableColumns[k] {
			return fmt.Errorf("update fields: column %q not updatable", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var set []string
	var args []any
	for _, k := range keys {
		set = append(set, k+" = ?")
		args = append(args, fields[k])
	}
	set = append(set, "last_activity_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	res, err := r.DB.ExecContext(ctx, `
		UPDATE media SET `+strings.Join(set, ", ")+` WHERE id = ?
	`, args...)
	if err != nil {
		return fmt.Errorf("update fields: %w", err)
	}
	return requireRow(res, id)
}

var updatableColumns = map[string]bool{
	"title": true, "format": true, "status": true, "source_of": true,
	"country": true, "start_date": true, "end_date": true,
	"episodes": true, "duration": true, "chapters": true, "volumes": true,
	"genres": true, "description": true, "cover_image": true,
	"next_airing": true,
}

func (r *Repo) StampActivity(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE media SET last_activity_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("stamp activity: %w", err)
	}
	return requireRow(res, id)
}

// ErrNoRow is returned by single-row updates whose WHERE matched nothing.
var ErrNoRow = sql.ErrNoRows

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return ErrNoRow
	}
	return nil
}

func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `SELECT ` + mediaColumns + ` FROM media`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM media`
	}

	where := []string{"kind = ?"}
	args := []any{q.Kind}

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "LOWER(title) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(q.Q))+"%")
	}
	if strings.TrimSpace(q.Status) != "" {
		where = append(where, "status = ?")
		args = append(args, strings.TrimSpace(q.Status))
	}
	if strings.TrimSpace(q.Genre) != "" {
		// any-match against the stored JSON array text
		where = append(where, "LOWER(genres) LIKE ?")
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(q.Genre))+"%")
	}

	sqlStr := baseSelect + " WHERE " + strings.Join(where, " AND ")
	if !countOnly {
		sqlStr += " ORDER BY id ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedia(row rowScanner) (*models.Media, error) {
	var (
		m          models.Media
		title      string
		format     sql.NullString
		status     sql.NullString
		sourceOf   sql.NullString
		country    sql.NullString
		start, end string
		genres     string
		desc       sql.NullString
		cover      sql.NullString
		relations  string
		characters string
		airing     sql.NullString
		activity   time.Time
		created    time.Time
	)

	err := row.Scan(
		&m.ID, &m.Kind, &m.SourceID, &title, &format, &status, &sourceOf, &country,
		&start, &end, &m.Episodes, &m.Duration, &m.Chapters, &m.Volumes,
		&genres, &desc, &cover, &relations, &characters, &airing,
		&activity, &created,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan media: %w", err)
	}

	m.Format = format.String
	m.Status = status.String
	m.SourceOf = sourceOf.String
	m.Country = country.String
	m.Description = desc.String
	m.CoverImage = cover.String
	m.LastActivityAt = activity
	m.CreatedAt = created

	_ = json.Unmarshal([]byte(title), &m.Title)
	_ = json.Unmarshal([]byte(start), &m.StartDate)
	_ = json.Unmarshal([]byte(end), &m.EndDate)
	_ = json.Unmarshal([]byte(genres), &m.Genres)
	_ = json.Unmarshal([]byte(relations), &m.Relations)
	_ = json.Unmarshal([]byte(characters), &m.Characters)
	if airing.Valid && airing.String != "" {
		var na models.NextAiring
		if json.Unmarshal([]byte(airing.String), &na) == nil {
			m.NextAiring = &na
		}
	}
	return &m, nil
}

func collectMedia(rows *sql.Rows) ([]models.Media, error) {
	var out []models.Media
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func relJSON(b []byte) string {
	if string(b) == "null" {
		return "[]"
	}
	return string(b)
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func orEmptyEdges(s []models.RelationEdge) []models.RelationEdge {
	if s == nil {
		return []models.RelationEdge{}
	}
	return s
}

func orEmptyLinks(s []models.CharacterLink) []models.CharacterLink {
	if s == nil {
		return []models.CharacterLink{}
	}
	return s
}
