package media

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"animehub/pkg/models"
)

const characterColumns = `id, source_id, first_name, last_name, native_name,
	biography, gender, age, image, appearances, last_activity_at, created_at`

func (r *Repo) InsertCharacter(ctx context.Context, c *models.Character) error {
	appearances, _ := json.Marshal(orEmptyLinks(c.Appearances))
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO characters (`+characterColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.SourceID, c.FirstName, c.LastName, c.NativeName,
		c.Biography, c.Gender, c.Age, c.Image, string(appearances),
		c.LastActivityAt, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert character: %w", err)
	}
	return nil
}

// GetCharacter returns (nil, nil) when the id does not exist.
func (r *Repo) GetCharacter(ctx context.Context, id string) (*models.Character, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+characterColumns+`
		FROM characters
		WHERE id = ?
	`, id)
	return scanCharacter(row)
}

func (r *Repo) ListCharacters(ctx context.Context, q string, limit, offset int) ([]models.Character, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where := ""
	args := []any{}
	if strings.TrimSpace(q) != "" {
		where = `WHERE LOWER(first_name || ' ' || last_name) LIKE ?`
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(q))+"%")
	}
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+characterColumns+`
		FROM characters `+where+`
		ORDER BY id ASC LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	defer rows.Close()

	var out []models.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// SetAppearances rewrites a character's appearance list in a single UPDATE.
func (r *Repo) SetAppearances(ctx context.Context, id string, links []models.CharacterLink) error {
	b, _ := json.Marshal(orEmptyLinks(links))
	res, err := r.DB.ExecContext(ctx, `
		UPDATE characters SET appearances = ?, last_activity_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, string(b), id)
	if err != nil {
		return fmt.Errorf("set appearances: %w", err)
	}
	return requireRow(res, id)
}

func scanCharacter(row rowScanner) (*models.Character, error) {
	var (
		c           models.Character
		sourceID    sql.NullInt64
		first, last sql.NullString
		native      sql.NullString
		bio         sql.NullString
		gender, age sql.NullString
		image       sql.NullString
		appearances string
		activity    time.Time
		created     time.Time
	)

	err := row.Scan(
		&c.ID, &sourceID, &first, &last, &native,
		&bio, &gender, &age, &image, &appearances,
		&activity, &created,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan character: %w", err)
	}

	if sourceID.Valid {
		c.SourceID = int(sourceID.Int64)
	}
	c.FirstName = first.String
	c.LastName = last.String
	c.NativeName = native.String
	c.Biography = bio.String
	c.Gender = gender.String
	c.Age = age.String
	c.Image = image.String
	c.LastActivityAt = activity
	c.CreatedAt = created

	_ = json.Unmarshal([]byte(appearances), &c.Appearances)
	return &c, nil
}
