// Package catalog talks to the external canonical catalog (an
// AniList-compatible GraphQL API). The client is wrapped in a circuit
// breaker so a down catalog trips fast instead of burning a whole sweep on
// timeouts.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

const defaultBaseURL = "https://graphql.anilist.co"

const mediaQuery = `query ($id: Int, $search: String, $type: MediaType) {
  Media(id: $id, search: $search, type: $type) {
    id
    title { romaji english native }
    status
    format
    source
    countryOfOrigin
    startDate { year month day }
    endDate { year month day }
    episodes
    duration
    chapters
    volumes
    genres
    description
    coverImage { large }
    nextAiringEpisode { airingAt episode }
  }
}`

type Client struct {
	BaseURL string
	HTTP    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewClient() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 12 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "catalog",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// FetchByID requests the canonical record for one external id. Returns
// (nil, nil) when the catalog has no entry for the id; transport failures,
// rate limiting and 5xx surface as Unavailable.
func (c *Client) FetchByID(ctx context.Context, kind models.MediaKind, id int) (*CanonicalRecord, error) {
	return c.query(ctx, map[string]any{"id": id, "type": string(kind)})
}

// SearchByTitle requests the catalog's best match for a free-text title.
// Returns (nil, nil) on an empty result set.
func (c *Client) SearchByTitle(ctx context.Context, kind models.MediaKind, title string) (*CanonicalRecord, error) {
	return c.query(ctx, map[string]any{"search": title, "type": string(kind)})
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlResponse struct {
	Data struct {
		Media *wireMedia `json:"Media"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
		Status  int    `json:"status"`
	} `json:"errors"`
}

type wireMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Status    string   `json:"status"`
	Format    string   `json:"format"`
	Source    string   `json:"source"`
	Country   string   `json:"countryOfOrigin"`
	StartDate wireDate `json:"startDate"`
	EndDate   wireDate `json:"endDate"`
	Episodes  int      `json:"episodes"`
	Duration  int      `json:"duration"`
	Chapters  int      `json:"chapters"`
	Volumes   int      `json:"volumes"`
	Genres    []string `json:"genres"`
	Desc      string   `json:"description"`
	Cover     struct {
		Large string `json:"large"`
	} `json:"coverImage"`
	NextAiring *struct {
		AiringAt int64 `json:"airingAt"`
		Episode  int   `json:"episode"`
	} `json:"nextAiringEpisode"`
}

type wireDate struct {
	Year  *int `json:"year"`
	Month *int `json:"month"`
	Day   *int `json:"day"`
}

func (c *Client) query(ctx context.Context, vars map[string]any) (*CanonicalRecord, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.doQuery(ctx, vars)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, apperr.Unavailable("catalog circuit open", err)
		}
		return nil, err
	}
	rec, _ := res.(*CanonicalRecord)
	return rec, nil
}

func (c *Client) doQuery(ctx context.Context, vars map[string]any) (*CanonicalRecord, error) {
	body, err := json.Marshal(gqlRequest{Query: mediaQuery, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("catalog: marshal query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, apperr.Unavailable("catalog request failed", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	// 404 from this API means "no such media", delivered as a GraphQL error
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, apperr.Unavailable(fmt.Sprintf("catalog status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: status %d: %s", resp.StatusCode, string(raw))
	}

	var out gqlResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if out.Data.Media == nil {
		return nil, nil
	}
	return fromWire(out.Data.Media), nil
}

func fromWire(w *wireMedia) *CanonicalRecord {
	rec := &CanonicalRecord{
		ID: w.ID,
		Title: Titles{
			Romaji:  w.Title.Romaji,
			English: w.Title.English,
			Native:  w.Title.Native,
		},
		Status:      w.Status,
		Format:      w.Format,
		Source:      w.Source,
		Country:     w.Country,
		StartDate:   DateParts{Year: w.StartDate.Year, Month: w.StartDate.Month, Day: w.StartDate.Day},
		EndDate:     DateParts{Year: w.EndDate.Year, Month: w.EndDate.Month, Day: w.EndDate.Day},
		Episodes:    w.Episodes,
		Duration:    w.Duration,
		Chapters:    w.Chapters,
		Volumes:     w.Volumes,
		Genres:      w.Genres,
		Description: w.Desc,
		CoverImage:  w.Cover.Large,
	}
	if w.NextAiring != nil {
		rec.NextAiring = &AiringSeed{AiringAt: w.NextAiring.AiringAt, Episode: w.NextAiring.Episode}
	}
	return rec
}
