package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animehub/pkg/apperr"
	"animehub/pkg/models"
)

func testClient(url string) *Client {
	c := NewClient()
	c.BaseURL = url
	return c
}

func TestFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 101, req.Variables["id"])
		assert.Equal(t, "ANIME", req.Variables["type"])

		_, _ = w.Write([]byte(`{"data":{"Media":{
			"id":101,
			"title":{"romaji":"Shingeki no Kyojin","english":"Attack on Titan","native":"進撃の巨人"},
			"status":"RELEASING",
			"format":"TV",
			"source":"MANGA",
			"countryOfOrigin":"JP",
			"startDate":{"year":2013,"month":4,"day":7},
			"endDate":{"year":null,"month":null,"day":null},
			"episodes":25,
			"duration":24,
			"genres":["Action","Drama"],
			"description":"Humanity fights.",
			"coverImage":{"large":"https://img.example/aot.png"},
			"nextAiringEpisode":{"airingAt":1700000000,"episode":13}
		}}}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL).FetchByID(context.Background(), models.KindAnime, 101)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 101, rec.ID)
	assert.Equal(t, "Attack on Titan", rec.Title.English)
	assert.Equal(t, "RELEASING", rec.Status)
	require.NotNil(t, rec.StartDate.Year)
	assert.Equal(t, 2013, *rec.StartDate.Year)
	assert.Nil(t, rec.EndDate.Year)
	require.NotNil(t, rec.NextAiring)
	assert.Equal(t, int64(1700000000), rec.NextAiring.AiringAt)
	assert.Equal(t, 13, rec.NextAiring.Episode)
}

func TestFetchByIDEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"Media":null}}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL).FetchByID(context.Background(), models.KindAnime, 999)
	require.NoError(t, err)
	assert.Nil(t, rec, "empty result is none, not an error")
}

func TestFetchByIDNotFoundStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"message":"Not Found.","status":404}],"data":{"Media":null}}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL).FetchByID(context.Background(), models.KindAnime, 999)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestFetchUnavailableOn5xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchByID(context.Background(), models.KindAnime, 1)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestFetchUnavailableOnRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).FetchByID(context.Background(), models.KindAnime, 1)
	assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for i := 0; i < 6; i++ {
		_, err := c.FetchByID(context.Background(), models.KindAnime, 1)
		assert.Equal(t, apperr.KindUnavailable, apperr.KindOf(err))
	}
}

func TestSearchByTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "berserk", req.Variables["search"])
		assert.Equal(t, "MANGA", req.Variables["type"])

		_, _ = w.Write([]byte(`{"data":{"Media":{
			"id":30002,
			"title":{"romaji":"Berserk"},
			"status":"RELEASING",
			"format":"MANGA",
			"source":"ORIGINAL",
			"countryOfOrigin":"JP",
			"chapters":0,
			"volumes":41,
			"genres":["Action"]
		}}}`))
	}))
	defer srv.Close()

	rec, err := testClient(srv.URL).SearchByTitle(context.Background(), models.KindManga, "berserk")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 30002, rec.ID)
	assert.Equal(t, 41, rec.Volumes)
	assert.Nil(t, rec.NextAiring)
}
