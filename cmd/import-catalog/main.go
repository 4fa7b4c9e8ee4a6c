// Imports one media entry from the external catalog, either by external id
// or by title search.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"animehub/internal/catalog"
	"animehub/internal/media"
	"animehub/internal/reconcile"
	"animehub/pkg/database"
	"animehub/pkg/models"
)

func main() {
	kindFlag := flag.String("kind", "anime", "media kind: anime | manga")
	id := flag.Int("id", 0, "external catalog id")
	title := flag.String("title", "", "free-text title search (used when -id is 0)")
	flag.Parse()

	var kind models.MediaKind
	switch strings.ToLower(*kindFlag) {
	case "anime":
		kind = models.KindAnime
	case "manga":
		kind = models.KindManga
	default:
		log.Fatalf("unknown kind %q", *kindFlag)
	}
	if *id == 0 && strings.TrimSpace(*title) == "" {
		log.Fatal("either -id or -title is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	client := catalog.NewClient()

	var rec *catalog.CanonicalRecord
	var err error
	if *id != 0 {
		rec, err = client.FetchByID(ctx, kind, *id)
	} else {
		rec, err = client.SearchByTitle(ctx, kind, *title)
	}
	if err != nil {
		log.Fatalf("catalog fetch failed: %v", err)
	}
	if rec == nil {
		log.Fatal("catalog has no match")
	}

	repo := media.NewRepo(db)
	if existing, err := repo.GetMediaBySourceID(ctx, kind, rec.ID); err != nil {
		log.Fatalf("lookup failed: %v", err)
	} else if existing != nil {
		log.Printf("already tracked as %s", existing.ID)
		return
	}

	m := reconcile.FromCanonical(kind, rec)
	if err := repo.InsertMedia(ctx, m); err != nil {
		log.Fatalf("insert failed: %v", err)
	}

	log.Printf("imported %s %q as %s (source id %d)", kind, m.Title.Romaji, m.ID, m.SourceID)
}
