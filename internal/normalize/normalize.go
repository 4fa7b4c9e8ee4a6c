// Package normalize maps the external catalog's enumeration codes into the
// internal taxonomy. Unknown codes fall back to a per-table default instead
// of failing: the catalog grows new values faster than this taxonomy, and a
// sweep should not abort over a vocabulary gap.
package normalize

// Table pairs a code mapping with its fallback value.
type Table struct {
	values   map[string]string
	fallback string
}

// Lookup translates an external code, returning the table's fallback for
// anything unrecognized (including the empty string).
func (t Table) Lookup(external string) string {
	if v, ok := t.values[external]; ok {
		return v
	}
	return t.fallback
}

// Known reports whether the code is in the table, for callers that need to
// tell a real value from a fallback.
func (t Table) Known(external string) bool {
	_, ok := t.values[external]
	return ok
}

var Status = Table{
	values: map[string]string{
		"RELEASING":        "Currently Releasing",
		"FINISHED":         "Finished Releasing",
		"NOT_YET_RELEASED": "Not Yet Released",
		"CANCELLED":        "Cancelled",
		"HIATUS":           "Hiatus",
	},
	fallback: "Currently Releasing",
}

var Format = Table{
	values: map[string]string{
		"TV":       "TV",
		"TV_SHORT": "TV Short",
		"MOVIE":    "Movie",
		"SPECIAL":  "Special",
		"OVA":      "OVA",
		"ONA":      "ONA",
		"MUSIC":    "Music",
		"MANGA":    "Manga",
		"NOVEL":    "Light Novel",
		"ONE_SHOT": "One Shot",
	},
	fallback: "TV",
}

var Source = Table{
	values: map[string]string{
		"MANGA":        "Manga",
		"ORIGINAL":     "Original",
		"LIGHT_NOVEL":  "Light Novel",
		"VISUAL_NOVEL": "Visual Novel",
		"VIDEO_GAME":   "Video Game",
		"OTHER":        "Other",
		"NOVEL":        "Novel",
		"DOUJINSHI":    "Doujinshi",
		"ANIME":        "Anime",
		"ONE_SHOT":     "One Shot",
	},
	fallback: "Original",
}

var Country = Table{
	values: map[string]string{
		"JP": "Japan",
		"KR": "South Korea",
		"CN": "China",
		"TW": "Taiwan",
	},
	fallback: "Japan",
}
