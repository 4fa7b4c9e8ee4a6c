// Package airing recomputes the next-occurrence state of a releasing anime.
// Episodes air on a fixed weekly period; if the poller was down for several
// periods the recompute jumps straight to the next still-future occurrence.
package airing

import (
	"time"

	"animehub/pkg/models"
)

// Period is the fixed gap between occurrences for the weekly airing case.
const Period = 7 * 24 * time.Hour

// Recompute advances a recurring event past now. If the stored occurrence is
// still in the future nothing changes and changed is false. Otherwise the
// number of missed occurrences is floor(elapsed/period)+1: the "+1" steps
// over the occurrence that just elapsed, and the floor term covers every
// whole period missed on top of it. Episode numbers advance by the same
// count, keeping the sequence strictly increasing.
func Recompute(cur models.NextAiring, now time.Time, period time.Duration) (models.NextAiring, bool) {
	if period <= 0 {
		period = Period
	}

	elapsed := now.Unix() - cur.AiringAt
	if elapsed <= 0 {
		return cur, false
	}

	periodSec := int64(period / time.Second)
	missed := elapsed/periodSec + 1

	next := models.NextAiring{
		AiringAt: cur.AiringAt + missed*periodSec,
		Episode:  cur.Episode + int(missed),
	}
	return next, true
}

// TimeUntil reports the seconds remaining until the occurrence, negative if
// it already elapsed.
func TimeUntil(cur models.NextAiring, now time.Time) int64 {
	return cur.AiringAt - now.Unix()
}
