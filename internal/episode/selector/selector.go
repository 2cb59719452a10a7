// Package selector picks the clusters that anchor an episode: combined
// scoring with age decay, then a three-phase pass that guarantees topic
// diversity before filling the remaining slots by score.
package selector

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/podsmith/podsmith/internal/core/taxonomy"
)

// Candidate is the best article of one cluster, as surfaced by the
// candidate query. Exactly one candidate per cluster enters selection.
type Candidate struct {
	ArticleID    string
	ClusterID    string
	URL          string
	Title        string
	Summary      string
	Category     string
	Subcategory  string
	Tags         []string
	Importance   float64
	ArticleCount int
	PublishedAt  time.Time
}

// Preferences is the user's topic subscription.
type Preferences struct {
	Subcategories []string
	CustomTags    []string
}

// Options tunes scoring and the diversity guarantees.
type Options struct {
	CoverageBoost      float64
	DecayOverrides     map[string]float64
	WorldNewsGuarantee int
}

const (
	defaultCoverageBoost = 17.0
	worldNewsGuarantee   = 2
)

// CombinedScore boosts a cluster's importance by how widely it is
// covered and decays it by the age of its best article:
//
//	(importance + boost * ln(max(count, 1))) * exp(-age_hours * decay)
//
// where decay depends on the candidate's category.
func CombinedScore(c Candidate, now time.Time, opts Options) float64 {
	boost := opts.CoverageBoost
	if boost == 0 {
		boost = defaultCoverageBoost
	}

	count := c.ArticleCount
	if count < 1 {
		count = 1
	}

	decay := taxonomy.DecayRate(c.Category)
	if override, ok := opts.DecayOverrides[c.Category]; ok {
		decay = override
	}

	ageHours := now.Sub(c.PublishedAt).Hours()
	if ageHours < 0 {
		ageHours = 0
	}

	return (c.Importance + boost*math.Log(float64(count))) * math.Exp(-ageHours*decay)
}

type scored struct {
	Candidate
	combined float64
}

// Select returns up to target candidates matching the preferences.
//
// Phase 1 guarantees one slot per custom tag and two world-news slots
// when any world region was requested. Phase 2a guarantees one slot per
// requested non-region subcategory. Phase 2b fills the rest by combined
// score. The result is ordered by raw importance descending.
func Select(candidates []Candidate, prefs Preferences, target int, now time.Time, opts Options, logger *zerolog.Logger) []Candidate {
	pool := make([]scored, 0, len(candidates))

	for _, c := range candidates {
		if !matchesPreferences(c, prefs) {
			continue
		}

		pool = append(pool, scored{Candidate: c, combined: CombinedScore(c, now, opts)})
	}

	// Deterministic order: combined desc, then fresher first, then id.
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].combined != pool[j].combined {
			return pool[i].combined > pool[j].combined
		}

		if !pool[i].PublishedAt.Equal(pool[j].PublishedAt) {
			return pool[i].PublishedAt.After(pool[j].PublishedAt)
		}

		return pool[i].ClusterID < pool[j].ClusterID
	})

	taken := make(map[string]bool, target)

	var picked []scored

	take := func(s scored) {
		taken[s.ClusterID] = true

		picked = append(picked, s)
	}

	// Phase 1a: one cluster per custom tag. Casing variants of the
	// same tag collapse to a single guarantee.
	for _, tag := range dedupeFold(prefs.CustomTags) {
		found := false

		for _, s := range pool {
			if !taken[s.ClusterID] && taxonomy.MatchesTag(s.Tags, tag) {
				take(s)

				found = true

				break
			}
		}

		if !found && logger != nil {
			logger.Debug().Str("tag", tag).Msg("no candidate matches custom tag")
		}
	}

	// Phase 1b: guaranteed world-news clusters when any region was
	// requested.
	if wantsWorldNews(prefs.Subcategories) {
		remaining := opts.WorldNewsGuarantee
		if remaining == 0 {
			remaining = worldNewsGuarantee
		}

		for _, s := range pool {
			if remaining == 0 {
				break
			}

			if !taken[s.ClusterID] && taxonomy.IsWorldRegion(s.Subcategory) {
				take(s)

				remaining--
			}
		}
	}

	// Phase 2a: one cluster per requested non-region subcategory that is
	// still unrepresented.
	for _, sub := range prefs.Subcategories {
		if taxonomy.IsWorldRegion(sub) || covered(picked, sub) {
			continue
		}

		for _, s := range pool {
			if !taken[s.ClusterID] && strings.EqualFold(s.Subcategory, sub) {
				take(s)

				break
			}
		}
	}

	// Phase 2b: fill to target by combined score.
	for _, s := range pool {
		if len(picked) >= target {
			break
		}

		if !taken[s.ClusterID] {
			take(s)
		}
	}

	if len(picked) > target {
		picked = picked[:target]
	}

	sort.SliceStable(picked, func(i, j int) bool {
		return picked[i].Importance > picked[j].Importance
	})

	result := make([]Candidate, len(picked))
	for i, s := range picked {
		result[i] = s.Candidate
	}

	return result
}

// matchesPreferences applies the inclusion rule: the candidate's
// subcategory is subscribed, or one of its tags equals a custom tag.
func matchesPreferences(c Candidate, prefs Preferences) bool {
	for _, sub := range prefs.Subcategories {
		if strings.EqualFold(c.Subcategory, sub) {
			return true
		}
	}

	for _, tag := range prefs.CustomTags {
		if taxonomy.MatchesTag(c.Tags, tag) {
			return true
		}
	}

	return false
}

func dedupeFold(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))

	for _, v := range values {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" || seen[key] {
			continue
		}

		seen[key] = true

		out = append(out, v)
	}

	return out
}

func wantsWorldNews(subcategories []string) bool {
	for _, sub := range subcategories {
		if taxonomy.IsWorldRegion(sub) {
			return true
		}
	}

	return false
}

func covered(picked []scored, subcategory string) bool {
	for _, s := range picked {
		if strings.EqualFold(s.Subcategory, subcategory) {
			return true
		}
	}

	return false
}
