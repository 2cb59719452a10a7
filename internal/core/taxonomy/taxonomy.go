// Package taxonomy defines the fixed category tree used for clustering,
// episode assembly order, and freshness decay.
package taxonomy

import (
	"golang.org/x/text/cases"
)

// GeneralCategory is assigned when the judge returns an unknown subcategory.
const GeneralCategory = "General"

// WorldNews is the category whose subcategories are world regions.
const WorldNews = "World News"

// CategoryOrder is the fixed ordering of categories in an episode.
var CategoryOrder = []string{
	WorldNews,
	"Politics & Government",
	"Business",
	"Technology",
	"Science & Environment",
	"Sports",
	"Arts & Culture",
	"Health",
	"Lifestyle",
}

// Subcategories maps each category to its allowed subcategories.
var Subcategories = map[string][]string{
	WorldNews: {
		"Africa", "Asia", "Europe", "Middle East",
		"North America", "South America", "Oceania",
	},
	"Politics & Government": {
		"US Politics", "International Politics", "Elections",
		"Policy & Legislation", "Government Affairs",
	},
	"Business": {
		"Markets", "Corporations & Earnings",
		"Startups & Entrepreneurship", "Economy and Policy",
	},
	"Technology": {
		"AI & Machine Learning", "Gadgets & Consumer Tech",
		"Software & Apps", "Cybersecurity", "Hardware & Infrastructure",
	},
	"Science & Environment": {
		"Space & Astronomy", "Biology", "Physics & Chemistry",
		"Research & Academia", "Climate & Weather", "Sustainability",
		"Conservation & Wildlife",
	},
	"Sports": {
		"Football (Soccer)", "American Football", "Basketball", "Baseball",
		"Cricket", "Tennis", "F1", "Boxing", "MMA", "Golf", "Ice hockey",
		"Rugby", "Volleyball", "Table Tennis (Ping Pong)", "Athletics",
	},
	"Arts & Culture": {
		"Celebrity News", "Gaming", "Film & TV", "Music",
		"Literature", "Art & Design", "Fashion",
	},
	"Health": {
		"Public Health", "Medicine & Healthcare",
		"Fitness & Wellness", "Mental Health",
	},
	"Lifestyle": {
		"Travel", "Food & Dining", "Home & Garden",
		"Relationships & Family", "Hobbies",
	},
}

// Hourly exponential decay rates per category. Higher decays faster.
const defaultDecayRate = 0.02

var decayRates = map[string]float64{
	WorldNews:               0.05,
	"Politics & Government": 0.02,
	"Business":              0.025,
	"Technology":            0.01,
	"Science & Environment": 0.005,
	"Sports":                0.03,
	"Arts & Culture":        0.005,
	"Health":                0.008,
	"Lifestyle":             0.005,
}

var subcategoryToCategory = buildSubcategoryIndex()

func buildSubcategoryIndex() map[string]string {
	index := make(map[string]string)

	for category, subs := range Subcategories {
		for _, sub := range subs {
			index[foldKey(sub)] = category
		}
	}

	return index
}

var keyFolder = cases.Fold()

// foldKey normalizes a subcategory or tag for case-insensitive lookup.
func foldKey(s string) string {
	return keyFolder.String(s)
}

// CategoryFor returns the category owning the given subcategory, and
// whether the subcategory is known. Unknown subcategories map to
// GeneralCategory.
func CategoryFor(subcategory string) (string, bool) {
	category, ok := subcategoryToCategory[foldKey(subcategory)]
	if !ok {
		return GeneralCategory, false
	}

	return category, true
}

// CanonicalSubcategory returns the canonical spelling for a subcategory,
// or the empty string when unknown.
func CanonicalSubcategory(subcategory string) string {
	category, ok := subcategoryToCategory[foldKey(subcategory)]
	if !ok {
		return ""
	}

	for _, sub := range Subcategories[category] {
		if foldKey(sub) == foldKey(subcategory) {
			return sub
		}
	}

	return ""
}

// DecayRate returns the hourly decay rate for a category.
func DecayRate(category string) float64 {
	if rate, ok := decayRates[category]; ok {
		return rate
	}

	return defaultDecayRate
}

// IsWorldRegion reports whether the subcategory is one of the world regions.
func IsWorldRegion(subcategory string) bool {
	category, ok := subcategoryToCategory[foldKey(subcategory)]

	return ok && category == WorldNews
}

// CategoryRank returns the position of a category in CategoryOrder.
// Unknown categories sort last.
func CategoryRank(category string) int {
	for i, c := range CategoryOrder {
		if c == category {
			return i
		}
	}

	return len(CategoryOrder)
}

// MatchesTag reports whether any of the article tags matches the custom
// tag, ignoring case.
func MatchesTag(tags []string, custom string) bool {
	want := foldKey(custom)

	for _, tag := range tags {
		if foldKey(tag) == want {
			return true
		}
	}

	return false
}

// AllSubcategories returns every known subcategory in category order.
func AllSubcategories() []string {
	var all []string

	for _, category := range CategoryOrder {
		all = append(all, Subcategories[category]...)
	}

	return all
}
