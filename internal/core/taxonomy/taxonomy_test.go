package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		name        string
		subcategory string
		category    string
		known       bool
	}{
		{name: "exact match", subcategory: "Cybersecurity", category: "Technology", known: true},
		{name: "case insensitive", subcategory: "cybersecurity", category: "Technology", known: true},
		{name: "world region", subcategory: "Middle East", category: WorldNews, known: true},
		{name: "unknown maps to general", subcategory: "Horoscopes", category: GeneralCategory, known: false},
		{name: "empty", subcategory: "", category: GeneralCategory, known: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, known := CategoryFor(tt.subcategory)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestCanonicalSubcategory(t *testing.T) {
	assert.Equal(t, "AI & Machine Learning", CanonicalSubcategory("ai & machine learning"))
	assert.Equal(t, "", CanonicalSubcategory("not a subcategory"))
}

func TestDecayRate(t *testing.T) {
	assert.InDelta(t, 0.05, DecayRate(WorldNews), 1e-9)
	assert.InDelta(t, 0.005, DecayRate("Lifestyle"), 1e-9)
	// Unknown categories use the default rate.
	assert.InDelta(t, 0.02, DecayRate(GeneralCategory), 1e-9)
}

func TestCategoryRank(t *testing.T) {
	assert.Equal(t, 0, CategoryRank(WorldNews))
	assert.Less(t, CategoryRank("Business"), CategoryRank("Sports"))
	assert.Equal(t, len(CategoryOrder), CategoryRank("Unknown"))
}

func TestIsWorldRegion(t *testing.T) {
	assert.True(t, IsWorldRegion("Europe"))
	assert.True(t, IsWorldRegion("oceania"))
	assert.False(t, IsWorldRegion("Markets"))
}

func TestMatchesTag(t *testing.T) {
	tags := []string{"Artificial Intelligence", "OpenAI", "Regulation"}

	assert.True(t, MatchesTag(tags, "openai"))
	assert.True(t, MatchesTag(tags, "REGULATION"))
	assert.False(t, MatchesTag(tags, "open"))
	assert.False(t, MatchesTag(nil, "openai"))
}

func TestEverySubcategoryResolves(t *testing.T) {
	for _, sub := range AllSubcategories() {
		category, known := CategoryFor(sub)
		require.True(t, known, "subcategory %q must be known", sub)
		require.NotEqual(t, GeneralCategory, category)
		assert.Equal(t, sub, CanonicalSubcategory(sub))
	}
}
