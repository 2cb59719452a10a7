package links

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
<title>Fallback Title</title>
<meta property="og:title" content="Quake Strikes Coastal Region">
<meta name="description" content="A strong earthquake struck early Monday.">
<meta name="author" content="Jane Reporter">
<meta property="article:published_time" content="2026-08-24T06:00:00Z">
</head>
<body>
<article>
<h1>Quake Strikes Coastal Region</h1>
<p>A strong earthquake struck the coastal region early on Monday morning,
damaging buildings and cutting power to thousands of homes. Officials said
rescue teams were deployed within the hour and no casualties had been
confirmed so far.</p>
<p>The tremor, measured at magnitude 6.1, was felt across three provinces.
Authorities urged residents to stay away from damaged structures while
inspections continue through the week.</p>
</article>
</body>
</html>`

func TestExtractWebContent(t *testing.T) {
	content, err := ExtractWebContent([]byte(articleHTML), "https://news.example.com/quake", 5000)
	require.NoError(t, err)

	assert.Contains(t, content.Title, "Quake Strikes")
	assert.Contains(t, content.Content, "magnitude 6.1")
	assert.Greater(t, content.WordCount, 30)
	assert.Equal(t, 2026, content.PublishedAt.Year())
}

func TestExtractWebContentTruncates(t *testing.T) {
	content, err := ExtractWebContent([]byte(articleHTML), "https://news.example.com/quake", 40)
	require.NoError(t, err)

	assert.LessOrEqual(t, len([]rune(content.Content)), 40)
}

func TestExtractWebContentMetaFallback(t *testing.T) {
	page := `<html><head><title>Stub</title>
<meta name="description" content="Short stub page."></head><body></body></html>`

	content, err := ExtractWebContent([]byte(page), "https://news.example.com/stub", 5000)
	require.NoError(t, err)

	// A stub page yields little or no body text; the caller treats this
	// as an extraction failure via the length check.
	assert.Less(t, len(content.Content), 100)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace(" a\n\n b\t c "))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, strings.Repeat("x", 5), truncate(strings.Repeat("x", 9), 5))
	assert.Equal(t, "abc", truncate("abc", 0))
}
