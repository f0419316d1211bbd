package keys

import (
	"regexp"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKeyDeterministic(t *testing.T) {
	a, err := BuildKey("What is Article 5?", ChatParams{Model: "openai", Lang: "en"})
	require.NoError(t, err)
	b, err := BuildKey("What is Article 5?", ChatParams{Lang: "en", Model: "openai"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildKeyShape(t *testing.T) {
	key, err := BuildKey("What is Article 5?", ChatParams{Model: "openai", Lang: "en"})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^chat:[0-9a-f]{16}:lang=en:model=openai$`), key)
}

func TestBuildKeyNormalizesQuery(t *testing.T) {
	a, err := BuildKey("What is Article 5?", ArticleParams{})
	require.NoError(t, err)
	b, err := BuildKey("  what is article 5?  ", ArticleParams{})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildKeyParamValueChangesKey(t *testing.T) {
	en, err := BuildKey("query", ChatParams{Model: "openai", Lang: "en"})
	require.NoError(t, err)
	de, err := BuildKey("query", ChatParams{Model: "openai", Lang: "de"})
	require.NoError(t, err)
	assert.NotEqual(t, en, de)

	other, err := BuildKey("query", ChatParams{Model: "anthropic", Lang: "en"})
	require.NoError(t, err)
	assert.NotEqual(t, en, other)
}

func TestBuildKeyQueryChangesKey(t *testing.T) {
	a, err := BuildKey("first query", SearchParams{Lang: "en", Limit: 10})
	require.NoError(t, err)
	b, err := BuildKey("second query", SearchParams{Lang: "en", Limit: 10})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestBuildKeyOmitsZeroValues(t *testing.T) {
	key, err := BuildKey("gdpr consent", SearchParams{Lang: "en"})
	require.NoError(t, err)
	// No placeholder token for the omitted limit.
	assert.NotContains(t, key, "limit")
	assert.Regexp(t, regexp.MustCompile(`^search:[0-9a-f]{16}:lang=en$`), key)

	bare, err := BuildKey("gdpr consent", SearchParams{})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^search:[0-9a-f]{16}$`), bare)
}

func TestBuildKeyLimitIncluded(t *testing.T) {
	key, err := BuildKey("gdpr consent", SearchParams{Lang: "en", Limit: 10})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^search:[0-9a-f]{16}:lang=en:limit=10$`), key)
}

func TestBuildKeyEmptyQuery(t *testing.T) {
	_, err := BuildKey("", ChatParams{Model: "openai"})
	assert.True(t, errors.Is(err, ErrEmptyQuery))

	_, err = BuildKey("   ", ChatParams{Model: "openai"})
	assert.True(t, errors.Is(err, ErrEmptyQuery))
}

func TestBuildKeyNilParams(t *testing.T) {
	_, err := BuildKey("query", nil)
	assert.True(t, errors.Is(err, ErrInvalidNamespace))
}

func TestBuildKeyRejectsDelimiterInValue(t *testing.T) {
	_, err := BuildKey("query", ChatParams{Model: "openai:gpt-4", Lang: "en"})
	assert.True(t, errors.Is(err, ErrInvalidParamValue))

	_, err = BuildKey("query", ChatParams{Model: "openai*", Lang: "en"})
	assert.True(t, errors.Is(err, ErrInvalidParamValue))
}

func TestFingerprintWidth(t *testing.T) {
	for _, q := range []string{"a", "What is Article 5?", "a much longer query about data portability rights under the regulation"} {
		fp := Fingerprint(q)
		assert.Len(t, fp, 16)
		assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{16}$`), fp)
	}
}

func TestNamespaceValid(t *testing.T) {
	for _, ns := range Namespaces() {
		assert.True(t, ns.Valid())
	}
	assert.False(t, Namespace("bogus").Valid())
	assert.False(t, Namespace("").Valid())
}

func TestNamespacePattern(t *testing.T) {
	assert.Equal(t, "chat:*", NamespaceChat.Pattern())
	assert.Equal(t, "explanation:*", NamespaceExplain.Pattern())
}
