package lysbilde

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportedLanguages(t *testing.T) {
	langs := supportedLanguages()
	assert.Contains(t, langs, "en")
	assert.Contains(t, langs, "zh_CN")
	assert.IsIncreasing(t, langs)
}

func TestTranslationsComplete(t *testing.T) {
	// Every language must cover exactly the keys English defines.
	en := translations["en"]
	require.NotEmpty(t, en)

	for lang, table := range translations {
		if lang == "en" {
			continue
		}
		for key := range en {
			assert.Contains(t, table, key, "%s missing key %s", lang, key)
		}
		for key := range table {
			assert.Contains(t, en, key, "%s has extra key %s", lang, key)
		}
	}
}
