package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	require.Equal(t, "2 eggs whisk well", normalizeText("  2 Eggs;\n\nwhisk   WELL!! "))
	require.Equal(t, cacheKey("Pancakes: flour, milk."), cacheKey("pancakes flour milk"))
	require.NotEqual(t, cacheKey("pancakes"), cacheKey("waffles"))
}

func TestNormalizeCodes(t *testing.T) {
	require.Equal(t, []string{"gluten_free", "vegan", "tree_nut"}, normalizeCodes([]string{"Gluten Free", "vegan", "gluten-free", " ", "Tree nut"}))
}
