package checkout

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/freshfork/mealkit-backend/pkg/types"
)

func TestTruncateMetadata(t *testing.T) {
	short := "small value"
	assert.Equal(t, short, truncateMetadata(short))

	long := strings.Repeat("x", maxMetadataValueLen+50)
	got := truncateMetadata(long)
	assert.Len(t, got, maxMetadataValueLen)

	// A multibyte rune straddling the cut point must not be split.
	straddling := strings.Repeat("a", maxMetadataValueLen-1) + "ééééé"
	got = truncateMetadata(straddling)
	assert.LessOrEqual(t, len(got), maxMetadataValueLen)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxMetadataValueLen-1), got)
}

func TestSummarizeCart(t *testing.T) {
	summary := summarizeCart(types.CartSnapshot{Items: []types.CartItem{
		{ProductID: "box-3", Qty: 2},
	}})
	assert.Contains(t, summary, `"product_id":"box-3"`)
	assert.Contains(t, summary, `"qty":2`)
}
