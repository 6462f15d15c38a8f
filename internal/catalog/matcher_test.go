package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var items = []Item{
	{SKU: "CW-10", Name: "Copper wire", Description: "10m spool"},
	{SKU: "SB-M8", Name: "Steel bolts", Description: "M8 zinc"},
	{SKU: "HP-2", Name: "Hydraulic pump"},
	{SKU: "BP-1", Name: "Blue paint"},
}

func TestMatchPicksMostSimilarItem(t *testing.T) {
	res := Match(Line{Description: "Steel bolts M8 zinc", SKU: "SB-M8"}, items)

	require.True(t, res.Matched)
	require.Equal(t, "SB-M8", res.Item.SKU)
	require.Equal(t, 1.0, res.Confidence)
	require.Equal(t, MethodTokenSet, res.Method)
	require.Empty(t, res.Suggestions)
}

func TestMatchOffersTopSuggestionsBelowThreshold(t *testing.T) {
	res := Match(Line{Description: "steel wire"}, items)

	require.False(t, res.Matched)
	require.Nil(t, res.Item)
	require.NotEmpty(t, res.Reason)
	require.Len(t, res.Suggestions, SuggestionLimit)
	// one shared token out of six for both the wire and the bolts; ties keep
	// catalog order
	require.Equal(t, "CW-10", res.Suggestions[0].Item.SKU)
	require.InDelta(t, 1.0/6.0, res.Suggestions[0].Score, 1e-9)
	require.Equal(t, "SB-M8", res.Suggestions[1].Item.SKU)
	require.InDelta(t, 1.0/6.0, res.Suggestions[1].Score, 1e-9)
	require.Equal(t, "HP-2", res.Suggestions[2].Item.SKU)
	require.Zero(t, res.Suggestions[2].Score)
}

func TestMatchEmptyCatalog(t *testing.T) {
	res := Match(Line{Description: "anything"}, nil)
	require.False(t, res.Matched)
	require.Equal(t, "no catalog items provided", res.Reason)
}
