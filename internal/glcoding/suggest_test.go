package glcoding

import (
	"testing"

	"github.com/stretchr/testify/require"
)

var chart = []Account{
	{Code: "6100", Name: "Office Supplies", Category: "office_supplies"},
	{Code: "6110", Name: "Printing", Category: "Office_Supplies"},
	{Code: "6120", Name: "Stationery", Category: "office_supplies"},
	{Code: "6130", Name: "Postage", Category: "office_supplies"},
	{Code: "6500", Name: "Software Licenses", Category: "software"},
}

func TestSuggestPicksBestCategory(t *testing.T) {
	s := New(nil)
	got, err := s.Suggest("Copy PAPER and envelopes for the office", chart)
	require.NoError(t, err)
	require.Equal(t, "office_supplies", got.Category)
	require.Equal(t, "6100", got.Account.Code)
	require.Equal(t, 1.0, got.Confidence)
	require.Len(t, got.Alternatives, 2)
	require.Equal(t, "6110", got.Alternatives[0].Code)
}

func TestSuggestConfidenceScalesWithHits(t *testing.T) {
	got, err := New(nil).Suggest("Adobe renewal", chart)
	require.NoError(t, err)
	require.Equal(t, "6500", got.Account.Code)
	require.InDelta(t, 1.0/3.0, got.Confidence, 1e-9)
	require.Empty(t, got.Alternatives)
}

func TestSuggestFailures(t *testing.T) {
	_, err := New(nil).Suggest("Widgets", chart)
	require.ErrorIs(t, err, ErrNoCategory)

	got, err := New(nil).Suggest("Hotel stay", chart)
	require.ErrorIs(t, err, ErrNoAccount)
	require.Equal(t, "travel", got.Category)
}

func TestCategoryTiesKeepTableOrder(t *testing.T) {
	category, hits := New(nil).Category("laptop license")
	require.Equal(t, "computer_equipment", category)
	require.Equal(t, 1, hits)
}
