package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsMalformedDSN(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz", 4)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}
