package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/invoiceguard/internal/app"
	_ "github.com/odyssey-erp/invoiceguard/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())
	require.NotPanics(t, main)
}

func TestExecuteFailsOnInvalidConfig(t *testing.T) {
	t.Setenv("BATCH_WORKERS", "0")
	require.Equal(t, 1, execute())
}
