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

func TestRedisOptsFromConfig(t *testing.T) {
	opts := redisOpts(&app.Config{RedisAddr: "cache:6379", RedisPassword: "pw", RedisDB: 2})
	require.Equal(t, "cache:6379", opts.Addr)
	require.Equal(t, "pw", opts.Password)
	require.Equal(t, 2, opts.DB)
}

func TestRunReturnsExitCodes(t *testing.T) {
	require.Equal(t, 2, run([]string{"bogus"}))

	t.Setenv("RATE_LIMIT", "0")
	require.Equal(t, 1, run([]string{"serve"}))
}
