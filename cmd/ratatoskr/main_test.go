package main

import (
	"flag"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func runSetupLogger(t *testing.T, level string) error {
	t.Helper()
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("log-level", level, "")
	return setupLogger(cli.NewContext(cli.NewApp(), set, nil))
}

func TestSetupLogger(t *testing.T) {
	original := slog.Default()
	t.Cleanup(func() { slog.SetDefault(original) })

	t.Run("valid levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
			assert.NoError(t, runSetupLogger(t, level), "level %q", level)
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		err := runSetupLogger(t, "loud")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})
}

func TestIngestCommandRequiresArgs(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	set.String("config", "config.yaml", "")
	err := ingestCommand(cli.NewContext(cli.NewApp(), set, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one path or URL")
}
