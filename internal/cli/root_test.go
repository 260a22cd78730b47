package cli

import (
	"testing"

	"github.com/raphaelgruber/sidekick/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()

	cfgFlag := flags.Lookup("config")
	require.NotNil(t, cfgFlag)
	assert.Equal(t, config.DefaultPath, cfgFlag.DefValue)
	assert.Equal(t, "c", cfgFlag.Shorthand)

	for _, name := range []string{"verbose", "dry-run"} {
		f := flags.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, "false", f.DefValue, name)
	}
}

func TestRootSubcommands(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"chat", "list", "export", "import"})
}
