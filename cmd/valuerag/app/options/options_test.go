package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerOptionsFlags(t *testing.T) {
	fss := NewServerOptions().Flags()

	assert.Equal(t, "http", fss.Order[0])
	for _, name := range []string{"http.addr", "embedding.model", "chat.model", "agent.max-iterations", "thesis.pdf-dir", "ingest.data-dir", "shutdown-timeout"} {
		found := false
		for _, fs := range fss.FlagSets {
			if fs.Lookup(name) != nil {
				found = true
				break
			}
		}
		assert.True(t, found, "flag %s not registered", name)
	}
}

func TestServerOptionsCompleteAndConfig(t *testing.T) {
	o := NewServerOptions()
	o.ThesisOptions.Tickers = nil
	o.IngestOptions.LinksFile = ""

	require.NoError(t, o.Complete())
	assert.NotEmpty(t, o.ThesisOptions.Tickers)
	assert.NotEmpty(t, o.IngestOptions.LinksFile)

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Same(t, o.HTTPOptions, cfg.HTTPOptions)
	assert.Equal(t, o.ShutdownTimeout, cfg.ShutdownTimeout)
}

func TestServerOptionsValidate(t *testing.T) {
	o := NewServerOptions()
	o.ShutdownTimeout = 0
	o.IngestOptions.YtDlpBinary = ""

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shutdown-timeout")
	assert.Contains(t, err.Error(), "ytdlp-binary")
}
