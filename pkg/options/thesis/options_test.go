package thesis

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Empty(t, o.Validate())
	assert.Equal(t, "RACE", o.Tickers["Ferrari"])
	assert.Equal(t, 55.0, o.Multiples["NVDA"])
}

func TestTickerFlagOverrides(t *testing.T) {
	o := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"--thesis.tickers=Nike=NKE,Visa=V"}))
	assert.Equal(t, map[string]string{"Nike": "NKE", "Visa": "V"}, o.Tickers)
}

func TestValidateRanges(t *testing.T) {
	o := NewOptions()
	o.SummaryTopK = 3
	o.Multiples["BAD"] = 0
	assert.Len(t, o.Validate(), 2)
}
