package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
account_capital: 100000
max_risk_per_trade: 0.01
commission_rate: 0.0005
slippage_rate: 0.0002
symbols: [NIFTY, BANKNIFTY]
data:
  root: testdata
exit:
  trailing_pct: 0.015
  partial_levels:
    - pct: 0.02
      fraction: 0.5
  max_holding_bars: 20
strategies:
  price_breakout:
    enabled: true
    params:
      lookback: 20
  rsi_mean_reversion:
    enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ValidConfigAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))

	require.NoError(t, err)
	assert.Equal(t, 100000.0, cfg.AccountCapital)
	assert.Equal(t, DefaultWarmupBars, cfg.WarmupBars)
	assert.Equal(t, DefaultKellyFractionCap, cfg.Risk.KellyFractionCap)
	assert.Equal(t, DefaultVIXHigh, cfg.Regime.VIXHigh)
	assert.Equal(t, []string{"NIFTY", "BANKNIFTY"}, cfg.Symbols)
	assert.Equal(t, 0.015, cfg.Exit.TrailingPct)
	require.Len(t, cfg.Exit.PartialLevels, 1)
	assert.Equal(t, 0.5, cfg.Exit.PartialLevels[0].Fraction)
}

func TestLoad_MissingCapitalNamesKey(t *testing.T) {
	body := `
max_risk_per_trade: 0.01
symbols: [NIFTY]
data:
  root: testdata
`
	_, err := Load(writeConfig(t, body))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "account_capital")
}

func TestLoad_MissingSymbolsFails(t *testing.T) {
	body := `
account_capital: 100000
max_risk_per_trade: 0.01
data:
  root: testdata
`
	_, err := Load(writeConfig(t, body))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "symbols")
}

func TestLoad_ExcessPartialFractionsFail(t *testing.T) {
	body := `
account_capital: 100000
max_risk_per_trade: 0.01
symbols: [NIFTY]
data:
  root: testdata
exit:
  partial_levels:
    - {pct: 0.02, fraction: 0.7}
    - {pct: 0.05, fraction: 0.7}
`
	_, err := Load(writeConfig(t, body))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "partial_levels")
}

func TestLoad_UnreadableFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAMLFails(t *testing.T) {
	_, err := Load(writeConfig(t, "symbols: [unclosed"))
	assert.Error(t, err)
}

func TestEnabledStrategies(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))

	require.NoError(t, err)
	assert.Equal(t, []string{"price_breakout"}, cfg.EnabledStrategies())
}
