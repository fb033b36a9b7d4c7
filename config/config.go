package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultLedgerURL   = "http://localhost:8083"
	defaultRefCurrency = "USDT"
	defaultInterval    = 30 * time.Second
	defaultSnapshotDir = "./wal/balance"

	ledgerURLEnv = "LEDGER_API_URL"
	intervalEnv  = "UPDATE_BALANCE_INTERVAL_SEC"
	applyFeesEnv = "APPLY_PAPER_ORDER_FEES_IN_BALANCE"
)

// Config holds the reconciliation daemon settings.
type Config struct {
	LedgerURL         string
	ReferenceCurrency string
	Interval          time.Duration
	ApplyFees         bool
	SnapshotDir       string
}

type configTmp struct {
	LedgerURL         string `yaml:"ledger_url"`
	ReferenceCurrency string `yaml:"reference_currency"`
	IntervalSec       int    `yaml:"interval_sec"`
	ApplyFees         *bool  `yaml:"apply_fees"`
	SnapshotDir       string `yaml:"snapshot_dir"`
}

// Get assembles the configuration from defaults, an optional YAML file and
// flags, with environment variables taking precedence over everything.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	ledgerURL := flag.String("ledger-url", defaultLedgerURL, "base URL of the session ledger service")
	refCurrency := flag.String("ref-currency", defaultRefCurrency, "currency used to express portfolio value")
	interval := flag.Duration("interval", defaultInterval, "reconciliation interval")
	snapshotDir := flag.String("snapshot-dir", defaultSnapshotDir, "directory for the balance snapshot journal")
	flag.Parse()

	cfg := Config{
		LedgerURL:         *ledgerURL,
		ReferenceCurrency: *refCurrency,
		Interval:          *interval,
		ApplyFees:         true,
		SnapshotDir:       *snapshotDir,
	}

	if *configPath != "" {
		yamlCfg, err := getYaml(*configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = mergeYaml(cfg, yamlCfg)
	}

	cfg = applyEnv(cfg)

	if cfg.LedgerURL == "" {
		return Config{}, fmt.Errorf("ledger URL must not be empty")
	}
	if cfg.Interval <= 0 {
		return Config{}, fmt.Errorf("invalid interval: %s", cfg.Interval)
	}
	return cfg, nil
}

func getYaml(path string) (configTmp, error) {
	var tmp configTmp

	f, err := os.ReadFile(path)
	if err != nil {
		return configTmp{}, err
	}
	if err := yaml.Unmarshal(f, &tmp); err != nil {
		return configTmp{}, fmt.Errorf("incorrect yaml config %s: %w", path, err)
	}
	return tmp, nil
}

func mergeYaml(cfg Config, tmp configTmp) Config {
	if tmp.LedgerURL != "" {
		cfg.LedgerURL = tmp.LedgerURL
	}
	if tmp.ReferenceCurrency != "" {
		cfg.ReferenceCurrency = tmp.ReferenceCurrency
	}
	if tmp.IntervalSec > 0 {
		cfg.Interval = time.Duration(tmp.IntervalSec) * time.Second
	}
	if tmp.ApplyFees != nil {
		cfg.ApplyFees = *tmp.ApplyFees
	}
	if tmp.SnapshotDir != "" {
		cfg.SnapshotDir = tmp.SnapshotDir
	}
	return cfg
}

// applyEnv overlays the environment variables shared with the wider paper
// trading deployment, so the daemon follows the same knobs as its siblings.
func applyEnv(cfg Config) Config {
	if v := os.Getenv(ledgerURLEnv); v != "" {
		cfg.LedgerURL = v
	}
	if v := os.Getenv(intervalEnv); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.Interval = time.Duration(sec) * time.Second
		}
	}
	if v := os.Getenv(applyFeesEnv); v != "" {
		cfg.ApplyFees = v != "0" && v != "false" && v != "False"
	}
	return cfg
}
