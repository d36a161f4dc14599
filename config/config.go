package config

// Configuration of CoinRewardData. The usual format is HCL (CoinRewardData.hcl);
// YAML files are accepted as well, and a .env file plus COINREWARD_* variables
// override what the file sets.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"CoinRewardData/reward"
)

// DefaultFileName is read when no path is given.
const DefaultFileName = "CoinRewardData.hcl"

// ====================================
// Configuration File (CoinRewardData.hcl)
// ====================================
type Config struct {
	Provider        string `hcl:"provider,optional" yaml:"provider"`                 // Statistics provider, e.g. "whattomine"
	EndpointsUpdate *int   `hcl:"endpoints_update,optional" yaml:"endpoints_update"` // Minutes after the provider update before refreshing again
	BaseURL         string `hcl:"base_url,optional" yaml:"base_url"`                 // Override of the provider host
	HTTPTimeout     int    `hcl:"http_timeout,optional" yaml:"http_timeout"`         // Seconds
	Retries         int    `hcl:"retries,optional" yaml:"retries"`                   // Transport retries on 5xx/network errors
	DedupeRefresh   bool   `hcl:"dedupe_refresh,optional" yaml:"dedupe_refresh"`     // Share one refresh between concurrent callers
	Workers         int    `hcl:"workers,optional" yaml:"workers"`                   // Miners projected in parallel

	LogLevel  string `hcl:"log_level,optional" yaml:"log_level"`
	LogFormat string `hcl:"log_format,optional" yaml:"log_format"`
	LogFile   string `hcl:"log_file,optional" yaml:"log_file"`
	LogMaxAge int    `hcl:"log_max_age,optional" yaml:"log_max_age"` // Days

	Miners []Miner `hcl:"miner,block" yaml:"miners"`

	// Database (optional). History is recorded when Host is set.
	Host     string `hcl:"host,optional" yaml:"host"`         // The server hosting the database
	Port     string `hcl:"port,optional" yaml:"port"`         // The port of the database server
	Database string `hcl:"database,optional" yaml:"database"` // The database name
	User     string `hcl:"user,optional" yaml:"user"`         // The user to use for login to the database server
	Password string `hcl:"password,optional" yaml:"password"` // The user's password for login
	TimeZone string `hcl:"timezone,optional" yaml:"timezone"` // The time zone where the program is run

	// E-mail Server Settings (SMTP)
	EmailServer   string `hcl:"emailServer,optional" yaml:"emailServer"`
	EmailPort     string `hcl:"emailPort,optional" yaml:"emailPort"`
	EmailUser     string `hcl:"emailUser,optional" yaml:"emailUser"` // The user for login
	EmailPassword string `hcl:"emailPassword,optional" yaml:"emailPassword"`
	EmailFrom     string `hcl:"emailFrom,optional" yaml:"emailFrom"` // The from address
	EmailTo       string `hcl:"emailTo,optional" yaml:"emailTo"`     // The recipient
}

// Miner is a rig whose rewards are projected, e.g.
//
//	miner "BTC" {
//	  name     = "s19-01"
//	  hashrate = "110000000000000"
//	}
type Miner struct {
	Coin     string `hcl:"coin,label" yaml:"coin"`
	Name     string `hcl:"name,optional" yaml:"name"`
	Hashrate string `hcl:"hashrate" yaml:"hashrate"` // H/s, decimal string
}

// HashrateValue parses the configured hashrate.
func (m Miner) HashrateValue() (decimal.Decimal, error) {
	h, err := decimal.NewFromString(strings.TrimSpace(m.Hashrate))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("miner %s %q: invalid hashrate %q: %w", m.Coin, m.Name, m.Hashrate, err)
	}
	return h, nil
}

// Defaults returns the configuration used when no file exists.
func Defaults() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = "whattomine"
	}
	if c.EndpointsUpdate == nil {
		minutes := 4
		c.EndpointsUpdate = &minutes
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = 10
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	if c.LogMaxAge == 0 {
		c.LogMaxAge = 7
	}
}

// Load reads path (HCL, JSON or YAML by extension), then the .env file next
// to the working directory and the COINREWARD_* environment variables.
// A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	var c Config
	err := decodeFile(path, &c)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func decodeFile(path string, c *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("cannot read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("cannot parse YAML: %w", err)
		}
		return nil
	default:
		if err := hclsimple.DecodeFile(path, nil, c); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		return nil
	}
}

// applyEnv overrides file values with COINREWARD_* variables.
func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"COINREWARD_PROVIDER":   &c.Provider,
		"COINREWARD_BASE_URL":   &c.BaseURL,
		"COINREWARD_LOG_LEVEL":  &c.LogLevel,
		"COINREWARD_LOG_FORMAT": &c.LogFormat,
		"COINREWARD_LOG_FILE":   &c.LogFile,
		"COINREWARD_DB_HOST":    &c.Host,
		"COINREWARD_DB_PASS":    &c.Password,
		"COINREWARD_EMAIL_PASS": &c.EmailPassword,
	}
	for env, field := range strs {
		if v, ok := os.LookupEnv(env); ok {
			*field = v
		}
	}

	ints := map[string]*int{
		"COINREWARD_HTTP_TIMEOUT": &c.HTTPTimeout,
		"COINREWARD_RETRIES":      &c.Retries,
		"COINREWARD_WORKERS":      &c.Workers,
	}
	for env, field := range ints {
		if v, ok := os.LookupEnv(env); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: %w", env, err)
			}
			*field = n
		}
	}

	if v, ok := os.LookupEnv("COINREWARD_ENDPOINTS_UPDATE"); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("COINREWARD_ENDPOINTS_UPDATE: %w", err)
		}
		c.EndpointsUpdate = &n
	}
	if v, ok := os.LookupEnv("COINREWARD_DEDUPE_REFRESH"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("COINREWARD_DEDUPE_REFRESH: %w", err)
		}
		c.DedupeRefresh = b
	}
	return nil
}

// Validate checks values a provider cannot work with.
func (c *Config) Validate() error {
	if _, err := reward.ParseProviderType(c.Provider); err != nil {
		return err
	}
	if c.EndpointsUpdate != nil && *c.EndpointsUpdate < 0 {
		return fmt.Errorf("endpoints_update must not be negative, got %d", *c.EndpointsUpdate)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http_timeout must not be negative, got %d", c.HTTPTimeout)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for _, m := range c.Miners {
		if _, err := reward.ParseCoinType(m.Coin); err != nil {
			return fmt.Errorf("miner %q: %w", m.Name, err)
		}
		h, err := m.HashrateValue()
		if err != nil {
			return err
		}
		if h.IsNegative() {
			return fmt.Errorf("miner %s %q: hashrate must not be negative", m.Coin, m.Name)
		}
	}
	return nil
}

// RecordHistory reports whether a database is configured.
func (c *Config) RecordHistory() bool {
	return c.Host != ""
}
