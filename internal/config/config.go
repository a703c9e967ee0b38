// Package config loads service configuration from flags, LAUNCHPAD_*
// environment variables, an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"pumpcore/internal/creation"
	"pumpcore/internal/ingestion"
	"pumpcore/internal/ipfs"
	"pumpcore/internal/logging"
	"pumpcore/internal/units"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "LAUNCHPAD"

// Keys. Nested keys map to env vars with "." and "-" replaced by "_",
// e.g. pinata.api-key -> LAUNCHPAD_PINATA_API_KEY.
const (
	KeyRPCURL          = "rpc-url"
	KeyFactoryAddress  = "factory-address"
	KeyPrivateKey      = "private-key"
	KeyChainID         = "chain-id"
	KeyDeposit         = "deposit"
	KeyIPFSGateway     = "ipfs.gateway"
	KeyPinataAPIKey    = "pinata.api-key"
	KeyPinataSecret    = "pinata.secret"
	KeyPinataEndpoint  = "pinata.endpoint"
	KeyPostgresDSN     = "postgres-dsn"
	KeyPGMaxConns      = "postgres.max-conns"
	KeyPGMaxConnIdle   = "postgres.max-conn-idle"
	KeyClickhouseDSN   = "clickhouse-dsn"
	KeyUseMemory       = "use-memory"
	KeyHTTPAddr        = "http-addr"
	KeyIngestInterval  = "ingest-interval"
	KeyCacheTTL        = "cache-ttl"
	KeyTimezone        = "timezone"
	KeyListConcurrency = "list-concurrency"
	KeyLogLevel        = "log.level"
	KeyLogEncoding     = "log.encoding"
	KeyLogFile         = "log.file"
)

// Defaults.
const (
	DefaultHTTPAddr        = ":8080"
	DefaultCacheTTL        = 5 * time.Second
	DefaultTimezone        = "UTC"
	DefaultListConcurrency = 8
	DefaultPGMaxConns      = 10
	DefaultPGMaxConnIdle   = 5 * time.Minute
)

// Config is the resolved service configuration.
type Config struct {
	RPCURL         string
	FactoryAddress string
	PrivateKey     string // hex, optional; without it the service is read-only
	ChainID        int64  // chain the factory lives on; writes require it
	Deposit        string // initial createToken deposit in native units

	IPFSGateway    string
	PinataAPIKey   string
	PinataSecret   string
	PinataEndpoint string

	PostgresDSN   string
	PGMaxConns    int32
	PGMaxConnIdle time.Duration
	ClickhouseDSN string
	UseMemory     bool

	HTTPAddr        string
	IngestInterval  time.Duration
	CacheTTL        time.Duration
	Timezone        string
	ListConcurrency int

	Log logging.Config

	location *time.Location
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyRPCURL, "")
	v.SetDefault(KeyFactoryAddress, "")
	v.SetDefault(KeyPrivateKey, "")
	v.SetDefault(KeyChainID, creation.DefaultChainID)
	v.SetDefault(KeyDeposit, creation.DefaultDeposit)
	v.SetDefault(KeyIPFSGateway, ipfs.DefaultGateway)
	v.SetDefault(KeyPinataAPIKey, "")
	v.SetDefault(KeyPinataSecret, "")
	v.SetDefault(KeyPinataEndpoint, ipfs.DefaultPinataEndpoint)
	v.SetDefault(KeyPostgresDSN, "")
	v.SetDefault(KeyPGMaxConns, DefaultPGMaxConns)
	v.SetDefault(KeyPGMaxConnIdle, DefaultPGMaxConnIdle)
	v.SetDefault(KeyClickhouseDSN, "")
	v.SetDefault(KeyUseMemory, false)
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeyIngestInterval, ingestion.DefaultInterval)
	v.SetDefault(KeyCacheTTL, DefaultCacheTTL)
	v.SetDefault(KeyTimezone, DefaultTimezone)
	v.SetDefault(KeyListConcurrency, DefaultListConcurrency)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogEncoding, "console")
	v.SetDefault(KeyLogFile, "")
}

// BindFlags adds the common flags to fs and binds them to v.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String(KeyRPCURL, "", "JSON-RPC endpoint of the chain")
	fs.String(KeyFactoryAddress, "", "Bonding curve factory contract address")
	fs.String(KeyPrivateKey, "", "Hex private key used to sign writes (optional)")
	fs.Int64(KeyChainID, creation.DefaultChainID, "Chain ID writes must be submitted on")
	fs.String(KeyPostgresDSN, "", "PostgreSQL connection string")
	fs.String(KeyClickhouseDSN, "", "ClickHouse connection string")
	fs.Bool(KeyUseMemory, false, "Use in-memory storage instead of PostgreSQL and ClickHouse")
	fs.String("log-level", "info", "Log level (debug, info, warn, error)")

	for _, name := range []string{KeyRPCURL, KeyFactoryAddress, KeyPrivateKey, KeyChainID, KeyPostgresDSN, KeyClickhouseDSN, KeyUseMemory} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	if err := v.BindPFlag(KeyLogLevel, fs.Lookup("log-level")); err != nil {
		return fmt.Errorf("bind flag log-level: %w", err)
	}
	return nil
}

// Load resolves configuration. Precedence: flags, environment, .env,
// config file, defaults. envFile and configFile may be empty.
func Load(v *viper.Viper, envFile, configFile string) (*Config, error) {
	if envFile != "" {
		// Existing environment variables win over the file.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		RPCURL:          v.GetString(KeyRPCURL),
		FactoryAddress:  v.GetString(KeyFactoryAddress),
		PrivateKey:      v.GetString(KeyPrivateKey),
		ChainID:         v.GetInt64(KeyChainID),
		Deposit:         v.GetString(KeyDeposit),
		IPFSGateway:     v.GetString(KeyIPFSGateway),
		PinataAPIKey:    v.GetString(KeyPinataAPIKey),
		PinataSecret:    v.GetString(KeyPinataSecret),
		PinataEndpoint:  v.GetString(KeyPinataEndpoint),
		PostgresDSN:     v.GetString(KeyPostgresDSN),
		PGMaxConns:      v.GetInt32(KeyPGMaxConns),
		PGMaxConnIdle:   v.GetDuration(KeyPGMaxConnIdle),
		ClickhouseDSN:   v.GetString(KeyClickhouseDSN),
		UseMemory:       v.GetBool(KeyUseMemory),
		HTTPAddr:        v.GetString(KeyHTTPAddr),
		IngestInterval:  v.GetDuration(KeyIngestInterval),
		CacheTTL:        v.GetDuration(KeyCacheTTL),
		Timezone:        v.GetString(KeyTimezone),
		ListConcurrency: v.GetInt(KeyListConcurrency),
		Log: logging.Config{
			Level:    v.GetString(KeyLogLevel),
			Encoding: v.GetString(KeyLogEncoding),
			File:     v.GetString(KeyLogFile),
		},
	}
	return cfg, nil
}

// Validate checks the configuration and resolves the timezone.
func (c *Config) Validate() error {
	var errs []error

	if c.RPCURL == "" {
		errs = append(errs, errors.New("rpc-url is required"))
	}
	if !common.IsHexAddress(c.FactoryAddress) {
		errs = append(errs, fmt.Errorf("factory-address %q is not a hex address", c.FactoryAddress))
	}
	if c.PrivateKey != "" {
		if _, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x")); err != nil {
			errs = append(errs, fmt.Errorf("private-key: %w", err))
		}
	}
	if c.ChainID <= 0 {
		errs = append(errs, fmt.Errorf("chain-id must be positive, got %d", c.ChainID))
	}
	if _, err := units.ToScaled(c.Deposit); err != nil {
		errs = append(errs, fmt.Errorf("deposit: %w", err))
	}
	if !c.UseMemory && (c.PostgresDSN == "" || c.ClickhouseDSN == "") {
		errs = append(errs, errors.New("postgres-dsn and clickhouse-dsn are required (use use-memory for in-memory storage)"))
	}
	if c.PGMaxConns < 0 {
		errs = append(errs, fmt.Errorf("postgres.max-conns must not be negative, got %d", c.PGMaxConns))
	}
	if c.PGMaxConnIdle < 0 {
		errs = append(errs, fmt.Errorf("postgres.max-conn-idle must not be negative, got %s", c.PGMaxConnIdle))
	}
	if c.IngestInterval <= 0 {
		errs = append(errs, fmt.Errorf("ingest-interval must be positive, got %s", c.IngestInterval))
	}
	if c.CacheTTL < 0 {
		errs = append(errs, fmt.Errorf("cache-ttl must not be negative, got %s", c.CacheTTL))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	} else {
		c.location = loc
	}

	return errors.Join(errs...)
}

// Location returns the timezone dates are formatted in. It is UTC until
// Validate has resolved Timezone.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// Factory returns the factory address.
func (c *Config) Factory() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// DepositScaled returns the createToken deposit scaled to 18 decimals.
func (c *Config) DepositScaled() (*big.Int, error) {
	return units.ToScaled(c.Deposit)
}
