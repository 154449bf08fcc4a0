// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON config file, a .env
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store names accepted by Options.Store.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Duration is a time.Duration that reads as "90m" or "720h" in JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs int64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %s", b)
	}
	*d = Duration(time.Duration(secs) * time.Second)
	return nil
}

// Database holds the PostgreSQL connection settings.
type Database struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Name     string `json:"name"`
	SSLMode  string `json:"sslmode"`
}

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// Store selects the account store: "postgres" or "memory".
	Store string `json:"store"`

	Database Database `json:"database"`

	// ProfileEnabled turns on the userinfo profile integration.
	ProfileEnabled bool `json:"profile_enabled"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`

	// AcctRetention is how long closed accounting sessions are kept. Zero
	// disables the cleaner.
	AcctRetention     Duration `json:"acct_retention"`
	AcctCleanInterval Duration `json:"acct_clean_interval"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
}

// options holds the current configuration values.
var options = Default()

// Default returns the options used when nothing else is configured.
func Default() *Options {
	return &Options{
		Address:           "localhost:8080",
		Store:             StorePostgres,
		Database:          Database{Host: "localhost", Port: 5432, SSLMode: "disable"},
		ProfileEnabled:    true,
		LogLevel:          "info",
		AcctCleanInterval: Duration(time.Hour),
	}
}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Address, "a", options.Address, "run on ip:port server")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	flag.StringVar(&options.Store, "store", options.Store, "account store: postgres or memory")
}

// Parse parses the command-line flags, the config file and environment
// variables to set configuration values. Variables from a .env file in the
// working directory are loaded first and never override the real
// environment. Invalid configuration is fatal.
func Parse() *Options {
	flag.Parse()
	_ = godotenv.Load()

	if err := resolve(options, os.LookupEnv); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	return options
}

// resolve layers the config file and the environment over o, then validates it.
func resolve(o *Options, lookup func(string) (string, bool)) error {
	if v, ok := lookup("CONFIG"); ok && v != "" {
		o.Config = v
	}
	if err := o.loadFile(); err != nil {
		return err
	}
	if err := o.applyEnv(lookup); err != nil {
		return err
	}
	return o.Validate()
}

func (o *Options) loadFile() error {
	if o.Config == "" {
		return nil
	}
	if _, err := os.Stat(o.Config); err != nil {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func (o *Options) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("SERVER_ADDRESS", &o.Address)
	str("STORE", &o.Store)
	str("DB_HOST", &o.Database.Host)
	str("DB_USER", &o.Database.User)
	str("DB_PASSWORD", &o.Database.Password)
	str("DB_NAME", &o.Database.Name)
	str("DB_SSLMODE", &o.Database.SSLMode)
	str("LOG_LEVEL", &o.LogLevel)
	str("LOG_FILE", &o.LogFile)
	str("TLS_CERT", &o.TLSCert)
	str("TLS_KEY", &o.TLSKey)

	if v, ok := lookup("DB_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DB_PORT: %w", err)
		}
		o.Database.Port = port
	}
	if v, ok := lookup("PROFILE_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("PROFILE_ENABLED: %w", err)
		}
		o.ProfileEnabled = enabled
	}
	for key, dst := range map[string]*Duration{
		"ACCT_RETENTION":      &o.AcctRetention,
		"ACCT_CLEAN_INTERVAL": &o.AcctCleanInterval,
	} {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = Duration(d)
		}
	}
	return nil
}

// Validate reports every missing or inconsistent setting at once.
func (o *Options) Validate() error {
	var errs []error
	if o.Address == "" {
		errs = append(errs, errors.New("server address is required"))
	}
	switch o.Store {
	case StoreMemory:
	case StorePostgres:
		if o.Database.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if o.Database.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if o.Database.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if o.Database.Port <= 0 || o.Database.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT %d is out of range", o.Database.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", o.Store))
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		errs = append(errs, errors.New("TLS_CERT and TLS_KEY must be set together"))
	}
	if o.AcctRetention < 0 {
		errs = append(errs, errors.New("ACCT_RETENTION must not be negative"))
	}
	if o.AcctRetention > 0 && o.AcctCleanInterval <= 0 {
		errs = append(errs, errors.New("ACCT_CLEAN_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}

// DSN renders the database settings as a lib/pq key=value connection string.
func (o *Options) DSN() string {
	params := map[string]string{
		"host":    o.Database.Host,
		"port":    strconv.Itoa(o.Database.Port),
		"user":    o.Database.User,
		"dbname":  o.Database.Name,
		"sslmode": o.Database.SSLMode,
	}
	if o.Database.Password != "" {
		params["password"] = o.Database.Password
	}

	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quoteValue(params[k]))
	}
	return strings.Join(parts, " ")
}

// quoteValue single-quotes values containing spaces, quotes or backslashes.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}
