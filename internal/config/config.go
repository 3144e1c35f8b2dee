package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Source is the default target: a .csv/.tsv/.xlsx path or a database URL.
	Source       string `mapstructure:"source" yaml:"source"`
	CSVDelimiter string `mapstructure:"csv_delimiter" yaml:"csv_delimiter" validate:"omitempty,max=3"`
	XLSXSheet    string `mapstructure:"xlsx_sheet" yaml:"xlsx_sheet"`
	SQLTable     string `mapstructure:"sql_table" yaml:"sql_table"`

	// MongoDB DataRow collection
	MongoDatabase   string `mapstructure:"mongo_database" yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	MongoOwner      string `mapstructure:"mongo_owner" yaml:"mongo_owner" validate:"omitempty,hexadecimal,len=24"`

	DefaultPage  int `mapstructure:"default_page" yaml:"default_page" validate:"min=1"`
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit" validate:"min=1"`

	OutputFormat     string  `mapstructure:"output_format" yaml:"output_format" validate:"oneof=json yaml yml markdown md"`
	OutlierThreshold float64 `mapstructure:"outlier_threshold" yaml:"outlier_threshold" validate:"gt=0"`

	LogLevel        string `mapstructure:"log_level" yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat       string `mapstructure:"log_format" yaml:"log_format" validate:"oneof=text json"`
	MetricsTextfile string `mapstructure:"metrics_textfile" yaml:"metrics_textfile"`

	SourceTimeoutSec int `mapstructure:"source_timeout_sec" yaml:"source_timeout_sec" validate:"min=0"`
}

// Dir returns ~/.fieldlens.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".fieldlens"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.fieldlens/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("FIELDLENS")
	v.AutomaticEnv()

	v.SetDefault("source", "")
	v.SetDefault("csv_delimiter", "")
	v.SetDefault("xlsx_sheet", "")
	v.SetDefault("sql_table", "")
	v.SetDefault("mongo_database", "")
	v.SetDefault("mongo_collection", "datarows")
	v.SetDefault("mongo_owner", "")
	v.SetDefault("default_page", 1)
	v.SetDefault("default_limit", 100)
	v.SetDefault("output_format", "json")
	v.SetDefault("outlier_threshold", 3.5)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("metrics_textfile", "")
	v.SetDefault("source_timeout_sec", 30)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges and enumerations.
func (c *Global) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config %s=%v (%s %s)", fe.Field(), fe.Value(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Delimiter returns the configured CSV delimiter, or 0 to sniff it.
func (c *Global) Delimiter() rune {
	switch c.CSVDelimiter {
	case "":
		return 0
	case `\t`, "tab":
		return '\t'
	}
	return []rune(c.CSVDelimiter)[0]
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"source", "csv_delimiter", "xlsx_sheet", "sql_table",
	"mongo_database", "mongo_collection", "mongo_owner",
	"default_page", "default_limit", "output_format", "outlier_threshold",
	"log_level", "log_format", "metrics_textfile", "source_timeout_sec",
}

// Get returns the string form of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "source":
		return c.Source, nil
	case "csv_delimiter":
		return c.CSVDelimiter, nil
	case "xlsx_sheet":
		return c.XLSXSheet, nil
	case "sql_table":
		return c.SQLTable, nil
	case "mongo_database":
		return c.MongoDatabase, nil
	case "mongo_collection":
		return c.MongoCollection, nil
	case "mongo_owner":
		return c.MongoOwner, nil
	case "default_page":
		return strconv.Itoa(c.DefaultPage), nil
	case "default_limit":
		return strconv.Itoa(c.DefaultLimit), nil
	case "output_format":
		return c.OutputFormat, nil
	case "outlier_threshold":
		return strconv.FormatFloat(c.OutlierThreshold, 'g', -1, 64), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "metrics_textfile":
		return c.MetricsTextfile, nil
	case "source_timeout_sec":
		return strconv.Itoa(c.SourceTimeoutSec), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Set parses val into key and validates the result. On error c is unchanged.
func (c *Global) Set(key, val string) error {
	next := *c
	switch key {
	case "source":
		next.Source = val
	case "csv_delimiter":
		next.CSVDelimiter = val
	case "xlsx_sheet":
		next.XLSXSheet = val
	case "sql_table":
		next.SQLTable = val
	case "mongo_database":
		next.MongoDatabase = val
	case "mongo_collection":
		next.MongoCollection = val
	case "mongo_owner":
		next.MongoOwner = strings.ToLower(val)
	case "default_page", "default_limit", "source_timeout_sec":
		i, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "default_page":
			next.DefaultPage = i
		case "default_limit":
			next.DefaultLimit = i
		default:
			next.SourceTimeoutSec = i
		}
	case "output_format":
		next.OutputFormat = strings.ToLower(val)
	case "outlier_threshold":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for outlier_threshold: %w", err)
		}
		next.OutlierThreshold = f
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_format":
		next.LogFormat = strings.ToLower(val)
	case "metrics_textfile":
		next.MetricsTextfile = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
