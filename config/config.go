// config/config.go
package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ibis-project/ibis-examples/models"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultCampaignURL = "https://cg-519a459a-0ea3-42c2-b7bc-fa1143481f74.s3-us-gov-west-1." +
		"amazonaws.com/bulk-downloads/2018/indiv18.zip"
	defaultTutorialURL = "https://storage.googleapis.com/ibis-tutorial-data/geography.db"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

// Enabled reports whether an artifact ledger database is configured.
func (d DatabaseConfig) Enabled() bool {
	return d.Host != ""
}

type HTTPConfig struct {
	TimeoutStr  string        `yaml:"timeout"`
	Timeout     time.Duration `yaml:"-"`         // Parsed from TimeoutStr
	S3Region    string        `yaml:"s3_region"` // Used for s3:// sources only
	S3Endpoint  string        `yaml:"s3_endpoint"`
	GCSEndpoint string        `yaml:"gcs_endpoint"`
}

type CampaignConfig struct {
	SourceURL   string            `yaml:"source_url"`
	ListingURL  string            `yaml:"listing_url"` // Optional page to resolve the archive link from
	ArchiveName string            `yaml:"archive_name"`
	MemberName  string            `yaml:"member_name"`
	OutputName  string            `yaml:"output_name"`
	Delimiter   string            `yaml:"delimiter"` // "|", ",", "\t" or "auto"
	Header      []string          `yaml:"header"`
	Columns     []string          `yaml:"columns"`
	ColumnTypes map[string]string `yaml:"column_types"`
	Compression string            `yaml:"compression"`
	ChunkRows   int               `yaml:"chunk_rows"`
}

type TutorialConfig struct {
	SourceURL  string `yaml:"source_url"`
	OutputName string `yaml:"output_name"`
	Dir        string `yaml:"dir"`
}

type Config struct {
	DataDir  string         `yaml:"data_dir"`
	HTTP     HTTPConfig     `yaml:"http"`
	Campaign CampaignConfig `yaml:"campaign"`
	Tutorial TutorialConfig `yaml:"tutorial"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
}

// Known column types and compression codecs accepted by the converter.
var (
	ColumnTypes       = []string{"string", "int64", "float64"}
	CompressionCodecs = []string{"zstd", "snappy", "gzip", "none"}
)

// Default returns the configuration the pipelines run with when no file is given.
func Default() *Config {
	return &Config{
		DataDir: "data",
		HTTP:    HTTPConfig{TimeoutStr: "30m", Timeout: 30 * time.Minute, S3Region: "us-gov-west-1"},
		Campaign: CampaignConfig{
			SourceURL:   defaultCampaignURL,
			ArchiveName: "indiv18.zip",
			MemberName:  "itcont.txt",
			OutputName:  "itcont.parquet",
			Delimiter:   "auto",
			Header:      append([]string(nil), models.ContributionHeader...),
			Columns:     append([]string(nil), models.ContributionColumns...),
			ColumnTypes: map[string]string{"TRANSACTION_AMT": "float64"},
			Compression: "zstd",
			ChunkRows:   65536,
		},
		Tutorial: TutorialConfig{
			SourceURL:  defaultTutorialURL,
			OutputName: "geography.db",
			Dir:        ".",
		},
		Database: DatabaseConfig{Port: "3306"},
		Server:   ServerConfig{Port: "8080"},
	}
}

// ArchivePath is where the fetch stage writes the campaign archive.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.DataDir, c.Campaign.ArchiveName)
}

// ExtractedPath is where the extract stage writes the archive member.
func (c *Config) ExtractedPath() string {
	return filepath.Join(c.DataDir, c.Campaign.MemberName)
}

// OutputPath is where the transform stage writes the columnar artifact.
func (c *Config) OutputPath() string {
	return filepath.Join(c.DataDir, c.Campaign.OutputName)
}

// TutorialPath is where the tutorial database is downloaded.
func (c *Config) TutorialPath() string {
	return filepath.Join(c.Tutorial.Dir, c.Tutorial.OutputName)
}

// LoadConfig reads configuration from a YAML file layered over Default(),
// then applies PREP_* environment overrides (a .env file is honoured if present).
// An empty path means defaults only.
func LoadConfig(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// yaml.v3 merges into existing maps; a file that lists column types
		// replaces the defaults instead of adding to them.
		var typed struct {
			Campaign struct {
				ColumnTypes map[string]string `yaml:"column_types"`
			} `yaml:"campaign"`
		}
		if err := yaml.Unmarshal(file, &typed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		defaultTypes := cfg.Campaign.ColumnTypes
		cfg.Campaign.ColumnTypes = nil
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if typed.Campaign.ColumnTypes == nil {
			cfg.Campaign.ColumnTypes = map[string]string{}
			for col, typ := range defaultTypes {
				if contains(cfg.Campaign.Header, col) {
					cfg.Campaign.ColumnTypes[col] = typ
				}
			}
		}
		log.Printf("Config: Loaded configuration from %s\n", configPath)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	applyEnv(cfg)

	// Parse durations
	if cfg.HTTP.TimeoutStr != "" {
		d, err := time.ParseDuration(cfg.HTTP.TimeoutStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse http timeout: %w", err)
		}
		cfg.HTTP.Timeout = d
	} else {
		cfg.HTTP.Timeout = 30 * time.Minute // Default
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"PREP_DATA_DIR":     &cfg.DataDir,
		"PREP_HTTP_TIMEOUT": &cfg.HTTP.TimeoutStr,
		"PREP_S3_ENDPOINT":  &cfg.HTTP.S3Endpoint,
		"PREP_GCS_ENDPOINT": &cfg.HTTP.GCSEndpoint,
		"PREP_DB_HOST":      &cfg.Database.Host,
		"PREP_DB_PORT":      &cfg.Database.Port,
		"PREP_DB_USER":      &cfg.Database.User,
		"PREP_DB_PASSWORD":  &cfg.Database.Password,
		"PREP_DB_NAME":      &cfg.Database.DBName,
		"PREP_SERVER_PORT":  &cfg.Server.Port,
	}
	for key, dst := range overrides {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
}

// Validate checks the campaign layout and the URLs before any stage runs.
// Projection columns missing from the header are reported as schema errors.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is not configured")
	}
	if err := checkSource(c.Campaign.SourceURL, "campaign source_url"); err != nil {
		return err
	}
	if err := checkSource(c.Tutorial.SourceURL, "tutorial source_url"); err != nil {
		return err
	}
	if c.Campaign.ArchiveName == "" || c.Campaign.MemberName == "" || c.Campaign.OutputName == "" {
		return fmt.Errorf("campaign archive_name, member_name and output_name must all be set")
	}
	if c.Tutorial.OutputName == "" {
		return fmt.Errorf("tutorial output_name is not configured")
	}

	switch c.Campaign.Delimiter {
	case "|", ",", "\t", "auto":
	default:
		return fmt.Errorf("unsupported delimiter %q", c.Campaign.Delimiter)
	}

	if len(c.Campaign.Header) == 0 {
		return fmt.Errorf("%w: campaign header is empty", models.ErrSchema)
	}
	seen := make(map[string]bool, len(c.Campaign.Header))
	for _, h := range c.Campaign.Header {
		if h == "" {
			return fmt.Errorf("%w: campaign header contains an empty column name", models.ErrSchema)
		}
		if seen[h] {
			return fmt.Errorf("%w: duplicate header column %q", models.ErrSchema, h)
		}
		seen[h] = true
	}
	if len(c.Campaign.Columns) == 0 {
		return fmt.Errorf("%w: campaign columns are empty", models.ErrSchema)
	}
	for _, col := range c.Campaign.Columns {
		if !seen[col] {
			return fmt.Errorf("%w: column %q not found in header", models.ErrSchema, col)
		}
	}
	for col, typ := range c.Campaign.ColumnTypes {
		if !seen[col] {
			return fmt.Errorf("%w: column type given for unknown column %q", models.ErrSchema, col)
		}
		if !contains(ColumnTypes, typ) {
			return fmt.Errorf("unsupported column type %q for %s", typ, col)
		}
	}
	if !contains(CompressionCodecs, strings.ToLower(c.Campaign.Compression)) {
		return fmt.Errorf("unsupported compression codec %q", c.Campaign.Compression)
	}
	return nil
}

func checkSource(raw, name string) error {
	if raw == "" {
		return fmt.Errorf("%s is not configured", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	switch u.Scheme {
	case "http", "https", "gs", "s3":
		return nil
	}
	return fmt.Errorf("unsupported scheme %q in %s", u.Scheme, name)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
