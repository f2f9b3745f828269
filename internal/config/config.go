// internal/config/config.go
package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	Graph  GraphConfig
	Relay  RelayConfig
	Ledger LedgerConfig
	Cache  CacheConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// GraphConfig holds the app registration used for the client-credentials
// exchange and the Graph endpoints it talks to.
type GraphConfig struct {
	Backend        string
	TenantID       string
	ClientID       string
	ClientSecret   string
	BaseURL        string
	AuthorityURL   string
	TimeoutSeconds int
}

type RelayConfig struct {
	DriveID           string
	TargetFolderID    string
	OutputMode        string
	UploadConcurrency int
	FunctionName      string
}

type LedgerConfig struct {
	Backend   string
	BlobName  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

type CacheConfig struct {
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type LogConfig struct {
	Level  string
	Format string
}

const (
	GraphBackendREST = "rest"
	GraphBackendSDK  = "sdk"

	OutputModeBundle = "bundle"
	OutputModePerRow = "per-row"

	LedgerBackendNone  = "none"
	LedgerBackendS3    = "s3"
	LedgerBackendRedis = "redis"
)

var (
	once     sync.Once
	instance *Config
)

// Load reads the process configuration once. A local .env file is honoured
// when present so the function can be run outside the Functions host.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		instance = FromViper(newViper())
	})

	return instance
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "release")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 230)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{})
	v.SetDefault("GRAPH_BACKEND", GraphBackendREST)
	v.SetDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0")
	v.SetDefault("GRAPH_AUTHORITY_URL", "https://login.microsoftonline.com")
	v.SetDefault("GRAPH_TIMEOUT_SECONDS", 120)
	v.SetDefault("RELAY_OUTPUT_MODE", OutputModeBundle)
	v.SetDefault("RELAY_UPLOAD_CONCURRENCY", 4)
	v.SetDefault("RELAY_FUNCTION_NAME", "relay")
	v.SetDefault("LEDGER_BACKEND", LedgerBackendNone)
	v.SetDefault("LEDGER_REGION", "us-east-1")
	v.SetDefault("LEDGER_USE_SSL", true)
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.AutomaticEnv()
	return v
}

// FromViper builds a Config from an already prepared viper instance.
func FromViper(v *viper.Viper) *Config {
	port := v.GetString("SERVER_PORT")
	// The Functions host hands custom handlers their port through this variable.
	if p := v.GetString("FUNCTIONS_CUSTOMHANDLER_PORT"); p != "" {
		port = p
	}

	return &Config{
		Server: ServerConfig{
			Port:           port,
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Graph: GraphConfig{
			Backend:        strings.ToLower(strings.TrimSpace(v.GetString("GRAPH_BACKEND"))),
			TenantID:       v.GetString("TENANT_ID"),
			ClientID:       v.GetString("CLIENT_ID"),
			ClientSecret:   v.GetString("CLIENT_SECRET"),
			BaseURL:        strings.TrimSuffix(v.GetString("GRAPH_BASE_URL"), "/"),
			AuthorityURL:   strings.TrimSuffix(v.GetString("GRAPH_AUTHORITY_URL"), "/"),
			TimeoutSeconds: v.GetInt("GRAPH_TIMEOUT_SECONDS"),
		},
		Relay: RelayConfig{
			DriveID:           v.GetString("DRIVE_ID"),
			TargetFolderID:    v.GetString("TARGET_FOLDER_ID"),
			OutputMode:        strings.ToLower(strings.TrimSpace(v.GetString("RELAY_OUTPUT_MODE"))),
			UploadConcurrency: v.GetInt("RELAY_UPLOAD_CONCURRENCY"),
			FunctionName:      v.GetString("RELAY_FUNCTION_NAME"),
		},
		Ledger: LedgerConfig{
			Backend:   strings.ToLower(strings.TrimSpace(v.GetString("LEDGER_BACKEND"))),
			BlobName:  v.GetString("LAST_PROCESSED_BLOB_NAME"),
			Endpoint:  v.GetString("LEDGER_ENDPOINT"),
			AccessKey: v.GetString("LEDGER_ACCESS_KEY"),
			SecretKey: v.GetString("LEDGER_SECRET_KEY"),
			Bucket:    v.GetString("LEDGER_BUCKET"),
			Region:    v.GetString("LEDGER_REGION"),
			UseSSL:    v.GetBool("LEDGER_USE_SSL"),
		},
		Cache: CacheConfig{
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}
}

// Validate reports configuration that would make every invocation fail.
func (c *Config) Validate() error {
	var missing []string
	for name, val := range map[string]string{
		"TENANT_ID":        c.Graph.TenantID,
		"CLIENT_ID":        c.Graph.ClientID,
		"CLIENT_SECRET":    c.Graph.ClientSecret,
		"TARGET_FOLDER_ID": c.Relay.TargetFolderID,
	} {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}

	switch c.Graph.Backend {
	case GraphBackendREST, GraphBackendSDK:
	default:
		return fmt.Errorf("unknown GRAPH_BACKEND %q", c.Graph.Backend)
	}

	switch c.Relay.OutputMode {
	case OutputModeBundle, OutputModePerRow:
	default:
		return fmt.Errorf("unknown RELAY_OUTPUT_MODE %q", c.Relay.OutputMode)
	}

	switch c.Ledger.Backend {
	case LedgerBackendNone, "":
		return nil
	case LedgerBackendS3:
		if c.Ledger.Bucket == "" || c.Ledger.Endpoint == "" {
			return fmt.Errorf("LEDGER_BACKEND=s3 needs LEDGER_ENDPOINT and LEDGER_BUCKET")
		}
	case LedgerBackendRedis:
	default:
		return fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend)
	}

	if strings.TrimSpace(c.Ledger.BlobName) == "" {
		return fmt.Errorf("LEDGER_BACKEND=%s needs LAST_PROCESSED_BLOB_NAME", c.Ledger.Backend)
	}

	return nil
}

// LedgerEnabled is true when a run record should be written after each relay.
func (c *Config) LedgerEnabled() bool {
	return c.Ledger.BlobName != "" && c.Ledger.Backend != "" && c.Ledger.Backend != LedgerBackendNone
}
