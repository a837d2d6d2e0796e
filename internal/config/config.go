package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Mongo    MongoConfig    `json:"mongo"`
	Security SecurityConfig `json:"security"`
	Chain    ChainConfig    `json:"chain"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Workers  WorkersConfig  `json:"workers"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	CORSOrigin   string        `json:"cors_origin"`
}

// MongoConfig represents document database configuration
type MongoConfig struct {
	URI            string        `json:"uri"`
	Database       string        `json:"database"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret  string        `json:"jwt_secret"`
	TokenTTL   time.Duration `json:"token_ttl"`
	BcryptCost int           `json:"bcrypt_cost"`
}

// ChainConfig describes the EVM network holding the organization registry.
type ChainConfig struct {
	RPCURL          string        `json:"rpc_url"`
	ContractAddress string        `json:"contract_address"`
	ChainID         int64         `json:"chain_id"`
	VerifyPayments  bool          `json:"verify_payments"`
	CallTimeout     time.Duration `json:"call_timeout"`
	Currency        string        `json:"currency"`
}

// StorageConfig covers content-addressed storage and the S3 archive.
type StorageConfig struct {
	IPFSAPIURL     string `json:"ipfs_api_url"`
	IPFSGatewayURL string `json:"ipfs_gateway_url"`
	IPFSAuthToken  string `json:"ipfs_auth_token"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3Endpoint     string `json:"s3_endpoint"`
	S3AccessKey    string `json:"s3_access_key"`
	S3SecretKey    string `json:"s3_secret_key"`
}

// LoggingConfig
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// WorkersConfig
type WorkersConfig struct {
	RegistrationSyncSchedule string `json:"registration_sync_schedule"`
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         5000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			CORSOrigin:   "*",
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "credential_portal",
			ConnectTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			TokenTTL:   30 * 24 * time.Hour,
			BcryptCost: 10,
		},
		Chain: ChainConfig{
			ChainID:     44787, // Celo Alfajores
			CallTimeout: 20 * time.Second,
			Currency:    "CELO",
		},
		Storage: StorageConfig{
			IPFSAPIURL:     "http://localhost:5001",
			IPFSGatewayURL: "https://gateway.pinata.cloud",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Workers: WorkersConfig{
			RegistrationSyncSchedule: "@every 5m",
		},
	}
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional; real environment variables always win
	_ = godotenv.Load()

	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// Override with environment variables
	overrideWithEnv(config)

	return config, nil
}

func overrideWithEnv(config *Config) {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		config.Server.CORSOrigin = origin
	}
	if uri := os.Getenv("MONGO_URI"); uri != "" {
		config.Mongo.URI = uri
	}
	if db := os.Getenv("MONGO_DATABASE"); db != "" {
		config.Mongo.Database = db
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Security.JWTSecret = secret
	}
	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			config.Security.TokenTTL = d
		}
	}
	if rpc := os.Getenv("CHAIN_RPC_URL"); rpc != "" {
		config.Chain.RPCURL = rpc
	}
	if addr := os.Getenv("CONTRACT_ADDRESS"); addr != "" {
		config.Chain.ContractAddress = addr
	}
	if id := os.Getenv("CHAIN_ID"); id != "" {
		if v, err := strconv.ParseInt(id, 10, 64); err == nil {
			config.Chain.ChainID = v
		}
	}
	if verify := os.Getenv("VERIFY_PAYMENTS"); verify != "" {
		config.Chain.VerifyPayments = strings.EqualFold(verify, "true") || verify == "1"
	}
	if api := os.Getenv("IPFS_API_URL"); api != "" {
		config.Storage.IPFSAPIURL = api
	}
	if gw := os.Getenv("IPFS_GATEWAY_URL"); gw != "" {
		config.Storage.IPFSGatewayURL = gw
	}
	if token := os.Getenv("IPFS_AUTH_TOKEN"); token != "" {
		config.Storage.IPFSAuthToken = token
	}
	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		config.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("S3_REGION"); region != "" {
		config.Storage.S3Region = region
	}
	if endpoint := os.Getenv("S3_ENDPOINT"); endpoint != "" {
		config.Storage.S3Endpoint = endpoint
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwt_secret is required"))
	}
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo.uri is required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo.database is required"))
	}
	if c.Chain.VerifyPayments && (c.Chain.RPCURL == "" || c.Chain.ContractAddress == "") {
		errs = append(errs, errors.New("chain.rpc_url and chain.contract_address are required when verify_payments is enabled"))
	}
	return errors.Join(errs...)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
