package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type ServerConfig struct {
	Port         int    `koanf:"port" validate:"required"`
	Mode         string `koanf:"mode" validate:"required,oneof=debug release test"`
	Concurrency  int    `koanf:"concurrency" validate:"required"`
	BodyLimit    int    `koanf:"body_limit" validate:"required"`
	AppName      string `koanf:"app_name" validate:"required"`
	ReadTimeout  int    `koanf:"read_timeout"`
	WriteTimeout int    `koanf:"write_timeout"`
}

type logLevel string

const (
	Debug logLevel = "debug"
	Info  logLevel = "info"
	Warn  logLevel = "warn"
	Error logLevel = "error"
	Fatal logLevel = "fatal"
	Panic logLevel = "panic"
)

type Module string

const (
	ModuleAuth      Module = "auth"
	ModuleTeacher   Module = "teacher"
	ModuleAdmin     Module = "admin"
	ModuleUpload    Module = "upload"
	ModuleRetriever Module = "retriever"
	ModuleMilvus    Module = "milvus"
	ModuleRedis     Module = "redis"
	ModuleDatabase  Module = "database"
	ModuleS3        Module = "s3"
	ModuleCors      Module = "cors"
	ModuleServer    Module = "server"
	ModuleSetting   Module = "setting"
)

type DatabaseConfig struct {
	Host         string   `koanf:"host" validate:"required"`
	Port         int      `koanf:"port" validate:"required"`
	User         string   `koanf:"user" validate:"required"`
	Password     string   `koanf:"password"`
	Name         string   `koanf:"name" validate:"required"`
	MaxIdleConns int      `koanf:"max_idle_conns" validate:"required"`
	MaxOpenConns int      `koanf:"max_open_conns" validate:"required"`
	MaxLifetime  int      `koanf:"max_lifetime" validate:"required"`
	Replicas     []string `koanf:"replicas"`
}

type AuthConfig struct {
	SecretKey                string `koanf:"secret_key" validate:"required"`
	Algorithm                string `koanf:"algorithm" validate:"required,oneof=HS256 HS384 HS512"`
	Issuer                   string `koanf:"issuer"`
	AccessTokenExpireMinutes int    `koanf:"access_token_expire_minutes" validate:"required,gt=0"`
	BcryptCost               int    `koanf:"bcrypt_cost" validate:"required,min=4,max=31"`
	AllowAdminRegistration   bool   `koanf:"allow_admin_registration"`
	LoginRatePerMinute       int    `koanf:"login_rate_per_minute" validate:"gte=0"`
	LoginBurst               int    `koanf:"login_burst" validate:"gte=0"`
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenExpireMinutes) * time.Minute
}

type RedisConfig struct {
	Address  string `koanf:"address"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type OpenAIConfig struct {
	Key            string `koanf:"key"`
	BaseURL        string `koanf:"base_url"`
	EmbeddingModel string `koanf:"embedding_model"`
}

type CorsConfig struct {
	AllowOrigins []string `koanf:"allow_origins" validate:"required"`
	AllowMethods []string `koanf:"allow_methods" validate:"required"`
	AllowHeaders []string `koanf:"allow_headers" validate:"required"`
}

type MilvusConfig struct {
	Address         string          `koanf:"address"`
	Collection      string          `koanf:"collection"`
	Dim             int             `koanf:"dim"`
	IndexHNSWConfig IndexHNSWConfig `koanf:"index_hnsw_config"`
}

type IndexHNSWConfig struct {
	MetricType     string `koanf:"metric_type"`
	M              int    `koanf:"m"`
	EfConstruction int    `koanf:"ef_construction"`
	Ef             int    `koanf:"ef"`
}

type SearchConfig struct {
	Enabled bool `koanf:"enabled"`
	TopK    int  `koanf:"top_k"`
}

type S3Config struct {
	Endpoint      string `koanf:"endpoint"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	Region        string `koanf:"region"`
	UseSSL        bool   `koanf:"use_ssl"`
	Bucket        string `koanf:"bucket"`
	PublicBaseURL string `koanf:"public_base_url"`
}

type StorageConfig struct {
	LocalDir      string `koanf:"local_dir" validate:"required"`
	PublicPrefix  string `koanf:"public_prefix" validate:"required"`
	MaxImageBytes int64  `koanf:"max_image_bytes" validate:"required,gt=0"`
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Redis    RedisConfig    `koanf:"redis"`
	OpenAI   OpenAIConfig   `koanf:"openai"`
	LogLevel logLevel       `koanf:"log_level"`
	Dns      string         `koanf:"dns"`
	S3       S3Config       `koanf:"s3"`
	Storage  StorageConfig  `koanf:"storage"`
	Cors     CorsConfig     `koanf:"cors"`
	Milvus   MilvusConfig   `koanf:"milvus"`
	Search   SearchConfig   `koanf:"search"`
}

func buildMySQLDSN(cfg DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Name,
	)
}

var defaultConfig = Config{
	Server: ServerConfig{
		Port:         8000,
		Mode:         "release",
		Concurrency:  256 * 1024,
		BodyLimit:    8 * 1024 * 1024,
		AppName:      "School API",
		ReadTimeout:  15,
		WriteTimeout: 15,
	},
	Database: DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         3306,
		User:         "root",
		Password:     "",
		Name:         "school",
		MaxIdleConns: 10,
		MaxOpenConns: 50,
		MaxLifetime:  30,
	},
	Auth: AuthConfig{
		Algorithm:                "HS256",
		Issuer:                   "school-api",
		AccessTokenExpireMinutes: 60,
		BcryptCost:               10,
		AllowAdminRegistration:   true,
		LoginRatePerMinute:       5,
		LoginBurst:               5,
	},
	OpenAI: OpenAIConfig{
		EmbeddingModel: "text-embedding-3-small",
	},
	LogLevel: Info,
	S3: S3Config{
		Endpoint: "http://localhost:9000",
		Region:   "us-east-1",
	},
	Storage: StorageConfig{
		LocalDir:      "storage/images",
		PublicPrefix:  "/static/images",
		MaxImageBytes: 5 * 1024 * 1024,
	},
	Cors: CorsConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
	},
	Milvus: MilvusConfig{
		Address:    "localhost:19530",
		Collection: "teacher_profiles",
		Dim:        1536,
		IndexHNSWConfig: IndexHNSWConfig{
			MetricType:     "COSINE",
			M:              16,
			EfConstruction: 200,
			Ef:             64,
		},
	},
	Search: SearchConfig{
		TopK: 10,
	},
}

var (
	Cfg  = defaultConfig
	once sync.Once
)

// Init loads config once: defaults, then the yaml file at path (if present),
// then APP_ environment variables. APP_AUTH__SECRET_KEY maps to auth.secret_key.
func Init(path string) error {
	var initErr error
	once.Do(func() {
		cfg, err := Load(path)
		if err != nil {
			initErr = err
			return
		}
		Cfg = *cfg
	})
	return initErr
}

// Load builds a validated config without touching the global Cfg.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := defaultConfig

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%v: load %s: %w", ModuleSetting, path, err)
		}
	}

	if err := k.Load(env.Provider("APP_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%v: load env: %w", ModuleSetting, err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%v: unmarshal: %w", ModuleSetting, err)
	}

	if cfg.Dns == "" {
		cfg.Dns = buildMySQLDSN(cfg.Database)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "APP_")), "__", ".")
}

func validate(cfg *Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%v: config validation failed: %w", ModuleSetting, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%v: config validation failed:", ModuleSetting))
	for _, e := range errs {
		sb.WriteString(fmt.Sprintf("\n  - %s: failed '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return errors.New(sb.String())
}
