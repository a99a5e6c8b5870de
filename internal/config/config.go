package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Minio     MinioConfig
	Translate TranslateConfig
	Import    ImportConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	Schema        string
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type TranslateConfig struct {
	APIURL     string
	APIKey     string
	Model      string
	SourceLang string
	TargetLang string
	Timeout    time.Duration
}

type ImportConfig struct {
	DataDir string
}

type AdminConfig struct {
	Username string
	Password string
	Role     string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_EXPIRES_IN", 86400)
	viper.SetDefault("MINIO_ENDPOINT", "minio:9000")
	viper.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	viper.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	viper.SetDefault("MINIO_BUCKET", "modellion")
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("TRANSLATE_API_URL", "https://ark.cn-beijing.volces.com/api/v3/responses")
	viper.SetDefault("TRANSLATE_MODEL", "doubao-seed-translation-250915")
	viper.SetDefault("TRANSLATE_SOURCE_LANG", "ja")
	viper.SetDefault("TRANSLATE_TARGET_LANG", "zh")
	viper.SetDefault("TRANSLATE_TIMEOUT", 10)
	viper.SetDefault("DATA_DIR", "/data/import")
	viper.SetDefault("ADMIN_USERNAME", "admin")
	viper.SetDefault("ADMIN_PASSWORD", "admin123")
	viper.SetDefault("ADMIN_ROLE", "admin")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Database:      viper.GetString("DB_DATABASE"),
			Schema:        viper.GetString("DB_SCHEMA"),
			MigrationsDir: viper.GetString("DB_MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:    viper.GetString("JWT_SECRET"),
			ExpiresIn: time.Duration(viper.GetInt("JWT_EXPIRES_IN")) * time.Second,
		},
		Minio: MinioConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
		},
		Translate: TranslateConfig{
			APIURL:     viper.GetString("TRANSLATE_API_URL"),
			APIKey:     viper.GetString("TRANSLATE_API_KEY"),
			Model:      viper.GetString("TRANSLATE_MODEL"),
			SourceLang: viper.GetString("TRANSLATE_SOURCE_LANG"),
			TargetLang: viper.GetString("TRANSLATE_TARGET_LANG"),
			Timeout:    time.Duration(viper.GetInt("TRANSLATE_TIMEOUT")) * time.Second,
		},
		Import: ImportConfig{
			DataDir: viper.GetString("DATA_DIR"),
		},
		Admin: AdminConfig{
			Username: viper.GetString("ADMIN_USERNAME"),
			Password: viper.GetString("ADMIN_PASSWORD"),
			Role:     viper.GetString("ADMIN_ROLE"),
		},
	}
}
