package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env string `toml:"env"`

	LogLevel  string          `toml:"log_level"`
	Database  DatabaseConfigs `toml:"database"`
	ApiServer ServerConfigs   `toml:"api_server"`
	Auth      AuthConfigs     `toml:"auth"`
	Storage   S3Configs       `toml:"storage"`
	File      FileConfigs     `toml:"file"`
	Activity  ActivityConfigs `toml:"activity"`
	Redis     RedisConfigs    `toml:"redis"`
}

type DatabaseConfigs struct {
	Host     string `toml:"host"`
	Port     string `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string `toml:"host"`
	Port string `toml:"port"`
	Cert string `toml:"cert"`
	Key  string `toml:"key"`
}

func (s *ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

type AuthConfigs struct {
	TokenSecret  string       `toml:"token_secret"`
	AccessToken  TokenConfigs `toml:"access_token"`
	RefreshToken TokenConfigs `toml:"refresh_token"`
}

type TokenConfigs struct {
	Name       string   `toml:"name"`
	Expiration Duration `toml:"expiration"`
}

type S3Configs struct {
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	PublicURL string `toml:"public_url"`
}

type FileConfigs struct {
	MaxSize        int64 `toml:"max_size"`
	MaxPerActivity int   `toml:"max_per_activity"`
	AvatarSizes    []int `toml:"avatar_sizes"`
}

type ActivityConfigs struct {
	// StreakWindow is the maximum gap between two activities for the
	// streak to keep growing.
	StreakWindow Duration `toml:"streak_window"`

	MaxRecommendations int `toml:"max_recommendations"`
}

type RedisConfigs struct {
	Addr            string   `toml:"addr"`
	CacheExpiration Duration `toml:"cache_expiration"`
}

// Duration wraps time.Duration so it can be written as "36h" in toml files.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}

	d.Duration = parsed
	return nil
}

// Load reads configs from a toml file, then overrides secrets with
// environment variables if they are set.
func Load(path string) (*Configs, error) {
	configs := defaultConfigs()
	if path != "" {
		if _, err := toml.DecodeFile(path, configs); err != nil {
			return nil, err
		}
	}

	overrideString(&configs.Database.Host, "DB_HOST")
	overrideString(&configs.Database.Port, "DB_PORT")
	overrideString(&configs.Database.Database, "DB_DATABASE")
	overrideString(&configs.Database.User, "DB_USER")
	overrideString(&configs.Database.Password, "DB_PASSWORD")
	overrideString(&configs.ApiServer.Port, "PORT")
	overrideString(&configs.Auth.TokenSecret, "TOKEN_SECRET")
	overrideString(&configs.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	overrideString(&configs.Storage.SecretKey, "STORAGE_SECRET_KEY")
	overrideString(&configs.Redis.Addr, "REDIS_ADDR")

	return configs, nil
}

func defaultConfigs() *Configs {
	return &Configs{
		Env:      "local",
		LogLevel: "INFO",
		ApiServer: ServerConfigs{
			Host: "localhost",
			Port: "8080",
		},
		Auth: AuthConfigs{
			AccessToken: TokenConfigs{
				Name:       "access_token",
				Expiration: Duration{time.Hour},
			},
			RefreshToken: TokenConfigs{
				Name:       "refresh_token",
				Expiration: Duration{30 * 24 * time.Hour},
			},
		},
		File: FileConfigs{
			MaxSize:        2 * 1024 * 1024,
			MaxPerActivity: 6,
			AvatarSizes:    []int{512, 128, 32},
		},
		Activity: ActivityConfigs{
			StreakWindow:       Duration{48 * time.Hour},
			MaxRecommendations: 10,
		},
		Redis: RedisConfigs{
			CacheExpiration: Duration{10 * time.Minute},
		},
	}
}

func overrideString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
