package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var Config Configuration

type Configuration struct {
	Mode   string `mapstructure:"mode"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	Collector CollectorConfig `mapstructure:"collector"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Policy    struct {
		Seed int64 `mapstructure:"seed"`
	} `mapstructure:"policy"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Database DatabaseConfig `mapstructure:"database"`
}

type CollectorConfig struct {
	MinInferenceSize    int           `mapstructure:"min_inference_size"`
	Seed                int64         `mapstructure:"seed"`
	SpawnDelay          time.Duration `mapstructure:"spawn_delay"`
	Render              bool          `mapstructure:"render"`
	RenderDelay         time.Duration `mapstructure:"render_delay"`
	StartupPollInterval time.Duration `mapstructure:"startup_poll_interval"`
	ShapesPollInterval  time.Duration `mapstructure:"shapes_poll_interval"`
	JoinTimeout         time.Duration `mapstructure:"join_timeout"`
	StartupTimeout      time.Duration `mapstructure:"startup_timeout"`
}

type WorkerConfig struct {
	Binary   string `mapstructure:"binary"`
	Count    int    `mapstructure:"count"`
	Env      string `mapstructure:"env"`
	Agents   int    `mapstructure:"agents"`
	MaxSteps int    `mapstructure:"max_steps"`
}

type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
	Topic   string `mapstructure:"topic"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// URL returns the postgres connection string for the configured database.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.DBName)
}

// LoadConfig reads <env>.yaml from the given paths (default "config") into
// Config. Environment variables such as ROLLOUT_KAFKA_ADDRESS override file
// values.
func LoadConfig(env string, paths ...string) error {
	vp := viper.New()
	vp.SetConfigName(env)
	vp.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"config"}
	}
	for _, p := range paths {
		vp.AddConfigPath(p)
	}
	vp.SetEnvPrefix("rollout")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	if err := vp.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var cfg Configuration
	if err := vp.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	Config = cfg
	slog.Info("Config: configuration loaded", "env", env, "file", vp.ConfigFileUsed())
	return nil
}
