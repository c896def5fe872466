package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Simulator SimulatorConfig `mapstructure:"simulator"`
	Plans     PlansConfig     `mapstructure:"plans"`
	Stats     StatsConfig     `mapstructure:"stats"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Development bool `mapstructure:"development"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type SimulatorConfig struct {
	TickInterval             time.Duration `mapstructure:"tick_interval"`
	MaxActionsPerHour        int           `mapstructure:"max_actions_per_hour"`
	HourlyCap                int           `mapstructure:"hourly_cap"`
	Seed                     int64         `mapstructure:"seed"`
	FollowSuccessProbability float64       `mapstructure:"follow_success_probability"`
	CommentProbability       float64       `mapstructure:"comment_probability"`
	SeedPosts                int           `mapstructure:"seed_posts"`
}

type PlansConfig struct {
	FreeMaxBots int `mapstructure:"free_max_bots"`
}

type StatsConfig struct {
	CostPerInteraction float64       `mapstructure:"cost_per_interaction"`
	ReportingWindow    time.Duration `mapstructure:"reporting_window"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.development", false)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", true)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")

	v.SetDefault("simulator.tick_interval", time.Minute)
	v.SetDefault("simulator.max_actions_per_hour", 60)
	v.SetDefault("simulator.hourly_cap", 30)
	v.SetDefault("simulator.seed", 1)
	v.SetDefault("simulator.follow_success_probability", 0.7)
	v.SetDefault("simulator.comment_probability", 0.35)
	v.SetDefault("simulator.seed_posts", 25)

	v.SetDefault("plans.free_max_bots", 3)

	v.SetDefault("stats.cost_per_interaction", 0.25)
	v.SetDefault("stats.reporting_window", 24*time.Hour)
}

// LoadConfig reads path on top of the defaults. A missing file leaves the defaults in
// place; environment variables such as SIMULATOR_HOURLY_CAP override both.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Enable environment variable support
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	if redisURL := v.GetString("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
		config.Redis.Enabled = true
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch {
	case c.Simulator.TickInterval < time.Second || c.Simulator.TickInterval%time.Second != 0:
		return fmt.Errorf("simulator.tick_interval must be a whole number of seconds, got %s", c.Simulator.TickInterval)
	case c.Simulator.MaxActionsPerHour <= 0:
		return errors.New("simulator.max_actions_per_hour must be positive")
	case c.Simulator.HourlyCap <= 0:
		return errors.New("simulator.hourly_cap must be positive")
	case c.Plans.FreeMaxBots < 0:
		return errors.New("plans.free_max_bots must not be negative")
	case c.Stats.ReportingWindow <= 0:
		return errors.New("stats.reporting_window must be positive")
	}
	return nil
}
