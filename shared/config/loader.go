// shared/config/loader.go
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix is the prefix of every environment variable read by the bot.
	EnvPrefix = "RLLV_BOT_"
	// EnvConfigFile points at an optional YAML file layered between defaults and env.
	EnvConfigFile = "RLLV_BOT_CONFIG"
)

var validate = validator.New()

// DefaultBotServiceConfig returns the configuration used when nothing overrides it.
func DefaultBotServiceConfig() *BotServiceConfig {
	return &BotServiceConfig{
		CommonConfig: CommonConfig{
			HeartbeatInterval:       5 * time.Second,
			HeartbeatTTL:            15 * time.Second,
			RegistryCleanupInterval: 30 * time.Second,
		},
		CommandPrefix:            "!",
		ListenAddr:               ":8083",
		LogLevel:                 "info",
		LogFormat:                "json",
		MongoDBConnStr:           "mongodb://mongodb-service:27017",
		MongoDBDatabase:          "rllv",
		MongoDBPlayersCollection: "players",
		MongoDBEventsCollection:  "events",
		RankingAPIURL:            "http://rocketleague.lv/api/maxmmr/",
		RatingRefreshInterval:    30 * time.Minute,
		RatingRefreshWorkers:     4,
		CommandThrottle:          10 * time.Second,
	}
}

// LoadBotServiceConfig builds the bot configuration by layering, lowest first:
//  1. DefaultBotServiceConfig
//  2. the YAML file named by RLLV_BOT_CONFIG, if set
//  3. RLLV_BOT_* environment variables (RLLV_BOT_REDIS_ADDRS -> redis_addrs)
func LoadBotServiceConfig() (*BotServiceConfig, error) {
	base := DefaultBotServiceConfig()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errors.Wrapf(err, "failed to load config file %s", path)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment config")
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	// Defaults that depend on other values or the environment.
	if len(cfg.RedisAddrs) == 0 {
		cfg.RedisAddrs = []string{"redis-cluster-headless.rllv.svc.cluster.local:6379"}
	}
	cfg.RedisAddrs = trimAll(cfg.RedisAddrs)
	cfg.Owners = trimAll(cfg.Owners)
	if cfg.ServiceIP == "" {
		cfg.ServiceIP = os.Getenv("POD_IP")
	}
	if cfg.ServiceIP == "" {
		cfg.ServiceIP = "0.0.0.0"
	}

	port, err := extractPort(cfg.ListenAddr)
	if err != nil {
		return nil, err
	}
	cfg.ServicePort = port

	if err := validate.Struct(&cfg); err != nil {
		return nil, errors.Wrap(err, "invalid bot config")
	}
	return &cfg, nil
}

// trimAll trims entries and drops empty ones, so "a, b," becomes [a b].
func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
