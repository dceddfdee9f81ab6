// shared/config/config.go
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// CommonConfig holds configuration fields shared by every service instance.
type CommonConfig struct {
	RedisAddrs              []string      `koanf:"redis_addrs" validate:"required,min=1,dive,required"`
	RedisPassword           string        `koanf:"redis_password"`
	HeartbeatInterval       time.Duration `koanf:"heartbeat_interval" validate:"gt=0"`         // How often to heartbeat into the registry
	HeartbeatTTL            time.Duration `koanf:"heartbeat_ttl" validate:"gtfield=HeartbeatInterval"` // How long an instance counts as alive without a heartbeat
	RegistryCleanupInterval time.Duration `koanf:"registry_cleanup_interval" validate:"gte=0"`
	ServiceIP               string        `koanf:"service_ip"`   // Advertised IP (Kubernetes Pod IP)
	ServicePort             int           `koanf:"service_port"` // Derived from ListenAddr
}

// BotServiceConfig holds configuration specific to the discord bot service.
type BotServiceConfig struct {
	CommonConfig `koanf:",squash"`

	DiscordToken  string   `koanf:"discord_token" validate:"required"`
	CommandPrefix string   `koanf:"command_prefix" validate:"required"`
	Owners        []string `koanf:"owners"` // Discord user IDs allowed to run owner-only commands
	ListenAddr    string   `koanf:"listen_addr" validate:"required"`
	LogLevel      string   `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFormat     string   `koanf:"log_format" validate:"oneof=json console"`

	MongoDBConnStr           string `koanf:"mongodb_conn_str" validate:"required"`
	MongoDBDatabase          string `koanf:"mongodb_database" validate:"required"`
	MongoDBPlayersCollection string `koanf:"mongodb_players_collection" validate:"required"`
	MongoDBEventsCollection  string `koanf:"mongodb_events_collection" validate:"required"`

	RankingAPIURL         string        `koanf:"ranking_api_url" validate:"required,url"`
	RatingRefreshInterval time.Duration `koanf:"rating_refresh_interval" validate:"gt=0"`
	RatingRefreshWorkers  int           `koanf:"rating_refresh_workers" validate:"gte=1"`

	CommandThrottle  time.Duration `koanf:"command_throttle" validate:"gte=0"`
	DraftPickTimeout time.Duration `koanf:"draft_pick_timeout" validate:"gte=0"` // 0 disables auto-pick
}

// IsOwner reports whether the Discord user may run owner-only commands.
func (c *BotServiceConfig) IsOwner(discordID string) bool {
	for _, o := range c.Owners {
		if o == discordID {
			return true
		}
	}
	return false
}

// extractPort extracts the numeric port from a listen address (":8083" -> 8083, "0.0.0.0:8083" -> 8083)
func extractPort(listenAddr string) (int, error) {
	_, portStr, err := net.SplitHostPort(listenAddr)
	if err != nil {
		if !strings.HasPrefix(listenAddr, ":") {
			return 0, errors.Wrapf(err, "invalid listen_addr %q", listenAddr)
		}
		portStr = strings.TrimPrefix(listenAddr, ":")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid port number %q", portStr)
	}
	return port, nil
}
