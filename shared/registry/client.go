// shared/registry/client.go
package registry

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
)

// RegistryClient reads the instance registry. It is separate from the registrar so
// components that only need discovery do not heartbeat.
type RegistryClient struct {
	redisClient    redis.Cmdable
	serviceTimeout time.Duration
	logger         *logging.Logger
}

// NewRegistryClient takes an already initialized Redis client.
func NewRegistryClient(redisClient redis.Cmdable, serviceTimeout time.Duration, logger *logging.Logger) *RegistryClient {
	return &RegistryClient{
		redisClient:    redisClient,
		serviceTimeout: serviceTimeout,
		logger:         logger.Named("registry"),
	}
}

// GetActiveServices returns the instances of serviceType whose last heartbeat is
// within the service timeout, keyed by instance ID.
func (rc *RegistryClient) GetActiveServices(ctx context.Context, serviceType string) (map[string]ServiceInfo, error) {
	key := RedisRegistryHashPrefix + serviceType
	results, err := rc.redisClient.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get services of type %s", serviceType)
	}

	return activeServices(results, time.Now(), rc.serviceTimeout, rc.logger), nil
}

// activeServices decodes registry entries and keeps the fresh ones. Malformed
// entries are skipped; the registrar's cleanup loop removes them.
func activeServices(entries map[string]string, now time.Time, timeout time.Duration, logger *logging.Logger) map[string]ServiceInfo {
	active := make(map[string]ServiceInfo, len(entries))
	for instanceID, infoJSON := range entries {
		var info ServiceInfo
		if err := sonic.UnmarshalString(infoJSON, &info); err != nil {
			logger.Warn("skipping malformed registry entry", "instance_id", instanceID, "error", err)
			continue
		}
		if now.Sub(time.UnixMilli(info.LastSeen)) <= timeout {
			active[instanceID] = info
		}
	}
	return active
}
