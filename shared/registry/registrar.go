// shared/registry/registrar.go
package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/RocketLeagueLatvia/discord-bot/shared/config"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
)

// ServiceRegistrar handles self-registration and heartbeating of one instance.
type ServiceRegistrar struct {
	redisClient redis.Cmdable
	serviceType string
	cfg         *config.CommonConfig
	serviceID   string
	logger      *logging.Logger
	stopChan    chan struct{}
	doneChan    chan struct{}
}

// NewServiceRegistrar creates a registrar with a fresh instance ID.
func NewServiceRegistrar(redisClient redis.Cmdable, serviceType string, cfg *config.CommonConfig, logger *logging.Logger) *ServiceRegistrar {
	serviceID := fmt.Sprintf("%s-%s", serviceType, uuid.New().String())

	return &ServiceRegistrar{
		redisClient: redisClient,
		serviceType: serviceType,
		cfg:         cfg,
		serviceID:   serviceID,
		logger:      logger.Named("registrar").With("service_type", serviceType, "service_id", serviceID),
		stopChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
	}
}

// Start begins registration and heartbeating in a goroutine.
func (sr *ServiceRegistrar) Start() {
	sr.logger.Info("starting service registrar", "ip", sr.cfg.ServiceIP, "port", sr.cfg.ServicePort)
	go sr.run()
}

// Stop signals the registrar to stop, waits for it and removes this instance from
// the registry.
func (sr *ServiceRegistrar) Stop() {
	close(sr.stopChan)
	<-sr.doneChan

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hashKey := RedisRegistryHashPrefix + sr.serviceType
	if err := sr.redisClient.HDel(ctx, hashKey, sr.serviceID).Err(); err != nil {
		sr.logger.Error("failed to remove instance from registry on shutdown", "error", err)
		return
	}
	sr.logger.Info("service registrar stopped")
}

func (sr *ServiceRegistrar) run() {
	defer close(sr.doneChan)

	ticker := time.NewTicker(sr.cfg.HeartbeatInterval)
	defer ticker.Stop()

	sr.registerService()

	if sr.cfg.RegistryCleanupInterval > 0 {
		sr.startCleanupLoop()
	}

	for {
		select {
		case <-ticker.C:
			sr.registerService()
		case <-sr.stopChan:
			return
		}
	}
}

// registerService writes the heartbeat entry.
func (sr *ServiceRegistrar) registerService() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	info := ServiceInfo{
		ServiceID:   sr.serviceID,
		ServiceType: sr.serviceType,
		IP:          sr.cfg.ServiceIP,
		Port:        sr.cfg.ServicePort,
		LastSeen:    time.Now().UnixMilli(),
		Metadata:    map[string]string{"version": "1.0"},
	}

	infoJSON, err := sonic.MarshalString(info)
	if err != nil {
		sr.logger.Error("failed to marshal service info", "error", err)
		return
	}

	hashKey := RedisRegistryHashPrefix + sr.serviceType
	if err := sr.redisClient.HSet(ctx, hashKey, sr.serviceID, infoJSON).Err(); err != nil {
		sr.logger.Error("failed to heartbeat", "error", err)
		return
	}
	sr.logger.Debug("heartbeat sent")
}

func (sr *ServiceRegistrar) startCleanupLoop() {
	go func() {
		cleanupTicker := time.NewTicker(sr.cfg.RegistryCleanupInterval)
		defer cleanupTicker.Stop()

		for {
			select {
			case <-cleanupTicker.C:
				sr.performCleanup()
			case <-sr.stopChan:
				return
			}
		}
	}()
}

// performCleanup removes entries that are malformed or older than HeartbeatTTL.
func (sr *ServiceRegistrar) performCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	hashKey := RedisRegistryHashPrefix + sr.serviceType
	results, err := sr.redisClient.HGetAll(ctx, hashKey).Result()
	if err != nil {
		sr.logger.Error("registry cleanup failed to list instances", "error", err)
		return
	}

	live := activeServices(results, time.Now(), sr.cfg.HeartbeatTTL, sr.logger)
	for instanceID := range results {
		if _, ok := live[instanceID]; ok {
			continue
		}
		if err := sr.redisClient.HDel(ctx, hashKey, instanceID).Err(); err != nil {
			sr.logger.Error("failed to delete stale instance", "instance_id", instanceID, "error", err)
			continue
		}
		sr.logger.Info("removed stale instance from registry", "instance_id", instanceID)
	}
}

// GetServiceID returns the unique ID of this instance.
func (sr *ServiceRegistrar) GetServiceID() string {
	return sr.serviceID
}

// GetServiceType returns the service type of this instance.
func (sr *ServiceRegistrar) GetServiceType() string {
	return sr.serviceType
}
