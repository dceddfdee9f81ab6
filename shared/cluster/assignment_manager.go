// shared/cluster/assignment_manager.go
package cluster

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stathat/consistent"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/registry"
)

// ServiceLister is the part of the registry client the manager needs.
type ServiceLister interface {
	GetActiveServices(ctx context.Context, serviceType string) (map[string]registry.ServiceInfo, error)
}

// ServiceAssignmentManager tells a bot instance whether it owns an entity (a linked
// player for the rating refresher) by consistent hashing over live instances.
type ServiceAssignmentManager struct {
	lister         ServiceLister
	serviceID      string
	serviceType    string
	updateInterval time.Duration
	logger         *logging.Logger

	chMux          sync.RWMutex // protects consistentHash
	consistentHash *consistent.Consistent

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServiceAssignmentManager creates a manager whose ring initially holds only this
// instance, so a lone instance is responsible for everything until the first update.
func NewServiceAssignmentManager(
	lister ServiceLister,
	serviceID, serviceType string,
	updateInterval time.Duration,
	logger *logging.Logger,
) *ServiceAssignmentManager {
	ctx, cancel := context.WithCancel(context.Background())

	sam := &ServiceAssignmentManager{
		lister:         lister,
		serviceID:      serviceID,
		serviceType:    serviceType,
		updateInterval: updateInterval,
		logger:         logger.Named("assignment").With("service_id", serviceID),
		consistentHash: consistent.New(),
		ctx:            ctx,
		cancel:         cancel,
	}
	sam.consistentHash.Add(serviceID)
	return sam
}

// Start refreshes the ring periodically until Stop. Run it in a goroutine.
func (sam *ServiceAssignmentManager) Start() {
	ticker := time.NewTicker(sam.updateInterval)
	defer ticker.Stop()

	sam.UpdateRing()
	for {
		select {
		case <-sam.ctx.Done():
			return
		case <-ticker.C:
			sam.UpdateRing()
		}
	}
}

// Stop ends the update loop.
func (sam *ServiceAssignmentManager) Stop() {
	sam.cancel()
}

// UpdateRing rebuilds the ring when the set of live instances changed.
func (sam *ServiceAssignmentManager) UpdateRing() {
	active, err := sam.lister.GetActiveServices(sam.ctx, sam.serviceType)
	if err != nil {
		sam.logger.Error("failed to list active instances", "error", err)
		return
	}

	members := make([]string, 0, len(active))
	for id := range active {
		members = append(members, id)
	}
	slices.Sort(members)

	sam.chMux.Lock()
	defer sam.chMux.Unlock()

	current := sam.consistentHash.Members()
	slices.Sort(current)
	if slices.Equal(members, current) {
		return
	}

	ring := consistent.New()
	for _, m := range members {
		ring.Add(m)
	}
	sam.consistentHash = ring
	sam.logger.Info("consistent hash ring updated", "members", members)
}

// IsResponsible reports whether this instance owns entityID.
func (sam *ServiceAssignmentManager) IsResponsible(entityID string) (bool, error) {
	sam.chMux.RLock()
	defer sam.chMux.RUnlock()

	if len(sam.consistentHash.Members()) == 0 {
		return false, errors.Newf("consistent hash ring is empty for service type %s", sam.serviceType)
	}

	owner, err := sam.consistentHash.Get(entityID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to get responsible instance for %s", entityID)
	}
	return owner == sam.serviceID, nil
}
