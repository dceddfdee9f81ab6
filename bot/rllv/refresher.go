// bot/rllv/refresher.go
package rllv

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/metrics"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
)

// PlayerRefresher lists linked players and refreshes one player's rating.
// *service.PlayerService implements it.
type PlayerRefresher interface {
	ListLinked(ctx context.Context) ([]models.Player, error)
	RefreshRating(ctx context.Context, discordID string) (*int, error)
}

// Ownership decides which bot instance refreshes a player.
// *cluster.ServiceAssignmentManager implements it.
type Ownership interface {
	IsResponsible(entityID string) (bool, error)
}

// Stats summarizes one refresh pass.
type Stats struct {
	Linked  int
	Owned   int
	Updated int64
	Failed  int64
}

// Refresher periodically pulls maxmmr from the ranking API for every linked player
// this instance owns.
type Refresher struct {
	players  PlayerRefresher
	owner    Ownership
	interval time.Duration
	timeout  time.Duration
	pool     *ants.Pool
	metrics  *metrics.Manager
	logger   *logging.Logger

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewRefresher creates a refresher running lookups on a pool of workers. owner may
// be nil, in which case this instance refreshes every player.
func NewRefresher(players PlayerRefresher, owner Ownership, interval time.Duration, workers int, m *metrics.Manager, logger *logging.Logger) (*Refresher, error) {
	if workers < 1 {
		workers = 1
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create refresh worker pool")
	}
	return &Refresher{
		players:  players,
		owner:    owner,
		interval: interval,
		timeout:  5 * time.Minute,
		pool:     pool,
		metrics:  m,
		logger:   logger.Named("rating_refresher"),
		stopChan: make(chan struct{}),
	}, nil
}

// Start runs a pass immediately and then on every tick, until Stop.
func (r *Refresher) Start() {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("rating refresher started", "interval", r.interval)
		r.runPass()
		for {
			select {
			case <-ticker.C:
				r.runPass()
			case <-r.stopChan:
				r.logger.Info("rating refresher stopping")
				return
			}
		}
	}()
}

// Stop signals the job to end, waits for the running pass and releases the pool.
func (r *Refresher) Stop() {
	close(r.stopChan)
	r.wg.Wait()
	r.pool.Release()
}

func (r *Refresher) runPass() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	// Cancel the pass early on shutdown.
	go func() {
		select {
		case <-r.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	stats, err := r.RunOnce(ctx)
	if err != nil {
		r.logger.Error("rating refresh pass failed", "error", err)
		return
	}
	r.logger.Info("rating refresh pass done",
		"linked", stats.Linked, "owned", stats.Owned, "updated", stats.Updated, "failed", stats.Failed)
}

// RunOnce refreshes every owned linked player once and waits for all lookups.
func (r *Refresher) RunOnce(ctx context.Context) (Stats, error) {
	start := time.Now()
	defer func() { r.metrics.ObserveRefreshPass(time.Since(start).Seconds()) }()

	players, err := r.players.ListLinked(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "failed to list linked players")
	}

	stats := Stats{Linked: len(players)}
	var updated, failed atomic.Int64
	var wg sync.WaitGroup
	for _, p := range players {
		if r.owner != nil {
			ok, err := r.owner.IsResponsible(p.DiscordID)
			if err != nil {
				r.logger.Warn("ownership check failed", "discord_id", p.DiscordID, "error", err)
				continue
			}
			if !ok {
				continue
			}
		}
		if ctx.Err() != nil {
			break
		}
		stats.Owned++

		id := p.DiscordID
		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			mmr, err := r.players.RefreshRating(ctx, id)
			if err != nil {
				failed.Add(1)
				r.logger.Warn("rating refresh failed", "discord_id", id, "error", err)
				return
			}
			if mmr != nil {
				updated.Add(1)
			}
		})
		if err != nil {
			wg.Done()
			failed.Add(1)
			r.logger.Error("failed to submit rating refresh", "discord_id", id, "error", err)
		}
	}
	wg.Wait()

	stats.Updated = updated.Load()
	stats.Failed = failed.Load()
	return stats, nil
}
