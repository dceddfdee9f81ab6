// bot/service/player_service.go
package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/leighmacdonald/steamid/v4/steamid"

	"github.com/RocketLeagueLatvia/discord-bot/bot/store"
	"github.com/RocketLeagueLatvia/discord-bot/shared/api"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/metrics"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	sharedservice "github.com/RocketLeagueLatvia/discord-bot/shared/service"
)

// PlayerRepository is the persistence the player service needs. *store.PlayerStore
// implements it.
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, discordID string) (*models.Player, error)
	DeletePlayer(ctx context.Context, discordID string) error
	UpdateMaxMMR(ctx context.Context, discordID string, maxMMR int, at time.Time) error
	GetPlayersByIDs(ctx context.Context, ids []string) ([]models.Player, error)
	ListLinkedPlayers(ctx context.Context) ([]models.Player, error)
}

// RankingLookup fetches a player's rating. *sharedservice.RankingClient implements it.
type RankingLookup interface {
	GetMaxMMR(ctx context.Context, steamID64 string) (int, error)
}

// PlayerService links Discord accounts to Steam accounts and keeps their rating
// current.
type PlayerService struct {
	players PlayerRepository
	ranking RankingLookup
	metrics *metrics.Manager
	logger  *logging.Logger
	now     func() time.Time

	wg sync.WaitGroup // background rating lookups started by Link
}

// NewPlayerService creates a new PlayerService instance.
func NewPlayerService(players PlayerRepository, ranking RankingLookup, m *metrics.Manager, logger *logging.Logger) *PlayerService {
	return &PlayerService{
		players: players,
		ranking: ranking,
		metrics: m,
		logger:  logger.Named("players"),
		now:     time.Now,
	}
}

// ParseSteamID64 validates a user supplied steamid64 and returns it trimmed.
func ParseSteamID64(s string) (string, error) {
	s = strings.TrimSpace(s)
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", errors.Wrapf(ErrInvalidSteamID, "%q is not numeric", s)
	}
	parsed := steamid.New(s)
	if !parsed.Valid() {
		return "", errors.Wrapf(ErrInvalidSteamID, "%q", s)
	}
	return s, nil
}

// Link creates the player document for discordID and looks up the rating in the
// background.
func (ps *PlayerService) Link(ctx context.Context, discordID, nick, steamID64 string) (*models.Player, error) {
	sid, err := ParseSteamID64(steamID64)
	if err != nil {
		return nil, err
	}

	now := ps.now()
	player := &models.Player{
		DiscordID:   discordID,
		DiscordNick: nick,
		SteamID64:   sid,
		CreatedAt:   &now,
	}
	if err := ps.players.CreatePlayer(ctx, player); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAccountLinked
		}
		return nil, errors.Wrap(err, "service failed to link player")
	}
	ps.logger.Info("player linked", "discord_id", discordID, "steamid64", sid)

	ps.wg.Add(1)
	go func() {
		defer ps.wg.Done()
		refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := ps.RefreshRating(refreshCtx, discordID); err != nil {
			ps.logger.Warn("initial rating lookup failed", "discord_id", discordID, "error", err)
		}
	}()

	return player, nil
}

// Wait blocks until background lookups started by Link have finished.
func (ps *PlayerService) Wait() {
	ps.wg.Wait()
}

// Unlink deletes the player's document.
func (ps *PlayerService) Unlink(ctx context.Context, discordID string) error {
	if err := ps.players.DeletePlayer(ctx, discordID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotLinked
		}
		return errors.Wrap(err, "service failed to unlink player")
	}
	ps.logger.Info("player unlinked", "discord_id", discordID)
	return nil
}

// Get returns the linked player.
func (ps *PlayerService) Get(ctx context.Context, discordID string) (*models.Player, error) {
	player, err := ps.players.GetPlayer(ctx, discordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotLinked
		}
		return nil, errors.Wrap(err, "service failed to get player")
	}
	return player, nil
}

// ListLinked returns every player with a Steam account.
func (ps *PlayerService) ListLinked(ctx context.Context) ([]models.Player, error) {
	return ps.players.ListLinkedPlayers(ctx)
}

// RefreshRating looks up the player's maxmmr and stores it. A player unknown to the
// ranking API keeps the rating it had; the returned value is nil in that case.
func (ps *PlayerService) RefreshRating(ctx context.Context, discordID string) (*int, error) {
	player, err := ps.Get(ctx, discordID)
	if err != nil {
		return nil, err
	}
	if player.SteamID64 == "" {
		return nil, nil
	}

	mmr, err := ps.ranking.GetMaxMMR(ctx, player.SteamID64)
	if err != nil {
		if errors.Is(err, sharedservice.ErrRankingPlayerNotFound) {
			ps.metrics.ObserveRatingRefresh("not_found")
			ps.logger.Debug("player not found in ranking API", "discord_id", discordID, "steamid64", player.SteamID64)
			return nil, nil
		}
		ps.metrics.ObserveRatingRefresh(lookupOutcome(err))
		return nil, errors.Wrapf(err, "rating lookup for %s", discordID)
	}

	if err := ps.players.UpdateMaxMMR(ctx, discordID, mmr, ps.now()); err != nil {
		ps.metrics.ObserveRatingRefresh("error")
		return nil, errors.Wrap(err, "service failed to store rating")
	}
	ps.metrics.ObserveRatingRefresh("updated")
	return &mmr, nil
}

// lookupOutcome labels a failed ranking lookup by HTTP status when there is one.
func lookupOutcome(err error) string {
	if code := api.GetHTTPStatusCode(err); code != 0 {
		return "http_" + strconv.Itoa(code)
	}
	return "error"
}

// Ratings returns the current maxmmr for each of ids. Unlinked players are absent
// from the map; linked players without a rating map to nil.
func (ps *PlayerService) Ratings(ctx context.Context, ids []string) (map[string]*int, error) {
	players, err := ps.players.GetPlayersByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "service failed to load ratings")
	}
	out := make(map[string]*int, len(players))
	for _, p := range players {
		out[p.DiscordID] = p.MaxMMR
	}
	return out, nil
}
