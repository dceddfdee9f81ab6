// bot/store/player_store.go
package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
)

// PlayerStore is the MongoDB store for linked player accounts.
type PlayerStore struct {
	collection *mongo.Collection
}

// NewPlayerStore creates a new PlayerStore instance.
func NewPlayerStore(collection *mongo.Collection) *PlayerStore {
	return &PlayerStore{
		collection: collection,
	}
}

// CreatePlayer inserts a new player document.
func (ps *PlayerStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	_, err := ps.collection.InsertOne(ctx, player)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Wrapf(ErrDuplicate, "player %s", player.DiscordID)
		}
		return errors.Wrapf(err, "failed to create player %s", player.DiscordID)
	}
	return nil
}

// GetPlayer retrieves a player by Discord ID.
func (ps *PlayerStore) GetPlayer(ctx context.Context, discordID string) (*models.Player, error) {
	var player models.Player
	err := ps.collection.FindOne(ctx, bson.M{"_id": discordID}).Decode(&player)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrNotFound, "player %s", discordID)
		}
		return nil, errors.Wrapf(err, "failed to get player %s", discordID)
	}
	return &player, nil
}

// DeletePlayer removes the player document.
func (ps *PlayerStore) DeletePlayer(ctx context.Context, discordID string) error {
	res, err := ps.collection.DeleteOne(ctx, bson.M{"_id": discordID})
	if err != nil {
		return errors.Wrapf(err, "failed to delete player %s", discordID)
	}
	if res.DeletedCount == 0 {
		return errors.Wrapf(ErrNotFound, "player %s", discordID)
	}
	return nil
}

// UpdateMaxMMR stores a freshly looked up rating.
func (ps *PlayerStore) UpdateMaxMMR(ctx context.Context, discordID string, maxMMR int, at time.Time) error {
	filter := bson.M{"_id": discordID}
	update := bson.M{"$set": bson.M{"maxmmr": maxMMR, "rating_updated_at": at}}
	res, err := ps.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrapf(err, "failed to update maxmmr for player %s", discordID)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNotFound, "player %s", discordID)
	}
	return nil
}

// GetPlayersByIDs returns the players among ids that exist, in no particular order.
func (ps *PlayerStore) GetPlayersByIDs(ctx context.Context, ids []string) ([]models.Player, error) {
	if len(ids) == 0 {
		return []models.Player{}, nil
	}
	cursor, err := ps.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find players by id")
	}
	defer cursor.Close(ctx)

	players := []models.Player{}
	if err := cursor.All(ctx, &players); err != nil {
		return nil, errors.Wrap(err, "failed to decode players")
	}
	return players, nil
}

// ListLinkedPlayers returns every player that has a Steam account attached.
func (ps *PlayerStore) ListLinkedPlayers(ctx context.Context) ([]models.Player, error) {
	cursor, err := ps.collection.Find(ctx, bson.M{"steamid64": bson.M{"$nin": bson.A{"", nil}}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to find linked players")
	}
	defer cursor.Close(ctx)

	players := []models.Player{}
	if err := cursor.All(ctx, &players); err != nil {
		return nil, errors.Wrap(err, "failed to decode linked players")
	}
	return players, nil
}
