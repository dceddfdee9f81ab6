// bot/store/event_store.go
package store

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// EventStore is the MongoDB store for events. Registrations, team builder state and
// final teams are embedded in the event document, so each write is a single
// document update.
type EventStore struct {
	collection *mongo.Collection
}

// NewEventStore creates a new EventStore instance.
func NewEventStore(collection *mongo.Collection) *EventStore {
	return &EventStore{
		collection: collection,
	}
}

// EnsureIndexes creates the unique name index and the draft channel lookup index.
func (es *EventStore) EnsureIndexes(ctx context.Context) error {
	_, err := es.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("name_unique"),
		},
		{
			Keys:    bson.D{{Key: "team_builder.channel_id", Value: 1}, {Key: "team_builder.status", Value: 1}},
			Options: options.Index().SetName("draft_channel"),
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to create event indexes")
	}
	return nil
}

// CreateEvent inserts a new event document.
func (es *EventStore) CreateEvent(ctx context.Context, event *models.Event) error {
	if _, err := es.collection.InsertOne(ctx, event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.Wrapf(ErrDuplicate, "event %q", event.Name)
		}
		return errors.Wrapf(err, "failed to create event %q", event.Name)
	}
	return nil
}

func (es *EventStore) findOne(ctx context.Context, filter bson.M, what string, opts ...*options.FindOneOptions) (*models.Event, error) {
	var event models.Event
	if err := es.collection.FindOne(ctx, filter, opts...).Decode(&event); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.Wrapf(ErrNotFound, "event %s", what)
		}
		return nil, errors.Wrapf(err, "failed to get event %s", what)
	}
	return &event, nil
}

func (es *EventStore) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Event, error) {
	cursor, err := es.collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find events")
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, errors.Wrap(err, "failed to decode events")
	}
	return events, nil
}

// GetEventByID retrieves an event by its ID.
func (es *EventStore) GetEventByID(ctx context.Context, id string) (*models.Event, error) {
	return es.findOne(ctx, bson.M{"_id": id}, id)
}

// GetEventByName retrieves an event by its exact name.
func (es *EventStore) GetEventByName(ctx context.Context, name string) (*models.Event, error) {
	return es.findOne(ctx, bson.M{"name": name}, "named "+name)
}

// FindOpenEvents returns events whose registration or check-in is open.
func (es *EventStore) FindOpenEvents(ctx context.Context) ([]models.Event, error) {
	return es.find(ctx, bson.M{"$or": bson.A{
		bson.M{"status.registration": models.WindowOpen},
		bson.M{"status.check_in": models.WindowOpen},
	}})
}

// FindVisibleEvents returns visible events, newest first.
func (es *EventStore) FindVisibleEvents(ctx context.Context) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return es.find(ctx, bson.M{"visible": true}, opts)
}

// activeDraftFilter matches events with a captain draft in progress.
func activeDraftFilter() bson.M {
	return bson.M{
		"team_builder.method": teambuilder.MethodCaptains,
		"team_builder.status": teambuilder.StatusInProgress,
	}
}

// FindEventByDraftChannel returns the event running a captain draft in channelID.
// The most recently started draft wins if more than one matches.
func (es *EventStore) FindEventByDraftChannel(ctx context.Context, channelID string) (*models.Event, error) {
	filter := activeDraftFilter()
	filter["team_builder.channel_id"] = channelID
	opts := options.FindOne().SetSort(bson.D{{Key: "team_builder.started_at", Value: -1}})
	return es.findOne(ctx, filter, "drafting in channel "+channelID, opts)
}

// FindActiveDrafts returns every event with a captain draft in progress.
func (es *EventStore) FindActiveDrafts(ctx context.Context) ([]models.Event, error) {
	return es.find(ctx, activeDraftFilter())
}

func (es *EventStore) updateEvent(ctx context.Context, filter bson.M, update bson.M, what string) error {
	res, err := es.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrapf(err, "failed to %s", what)
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(ErrNotFound, "%s", what)
	}
	return nil
}

// SetVisible shows or hides an event in listings.
func (es *EventStore) SetVisible(ctx context.Context, id string, visible bool) error {
	return es.updateEvent(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"visible": visible}}, "set visibility of event "+id)
}

// SetRegistrationState opens or closes registration.
func (es *EventStore) SetRegistrationState(ctx context.Context, id string, state models.WindowState) error {
	return es.updateEvent(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status.registration": state}}, "set registration of event "+id)
}

// SetCheckInState opens or closes check-in.
func (es *EventStore) SetCheckInState(ctx context.Context, id string, state models.WindowState) error {
	return es.updateEvent(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status.check_in": state}}, "set check-in of event "+id)
}

// AddPlayer appends a registration unless the player is already registered.
func (es *EventStore) AddPlayer(ctx context.Context, id string, player models.EventPlayer) error {
	filter := bson.M{"_id": id, "players.discord_id": bson.M{"$ne": player.DiscordID}}
	update := bson.M{"$push": bson.M{"players": player}}
	res, err := es.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return errors.Wrapf(err, "failed to register player %s to event %s", player.DiscordID, id)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := es.collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return errors.Wrapf(err, "failed to check event %s", id)
	}
	if n == 0 {
		return errors.Wrapf(ErrNotFound, "event %s", id)
	}
	return errors.Wrapf(ErrDuplicate, "player %s in event %s", player.DiscordID, id)
}

// SetPlayerCheckedIn flags a registered player as checked in (or not).
func (es *EventStore) SetPlayerCheckedIn(ctx context.Context, id, discordID string, checkedIn bool) error {
	filter := bson.M{"_id": id, "players.discord_id": discordID}
	update := bson.M{"$set": bson.M{"players.$.checked_in": checkedIn}}
	return es.updateEvent(ctx, filter, update, "check in player "+discordID+" to event "+id)
}

// SetTeams stores the final team assignments.
func (es *EventStore) SetTeams(ctx context.Context, id string, teams []models.TeamAssignment) error {
	return es.updateEvent(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"teams": teams}}, "set teams of event "+id)
}

// UnsetTeams clears previous team assignments.
func (es *EventStore) UnsetTeams(ctx context.Context, id string) error {
	return es.updateEvent(ctx, bson.M{"_id": id}, bson.M{"$unset": bson.M{"teams": ""}}, "unset teams of event "+id)
}

// SetTeamBuilder replaces the event's team builder configuration.
func (es *EventStore) SetTeamBuilder(ctx context.Context, id string, cfg *models.TeamBuilder) error {
	return es.updateEvent(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"team_builder": cfg}}, "set team builder of event "+id)
}
