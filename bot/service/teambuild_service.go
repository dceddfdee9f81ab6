// bot/service/teambuild_service.go
package service

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/metrics"
	"github.com/RocketLeagueLatvia/discord-bot/shared/models"
	sharedredis "github.com/RocketLeagueLatvia/discord-bot/shared/redis"
	"github.com/RocketLeagueLatvia/discord-bot/shared/teambuilder"
)

// EventCollaborator is what team building needs from events. *EventService
// implements it.
type EventCollaborator interface {
	Resolve(ctx context.Context, name string) (*models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	FindDraftInChannel(ctx context.Context, channelID string) (*models.Event, error)
	ListActiveDrafts(ctx context.Context) ([]models.Event, error)
	GetCheckedInPlayers(ctx context.Context, eventID string) ([]teambuilder.Player, error)
	SetTeams(ctx context.Context, eventID string, teams []teambuilder.Team) error
	UnsetTeams(ctx context.Context, eventID string) error
	SetTeamBuilder(ctx context.Context, eventID string, cfg *models.TeamBuilder) error
}

// EventLocker serializes builds and picks of one event across bot instances.
// *sharedredis.Locker implements it.
type EventLocker interface {
	Lock(ctx context.Context, eventID string) (func(), error)
}

// BuildResult is the outcome of starting a build. For the captains method Teams
// holds the captains' partial teams.
type BuildResult struct {
	Event  *models.Event
	Config *models.TeamBuilder
	Teams  []teambuilder.Team
}

// PickResult describes one applied draft pick.
type PickResult struct {
	Event   *models.Event
	Captain teambuilder.Player
	Picked  teambuilder.Player
	Draft   teambuilder.Draft
	Auto    bool
}

// Finished reports whether this pick completed the draft.
func (r *PickResult) Finished() bool {
	return r.Draft.Status == teambuilder.StatusFinished
}

// AutoPickHook is called after a timed-out captain was picked for.
type AutoPickHook func(result *PickResult)

// TeamBuildOption configures a TeamBuildService.
type TeamBuildOption func(*TeamBuildService)

// WithShuffler sets the random source for random builds.
func WithShuffler(rng teambuilder.Shuffler) TeamBuildOption {
	return func(s *TeamBuildService) {
		s.rng = rng
	}
}

// WithPickTimeout auto-picks for a captain that has not picked within d. Zero
// disables the timer.
func WithPickTimeout(d time.Duration) TeamBuildOption {
	return func(s *TeamBuildService) {
		s.pickTimeout = d
	}
}

// WithLocker adds a cross-instance lock around builds and picks.
func WithLocker(l EventLocker) TeamBuildOption {
	return func(s *TeamBuildService) {
		s.locker = l
	}
}

// WithMetrics records builds and picks.
func WithMetrics(m *metrics.Manager) TeamBuildOption {
	return func(s *TeamBuildService) {
		s.metrics = m
	}
}

// WithAutoPickHook is notified of every auto-pick, e.g. to announce it in chat.
func WithAutoPickHook(hook AutoPickHook) TeamBuildOption {
	return func(s *TeamBuildService) {
		s.onAutoPick = hook
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) TeamBuildOption {
	return func(s *TeamBuildService) {
		s.logger = logger.Named("teambuild")
	}
}

// TeamBuildService runs random builds and captain drafts for events. The draft
// state lives in the event document; every transition reloads it under the event
// lock, applies one pick and writes it back.
type TeamBuildService struct {
	events      EventCollaborator
	locker      EventLocker
	metrics     *metrics.Manager
	logger      *logging.Logger
	pickTimeout time.Duration
	onAutoPick  AutoPickHook
	now         func() time.Time

	rngMu sync.Mutex
	rng   teambuilder.Shuffler

	mu         sync.Mutex
	eventLocks map[string]*sync.Mutex
	timers     map[string]*time.Timer
	stopped    bool
	wg         sync.WaitGroup // running auto-picks
}

// NewTeamBuildService creates a new TeamBuildService instance.
func NewTeamBuildService(events EventCollaborator, opts ...TeamBuildOption) *TeamBuildService {
	s := &TeamBuildService{
		events:     events,
		logger:     logging.Default().Named("teambuild"),
		now:        time.Now,
		eventLocks: make(map[string]*sync.Mutex),
		timers:     make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return s
}

// lock takes the in-process mutex for eventID and, if configured, the distributed
// lock.
func (s *TeamBuildService) lock(ctx context.Context, eventID string) (func(), error) {
	s.mu.Lock()
	m, ok := s.eventLocks[eventID]
	if !ok {
		m = &sync.Mutex{}
		s.eventLocks[eventID] = m
	}
	s.mu.Unlock()

	m.Lock()
	if s.locker == nil {
		return m.Unlock, nil
	}
	release, err := s.locker.Lock(ctx, eventID)
	if err != nil {
		m.Unlock()
		if errors.Is(err, sharedredis.ErrLockHeld) {
			return nil, errors.Wrapf(ErrBuildInProgress, "event %s", eventID)
		}
		return nil, err
	}
	return func() {
		release()
		m.Unlock()
	}, nil
}

func (s *TeamBuildService) buildRandom(players []teambuilder.Player, teamSize int) []teambuilder.Team {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return teambuilder.BuildRandom(players, teamSize, s.rng)
}

// Build starts a new team build for the event, replacing any previous build and
// its teams. Random builds finish immediately; captain drafts are left in progress
// and driven by Pick.
func (s *TeamBuildService) Build(ctx context.Context, eventName string, method teambuilder.Method, teamSize int, channelID string) (*BuildResult, error) {
	if method != teambuilder.MethodRandom && method != teambuilder.MethodCaptains {
		return nil, errors.Wrapf(teambuilder.ErrUnknownMethod, "%q", method)
	}
	if teamSize != 2 && teamSize != 3 {
		return nil, errors.Wrapf(ErrInvalidTeamSize, "got %d", teamSize)
	}

	event, err := s.events.Resolve(ctx, eventName)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()
	s.cancelTimer(event.ID)

	if method == teambuilder.MethodCaptains && channelID != "" {
		if err := s.checkChannelFree(ctx, event.ID, channelID); err != nil {
			return nil, err
		}
	}

	players, err := s.events.GetCheckedInPlayers(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if len(players) < teamSize*2 {
		return nil, errors.Wrapf(ErrNotEnoughPlayers, "%d checked in, need %d", len(players), teamSize*2)
	}

	if err := s.events.UnsetTeams(ctx, event.ID); err != nil {
		return nil, err
	}
	now := s.now()
	cfg := &models.TeamBuilder{
		Method:    method,
		TeamSize:  teamSize,
		ChannelID: channelID,
		Status:    teambuilder.StatusInProgress,
		StartedAt: &now,
	}

	var teams []teambuilder.Team
	switch method {
	case teambuilder.MethodRandom:
		teams = s.buildRandom(players, teamSize)
		if err := s.events.SetTeams(ctx, event.ID, teams); err != nil {
			return nil, err
		}
		cfg.Status = teambuilder.StatusFinished
	case teambuilder.MethodCaptains:
		d := teambuilder.Start(players, teamSize)
		cfg.Draft = &d
		teams = d.Teams
		if d.Status == teambuilder.StatusFinished {
			if err := s.events.SetTeams(ctx, event.ID, teams); err != nil {
				return nil, err
			}
			cfg.Status = teambuilder.StatusFinished
		}
	}
	if err := s.events.SetTeamBuilder(ctx, event.ID, cfg); err != nil {
		return nil, err
	}
	event.Teams = nil
	if cfg.Status == teambuilder.StatusFinished {
		event.Teams = TeamAssignments(teams)
	}

	s.metrics.ObserveTeamBuild(string(method), strconv.Itoa(teamSize))
	s.logger.Info("team build started",
		"event_id", event.ID, "method", method, "team_size", teamSize,
		"players", len(players), "status", cfg.Status)

	if cfg.Status == teambuilder.StatusInProgress {
		s.armTimer(event.ID, cfg.Draft.Picks)
	}
	event.TeamBuilder = cfg
	return &BuildResult{Event: event, Config: cfg, Teams: teams}, nil
}

// checkChannelFree fails when another event's draft already runs in channelID, since
// picks are routed by channel.
func (s *TeamBuildService) checkChannelFree(ctx context.Context, eventID, channelID string) error {
	other, err := s.events.FindDraftInChannel(ctx, channelID)
	switch {
	case errors.Is(err, ErrNoActiveDraft):
		return nil
	case err != nil:
		return err
	case other.ID != eventID:
		return errors.Wrapf(ErrDraftChannelBusy, "event %s is drafting in channel %s", other.Name, channelID)
	}
	return nil
}

// Pick applies a captain's pick in the named event's draft.
func (s *TeamBuildService) Pick(ctx context.Context, eventName, captainID, playerID string) (*PickResult, error) {
	event, err := s.events.Resolve(ctx, eventName)
	if err != nil {
		return nil, err
	}
	return s.pick(ctx, event.ID, captainID, playerID, -1)
}

// PickInChannel applies a captain's pick in the draft running in channelID.
func (s *TeamBuildService) PickInChannel(ctx context.Context, channelID, captainID, playerID string) (*PickResult, error) {
	event, err := s.events.FindDraftInChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return s.pick(ctx, event.ID, captainID, playerID, -1)
}

// AutoPick picks the highest rated remaining player for the current captain.
func (s *TeamBuildService) AutoPick(ctx context.Context, eventName string) (*PickResult, error) {
	event, err := s.events.Resolve(ctx, eventName)
	if err != nil {
		return nil, err
	}
	return s.pick(ctx, event.ID, "", "", -1)
}

// pick runs one draft transition under the event lock. An empty captainID means
// auto-pick. When expectPicks is not negative the pick is skipped (nil result) if
// the draft moved on since the timer was armed.
func (s *TeamBuildService) pick(ctx context.Context, eventID, captainID, playerID string, expectPicks int) (*PickResult, error) {
	unlock, err := s.lock(ctx, eventID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	tb := event.TeamBuilder
	if tb == nil || tb.Method != teambuilder.MethodCaptains || tb.Draft == nil || tb.Status != teambuilder.StatusInProgress {
		return nil, errors.Wrapf(ErrNoActiveDraft, "event %s", event.Name)
	}
	if expectPicks >= 0 && tb.Draft.Picks != expectPicks {
		return nil, nil
	}

	prev := *tb.Draft
	result := &PickResult{Event: event, Auto: captainID == ""}
	var next teambuilder.Draft
	if result.Auto {
		result.Captain, _ = prev.CurrentCaptain()
		next, err = prev.AutoPick()
		if err == nil {
			result.Picked = prev.Pool[0]
		}
	} else {
		next, err = prev.Pick(captainID, playerID)
		if err == nil {
			result.Captain, _ = prev.CurrentCaptain()
			result.Picked = findPlayer(prev.Pool, playerID)
		}
	}
	if err != nil {
		return nil, err
	}

	cfg := *tb
	cfg.Draft = &next
	if next.Status == teambuilder.StatusFinished {
		teams, err := next.Finish()
		if err != nil {
			return nil, err
		}
		if err := s.events.SetTeams(ctx, eventID, teams); err != nil {
			return nil, err
		}
		cfg.Status = teambuilder.StatusFinished
		event.Teams = TeamAssignments(teams)
	}
	if err := s.events.SetTeamBuilder(ctx, eventID, &cfg); err != nil {
		return nil, err
	}
	event.TeamBuilder = &cfg
	result.Draft = next

	source := "captain"
	if result.Auto {
		source = "auto"
	}
	s.metrics.ObserveDraftPick(source)
	s.logger.Info("draft pick",
		"event_id", eventID, "captain", result.Captain.ID, "picked", result.Picked.ID,
		"source", source, "picks", next.Picks, "status", next.Status)

	if next.Status == teambuilder.StatusFinished {
		s.cancelTimer(eventID)
	} else {
		s.armTimer(eventID, next.Picks)
	}
	return result, nil
}

func findPlayer(players []teambuilder.Player, id string) teambuilder.Player {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return teambuilder.Player{ID: id}
}

// Current returns the event with its team builder state.
func (s *TeamBuildService) Current(ctx context.Context, eventName string) (*models.Event, error) {
	event, err := s.events.Resolve(ctx, eventName)
	if err != nil {
		return nil, err
	}
	if event.TeamBuilder == nil {
		return nil, errors.Wrapf(ErrNoActiveDraft, "event %s", event.Name)
	}
	return event, nil
}

// CurrentInChannel returns the event drafting in channelID.
func (s *TeamBuildService) CurrentInChannel(ctx context.Context, channelID string) (*models.Event, error) {
	return s.events.FindDraftInChannel(ctx, channelID)
}

// armTimer (re)starts the pick timer of an event. picks is the draft's pick count
// the timer belongs to; a later pick makes it stale.
func (s *TeamBuildService) armTimer(eventID string, picks int) {
	if s.pickTimeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if t, ok := s.timers[eventID]; ok {
		t.Stop()
	}
	s.timers[eventID] = time.AfterFunc(s.pickTimeout, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		s.wg.Add(1)
		s.mu.Unlock()
		defer s.wg.Done()
		s.timedOut(eventID, picks)
	})
}

func (s *TeamBuildService) cancelTimer(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[eventID]; ok {
		t.Stop()
		delete(s.timers, eventID)
	}
}

func (s *TeamBuildService) timedOut(eventID string, picks int) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.pick(ctx, eventID, "", "", picks)
	if err != nil {
		s.logger.Warn("auto-pick failed", "event_id", eventID, "error", err)
		return
	}
	if result == nil {
		return
	}
	if s.onAutoPick != nil {
		s.onAutoPick(result)
	}
}

// ResumeTimers arms a pick timer for every draft left in progress, e.g. by a
// restart. It returns how many timers were armed.
func (s *TeamBuildService) ResumeTimers(ctx context.Context) (int, error) {
	if s.pickTimeout <= 0 {
		return 0, nil
	}
	events, err := s.events.ListActiveDrafts(ctx)
	if err != nil {
		return 0, err
	}
	armed := 0
	for _, e := range events {
		if e.TeamBuilder == nil || e.TeamBuilder.Draft == nil {
			continue
		}
		s.armTimer(e.ID, e.TeamBuilder.Draft.Picks)
		armed++
	}
	if armed > 0 {
		s.logger.Info("resumed draft pick timers", "drafts", armed)
	}
	return armed, nil
}

// Stop cancels pending pick timers and waits for running auto-picks.
func (s *TeamBuildService) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
