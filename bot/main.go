package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	botapi "github.com/RocketLeagueLatvia/discord-bot/bot/api"
	"github.com/RocketLeagueLatvia/discord-bot/bot/command"
	"github.com/RocketLeagueLatvia/discord-bot/bot/rllv"
	"github.com/RocketLeagueLatvia/discord-bot/bot/service"
	"github.com/RocketLeagueLatvia/discord-bot/bot/store"
	"github.com/RocketLeagueLatvia/discord-bot/shared/api"
	"github.com/RocketLeagueLatvia/discord-bot/shared/cluster"
	"github.com/RocketLeagueLatvia/discord-bot/shared/config"
	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
	"github.com/RocketLeagueLatvia/discord-bot/shared/metrics"
	"github.com/RocketLeagueLatvia/discord-bot/shared/mongodb"
	redisu "github.com/RocketLeagueLatvia/discord-bot/shared/redis"
	"github.com/RocketLeagueLatvia/discord-bot/shared/registry"
	rankingclient "github.com/RocketLeagueLatvia/discord-bot/shared/service"
)

// draftLockTTL bounds how long a crashed instance can hold an event's draft lock.
const draftLockTTL = 10 * time.Second

func fatal(logger *logging.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	_ = logger.Sync()
	os.Exit(1)
}

func main() {
	// --- 1. Load Configuration ---
	cfg, err := config.LoadBotServiceConfig()
	if err != nil {
		fatal(logging.Default(), "failed to load configuration", err)
	}

	// --- 2. Logger ---
	logger := logging.New(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel)).Named("bot")
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()
	logger.Info("configuration loaded", "listen_addr", cfg.ListenAddr, "prefix", cfg.CommandPrefix, "owners", len(cfg.Owners))

	// --- 3. Connect to MongoDB ---
	mongoClient, err := mongodb.NewClient(cfg.MongoDBConnStr, cfg.MongoDBDatabase, logger)
	if err != nil {
		fatal(logger, "failed to connect to MongoDB", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(ctx); err != nil {
			logger.Error("error disconnecting from MongoDB", "error", err)
		}
	}()

	// --- 4. Connect to Redis ---
	redisClient, err := redisu.NewRedisClient(cfg.RedisAddrs, cfg.RedisPassword)
	if err != nil {
		fatal(logger, "failed to connect to Redis", err)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("error closing Redis client", "error", err)
		}
	}()

	// --- 5. Stores ---
	playerStore := store.NewPlayerStore(mongoClient.Collection(cfg.MongoDBPlayersCollection))
	eventStore := store.NewEventStore(mongoClient.Collection(cfg.MongoDBEventsCollection))
	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := eventStore.EnsureIndexes(indexCtx); err != nil {
		indexCancel()
		fatal(logger, "failed to create event indexes", err)
	}
	indexCancel()

	// --- 6. Ranking API client and metrics ---
	ranking := rankingclient.NewRankingClient(cfg.RankingAPIURL, nil)
	metricsManager := metrics.NewManager()

	// --- 7. Discord session and business services ---
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		fatal(logger, "failed to create Discord session", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

	playerService := service.NewPlayerService(playerStore, ranking, metricsManager, logger)
	eventService := service.NewEventService(eventStore, playerService, logger)
	teamBuildService := service.NewTeamBuildService(eventService,
		service.WithLocker(redisu.NewLocker(redisClient, draftLockTTL)),
		service.WithPickTimeout(cfg.DraftPickTimeout),
		service.WithMetrics(metricsManager),
		service.WithAutoPickHook(command.AutoPickAnnouncer(session, logger)),
		service.WithLogger(logger),
	)

	resumeCtx, resumeCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := teamBuildService.ResumeTimers(resumeCtx); err != nil {
		logger.Warn("failed to resume draft pick timers", "error", err)
	}
	resumeCancel()

	// --- 8. Service registry and refresh assignment ---
	registrar := registry.NewServiceRegistrar(redisClient, registry.BotServiceType, &cfg.CommonConfig, logger)
	registrar.Start()
	registryClient := registry.NewRegistryClient(redisClient, cfg.HeartbeatTTL, logger)
	assignment := cluster.NewServiceAssignmentManager(registryClient, registrar.GetServiceID(), registry.BotServiceType, cfg.HeartbeatInterval, logger)
	go assignment.Start()

	// --- 9. Rating refresher ---
	refresher, err := rllv.NewRefresher(playerService, assignment, cfg.RatingRefreshInterval, cfg.RatingRefreshWorkers, metricsManager, logger)
	if err != nil {
		fatal(logger, "failed to create rating refresher", err)
	}
	refresher.Start()

	// --- 10. Commands and Discord gateway ---
	var routerOpts []command.Option
	routerOpts = append(routerOpts, command.WithMetrics(metricsManager), command.WithLogger(logger))
	if cfg.CommandThrottle > 0 {
		routerOpts = append(routerOpts, command.WithThrottle(redisu.NewThrottler(redisClient, cfg.CommandThrottle)))
	}
	router := command.NewRouter(cfg.CommandPrefix, cfg.IsOwner, routerOpts...)
	command.NewBot(eventService, playerService, teamBuildService).Register(router)
	session.AddHandler(router.HandleMessageCreate)
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		logger.Info("connected to Discord", "user", r.User.Username, "guilds", len(r.Guilds))
	})
	if err := session.Open(); err != nil {
		fatal(logger, "failed to open Discord gateway", err)
	}

	// --- 11. Admin HTTP server ---
	baseServer := api.NewBaseServer(cfg.ListenAddr, logger)
	pingers := map[string]botapi.Pinger{
		"mongodb": mongoClient,
		"redis": botapi.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}),
	}
	botapi.NewBotAPIHandlers(eventService, pingers, metricsManager.Handler(), logger).RegisterRoutes(baseServer.Router)
	go func() {
		if err := baseServer.Start(); err != nil {
			fatal(logger, "HTTP server failed", err)
		}
	}()

	// --- 12. Graceful Shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down bot service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := session.Close(); err != nil {
		logger.Error("error closing Discord session", "error", err)
	}
	if err := baseServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", "error", err)
	}
	teamBuildService.Stop()
	refresher.Stop()
	assignment.Stop()
	registrar.Stop()
	playerService.Wait()

	logger.Info("bot service gracefully shut down")
}
