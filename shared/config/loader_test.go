package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/RocketLeagueLatvia/discord-bot/shared/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"RLLV_BOT_CONFIG",
	"RLLV_BOT_DISCORD_TOKEN",
	"RLLV_BOT_COMMAND_PREFIX",
	"RLLV_BOT_OWNERS",
	"RLLV_BOT_LISTEN_ADDR",
	"RLLV_BOT_REDIS_ADDRS",
	"RLLV_BOT_RATING_REFRESH_INTERVAL",
	"RLLV_BOT_RATING_REFRESH_WORKERS",
	"RLLV_BOT_DRAFT_PICK_TIMEOUT",
	"RLLV_BOT_LOG_LEVEL",
	"RLLV_BOT_SERVICE_IP",
	"POD_IP",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(content string) string {
	f, err := os.CreateTemp("", "rllv-bot-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.WriteString(content); err != nil {
		panic(err)
	}
	return f.Name()
}

func TestLoadBotServiceConfig(t *testing.T) {
	convey.Convey("Given the bot config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When no discord token is configured", func() {
			cfg, err := config.LoadBotServiceConfig()

			convey.Convey("Then validation fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "DiscordToken")
			})
		})

		convey.Convey("When only the token is set", func() {
			_ = os.Setenv("RLLV_BOT_DISCORD_TOKEN", "secret")

			cfg, err := config.LoadBotServiceConfig()

			convey.Convey("Then defaults are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.CommandPrefix, convey.ShouldEqual, "!")
				convey.So(cfg.ListenAddr, convey.ShouldEqual, ":8083")
				convey.So(cfg.ServicePort, convey.ShouldEqual, 8083)
				convey.So(cfg.MongoDBDatabase, convey.ShouldEqual, "rllv")
				convey.So(cfg.RankingAPIURL, convey.ShouldEqual, "http://rocketleague.lv/api/maxmmr/")
				convey.So(cfg.RatingRefreshInterval, convey.ShouldEqual, 30*time.Minute)
				convey.So(cfg.CommandThrottle, convey.ShouldEqual, 10*time.Second)
				convey.So(cfg.DraftPickTimeout, convey.ShouldEqual, time.Duration(0))
				convey.So(cfg.HeartbeatInterval, convey.ShouldEqual, 5*time.Second)
				convey.So(len(cfg.RedisAddrs), convey.ShouldEqual, 1)
				convey.So(cfg.ServiceIP, convey.ShouldEqual, "0.0.0.0")
			})
		})

		convey.Convey("When environment variables override defaults", func() {
			_ = os.Setenv("RLLV_BOT_DISCORD_TOKEN", "secret")
			_ = os.Setenv("RLLV_BOT_OWNERS", "111, 222")
			_ = os.Setenv("RLLV_BOT_LISTEN_ADDR", "0.0.0.0:9000")
			_ = os.Setenv("RLLV_BOT_REDIS_ADDRS", "redis-a:6379,redis-b:6379")
			_ = os.Setenv("RLLV_BOT_RATING_REFRESH_WORKERS", "8")
			_ = os.Setenv("RLLV_BOT_DRAFT_PICK_TIMEOUT", "90s")
			_ = os.Setenv("POD_IP", "10.0.0.7")

			cfg, err := config.LoadBotServiceConfig()

			convey.Convey("Then the env values win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Owners, convey.ShouldResemble, []string{"111", "222"})
				convey.So(cfg.IsOwner("222"), convey.ShouldBeTrue)
				convey.So(cfg.IsOwner("333"), convey.ShouldBeFalse)
				convey.So(cfg.ServicePort, convey.ShouldEqual, 9000)
				convey.So(cfg.RedisAddrs, convey.ShouldResemble, []string{"redis-a:6379", "redis-b:6379"})
				convey.So(cfg.RatingRefreshWorkers, convey.ShouldEqual, 8)
				convey.So(cfg.DraftPickTimeout, convey.ShouldEqual, 90*time.Second)
				convey.So(cfg.ServiceIP, convey.ShouldEqual, "10.0.0.7")
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			path := createTempConfigFile(`
discord_token: from-file
command_prefix: "?"
owners:
  - "42"
rating_refresh_interval: 1h
log_format: console
`)
			defer func() { _ = os.Remove(path) }()
			_ = os.Setenv("RLLV_BOT_CONFIG", path)
			_ = os.Setenv("RLLV_BOT_COMMAND_PREFIX", "$")

			cfg, err := config.LoadBotServiceConfig()

			convey.Convey("Then file values apply and env still takes precedence", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.DiscordToken, convey.ShouldEqual, "from-file")
				convey.So(cfg.CommandPrefix, convey.ShouldEqual, "$")
				convey.So(cfg.Owners, convey.ShouldResemble, []string{"42"})
				convey.So(cfg.RatingRefreshInterval, convey.ShouldEqual, time.Hour)
				convey.So(cfg.LogFormat, convey.ShouldEqual, "console")
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("RLLV_BOT_CONFIG", "/nonexistent/rllv-bot.yaml")

			_, err := config.LoadBotServiceConfig()

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the log level is unknown", func() {
			_ = os.Setenv("RLLV_BOT_DISCORD_TOKEN", "secret")
			_ = os.Setenv("RLLV_BOT_LOG_LEVEL", "chatty")

			_, err := config.LoadBotServiceConfig()

			convey.Convey("Then validation rejects it", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
