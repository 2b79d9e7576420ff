package main

import (
	"context"

	"boorubot/internal/3rdparty/booru/danbooru"
	"boorubot/internal/3rdparty/booru/gelbooru"
	"boorubot/internal/core"
	"boorubot/internal/ext/converters"
	"boorubot/internal/ext/vendors/booru"

	aconvert "github.com/jfk9w-go/aconvert-api"
	"github.com/jfk9w-go/flu"
	"github.com/jfk9w-go/flu/apfel"
	"github.com/jfk9w-go/flu/gormf"
	"github.com/jfk9w-go/flu/logf"
	"github.com/jfk9w-go/telegram-bot-api/ext/tapp"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type C struct {
	Telegram struct {
		tapp.Config          `yaml:",inline"`
		core.InterfaceConfig `yaml:",inline"`
	} `yaml:"telegram" doc:"Bot-related settings."`

	Db apfel.GormConfig `yaml:"db,omitempty" doc:"Feed database connection settings. Supported drivers: postgres, sqlite (not fully)" default:"{\"driver\":\"sqlite\",\"dsn\":\"file::memory:?cache=shared\"}"`

	Poller core.PollerConfig `yaml:"poller,omitempty" doc:"Poller-related settings."`

	Media core.MediatorConfig `yaml:"media,omitempty" doc:"Media downloader settings."`

	FFmpeg struct {
		Enabled bool `yaml:"enabled,omitempty" doc:"Whether ffmpeg-based media converter should be enabled. Requires ffmpeg to be present in $PATH." default:"true"`
	} `yaml:"ffmpeg,omitempty" doc:"FFmpeg-related settings."`

	Aconvert struct {
		Enabled         bool `yaml:"enabled,omitempty" doc:"Whether aconvert.com-based media converter should be enabled."`
		aconvert.Config `yaml:",inline"`
	} `yaml:"aconvert,omitempty" doc:"aconvert.com-related settings."`

	Danbooru danbooru.Config `yaml:"danbooru,omitempty" doc:"danbooru.donmai.us-related settings."`
	Gelbooru gelbooru.Config `yaml:"gelbooru,omitempty" doc:"gelbooru.com-related settings."`

	Logging    apfel.LogfConfig       `yaml:"logging,omitempty" doc:"Logging settings."`
	Prometheus apfel.PrometheusConfig `yaml:"prometheus,omitempty" doc:"Prometheus settings."`
}

func (c C) LogfConfig() apfel.LogfConfig             { return c.Logging }
func (c C) PrometheusConfig() apfel.PrometheusConfig { return c.Prometheus }
func (c C) TelegramConfig() tapp.Config              { return c.Telegram.Config }
func (c C) InterfaceConfig() core.InterfaceConfig    { return c.Telegram.InterfaceConfig }
func (c C) PollerConfig() core.PollerConfig          { return c.Poller }
func (c C) StorageConfig() apfel.GormConfig          { return c.Db }
func (c C) MediatorConfig() core.MediatorConfig      { return c.Media }
func (c C) AconvertConfig() aconvert.Config          { return c.Aconvert.Config }
func (c C) DanbooruConfig() danbooru.Config          { return c.Danbooru }
func (c C) GelbooruConfig() gelbooru.Config          { return c.Gelbooru }

var GitCommit = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := apfel.Boot[C]{
		Name:    "boorubot",
		Version: GitCommit,
	}.App(ctx)
	defer flu.CloseQuietly(app)

	var (
		gorm = &apfel.Gorm[C]{
			Drivers: map[string]apfel.GormDriver{
				"postgres": postgres.Open,
				"sqlite":   sqlite.Open,
			},
			Config: gorm.Config{
				Logger: gormf.LogfLogger(app, "gorm.sql"),
			},
		}

		poller   core.Poller[C]
		telegram tapp.Mixin[C]
	)

	app.Uses(ctx,
		new(apfel.Logf[C]),
		new(apfel.Prometheus[C]),
		&telegram,
		gorm,
		&poller,
		new(core.Interface[C]),
	)

	config := app.Config()

	if config.FFmpeg.Enabled {
		app.Uses(ctx, new(converters.FFmpeg[C]))
	}

	if config.Aconvert.Enabled {
		app.Uses(ctx, new(converters.Aconvert[C]))
	}

	app.Uses(ctx,
		new(booru.Danbooru[C]),
		new(booru.Yandere[C]),
		new(booru.Konachan[C]),
		new(booru.Gelbooru[C]),
	)

	if err := poller.RestoreActive(ctx); err != nil {
		logf.Panicf(ctx, "restore active: %+v", err)
	}

	telegram.Run(ctx)
}
