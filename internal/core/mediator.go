package core

import (
	"context"

	"boorubot/internal/core/internal/mediator"
	"boorubot/internal/feed"
	"boorubot/internal/media"
	"boorubot/internal/media/compat"

	"github.com/jfk9w-go/flu"
	"github.com/jfk9w-go/flu/apfel"
	"github.com/jfk9w-go/flu/logf"
	"github.com/jfk9w-go/flu/syncf"
)

type MediatorConfig struct {
	Concurrency int          `yaml:"concurrency,omitempty" doc:"How many concurrent media downloads to allow." default:"5"`
	Timeout     flu.Duration `yaml:"timeout,omitempty" doc:"Media processing timeout." default:"5m"`
	Retries     int          `yaml:"retries,omitempty" doc:"How many times to retry a failed download." default:"3"`
}

type MediatorService interface {
	feed.Mediator
	RegisterTranscoder(transcoder compat.Transcoder)
}

type MediatorContext interface {
	apfel.PrometheusContext
	StorageContext
	MediatorConfig() MediatorConfig
}

type Mediator[C MediatorContext] struct {
	MediatorService
}

func (m Mediator[C]) String() string {
	return mediator.ServiceID
}

func (m *Mediator[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	if m.MediatorService != nil {
		return nil
	}

	var storage Storage[C]
	if err := app.Use(ctx, &storage, false); err != nil {
		return err
	}

	var metrics apfel.Prometheus[C]
	if err := app.Use(ctx, &metrics, false); err != nil {
		return err
	}

	config := app.Config().MediatorConfig()
	mediator := &mediator.Impl{
		Clock:      app,
		Storage:    storage,
		Downloader: &media.HTTPDownloader{Retries: config.Retries},
		Metrics:    metrics.Registry().WithPrefix("app_media"),
		Locker:     syncf.Semaphore(app, config.Concurrency, 0),
		Timeout:    config.Timeout.Value,
	}

	if err := app.Manage(ctx, mediator); err != nil {
		return err
	}

	m.MediatorService = mediator
	return nil
}

func (m *Mediator[C]) AfterInclude(ctx context.Context, app apfel.MixinApp[C], mixin apfel.Mixin[C]) error {
	if transcoder, ok := mixin.(compat.Transcoder); ok {
		m.RegisterTranscoder(transcoder)
		logf.Get(m).Infof(ctx, "register transcoder [%s]: ok", mixin)
	}

	return nil
}
