package booru

import (
	"context"

	"boorubot/internal/3rdparty/booru/danbooru"
	"boorubot/internal/3rdparty/booru/gelbooru"
	"boorubot/internal/3rdparty/booru/konachan"
	"boorubot/internal/3rdparty/booru/yandere"
	"boorubot/internal/core"

	"github.com/jfk9w-go/flu/apfel"
	"github.com/jfk9w-go/flu/colf"
)

// One mixin per supported site. Each wires its API client and the shared
// mediator into a Vendor and registers under the site name, which is also
// the vendor column value in storage.

type DanbooruContext interface {
	danbooru.Context
	core.MediatorContext
}

type Danbooru[C DanbooruContext] struct {
	Vendor
}

func (v Danbooru[C]) String() string {
	return "danbooru"
}

func (v *Danbooru[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	var client danbooru.Client[C]
	if err := app.Use(ctx, &client, false); err != nil {
		return err
	}

	var mediator core.Mediator[C]
	if err := app.Use(ctx, &mediator, false); err != nil {
		return err
	}

	v.Vendor = Vendor{
		ID:       v.String(),
		Hosts:    colf.Set[string]{"danbooru.donmai.us": true, "safebooru.donmai.us": true},
		Client:   &client,
		Mediator: mediator,
	}

	return nil
}

type MoebooruContext interface {
	core.MediatorContext
}

type Yandere[C MoebooruContext] struct {
	Vendor
}

func (v Yandere[C]) String() string {
	return "yandere"
}

func (v *Yandere[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	var client yandere.Client[C]
	if err := app.Use(ctx, &client, false); err != nil {
		return err
	}

	var mediator core.Mediator[C]
	if err := app.Use(ctx, &mediator, false); err != nil {
		return err
	}

	v.Vendor = Vendor{
		ID:       v.String(),
		Hosts:    colf.Set[string]{"yande.re": true},
		Client:   &client,
		Mediator: mediator,
	}

	return nil
}

type Konachan[C MoebooruContext] struct {
	Vendor
}

func (v Konachan[C]) String() string {
	return "konachan"
}

func (v *Konachan[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	var client konachan.Client[C]
	if err := app.Use(ctx, &client, false); err != nil {
		return err
	}

	var mediator core.Mediator[C]
	if err := app.Use(ctx, &mediator, false); err != nil {
		return err
	}

	v.Vendor = Vendor{
		ID:       v.String(),
		Hosts:    colf.Set[string]{"konachan.com": true, "konachan.net": true},
		Client:   &client,
		Mediator: mediator,
	}

	return nil
}

type GelbooruContext interface {
	gelbooru.Context
	core.MediatorContext
}

type Gelbooru[C GelbooruContext] struct {
	Vendor
}

func (v Gelbooru[C]) String() string {
	return "gelbooru"
}

func (v *Gelbooru[C]) Include(ctx context.Context, app apfel.MixinApp[C]) error {
	var client gelbooru.Client[C]
	if err := app.Use(ctx, &client, false); err != nil {
		return err
	}

	var mediator core.Mediator[C]
	if err := app.Use(ctx, &mediator, false); err != nil {
		return err
	}

	v.Vendor = Vendor{
		ID:       v.String(),
		Hosts:    colf.Set[string]{"gelbooru.com": true},
		Client:   &client,
		Mediator: mediator,
	}

	return nil
}
