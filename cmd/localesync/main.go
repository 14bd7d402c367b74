package main

import (
	"context"
	"errors"

	"github.com/pitabwire/util"

	"github.com/pitabwire/localesync"
	"github.com/pitabwire/localesync/config"
	"github.com/pitabwire/localesync/version"
)

func main() {
	ctx := context.Background()
	log := util.Log(ctx)

	cfg, err := config.FromEnv[config.Configuration]()
	if err != nil {
		log.WithError(err).Fatal("could not load configuration")
	}
	if err = cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, svc := localesync.NewService(ctx, &cfg)
	svc.Log(ctx).WithField("version", version.String()).Info("starting localesync")

	if err = svc.Run(ctx, ""); err != nil && !errors.Is(err, context.Canceled) {
		svc.Log(ctx).WithError(err).Fatal("service stopped")
	}
}
