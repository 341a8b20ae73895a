//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/yanqian/meeting-summarizer/internal/bootstrap"
	"github.com/yanqian/meeting-summarizer/internal/domain/share"
	"github.com/yanqian/meeting-summarizer/internal/domain/summarizer"
	"github.com/yanqian/meeting-summarizer/internal/infra/config"
	"github.com/yanqian/meeting-summarizer/internal/infra/markdown"
	httpiface "github.com/yanqian/meeting-summarizer/internal/interface/http"
	"github.com/yanqian/meeting-summarizer/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideTracing,
		provideSummaryConfig,
		provideChatClient,
		provideHistoryRepository,
		provideRateLimiter,
		provideMailer,
		markdown.NewRenderer,
		wire.Bind(new(share.Renderer), new(*markdown.Renderer)),
		summarizer.NewService,
		share.NewService,
		httpiface.NewSummaryHandler,
		httpiface.NewShareHandler,
		httpiface.NewEngine,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
