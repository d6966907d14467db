package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/whalewatch/engine/internal/analytics"
	"github.com/whalewatch/engine/internal/feed"
	"github.com/whalewatch/engine/internal/platform/binance"
	"github.com/whalewatch/engine/internal/server"
	"github.com/whalewatch/engine/internal/server/handler"
	"github.com/whalewatch/engine/internal/server/ws"
	"github.com/whalewatch/engine/internal/service"
)

// shutdownGrace is how long in-flight HTTP requests get to finish.
const shutdownGrace = 10 * time.Second

// engine bundles the live-pipeline objects shared between modes.
type engine struct {
	stream  *service.StreamService
	tickers *service.TickerService
}

// buildEngine assembles the detector, whale engine, stream service, and
// ticker service from configuration.
func (a *App) buildEngine(deps *Dependencies) *engine {
	var detector *analytics.ExecutionDetector
	if a.cfg.Detector.Enabled {
		detector = analytics.NewExecutionDetector(analytics.DetectorConfig{
			Symbol:       a.cfg.Binance.Symbol,
			LowLiquidity: a.cfg.Detector.LowLiquidity,
		}, a.logger)
	}

	whales := analytics.NewWhaleEngine(a.cfg.Whale.ThresholdUSD, a.cfg.Whale.AlertHistoryMax)

	stream := service.NewStreamService(
		service.StreamConfig{
			Symbol:         a.cfg.Binance.Symbol,
			TradeRingSize:  a.cfg.Whale.TradeRingSize,
			EventRingSize:  a.cfg.Whale.EventRingSize,
			LookbackTrades: a.cfg.Whale.LookbackTrades,
		},
		detector,
		whales,
		deps.SignalBus,
		deps.WhaleStore,
		deps.EventStore,
		deps.Dispatcher,
		a.logger,
	)

	rest := binance.NewRestClient(a.cfg.Binance.RestHost, a.cfg.Binance.Symbol)
	tickers := service.NewTickerService(a.cfg.Binance.Symbol, deps.TickerCache, rest, a.logger)
	stream.SetTickerService(tickers)

	return &engine{stream: stream, tickers: tickers}
}

// startPipeline launches the exchange feed and the periodic emitters.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, eng *engine) {
	binanceFeed := feed.NewBinanceFeed(
		a.cfg.Binance.WsHost,
		a.cfg.Binance.Symbol,
		a.cfg.Binance.DepthRate,
		eng.stream.HandleTrade,
		eng.stream.HandleDepth,
		a.logger,
	)
	g.Go(func() error {
		defer binanceFeed.Close()
		return binanceFeed.Run(ctx)
	})

	g.Go(func() error {
		return eng.stream.RunBullBearEmitter(ctx)
	})
	g.Go(func() error {
		return eng.stream.RunHypeRealityEmitter(ctx)
	})
}

// startArchiver launches the periodic cold-storage archival loop. Rows are
// deleted only after a successful upload.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Archive.Enabled || deps.Archiver == nil {
		return
	}

	interval := a.cfg.Archive.Interval.Duration
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-retention)
				a.runArchivalCycle(ctx, deps, cutoff)
			}
		}
	})
}

func (a *App) runArchivalCycle(ctx context.Context, deps *Dependencies, cutoff time.Time) {
	if n, err := deps.Archiver.ArchiveWhaleTrades(ctx, cutoff); err != nil {
		a.logger.ErrorContext(ctx, "archive whale trades failed", slog.String("error", err.Error()))
	} else if n > 0 {
		if deleted, err := deps.WhaleStore.DeleteBefore(ctx, cutoff); err != nil {
			a.logger.ErrorContext(ctx, "prune whale trades failed", slog.String("error", err.Error()))
		} else {
			a.logger.InfoContext(ctx, "whale trades archived",
				slog.Int64("archived", n), slog.Int64("deleted", deleted))
		}
	}

	if n, err := deps.Archiver.ArchiveExecutionEvents(ctx, cutoff); err != nil {
		a.logger.ErrorContext(ctx, "archive execution events failed", slog.String("error", err.Error()))
	} else if n > 0 {
		if deleted, err := deps.EventStore.DeleteBefore(ctx, cutoff); err != nil {
			a.logger.ErrorContext(ctx, "prune execution events failed", slog.String("error", err.Error()))
		} else {
			a.logger.InfoContext(ctx, "execution events archived",
				slog.Int64("archived", n), slog.Int64("deleted", deleted))
		}
	}
}

// startHTTPServer builds the API server plus WebSocket hub and adds their
// goroutines to the errgroup.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine) {
	hub := ws.NewHub(deps.SignalBus, a.cfg.Binance.Symbol, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:     handler.NewHealthHandler(a.cfg.Binance.Symbol),
		Market:     handler.NewMarketHandler(eng.stream, eng.tickers, a.logger),
		Whales:     handler.NewWhaleHandler(eng.stream, deps.WhaleStore, a.logger),
		Executions: handler.NewExecutionHandler(deps.EventStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// MonitorMode runs the headless pipeline: exchange feed, classification,
// persistence, notifications, and archival, with no HTTP surface.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)
	eng := a.buildEngine(deps)

	a.startPipeline(ctx, g, eng)
	a.startArchiver(ctx, g, deps)

	return ignoreCancel(g.Wait())
}

// ServerMode runs only the HTTP + WebSocket API. The trade ring stays empty,
// so whale history comes from the store and charts fall back to exchange
// klines. Useful for serving a dashboard next to a separate monitor process.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	if n, err := deps.WhaleStore.Count(ctx); err != nil {
		a.logger.WarnContext(ctx, "whale history count failed", slog.String("error", err.Error()))
	} else {
		a.logger.InfoContext(ctx, "whale history available", slog.Int64("stored_alerts", n))
	}

	g, ctx := errgroup.WithContext(ctx)
	eng := a.buildEngine(deps)

	a.startHTTPServer(ctx, g, deps, eng)

	return ignoreCancel(g.Wait())
}

// FullMode runs the pipeline and the API server in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	eng := a.buildEngine(deps)

	a.startPipeline(ctx, g, eng)
	a.startArchiver(ctx, g, deps)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}

	return ignoreCancel(g.Wait())
}

// ignoreCancel maps context cancellation to a clean exit.
func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
