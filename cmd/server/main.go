package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"fund-estimator/internal/api"
	"fund-estimator/internal/commentary"
	"fund-estimator/internal/config"
	"fund-estimator/internal/engine"
	"fund-estimator/internal/fund"
	"fund-estimator/internal/market"
	"fund-estimator/internal/push/dingtalk"
	"fund-estimator/internal/trace"

	"github.com/cloudwego/hertz/pkg/app/server"
)

func main() {
	cfg, err := config.Load("configs/app.yaml")
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := trace.SetLevel(cfg.Log.Level); err != nil {
		log.Fatalf("log level: %v", err)
	}

	timeout := time.Duration(cfg.Upstream.TimeoutMs) * time.Millisecond
	quotes := market.NewSinaProvider(cfg.Upstream.SinaURL, cfg.Upstream.UserAgent, timeout)
	funds := fund.NewEastmoneyClient(fund.Endpoints{
		Overview: cfg.Upstream.FundOverviewURL,
		Holdings: cfg.Upstream.FundHoldingsURL,
		ETFLink:  cfg.Upstream.ETFLinkURL,
	}, cfg.Upstream.UserAgent, timeout)

	eng := engine.New(engine.Config{
		MinCoveragePct:    cfg.Estimate.MinCoveragePct,
		FeederPositionPct: cfg.Estimate.FeederPositionPct,
	}, funds, quotes)

	agent := commentary.New(commentary.Config{
		Enabled:    cfg.Commentary.Enabled,
		Model:      cfg.Commentary.Model,
		APIKey:     cfg.Commentary.APIKey,
		BaseURL:    cfg.Commentary.BaseURL,
		ByAzure:    cfg.Commentary.ByAzure,
		APIVersion: cfg.Commentary.APIVersion,
		TimeoutMs:  cfg.Commentary.TimeoutMs,
	})

	deps := api.Deps{
		Estimator:   eng,
		Quotes:      quotes,
		Commentator: agent,
		DefaultTop:  cfg.Estimate.DefaultTop,
	}

	dt := dingtalk.NewClient(
		cfg.Push.Dingtalk.Webhook,
		cfg.Push.Dingtalk.Secret,
		time.Duration(cfg.Push.Dingtalk.TimeoutMs)*time.Millisecond,
	)
	if dt.Enabled() {
		deps.Pusher = dt
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	h := server.Default(server.WithHostPorts(addr))
	api.RegisterRoutes(h, deps)

	ctx := context.Background()
	trace.Infof(ctx, "dingtalk push enabled=%v, commentary mode=%s", dt.Enabled(), agent.Mode())
	trace.Infof(ctx, "server starting on %s (log.level=%s)", addr, cfg.Log.Level)
	h.Spin()
}
