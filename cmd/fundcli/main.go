// fundcli estimates a fund's intraday change from the terminal.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"fund-estimator/internal/config"
	"fund-estimator/internal/engine"
	"fund-estimator/internal/fund"
	"fund-estimator/internal/market"
	"fund-estimator/internal/report"
	"fund-estimator/internal/trace"

	"github.com/spf13/cobra"
)

var errInvalidCode = errors.New("请输入6位数字的基金代码")

type estimator interface {
	Estimate(ctx context.Context, req engine.Request) (engine.Result, error)
}

type services struct {
	estimator estimator
	quotes    market.QuoteFetcher
}

type options struct {
	top        int
	etf        string
	asJSON     bool
	configPath string
}

func main() {
	if err := newRootCmd(buildServices).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
		return *cfg, nil
	}
	cfg := config.Default()
	if err := config.ApplyEnvOverrides(&cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, cfg.Validate()
}

func buildServices(cfg config.Config) services {
	timeout := time.Duration(cfg.Upstream.TimeoutMs) * time.Millisecond
	quotes := market.NewSinaProvider(cfg.Upstream.SinaURL, cfg.Upstream.UserAgent, timeout)
	funds := fund.NewEastmoneyClient(fund.Endpoints{
		Overview: cfg.Upstream.FundOverviewURL,
		Holdings: cfg.Upstream.FundHoldingsURL,
		ETFLink:  cfg.Upstream.ETFLinkURL,
	}, cfg.Upstream.UserAgent, timeout)
	return services{
		estimator: engine.New(engine.Config{
			MinCoveragePct:    cfg.Estimate.MinCoveragePct,
			FeederPositionPct: cfg.Estimate.FeederPositionPct,
		}, funds, quotes),
		quotes: quotes,
	}
}

func newRootCmd(build func(config.Config) services) *cobra.Command {
	var opts options

	setup := func() (services, config.Config, error) {
		cfg, err := loadConfig(opts.configPath)
		if err != nil {
			return services{}, cfg, err
		}
		if err := trace.SetLevel(cfg.Log.Level); err != nil {
			return services{}, cfg, err
		}
		return build(cfg), cfg, nil
	}

	root := &cobra.Command{
		Use:           "fundcli <fund-code>",
		Short:         "Estimate a fund's intraday change from its disclosed holdings",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code := args[0]
			if !fund.ValidCode(code) {
				return errInvalidCode
			}
			svc, cfg, err := setup()
			if err != nil {
				return err
			}
			top := opts.top
			if !cmd.Flags().Changed("top") {
				top = cfg.Estimate.DefaultTop
			}

			out := cmd.OutOrStdout()
			if !opts.asJSON {
				fmt.Fprintln(out, "正在查询持仓和股票行情...")
			}
			res, err := svc.estimator.Estimate(cmd.Context(), engine.Request{
				FundCode:    code,
				Top:         top,
				ETFOverride: opts.etf,
			})
			if err != nil {
				return err
			}
			if opts.asJSON {
				return writeJSON(out, res)
			}
			return report.WriteText(out, res)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config (defaults plus env overrides when empty)")
	root.Flags().IntVarP(&opts.top, "top", "t", 0, "only use the top N holdings (0 means all)")
	root.Flags().StringVarP(&opts.etf, "etf", "e", "", "price the fund off this ETF code instead of its holdings")
	root.Flags().BoolVar(&opts.asJSON, "json", false, "print the result as JSON")

	root.AddCommand(&cobra.Command{
		Use:   "quote <code>",
		Short: "Print one real-time quote (sh600519, 00700, AAPL, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, _, err := setup()
			if err != nil {
				return err
			}
			q, err := svc.quotes.FetchQuote(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), q)
		},
	})

	return root
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
