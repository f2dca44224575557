package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"fund-estimator/internal/fund"
	"fund-estimator/internal/market"
	"fund-estimator/internal/trace"
)

const (
	StatusOK    = "ok"
	StatusError = "error"

	RealtimeQuarter = "实时"
	unknownMarket   = "?"
	timeLayout      = "2006-01-02 15:04:05"
)

var (
	ErrLowCoverage     = errors.New("holding coverage too low")
	ErrInvalidFundCode = errors.New("fund code must be 6 digits")
)

// Config holds the estimation policy. Both values are heuristics, not invariants.
type Config struct {
	MinCoveragePct    float64 `yaml:"min_coverage_pct"`
	FeederPositionPct float64 `yaml:"feeder_position_pct"`
}

type Request struct {
	FundCode    string
	Top         int
	ETFOverride string
}

type StockDetail struct {
	StockCode      string  `json:"stock_code"`
	StockName      string  `json:"stock_name"`
	Ratio          float64 `json:"ratio"`
	ChangePercent  float64 `json:"change_percent"`
	WeightedChange float64 `json:"weighted_change"`
	Status         string  `json:"status"`
	Market         string  `json:"market"`
}

type Result struct {
	FundCode        string        `json:"fund_code"`
	FundName        string        `json:"fund_name"`
	Quarter         string        `json:"quarter"`
	IsETFFeeder     bool          `json:"is_etf_feeder"`
	ETFCode         string        `json:"etf_code,omitempty"`
	ETFName         string        `json:"etf_name,omitempty"`
	StockDetails    []StockDetail `json:"stock_details"`
	TotalRatio      float64       `json:"total_ratio"`
	EstimatedChange float64       `json:"estimated_change"`
	UpdateTime      string        `json:"update_time"`
}

type Engine struct {
	cfg    Config
	funds  fund.Source
	quotes market.QuoteFetcher
	now    func() time.Time
}

func New(cfg Config, funds fund.Source, quotes market.QuoteFetcher) *Engine {
	if cfg.MinCoveragePct <= 0 {
		cfg.MinCoveragePct = 5
	}
	if cfg.FeederPositionPct <= 0 || cfg.FeederPositionPct > 100 {
		cfg.FeederPositionPct = 95
	}
	return &Engine{
		cfg:    cfg,
		funds:  funds,
		quotes: quotes,
		now:    time.Now,
	}
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Estimate runs one pull-and-compute pass. Feeder funds with a known ETF are
// priced off the ETF alone; everything else is weighted over disclosed holdings.
func (e *Engine) Estimate(ctx context.Context, req Request) (Result, error) {
	if !fund.ValidCode(req.FundCode) {
		return Result{}, fmt.Errorf("%w: %q", ErrInvalidFundCode, req.FundCode)
	}

	meta, err := e.funds.FundMeta(ctx, req.FundCode)
	if err != nil {
		trace.Warnf(ctx, "fund meta %s unavailable, using placeholder: %v", req.FundCode, err)
		meta = fund.PlaceholderMeta(req.FundCode)
	}

	override := strings.TrimSpace(req.ETFOverride)
	etfCode := override
	if etfCode == "" {
		etfCode = meta.ETFCode
	}
	if (meta.IsETFFeeder || override != "") && etfCode != "" {
		res, err := e.estimateFeeder(ctx, meta, etfCode)
		if err == nil {
			return res, nil
		}
		trace.Warnf(ctx, "etf %s quote failed for %s, falling back to holdings: %v", etfCode, req.FundCode, err)
	}

	holdings, err := e.funds.Holdings(ctx, req.FundCode, req.Top)
	if err != nil {
		return Result{}, err
	}

	total := holdings.TotalRatio()
	if total < e.cfg.MinCoveragePct {
		return Result{}, fmt.Errorf("%w: %.2f%% of net value in disclosed stocks, likely a feeder, bond or money-market fund", ErrLowCoverage, total)
	}

	res := Result{
		FundCode:     req.FundCode,
		FundName:     holdings.FundName,
		Quarter:      holdings.Quarter,
		StockDetails: make([]StockDetail, 0, len(holdings.Holdings)),
	}
	for _, h := range holdings.Holdings {
		detail := StockDetail{
			StockCode: h.StockCode,
			StockName: h.StockName,
			Ratio:     h.Ratio,
		}
		q, err := e.quoteHolding(ctx, h)
		if err != nil {
			trace.Warnf(ctx, "quote %s (%s) failed: %v", h.StockCode, h.StockName, err)
			detail.Status = StatusError
			detail.Market = unknownMarket
			res.StockDetails = append(res.StockDetails, detail)
			continue
		}
		detail.ChangePercent = q.ChangePercent
		detail.WeightedChange = h.Ratio * q.ChangePercent / 100
		detail.Status = StatusOK
		detail.Market = q.Market
		res.EstimatedChange += detail.WeightedChange
		res.TotalRatio += h.Ratio
		res.StockDetails = append(res.StockDetails, detail)
	}
	res.UpdateTime = e.timestamp()

	trace.Infof(ctx, "estimate %s: %.4f%% over %.2f%% of net value (%d holdings)",
		req.FundCode, res.EstimatedChange, res.TotalRatio, len(res.StockDetails))
	return res, nil
}

func (e *Engine) estimateFeeder(ctx context.Context, meta fund.Meta, etfCode string) (Result, error) {
	q, err := e.quotes.FetchQuote(ctx, ETFListCode(etfCode))
	if err != nil {
		return Result{}, err
	}

	name := meta.ETFName
	if name == "" {
		name = q.Name
	}
	rowName := name
	if rowName == "" {
		rowName = market.LabelETF
	}
	position := e.cfg.FeederPositionPct
	change := q.ChangePercent * (position / 100)

	trace.Infof(ctx, "estimate %s via etf %s: %.4f%%", meta.FundCode, etfCode, change)
	return Result{
		FundCode:    meta.FundCode,
		FundName:    meta.FundName,
		Quarter:     RealtimeQuarter,
		IsETFFeeder: true,
		ETFCode:     etfCode,
		ETFName:     name,
		StockDetails: []StockDetail{{
			StockCode:      etfCode,
			StockName:      rowName,
			Ratio:          position,
			ChangePercent:  q.ChangePercent,
			WeightedChange: change,
			Status:         StatusOK,
			Market:         market.LabelETF,
		}},
		TotalRatio:      position,
		EstimatedChange: change,
		UpdateTime:      e.timestamp(),
	}, nil
}

// quoteHolding retries a failed Hong Kong guess once with the bare code.
func (e *Engine) quoteHolding(ctx context.Context, h fund.Holding) (market.Quote, error) {
	code := GuessMarket(h.StockCode, h.StockName)
	q, err := e.quotes.FetchQuote(ctx, code)
	if err != nil && strings.HasPrefix(code, "hk") {
		trace.Debugf(ctx, "retry %s as bare code %s", code, h.StockCode)
		return e.quotes.FetchQuote(ctx, h.StockCode)
	}
	return q, err
}

func (e *Engine) timestamp() string {
	now := e.now()
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return now.Format(timeLayout)
	}
	return now.In(loc).Format(timeLayout)
}
