package fund

import (
	"context"
	"errors"
)

const (
	UnknownFundName    = "未知基金"
	UnknownQuarter     = "未知季度"
	feederMarker       = "ETF联接"
	feederScanLimit    = 5000
	allHoldingsTopline = 100
)

var (
	ErrRequestFailed       = errors.New("request failed")
	ErrHoldingsUnavailable = errors.New("cannot fetch holdings")
	ErrNoHoldings          = errors.New("no holdings found")
	ErrLinkedETF           = errors.New("linked etf lookup failed")
	ErrNotFeeder           = errors.New("fund has no linked etf position")
)

type Meta struct {
	FundCode    string `json:"fund_code"`
	FundName    string `json:"fund_name"`
	IsETFFeeder bool   `json:"is_etf_feeder"`
	ETFCode     string `json:"etf_code,omitempty"`
	ETFName     string `json:"etf_name,omitempty"`
}

// PlaceholderMeta stands in for a fund whose overview page could not be read.
func PlaceholderMeta(code string) Meta {
	return Meta{FundCode: code, FundName: UnknownFundName}
}

type LinkedETF struct {
	FundCode string `json:"fund_code"`
	ETFCode  string `json:"etf_code"`
	ETFName  string `json:"etf_name"`
}

type Holding struct {
	Rank      int     `json:"rank"`
	StockCode string  `json:"stock_code"`
	StockName string  `json:"stock_name"`
	Ratio     float64 `json:"ratio"`
}

type Holdings struct {
	FundCode string    `json:"fund_code"`
	FundName string    `json:"fund_name"`
	Quarter  string    `json:"quarter"`
	Holdings []Holding `json:"holdings"`
}

// TotalRatio sums the declared net value ratios.
func (h Holdings) TotalRatio() float64 {
	var sum float64
	for _, item := range h.Holdings {
		sum += item.Ratio
	}
	return sum
}

type Source interface {
	FundMeta(ctx context.Context, code string) (Meta, error)
	Holdings(ctx context.Context, code string, top int) (Holdings, error)
}

// ValidCode reports whether code is exactly six ASCII digits.
func ValidCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
