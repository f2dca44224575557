package market

import (
	"context"
	"errors"
)

type Market string

const (
	Shanghai Market = "SH"
	Shenzhen Market = "SZ"
	HongKong Market = "HK"
	US       Market = "US"
	Unknown  Market = "UNKNOWN"
)

// Display labels carried in Quote.Market.
const (
	LabelAShare   = "A"
	LabelETF      = "ETF"
	LabelHongKong = "HK"
	LabelUS       = "US"
)

var (
	ErrUnknownCode   = errors.New("unrecognized security code")
	ErrFetchFailed   = errors.New("fetch failed, check code")
	ErrParseFailed   = errors.New("parse failed")
	ErrRequestFailed = errors.New("request failed")
)

type Quote struct {
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	Market         string  `json:"market"`
	CurrentPrice   float64 `json:"current_price"`
	YesterdayClose float64 `json:"yesterday_close"`
	OpenPrice      float64 `json:"open_price"`
	Change         float64 `json:"change"`
	ChangePercent  float64 `json:"change_percent"`
}

type QuoteFetcher interface {
	FetchQuote(ctx context.Context, code string) (Quote, error)
}
