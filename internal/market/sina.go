package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
)

const (
	DefaultSinaURL   = "http://hq.sinajs.cn/list="
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	sinaReferer      = "http://finance.sina.com.cn"
)

type SinaProvider struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

func NewSinaProvider(baseURL, userAgent string, timeout time.Duration) *SinaProvider {
	if baseURL == "" {
		baseURL = DefaultSinaURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SinaProvider{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// FetchQuote classifies code, requests its market's list symbol and parses the
// single quoted payload line.
func (p *SinaProvider) FetchQuote(ctx context.Context, code string) (Quote, error) {
	mkt, symbol := Classify(code)
	format, ok := formats[mkt]
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", ErrUnknownCode, code)
	}

	data, err := p.get(ctx, format.listSymbol(symbol))
	if err != nil {
		return Quote{}, err
	}
	if strings.Contains(data, "FAILED") || strings.Contains(data, `=""`) {
		return Quote{}, ErrFetchFailed
	}

	// format: var hq_str_sh600519="f0,f1,f2,...";
	parts := strings.Split(data, `"`)
	if len(parts) < 2 {
		return Quote{}, ErrParseFailed
	}
	fields := strings.Split(parts[1], ",")
	if len(fields) < format.minFields() {
		return Quote{}, fmt.Errorf("%w: %d fields for %s", ErrParseFailed, len(fields), code)
	}
	return format.parse(symbol, fields)
}

func (p *SinaProvider) get(ctx context.Context, listSymbol string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+listSymbol, nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Referer", sinaReferer)
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: sina status %d", ErrRequestFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(simplifiedchinese.GBK.NewDecoder().Reader(resp.Body))
	if err != nil {
		return "", fmt.Errorf("%w: read sina: %v", ErrRequestFailed, err)
	}
	return string(body), nil
}

type quoteFormat interface {
	listSymbol(symbol string) string
	minFields() int
	parse(symbol string, fields []string) (Quote, error)
}

var formats = map[Market]quoteFormat{
	Shanghai: aShareFormat{prefix: "sh"},
	Shenzhen: aShareFormat{prefix: "sz"},
	HongKong: hongKongFormat{},
	US:       usFormat{},
}

// name,open,preclose,price,high,low,...
type aShareFormat struct {
	prefix string
}

func (f aShareFormat) listSymbol(symbol string) string { return f.prefix + symbol }

func (aShareFormat) minFields() int { return 4 }

func (aShareFormat) parse(symbol string, fields []string) (Quote, error) {
	label := LabelAShare
	if IsETFCode(symbol) {
		label = LabelETF
	}
	n := numbers{fields: fields}
	open, preclose, price := n.at(1), n.at(2), n.at(3)
	if n.err != nil {
		return Quote{}, fmt.Errorf("%w: %s: %v", ErrParseFailed, symbol, n.err)
	}
	return computed(symbol, fields[0], label, open, preclose, price), nil
}

// english name,name,open,preclose,high,low,price,...
type hongKongFormat struct{}

func (hongKongFormat) listSymbol(symbol string) string { return "hk" + padHK(symbol) }

func (hongKongFormat) minFields() int { return 7 }

func (hongKongFormat) parse(symbol string, fields []string) (Quote, error) {
	n := numbers{fields: fields}
	open, preclose, price := n.at(2), n.at(3), n.at(6)
	if n.err != nil {
		return Quote{}, fmt.Errorf("%w: hk%s: %v", ErrParseFailed, padHK(symbol), n.err)
	}
	return computed(padHK(symbol), fields[1], LabelHongKong, open, preclose, price), nil
}

// name,price,change,change%,time,preclose,open,...
type usFormat struct{}

func (usFormat) listSymbol(symbol string) string { return "gb_" + strings.ToLower(symbol) }

func (usFormat) minFields() int { return 7 }

func (usFormat) parse(symbol string, fields []string) (Quote, error) {
	n := numbers{fields: fields}
	q := Quote{
		Code:           strings.ToUpper(symbol),
		Name:           fields[0],
		Market:         LabelUS,
		CurrentPrice:   n.at(1),
		Change:         n.at(2),
		ChangePercent:  n.at(3),
		YesterdayClose: n.at(5),
		OpenPrice:      n.at(6),
	}
	if n.err != nil {
		return Quote{}, fmt.Errorf("%w: %s: %v", ErrParseFailed, q.Code, n.err)
	}
	return q, nil
}

func computed(code, name, label string, open, preclose, price float64) Quote {
	change := price - preclose
	return Quote{
		Code:           code,
		Name:           name,
		Market:         label,
		CurrentPrice:   price,
		YesterdayClose: preclose,
		OpenPrice:      open,
		Change:         change,
		ChangePercent:  ChangePercent(change, preclose),
	}
}

// ChangePercent is change relative to preclose, 0 when preclose is not positive.
func ChangePercent(change, preclose float64) float64 {
	if preclose <= 0 {
		return 0
	}
	return change / preclose * 100
}

// numbers reads numeric payload fields and keeps the first bad one.
// An empty field reads as 0.
type numbers struct {
	fields []string
	err    error
}

func (n *numbers) at(i int) float64 {
	s := strings.TrimSpace(n.fields[i])
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		if n.err == nil {
			n.err = fmt.Errorf("field %d %q is not a number", i, s)
		}
		return 0
	}
	return v
}
