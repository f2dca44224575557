package fund

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fund-estimator/internal/trace"
)

const (
	DefaultOverviewURL = "http://fundf10.eastmoney.com/"
	DefaultHoldingsURL = "http://fundf10.eastmoney.com/FundArchivesDatas.aspx"
	DefaultETFLinkURL  = "http://fundmobapi.eastmoney.com/FundMNewApi/FundMNInverstPosition"
	DefaultUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	f10Referer         = "http://fundf10.eastmoney.com/"
)

type Endpoints struct {
	Overview string
	Holdings string
	ETFLink  string
}

type EastmoneyClient struct {
	endpoints Endpoints
	userAgent string
	client    *http.Client
}

func NewEastmoneyClient(endpoints Endpoints, userAgent string, timeout time.Duration) *EastmoneyClient {
	if endpoints.Overview == "" {
		endpoints.Overview = DefaultOverviewURL
	}
	if !strings.HasSuffix(endpoints.Overview, "/") {
		endpoints.Overview += "/"
	}
	if endpoints.Holdings == "" {
		endpoints.Holdings = DefaultHoldingsURL
	}
	if endpoints.ETFLink == "" {
		endpoints.ETFLink = DefaultETFLinkURL
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EastmoneyClient{
		endpoints: endpoints,
		userAgent: userAgent,
		client:    &http.Client{Timeout: timeout},
	}
}

// FundMeta reads the fund overview page. A failed linked-ETF lookup leaves the
// ETF fields empty; only a failed overview request is returned as an error.
func (c *EastmoneyClient) FundMeta(ctx context.Context, code string) (Meta, error) {
	body, err := c.get(ctx, c.endpoints.Overview+"jbgk_"+code+".html", f10Referer)
	if err != nil {
		return Meta{}, fmt.Errorf("fund overview %s: %w", code, err)
	}

	meta := parseOverview(code, body)
	if !meta.IsETFFeeder {
		return meta, nil
	}

	link, err := c.LinkedETF(ctx, code)
	if err != nil {
		trace.Warnf(ctx, "linked etf for %s: %v", code, err)
		return meta, nil
	}
	meta.ETFCode = link.ETFCode
	meta.ETFName = link.ETFName
	return meta, nil
}

func (c *EastmoneyClient) LinkedETF(ctx context.Context, code string) (LinkedETF, error) {
	u, err := url.Parse(c.endpoints.ETFLink)
	if err != nil {
		return LinkedETF{}, fmt.Errorf("invalid etf link url: %w", err)
	}
	q := u.Query()
	q.Set("FCODE", code)
	q.Set("deviceid", "1")
	q.Set("plat", "Iphone")
	q.Set("product", "EFund")
	q.Set("version", "6.2.5")
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String(), "")
	if err != nil {
		return LinkedETF{}, fmt.Errorf("%w: %w", ErrLinkedETF, err)
	}
	return parseLinkedETF(code, body)
}

func (c *EastmoneyClient) Holdings(ctx context.Context, code string, top int) (Holdings, error) {
	u, err := url.Parse(c.endpoints.Holdings)
	if err != nil {
		return Holdings{}, fmt.Errorf("invalid holdings url: %w", err)
	}
	topline := top
	if top <= 0 {
		topline = allHoldingsTopline
	}
	q := u.Query()
	q.Set("type", "jjcc")
	q.Set("code", code)
	q.Set("topline", strconv.Itoa(topline))
	u.RawQuery = q.Encode()

	body, err := c.get(ctx, u.String(), f10Referer)
	if err != nil {
		return Holdings{}, fmt.Errorf("%w for %s: %w", ErrHoldingsUnavailable, code, err)
	}
	return parseHoldings(code, body, top)
}

func (c *EastmoneyClient) get(ctx context.Context, rawURL, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: eastmoney status %d", ErrRequestFailed, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read eastmoney: %v", ErrRequestFailed, err)
	}
	return data, nil
}
