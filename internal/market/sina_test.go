package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func sinaServer(t *testing.T, lines map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sym := strings.TrimPrefix(r.URL.Path, "/list=")
		seen = append(seen, sym)
		assert.Equal(t, sinaReferer, r.Header.Get("Referer"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		line, ok := lines[sym]
		if !ok {
			line = `var hq_str_` + sym + `="";`
		}
		enc, err := simplifiedchinese.GBK.NewEncoder().String(line)
		require.NoError(t, err)
		_, _ = w.Write([]byte(enc))
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestFetchQuoteAShare(t *testing.T) {
	srv, seen := sinaServer(t, map[string]string{
		"sh600519": `var hq_str_sh600519="贵州茅台,1700.00,1680.00,1713.60,1720.00,1690.00";`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)

	q, err := p.FetchQuote(context.Background(), "600519")
	require.NoError(t, err)
	assert.Equal(t, []string{"sh600519"}, *seen)
	assert.Equal(t, "600519", q.Code)
	assert.Equal(t, "贵州茅台", q.Name)
	assert.Equal(t, LabelAShare, q.Market)
	assert.Equal(t, 1700.0, q.OpenPrice)
	assert.Equal(t, 1680.0, q.YesterdayClose)
	assert.Equal(t, 1713.6, q.CurrentPrice)
	assert.InDelta(t, 33.6, q.Change, 1e-9)
	assert.InDelta(t, 2.0, q.ChangePercent, 1e-9)
}

func TestFetchQuoteETFLabel(t *testing.T) {
	srv, _ := sinaServer(t, map[string]string{
		"sh510050": `var hq_str_sh510050="上证50ETF,2.500,2.500,2.530";`,
		"sz159915": `var hq_str_sz159915="创业板ETF,2.000,2.000,1.980";`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)

	q, err := p.FetchQuote(context.Background(), "sh510050")
	require.NoError(t, err)
	assert.Equal(t, LabelETF, q.Market)
	assert.InDelta(t, 1.2, q.ChangePercent, 1e-9)

	q, err = p.FetchQuote(context.Background(), "159915")
	require.NoError(t, err)
	assert.Equal(t, LabelETF, q.Market)
	assert.InDelta(t, -1.0, q.ChangePercent, 1e-9)
}

func TestFetchQuoteZeroPrecloseNoDivide(t *testing.T) {
	srv, _ := sinaServer(t, map[string]string{
		"sz000001": `var hq_str_sz000001="平安银行,0.00,,0.00,0,0";`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)

	q, err := p.FetchQuote(context.Background(), "000001")
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.YesterdayClose)
	assert.Equal(t, 0.0, q.ChangePercent)
}

func TestFetchQuoteHongKong(t *testing.T) {
	srv, seen := sinaServer(t, map[string]string{
		"hk00700": `var hq_str_hk00700="TENCENT,腾讯控股,380.000,378.000,385.000,376.000,385.560,7.560,2.000";`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)

	q, err := p.FetchQuote(context.Background(), "hk700")
	require.NoError(t, err)
	assert.Equal(t, []string{"hk00700"}, *seen)
	assert.Equal(t, "00700", q.Code)
	assert.Equal(t, "腾讯控股", q.Name)
	assert.Equal(t, LabelHongKong, q.Market)
	assert.Equal(t, 380.0, q.OpenPrice)
	assert.InDelta(t, 2.0, q.ChangePercent, 1e-9)
}

func TestFetchQuoteUSUsesUpstreamChange(t *testing.T) {
	srv, seen := sinaServer(t, map[string]string{
		"gb_aapl": `var hq_str_gb_aapl="苹果,190.50,-2.30,-1.19,2024-01-02 16:00:00,192.80,191.00,193.00";`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)

	q, err := p.FetchQuote(context.Background(), "usAAPL")
	require.NoError(t, err)
	assert.Equal(t, []string{"gb_aapl"}, *seen)
	assert.Equal(t, "AAPL", q.Code)
	assert.Equal(t, LabelUS, q.Market)
	assert.Equal(t, 190.5, q.CurrentPrice)
	assert.Equal(t, -2.3, q.Change)
	assert.Equal(t, -1.19, q.ChangePercent)
	assert.Equal(t, 192.8, q.YesterdayClose)
	assert.Equal(t, 191.0, q.OpenPrice)
}

func TestFetchQuoteFailures(t *testing.T) {
	srv, _ := sinaServer(t, map[string]string{
		"sh600000": `FAILED`,
		"hk00005":  `var hq_str_hk00005="HSBC,汇丰控股,60.0";`,
		"sz000002": `no quotes here`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)
	ctx := context.Background()

	_, err := p.FetchQuote(ctx, "600000")
	assert.ErrorIs(t, err, ErrFetchFailed)

	_, err = p.FetchQuote(ctx, "600001")
	assert.ErrorIs(t, err, ErrFetchFailed)

	_, err = p.FetchQuote(ctx, "hk5")
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = p.FetchQuote(ctx, "000002")
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = p.FetchQuote(ctx, "1234")
	assert.ErrorIs(t, err, ErrUnknownCode)
}

func TestFetchQuoteNonNumericField(t *testing.T) {
	srv, _ := sinaServer(t, map[string]string{
		"sh600519": `var hq_str_sh600519="贵州茅台,1700.00,1680.00,--,1720.00,1690.00";`,
		"hk00700":  `var hq_str_hk00700="TENCENT,腾讯控股,380.000,378.000,385.000,376.000,N/A,7.560,2.000";`,
		"gb_aapl":  `var hq_str_gb_aapl="苹果,190.50,-2.30,--,2024-01-02 16:00:00,192.80,191.00,193.00";`,
	})
	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)
	ctx := context.Background()

	q, err := p.FetchQuote(ctx, "600519")
	assert.ErrorIs(t, err, ErrParseFailed)
	assert.ErrorContains(t, err, `"--"`)
	assert.Equal(t, Quote{}, q)

	_, err = p.FetchQuote(ctx, "00700")
	assert.ErrorIs(t, err, ErrParseFailed)

	_, err = p.FetchQuote(ctx, "AAPL")
	assert.ErrorIs(t, err, ErrParseFailed)
}

func TestFetchQuoteTransportErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewSinaProvider(srv.URL+"/list=", "", time.Second)
	_, err := p.FetchQuote(context.Background(), "600519")
	assert.ErrorIs(t, err, ErrRequestFailed)
	assert.ErrorContains(t, err, "status 500")

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer slow.Close()

	p = NewSinaProvider(slow.URL+"/list=", "", 50*time.Millisecond)
	_, err = p.FetchQuote(context.Background(), "600519")
	assert.ErrorIs(t, err, ErrRequestFailed)
}
