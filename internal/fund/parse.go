package fund

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	titlePattern      = regexp.MustCompile(`<title>([^<]+)`)
	archiveName       = regexp.MustCompile(`title='([^']+)'`)
	archiveContent    = regexp.MustCompile(`content:"(.+)"`)
	quarterPattern    = regexp.MustCompile(`(\d{4})年(\d)季度`)
	holdingRowPattern = regexp.MustCompile(`(?s)<tr><td>(\d+)</td>` +
		`<td><a[^>]*>(\d+)</a></td>` +
		`<td[^>]*><a[^>]*>([^<]+)</a></td>` +
		`.*?<td[^>]*>(\d+\.?\d*)%</td>`)
)

const quarterBoxSeparator = "<div class='boxitem"

func parseOverview(code string, body []byte) Meta {
	content := string(body)
	name := UnknownFundName
	if m := titlePattern.FindStringSubmatch(content); m != nil {
		name, _, _ = strings.Cut(m[1], "(")
	}
	return Meta{
		FundCode:    code,
		FundName:    name,
		IsETFFeeder: strings.Contains(name, feederMarker) || strings.Contains(leadingChars(content, feederScanLimit), feederMarker),
	}
}

// leadingChars returns at most n characters (not bytes) of s.
func leadingChars(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// {"Success":true,"ErrMsg":null,"Datas":{"ETFCODE":"510050","ETFSHORTNAME":"上证50ETF",...}}
func parseLinkedETF(code string, body []byte) (LinkedETF, error) {
	if !gjson.ValidBytes(body) {
		return LinkedETF{}, fmt.Errorf("%w: invalid json", ErrLinkedETF)
	}
	res := gjson.ParseBytes(body)
	if !res.Get("Success").Bool() {
		msg := res.Get("ErrMsg").String()
		if msg == "" {
			msg = "unknown error"
		}
		return LinkedETF{}, fmt.Errorf("%w: %s", ErrLinkedETF, msg)
	}
	etfCode := strings.TrimSpace(res.Get("Datas.ETFCODE").String())
	if etfCode == "" {
		return LinkedETF{}, fmt.Errorf("%w: %s", ErrNotFeeder, code)
	}
	return LinkedETF{
		FundCode: code,
		ETFCode:  etfCode,
		ETFName:  res.Get("Datas.ETFSHORTNAME").String(),
	}, nil
}

// body format: var apidata={ content:"<div class='boxitem w790'>...</div>",arryear:[...],curyear:2024};
func parseHoldings(code string, body []byte, top int) (Holdings, error) {
	content := string(body)
	if content == "" || !strings.Contains(content, "content") {
		return Holdings{}, fmt.Errorf("%w for %s", ErrHoldingsUnavailable, code)
	}

	name := UnknownFundName
	if m := archiveName.FindStringSubmatch(content); m != nil {
		name = m[1]
	}

	m := archiveContent.FindStringSubmatch(content)
	if m == nil {
		return Holdings{}, fmt.Errorf("%w for %s: malformed archive payload", ErrHoldingsUnavailable, code)
	}
	html := m[1]

	// one box per quarter, newest first
	block := html
	if boxes := strings.Split(html, quarterBoxSeparator); len(boxes) > 1 {
		block = boxes[1]
	}

	quarter := UnknownQuarter
	if q := quarterPattern.FindStringSubmatch(block); q != nil {
		quarter = fmt.Sprintf("%s年第%s季度", q[1], q[2])
	}

	var holdings []Holding
	for _, row := range holdingRowPattern.FindAllStringSubmatch(block, -1) {
		rank, err := strconv.Atoi(row[1])
		if err != nil {
			continue
		}
		if top > 0 && rank > top {
			continue
		}
		ratio, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			continue
		}
		holdings = append(holdings, Holding{
			Rank:      rank,
			StockCode: row[2],
			StockName: strings.TrimSpace(row[3]),
			Ratio:     ratio,
		})
	}
	if len(holdings) == 0 {
		return Holdings{}, fmt.Errorf("%w for %s", ErrNoHoldings, code)
	}

	return Holdings{
		FundCode: code,
		FundName: name,
		Quarter:  quarter,
		Holdings: holdings,
	}, nil
}
