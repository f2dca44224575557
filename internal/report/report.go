// Package report renders an estimate for a terminal or as DingTalk markdown.
package report

import (
	"fmt"
	"io"
	"strings"

	"fund-estimator/internal/engine"
)

const (
	rule     = "================================================================================"
	thinRule = "--------------------------------------------------------------------------------"

	feederNote   = "注意: ETF联接基金按%.0f%%仓位估算，实际涨跌以基金公司公布为准"
	holdingsNote = "注意: 此为根据持仓估算，实际涨跌以基金公司公布为准"
)

func Trend(v float64) string {
	switch {
	case v > 0:
		return "📈"
	case v < 0:
		return "📉"
	default:
		return "➡️"
	}
}

func signed(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, v)
	if v > 0 {
		return "+" + s
	}
	return s
}

func headline(r engine.Result) string {
	if r.IsETFFeeder {
		return fmt.Sprintf("类型: ETF联接基金 -> 跟踪ETF: %s (%s)", r.ETFName, r.ETFCode)
	}
	return "持仓报告期: " + r.Quarter
}

func note(r engine.Result) string {
	if r.IsETFFeeder {
		return fmt.Sprintf(feederNote, r.TotalRatio)
	}
	return holdingsNote
}

// WriteText prints the console report.
func WriteText(w io.Writer, r engine.Result) error {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s\n", rule)
	fmt.Fprintf(&b, "基金: %s (%s)\n", r.FundName, r.FundCode)
	fmt.Fprintf(&b, "%s\n", headline(r))
	fmt.Fprintf(&b, "查询时间: %s\n", r.UpdateTime)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "%-10s %-12s %-6s %-10s %-12s %-10s\n", "股票代码", "股票名称", "市场", "占净值比", "今日涨跌", "贡献涨跌")
	fmt.Fprintf(&b, "%s\n", thinRule)
	for _, s := range r.StockDetails {
		flag := ""
		if s.Status != engine.StatusOK {
			flag = " ⚠️"
		}
		fmt.Fprintf(&b, "%-10s %-12s %-6s %-9.2f%% %11s%% %9s%%%s\n",
			s.StockCode, s.StockName, s.Market, s.Ratio,
			signed(s.ChangePercent, 2), signed(s.WeightedChange, 4), flag)
	}
	fmt.Fprintf(&b, "%s\n", thinRule)
	fmt.Fprintf(&b, "持仓占比: %.2f%%\n", r.TotalRatio)
	fmt.Fprintf(&b, "基金估算涨跌: %s%%  %s\n", signed(r.EstimatedChange, 4), Trend(r.EstimatedChange))
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "⚠️ %s\n\n", note(r))

	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown returns a title and body suitable for a DingTalk markdown message.
func Markdown(r engine.Result, commentary string) (string, string) {
	title := fmt.Sprintf("%s 估算 %s%%", r.FundName, signed(r.EstimatedChange, 2))

	var b strings.Builder
	fmt.Fprintf(&b, "### %s (%s) %s\n\n", r.FundName, r.FundCode, Trend(r.EstimatedChange))
	fmt.Fprintf(&b, "- 估算涨跌: **%s%%**\n", signed(r.EstimatedChange, 4))
	fmt.Fprintf(&b, "- 持仓占比: %.2f%%\n", r.TotalRatio)
	fmt.Fprintf(&b, "- %s\n", headline(r))
	fmt.Fprintf(&b, "- 查询时间: %s\n\n", r.UpdateTime)
	b.WriteString("| 代码 | 名称 | 市场 | 占净值比 | 今日涨跌 | 贡献 |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, s := range r.StockDetails {
		change := signed(s.ChangePercent, 2) + "%"
		if s.Status != engine.StatusOK {
			change = "获取失败"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %.2f%% | %s | %s%% |\n",
			s.StockCode, s.StockName, s.Market, s.Ratio, change, signed(s.WeightedChange, 4))
	}
	if commentary != "" {
		fmt.Fprintf(&b, "\n> %s\n", commentary)
	}
	fmt.Fprintf(&b, "\n%s\n", note(r))
	return title, b.String()
}
