package report

import (
	"bytes"
	"testing"

	"fund-estimator/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holdingsResult() engine.Result {
	return engine.Result{
		FundCode: "123456",
		FundName: "测试混合",
		Quarter:  "2024年第4季度",
		StockDetails: []engine.StockDetail{
			{StockCode: "600519", StockName: "贵州茅台", Ratio: 30, ChangePercent: 2, WeightedChange: 0.6, Status: engine.StatusOK, Market: "A"},
			{StockCode: "300750", StockName: "宁德时代", Ratio: 20, Status: engine.StatusError, Market: "?"},
		},
		TotalRatio:      30,
		EstimatedChange: 0.6,
		UpdateTime:      "2024-03-01 14:30:00",
	}
}

func TestWriteTextHoldings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, holdingsResult()))
	out := buf.String()

	assert.Contains(t, out, "基金: 测试混合 (123456)")
	assert.Contains(t, out, "持仓报告期: 2024年第4季度")
	assert.Contains(t, out, "查询时间: 2024-03-01 14:30:00")
	assert.Contains(t, out, "+2.00%")
	assert.Contains(t, out, "+0.6000%")
	assert.Contains(t, out, "⚠️\n")
	assert.Contains(t, out, "持仓占比: 30.00%")
	assert.Contains(t, out, "基金估算涨跌: +0.6000%  📈")
	assert.Contains(t, out, holdingsNote)
}

func TestWriteTextFeeder(t *testing.T) {
	r := engine.Result{
		FundCode: "110011", FundName: "联接A", Quarter: engine.RealtimeQuarter,
		IsETFFeeder: true, ETFCode: "510050", ETFName: "上证50ETF",
		StockDetails:    []engine.StockDetail{{StockCode: "510050", StockName: "上证50ETF", Ratio: 95, ChangePercent: -1, WeightedChange: -0.95, Status: engine.StatusOK, Market: "ETF"}},
		TotalRatio:      95,
		EstimatedChange: -0.95,
	}
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, r))
	out := buf.String()

	assert.Contains(t, out, "类型: ETF联接基金 -> 跟踪ETF: 上证50ETF (510050)")
	assert.Contains(t, out, "基金估算涨跌: -0.9500%  📉")
	assert.Contains(t, out, "按95%仓位估算")
}

func TestMarkdown(t *testing.T) {
	title, body := Markdown(holdingsResult(), "茅台领涨")
	assert.Equal(t, "测试混合 估算 +0.60%", title)
	assert.Contains(t, body, "| 600519 | 贵州茅台 | A | 30.00% | +2.00% | +0.6000% |")
	assert.Contains(t, body, "| 300750 | 宁德时代 | ? | 20.00% | 获取失败 | 0.0000% |")
	assert.Contains(t, body, "> 茅台领涨")

	_, body = Markdown(holdingsResult(), "")
	assert.NotContains(t, body, "> ")
}

func TestTrend(t *testing.T) {
	assert.Equal(t, "📈", Trend(0.1))
	assert.Equal(t, "📉", Trend(-0.1))
	assert.Equal(t, "➡️", Trend(0))
}
