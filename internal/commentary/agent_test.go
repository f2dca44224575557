package commentary

import (
	"context"
	"strings"
	"testing"

	"fund-estimator/internal/engine"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() engine.Result {
	return engine.Result{
		FundName: "测试混合",
		StockDetails: []engine.StockDetail{
			{StockName: "贵州茅台", WeightedChange: 0.6, Status: engine.StatusOK},
			{StockName: "平安银行", WeightedChange: -0.8, Status: engine.StatusOK},
			{StockName: "宁德时代", Status: engine.StatusError},
		},
		TotalRatio:      50,
		EstimatedChange: -0.2,
	}
}

func TestDisabledAgentUsesFallback(t *testing.T) {
	a := New(Config{Enabled: false})
	assert.Equal(t, "fallback", a.Mode())

	text, err := a.Comment(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, Fallback(sample()), text)
}

func TestEnabledWithoutKeyFallsBack(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_MODEL", "")
	a := New(Config{Enabled: true})
	assert.Equal(t, "fallback", a.Mode())
	assert.Equal(t, errMissingCredentials.Error(), a.disabledReason)
}

func TestConfigWithEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_MODEL", "env-model")
	t.Setenv("OPENAI_BASE_URL", "http://llm.local/v1")

	cfg := Config{Model: "cfg-model"}.withEnv()
	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "cfg-model", cfg.Model)
	assert.Equal(t, "http://llm.local/v1", cfg.BaseURL)
}

func TestEnabledWithKeyUsesModel(t *testing.T) {
	a := New(Config{Enabled: true, APIKey: "sk-test", Model: "m1", BaseURL: "http://127.0.0.1:1/v1"})
	assert.Equal(t, "llm:m1", a.Mode())
}

func TestFallbackText(t *testing.T) {
	text := Fallback(sample())
	assert.Equal(t, "测试混合估算涨跌-0.20%，覆盖净值50.00%，平安银行贡献最大(-0.8000%)，1只持仓行情获取失败。", text)

	text = Fallback(engine.Result{FundName: "空", StockDetails: nil})
	assert.Equal(t, "空估算涨跌+0.00%，覆盖净值0.00%。", text)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a b", sanitize("  a\nb \n"))
	long := strings.Repeat("涨", maxCommentRunes+10)
	assert.Equal(t, maxCommentRunes+3, len([]rune(sanitize(long))))
}
