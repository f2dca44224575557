package commentary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"fund-estimator/internal/engine"
	"fund-estimator/internal/trace"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"
)

const maxCommentRunes = 200

type Config struct {
	Enabled    bool   `yaml:"enabled"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	ByAzure    bool   `yaml:"by_azure"`
	APIVersion string `yaml:"api_version"`
	TimeoutMs  int    `yaml:"timeout_ms"`
}

type Agent struct {
	enabled        bool
	model          *openai.ChatModel
	modelName      string
	disabledReason string
}

var errMissingCredentials = errors.New("api_key or model missing")

func New(cfg Config) *Agent {
	if !cfg.Enabled {
		return &Agent{disabledReason: "disabled by config"}
	}
	cfg = cfg.withEnv()
	model, err := cfg.chatModel()
	if err != nil {
		trace.Warnf(context.Background(), "commentary disabled: %v", err)
		return &Agent{disabledReason: err.Error()}
	}
	return &Agent{enabled: true, model: model, modelName: cfg.Model}
}

// withEnv fills empty credentials from OPENAI_API_KEY, OPENAI_MODEL and OPENAI_BASE_URL.
func (c Config) withEnv() Config {
	for field, env := range map[*string]string{
		&c.APIKey:  "OPENAI_API_KEY",
		&c.Model:   "OPENAI_MODEL",
		&c.BaseURL: "OPENAI_BASE_URL",
	} {
		if *field == "" {
			*field = os.Getenv(env)
		}
	}
	return c
}

func (c Config) chatModel() (*openai.ChatModel, error) {
	if c.APIKey == "" || c.Model == "" {
		return nil, errMissingCredentials
	}
	timeout := 10 * time.Second
	if c.TimeoutMs > 0 {
		timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:     c.APIKey,
		Model:      c.Model,
		BaseURL:    c.BaseURL,
		ByAzure:    c.ByAzure,
		APIVersion: c.APIVersion,
		Timeout:    timeout,
	})
}

func (a *Agent) Mode() string {
	if a == nil || !a.enabled || a.model == nil {
		return "fallback"
	}
	return "llm:" + a.modelName
}

// Comment summarizes an estimate in one or two sentences. When the model is
// unavailable or fails, the deterministic summary is returned alongside the error.
func (a *Agent) Comment(ctx context.Context, r engine.Result) (string, error) {
	if a == nil || !a.enabled || a.model == nil {
		if a != nil {
			trace.Debugf(ctx, "commentary fallback: %s", a.disabledReason)
		}
		return Fallback(r), nil
	}

	payload, _ := json.Marshal(r)
	system := `You are a fund analyst. Reply in Chinese, plain text, at most two sentences.
Summarize the estimated intraday change of the fund and name the holdings that drive it.
Do not give investment advice. Do not invent numbers that are not in the input.`

	messages := []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(fmt.Sprintf("Input: %s", string(payload))),
	}

	resp, err := a.model.Generate(ctx, messages)
	if err != nil {
		logLLMError(ctx, err)
		return Fallback(r), err
	}
	text := sanitize(resp.Content)
	if text == "" {
		return Fallback(r), errors.New("empty commentary")
	}
	return text, nil
}

// Fallback names the largest contributor and the overall estimate.
func Fallback(r engine.Result) string {
	var top *engine.StockDetail
	failed := 0
	for i := range r.StockDetails {
		s := &r.StockDetails[i]
		if s.Status != engine.StatusOK {
			failed++
			continue
		}
		if top == nil || math.Abs(s.WeightedChange) > math.Abs(top.WeightedChange) {
			top = s
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s估算涨跌%+.2f%%，覆盖净值%.2f%%", r.FundName, r.EstimatedChange, r.TotalRatio)
	if top != nil && top.WeightedChange != 0 {
		fmt.Fprintf(&b, "，%s贡献最大(%+.4f%%)", top.StockName, top.WeightedChange)
	}
	if failed > 0 {
		fmt.Fprintf(&b, "，%d只持仓行情获取失败", failed)
	}
	b.WriteString("。")
	return b.String()
}

func sanitize(text string) string {
	text = strings.TrimSpace(text)
	text = strings.ReplaceAll(text, "\n", " ")
	runes := []rune(text)
	if len(runes) > maxCommentRunes {
		text = string(runes[:maxCommentRunes]) + "..."
	}
	return text
}

func logLLMError(ctx context.Context, err error) {
	apiErr := &openai.APIError{}
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if len(msg) > 300 {
			msg = msg[:300] + "..."
		}
		trace.Errorf(ctx, "commentary api error: status=%d message=%s", apiErr.HTTPStatusCode, msg)
		return
	}
	trace.Errorf(ctx, "commentary error: %v", err)
}
