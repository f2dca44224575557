package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fund-estimator/internal/engine"
	"fund-estimator/internal/fund"
	"fund-estimator/internal/market"
	"fund-estimator/internal/push/dingtalk"
	"fund-estimator/internal/report"
	"fund-estimator/internal/trace"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
)

const (
	requestIDHeader = "X-Request-ID"
	invalidCodeMsg  = "please provide a valid 6-digit fund code, e.g. ?code=110011"
)

type Estimator interface {
	Estimate(ctx context.Context, req engine.Request) (engine.Result, error)
}

type Commentator interface {
	Comment(ctx context.Context, r engine.Result) (string, error)
}

type Pusher interface {
	SendMarkdown(ctx context.Context, title, markdown string) (*dingtalk.Response, error)
}

type Deps struct {
	Estimator   Estimator
	Quotes      market.QuoteFetcher
	Pusher      Pusher
	Commentator Commentator
	DefaultTop  int
}

type estimateResponse struct {
	engine.Result
	Commentary string `json:"commentary,omitempty"`
}

func RegisterRoutes(h *server.Hertz, d Deps) {
	h.Use(traceMiddleware(), corsMiddleware(), recoverMiddleware())

	h.GET("/healthz", func(_ context.Context, c *app.RequestContext) {
		c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h.OPTIONS("/*path", func(_ context.Context, c *app.RequestContext) {
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusOK)
	})

	queryEstimate := func(ctx context.Context, c *app.RequestContext) {
		handleEstimate(ctx, c, d, strings.TrimSpace(c.Query("code")))
	}
	h.GET("/api", queryEstimate)
	h.GET("/api/fund", queryEstimate)

	h.GET("/api/v1/funds/:code/estimate", func(ctx context.Context, c *app.RequestContext) {
		handleEstimate(ctx, c, d, c.Param("code"))
	})

	h.GET("/api/v1/quotes/:code", func(ctx context.Context, c *app.RequestContext) {
		if d.Quotes == nil {
			c.JSON(http.StatusInternalServerError, errorBody("quote fetcher not configured"))
			return
		}
		q, err := d.Quotes.FetchQuote(ctx, c.Param("code"))
		if err != nil {
			trace.Warnf(ctx, "quote %s: %v", c.Param("code"), err)
			c.JSON(statusFor(err), errorBody(err.Error()))
			return
		}
		c.JSON(http.StatusOK, q)
	})

	h.POST("/api/v1/funds/:code/push", func(ctx context.Context, c *app.RequestContext) {
		if d.Pusher == nil {
			c.JSON(http.StatusServiceUnavailable, map[string]any{
				"ok":    false,
				"error": "dingtalk client not configured",
			})
			return
		}
		res, ok := runEstimate(ctx, c, d, c.Param("code"))
		if !ok {
			return
		}
		comment := ""
		if d.Commentator != nil {
			comment, _ = d.Commentator.Comment(ctx, res)
		}
		title, md := report.Markdown(res, comment)

		resp, err := d.Pusher.SendMarkdown(ctx, title, md)
		if err != nil {
			trace.Errorf(ctx, "dingtalk push %s: %v", res.FundCode, err)
			body := map[string]any{"ok": false, "error": err.Error()}
			var apiErr *dingtalk.APIError
			if errors.As(err, &apiErr) {
				body["dingtalk_errcode"] = apiErr.Code
				body["dingtalk_errmsg"] = apiErr.Msg
			}
			status := http.StatusBadGateway
			if errors.Is(err, dingtalk.ErrNotConfigured) {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, body)
			return
		}

		c.JSON(http.StatusOK, map[string]any{
			"ok":               true,
			"fund_code":        res.FundCode,
			"estimated_change": res.EstimatedChange,
			"dingtalk_errcode": resp.ErrCode,
			"dingtalk_errmsg":  resp.ErrMsg,
		})
	})
}

func handleEstimate(ctx context.Context, c *app.RequestContext, d Deps, code string) {
	res, ok := runEstimate(ctx, c, d, code)
	if !ok {
		return
	}
	out := estimateResponse{Result: res}
	if d.Commentator != nil && parseBool(c.Query("commentary")) {
		out.Commentary, _ = d.Commentator.Comment(ctx, res)
	}
	c.JSON(http.StatusOK, out)
}

// runEstimate validates input and writes the error response itself when it returns false.
func runEstimate(ctx context.Context, c *app.RequestContext, d Deps, code string) (engine.Result, bool) {
	if !fund.ValidCode(code) {
		c.JSON(http.StatusBadRequest, errorBody(invalidCodeMsg))
		return engine.Result{}, false
	}
	top, err := parseTop(c.Query("top"), d.DefaultTop)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err.Error()))
		return engine.Result{}, false
	}
	if d.Estimator == nil {
		c.JSON(http.StatusInternalServerError, errorBody("estimator not configured"))
		return engine.Result{}, false
	}

	res, err := d.Estimator.Estimate(ctx, engine.Request{
		FundCode:    code,
		Top:         top,
		ETFOverride: strings.TrimSpace(c.Query("etf")),
	})
	if err != nil {
		trace.Warnf(ctx, "estimate %s: %v", code, err)
		c.JSON(statusFor(err), errorBody(err.Error()))
		return engine.Result{}, false
	}
	return res, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidFundCode), errors.Is(err, market.ErrUnknownCode):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrLowCoverage):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fund.ErrHoldingsUnavailable),
		errors.Is(err, fund.ErrNoHoldings),
		errors.Is(err, fund.ErrRequestFailed),
		errors.Is(err, market.ErrFetchFailed),
		errors.Is(err, market.ErrParseFailed),
		errors.Is(err, market.ErrRequestFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func parseTop(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid top: %q", raw)
	}
	if v < 0 {
		v = 0
	}
	return v, nil
}

func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func traceMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := strings.TrimSpace(string(c.GetHeader(requestIDHeader)))
		if id == "" {
			id = trace.NewTraceID()
		}
		ctx = trace.WithTraceID(ctx, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next(ctx)
		trace.Infof(ctx, "%s %s -> %d (%s)", c.Method(), c.Request.URI().PathOriginal(),
			c.Response.StatusCode(), time.Since(start).Round(time.Millisecond))
	}
}

func corsMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Next(ctx)
	}
}

func recoverMiddleware() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		defer func() {
			if r := recover(); r != nil {
				trace.Errorf(ctx, "panic: %v", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(fmt.Sprintf("internal error: %v", r)))
			}
		}()
		c.Next(ctx)
	}
}
