// Package comment writes a two-line findings/recommendation summary for an
// analysis run, either from templates or through the Anthropic API. The API
// path never fails: any error degrades to the template text.
package comment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/hr-monitor/internal/cost"
	"github.com/sells-group/hr-monitor/internal/resilience"
	"github.com/sells-group/hr-monitor/pkg/anthropic"
)

// Source records which strategy produced a comment.
type Source string

// Comment sources.
const (
	SourceRule Source = "rule"
	SourceLLM  Source = "llm"
)

// Comment is generated text plus its provenance.
type Comment struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	// Fallback is set when the API path failed and template text was used.
	Fallback bool `json:"fallback"`
	// CostUSD is the estimated API spend, zero for template text.
	CostUSD float64 `json:"cost_usd,omitempty"`
}

// Generator produces a comment from aggregate stats.
type Generator interface {
	Generate(ctx context.Context, s Stats) Comment
}

// Config configures the API-backed generator.
type Config struct {
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int64
	Temperature float64
	RatePerMin  int
	MaxAttempts int
	// Pricing prices API usage; nil uses cost.DefaultRates.
	Pricing *cost.Calculator
}

// NewGenerator picks the strategy up front: template text when no API key
// is configured, the API otherwise. client may be nil, in which case an SDK
// client is built from cfg.APIKey.
func NewGenerator(cfg Config, client anthropic.Client) Generator {
	if strings.TrimSpace(cfg.APIKey) == "" {
		zap.L().Debug("comment: no api key, using rule-based comments")
		return ruleBased{}
	}
	if client == nil {
		client = anthropic.NewClient(cfg.APIKey)
	}
	if cfg.Model == "" {
		cfg.Model = anthropic.DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.Pricing == nil {
		cfg.Pricing = cost.NewCalculator(cost.DefaultRates())
	}
	if !cfg.Pricing.Known(cfg.Model) {
		zap.L().Warn("comment: no rate for model, cost is not tracked", zap.String("model", cfg.Model))
	}

	limit := rate.Inf
	if cfg.RatePerMin > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMin))
	}

	retry := resilience.DefaultRetryConfig().WithAttempts(cfg.MaxAttempts)
	retry.OnRetry = resilience.RetryLogger("anthropic", "comment")

	return &llm{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		retry:   retry,
	}
}

type ruleBased struct{}

func (ruleBased) Generate(_ context.Context, s Stats) Comment {
	return Comment{Text: RuleBased(s), Source: SourceRule}
}

// RuleBased renders the template comment for s.
func RuleBased(s Stats) string {
	if s.Target == TargetAttrition {
		return fmt.Sprintf("所見: High %d名 / Medium %d名、平均残業 %.1fh。\n"+
			"提案: 高リスク者に1on1を実施し、有給取得の計画的な促進を即時着手。",
			s.High, s.Medium, s.MeanOvertime)
	}
	if s.Count == 0 {
		return "所見: 異常なし。\n提案: 現状維持と、繁忙期前の計画的な休暇取得を周知。"
	}
	return fmt.Sprintf("所見: 異常 %d件。長時間 %d件 / 連続 %d件。\n"+
		"提案: 業務割当の平準化と残業上限の明確化、対象者への面談実施。",
		s.Count, s.LongShift, s.LongStreak)
}

type llm struct {
	client  anthropic.Client
	cfg     Config
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

func (g *llm) Generate(ctx context.Context, s Stats) Comment {
	resp, err := g.call(ctx, s)
	var text string
	if err == nil {
		text = strings.TrimSpace(resp.Text())
		if text == "" {
			err = eris.New("comment: empty response")
		}
	}
	if err == nil {
		usd := g.cfg.Pricing.Claude(g.cfg.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		zap.L().Debug("comment: generated",
			zap.String("target", string(s.Target)),
			zap.Int64("input_tokens", resp.Usage.InputTokens),
			zap.Int64("output_tokens", resp.Usage.OutputTokens),
			zap.Float64("cost_usd", usd),
		)
		return Comment{Text: text, Source: SourceLLM, CostUSD: usd}
	}
	zap.L().Warn("comment: api call failed, using rule-based comment",
		zap.String("target", string(s.Target)),
		zap.Error(err),
	)
	return Comment{Text: RuleBased(s), Source: SourceRule, Fallback: true}
}

func (g *llm) call(ctx context.Context, s Stats) (*anthropic.MessageResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "comment: rate limit")
	}

	prompt, err := buildPrompt(s)
	if err != nil {
		return nil, err
	}
	temp := g.cfg.Temperature
	req := anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: &temp,
	}

	resp, err := resilience.DoVal(ctx, g.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		resp, err := g.client.CreateMessage(ctx, req)
		if code := anthropic.StatusCode(err); err != nil && resilience.IsTransientHTTPStatus(code) {
			return nil, resilience.NewTransientError(err, code)
		}
		return resp, err
	})
	if err != nil {
		return nil, eris.Wrap(err, "comment: create message")
	}
	return resp, nil
}

func buildPrompt(s Stats) (string, error) {
	metrics, err := json.Marshal(s.payload())
	if err != nil {
		return "", eris.Wrap(err, "comment: marshal stats")
	}
	return fmt.Sprintf(`あなたは人事コンサルタントです。以下の指標を基に、短く読みやすい2行構成で日本語の出力を作成してください。
1行目: 所見（ファクトに基づく要約, 60〜80文字程度）
2行目: 提案（具体的な次アクションを1つ, 40〜60文字程度）
対象: %s
指標: %s
`, s.Target, metrics), nil
}
