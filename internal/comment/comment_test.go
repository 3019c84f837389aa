package comment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/hr-monitor/internal/attendance"
	"github.com/sells-group/hr-monitor/internal/cost"
	"github.com/sells-group/hr-monitor/internal/resilience"
	"github.com/sells-group/hr-monitor/internal/risk"
	"github.com/sells-group/hr-monitor/pkg/anthropic"
	anthropicmocks "github.com/sells-group/hr-monitor/pkg/anthropic/mocks"
)

func textResponse(s string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{Content: []anthropic.ContentBlock{{Type: "text", Text: s}}}
}

func attritionStats() Stats {
	return AttritionStats(risk.Summary{High: 3, Medium: 5, MedianProbability: 42.5, MeanOvertime: 27.26})
}

func testConfig() Config {
	return Config{APIKey: "test-key", Timeout: time.Second, MaxAttempts: 2}
}

func TestRuleBased_Attrition(t *testing.T) {
	got := RuleBased(attritionStats())
	assert.Equal(t, "所見: High 3名 / Medium 5名、平均残業 27.3h。\n"+
		"提案: 高リスク者に1on1を実施し、有給取得の計画的な促進を即時着手。", got)
}

func TestRuleBased_Attendance(t *testing.T) {
	got := RuleBased(AttendanceStats(attendance.Summary{Count: 4, LongShift: 2, LongStreak: 1}))
	assert.Equal(t, "所見: 異常 4件。長時間 2件 / 連続 1件。\n"+
		"提案: 業務割当の平準化と残業上限の明確化、対象者への面談実施。", got)

	empty := RuleBased(AttendanceStats(attendance.Summary{}))
	assert.True(t, strings.HasPrefix(empty, "所見: 異常なし。"))
}

func TestNewGenerator_NoKeyUsesRules(t *testing.T) {
	g := NewGenerator(Config{}, nil)

	c := g.Generate(context.Background(), attritionStats())
	assert.Equal(t, SourceRule, c.Source)
	assert.False(t, c.Fallback)
	assert.Equal(t, RuleBased(attritionStats()), c.Text)
}

func TestGenerate_LLM(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		prompt := req.Messages[0].Content
		return req.Model == anthropic.DefaultModel &&
			req.MaxTokens == 200 &&
			strings.Contains(prompt, "対象: attrition") &&
			strings.Contains(prompt, `"high":3`) &&
			strings.Contains(prompt, `"median_prob":42.5`)
	})).Return(textResponse("  所見: 高リスク3名。\n提案: 面談を実施。 \n"), nil).Once()

	c := NewGenerator(testConfig(), client).Generate(context.Background(), attritionStats())

	assert.Equal(t, SourceLLM, c.Source)
	assert.Equal(t, "所見: 高リスク3名。\n提案: 面談を実施。", c.Text)
}

func TestGenerate_LLMCost(t *testing.T) {
	resp := textResponse("所見: x\n提案: y")
	resp.Usage = anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 200}
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(resp, nil).Once()

	cfg := testConfig()
	cfg.Pricing = cost.NewCalculator(cost.Rates{anthropic.DefaultModel: {Input: 1, Output: 5}})
	c := NewGenerator(cfg, client).Generate(context.Background(), attritionStats())

	assert.Equal(t, SourceLLM, c.Source)
	assert.InDelta(t, 0.002, c.CostUSD, 1e-12)
}

func TestGenerate_PermanentErrorFallsBack(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(nil, errors.New("invalid api key")).Once()

	c := NewGenerator(testConfig(), client).Generate(context.Background(), attritionStats())

	assert.True(t, c.Fallback)
	assert.Equal(t, SourceRule, c.Source)
	assert.Equal(t, RuleBased(attritionStats()), c.Text)
}

func TestGenerate_RetriesTransientError(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, resilience.NewTransientError(errors.New("overloaded"), 529)).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("ok"), nil).Once()

	c := NewGenerator(testConfig(), client).Generate(context.Background(), attritionStats())

	assert.Equal(t, SourceLLM, c.Source)
	assert.Equal(t, "ok", c.Text)
}

func TestGenerate_EmptyResponseFallsBack(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).Return(textResponse("   "), nil).Once()

	stats := AttendanceStats(attendance.Summary{})
	c := NewGenerator(testConfig(), client).Generate(context.Background(), stats)

	assert.True(t, c.Fallback)
	assert.Equal(t, RuleBased(stats), c.Text)
}

func TestGenerate_TimeoutFallsBack(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}).Once()

	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	start := time.Now()
	c := NewGenerator(cfg, client).Generate(context.Background(), attritionStats())

	assert.True(t, c.Fallback)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestBuildPrompt_OnlyAggregates(t *testing.T) {
	prompt, err := buildPrompt(AttendanceStats(attendance.Summary{Count: 7, LongShift: 2, LongStreak: 3, ZScore: 1}))
	require.NoError(t, err)

	assert.Contains(t, prompt, "対象: attendance")
	assert.Contains(t, prompt, `"count":7`)
	assert.Contains(t, prompt, `"long_hours":2`)
	assert.Contains(t, prompt, `"streaks":3`)
	assert.NotContains(t, prompt, "high")
}
