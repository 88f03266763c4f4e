package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// stubModel is a canned llms.Model for testing without a live service.
type stubModel struct {
	responses []string
	err       error
	calls     int
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	idx := s.calls
	if idx >= len(s.responses) {
		idx = len(s.responses) - 1
	}
	s.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: s.responses[idx]},
		},
	}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := s.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testRefiner(model llms.Model) *Refiner {
	r, _ := newRefiner(ai.DefaultConfig())
	r.client = model
	return r
}

var testFields = []ai.FieldInfo{
	{Name: "amount", Type: core.FieldTypeNumber},
	{Name: "vendor", Type: core.FieldTypeText},
	{Name: "date", Type: core.FieldTypeDate},
	{Name: "payment_terms", Type: core.FieldTypeText},
}

func TestRefiner_Refine(t *testing.T) {
	model := &stubModel{responses: []string{`{
		"intent": "aggregate",
		"confidence": 0.9,
		"match_terms": [],
		"sort": "none",
		"filters": [
			{"field": "date", "operator": "range", "period": "last_quarter"},
			{"field": "amount", "operator": "gte", "number": 500}
		]
	}`}}
	r := testRefiner(model)

	draft := core.QueryAnalysis{Intent: core.IntentSearch, Confidence: 0.4}
	got, err := r.Refine(context.Background(), "total spending by vendor last quarter over 500", core.ScopeContext{}, draft, testFields)
	require.NoError(t, err)

	assert.Equal(t, core.IntentAggregate, got.Intent)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	require.Len(t, got.Filters, 2)

	assert.Equal(t, "date", got.Filters[0].CanonicalField)
	assert.Equal(t, core.OpRange, got.Filters[0].Operator)
	assert.Equal(t, core.PeriodLastQuarter, got.Filters[0].Value.Period)

	assert.Equal(t, "amount", got.Filters[1].CanonicalField)
	assert.Equal(t, core.OpGte, got.Filters[1].Operator)
	assert.InDelta(t, 500, got.Filters[1].Value.Number, 1e-9)
}

func TestRefiner_Refine_DropsUnknownFields(t *testing.T) {
	model := &stubModel{responses: []string{`{
		"intent": "filter",
		"confidence": 0.8,
		"filters": [
			{"field": "vendor", "operator": "eq", "text": "Acme"},
			{"field": "made_up_field", "operator": "eq", "text": "x"}
		]
	}`}}
	r := testRefiner(model)

	got, err := r.Refine(context.Background(), "acme invoices", core.ScopeContext{}, core.QueryAnalysis{Intent: core.IntentSearch}, testFields)
	require.NoError(t, err)
	require.Len(t, got.Filters, 1)
	assert.Equal(t, "vendor", got.Filters[0].CanonicalField)
	assert.Equal(t, "acme", got.Filters[0].Value.Text)
}

func TestRefiner_Refine_RetriesMalformedJSON(t *testing.T) {
	model := &stubModel{responses: []string{
		`this is not json at all {{{`,
		"```json\n{\"intent\": \"retrieve\", \"confidence\": 0.85, \"filters\": [{\"field\": \"payment_terms\", \"operator\": \"exists\"}]}\n```",
	}}
	r := testRefiner(model)

	got, err := r.Refine(context.Background(), "what payment terms did we agree to", core.ScopeContext{}, core.QueryAnalysis{Intent: core.IntentSearch}, testFields)
	require.NoError(t, err)
	assert.Equal(t, 2, model.calls)
	assert.Equal(t, core.IntentRetrieve, got.Intent)
	require.Len(t, got.Filters, 1)
	assert.Equal(t, core.OpExists, got.Filters[0].Operator)
}

func TestRefiner_Refine_MalformedAfterRetries(t *testing.T) {
	model := &stubModel{responses: []string{`not json`}}
	r := testRefiner(model)

	_, err := r.Refine(context.Background(), "anything", core.ScopeContext{}, core.QueryAnalysis{}, testFields)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrMalformedResponse)
	assert.Equal(t, 3, model.calls)
}

func TestRefiner_Refine_ServiceUnavailable(t *testing.T) {
	model := &stubModel{err: errors.New("connection refused")}
	r := testRefiner(model)

	_, err := r.Refine(context.Background(), "anything", core.ScopeContext{}, core.QueryAnalysis{}, testFields)
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrRefinementUnavailable)
}

func TestRefiner_Refine_ClampsConfidence(t *testing.T) {
	model := &stubModel{responses: []string{`{"intent": "search", "confidence": 1.7, "filters": []}`}}
	r := testRefiner(model)

	got, err := r.Refine(context.Background(), "whatever", core.ScopeContext{}, core.QueryAnalysis{}, testFields)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "missing opening key quote",
			in:   `{"intent": "search", confidence": 0.5}`,
			want: `{"intent": "search", "confidence": 0.5}`,
		},
		{
			name: "trailing comma",
			in:   `{"intent": "search", "filters": [],}`,
			want: `{"intent": "search", "filters": []}`,
		},
		{
			name: "already valid",
			in:   `{"intent": "search"}`,
			want: `{"intent": "search"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairJSON(tt.in))
		})
	}
}
