// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/core"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Refiner implements ai.Refiner using OpenAI-compatible chat APIs.
type Refiner struct {
	client llms.Model
	logger *slog.Logger
}

var _ ai.Refiner = (*Refiner)(nil)

// wireFilter is an internal type used for JSON marshaling/unmarshaling.
// It matches the structure expected from the LLM.
type wireFilter struct {
	Field       string   `json:"field"`
	Operator    string   `json:"operator"`
	Text        string   `json:"text,omitempty"`
	Number      *float64 `json:"number,omitempty"`
	UpperNumber *float64 `json:"upper_number,omitempty"`
	Period      string   `json:"period,omitempty"`
	From        string   `json:"from,omitempty"`
	To          string   `json:"to,omitempty"`
}

// wireAnalysis is the wrapper structure for the LLM's JSON response.
type wireAnalysis struct {
	Intent     string       `json:"intent"`
	Confidence float64      `json:"confidence"`
	MatchTerms []string     `json:"match_terms"`
	Sort       string       `json:"sort,omitempty"`
	Filters    []wireFilter `json:"filters"`
}

var periodNames = map[string]core.RelativePeriod{
	"today":        core.PeriodToday,
	"yesterday":    core.PeriodYesterday,
	"this_week":    core.PeriodThisWeek,
	"last_week":    core.PeriodLastWeek,
	"this_month":   core.PeriodThisMonth,
	"last_month":   core.PeriodLastMonth,
	"this_quarter": core.PeriodThisQuarter,
	"last_quarter": core.PeriodLastQuarter,
	"this_year":    core.PeriodThisYear,
	"last_year":    core.PeriodLastYear,
}

// newRefiner is an internal constructor that returns the concrete type.
func newRefiner(config *ai.Config) (*Refiner, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.RefinerHost),
		openai.WithToken("none"),
		openai.WithModel(config.RefinerModel),
	)
	if err != nil {
		return nil, err
	}

	return &Refiner{
		client: client,
		logger: slog.Default().With("component", "openai-refiner"),
	}, nil
}

// NewRefiner creates a new query refiner using the provided configuration.
//
// Returns ai.Refiner interface to enforce abstraction.
func NewRefiner(config *ai.Config) (ai.Refiner, error) {
	return newRefiner(config)
}

// Refine re-analyzes the query text with the LLM, using the heuristic draft
// and the canonical field vocabulary as context. Filters naming fields
// outside the vocabulary are dropped from the result.
func (r *Refiner) Refine(ctx context.Context, text string, scope core.ScopeContext, draft core.QueryAnalysis, fields []ai.FieldInfo) (core.QueryAnalysis, error) {
	systemPrompt := buildSystemPrompt(fields)
	userPrompt := buildUserPrompt(text, scope, draft)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(systemPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(userPrompt),
			},
		},
	}

	vocab := make(map[string]core.FieldType, len(fields))
	for _, f := range fields {
		vocab[f.Name] = f.Type
	}

	// Try up to 3 times in case of malformed JSON
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			r.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return core.QueryAnalysis{}, fmt.Errorf("%w: %w", ai.ErrRefinementUnavailable, err)
		}

		if len(response.Choices) < 1 {
			lastErr = ai.ErrMalformedResponse
			r.logger.Debug("no choices returned from model", "attempt", attempt+1)
			continue
		}

		choice := response.Choices[0]

		// Strip markdown code fences if present
		responseText := strings.TrimSpace(choice.Content)
		responseText = strings.TrimPrefix(responseText, "```json")
		responseText = strings.TrimPrefix(responseText, "```")
		responseText = strings.TrimSuffix(responseText, "```")
		responseText = strings.TrimSpace(responseText)

		// Try to repair common JSON issues
		responseText = repairJSON(responseText)

		var wire wireAnalysis
		if err := json.Unmarshal([]byte(responseText), &wire); err != nil {
			lastErr = err
			r.logger.Warn("error parsing refiner response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		analysis, err := r.fromWire(&wire, vocab)
		if err != nil {
			lastErr = err
			r.logger.Warn("invalid refiner response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return analysis, nil
	}

	r.logger.Error("failed to parse refiner response after retries", "err", lastErr)
	return core.QueryAnalysis{}, fmt.Errorf("%w: %w", ai.ErrMalformedResponse, lastErr)
}

// buildUserPrompt packages the query text, scope, and heuristic draft for
// the model.
func buildUserPrompt(text string, scope core.ScopeContext, draft core.QueryAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Query: %q\n", text)
	if scope.Restricted() {
		fmt.Fprintf(&b, "Restricted to document type: %s\n", scope.SchemaID)
	}
	draftJSON, err := json.Marshal(toWire(draft))
	if err == nil {
		fmt.Fprintf(&b, "Draft analysis: %s\n", draftJSON)
	}
	return b.String()
}

// toWire converts a draft analysis to the wire form embedded in the prompt.
func toWire(a core.QueryAnalysis) wireAnalysis {
	wire := wireAnalysis{
		Intent:     a.Intent.String(),
		Confidence: a.Confidence,
		MatchTerms: a.MatchTerms,
		Filters:    make([]wireFilter, 0, len(a.Filters)),
	}
	switch a.SuggestedSort {
	case core.SortRecency:
		wire.Sort = "recency"
	case core.SortRelevance:
		wire.Sort = "relevance"
	}
	for _, f := range a.Filters {
		wf := wireFilter{
			Field:    f.CanonicalField,
			Operator: f.Operator.String(),
		}
		if wf.Field == "" {
			wf.Field = f.Field
		}
		switch f.Value.Kind {
		case core.ValueText:
			wf.Text = f.Value.Text
		case core.ValueNumber:
			n := f.Value.Number
			wf.Number = &n
			if f.Operator == core.OpRange {
				upper := f.Value.UpperNumber
				wf.UpperNumber = &upper
			}
		case core.ValueDateRange:
			if f.Value.Period != core.PeriodNone {
				wf.Period = f.Value.Period.String()
			} else {
				if !f.Value.From.IsZero() {
					wf.From = f.Value.From.Format("2006-01-02")
				}
				if !f.Value.To.IsZero() {
					wf.To = f.Value.To.Format("2006-01-02")
				}
			}
		}
		wire.Filters = append(wire.Filters, wf)
	}
	return wire
}

// fromWire validates and converts the model's response. Filters naming
// unknown fields are dropped rather than failing the whole refinement.
func (r *Refiner) fromWire(wire *wireAnalysis, vocab map[string]core.FieldType) (core.QueryAnalysis, error) {
	intent := core.IntentFromString(wire.Intent)
	if intent == 0 {
		return core.QueryAnalysis{}, fmt.Errorf("unknown intent %q", wire.Intent)
	}

	analysis := core.QueryAnalysis{
		Intent:     intent,
		Confidence: clamp01(wire.Confidence),
	}
	switch strings.ToLower(wire.Sort) {
	case "recency":
		analysis.SuggestedSort = core.SortRecency
	case "relevance":
		analysis.SuggestedSort = core.SortRelevance
	}
	for _, term := range wire.MatchTerms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			analysis.MatchTerms = append(analysis.MatchTerms, term)
		}
	}

	for _, wf := range wire.Filters {
		field := strings.TrimSpace(wf.Field)
		if _, known := vocab[field]; !known {
			r.logger.Debug("dropping filter on unknown field", "field", wf.Field)
			continue
		}
		op := core.OperatorFromString(wf.Operator)
		if op == 0 {
			r.logger.Debug("dropping filter with unknown operator", "operator", wf.Operator)
			continue
		}

		filter := core.Filter{
			Field:          field,
			CanonicalField: field,
			Operator:       op,
		}
		switch {
		case op == core.OpExists:
			// No value.
		case wf.Period != "":
			period, ok := periodNames[strings.ToLower(wf.Period)]
			if !ok {
				r.logger.Debug("dropping filter with unknown period", "period", wf.Period)
				continue
			}
			filter.Value = core.FilterValue{Kind: core.ValueDateRange, Period: period}
		case wf.From != "" || wf.To != "":
			from, to, err := parseDateBounds(wf.From, wf.To)
			if err != nil {
				r.logger.Debug("dropping filter with bad date bounds", "from", wf.From, "to", wf.To, "err", err)
				continue
			}
			filter.Value = core.FilterValue{Kind: core.ValueDateRange, From: from, To: to}
		case wf.Number != nil:
			filter.Value = core.FilterValue{Kind: core.ValueNumber, Number: *wf.Number}
			if wf.UpperNumber != nil {
				filter.Value.UpperNumber = *wf.UpperNumber
			}
		case wf.Text != "":
			filter.Value = core.FilterValue{Kind: core.ValueText, Text: strings.ToLower(strings.TrimSpace(wf.Text))}
		default:
			r.logger.Debug("dropping filter with no value", "field", wf.Field, "operator", wf.Operator)
			continue
		}
		analysis.Filters = append(analysis.Filters, filter)
	}

	return analysis, nil
}

func parseDateBounds(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error
	if from != "" {
		f, err = time.Parse("2006-01-02", from)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if to != "" {
		t, err = time.Parse("2006-01-02", to)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return f, t, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
