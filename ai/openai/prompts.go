package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/queryroute/ai"
	"github.com/poiesic/queryroute/core"
)

const refinementResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "intent": {
      "type": "string",
      "enum": ["search", "retrieve", "aggregate", "filter"]
    },
    "confidence": {
      "type": "number",
      "minimum": 0,
      "maximum": 1
    },
    "match_terms": {
      "type": "array",
      "items": {"type": "string"}
    },
    "sort": {
      "type": "string",
      "enum": ["none", "recency", "relevance"]
    },
    "filters": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "field": {"type": "string"},
          "operator": {
            "type": "string",
            "enum": ["eq", "gte", "lte", "range", "exists"]
          },
          "text": {"type": "string"},
          "number": {"type": "number"},
          "upper_number": {"type": "number"},
          "period": {
            "type": "string",
            "enum": ["today", "yesterday", "this_week", "last_week", "this_month", "last_month", "this_quarter", "last_quarter", "this_year", "last_year"]
          },
          "from": {"type": "string", "format": "date"},
          "to": {"type": "string", "format": "date"}
        },
        "required": ["field", "operator"],
        "additionalProperties": false
      }
    }
  },
  "required": ["intent", "confidence", "filters"],
  "additionalProperties": false
}`

const refinementPromptTemplate = `You translate natural-language document queries into structured analyses.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Intent meanings:
- "search": find documents matching the query text.
- "retrieve": answer with the value of a specific field, not a document list.
- "aggregate": compute over many documents (totals, averages, counts, comparisons, grouping).
- "filter": narrow documents by explicit constraints only, no free-text matching.

Rules:
- The "field" of every filter must be exactly one of the known fields listed below. Never invent a field name.
- Use "period" for relative dates ("last month", "this quarter"). Use "from"/"to" (ISO dates) only for absolute dates the query names explicitly.
- Use "range" with "number" and "upper_number" for between-style numeric constraints.
- Use "exists" with no value for retrieve intents asking what a field's value is.
- "match_terms" carries residual free-text words that should match document content. Leave it empty for retrieve and filter intents.
- "confidence" reflects how certain you are that the analysis captures the query's meaning.
- A draft analysis from a heuristic parser is provided. Correct it where it is wrong; keep what it got right.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Known fields:
%s

Example:
Query: "average invoice total per vendor last quarter"
Output:
{
  "intent": "aggregate",
  "confidence": 0.9,
  "match_terms": [],
  "sort": "none",
  "filters": [
    {"field": "date", "operator": "range", "period": "last_quarter"}
  ]
}

Example:
Query: "what payment terms did we agree to"
Output:
{
  "intent": "retrieve",
  "confidence": 0.85,
  "match_terms": [],
  "sort": "none",
  "filters": [
    {"field": "payment_terms", "operator": "exists"}
  ]
}`

// buildSystemPrompt creates the system prompt with the canonical field
// vocabulary embedded.
func buildSystemPrompt(fields []ai.FieldInfo) string {
	var vocab strings.Builder
	for _, f := range fields {
		fmt.Fprintf(&vocab, "- %s (%s)\n", f.Name, fieldTypeName(f.Type))
	}
	if vocab.Len() == 0 {
		vocab.WriteString("(none)\n")
	}
	return fmt.Sprintf(refinementPromptTemplate, refinementResponseSchema, strings.TrimRight(vocab.String(), "\n"))
}

func fieldTypeName(t core.FieldType) string {
	switch t {
	case core.FieldTypeNumber:
		return "number"
	case core.FieldTypeDate:
		return "date"
	case core.FieldTypeBoolean:
		return "boolean"
	default:
		return "text"
	}
}
