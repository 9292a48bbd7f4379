package assist

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/nao1215/covgen/internal/model"
)

// UnparsableExplanation is the explanation of the empty plan returned when
// a model response cannot be used.
const UnparsableExplanation = "Could not parse LLM response"

// planSchema describes the answer we ask the model for. Fields may be null
// because models occasionally emit null for "nothing to change".
const planSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["modifications"],
  "properties": {
    "modifications": {
      "type": "object",
      "properties": {
        "makefile_changes": {"type": ["array", "null"], "items": {"type": "string"}},
        "cmake_changes": {"type": ["array", "null"], "items": {"type": "string"}},
        "test_compilation": {"type": ["string", "null"]},
        "gcov_commands": {"type": ["array", "null"], "items": {"type": "string"}},
        "missing_files": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["path", "content"],
            "properties": {
              "path": {"type": "string", "minLength": 1},
              "content": {"type": "string"}
            }
          }
        }
      }
    },
    "explanation": {"type": ["string", "null"]}
  }
}`

var planSchemaLoader = gojsonschema.NewStringLoader(planSchema)

// ParsePlan extracts the modification plan from a model response. The
// response may wrap the JSON in prose or code fences; everything from the
// first '{' to the last '}' is used.
//
// On failure it returns an empty plan with UnparsableExplanation together
// with the error, so callers can continue without modifications.
func ParsePlan(response string) (*model.ModificationPlan, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end <= start {
		return model.NewEmptyPlan(UnparsableExplanation), ErrNoJSON
	}
	raw := response[start : end+1]

	result, err := gojsonschema.Validate(planSchemaLoader, gojsonschema.NewStringLoader(raw))
	if err != nil {
		return model.NewEmptyPlan(UnparsableExplanation), fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return model.NewEmptyPlan(UnparsableExplanation), fmt.Errorf("%w: %s", ErrInvalidPlan, strings.Join(msgs, "; "))
	}

	var plan model.ModificationPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return model.NewEmptyPlan(UnparsableExplanation), fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	normalize(&plan)
	return &plan, nil
}

// normalize replaces nil slices so the plan serializes like the model's
// own answer.
func normalize(p *model.ModificationPlan) {
	m := &p.Modifications
	if m.MakefileChanges == nil {
		m.MakefileChanges = []string{}
	}
	if m.CMakeChanges == nil {
		m.CMakeChanges = []string{}
	}
	if m.GcovCommands == nil {
		m.GcovCommands = []string{}
	}
	if m.MissingFiles == nil {
		m.MissingFiles = []model.MissingFile{}
	}
}
