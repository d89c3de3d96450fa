package evaluate

import "github.com/abhisek/viva/internal/llm"

// VerdictSchema defines the JSON schema for live answer evaluation
// responses.
var VerdictSchema = &llm.Schema{
	Name:        "answer-verdict",
	Description: "Judgment of a spoken answer against the ideal answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the student's answer is semantically correct",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two encouraging sentences, read aloud to the student",
			},
		},
		"required":             []any{"is_correct", "feedback"},
		"additionalProperties": false,
	},
}

// ReportSchema defines the JSON schema for coach-mode audio review
// responses.
var ReportSchema = &llm.Schema{
	Name:        "coach-report",
	Description: "Three-dimension review of a recorded spoken answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"correctness": map[string]any{
				"type":        "string",
				"description": "Assessment of content accuracy against the ideal answer",
			},
			"confidence": map[string]any{
				"type":        "string",
				"description": "Assessment of how confidently the answer was delivered",
			},
			"tone": map[string]any{
				"type":        "string",
				"description": "Assessment of pacing, clarity, and tone of voice",
			},
		},
		"required":             []any{"correctness", "confidence", "tone"},
		"additionalProperties": false,
	},
}
