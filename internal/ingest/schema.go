package ingest

import "github.com/abhisek/viva/internal/llm"

// QuestionSetSchema defines the JSON schema for question extraction
// responses.
var QuestionSetSchema = &llm.Schema{
	Name:        "question-set",
	Description: "Practice questions extracted from a study document",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type":        "array",
				"description": "Every distinct question found in the document, in document order",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"question": map[string]any{
							"type":        "string",
							"description": "The question text exactly as it should appear on screen",
						},
						"spoken_question": map[string]any{
							"type":        "string",
							"description": "A conversational rephrasing suitable for reading aloud. Empty if the question reads well as-is.",
						},
						"answer": map[string]any{
							"type":        "string",
							"description": "The ideal answer, used to judge the student's spoken response. Concise but complete.",
						},
					},
					"required":             []any{"question", "spoken_question", "answer"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
