package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/quiz"
)

const systemPrompt = `You are preparing an oral practice session from a student's study material.

Rules:
- Extract every distinct question present in the document, in document order.
- If the document contains answers or an answer key, use them as the ideal answers. Otherwise write a concise, correct ideal answer yourself.
- The spoken rephrasing should sound natural when read aloud by a voice assistant. Expand abbreviations and symbols into words.
- Leave the spoken rephrasing empty when the question already reads naturally.
- Do not invent questions that are not grounded in the document.
- Skip headings, instructions, and decorative text.`

// Config holds extraction settings.
type Config struct {
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns sensible defaults for question extraction.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   4096,
		Temperature: 0.2,
	}
}

// Extractor turns a study document into an ordered question set.
type Extractor interface {
	Extract(ctx context.Context, doc Document) (quiz.QuestionSet, error)
}

// LLMExtractor implements Extractor using the LLM provider. Text
// documents travel in the prompt; PDFs and images go as inline media,
// which requires a multimodal provider.
type LLMExtractor struct {
	provider llm.Provider
	config   Config
}

// New creates an LLMExtractor with the given provider and config.
func New(provider llm.Provider, cfg Config) *LLMExtractor {
	return &LLMExtractor{provider: provider, config: cfg}
}

// questionSetOutput is the raw LLM response before validation.
type questionSetOutput struct {
	Questions []struct {
		Question       string `json:"question"`
		SpokenQuestion string `json:"spoken_question"`
		Answer         string `json:"answer"`
	} `json:"questions"`
}

func (e *LLMExtractor) Extract(ctx context.Context, doc Document) (quiz.QuestionSet, error) {
	ctx = llm.WithPurpose(ctx, "question-extract")

	req := llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{buildDocumentMessage(doc)},
		Schema:      QuestionSetSchema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, &IngestionError{Path: doc.Path, Reason: "extraction failed", Err: err}
	}

	var raw questionSetOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &IngestionError{Path: doc.Path, Reason: "malformed extraction response", Err: err}
	}

	var qs quiz.QuestionSet
	for _, q := range raw.Questions {
		prompt := strings.TrimSpace(q.Question)
		answer := strings.TrimSpace(q.Answer)
		if prompt == "" || answer == "" {
			continue
		}
		qs = append(qs, quiz.Question{
			ID:           fmt.Sprintf("q%d", len(qs)+1),
			Prompt:       prompt,
			SpokenPrompt: strings.TrimSpace(q.SpokenQuestion),
			IdealAnswer:  answer,
		})
	}

	if len(qs) == 0 {
		return nil, &IngestionError{Path: doc.Path, Reason: "no questions found in document"}
	}
	return qs, nil
}

// buildDocumentMessage wraps the document as a single user message.
func buildDocumentMessage(doc Document) llm.Message {
	if doc.IsText() {
		return llm.Message{
			Role:    llm.RoleUser,
			Content: "Extract the questions from this study material:\n\n" + string(doc.Data),
		}
	}
	return llm.Message{
		Role:    llm.RoleUser,
		Content: "Extract the questions from the attached study material.",
		Media:   []llm.Media{{MIME: doc.MIME, Data: doc.Data}},
	}
}
