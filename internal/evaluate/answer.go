package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/quiz"
)

const answerSystemPrompt = `You are an examiner judging a student's spoken answer in an oral practice session.

Rules:
- Judge semantic correctness against the ideal answer, not word-for-word overlap.
- The answer was transcribed from speech. Ignore transcription artifacts, filler words, and minor phrasing differences.
- An answer of "Not answered" means the student said nothing; it is always incorrect.
- Feedback is read aloud to the student: one or two short sentences, encouraging, and stating the right answer when the student was wrong.`

// AnswerEvaluator is the live-variant gateway: it judges a transcribed
// text answer and returns a boolean verdict with spoken feedback.
type AnswerEvaluator struct {
	provider llm.Provider
	config   Config
}

// NewAnswerEvaluator creates the live-mode gateway.
func NewAnswerEvaluator(provider llm.Provider, cfg Config) *AnswerEvaluator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &AnswerEvaluator{provider: provider, config: cfg}
}

// verdictOutput is the raw LLM response before validation.
type verdictOutput struct {
	IsCorrect bool   `json:"is_correct"`
	Feedback  string `json:"feedback"`
}

func (e *AnswerEvaluator) Evaluate(ctx context.Context, q quiz.Question, res capture.Result) (*quiz.Feedback, error) {
	ctx = llm.WithPurpose(ctx, "answer-eval")
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n", q.Prompt)
	fmt.Fprintf(&b, "Ideal answer: %s\n", q.IdealAnswer)
	fmt.Fprintf(&b, "Student's spoken answer: %s\n", res.Text)

	req := llm.Request{
		System: answerSystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: b.String()},
		},
		Schema:      VerdictSchema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, &GatewayError{QuestionID: q.ID, Err: err}
	}

	var raw verdictOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &GatewayError{QuestionID: q.ID, Err: err}
	}

	return &quiz.Feedback{
		Verdict: &quiz.Verdict{
			Correct: raw.IsCorrect,
			Message: raw.Feedback,
		},
	}, nil
}
