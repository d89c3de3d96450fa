package evaluate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/quiz"
)

const coachSystemPrompt = `You are a presentation coach reviewing a student's recorded spoken answer.

Rules:
- Listen to the attached recording and assess the answer on three dimensions: correctness of content, confidence of delivery, and tone.
- Judge correctness against the ideal answer semantically, not word-for-word.
- Each dimension is one or two short sentences, written to be read aloud to the student.
- Be specific: cite what the student actually said or how they said it.
- Stay encouraging even when the answer is wrong.`

// CoachEvaluator is the coach-variant gateway: it sends the recorded
// audio clip for multimodal review and returns a three-dimension
// report. Requires a provider with inline media support.
type CoachEvaluator struct {
	provider llm.Provider
	config   Config
}

// NewCoachEvaluator creates the coach-mode gateway.
func NewCoachEvaluator(provider llm.Provider, cfg Config) *CoachEvaluator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &CoachEvaluator{provider: provider, config: cfg}
}

// reportOutput is the raw LLM response before validation.
type reportOutput struct {
	Correctness string `json:"correctness"`
	Confidence  string `json:"confidence"`
	Tone        string `json:"tone"`
}

func (e *CoachEvaluator) Evaluate(ctx context.Context, q quiz.Question, res capture.Result) (*quiz.Feedback, error) {
	if !res.HasAudio() {
		return nil, &GatewayError{QuestionID: q.ID, Err: errNoAudio}
	}

	ctx = llm.WithPurpose(ctx, "coach-eval")
	ctx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	prompt := fmt.Sprintf("Question: %s\nIdeal answer: %s\nThe student's recorded answer is attached.", q.Prompt, q.IdealAnswer)

	req := llm.Request{
		System: coachSystemPrompt,
		Messages: []llm.Message{
			{
				Role:    llm.RoleUser,
				Content: prompt,
				Media:   []llm.Media{{MIME: res.MIME, Data: res.Audio}},
			},
		},
		Schema:      ReportSchema,
		MaxTokens:   e.config.MaxTokens,
		Temperature: e.config.Temperature,
	}

	resp, err := e.provider.Generate(ctx, req)
	if err != nil {
		return nil, &GatewayError{QuestionID: q.ID, Err: err}
	}

	var raw reportOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return nil, &GatewayError{QuestionID: q.ID, Err: err}
	}

	return &quiz.Feedback{
		Report: &quiz.Report{
			Correctness: raw.Correctness,
			Confidence:  raw.Confidence,
			Tone:        raw.Tone,
		},
	}, nil
}

var errNoAudio = fmt.Errorf("no audio in capture result")
