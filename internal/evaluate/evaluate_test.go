package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/llm"
	"github.com/abhisek/viva/internal/quiz"
)

var testQuestion = quiz.Question{
	ID:          "q1",
	Prompt:      "What is ATP?",
	IdealAnswer: "Adenosine triphosphate, the cell's energy currency.",
}

func TestAnswerEvaluatorVerdict(t *testing.T) {
	tests := []struct {
		name        string
		response    string
		wantCorrect bool
		wantMessage string
	}{
		{
			name:        "correct",
			response:    `{"is_correct": true, "feedback": "Exactly right."}`,
			wantCorrect: true,
			wantMessage: "Exactly right.",
		},
		{
			name:        "incorrect",
			response:    `{"is_correct": false, "feedback": "Not quite. ATP is adenosine triphosphate."}`,
			wantCorrect: false,
			wantMessage: "Not quite. ATP is adenosine triphosphate.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(tt.response)})
			ev := NewAnswerEvaluator(provider, DefaultConfig())

			fb, err := ev.Evaluate(context.Background(), testQuestion, capture.Result{Text: "some answer"})
			if err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if fb.Verdict == nil {
				t.Fatal("no verdict in live feedback")
			}
			if fb.Report != nil {
				t.Error("live feedback carries a coach report")
			}
			if fb.Verdict.Correct != tt.wantCorrect {
				t.Errorf("correct = %v, want %v", fb.Verdict.Correct, tt.wantCorrect)
			}
			if fb.Verdict.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", fb.Verdict.Message, tt.wantMessage)
			}
		})
	}
}

func TestAnswerEvaluatorRequestShape(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"is_correct": true, "feedback": "Yes."}`),
	})
	ev := NewAnswerEvaluator(provider, DefaultConfig())

	if _, err := ev.Evaluate(context.Background(), testQuestion, capture.Result{Text: quiz.NotAnswered}); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	call := provider.Calls[0]
	if call.Schema == nil || call.Schema.Name != "answer-verdict" {
		t.Errorf("schema = %+v, want answer-verdict", call.Schema)
	}
	if call.HasMedia() {
		t.Error("text evaluation sent media")
	}
}

func TestAnswerEvaluatorProviderFailure(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Err: &llm.ErrProviderUnavailable{}})
	ev := NewAnswerEvaluator(provider, DefaultConfig())

	_, err := ev.Evaluate(context.Background(), testQuestion, capture.Result{Text: "answer"})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GatewayError", err)
	}
	if ge.QuestionID != "q1" {
		t.Errorf("question id = %q, want q1", ge.QuestionID)
	}
	var unavailable *llm.ErrProviderUnavailable
	if !errors.As(err, &unavailable) {
		t.Errorf("cause %v not preserved", err)
	}
}

func TestAnswerEvaluatorMalformedResponse(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{Content: json.RawMessage(`not json`)})
	ev := NewAnswerEvaluator(provider, DefaultConfig())

	_, err := ev.Evaluate(context.Background(), testQuestion, capture.Result{Text: "answer"})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GatewayError", err)
	}
}

func TestCoachEvaluatorReport(t *testing.T) {
	provider := llm.NewMockProvider(llm.MockResponse{
		Content: json.RawMessage(`{"correctness": "Accurate.", "confidence": "Steady delivery.", "tone": "Good pacing."}`),
	})
	ev := NewCoachEvaluator(provider, DefaultConfig())

	res := capture.Result{Audio: []byte{1, 2, 3}, MIME: "audio/wav"}
	fb, err := ev.Evaluate(context.Background(), testQuestion, res)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if fb.Report == nil {
		t.Fatal("no report in coach feedback")
	}
	if fb.Verdict != nil {
		t.Error("coach feedback carries a boolean verdict")
	}
	if fb.Report.Correctness != "Accurate." || fb.Report.Confidence != "Steady delivery." || fb.Report.Tone != "Good pacing." {
		t.Errorf("report = %+v", fb.Report)
	}

	call := provider.Calls[0]
	if !call.HasMedia() {
		t.Fatal("recording not attached to the request")
	}
	if call.Messages[0].Media[0].MIME != "audio/wav" {
		t.Errorf("media MIME = %q, want audio/wav", call.Messages[0].Media[0].MIME)
	}
	if call.Schema == nil || call.Schema.Name != "coach-report" {
		t.Errorf("schema = %+v, want coach-report", call.Schema)
	}
}

func TestCoachEvaluatorRejectsMissingAudio(t *testing.T) {
	ev := NewCoachEvaluator(llm.NewMockProvider(), DefaultConfig())

	_, err := ev.Evaluate(context.Background(), testQuestion, capture.Result{Text: "text only"})
	var ge *GatewayError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GatewayError", err)
	}
}
