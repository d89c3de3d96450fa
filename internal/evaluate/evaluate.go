package evaluate

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/viva/internal/capture"
	"github.com/abhisek/viva/internal/quiz"
)

// DefaultTimeout bounds a single evaluation round trip. The session
// treats a timeout like any other gateway failure and moves on.
const DefaultTimeout = 20 * time.Second

// Gateway judges one captured answer against its question.
type Gateway interface {
	Evaluate(ctx context.Context, q quiz.Question, res capture.Result) (*quiz.Feedback, error)
}

// Config holds evaluation settings.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns sensible defaults for answer evaluation.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0.3,
		Timeout:     DefaultTimeout,
	}
}

// GatewayError indicates evaluation of one answer failed. It is
// non-terminal: the session logs it and advances to the next question.
type GatewayError struct {
	QuestionID string
	Err        error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("evaluate %s: %v", e.QuestionID, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }
