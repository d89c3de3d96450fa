package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// SessionEventData captures a session lifecycle event (start or end).
type SessionEventData struct {
	SessionID      string
	Action         string // "start" or "end"
	Mode           string // "live" or "coach"
	QuestionsTotal int
	Score          int // end only
	DurationSecs   int // end only
}

// SessionSummaryRecord is one completed session as read back for the
// history screen.
type SessionSummaryRecord struct {
	SessionID      string
	Timestamp      time.Time
	Mode           string
	QuestionsTotal int
	Score          int
	DurationSecs   int
}

// TurnEventData captures one transcript turn for replay.
type TurnEventData struct {
	SessionID  string
	QuestionID string
	Speaker    string // "agent", "user", "system"
	Text       string
	HasVerdict bool
	Verdict    bool
}

// TurnRecord is a persisted turn as read back, in session order.
type TurnRecord struct {
	Sequence   int64
	Timestamp  time.Time
	QuestionID string
	Speaker    string
	Text       string
	HasVerdict bool
	Verdict    bool
}

// LLMRequestEventData captures the data for a single LLM request event.
type LLMRequestEventData struct {
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMEventRecord is a persisted LLM request event as read back.
type LLMEventRecord struct {
	ID           int
	Sequence     int64
	Timestamp    time.Time
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMPurposeUsage aggregates LLM usage for one purpose label.
type LLMPurposeUsage struct {
	Purpose      string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs int64
}

// LLMModelUsage aggregates LLM usage for one model.
type LLMModelUsage struct {
	Model        string
	Calls        int
	InputTokens  int
	OutputTokens int
}

// EventRepo provides append and query access to domain events.
type EventRepo interface {
	// AppendSessionEvent records a session start or end.
	AppendSessionEvent(ctx context.Context, data SessionEventData) error

	// AppendTurnEvent records one transcript turn.
	AppendTurnEvent(ctx context.Context, data TurnEventData) error

	// AppendLLMRequest records an LLM API call event.
	AppendLLMRequest(ctx context.Context, data LLMRequestEventData) error

	// QuerySessionSummaries returns completed sessions, newest first.
	QuerySessionSummaries(ctx context.Context, opts QueryOpts) ([]SessionSummaryRecord, error)

	// QueryTurns returns the transcript of one session in turn order.
	QueryTurns(ctx context.Context, sessionID string) ([]TurnRecord, error)

	// QueryLLMEvents returns LLM request events, newest first.
	QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]LLMEventRecord, error)

	// GetLLMEvent returns one event by ID, or nil when not found.
	GetLLMEvent(ctx context.Context, id int) (*LLMEventRecord, error)

	// LLMUsageByPurpose aggregates token usage per purpose label.
	LLMUsageByPurpose(ctx context.Context) ([]LLMPurposeUsage, error)

	// LLMUsageByModel aggregates token usage per model.
	LLMUsageByModel(ctx context.Context) ([]LLMModelUsage, error)
}
