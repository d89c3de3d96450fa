package store

import (
	"context"
	"fmt"

	"github.com/abhisek/viva/ent"
	"github.com/abhisek/viva/ent/turnevent"
)

func (r *eventRepo) AppendTurnEvent(ctx context.Context, data TurnEventData) error {
	seqNum, err := r.seq.Next(ctx)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	_, err = r.client.TurnEvent.Create().
		SetSequence(seqNum).
		SetSessionID(data.SessionID).
		SetQuestionID(data.QuestionID).
		SetSpeaker(data.Speaker).
		SetText(data.Text).
		SetHasVerdict(data.HasVerdict).
		SetVerdict(data.Verdict).
		Save(ctx)
	if err != nil {
		return fmt.Errorf("save turn event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryTurns(ctx context.Context, sessionID string) ([]TurnRecord, error) {
	events, err := r.client.TurnEvent.Query().
		Where(turnevent.SessionID(sessionID)).
		Order(ent.Asc(turnevent.FieldSequence)).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}

	records := make([]TurnRecord, len(events))
	for i, e := range events {
		records[i] = TurnRecord{
			Sequence:   e.Sequence,
			Timestamp:  e.Timestamp,
			QuestionID: e.QuestionID,
			Speaker:    e.Speaker,
			Text:       e.Text,
			HasVerdict: e.HasVerdict,
			Verdict:    e.Verdict,
		}
	}
	return records, nil
}
