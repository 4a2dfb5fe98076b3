package records

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anthrogizi/anthrogizi/internal/platform/websocket"
)

// EventRecordSaved is the event type published after a save.
const EventRecordSaved = "record.saved"

type Service struct {
	repo   Repository
	events websocket.EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService wires the repository. events may be nil.
func NewService(repo Repository, events websocket.EventPublisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Save(ctx context.Context, c *Calculation) error {
	if c.Kind == "" {
		c.Kind = KindAnthropometry
	}
	if !validKinds[c.Kind] {
		return fmt.Errorf("invalid kind: %s", c.Kind)
	}
	if len(c.Payload) == 0 {
		return fmt.Errorf("payload is required")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(c.Payload, &obj); err != nil {
		return fmt.Errorf("payload must be a JSON object")
	}
	c.CreatedAt = s.now().Truncate(time.Millisecond)

	if err := s.repo.Create(ctx, c); err != nil {
		return err
	}
	s.publish(ctx, c)
	return nil
}

// publish failures do not fail the save.
func (s *Service) publish(ctx context.Context, c *Calculation) {
	if s.events == nil {
		return
	}
	ev, err := websocket.NewEvent(websocket.TopicRecords, EventRecordSaved, SavedEvent{
		ID:        c.ID,
		Kind:      c.Kind,
		CreatedBy: c.CreatedBy,
		CreatedAt: c.CreatedAt,
	})
	if err == nil {
		err = s.events.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("calculation_id", c.ID.String()).Msg("failed to publish record event")
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Calculation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Calculation, int, error) {
	return s.repo.List(ctx, limit, offset)
}
