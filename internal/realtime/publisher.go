package realtime

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/spec-kit/careflow-service/internal/events"
)

// Publisher bridges dispatcher events onto the change-event hub, delivering
// approval-request row changes to the identity the row belongs to.
type Publisher struct {
	hub    Hub
	logger *zap.Logger
}

// NewPublisher creates the bridge.
func NewPublisher(hub Hub, logger *zap.Logger) *Publisher {
	return &Publisher{hub: hub, logger: logger}
}

// RegisterHandlers subscribes to the workflow events that map to row changes.
func (p *Publisher) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventApprovalSubmitted, p.handleApprovalChange("INSERT"))
	dispatcher.Subscribe(events.EventApprovalDecided, p.handleApprovalChange("UPDATE"))
}

func (p *Publisher) handleApprovalChange(operation string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		row, err := json.Marshal(event.Payload)
		if err != nil {
			p.logger.Error("marshal change payload", zap.Error(err))
			return err
		}
		change := ChangeEvent{
			Table:     "approval_requests",
			Operation: operation,
			NewRow:    row,
		}
		if err := p.hub.Publish(ctx, event.Identity, change); err != nil {
			p.logger.Warn("publish change event",
				zap.String("identity", event.Identity),
				zap.Error(err))
			return err
		}
		return nil
	}
}
