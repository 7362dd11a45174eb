package worker

import (
	"github.com/spec-kit/careflow-service/internal/events"
	"github.com/spec-kit/careflow-service/internal/realtime"
)

// StartRealtimeWorker bridges workflow events onto the change-event hub.
func StartRealtimeWorker(publisher *realtime.Publisher, dispatcher events.Dispatcher) {
	if publisher == nil {
		return
	}
	publisher.RegisterHandlers(dispatcher)
}
