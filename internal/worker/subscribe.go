package worker

import (
	"context"

	"dustbinpro/internal/events"
)

// Subscribe turns domain events into outbox tasks. Only task types with a
// configured sink are enqueued.
func (w *NoticeWorker) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, func(e *events.Event) error {
		var b events.BookingEventPayload
		if err := e.Decode(&b); err != nil {
			return err
		}
		return w.enqueueAll(b.BookingID, b, TaskBookingConfirmation, TaskSheetsUpsert)
	})

	bus.Subscribe(events.EventBookingCancelled, func(e *events.Event) error {
		var b events.BookingEventPayload
		if err := e.Decode(&b); err != nil {
			return err
		}
		types := []string{TaskSheetsStatus}
		if b.CustomerEmail != "" {
			types = append(types, TaskCancellationNotice)
		}
		return w.enqueueAll(b.BookingID, b, types...)
	})

	bus.Subscribe(events.EventSupportTicketOpen, func(e *events.Event) error {
		var t events.TicketEventPayload
		if err := e.Decode(&t); err != nil {
			return err
		}
		return w.enqueueAll(t.TicketID, t, TaskTicketAlert)
	})
}

func (w *NoticeWorker) enqueueAll(reference string, payload interface{}, taskTypes ...string) error {
	// enqueueing outlives the publishing request
	ctx := context.Background()
	var firstErr error
	for _, tt := range taskTypes {
		if !w.Handles(tt) {
			continue
		}
		if err := w.EnqueueTask(ctx, tt, reference, payload); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
