package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dustbinpro/internal/events"
	"dustbinpro/internal/metrics"
	"dustbinpro/internal/models"
	"dustbinpro/internal/outbox"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	TaskBookingConfirmation = "booking_confirmation"
	TaskCancellationNotice  = "cancellation_notice"
	TaskSheetsUpsert        = "sheets_upsert"
	TaskSheetsStatus        = "sheets_status"
	TaskTicketAlert         = "ticket_alert"
)

// Mailer delivers customer notices.
type Mailer interface {
	SendBookingConfirmation(ctx context.Context, b events.BookingEventPayload) error
	SendCancellationNotice(ctx context.Context, b events.BookingEventPayload) error
}

// SheetsMirror keeps the back-office booking sheet in step.
type SheetsMirror interface {
	UpsertBooking(ctx context.Context, b events.BookingEventPayload) error
	UpdateBookingStatus(ctx context.Context, bookingID, status string) error
}

// OpsNotifier alerts the operations chat.
type OpsNotifier interface {
	NotifyTicket(ctx context.Context, t events.TicketEventPayload) error
}

// TaskStore is the durable side of the queue.
type TaskStore interface {
	CreateTask(ctx context.Context, task *models.OutboxTask) error
	GetTask(ctx context.Context, id int64) (*models.OutboxTask, error)
	PendingTasks(ctx context.Context, limit int) ([]models.OutboxTask, error)
	UpdateStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// Sinks are the outbound collaborators. Nil sinks disable their task types.
type Sinks struct {
	Mail   Mailer
	Sheets SheetsMirror
	Ops    OpsNotifier
}

// NoticeWorker delivers outbox tasks. Tasks are persisted first, then handed
// over through a Redis list, or an in-memory channel when Redis is absent;
// polling the outbox picks up anything the fast paths missed.
type NoticeWorker struct {
	store         TaskStore
	sinks         Sinks
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.OutboxTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

type Options struct {
	Retry        RetryPolicy
	PollInterval time.Duration
	// Namespace prefixes the Redis keys; each outbox file needs its own.
	Namespace string
}

func NewNoticeWorker(store TaskStore, sinks Sinks, redisClient *redis.Client, opts Options, logger *zerolog.Logger) *NoticeWorker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.Namespace == "" {
		opts.Namespace = "portal"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &NoticeWorker{
		store:         store,
		sinks:         sinks,
		redis:         redisClient,
		retryPolicy:   opts.Retry.withDefaults(),
		queue:         make(chan models.OutboxTask, models.WorkerQueueSize),
		redisQueueKey: opts.Namespace + ":notices:queue",
		deadLetterKey: opts.Namespace + ":notices:deadletter",
		pollInterval:  opts.PollInterval,
		batchSize:     20,
		logger:        logger,
	}
}

// Handles reports whether a sink is configured for taskType.
func (w *NoticeWorker) Handles(taskType string) bool {
	switch taskType {
	case TaskBookingConfirmation, TaskCancellationNotice:
		return w.sinks.Mail != nil
	case TaskSheetsUpsert, TaskSheetsStatus:
		return w.sinks.Sheets != nil
	case TaskTicketAlert:
		return w.sinks.Ops != nil
	default:
		return false
	}
}

// EnqueueTask persists the task and schedules it for delivery.
func (w *NoticeWorker) EnqueueTask(ctx context.Context, taskType, reference string, payload interface{}) error {
	if taskType == "" {
		return errors.New("task type is required")
	}
	if reference == "" {
		return errors.New("task reference is required")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	task := models.OutboxTask{
		TaskType:  taskType,
		Reference: reference,
		Payload:   string(raw),
		Status:    outbox.StatusPending,
	}
	if err := w.store.CreateTask(ctx, &task); err != nil {
		return fmt.Errorf("persist outbox task: %w", err)
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("in-memory queue full, task left to polling")
	}
	return nil
}

// Start runs the delivery loop until ctx is done.
func (w *NoticeWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("notice worker started")
	defer w.logger.Info().Msg("notice worker stopped")

	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processQueued(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processQueued(ctx, t)
			continue
		}

		tasks, err := w.store.PendingTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("fetch pending tasks")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}
		for i := range tasks {
			w.processTask(ctx, &tasks[i])
		}
	}
}

func (w *NoticeWorker) sleep(ctx context.Context) {
	t := time.NewTimer(w.pollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (w *NoticeWorker) tryLocalQueue() (models.OutboxTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.OutboxTask{}, false
	}
}

func (w *NoticeWorker) tryRedis(ctx context.Context) (models.OutboxTask, bool) {
	if w.redis == nil {
		return models.OutboxTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("redis BRPOP error")
		}
		return models.OutboxTask{}, false
	}
	if len(res) != 2 {
		return models.OutboxTask{}, false
	}
	var task models.OutboxTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("decode redis task")
		return models.OutboxTask{}, false
	}
	return task, true
}

// processQueued re-reads a fast-path task so one that polling already
// delivered is not sent twice.
func (w *NoticeWorker) processQueued(ctx context.Context, queued models.OutboxTask) {
	task, err := w.store.GetTask(ctx, queued.ID)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", queued.ID).Msg("reload queued task")
		return
	}
	if task.Status != outbox.StatusPending && task.Status != outbox.StatusRetry {
		return
	}
	w.processTask(ctx, task)
}

func (w *NoticeWorker) processTask(ctx context.Context, task *models.OutboxTask) {
	log := w.logger.With().Int64("task_id", task.ID).Str("task_type", task.TaskType).Str("reference", task.Reference).Logger()

	if err := w.handle(ctx, task); err != nil {
		var perm permanentError
		if errors.As(err, &perm) {
			log.Error().Err(err).Msg("task rejected")
			w.failTask(ctx, task, err)
			return
		}
		log.Warn().Err(err).Int("attempt", task.RetryCount+1).Msg("task delivery failed")
		w.retryOrFail(ctx, task, err)
		return
	}

	if err := w.store.UpdateStatus(ctx, task.ID, outbox.StatusCompleted, "", nil); err != nil {
		log.Error().Err(err).Msg("mark completed")
	}
	metrics.IncNoticeTask(task.TaskType, outbox.StatusCompleted)
}

// permanentError marks failures that retrying cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func (w *NoticeWorker) handle(ctx context.Context, task *models.OutboxTask) error {
	if !w.Handles(task.TaskType) {
		return permanentError{fmt.Errorf("no sink for task type %q", task.TaskType)}
	}

	switch task.TaskType {
	case TaskBookingConfirmation, TaskCancellationNotice, TaskSheetsUpsert, TaskSheetsStatus:
		var b events.BookingEventPayload
		if err := json.Unmarshal([]byte(task.Payload), &b); err != nil {
			return permanentError{fmt.Errorf("decode payload: %w", err)}
		}
		switch task.TaskType {
		case TaskBookingConfirmation:
			return w.sinks.Mail.SendBookingConfirmation(ctx, b)
		case TaskCancellationNotice:
			if b.CustomerEmail == "" {
				return permanentError{errors.New("booking has no customer email")}
			}
			return w.sinks.Mail.SendCancellationNotice(ctx, b)
		case TaskSheetsUpsert:
			return w.sinks.Sheets.UpsertBooking(ctx, b)
		default:
			if b.BookingID == "" || b.Status == "" {
				return permanentError{errors.New("booking id or status missing")}
			}
			return w.sinks.Sheets.UpdateBookingStatus(ctx, b.BookingID, b.Status)
		}
	case TaskTicketAlert:
		var t events.TicketEventPayload
		if err := json.Unmarshal([]byte(task.Payload), &t); err != nil {
			return permanentError{fmt.Errorf("decode payload: %w", err)}
		}
		return w.sinks.Ops.NotifyTicket(ctx, t)
	}
	return nil
}

func (w *NoticeWorker) retryOrFail(ctx context.Context, task *models.OutboxTask, cause error) {
	attempt := task.RetryCount + 1
	if attempt >= w.retryPolicy.MaxRetries {
		w.failTask(ctx, task, cause)
		return
	}

	next := time.Now().Add(w.retryPolicy.NextDelay(attempt))
	if err := w.store.UpdateStatus(ctx, task.ID, outbox.StatusRetry, cause.Error(), &next); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark retry")
	}
	metrics.IncNoticeTask(task.TaskType, outbox.StatusRetry)
}

func (w *NoticeWorker) failTask(ctx context.Context, task *models.OutboxTask, cause error) {
	if err := w.store.UpdateStatus(ctx, task.ID, outbox.StatusFailed, cause.Error(), nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	metrics.IncNoticeTask(task.TaskType, outbox.StatusFailed)
	if w.redis != nil {
		if err := w.pushRedis(ctx, w.deadLetterKey, *task); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
		}
	}
}

func (w *NoticeWorker) pushRedis(ctx context.Context, key string, task models.OutboxTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}
