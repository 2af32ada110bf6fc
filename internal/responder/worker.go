package responder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"studyhub/internal/domain"
	"studyhub/internal/metrics"
)

const (
	dequeueWait  = 5 * time.Second
	historyDepth = 20
)

// Worker drains the pending queue and turns entries into assistant
// messages. One worker per process is enough; entries are popped, so
// multiple processes would still each handle distinct entries.
type Worker struct {
	queue       domain.QueueRepository
	messages    domain.MessageRepository
	sessions    domain.SessionRepository
	provider    Provider
	genTimeout  time.Duration
	displayName string
}

// NewWorker creates a responder worker.
func NewWorker(
	queue domain.QueueRepository,
	messages domain.MessageRepository,
	sessions domain.SessionRepository,
	provider Provider,
	genTimeout time.Duration,
	displayName string,
) *Worker {
	if displayName == "" {
		displayName = "Assistant"
	}
	return &Worker{
		queue:       queue,
		messages:    messages,
		sessions:    sessions,
		provider:    provider,
		genTimeout:  genTimeout,
		displayName: displayName,
	}
}

// Run consumes the queue until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	log.Info().Str("provider", w.provider.Name()).Msg("responder worker started")
	for {
		entry, err := w.queue.Dequeue(ctx, dequeueWait)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("responder worker stopped")
				return
			}
			log.Warn().Err(err).Msg("responder: dequeue failed")
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}
		if entry == nil {
			continue
		}
		w.handle(ctx, entry)
	}
}

func (w *Worker) handle(ctx context.Context, entry *domain.QueueEntry) {
	if err := w.queue.SetStatus(ctx, entry, domain.QueueProcessing); err != nil {
		log.Warn().Err(err).Str("entry", entry.ID.String()).Msg("responder: could not mark processing")
	}

	// The session may have ended or vanished while the entry waited.
	session, err := w.sessions.Get(ctx, entry.SessionCode)
	if err != nil || !session.IsActive {
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			log.Warn().Err(err).Str("code", entry.SessionCode).Msg("responder: session lookup failed")
		}
		w.fail(ctx, entry)
		return
	}

	req := Request{
		SessionCode: entry.SessionCode,
		DisplayName: entry.DisplayName,
		Content:     entry.Content,
		History:     w.history(ctx, entry.SessionCode),
	}

	genCtx, cancel := context.WithTimeout(ctx, w.genTimeout)
	reply, err := w.provider.Generate(genCtx, req)
	cancel()
	if err != nil {
		log.Warn().Err(err).Str("code", entry.SessionCode).Msg("responder: generation failed")
		w.fail(ctx, entry)
		return
	}

	msg := &domain.Message{
		ID:          uuid.New(),
		SessionCode: entry.SessionCode,
		DisplayName: w.displayName,
		Content:     reply,
		Kind:        domain.KindAssistant,
		CreatedAt:   time.Now().UTC(),
	}
	if err := w.messages.Append(ctx, msg); err != nil {
		log.Error().Err(err).Str("code", entry.SessionCode).Msg("responder: could not append reply")
		w.fail(ctx, entry)
		return
	}

	if err := w.queue.SetStatus(ctx, entry, domain.QueueCompleted); err != nil {
		log.Warn().Err(err).Str("entry", entry.ID.String()).Msg("responder: could not mark completed")
	}
	metrics.ResponderReplies.Inc()
}

func (w *Worker) fail(ctx context.Context, entry *domain.QueueEntry) {
	metrics.ResponderFailures.Inc()
	if err := w.queue.SetStatus(ctx, entry, domain.QueueFailed); err != nil {
		log.Warn().Err(err).Str("entry", entry.ID.String()).Msg("responder: could not mark failed")
	}
}

func (w *Worker) history(ctx context.Context, code string) []Turn {
	msgs, err := w.messages.List(ctx, code)
	if err != nil {
		log.Warn().Err(err).Str("code", code).Msg("responder: could not load history")
		return nil
	}
	if len(msgs) > historyDepth {
		msgs = msgs[len(msgs)-historyDepth:]
	}
	turns := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		turns = append(turns, Turn{Role: string(m.Kind), Content: m.Content})
	}
	return turns
}
