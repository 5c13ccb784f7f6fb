package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/finance"
	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

// Worker runs Asynq task handlers for recurring-cashflow expansion and tag
// synchronization.
type Worker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	rules  ports.RecurringCashFlowRepository
	flows  ports.SingleCashFlowRepository
	syncer *finance.TagSyncer
	log    zerolog.Logger

	// onExpanded is called with the number of instances materialized by each
	// expansion run; used for metrics.
	onExpanded func(int)
}

// NewWorker creates an Asynq server and registers handlers. Call Run() to start.
func NewWorker(redisOpt asynq.RedisClientOpt, rules ports.RecurringCashFlowRepository, flows ports.SingleCashFlowRepository, syncer *finance.TagSyncer, onExpanded func(int), log zerolog.Logger) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		LogLevel:    asynq.InfoLevel,
	})
	mux := asynq.NewServeMux()
	w := &Worker{srv: srv, mux: mux, rules: rules, flows: flows, syncer: syncer, onExpanded: onExpanded, log: log}
	mux.HandleFunc(TypeExpandRecurring, w.handleExpandRecurring)
	mux.HandleFunc(TypeSyncTags, w.handleSyncTags)
	return w
}

func (w *Worker) handleExpandRecurring(ctx context.Context, t *asynq.Task) error {
	created, err := finance.RunExpandRecurring(ctx, w.rules, w.flows, time.Now())
	if err != nil {
		w.log.Error().Err(err).Msg("recurring expansion failed")
		return err
	}
	if w.onExpanded != nil {
		w.onExpanded(created)
	}
	if created > 0 {
		w.log.Info().Int("created", created).Msg("recurring cashflows materialized")
	}
	return nil
}

func (w *Worker) handleSyncTags(ctx context.Context, t *asynq.Task) error {
	var p syncTagsPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		w.log.Error().Err(err).Msg("tag sync task payload invalid")
		return err
	}
	err := w.syncer.Sync(ctx, domain.TagEntityKind(p.Kind), p.EntityIDs, p.TagIDs, domain.NewAccountID(p.AccountID))
	if err != nil {
		w.log.Error().Err(err).Str("kind", p.Kind).Msg("tag sync failed")
		return err
	}
	return nil
}

// Run blocks until shutdown. Use Shutdown for graceful stop.
func (w *Worker) Run() error {
	return w.srv.Run(w.mux)
}

// Shutdown stops the worker.
func (w *Worker) Shutdown() {
	w.srv.Shutdown()
}
