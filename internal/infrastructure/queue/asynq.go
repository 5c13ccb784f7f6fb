package queue

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/GwydionBr/life-manager-sub000/internal/application/ports"
	"github.com/GwydionBr/life-manager-sub000/internal/domain"
)

const (
	TypeExpandRecurring = "finance:expand_recurring"
	TypeSyncTags        = "finance:sync_tags"
)

// syncTagsPayload matches the JSON enqueued by TaskEnqueuer.EnqueueSyncTags.
type syncTagsPayload struct {
	Kind      string      `json:"kind"`
	EntityIDs []uuid.UUID `json:"entity_ids"`
	TagIDs    []uuid.UUID `json:"tag_ids"`
	AccountID uuid.UUID   `json:"account_id"`
}

type TaskEnqueuer struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewAsynqEnqueuer(redisOpt asynq.RedisClientOpt, log zerolog.Logger) (*TaskEnqueuer, error) {
	client := asynq.NewClient(redisOpt)
	return &TaskEnqueuer{client: client, log: log}, nil
}

func (q *TaskEnqueuer) Close() error {
	return q.client.Close()
}

func (q *TaskEnqueuer) EnqueueExpandRecurring(ctx context.Context) error {
	task := asynq.NewTask(TypeExpandRecurring, nil)
	_, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		q.log.Warn().Err(err).Msg("enqueue recurring expansion failed")
		return err
	}
	return nil
}

func (q *TaskEnqueuer) EnqueueSyncTags(ctx context.Context, kind domain.TagEntityKind, entityIDs, tagIDs []uuid.UUID, accountID domain.AccountID) error {
	payload, _ := json.Marshal(syncTagsPayload{
		Kind:      string(kind),
		EntityIDs: entityIDs,
		TagIDs:    tagIDs,
		AccountID: accountID.UUID,
	})
	task := asynq.NewTask(TypeSyncTags, payload)
	_, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		q.log.Warn().Err(err).Str("kind", string(kind)).Msg("enqueue tag sync failed")
		return err
	}
	return nil
}

var _ ports.TaskEnqueuer = (*TaskEnqueuer)(nil)
