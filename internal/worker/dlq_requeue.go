package worker

// dlq_requeue.go
// Background goroutine that periodically drains the dead letter queues and
// re-injects parked jobs into their original queue, with the attempt counter
// reset. Each entry gets a bounded number of requeues; past that it stays
// parked for inspección manual.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	requeueTickInterval = 5 * time.Minute
	requeueBatchSize    = 10
	maxDLQRequeues      = 3
)

// StartDLQRequeue launches a goroutine that ticks every requeueTickInterval
// and gives DLQ entries another pass through the worker pool. It respects
// the context for graceful shutdown.
func StartDLQRequeue(ctx context.Context, rdb *redis.Client) {
	go func() {
		ticker := time.NewTicker(requeueTickInterval)
		defer ticker.Stop()

		log.Info().Msg("dlq_requeue: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("dlq_requeue: shutting down")
				return
			case <-ticker.C:
				for _, queue := range []string{QueueCierre, QueueEmail} {
					requeueBatch(ctx, rdb, queue)
				}
			}
		}
	}()
}

func requeueBatch(ctx context.Context, rdb *redis.Client, queue string) {
	dlqKey := DLQPrefix + queue

	for i := 0; i < requeueBatchSize; i++ {
		raw, err := rdb.RPop(ctx, dlqKey).Result()
		if err != nil {
			return // cola vacía o Redis caído
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Str("dlq_key", dlqKey).Err(err).
				Msg("dlq_requeue: entrada ilegible, descartada")
			continue
		}

		if entry.Requeues >= maxDLQRequeues {
			// Agotó su cupo: vuelve a la cabeza de la DLQ y el próximo
			// tick inspecciona la entrada siguiente.
			if err := rdb.LPush(ctx, dlqKey, raw).Err(); err != nil {
				log.Error().Str("dlq_key", dlqKey).Err(err).
					Msg("dlq_requeue: no se pudo estacionar la entrada")
			}
			continue
		}

		job := Job{
			Type:     entry.JobType,
			Payload:  entry.Payload,
			Attempts: 0,
			Requeues: entry.Requeues + 1,
		}
		encoded, err := json.Marshal(job)
		if err != nil {
			log.Error().Str("type", entry.JobType).Err(err).
				Msg("dlq_requeue: no se pudo serializar el job")
			continue
		}
		if err := rdb.LPush(ctx, entry.OriginalQueue, encoded).Err(); err != nil {
			log.Error().Str("queue", entry.OriginalQueue).Err(err).
				Msg("dlq_requeue: no se pudo reencolar el job")
			// De vuelta a la DLQ para no perderlo
			_ = rdb.LPush(ctx, dlqKey, raw).Err()
			continue
		}

		log.Info().
			Str("queue", entry.OriginalQueue).
			Str("type", entry.JobType).
			Int("requeues", entry.Requeues+1).
			Msg("dlq_requeue: job reencolado")
	}
}
