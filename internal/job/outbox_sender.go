package job

import (
	"context"
	"log"
	"time"

	"nexusledger/internal/config"
	"nexusledger/internal/infrastructure/mq"
	"nexusledger/internal/model"
	"nexusledger/internal/repository"

	"gorm.io/gorm"
)

// OutboxSender publishes committed financial events to Kafka. Events
// land in the outbox table inside the same transaction as the ledger
// mutation they describe, so a crash between commit and publish only
// delays delivery, never loses or fabricates an event.
type OutboxSender struct {
	outboxRepo *repository.OutboxRepository
	cfg        *config.Config
}

func NewOutboxSender(db *gorm.DB, cfg *config.Config) *OutboxSender {
	return &OutboxSender{
		outboxRepo: repository.NewOutboxRepository(db),
		cfg:        cfg,
	}
}

func (j *OutboxSender) Start(ctx context.Context) {
	interval := time.Duration(j.cfg.Business.OutboxPollSeconds) * time.Second
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("outbox sender started")

	for {
		select {
		case <-ctx.Done():
			log.Println("outbox sender stopped")
			return
		case <-ticker.C:
			j.processPending(ctx)
		}
	}
}

func (j *OutboxSender) processPending(ctx context.Context) {
	messages, err := j.outboxRepo.GetPendingMessages(ctx, 100)
	if err != nil {
		log.Printf("outbox sender: failed to fetch pending messages: %v", err)
		return
	}

	for _, msg := range messages {
		if err := mq.SendMessage(msg.Topic, msg.MessageKey, msg.Payload); err != nil {
			log.Printf("outbox sender: failed to publish message id=%d: %v", msg.ID, err)

			if msg.RetryCount+1 >= j.cfg.Business.MaxRetryCount {
				if err := j.outboxRepo.MarkAsFailed(ctx, msg.ID); err != nil {
					log.Printf("outbox sender: failed to mark message id=%d failed: %v", msg.ID, err)
				}
			} else {
				if err := j.outboxRepo.IncrementRetryCount(ctx, msg.ID); err != nil {
					log.Printf("outbox sender: failed to bump retry for message id=%d: %v", msg.ID, err)
				}
			}
			continue
		}

		if err := j.outboxRepo.UpdateStatus(ctx, msg.ID, model.OutboxStatusSent); err != nil {
			log.Printf("outbox sender: failed to mark message id=%d sent: %v", msg.ID, err)
		}
	}
}
