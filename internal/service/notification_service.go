package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"volunteerhub/internal/apperr"
	"volunteerhub/internal/model"
	"volunteerhub/internal/pkg"
	"volunteerhub/internal/repository/mysql"
)

// PushDeliverer sends one web-push message to one subscription.
type PushDeliverer interface {
	Configured() bool
	PublicKey() string
	Send(endpoint, p256dh, auth string, payload []byte) error
}

// EventPublisher mirrors dispatched notifications onto a broker for
// downstream consumers. Best effort: a broker outage never blocks push.
type EventPublisher interface {
	Send(ctx context.Context, key string, value []byte) error
}

var (
	_ PushDeliverer  = (*pkg.PushSender)(nil)
	_ EventPublisher = (*pkg.KafkaProducer)(nil)
)

type NotificationService struct {
	subs   *mysql.SubscriptionRepository
	outbox *mysql.OutboxRepository
	push   PushDeliverer
	bus    EventPublisher
	log    *zap.Logger
}

func NewNotificationService(db *gorm.DB, push PushDeliverer, bus EventPublisher, log *zap.Logger) *NotificationService {
	return &NotificationService{
		subs:   &mysql.SubscriptionRepository{DB: db},
		outbox: &mysql.OutboxRepository{DB: db},
		push:   push,
		bus:    bus,
		log:    log,
	}
}

// Subscribe stores (or refreshes) a browser's push subscription.
func (s *NotificationService) Subscribe(userID uint64, endpoint, p256dh, auth string) error {
	var details []string
	if u, err := url.Parse(endpoint); err != nil || u.Scheme != "https" {
		details = append(details, "endpoint must be an https url")
	}
	if len(endpoint) > 500 {
		details = append(details, "endpoint must be at most 500 characters")
	}
	if p256dh == "" || auth == "" {
		details = append(details, "p256dh and auth keys are required")
	}
	if len(details) > 0 {
		return apperr.Validation("invalid subscription", details...)
	}

	sub := &model.PushSubscription{
		UserID:    userID,
		Endpoint:  endpoint,
		P256dhKey: p256dh,
		AuthKey:   auth,
	}
	if err := s.subs.Upsert(sub); err != nil {
		return apperr.Dependency("failed to store subscription", err)
	}
	return nil
}

// VAPIDPublicKey is what a browser needs before it can create a push
// subscription at all.
func (s *NotificationService) VAPIDPublicKey() (string, error) {
	if s.push == nil || !s.push.Configured() {
		return "", apperr.NotFound("web push is not configured")
	}
	return s.push.PublicKey(), nil
}

func (s *NotificationService) Unsubscribe(userID uint64, endpoint string) error {
	if err := s.subs.Delete(userID, endpoint); err != nil {
		return apperr.Dependency("failed to remove subscription", err)
	}
	return nil
}

func (s *NotificationService) HasSubscriptions(userID uint64) (bool, error) {
	n, err := s.subs.CountByUser(userID)
	if err != nil {
		return false, apperr.Dependency("failed to count subscriptions", err)
	}
	return n > 0, nil
}

// History lists the notifications already dispatched to the user, newest
// first.
func (s *NotificationService) History(ctx context.Context, userID uint64, page, size int) ([]model.NotificationOutbox, int64, error) {
	offset, limit := pageBounds(page, size)
	list, total, err := s.outbox.ListSentByUser(ctx, userID, offset, limit)
	if err != nil {
		return nil, 0, apperr.Dependency("failed to list notifications", err)
	}
	return list, total, nil
}

// dispatch pushes one outbox row to every live subscription of its target.
// Endpoints the push service reports gone are dropped on the spot. A row
// with zero subscriptions is still a successful dispatch.
func (s *NotificationService) dispatch(ctx context.Context, row *model.NotificationOutbox) error {
	subs, err := s.subs.ListByUser(row.TargetUserID)
	if err != nil {
		return err
	}

	type pushMessage struct {
		Title   string          `json:"title"`
		Body    string          `json:"body"`
		Payload json.RawMessage `json:"payload"`
	}
	body, err := json.Marshal(pushMessage{Title: row.Title, Body: row.Body, Payload: json.RawMessage(row.Payload)})
	if err != nil {
		return err
	}

	var delivered, gone int
	if s.push != nil && s.push.Configured() {
		for i := range subs {
			err := s.push.Send(subs[i].Endpoint, subs[i].P256dhKey, subs[i].AuthKey, body)
			switch {
			case err == nil:
				delivered++
			case errors.Is(err, pkg.ErrEndpointGone):
				gone++
				if derr := s.subs.DeleteByID(subs[i].ID); derr != nil {
					s.log.Warn("failed to drop dead subscription",
						zap.Uint64("subscription_id", subs[i].ID), zap.Error(derr))
				}
			default:
				s.log.Warn("push delivery failed",
					zap.Uint64("outbox_id", row.ID),
					zap.Uint64("subscription_id", subs[i].ID),
					zap.Error(err))
			}
		}
	}

	if s.bus != nil {
		if err := s.bus.Send(ctx, pkg.NotificationKey(row.TargetUserID), body); err != nil {
			s.log.Warn("broker publish failed", zap.Uint64("outbox_id", row.ID), zap.Error(err))
		}
	}

	s.log.Debug("notification dispatched",
		zap.Uint64("outbox_id", row.ID),
		zap.String("kind", row.Kind),
		zap.Int("subscriptions", len(subs)),
		zap.Int("delivered", delivered),
		zap.Int("dropped", gone))
	return nil
}

// DrainOnce processes one batch of pending outbox rows and reports how many
// were handled. Delivery is at-least-once: a crash between send and mark
// re-dispatches on the next drain.
func (s *NotificationService) DrainOnce(ctx context.Context, batchSize int) (int, error) {
	rows, err := s.outbox.ListPending(ctx, batchSize)
	if err != nil {
		return 0, err
	}
	for i := range rows {
		if err := s.dispatch(ctx, &rows[i]); err != nil {
			s.log.Error("outbox dispatch failed", zap.Uint64("outbox_id", rows[i].ID), zap.Error(err))
			if merr := s.outbox.MarkFailed(ctx, rows[i].ID); merr != nil {
				s.log.Error("failed to mark outbox row failed", zap.Uint64("outbox_id", rows[i].ID), zap.Error(merr))
			}
			continue
		}
		if err := s.outbox.MarkSent(ctx, rows[i].ID); err != nil {
			s.log.Error("failed to mark outbox row sent", zap.Uint64("outbox_id", rows[i].ID), zap.Error(err))
		}
	}
	return len(rows), nil
}

const (
	relayInterval  = 5 * time.Second
	relayBatchSize = 100
)

// RunRelayer drains the outbox on a ticker until ctx is canceled. Run it in
// exactly one goroutine per process.
func (s *NotificationService) RunRelayer(ctx context.Context) {
	ticker := time.NewTicker(relayInterval)
	defer ticker.Stop()

	s.log.Info("outbox relayer started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info("outbox relayer stopped")
			return
		case <-ticker.C:
			if _, err := s.DrainOnce(ctx, relayBatchSize); err != nil {
				s.log.Error("outbox drain failed", zap.Error(err))
			}
		}
	}
}
