package notification

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"carpark-backend/internal/model"
)

// EventKind names the committed state transition being announced.
type EventKind string

const (
	EventAdmitted   EventKind = "admitted"
	EventCheckedOut EventKind = "checked_out"
)

// Event is one committed transition queued for push delivery.
type Event struct {
	Kind     EventKind
	RecordID int64
}

// NotificationSender defines the interface for sending a web push
// notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the
// webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers push notifications for committed admissions and
// checkouts. Delivery is best-effort: jobs are dropped when the queue is
// full, failures are logged, and nothing here can affect the core's
// committed state.
type WorkerPool struct {
	size    int
	jobs    chan Event
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*8),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification worker %d started", id)
	for {
		select {
		case event := <-wp.jobs:
			wp.process(ctx, event)
		case <-ctx.Done():
			log.Printf("notification worker %d shutting down", id)
			return
		}
	}
}

// RecordAdmitted implements booking.Notifier.
func (wp *WorkerPool) RecordAdmitted(recordID int64) {
	wp.dispatch(Event{Kind: EventAdmitted, RecordID: recordID})
}

// RecordCheckedOut implements booking.Notifier.
func (wp *WorkerPool) RecordCheckedOut(recordID int64) {
	wp.dispatch(Event{Kind: EventCheckedOut, RecordID: recordID})
}

// dispatch enqueues without blocking: an admission must never wait on push
// delivery.
func (wp *WorkerPool) dispatch(event Event) {
	select {
	case wp.jobs <- event:
	default:
		log.Printf("notification queue full, dropping %s event for record %d", event.Kind, event.RecordID)
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Event {
	return wp.jobs
}

// process loads the record and fans the event out to every subscription
// bound to its sub car park.
func (wp *WorkerPool) process(ctx context.Context, event Event) {
	var record model.OccupancyRecord
	err := wp.db.WithContext(ctx).
		Preload("SubCarPark").
		First(&record, event.RecordID).Error
	if err != nil {
		log.Printf("error fetching record %d for notification: %v", event.RecordID, err)
		return
	}

	var subscriptions []model.PushSubscription
	err = wp.db.WithContext(ctx).
		Joins("JOIN subscription_car_park_mapping scm ON scm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("scm.sub_car_park_id = ?", record.SubCarParkID).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("error fetching subscriptions for sub car park %d: %v", record.SubCarParkID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	var message string
	switch event.Kind {
	case EventAdmitted:
		message = fmt.Sprintf("Vehicle %s admitted to %s", record.Registration, record.SubCarPark.Name)
	case EventCheckedOut:
		message = fmt.Sprintf("Vehicle %s checked out of %s", record.Registration, record.SubCarPark.Name)
	default:
		return
	}

	log.Printf("sending %d notifications for record %d", len(subscriptions), record.ID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions are pruned on delivery failure.
	if resp.StatusCode == http.StatusGone {
		log.Printf("subscription %s is expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
