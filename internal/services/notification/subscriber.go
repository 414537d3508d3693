package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dinner-system/internal/logger"
	"dinner-system/internal/messaging"
	"dinner-system/internal/models"
)

// Subscriber consumes status update notifications and surfaces them to the
// console. It is the read end of the notifications fanout.
type Subscriber struct {
	consumer *messaging.Consumer
	logger   *logger.Logger

	shutdown chan os.Signal
	done     chan bool
}

// NewSubscriber creates a new notification subscriber
func NewSubscriber(consumer *messaging.Consumer, log *logger.Logger) *Subscriber {
	return &Subscriber{
		consumer: consumer,
		logger:   log,
		shutdown: make(chan os.Signal, 1),
		done:     make(chan bool, 1),
	}
}

// Start runs the subscriber until the context is cancelled or a shutdown
// signal arrives
func (s *Subscriber) Start(ctx context.Context) error {
	requestID := logger.GenerateRequestID()

	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)

	s.logger.Info("service_started", "Notification subscriber started", requestID, nil)

	go func() {
		if err := s.consumer.StartConsuming(ctx, s.handleNotification); err != nil {
			s.logger.Error("consumer_failed", "Notification consumer failed", requestID, err, nil)
		}
		s.done <- true
	}()

	select {
	case <-s.shutdown:
		s.logger.Info("graceful_shutdown", "Received shutdown signal", requestID, nil)
		return s.gracefulShutdown(requestID)
	case <-s.done:
		return nil
	}
}

// handleNotification processes one status update message
func (s *Subscriber) handleNotification(ctx context.Context, body []byte) error {
	requestID := logger.GenerateRequestID()

	var update models.StatusUpdateMessage
	if err := json.Unmarshal(body, &update); err != nil {
		s.logger.Error("message_parsing_failed", "Failed to parse notification message", requestID, err, nil)
		return fmt.Errorf("failed to parse notification: %w", err)
	}

	s.logger.Debug("notification_received", "Received status update notification", requestID, map[string]interface{}{
		"order_id":   update.OrderID,
		"new_status": update.NewStatus,
		"changed_by": update.ChangedBy,
	})

	s.displayNotification(&update)
	return nil
}

// displayNotification prints a human-readable line and logs it as structured data
func (s *Subscriber) displayNotification(update *models.StatusUpdateMessage) {
	fmt.Println(s.formatNotification(update))

	s.logger.Info("notification_displayed", "Notification displayed to user", "", map[string]interface{}{
		"order_id":   update.OrderID,
		"old_status": update.OldStatus,
		"new_status": update.NewStatus,
		"changed_by": update.ChangedBy,
		"timestamp":  update.Timestamp.Format("2006-01-02 15:04:05"),
	})
}

// formatNotification creates the console line for one status change
func (s *Subscriber) formatNotification(update *models.StatusUpdateMessage) string {
	timestamp := update.Timestamp.Format("2006-01-02 15:04:05")

	switch models.OrderStatus(update.NewStatus) {
	case models.StatusCooking:
		return fmt.Sprintf("🍳 [%s] Order %d is now being prepared by %s.",
			timestamp, update.OrderID, update.ChangedBy)
	case models.StatusCooked:
		return fmt.Sprintf("✅ [%s] Order %d is cooked and ready for delivery.",
			timestamp, update.OrderID)
	case models.StatusDelivering:
		return fmt.Sprintf("🚗 [%s] Order %d is out for delivery with %s.",
			timestamp, update.OrderID, update.ChangedBy)
	case models.StatusDelivered:
		return fmt.Sprintf("🎉 [%s] Order %d has been delivered. Enjoy your dinner!",
			timestamp, update.OrderID)
	default:
		return fmt.Sprintf("📋 [%s] Order %d status changed from '%s' to '%s' by %s.",
			timestamp, update.OrderID, update.OldStatus, update.NewStatus, update.ChangedBy)
	}
}

// gracefulShutdown closes the consumer
func (s *Subscriber) gracefulShutdown(requestID string) error {
	s.logger.Info("graceful_shutdown", "Starting graceful shutdown", requestID, nil)

	if s.consumer != nil {
		s.consumer.Close()
	}

	s.logger.Info("graceful_shutdown", "Graceful shutdown completed", requestID, nil)
	return nil
}
