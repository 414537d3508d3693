package payment

import (
	"context"

	"dinner-system/internal/logger"
)

// Capturer is the post-commit payment hook. The current processor integration
// is a stub: capture is fire-and-forget and its outcome is not consulted.
type Capturer struct {
	logger *logger.Logger
}

// NewCapturer creates the payment capture hook
func NewCapturer(log *logger.Logger) *Capturer {
	return &Capturer{logger: log}
}

// Capture records a capture attempt for an already committed order.
// TODO: wire a real processor; decide whether a declined capture reverses
// the committed order or settles later.
func (c *Capturer) Capture(ctx context.Context, orderID int64, cardNumber string, amount int) {
	c.logger.Info("payment_captured", "Payment capture requested", "", map[string]interface{}{
		"order_id": orderID,
		"amount":   amount,
	})
}
