package gateway

import "context"

const (
	GatewayOrangeMoney int32 = 1
)

// Settings mirrors the merchant-facing configuration surface of a gateway:
// display fields plus credentials and the sandbox switch.
type Settings struct {
	Enabled     bool
	Title       string
	Description string
	APIKey      string
	APISecret   string
	Sandbox     bool
}

type InitiateInput struct {
	OrderID     uint64
	OrderNumber string
	AmountCents int64
	Currency    string
	CallbackURL string
}

type InitiateOutput struct {
	// Approved is true when the provider confirmed the payment in the
	// synchronous exchange. When false, Message carries the provider's
	// rejection reason.
	Approved   bool
	Message    string
	GatewayRef *string
}

type Notification struct {
	OrderID  uint64
	Approved bool
	Message  string
}

type Gateway interface {
	Code() int32
	GatewaySettings() Settings
	Initiate(ctx context.Context, input *InitiateInput) (*InitiateOutput, error)
	VerifyAndParseNotification(ctx context.Context, payload []byte, signature string) (*Notification, error)
	GetPaymentStatus(ctx context.Context, orderNumber string) (int32, error)
}

// TransportError marks failures to reach or understand the provider:
// network errors, timeouts, non-2xx responses, unparseable bodies.
// Business-level rejections are not transport errors.
type TransportError struct {
	Cause string
}

func (e *TransportError) Error() string {
	return "gateway transport error: " + e.Cause
}
