package entity

import "time"

const (
	OrderStatusPending         int32 = 1
	OrderStatusAwaitingPayment int32 = 2
	OrderStatusPaid            int32 = 10
	OrderStatusFailed          int32 = 20
	OrderStatusCancelled       int32 = 30
)

type Order struct {
	ID uint64

	Number        string
	CallerService string

	CustomerRef *string
	SessionID   *string

	AmountCents int64
	Currency    string

	Status        int32
	FailureReason *string

	Gateway      int32
	GatewayRef   *string
	IPNToken     string
	ReturnURL    string
	StockReduced bool

	PaidAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TerminalStatus reports whether no further payment transitions are allowed.
func TerminalStatus(status int32) bool {
	switch status {
	case OrderStatusPaid, OrderStatusFailed, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

func PayableStatus(status int32) bool {
	switch status {
	case OrderStatusPending, OrderStatusAwaitingPayment:
		return true
	default:
		return false
	}
}

func OrderStatusLabel(status int32) string {
	switch status {
	case OrderStatusPending:
		return "pending"
	case OrderStatusAwaitingPayment:
		return "awaiting_payment"
	case OrderStatusPaid:
		return "paid"
	case OrderStatusFailed:
		return "failed"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
