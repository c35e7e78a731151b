package entity

import "time"

const (
	NotificationProcessed int32 = 10
	NotificationIgnored   int32 = 15
	NotificationRejected  int32 = 20
)

type Notification struct {
	ID uint64

	OrderID *uint64

	Gateway     string
	IPNToken    string
	Signature   string
	PayloadJSON string
	Status      int32
	Error       *string

	CreatedAt time.Time
	UpdatedAt time.Time
}
