package repository

import (
	"context"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO payment_notifications (
			order_id, gateway, ipn_token, signature, payload_json, status, error, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		notification.OrderID,
		notification.Gateway,
		notification.IPNToken,
		notification.Signature,
		notification.PayloadJSON,
		notification.Status,
		nullableStringValue(notification.Error),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	notification.ID = uint64(id)

	return nil
}
