package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/amtech-gn/ms-go-orangemoney/app/entity"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

const orderColumns = `
	id, number, caller_service, customer_ref, session_id,
	amount_cents, currency, status, failure_reason,
	gateway, gateway_ref, ipn_token, return_url, stock_reduced,
	paid_at, created_at, updated_at
`

type OrderRepository struct {
	db DBTX
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (
			number, caller_service, customer_ref, session_id,
			amount_cents, currency, status, failure_reason,
			gateway, gateway_ref, ipn_token, return_url, stock_reduced,
			paid_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Number,
		order.CallerService,
		nullableStringValue(order.CustomerRef),
		nullableStringValue(order.SessionID),
		order.AmountCents,
		order.Currency,
		order.Status,
		nullableStringValue(order.FailureReason),
		order.Gateway,
		nullableStringValue(order.GatewayRef),
		order.IPNToken,
		order.ReturnURL,
		order.StockReduced,
		nullableTimeValue(order.PaidAt),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id uint64) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *OrderRepository) FindByCallerNumber(ctx context.Context, callerService, number string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE caller_service = ? AND number = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, callerService, number))
}

func (r *OrderRepository) FindByIPNToken(ctx context.Context, token string) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE ipn_token = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

// MarkPaid transitions the order to paid only while it is still payable.
// The conditional WHERE clause is the race guard between the synchronous
// checkout path and the IPN path: whichever arrives first wins, the loser
// sees false and must not re-apply side effects.
func (r *OrderRepository) MarkPaid(ctx context.Context, id uint64, gatewayRef *string, now time.Time) (bool, error) {
	query := `
		UPDATE orders SET
			status = ?,
			failure_reason = NULL,
			gateway_ref = COALESCE(?, gateway_ref),
			paid_at = ?,
			updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.OrderStatusPaid,
		nullableStringValue(gatewayRef),
		now,
		now,
		id,
		entity.OrderStatusPending,
		entity.OrderStatusAwaitingPayment,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkFailed transitions the order to failed only while it is still payable.
func (r *OrderRepository) MarkFailed(ctx context.Context, id uint64, reason string, now time.Time) (bool, error) {
	query := `
		UPDATE orders SET
			status = ?,
			failure_reason = ?,
			updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.OrderStatusFailed,
		reason,
		now,
		id,
		entity.OrderStatusPending,
		entity.OrderStatusAwaitingPayment,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkCancelled transitions the order to cancelled only while it is still
// payable, under the same conditional guard as the paid/failed transitions.
func (r *OrderRepository) MarkCancelled(ctx context.Context, id uint64, reason string, now time.Time) (bool, error) {
	query := `
		UPDATE orders SET
			status = ?,
			failure_reason = ?,
			updated_at = ?
		WHERE id = ? AND status IN (?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		entity.OrderStatusCancelled,
		reason,
		now,
		id,
		entity.OrderStatusPending,
		entity.OrderStatusAwaitingPayment,
	)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ReduceStock flips the stock_reduced flag at most once per order.
func (r *OrderRepository) ReduceStock(ctx context.Context, id uint64, now time.Time) (bool, error) {
	query := `UPDATE orders SET stock_reduced = 1, updated_at = ? WHERE id = ? AND stock_reduced = 0`

	result, err := r.db.ExecContext(ctx, query, now, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *OrderRepository) ListForReconcile(ctx context.Context, before time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN (?, ?) AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`
	return r.scanMany(ctx, query, entity.OrderStatusPending, entity.OrderStatusAwaitingPayment, before, limit)
}

func (r *OrderRepository) ListExpiredAwaiting(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status IN (?, ?) AND created_at <= ?
		ORDER BY created_at ASC
		LIMIT ?
	`
	return r.scanMany(ctx, query, entity.OrderStatusPending, entity.OrderStatusAwaitingPayment, cutoff, limit)
}

func (r *OrderRepository) scanMany(ctx context.Context, query string, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Order, 0)
	for rows.Next() {
		item, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *OrderRepository) scanOne(row *sql.Row) (*entity.Order, error) {
	item, err := scanOrder(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanOrder(scan func(dest ...interface{}) error) (*entity.Order, error) {
	var (
		order         entity.Order
		customerRef   sql.NullString
		sessionID     sql.NullString
		failureReason sql.NullString
		gatewayRef    sql.NullString
		paidAt        sql.NullTime
	)

	err := scan(
		&order.ID,
		&order.Number,
		&order.CallerService,
		&customerRef,
		&sessionID,
		&order.AmountCents,
		&order.Currency,
		&order.Status,
		&failureReason,
		&order.Gateway,
		&gatewayRef,
		&order.IPNToken,
		&order.ReturnURL,
		&order.StockReduced,
		&paidAt,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.CustomerRef = stringPtrFromNull(customerRef)
	order.SessionID = stringPtrFromNull(sessionID)
	order.FailureReason = stringPtrFromNull(failureReason)
	order.GatewayRef = stringPtrFromNull(gatewayRef)
	order.PaidAt = timePtrFromNull(paidAt)

	return &order, nil
}
