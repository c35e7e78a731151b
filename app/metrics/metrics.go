package metrics

import "github.com/VictoriaMetrics/metrics"

var (
	CheckoutInitiated = metrics.NewCounter(`orange_money_checkout_initiated_total`)
	CheckoutApproved  = metrics.NewCounter(`orange_money_checkout_approved_total`)
	CheckoutDeclined  = metrics.NewCounter(`orange_money_checkout_declined_total`)
	CheckoutErrors    = metrics.NewCounter(`orange_money_checkout_transport_errors_total`)

	IPNReceived     = metrics.NewCounter(`orange_money_ipn_received_total`)
	IPNProcessed    = metrics.NewCounter(`orange_money_ipn_processed_total`)
	IPNIgnored      = metrics.NewCounter(`orange_money_ipn_ignored_total`)
	IPNRejected     = metrics.NewCounter(`orange_money_ipn_rejected_total`)
	IPNUnknownOrder = metrics.NewCounter(`orange_money_ipn_unknown_order_total`)

	OrdersReconciled = metrics.NewCounter(`orange_money_orders_reconciled_total`)
	OrdersExpired    = metrics.NewCounter(`orange_money_orders_expired_total`)
)
