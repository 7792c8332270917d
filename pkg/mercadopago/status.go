package mercadopago

import "github.com/lavify/lavify-backend/pkg/enums"

// Gateway payment status values that matter to reconciliation.
const (
	StatusApproved   = "approved"
	StatusPending    = "pending"
	StatusInProcess  = "in_process"
	StatusRejected   = "rejected"
	StatusCancelled  = "cancelled"
	StatusRefunded   = "refunded"
	StatusChargeback = "charged_back"
)

// MapStatus translates a gateway payment status into the internal
// payment state. Unknown statuses map to PENDING so reconciliation
// waits for a later notification instead of guessing.
func MapStatus(gatewayStatus string) enums.PaymentStatus {
	switch gatewayStatus {
	case StatusApproved:
		return enums.PaymentStatusPaid
	case StatusPending, StatusInProcess:
		return enums.PaymentStatusProcessing
	case StatusRejected, StatusCancelled, StatusRefunded, StatusChargeback:
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}
