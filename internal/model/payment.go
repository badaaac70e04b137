package model

import "time"

type PaymentState string

const (
	PaymentPending  PaymentState = "pending"
	PaymentApproved PaymentState = "approved"
	PaymentRejected PaymentState = "rejected"
)

func (s PaymentState) Valid() bool {
	return s == PaymentPending || s == PaymentApproved || s == PaymentRejected
}

const (
	MethodSandbox  = "mercadopago_sandbox"
	MethodTransfer = "transferencia"
)

type Payment struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	Monto          int64        `json:"monto"`
	MetodoPago     string       `json:"metodo_pago"`
	ComprobanteURL string       `json:"comprobante_url,omitempty"`
	Estado         PaymentState `json:"estado"`
	CreatedAt      time.Time    `json:"created_at"`
}

// PaymentWithProfile carries the joined member fields the admin views need.
type PaymentWithProfile struct {
	Payment
	Nombre string `json:"nombre"`
	DNI    string `json:"dni"`
}
