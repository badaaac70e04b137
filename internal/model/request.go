package model

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	Nombre           string `json:"nombre"`
	DNI              string `json:"dni"`
	FechaVencimiento string `json:"fecha_vencimiento"`
}

type MagicLinkRequest struct {
	Email string `json:"email"`
}

type UpdateProfileRequest struct {
	Nombre string `json:"nombre"`
	DNI    string `json:"dni"`
}

type UpdateExpiryRequest struct {
	FechaVencimiento string `json:"fecha_vencimiento"`
}

type UpdatePaymentStatusRequest struct {
	Estado PaymentState `json:"estado"`
}

type CreateNotificationRequest struct {
	Titulo       string           `json:"titulo"`
	Mensaje      string           `json:"mensaje"`
	Tipo         NotificationType `json:"tipo"`
	TargetUserID string           `json:"target_user_id,omitempty"`
	SendEmail    bool             `json:"send_email,omitempty"`
}

// MemberSummary is the member dashboard payload: the profile, its computed
// due status and the most recent notifications for the user.
type MemberSummary struct {
	Profile       Profile        `json:"profile"`
	Due           DueStatus      `json:"due"`
	Notifications []Notification `json:"notifications"`
}

// MemberOverview is one row of the admin member list.
type MemberOverview struct {
	Profile
	Due DueStatus `json:"due"`
}

// MemberStats aggregates due states across all members for the admin
// dashboard header.
type MemberStats struct {
	Total     int `json:"total"`
	Activos   int `json:"activos"`
	PorVencer int `json:"por_vencer"`
	Vencidos  int `json:"vencidos"`
}
