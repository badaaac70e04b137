package model

import "time"

type NotificationType string

const (
	NotificationGeneral    NotificationType = "general"
	NotificationIndividual NotificationType = "individual"
)

type Notification struct {
	ID           string           `json:"id"`
	Titulo       string           `json:"titulo"`
	Mensaje      string           `json:"mensaje"`
	MensajeHTML  string           `json:"mensaje_html,omitempty"`
	Tipo         NotificationType `json:"tipo"`
	TargetUserID string           `json:"target_user_id,omitempty"`
	ImagenURL    string           `json:"imagen_url,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// NotificationWithTarget adds the target member's name for the admin list.
type NotificationWithTarget struct {
	Notification
	TargetNombre string `json:"target_nombre,omitempty"`
}
