package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"gymclub/internal/model"
	"gymclub/internal/service"
	"gymclub/pkg/apierror"
)

type AdminHandler struct {
	membership    *service.MembershipService
	payments      *service.PaymentService
	notifications *service.NotificationService
	maxUpload     int64
}

func NewAdminHandler(membership *service.MembershipService, payments *service.PaymentService, notifications *service.NotificationService, maxUpload int64) *AdminHandler {
	return &AdminHandler{
		membership:    membership,
		payments:      payments,
		notifications: notifications,
		maxUpload:     maxUpload,
	}
}

// ListMembers returns every member with their due status, optionally
// filtered by ?q= against name or national id.
func (h *AdminHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.membership.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, members, &model.Meta{Total: len(members)})
}

func (h *AdminHandler) MemberStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.membership.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, stats, nil)
}

func (h *AdminHandler) UpdateMemberExpiry(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	memberID := chi.URLParam(r, "id")

	var payload model.UpdateExpiryRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	updated, err := h.membership.UpdateExpiry(r.Context(), memberID, payload.FechaVencimiento)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, nil)
}

// ListPayments returns all payments, or only the pending ones when
// ?estado=pending is set.
func (h *AdminHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	var (
		payments []model.PaymentWithProfile
		err      error
	)
	if strings.EqualFold(r.URL.Query().Get("estado"), string(model.PaymentPending)) {
		payments, err = h.payments.ListPending(r.Context())
	} else {
		payments, err = h.payments.ListAll(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, payments, &model.Meta{Total: len(payments)})
}

// ValidatePayment settles a pending transfer. Approval also extends the
// member's expiry date by one month.
func (h *AdminHandler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	paymentID := chi.URLParam(r, "id")

	var payload model.UpdatePaymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	payment, err := h.payments.Validate(r.Context(), paymentID, payload.Estado)
	if err != nil {
		writeError(w, err)
		return
	}

	response := map[string]any{"payment": payment}
	if payment.Estado == model.PaymentApproved {
		profile, err := h.membership.ExtendOnPayment(r.Context(), payment.UserID)
		if err != nil {
			writeError(w, err)
			return
		}
		response["profile"] = profile
	}

	writeSuccess(w, http.StatusOK, response, nil)
}

func (h *AdminHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.ListAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, notifications, &model.Meta{Total: len(notifications)})
}

// CreateNotification accepts either a JSON body or a multipart form. The
// multipart variant carries the request under "payload" plus an optional
// promo image under "imagen".
func (h *AdminHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.CreateNotificationRequest

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+64*1024)
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "promo image exceeds the upload limit", "", http.StatusRequestEntityTooLarge))
			return
		}

		if err := json.Unmarshal([]byte(r.FormValue("payload")), &payload); err != nil {
			writeError(w, apierror.New("BAD_REQUEST", "invalid payload field", "", http.StatusBadRequest))
			return
		}

		if file, _, err := r.FormFile("imagen"); err == nil {
			defer file.Close()
			created, createErr := h.notifications.Create(r.Context(), payload, file)
			if createErr != nil {
				writeError(w, createErr)
				return
			}
			writeSuccess(w, http.StatusCreated, created, nil)
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	created, err := h.notifications.Create(r.Context(), payload, nil)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, created, nil)
}

func (h *AdminHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]string{"status": "deleted"}, nil)
}
