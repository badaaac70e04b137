package handler

import (
	"encoding/json"
	"net/http"

	"gymclub/internal/middleware"
	"gymclub/internal/model"
	"gymclub/internal/service"
	"gymclub/pkg/apierror"
)

type MemberHandler struct {
	membership    *service.MembershipService
	payments      *service.PaymentService
	notifications *service.NotificationService
	maxUpload     int64
}

func NewMemberHandler(membership *service.MembershipService, payments *service.PaymentService, notifications *service.NotificationService, maxUpload int64) *MemberHandler {
	return &MemberHandler{
		membership:    membership,
		payments:      payments,
		notifications: notifications,
		maxUpload:     maxUpload,
	}
}

// currentUserID reads the authenticated member id injected by the route
// guard. The guard only lets requests with a live session through, so a
// missing store is a wiring bug.
func currentUserID(r *http.Request) (string, error) {
	store, ok := middleware.StoreFromContext(r.Context())
	if !ok {
		return "", model.ErrUnauthorized
	}

	state := store.Snapshot()
	if state.Identity == nil {
		return "", model.ErrUnauthorized
	}
	return state.Identity.ID, nil
}

func (h *MemberHandler) Summary(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.membership.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, summary, nil)
}

func (h *MemberHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	updated, err := h.membership.UpdateProfile(r.Context(), userID, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, updated, nil)
}

func (h *MemberHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	payments, err := h.payments.History(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, payments, &model.Meta{Total: len(payments)})
}

// PaySandbox runs the simulated gateway flow: the payment is approved on the
// spot and the membership extends immediately.
func (h *MemberHandler) PaySandbox(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	payment, err := h.payments.PaySandbox(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.membership.ExtendOnPayment(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"payment": payment,
		"profile": profile,
	}, nil)
}

// PayTransfer accepts a multipart form with the receipt under "comprobante".
// The payment stays pending until an admin validates it.
func (h *MemberHandler) PayTransfer(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+4096)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		writeError(w, apierror.New("PAYLOAD_TOO_LARGE", "receipt exceeds the upload limit", "", http.StatusRequestEntityTooLarge))
		return
	}

	file, _, err := r.FormFile("comprobante")
	if err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "comprobante file is required", "", http.StatusBadRequest))
		return
	}
	defer file.Close()

	payment, err := h.payments.PayTransfer(r.Context(), userID, file)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, payment, nil)
}

func (h *MemberHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	notifications, err := h.notifications.ListForUser(r.Context(), userID, 0)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, notifications, &model.Meta{Total: len(notifications)})
}
