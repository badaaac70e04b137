package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"gymclub/internal/event"
	"gymclub/internal/model"
	"gymclub/internal/storage"
	"gymclub/pkg/apierror"
)

// receiptExtensions maps the accepted receipt content types to the stored
// file extension.
var receiptExtensions = map[string]string{
	"image/jpeg":      "jpg",
	"image/png":       "png",
	"application/pdf": "pdf",
}

type PaymentService struct {
	payments  repositoryPayments
	files     storage.FileStore
	bus       event.Bus
	monto     int64
	maxUpload int64
}

// repositoryPayments is the slice of the payment repository this service
// depends on.
type repositoryPayments interface {
	Create(ctx context.Context, p model.Payment) (model.Payment, error)
	ListByUser(ctx context.Context, userID string) ([]model.Payment, error)
	ListAll(ctx context.Context) ([]model.PaymentWithProfile, error)
	ListPending(ctx context.Context) ([]model.PaymentWithProfile, error)
	UpdateStatus(ctx context.Context, id string, estado model.PaymentState) (model.Payment, error)
}

func NewPaymentService(payments repositoryPayments, files storage.FileStore, bus event.Bus, monto int64, maxUpload int64) *PaymentService {
	if monto <= 0 {
		monto = 15000
	}
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}

	return &PaymentService{
		payments:  payments,
		files:     files,
		bus:       bus,
		monto:     monto,
		maxUpload: maxUpload,
	}
}

// PaySandbox records a simulated gateway payment. The sandbox gateway always
// approves, so the payment is stored already settled.
func (s *PaymentService) PaySandbox(ctx context.Context, userID string) (model.Payment, error) {
	created, err := s.payments.Create(ctx, model.Payment{
		UserID:     userID,
		Monto:      s.monto,
		MetodoPago: model.MethodSandbox,
		Estado:     model.PaymentApproved,
	})
	if err != nil {
		return model.Payment{}, err
	}

	s.bus.Publish(event.New(event.TypePaymentCreated, created, created.UserID))
	return created, nil
}

// PayTransfer records a bank transfer payment pending admin validation. The
// uploaded receipt must be a JPEG, PNG or PDF within the size limit.
func (s *PaymentService) PayTransfer(ctx context.Context, userID string, receipt io.Reader) (model.Payment, error) {
	body, err := io.ReadAll(io.LimitReader(receipt, s.maxUpload+1))
	if err != nil {
		return model.Payment{}, fmt.Errorf("read receipt: %w", err)
	}
	if int64(len(body)) > s.maxUpload {
		return model.Payment{}, apierror.New("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("receipt exceeds the %d byte limit", s.maxUpload), "", http.StatusRequestEntityTooLarge)
	}
	if len(body) == 0 {
		return model.Payment{}, apierror.New("BAD_REQUEST", "receipt file is empty", "", http.StatusBadRequest)
	}

	contentType := http.DetectContentType(body)
	ext, ok := receiptExtensions[contentType]
	if !ok {
		return model.Payment{}, apierror.New("UNSUPPORTED_TYPE",
			"receipt must be a JPEG, PNG or PDF file", contentType, http.StatusUnsupportedMediaType)
	}

	key := fmt.Sprintf("comprobantes/%s.%s", uuid.NewString(), ext)
	url, err := s.files.Upload(ctx, key, contentType, bytes.NewReader(body))
	if err != nil {
		return model.Payment{}, fmt.Errorf("store receipt: %w", err)
	}

	created, err := s.payments.Create(ctx, model.Payment{
		UserID:         userID,
		Monto:          s.monto,
		MetodoPago:     model.MethodTransfer,
		ComprobanteURL: url,
		Estado:         model.PaymentPending,
	})
	if err != nil {
		_ = s.files.Delete(ctx, key)
		return model.Payment{}, err
	}

	s.bus.Publish(event.New(event.TypePaymentCreated, created, created.UserID))
	return created, nil
}

func (s *PaymentService) History(ctx context.Context, userID string) ([]model.Payment, error) {
	return s.payments.ListByUser(ctx, userID)
}

func (s *PaymentService) ListAll(ctx context.Context) ([]model.PaymentWithProfile, error) {
	return s.payments.ListAll(ctx)
}

func (s *PaymentService) ListPending(ctx context.Context) ([]model.PaymentWithProfile, error) {
	return s.payments.ListPending(ctx)
}

// Validate settles a pending transfer payment as approved or rejected. The
// approved branch also pushes the membership expiry forward; that side effect
// lives in MembershipService and is orchestrated by the handler.
func (s *PaymentService) Validate(ctx context.Context, id string, estado model.PaymentState) (model.Payment, error) {
	if estado != model.PaymentApproved && estado != model.PaymentRejected {
		return model.Payment{}, apierror.New("BAD_REQUEST",
			"estado must be approved or rejected", string(estado), http.StatusBadRequest)
	}

	updated, err := s.payments.UpdateStatus(ctx, strings.TrimSpace(id), estado)
	if err != nil {
		return model.Payment{}, err
	}

	s.bus.Publish(event.New(event.TypePaymentUpdated, updated, updated.UserID))
	return updated, nil
}

// Monto returns the configured monthly fee.
func (s *PaymentService) Monto() int64 {
	return s.monto
}
