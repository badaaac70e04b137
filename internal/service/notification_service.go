package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"gymclub/internal/event"
	"gymclub/internal/model"
	"gymclub/internal/storage"
	"gymclub/internal/util"
	"gymclub/pkg/apierror"
)

// mdRenderer is a goldmark instance configured for safe HTML output. Raw
// HTML in the message body is escaped, so admin typos cannot inject markup
// into member dashboards or emails.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// promoImageMaxDim bounds the longest side of an uploaded promo image.
const promoImageMaxDim = 1280

type NotificationService struct {
	notifications repositoryNotifications
	profiles      notificationProfiles
	files         storage.FileStore
	mailer        Mailer
	bus           event.Bus
}

type repositoryNotifications interface {
	ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error)
	ListAll(ctx context.Context) ([]model.NotificationWithTarget, error)
	Create(ctx context.Context, n model.Notification) (model.Notification, error)
	Delete(ctx context.Context, id string) error
}

type notificationProfiles interface {
	GetByID(ctx context.Context, id string) (model.Profile, error)
	ListEmails(ctx context.Context) ([]string, error)
}

func NewNotificationService(notifications repositoryNotifications, profiles notificationProfiles, files storage.FileStore, mailer Mailer, bus event.Bus) *NotificationService {
	if mailer == nil {
		mailer = NoopMailer{}
	}

	return &NotificationService{
		notifications: notifications,
		profiles:      profiles,
		files:         files,
		mailer:        mailer,
		bus:           bus,
	}
}

// Create publishes a communication to members. Individual notifications must
// name an existing member; the optional promo image is downscaled and stored
// before the row is written.
func (s *NotificationService) Create(ctx context.Context, req model.CreateNotificationRequest, promoImage io.Reader) (model.Notification, error) {
	titulo := strings.TrimSpace(req.Titulo)
	mensaje := strings.TrimSpace(req.Mensaje)
	if titulo == "" || mensaje == "" {
		return model.Notification{}, apierror.New("BAD_REQUEST", "titulo and mensaje are required", "", http.StatusBadRequest)
	}

	switch req.Tipo {
	case model.NotificationGeneral:
		if req.TargetUserID != "" {
			return model.Notification{}, apierror.New("BAD_REQUEST",
				"general notifications cannot name a target member", "", http.StatusBadRequest)
		}
	case model.NotificationIndividual:
		if req.TargetUserID == "" {
			return model.Notification{}, apierror.New("BAD_REQUEST",
				"individual notifications require a target member", "", http.StatusBadRequest)
		}
		if _, err := s.profiles.GetByID(ctx, req.TargetUserID); err != nil {
			return model.Notification{}, err
		}
	default:
		return model.Notification{}, apierror.New("BAD_REQUEST",
			"tipo must be general or individual", string(req.Tipo), http.StatusBadRequest)
	}

	var html bytes.Buffer
	if err := mdRenderer.Convert([]byte(mensaje), &html); err != nil {
		return model.Notification{}, fmt.Errorf("render mensaje: %w", err)
	}

	imageURL := ""
	imageKey := ""
	if promoImage != nil {
		scaled, err := util.DownscaleImage(promoImage, promoImageMaxDim)
		if err != nil {
			return model.Notification{}, apierror.New("UNSUPPORTED_TYPE",
				"promo image could not be processed", err.Error(), http.StatusUnsupportedMediaType)
		}

		imageKey = fmt.Sprintf("promos/%s.jpg", uuid.NewString())
		imageURL, err = s.files.Upload(ctx, imageKey, "image/jpeg", scaled)
		if err != nil {
			return model.Notification{}, fmt.Errorf("store promo image: %w", err)
		}
	}

	created, err := s.notifications.Create(ctx, model.Notification{
		Titulo:       titulo,
		Mensaje:      mensaje,
		MensajeHTML:  html.String(),
		Tipo:         req.Tipo,
		TargetUserID: req.TargetUserID,
		ImagenURL:    imageURL,
	})
	if err != nil {
		if imageKey != "" {
			_ = s.files.Delete(ctx, imageKey)
		}
		return model.Notification{}, err
	}

	s.bus.Publish(event.New(event.TypeNotificationCreated, created, created.TargetUserID))

	if req.SendEmail {
		// Email delivery rides along best-effort: a provider outage must not
		// fail the communication itself.
		if err := s.sendEmail(ctx, created); err != nil {
			slog.Error("notification email delivery failed", "notification_id", created.ID, "error", err)
		}
	}

	return created, nil
}

func (s *NotificationService) sendEmail(ctx context.Context, n model.Notification) error {
	var to []string
	if n.Tipo == model.NotificationIndividual {
		profile, err := s.profiles.GetByID(ctx, n.TargetUserID)
		if err != nil {
			return err
		}
		if profile.Email == "" {
			return nil
		}
		to = []string{profile.Email}
	} else {
		emails, err := s.profiles.ListEmails(ctx)
		if err != nil {
			return err
		}
		to = emails
	}

	html := n.MensajeHTML
	if n.ImagenURL != "" {
		html += fmt.Sprintf(`<p><img src=%q alt=""/></p>`, n.ImagenURL)
	}

	return s.mailer.Send(ctx, to, n.Titulo, html)
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	return s.notifications.ListForUser(ctx, userID, limit)
}

func (s *NotificationService) ListAll(ctx context.Context) ([]model.NotificationWithTarget, error) {
	return s.notifications.ListAll(ctx)
}

func (s *NotificationService) Delete(ctx context.Context, id string) error {
	if err := s.notifications.Delete(ctx, id); err != nil {
		return err
	}

	s.bus.Publish(event.New(event.TypeNotificationDeleted, map[string]string{"id": id}, ""))
	return nil
}
