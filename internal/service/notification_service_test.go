package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymclub/internal/event"
	"gymclub/internal/model"
	"gymclub/pkg/apierror"
)

type fakeNotificationRepo struct {
	created []model.Notification
	deleted []string
}

func (f *fakeNotificationRepo) ListForUser(context.Context, string, int) ([]model.Notification, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) ListAll(context.Context) ([]model.NotificationWithTarget, error) {
	return nil, nil
}

func (f *fakeNotificationRepo) Create(_ context.Context, n model.Notification) (model.Notification, error) {
	n.ID = "notification-1"
	f.created = append(f.created, n)
	return n, nil
}

func (f *fakeNotificationRepo) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeNotificationProfiles struct {
	known  map[string]model.Profile
	emails []string
}

func (f *fakeNotificationProfiles) GetByID(_ context.Context, id string) (model.Profile, error) {
	p, ok := f.known[id]
	if !ok {
		return model.Profile{}, model.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeNotificationProfiles) ListEmails(context.Context) ([]string, error) {
	return f.emails, nil
}

type recordingMailer struct {
	to      []string
	subject string
	html    string
	calls   int
}

func (m *recordingMailer) Send(_ context.Context, to []string, subject string, html string) error {
	m.to = to
	m.subject = subject
	m.html = html
	m.calls++
	return nil
}

func newNotificationService(repo *fakeNotificationRepo, profiles *fakeNotificationProfiles, mailer Mailer, bus event.Bus) *NotificationService {
	if profiles == nil {
		profiles = &fakeNotificationProfiles{}
	}
	return NewNotificationService(repo, profiles, newFakeFileStore(), mailer, bus)
}

func TestNotificationService_Create(t *testing.T) {
	t.Run("renders markdown to safe html", func(t *testing.T) {
		repo := &fakeNotificationRepo{}
		svc := newNotificationService(repo, nil, nil, &recordingBus{})

		created, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:  "Horarios",
			Mensaje: "El club abre **a las 7**.",
			Tipo:    model.NotificationGeneral,
		}, nil)
		require.NoError(t, err)

		assert.Contains(t, created.MensajeHTML, "<strong>a las 7</strong>")
		assert.Equal(t, "El club abre **a las 7**.", created.Mensaje)
	})

	t.Run("raw html in the message is escaped", func(t *testing.T) {
		svc := newNotificationService(&fakeNotificationRepo{}, nil, nil, &recordingBus{})

		created, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:  "Aviso",
			Mensaje: `<script>alert("x")</script>`,
			Tipo:    model.NotificationGeneral,
		}, nil)
		require.NoError(t, err)
		assert.NotContains(t, created.MensajeHTML, "<script>")
	})

	t.Run("general broadcast publishes an unscoped event", func(t *testing.T) {
		bus := &recordingBus{}
		svc := newNotificationService(&fakeNotificationRepo{}, nil, nil, bus)

		_, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:  "Aviso",
			Mensaje: "hola",
			Tipo:    model.NotificationGeneral,
		}, nil)
		require.NoError(t, err)

		e, ok := bus.last()
		require.True(t, ok)
		assert.Equal(t, event.TypeNotificationCreated, e.Type)
		assert.Empty(t, e.UserID)
	})

	t.Run("individual notification is scoped to its target", func(t *testing.T) {
		bus := &recordingBus{}
		profiles := &fakeNotificationProfiles{known: map[string]model.Profile{
			"u1": {ID: "u1", Email: "ana@club.test"},
		}}
		svc := newNotificationService(&fakeNotificationRepo{}, profiles, nil, bus)

		_, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:       "Cuota vencida",
			Mensaje:      "Tu cuota venció.",
			Tipo:         model.NotificationIndividual,
			TargetUserID: "u1",
		}, nil)
		require.NoError(t, err)

		e, ok := bus.last()
		require.True(t, ok)
		assert.Equal(t, "u1", e.UserID)
	})

	t.Run("individual notification requires a known member", func(t *testing.T) {
		svc := newNotificationService(&fakeNotificationRepo{}, nil, nil, &recordingBus{})

		_, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:       "Cuota",
			Mensaje:      "x",
			Tipo:         model.NotificationIndividual,
			TargetUserID: "missing",
		}, nil)
		assert.ErrorIs(t, err, model.ErrProfileNotFound)
	})

	t.Run("validation rejects malformed requests", func(t *testing.T) {
		svc := newNotificationService(&fakeNotificationRepo{}, nil, nil, &recordingBus{})

		cases := []model.CreateNotificationRequest{
			{Titulo: "", Mensaje: "x", Tipo: model.NotificationGeneral},
			{Titulo: "x", Mensaje: "", Tipo: model.NotificationGeneral},
			{Titulo: "x", Mensaje: "x", Tipo: model.NotificationGeneral, TargetUserID: "u1"},
			{Titulo: "x", Mensaje: "x", Tipo: model.NotificationIndividual},
			{Titulo: "x", Mensaje: "x", Tipo: "push"},
		}
		for _, req := range cases {
			_, err := svc.Create(context.Background(), req, nil)
			require.Error(t, err)

			var apiErr *apierror.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, "BAD_REQUEST", apiErr.Code)
		}
	})

	t.Run("email broadcast reaches every active member", func(t *testing.T) {
		mailer := &recordingMailer{}
		profiles := &fakeNotificationProfiles{emails: []string{"a@club.test", "b@club.test"}}
		svc := newNotificationService(&fakeNotificationRepo{}, profiles, mailer, &recordingBus{})

		_, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:    "Promo",
			Mensaje:   "descuento",
			Tipo:      model.NotificationGeneral,
			SendEmail: true,
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, 1, mailer.calls)
		assert.Equal(t, []string{"a@club.test", "b@club.test"}, mailer.to)
		assert.Equal(t, "Promo", mailer.subject)
	})

	t.Run("individual email goes only to the target", func(t *testing.T) {
		mailer := &recordingMailer{}
		profiles := &fakeNotificationProfiles{
			known:  map[string]model.Profile{"u1": {ID: "u1", Email: "ana@club.test"}},
			emails: []string{"a@club.test", "b@club.test"},
		}
		svc := newNotificationService(&fakeNotificationRepo{}, profiles, mailer, &recordingBus{})

		_, err := svc.Create(context.Background(), model.CreateNotificationRequest{
			Titulo:       "Cuota",
			Mensaje:      "al día",
			Tipo:         model.NotificationIndividual,
			TargetUserID: "u1",
			SendEmail:    true,
		}, nil)
		require.NoError(t, err)

		assert.Equal(t, []string{"ana@club.test"}, mailer.to)
	})
}

func TestNotificationService_Delete(t *testing.T) {
	repo := &fakeNotificationRepo{}
	bus := &recordingBus{}
	svc := newNotificationService(repo, nil, nil, bus)

	require.NoError(t, svc.Delete(context.Background(), "notification-1"))
	assert.Equal(t, []string{"notification-1"}, repo.deleted)

	e, ok := bus.last()
	require.True(t, ok)
	assert.Equal(t, event.TypeNotificationDeleted, e.Type)
}
