package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymclub/internal/model"
	"gymclub/pkg/apierror"
)

type fakeProfileRepo struct {
	profiles map[string]model.Profile
}

func newFakeProfileRepo(profiles ...model.Profile) *fakeProfileRepo {
	repo := &fakeProfileRepo{profiles: map[string]model.Profile{}}
	for _, p := range profiles {
		repo.profiles[p.ID] = p
	}
	return repo
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrProfileNotFound
	}
	return p, nil
}

func (f *fakeProfileRepo) Update(_ context.Context, id string, nombre string, dni string) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrProfileNotFound
	}
	p.Nombre = nombre
	p.DNI = dni
	f.profiles[id] = p
	return p, nil
}

func (f *fakeProfileRepo) UpdateExpiry(_ context.Context, id string, fechaVencimiento time.Time) (model.Profile, error) {
	p, ok := f.profiles[id]
	if !ok {
		return model.Profile{}, model.ErrProfileNotFound
	}
	p.FechaVencimiento = fechaVencimiento
	f.profiles[id] = p
	return p, nil
}

func (f *fakeProfileRepo) List(context.Context) ([]model.Profile, error) {
	out := make([]model.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProfileRepo) Search(ctx context.Context, _ string) ([]model.Profile, error) {
	return f.List(ctx)
}

func TestMembershipService_Stats(t *testing.T) {
	now := time.Now()
	repo := newFakeProfileRepo(
		model.Profile{ID: "a", FechaVencimiento: now.AddDate(0, 0, -5)},
		model.Profile{ID: "b", FechaVencimiento: now.AddDate(0, 0, 2)},
		model.Profile{ID: "c", FechaVencimiento: now.AddDate(0, 0, 2)},
		model.Profile{ID: "d", FechaVencimiento: now.AddDate(0, 2, 0)},
	)
	svc := NewMembershipService(repo, &fakeNotificationRepo{}, &recordingBus{})

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Vencidos)
	assert.Equal(t, 2, stats.PorVencer)
	assert.Equal(t, 1, stats.Activos)
}

func TestMembershipService_UpdateProfile(t *testing.T) {
	repo := newFakeProfileRepo(model.Profile{ID: "u1", Nombre: "Ana", DNI: "1"})
	svc := NewMembershipService(repo, &fakeNotificationRepo{}, &recordingBus{})

	t.Run("trims and stores", func(t *testing.T) {
		updated, err := svc.UpdateProfile(context.Background(), "u1", model.UpdateProfileRequest{
			Nombre: "  Ana Pérez  ",
			DNI:    " 30123456 ",
		})
		require.NoError(t, err)
		assert.Equal(t, "Ana Pérez", updated.Nombre)
		assert.Equal(t, "30123456", updated.DNI)
	})

	t.Run("rejects blank fields", func(t *testing.T) {
		_, err := svc.UpdateProfile(context.Background(), "u1", model.UpdateProfileRequest{Nombre: " ", DNI: "1"})
		require.Error(t, err)

		var apiErr *apierror.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "BAD_REQUEST", apiErr.Code)
	})
}

func TestMembershipService_UpdateExpiry(t *testing.T) {
	repo := newFakeProfileRepo(model.Profile{ID: "u1"})
	svc := NewMembershipService(repo, &fakeNotificationRepo{}, &recordingBus{})

	t.Run("parses the wire date", func(t *testing.T) {
		updated, err := svc.UpdateExpiry(context.Background(), "u1", "2026-12-01")
		require.NoError(t, err)
		assert.Equal(t, 2026, updated.FechaVencimiento.Year())
		assert.Equal(t, time.December, updated.FechaVencimiento.Month())
	})

	t.Run("rejects malformed dates", func(t *testing.T) {
		_, err := svc.UpdateExpiry(context.Background(), "u1", "01/12/2026")
		require.Error(t, err)
	})
}

func TestMembershipService_ExtendOnPayment(t *testing.T) {
	t.Run("active membership extends from its current expiry", func(t *testing.T) {
		due := time.Now().AddDate(0, 0, 10)
		repo := newFakeProfileRepo(model.Profile{ID: "u1", FechaVencimiento: due})
		svc := NewMembershipService(repo, &fakeNotificationRepo{}, &recordingBus{})

		updated, err := svc.ExtendOnPayment(context.Background(), "u1")
		require.NoError(t, err)
		assert.WithinDuration(t, due.AddDate(0, 1, 0), updated.FechaVencimiento, time.Second)
	})

	t.Run("lapsed membership restarts from today", func(t *testing.T) {
		repo := newFakeProfileRepo(model.Profile{ID: "u1", FechaVencimiento: time.Now().AddDate(0, -3, 0)})
		svc := NewMembershipService(repo, &fakeNotificationRepo{}, &recordingBus{})

		updated, err := svc.ExtendOnPayment(context.Background(), "u1")
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), updated.FechaVencimiento, time.Minute)
	})
}

func TestMembershipService_Summary(t *testing.T) {
	repo := newFakeProfileRepo(model.Profile{ID: "u1", FechaVencimiento: time.Now().AddDate(0, 0, 2)})
	svc := NewMembershipService(repo, &fakeNotificationRepo{}, &recordingBus{})

	summary, err := svc.Summary(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, model.DueExpiring, summary.Due.State)
	assert.Empty(t, summary.Notifications)

	_, err = svc.Summary(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrProfileNotFound)
}
