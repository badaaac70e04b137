package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gymclub/internal/event"
	"gymclub/internal/model"
	"gymclub/pkg/apierror"
)

type MembershipService struct {
	profiles      repositoryProfiles
	notifications repositoryNotifications
	bus           event.Bus
}

type repositoryProfiles interface {
	GetByID(ctx context.Context, id string) (model.Profile, error)
	Update(ctx context.Context, id string, nombre string, dni string) (model.Profile, error)
	UpdateExpiry(ctx context.Context, id string, fechaVencimiento time.Time) (model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
	Search(ctx context.Context, query string) ([]model.Profile, error)
}

func NewMembershipService(profiles repositoryProfiles, notifications repositoryNotifications, bus event.Bus) *MembershipService {
	return &MembershipService{
		profiles:      profiles,
		notifications: notifications,
		bus:           bus,
	}
}

// summaryNotificationLimit bounds the dashboard notification feed.
const summaryNotificationLimit = 20

// Summary builds the member dashboard payload: the profile, its computed due
// status and the latest notifications addressed to the member.
func (s *MembershipService) Summary(ctx context.Context, userID string) (model.MemberSummary, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return model.MemberSummary{}, err
	}

	notifications, err := s.notifications.ListForUser(ctx, userID, summaryNotificationLimit)
	if err != nil {
		return model.MemberSummary{}, err
	}

	return model.MemberSummary{
		Profile:       profile,
		Due:           profile.Due(time.Now()),
		Notifications: notifications,
	}, nil
}

func (s *MembershipService) UpdateProfile(ctx context.Context, userID string, req model.UpdateProfileRequest) (model.Profile, error) {
	nombre := strings.TrimSpace(req.Nombre)
	dni := strings.TrimSpace(req.DNI)
	if nombre == "" || dni == "" {
		return model.Profile{}, apierror.New("BAD_REQUEST", "nombre and dni are required", "", http.StatusBadRequest)
	}

	updated, err := s.profiles.Update(ctx, userID, nombre, dni)
	if err != nil {
		return model.Profile{}, err
	}

	s.bus.Publish(event.New(event.TypeMemberUpdated, updated, updated.ID))
	return updated, nil
}

// List returns every member with their computed due status, optionally
// filtered by a name or national id search term.
func (s *MembershipService) List(ctx context.Context, query string) ([]model.MemberOverview, error) {
	var (
		profiles []model.Profile
		err      error
	)
	if strings.TrimSpace(query) == "" {
		profiles, err = s.profiles.List(ctx)
	} else {
		profiles, err = s.profiles.Search(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	overviews := make([]model.MemberOverview, 0, len(profiles))
	for _, p := range profiles {
		overviews = append(overviews, model.MemberOverview{Profile: p, Due: p.Due(now)})
	}
	return overviews, nil
}

// Stats aggregates due states across the whole member list.
func (s *MembershipService) Stats(ctx context.Context) (model.MemberStats, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return model.MemberStats{}, err
	}

	now := time.Now()
	stats := model.MemberStats{Total: len(profiles)}
	for _, p := range profiles {
		switch p.Due(now).State {
		case model.DueOverdue:
			stats.Vencidos++
		case model.DueExpiring:
			stats.PorVencer++
		default:
			stats.Activos++
		}
	}
	return stats, nil
}

// UpdateExpiry is the administrative expiry-date correction. The date comes
// in as YYYY-MM-DD.
func (s *MembershipService) UpdateExpiry(ctx context.Context, userID string, fechaVencimiento string) (model.Profile, error) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(fechaVencimiento))
	if err != nil {
		return model.Profile{}, apierror.New("BAD_REQUEST",
			"fecha_vencimiento must be YYYY-MM-DD", fechaVencimiento, http.StatusBadRequest)
	}

	updated, err := s.profiles.UpdateExpiry(ctx, userID, parsed)
	if err != nil {
		return model.Profile{}, err
	}

	s.bus.Publish(event.New(event.TypeMemberUpdated, updated, updated.ID))
	return updated, nil
}

// ExtendOnPayment pushes the membership one month forward after an approved
// payment. Lapsed memberships restart from today instead of accumulating the
// gap.
func (s *MembershipService) ExtendOnPayment(ctx context.Context, userID string) (model.Profile, error) {
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	base := profile.FechaVencimiento
	now := time.Now()
	if base.Before(now) {
		base = now
	}

	updated, err := s.profiles.UpdateExpiry(ctx, userID, base.AddDate(0, 1, 0))
	if err != nil {
		return model.Profile{}, err
	}

	s.bus.Publish(event.New(event.TypeMemberUpdated, updated, updated.ID))
	return updated, nil
}
