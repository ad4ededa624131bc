package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/cache"
	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/metrics"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

var ErrForbidden = errors.New("admin role required")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	// Location is the restaurant's wall clock; day boundaries use it.
	Location      *time.Location
	SettingsCache cache.SettingsCache
	SettingsTTL   time.Duration
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

type Service struct {
	repo        store.Repository
	settings    cache.SettingsCache
	settingsTTL time.Duration
	loc         *time.Location
	metrics     *metrics.Metrics
	now         func() time.Time
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.SettingsCache == nil {
		opts.SettingsCache = cache.NoopSettingsCache{}
	}
	if opts.SettingsTTL <= 0 {
		opts.SettingsTTL = time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		repo:        repo,
		settings:    opts.SettingsCache,
		settingsTTL: opts.SettingsTTL,
		loc:         opts.Location,
		metrics:     opts.Metrics,
		now:         opts.Now,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = s.now().UTC().Add(-24 * time.Hour)
	} else {
		day, err := s.parseDay(date)
		if err != nil {
			return nil, err
		}
		from = day
	}
	to := from.Add(24 * time.Hour)

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// RecordAudit writes an audit entry for actions performed outside the service,
// such as user administration.
func (s *Service) RecordAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	s.logAudit(ctx, action, entityType, entityID, detail)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func requireAdmin(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || !domain.IsAdminRole(actor.Role) {
		return ErrForbidden
	}
	return nil
}

func actorName(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok && actor.Username != "" {
		return actor.Username
	}
	return "system"
}

// parseDay reads a YYYY-MM-DD date as local midnight.
func (s *Service) parseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q", store.ErrInvalidTransaction, raw)
	}
	return day, nil
}

func (s *Service) startOfDay(t time.Time) time.Time {
	local := t.In(s.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidTransaction, fmt.Sprintf(format, args...))
}

func defaultString(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func isSupportedPaymentMethod(method string) bool {
	switch method {
	case domain.PaymentCash, domain.PaymentCard, domain.PaymentTransfer:
		return true
	default:
		return false
	}
}

func isSupportedCurrency(currency string) bool {
	return currency == domain.CurrencyDomestic || currency == domain.CurrencyForeign
}

func isSupportedChannel(channel string) bool {
	return channel == domain.ChannelInStore || channel == domain.ChannelPhone
}
