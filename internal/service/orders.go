package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

func (s *Service) CreateOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	name := strings.TrimSpace(req.CustomerName)
	phone := strings.TrimSpace(req.CustomerPhone)
	if name == "" {
		return domain.Order{}, invalid("customer_name is required")
	}
	if phone == "" {
		return domain.Order{}, invalid("customer_phone is required")
	}

	lines, subtotal, err := s.priceCart(ctx, req.CartItems)
	if err != nil {
		return domain.Order{}, err
	}

	now := s.now().UTC()
	created, err := s.repo.CreateOrder(ctx, domain.Order{
		ID:              xid.New("order"),
		CustomerName:    name,
		CustomerPhone:   phone,
		CustomerAddress: strings.TrimSpace(req.CustomerAddress),
		Items:           lines,
		TotalCents:      subtotal,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return domain.Order{}, err
	}

	s.logAudit(ctx, "order_create", "order", created.ID, fmt.Sprintf("customer=%s,total=%d", created.CustomerName, created.TotalCents))
	return *created, nil
}

func (s *Service) ListOrders(ctx context.Context, status string, limit int) ([]domain.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.OrderStatusPending, domain.OrderStatusDelivered, domain.OrderStatusCancelled:
	default:
		return nil, invalid("unknown order status %q", status)
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListOrders(ctx, status, limit)
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) DeliverOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.transitionOrder(ctx, id, domain.OrderStatusDelivered)
}

func (s *Service) CancelOrder(ctx context.Context, id string) (domain.Order, error) {
	return s.transitionOrder(ctx, id, domain.OrderStatusCancelled)
}

func (s *Service) transitionOrder(ctx context.Context, id string, status string) (domain.Order, error) {
	order, err := s.repo.TransitionOrder(ctx, strings.TrimSpace(id), status, s.now().UTC())
	if err != nil {
		return domain.Order{}, err
	}
	s.metrics.OrderTransitioned(status)
	s.logAudit(ctx, "order_"+status, "order", order.ID, fmt.Sprintf("total=%d", order.TotalCents))
	return *order, nil
}
