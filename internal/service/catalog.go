package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	now := s.now().UTC()
	product := domain.Product{
		ID:          xid.New("prod"),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.ToLower(strings.TrimSpace(req.Category)),
		Kind:        strings.ToLower(strings.TrimSpace(req.Kind)),
		ImageURL:    strings.TrimSpace(req.ImageURL),
		PriceCents:  req.PriceCents,
		Sizes:       req.Sizes,
		Available:   true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Available != nil {
		product.Available = *req.Available
	}
	if product.Kind == "" && product.Category == domain.CategoryPizzas {
		product.Kind = domain.ProductKindPizza
	}
	if err := validateProduct(product); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,category=%s,sized=%t", created.Name, created.Category, created.Sized()))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireAdmin(ctx); err != nil {
		return domain.Product{}, err
	}

	existing, err := s.repo.GetProduct(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		updated.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.ImageURL != nil {
		updated.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	// Switching between flat and sized pricing clears the other shape.
	if req.PriceCents != nil {
		updated.PriceCents = req.PriceCents
		updated.Sizes = nil
	}
	if req.Sizes != nil {
		updated.Sizes = *req.Sizes
		updated.PriceCents = nil
	}
	if req.Available != nil {
		updated.Available = *req.Available
	}
	updated.UpdatedAt = s.now().UTC()

	if err := validateProduct(updated); err != nil {
		return domain.Product{}, err
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("name=%s,available=%t,sized=%t", saved.Name, saved.Available, saved.Sized()))
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}

func validateProduct(p domain.Product) error {
	if p.Name == "" {
		return invalid("name is required")
	}
	if !isKnownCategory(p.Category) {
		return invalid("unknown category %q", p.Category)
	}
	if p.Sized() && p.PriceCents != nil {
		return invalid("a product has either sizes or a flat price")
	}
	if p.Kind == domain.ProductKindPizza && !p.Sized() {
		return invalid("pizzas must be priced by size")
	}

	if !p.Sized() {
		if p.PriceCents == nil || *p.PriceCents < 1 {
			return invalid("price_cents must be positive")
		}
		return nil
	}

	enabled := 0
	for size, tier := range p.Sizes {
		if !slices.Contains(domain.SizeOrder, size) {
			return invalid("unknown size %q", size)
		}
		if !tier.Enabled {
			continue
		}
		if tier.PriceCents < 1 {
			return invalid("size %s needs a positive price", size)
		}
		enabled++
	}
	if enabled == 0 {
		return invalid("at least one size must be enabled")
	}
	return nil
}

func isKnownCategory(category string) bool {
	switch category {
	case domain.CategoryPizzas, domain.CategoryComplementos, domain.CategoryBebidas, domain.CategoryBoneless, domain.CategoryOtro:
		return true
	default:
		return false
	}
}

// priceCart merges identical cart lines and prices them from the catalog.
func (s *Service) priceCart(ctx context.Context, cart []domain.CartItem) ([]domain.LineItem, int64, error) {
	merged := mergeCartItems(cart)
	if len(merged) == 0 {
		return nil, 0, invalid("cart is empty")
	}

	ids := make([]string, 0, len(merged))
	for _, item := range merged {
		if !slices.Contains(ids, item.ProductID) {
			ids = append(ids, item.ProductID)
		}
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	lines := make([]domain.LineItem, 0, len(merged))
	subtotal := int64(0)
	for _, item := range merged {
		product, exists := products[item.ProductID]
		if !exists {
			return nil, 0, fmt.Errorf("%w: product %s not found", store.ErrInvalidTransaction, item.ProductID)
		}
		if !product.Available {
			return nil, 0, invalid("product %s is not available", product.Name)
		}
		if !product.Sized() && item.Size != "" {
			return nil, 0, invalid("product %s has no sizes", product.Name)
		}
		unit, ok := product.PriceFor(item.Size)
		if !ok {
			return nil, 0, invalid("size %q is not offered for %s", item.Size, product.Name)
		}
		if item.WithBoneless && !product.Sizes[item.Size].Boneless {
			return nil, 0, invalid("boneless add-on is not offered for %s %s", product.Name, item.Size)
		}

		line := domain.LineItem{
			ProductID:      product.ID,
			ProductName:    product.Name,
			Category:       product.Category,
			UnitPriceCents: unit,
			Qty:            item.Qty,
			SubtotalCents:  unit * int64(item.Qty),
			Size:           item.Size,
			Observations:   item.Observations,
			WithBoneless:   item.WithBoneless,
		}
		if item.WithBoneless {
			line.BonelessSauce = item.BonelessSauce
		}
		lines = append(lines, line)
		subtotal += line.SubtotalCents
	}
	return lines, subtotal, nil
}

func mergeCartItems(items []domain.CartItem) []domain.CartItem {
	merged := make([]domain.CartItem, 0, len(items))
	index := make(map[domain.CartItem]int, len(items))
	for _, item := range items {
		item.ProductID = strings.TrimSpace(item.ProductID)
		item.Size = strings.ToLower(strings.TrimSpace(item.Size))
		item.Observations = strings.TrimSpace(item.Observations)
		item.BonelessSauce = strings.TrimSpace(item.BonelessSauce)
		if item.ProductID == "" || item.Qty < 1 {
			continue
		}
		if !item.WithBoneless {
			item.BonelessSauce = ""
		}

		key := item
		key.Qty = 0
		if i, ok := index[key]; ok {
			merged[i].Qty += item.Qty
			continue
		}
		index[key] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
