package service

import (
	"context"
	"strings"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/tally"
)

// SalesByRange reports every sale created from the start of q.From through the
// end of q.To, both local days inclusive.
func (s *Service) SalesByRange(ctx context.Context, q domain.SalesRangeQuery) (domain.SalesRangeReport, error) {
	from, to, err := s.rangeBounds(q.From, q.To)
	if err != nil {
		return domain.SalesRangeReport{}, err
	}
	method := strings.ToLower(strings.TrimSpace(q.PaymentMethod))
	if method != "" && !isSupportedPaymentMethod(method) {
		return domain.SalesRangeReport{}, invalid("unsupported payment method %q", method)
	}

	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{From: from, To: to, PaymentMethod: method})
	if err != nil {
		return domain.SalesRangeReport{}, err
	}

	return domain.SalesRangeReport{
		From:          from.In(s.loc).Format("2006-01-02"),
		To:            to.In(s.loc).Add(-time.Nanosecond).Format("2006-01-02"),
		PaymentMethod: method,
		SalesTotals:   tally.Sales(sales),
		Sales:         sales,
	}, nil
}

func (s *Service) ProductStats(ctx context.Context, q domain.SalesRangeQuery) (domain.ProductStatsReport, error) {
	from, to, err := s.rangeBounds(q.From, q.To)
	if err != nil {
		return domain.ProductStatsReport{}, err
	}
	category := strings.ToLower(strings.TrimSpace(q.Category))
	if category != "" && !isKnownCategory(category) {
		return domain.ProductStatsReport{}, invalid("unknown category %q", category)
	}

	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{From: from, To: to})
	if err != nil {
		return domain.ProductStatsReport{}, err
	}

	report := domain.ProductStatsReport{
		From:     from.In(s.loc).Format("2006-01-02"),
		To:       to.In(s.loc).Add(-time.Nanosecond).Format("2006-01-02"),
		Category: category,
		Products: tally.Products(sales, category),
		Sizes:    tally.Sizes(sales, category),
	}
	if len(report.Products) > 0 {
		best := report.Products[0]
		report.BestSellingProduct = &best
	}
	if len(report.Sizes) > 0 {
		best := report.Sizes[0]
		report.BestSellingSize = &best
	}
	return report, nil
}

func (s *Service) TodaySummary(ctx context.Context) (domain.TodaySummary, error) {
	from := s.startOfDay(s.now())
	to := from.AddDate(0, 0, 1)

	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{From: from.UTC(), To: to.UTC()})
	if err != nil {
		return domain.TodaySummary{}, err
	}

	summary := domain.TodaySummary{
		Date:        from.Format("2006-01-02"),
		SalesTotals: tally.Sales(sales),
	}
	for _, sale := range sales {
		if !sale.Closed {
			summary.OpenCount++
			summary.OpenTotalCents += sale.TotalCents
		}
	}
	return summary, nil
}

func (s *Service) TopProducts(ctx context.Context, limit int) ([]domain.ProductStat, error) {
	if limit < 1 {
		limit = 5
	}
	sales, err := s.repo.ListSales(ctx, domain.SaleFilter{})
	if err != nil {
		return nil, err
	}
	return tally.TopProducts(sales, limit), nil
}

// rangeBounds turns two inclusive local dates into a half-open UTC window.
// An empty end date means the start day only.
func (s *Service) rangeBounds(fromRaw string, toRaw string) (time.Time, time.Time, error) {
	if strings.TrimSpace(fromRaw) == "" {
		return time.Time{}, time.Time{}, invalid("from date is required")
	}
	from, err := s.parseDay(fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	toDay := from
	if strings.TrimSpace(toRaw) != "" {
		toDay, err = s.parseDay(toRaw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if toDay.Before(from) {
		return time.Time{}, time.Time{}, invalid("to date is before from date")
	}
	return from.UTC(), toDay.AddDate(0, 0, 1).UTC(), nil
}
