// Package tally aggregates sale records into cut and report totals.
package tally

import (
	"sort"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
)

// Sales sums totals overall, per payment method and per currency. Cash paid
// in foreign currency counts toward both the cash and the foreign partitions.
func Sales(sales []domain.Sale) domain.SalesTotals {
	var totals domain.SalesTotals
	for _, sale := range sales {
		Add(&totals, sale)
	}
	return totals
}

func Add(totals *domain.SalesTotals, sale domain.Sale) {
	totals.Count++
	totals.TotalCents += sale.TotalCents

	switch sale.PaymentMethod {
	case domain.PaymentCash:
		totals.CashCents += sale.TotalCents
	case domain.PaymentCard:
		totals.CardCents += sale.TotalCents
	case domain.PaymentTransfer:
		totals.TransferCents += sale.TotalCents
	}

	if sale.Currency == domain.CurrencyForeign {
		totals.ForeignCents += sale.TotalCents
	} else {
		totals.DomesticCents += sale.TotalCents
	}
}

// Products aggregates units and revenue per product, most units first. An
// empty category keeps every line.
func Products(sales []domain.Sale, category string) []domain.ProductStat {
	byID := make(map[string]*domain.ProductStat, 32)
	for _, sale := range sales {
		for _, item := range sale.Items {
			if category != "" && item.Category != category {
				continue
			}
			key := item.ProductID
			if key == "" {
				key = item.ProductName
			}
			stat, ok := byID[key]
			if !ok {
				stat = &domain.ProductStat{
					ProductID: item.ProductID,
					Name:      item.ProductName,
					Category:  item.Category,
				}
				byID[key] = stat
			}
			stat.Units += item.Qty
			stat.RevenueCents += item.SubtotalCents
		}
	}

	stats := make([]domain.ProductStat, 0, len(byID))
	for _, stat := range byID {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Units != stats[j].Units {
			return stats[i].Units > stats[j].Units
		}
		if stats[i].RevenueCents != stats[j].RevenueCents {
			return stats[i].RevenueCents > stats[j].RevenueCents
		}
		return stats[i].Name < stats[j].Name
	})
	return stats
}

// Sizes aggregates units and revenue per size label. Lines without a size
// (flat-priced products) are skipped.
func Sizes(sales []domain.Sale, category string) []domain.SizeStat {
	bySize := make(map[string]*domain.SizeStat, len(domain.SizeOrder))
	for _, sale := range sales {
		for _, item := range sale.Items {
			if item.Size == "" {
				continue
			}
			if category != "" && item.Category != category {
				continue
			}
			stat, ok := bySize[item.Size]
			if !ok {
				stat = &domain.SizeStat{Size: item.Size}
				bySize[item.Size] = stat
			}
			stat.Units += item.Qty
			stat.RevenueCents += item.SubtotalCents
		}
	}

	stats := make([]domain.SizeStat, 0, len(bySize))
	for _, stat := range bySize {
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Units != stats[j].Units {
			return stats[i].Units > stats[j].Units
		}
		if stats[i].RevenueCents != stats[j].RevenueCents {
			return stats[i].RevenueCents > stats[j].RevenueCents
		}
		return sizeRank(stats[i].Size) < sizeRank(stats[j].Size)
	})
	return stats
}

func TopProducts(sales []domain.Sale, limit int) []domain.ProductStat {
	stats := Products(sales, "")
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func sizeRank(size string) int {
	for i, known := range domain.SizeOrder {
		if known == size {
			return i
		}
	}
	return len(domain.SizeOrder)
}
