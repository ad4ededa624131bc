package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
	"github.com/Bodin4747/CheikysAdmin/internal/store"
	"github.com/Bodin4747/CheikysAdmin/internal/xid"
)

// RunDailyCut closes every open sale of the given local day (today when date
// is empty) into one cut. With nothing open it returns Created=false and
// writes nothing.
func (s *Service) RunDailyCut(ctx context.Context, date string) (domain.CutResult, error) {
	started := time.Now()

	from := s.startOfDay(s.now())
	if strings.TrimSpace(date) != "" {
		day, err := s.parseDay(date)
		if err != nil {
			return domain.CutResult{}, err
		}
		from = day
	}
	to := from.AddDate(0, 0, 1)

	cut, err := s.repo.CloseDay(ctx, domain.CutRequest{
		CutID:    xid.New("cut"),
		Operator: actorName(ctx),
		From:     from.UTC(),
		To:       to.UTC(),
		At:       s.now().UTC(),
	})
	if errors.Is(err, store.ErrNothingToCut) {
		s.metrics.CutFinished("noop", time.Since(started))
		return domain.CutResult{Created: false}, nil
	}
	if err != nil {
		s.metrics.CutFinished("error", time.Since(started))
		log.Printf("[service] ERROR: daily cut for %s failed: %v", from.Format("2006-01-02"), err)
		return domain.CutResult{}, err
	}

	s.metrics.CutFinished("created", time.Since(started))
	s.logAudit(ctx, "cut_create", "cut", cut.ID, fmt.Sprintf("date=%s,count=%d,total=%d,cash=%d,card=%d,transfer=%d", from.Format("2006-01-02"), cut.Count, cut.TotalCents, cut.CashCents, cut.CardCents, cut.TransferCents))
	return domain.CutResult{Cut: cut, Created: true}, nil
}

func (s *Service) ListCuts(ctx context.Context, limit int) ([]domain.Cut, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListCuts(ctx, limit)
}

func (s *Service) GetCut(ctx context.Context, id string) (domain.Cut, error) {
	cut, err := s.repo.GetCut(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Cut{}, err
	}
	return *cut, nil
}
