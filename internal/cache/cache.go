package cache

import (
	"context"
	"time"

	"github.com/Bodin4747/CheikysAdmin/internal/domain"
)

const (
	SettingsKey           = "cheikys:settings:v1"
	SettingsGenerationKey = "cheikys:settings:gen"
)

// SettingsCache holds the merged settings bundle between operations. Entries
// are stored per generation: Get reports the current generation, Set writes
// under the generation a reader saw, and Invalidate moves to a new one. A
// bundle read before an update therefore never becomes visible after it.
// A miss is reported as (nil, gen, false, nil).
type SettingsCache interface {
	Get(ctx context.Context) (*domain.Settings, int64, bool, error)
	Set(ctx context.Context, generation int64, value *domain.Settings, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type NoopSettingsCache struct{}

func (NoopSettingsCache) Get(_ context.Context) (*domain.Settings, int64, bool, error) {
	return nil, 0, false, nil
}

func (NoopSettingsCache) Set(_ context.Context, _ int64, _ *domain.Settings, _ time.Duration) error {
	return nil
}

func (NoopSettingsCache) Invalidate(_ context.Context) error {
	return nil
}
