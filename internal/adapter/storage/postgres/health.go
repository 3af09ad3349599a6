package postgres

import (
	"context"
	"fmt"
	"time"
)

const healthTimeout = 2 * time.Second

// walletsProbe also fails when the wallet schema has not been migrated.
const walletsProbe = `SELECT 1 FROM wallets LIMIT 1`

// HealthCheck reports whether the wallet store can be reached.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

// Ping probes the wallets table within healthTimeout.
func (h *HealthCheck) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if _, err := h.pool.Exec(ctx, walletsProbe); err != nil {
		return fmt.Errorf("wallet store probe: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgres"
}
