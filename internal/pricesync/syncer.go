package pricesync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"prinprinan-bot/internal/printing"
	"prinprinan-bot/pkg/api"
)

const snapshotKey = "pricing:snapshot"

type Source interface {
	FetchPricing(ctx context.Context) (api.PriceList, error)
}

// Snapshot shares the last good price list between bot instances.
type Snapshot interface {
	SaveJSON(ctx context.Context, key string, v any, ttl time.Duration) error
	LoadJSON(ctx context.Context, key string, v any) error
}

// Syncer keeps a pricing table in step with the backend's price config.
// A failed or invalid refresh never changes the table.
type Syncer struct {
	source   Source
	table    *printing.Table
	snapshot Snapshot
	interval time.Duration
	logger   *zap.Logger
}

// New returns a Syncer. snapshot may be nil.
func New(source Source, table *printing.Table, snapshot Snapshot, interval time.Duration, logger *zap.Logger) *Syncer {
	return &Syncer{
		source:   source,
		table:    table,
		snapshot: snapshot,
		interval: interval,
		logger:   logger,
	}
}

// Refresh fetches the backend prices and installs them. A missing full-color
// rate keeps the current one.
func (s *Syncer) Refresh(ctx context.Context) (printing.Prices, error) {
	list, err := s.source.FetchPricing(ctx)
	if err != nil {
		return s.table.Snapshot(), fmt.Errorf("pricesync: fetch: %w", err)
	}

	current := s.table.Snapshot()
	next := printing.Prices{
		BlackWhite: list.BlackWhite,
		Color:      list.Color,
		FullColor:  list.FullColor,
	}
	if next.FullColor == 0 {
		next.FullColor = current.FullColor
	}

	if err := s.table.Update(next); err != nil {
		return current, fmt.Errorf("pricesync: %w", err)
	}

	if next != current {
		s.logger.Info("Pricing updated",
			zap.Int64("bnw", next.BlackWhite),
			zap.Int64("color", next.Color),
			zap.Int64("full_color", next.FullColor))
	}

	if s.snapshot != nil {
		if err := s.snapshot.SaveJSON(ctx, snapshotKey, next, 0); err != nil {
			s.logger.Warn("Failed to save pricing snapshot", zap.Error(err))
		}
	}
	return next, nil
}

// Restore installs the shared snapshot, if any.
func (s *Syncer) Restore(ctx context.Context) error {
	if s.snapshot == nil {
		return nil
	}
	var p printing.Prices
	if err := s.snapshot.LoadJSON(ctx, snapshotKey, &p); err != nil {
		return fmt.Errorf("pricesync: load snapshot: %w", err)
	}
	if err := s.table.Update(p); err != nil {
		return fmt.Errorf("pricesync: snapshot: %w", err)
	}
	return nil
}

// Run refreshes once immediately, then every interval until ctx is done.
func (s *Syncer) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Warn("Failed to refresh pricing, trying snapshot", zap.Error(err))
		if err := s.Restore(ctx); err != nil {
			s.logger.Warn("Failed to restore pricing snapshot, keeping defaults", zap.Error(err))
		}
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Warn("Failed to refresh pricing, keeping current table", zap.Error(err))
			}
		}
	}
}
