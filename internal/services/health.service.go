package services

import (
	"context"
	"time"

	"github.com/lodgio/whatsapp-gateway/pkg/pg"
)

// HealthService answers liveness probes. With a DB attached it also pings
// the read replica so a dead pool fails the probe.
type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

func (s *HealthService) Get() error {
	if s.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sqlDB, err := s.db.Read(ctx).DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
