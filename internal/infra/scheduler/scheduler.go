package scheduler

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
	"github.com/Spok95/spare-stock/internal/domain/reports"
)

type Source interface {
	Today() time.Time
	Location() *time.Location
	DailySummary(ctx context.Context, date time.Time) (reports.DailySummary, error)
	DailyStockOut(ctx context.Context, date time.Time) ([]inventory.StockOutView, error)
}

type Digester interface {
	DailyDigest(ctx context.Context, s reports.DailySummary, xlsx []byte) error
}

// Scheduler рассылает дневную сводку по расписанию.
type Scheduler struct {
	cron *cron.Cron
	spec string
	src  Source
	dst  Digester
	log  *slog.Logger
}

func New(spec string, src Source, dst Digester, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(src.Location())),
		spec: spec,
		src:  src,
		dst:  dst,
		log:  log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sendDailyDigest); err != nil {
		return err
	}
	s.log.Info("scheduler started", "digest_cron", s.spec)
	s.cron.Start()
	return nil
}

// Stop ждёт завершения запущенной рассылки.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) sendDailyDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.RunDigest(ctx, s.src.Today()); err != nil {
		s.log.Error("daily digest failed", "err", err)
		return
	}
	s.log.Info("daily digest sent")
}

func (s *Scheduler) RunDigest(ctx context.Context, date time.Time) error {
	sum, err := s.src.DailySummary(ctx, date)
	if err != nil {
		return err
	}
	var xlsx []byte
	if sum.Entries > 0 {
		rows, err := s.src.DailyStockOut(ctx, date)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := reports.WriteDailyStockOutXLSX(&buf, rows, s.src.Location()); err != nil {
			return err
		}
		xlsx = buf.Bytes()
	}
	return s.dst.DailyDigest(ctx, sum, xlsx)
}
