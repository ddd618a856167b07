package inventory

import (
	"log/slog"
	"time"
)

type options struct {
	now       func() time.Time
	log       *slog.Logger
	rec       Recorder
	alerter   Alerter
	threshold int64
}

type Option func(*options)

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithLogger(log *slog.Logger) Option {
	return func(o *options) { o.log = log }
}

func WithRecorder(rec Recorder) Option {
	return func(o *options) { o.rec = rec }
}

// WithLowStockAlert включает уведомление, когда после расхода остаток <= threshold.
func WithLowStockAlert(a Alerter, threshold int64) Option {
	return func(o *options) {
		o.alerter = a
		o.threshold = threshold
	}
}

func buildOptions(opts []Option) options {
	o := options{
		now: time.Now,
		log: slog.New(slog.DiscardHandler),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// observe вызывается через defer, поэтому ошибку принимает по указателю.
func (o options) observe(op string, start time.Time, errp *error) {
	if o.rec == nil {
		return
	}
	o.rec.ObserveOp(op, ResultOf(*errp), time.Since(start))
}
