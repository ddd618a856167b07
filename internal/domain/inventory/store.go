package inventory

import (
	"context"
	"time"
)

// Tx — операции внутри одной атомарной единицы. Чтения с Lock* блокируют строку
// до конца транзакции.
type Tx interface {
	LockPart(ctx context.Context, id int64) (Part, error)
	InsertPart(ctx context.Context, p Part) (Part, error)
	SetQuantity(ctx context.Context, partID, qty int64) error
	DeletePart(ctx context.Context, id int64) error

	InsertStockIn(ctx context.Context, e StockIn) (StockIn, error)

	LockStockOut(ctx context.Context, id int64) (StockOut, error)
	InsertStockOut(ctx context.Context, e StockOut) (StockOut, error)
	UpdateStockOut(ctx context.Context, e StockOut) error
	DeleteStockOut(ctx context.Context, id int64) error
}

// Reader — чтения без блокировок. Списки отсортированы по CreatedAt (новые первыми).
type Reader interface {
	GetPart(ctx context.Context, id int64) (Part, error)
	ListParts(ctx context.Context) ([]Part, error)
	ListStockIns(ctx context.Context) ([]StockInView, error)
	GetStockOut(ctx context.Context, id int64) (StockOutView, error)
	ListStockOuts(ctx context.Context, f StockOutFilter) ([]StockOutView, error)
	// Totals возвращает суммы только для запчастей, у которых есть движения.
	Totals(ctx context.Context) (map[int64]Totals, error)
}

type Store interface {
	Reader
	// WithTx выполняет fn атомарно: ошибка fn или commit откатывает все записи.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// Snapshot выполняет fn над согласованным срезом данных.
	Snapshot(ctx context.Context, fn func(r Reader) error) error
}

// Alerter получает уведомление, когда остаток опустился до порога.
type Alerter interface {
	LowStock(ctx context.Context, p Part, threshold int64) error
}

// Recorder — приёмник метрик по операциям.
type Recorder interface {
	ObserveOp(op, result string, elapsed time.Duration)
}
