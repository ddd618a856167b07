package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger — единственное место, где меняется Part.Quantity после создания запчасти.
// Каждая операция: блокировка строки запчасти, проверка, запись движения и нового
// остатка в одной транзакции.
type Ledger struct {
	store Store
	opts  options
}

func NewLedger(store Store, opts ...Option) *Ledger {
	return &Ledger{store: store, opts: buildOptions(opts)}
}

type movement struct {
	PartID   int64 `validate:"gt=0"`
	Quantity int64 `validate:"gt=0"`
}

func (l *Ledger) RecordStockIn(ctx context.Context, partID, qty int64) (e StockIn, err error) {
	defer l.opts.observe("stock_in", time.Now(), &err)

	if err = checkStruct(movement{PartID: partID, Quantity: qty}); err != nil {
		return StockIn{}, err
	}

	err = l.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockPart(ctx, partID)
		if err != nil {
			return err
		}
		if err := adjustQuantity(ctx, tx, &p, qty); err != nil {
			return err
		}
		e, err = tx.InsertStockIn(ctx, StockIn{PartID: partID, Quantity: qty, CreatedAt: l.opts.now()})
		return err
	})
	if err != nil {
		return StockIn{}, fmt.Errorf("stock in part %d: %w", partID, err)
	}
	l.opts.log.Info("stock in recorded", "entry_id", e.ID, "part_id", partID, "qty", qty)
	return e, nil
}

func (l *Ledger) RecordStockOut(ctx context.Context, partID, qty int64, unitPrice decimal.Decimal) (e StockOut, err error) {
	defer l.opts.observe("stock_out", time.Now(), &err)

	if err = checkStruct(movement{PartID: partID, Quantity: qty}); err != nil {
		return StockOut{}, err
	}
	price, err := checkMoney("unitPrice", unitPrice)
	if err != nil {
		return StockOut{}, err
	}

	var after Part
	err = l.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockPart(ctx, partID)
		if err != nil {
			return err
		}
		if err := adjustQuantity(ctx, tx, &p, -qty); err != nil {
			return err
		}
		e, err = tx.InsertStockOut(ctx, StockOut{
			PartID:    partID,
			Quantity:  qty,
			UnitPrice: price,
			CreatedAt: l.opts.now(),
		})
		after = p
		return err
	})
	if err != nil {
		return StockOut{}, fmt.Errorf("stock out part %d: %w", partID, err)
	}
	l.opts.log.Info("stock out recorded", "entry_id", e.ID, "part_id", partID, "qty", qty, "left", after.Quantity)
	l.maybeAlert(ctx, after)
	return e, nil
}

// UpdateStockOut переписывает количество и цену расхода. Разница diff = new - old
// списывается с остатка; при diff > 0 остатка должно хватать.
func (l *Ledger) UpdateStockOut(ctx context.Context, id, qty int64, unitPrice decimal.Decimal) (e StockOut, err error) {
	defer l.opts.observe("update_stock_out", time.Now(), &err)

	if qty <= 0 {
		return StockOut{}, invalidf("quantity must be > 0")
	}
	price, err := checkMoney("unitPrice", unitPrice)
	if err != nil {
		return StockOut{}, err
	}

	var (
		after Part
		diff  int64
	)
	err = l.store.WithTx(ctx, func(tx Tx) error {
		cur, err := tx.LockStockOut(ctx, id)
		if err != nil {
			return err
		}
		p, err := tx.LockPart(ctx, cur.PartID)
		if err != nil {
			return err
		}
		diff = qty - cur.Quantity
		if diff != 0 {
			if err := adjustQuantity(ctx, tx, &p, -diff); err != nil {
				return err
			}
		}
		cur.Quantity = qty
		cur.UnitPrice = price
		if err := tx.UpdateStockOut(ctx, cur); err != nil {
			return err
		}
		e = cur
		after = p
		return nil
	})
	if err != nil {
		return StockOut{}, fmt.Errorf("update stock out %d: %w", id, err)
	}
	l.opts.log.Info("stock out updated", "entry_id", id, "part_id", e.PartID, "diff", diff, "left", after.Quantity)
	if diff > 0 {
		l.maybeAlert(ctx, after)
	}
	return e, nil
}

// DeleteStockOut удаляет расход и возвращает его количество на склад.
func (l *Ledger) DeleteStockOut(ctx context.Context, id int64) (err error) {
	defer l.opts.observe("delete_stock_out", time.Now(), &err)

	var cur StockOut
	err = l.store.WithTx(ctx, func(tx Tx) error {
		var err error
		cur, err = tx.LockStockOut(ctx, id)
		if err != nil {
			return err
		}
		p, err := tx.LockPart(ctx, cur.PartID)
		if err != nil {
			return err
		}
		if err := tx.DeleteStockOut(ctx, id); err != nil {
			return err
		}
		return adjustQuantity(ctx, tx, &p, cur.Quantity)
	})
	if err != nil {
		return fmt.Errorf("delete stock out %d: %w", id, err)
	}
	l.opts.log.Info("stock out deleted", "entry_id", id, "part_id", cur.PartID, "restored", cur.Quantity)
	return nil
}

func (l *Ledger) GetStockOut(ctx context.Context, id int64) (StockOutView, error) {
	v, err := l.store.GetStockOut(ctx, id)
	if err != nil {
		return StockOutView{}, fmt.Errorf("get stock out %d: %w", id, err)
	}
	return v, nil
}

func (l *Ledger) ListStockOuts(ctx context.Context) ([]StockOutView, error) {
	return l.store.ListStockOuts(ctx, StockOutFilter{})
}

func (l *Ledger) ListStockIns(ctx context.Context) ([]StockInView, error) {
	return l.store.ListStockIns(ctx)
}

// maybeAlert срабатывает уже после commit: ошибка уведомления операцию не отменяет.
func (l *Ledger) maybeAlert(ctx context.Context, p Part) {
	if l.opts.alerter == nil || p.Quantity > l.opts.threshold {
		return
	}
	if err := l.opts.alerter.LowStock(ctx, p, l.opts.threshold); err != nil {
		l.opts.log.Error("low stock alert failed", "part_id", p.ID, "err", err)
	}
}
