package inventory

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
)

// Registry — справочник запчастей. Остаток меняет только Ledger (и начальный приход при создании).
type Registry struct {
	store Store
	opts  options
}

func NewRegistry(store Store, opts ...Option) *Registry {
	return &Registry{store: store, opts: buildOptions(opts)}
}

// Create регистрирует запчасть. Начальное количество > 0 оформляется приходом в той же транзакции.
func (r *Registry) Create(ctx context.Context, in NewPart) (p Part, err error) {
	defer r.opts.observe("create_part", time.Now(), &err)

	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if err = checkStruct(in); err != nil {
		return Part{}, err
	}
	price, err := checkMoney("unitPrice", in.UnitPrice)
	if err != nil {
		return Part{}, err
	}

	now := r.opts.now()
	err = r.store.WithTx(ctx, func(tx Tx) error {
		created, err := tx.InsertPart(ctx, Part{
			Name:      in.Name,
			Category:  in.Category,
			UnitPrice: price,
			CreatedAt: now,
		})
		if err != nil {
			return err
		}
		if in.Quantity > 0 {
			if _, err := tx.InsertStockIn(ctx, StockIn{PartID: created.ID, Quantity: in.Quantity, CreatedAt: now}); err != nil {
				return err
			}
			if err := adjustQuantity(ctx, tx, &created, in.Quantity); err != nil {
				return err
			}
		}
		p = created
		return nil
	})
	if err != nil {
		return Part{}, fmt.Errorf("create part: %w", err)
	}
	r.opts.log.Info("part created", "part_id", p.ID, "name", p.Name, "quantity", p.Quantity)
	return p, nil
}

func (r *Registry) Get(ctx context.Context, id int64) (Part, error) {
	p, err := r.store.GetPart(ctx, id)
	if err != nil {
		return Part{}, fmt.Errorf("get part %d: %w", id, err)
	}
	return p, nil
}

func (r *Registry) List(ctx context.Context) ([]Part, error) {
	return r.store.ListParts(ctx)
}

// Delete удаляет запчасть вместе со всеми её приходами и расходами.
func (r *Registry) Delete(ctx context.Context, id int64) (err error) {
	defer r.opts.observe("delete_part", time.Now(), &err)

	err = r.store.WithTx(ctx, func(tx Tx) error {
		if _, err := tx.LockPart(ctx, id); err != nil {
			return err
		}
		return tx.DeletePart(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete part %d: %w", id, err)
	}
	r.opts.log.Info("part deleted", "part_id", id)
	return nil
}

// adjustQuantity меняет остаток заблокированной запчасти внутри tx.
// Отрицательный результат не пишется: возвращается ErrInsufficientStock.
func adjustQuantity(ctx context.Context, tx Tx, p *Part, delta int64) error {
	if delta > 0 && p.Quantity > math.MaxInt64-delta {
		return invalidf("quantity overflow for part %d", p.ID)
	}
	next := p.Quantity + delta
	if next < 0 {
		return fmt.Errorf("%w: part %d has %d, requested %d", ErrInsufficientStock, p.ID, p.Quantity, -delta)
	}
	if err := tx.SetQuantity(ctx, p.ID, next); err != nil {
		return err
	}
	p.Quantity = next
	return nil
}
