package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("not enough quantity in stock")
	ErrConflict          = errors.New("concurrent update conflict")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Верхняя граница для NUMERIC(12,2).
var maxMoney = decimal.New(1, 10)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// checkStruct переводит ошибки validator в ErrValidation с перечнем полей.
func checkStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", field, fe.Tag()))
		}
	}
	return invalidf("%s", strings.Join(parts, "; "))
}

// checkMoney округляет до копеек и проверяет диапазон (0, 10^10).
func checkMoney(field string, d decimal.Decimal) (decimal.Decimal, error) {
	r := d.Round(2)
	if !r.IsPositive() {
		return decimal.Zero, invalidf("%s must be > 0", field)
	}
	if r.GreaterThanOrEqual(maxMoney) {
		return decimal.Zero, invalidf("%s is too large", field)
	}
	return r, nil
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ResultOf — короткая метка результата для метрик и логов.
func ResultOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
