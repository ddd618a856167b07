package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/spare-stock/internal/domain/inventory"
	"github.com/Spok95/spare-stock/internal/domain/reports"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram шлёт уведомления в админ-чат.
type Telegram struct {
	api    sender
	chatID int64
	log    *slog.Logger
}

func NewTelegram(token string, chatID int64, log *slog.Logger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	log.Info("telegram notifier ready", "bot", api.Self.UserName, "chat_id", chatID)
	return &Telegram{api: api, chatID: chatID, log: log}, nil
}

func (t *Telegram) LowStock(_ context.Context, p inventory.Part, threshold int64) error {
	_, err := t.api.Send(tgbotapi.NewMessage(t.chatID, LowStockText(p, threshold)))
	return err
}

// DailyDigest — текст с итогами и, если есть расходы, xlsx с деталями.
func (t *Telegram) DailyDigest(_ context.Context, s reports.DailySummary, xlsx []byte) error {
	if _, err := t.api.Send(tgbotapi.NewMessage(t.chatID, DigestText(s))); err != nil {
		return err
	}
	if s.Entries == 0 || len(xlsx) == 0 {
		return nil
	}
	doc := tgbotapi.NewDocument(t.chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("stock_out_%s.xlsx", s.Date.Format("20060102")),
		Bytes: xlsx,
	})
	doc.Caption = "Stock out details"
	_, err := t.api.Send(doc)
	return err
}

func LowStockText(p inventory.Part, threshold int64) string {
	if p.Quantity == 0 {
		return fmt.Sprintf("⚠️ Out of stock:\n— %s (%s), id %d", p.Name, p.Category, p.ID)
	}
	return fmt.Sprintf("⚠️ Low stock:\n— %s (%s), id %d — %d left (threshold %d)",
		p.Name, p.Category, p.ID, p.Quantity, threshold)
}

func DigestText(s reports.DailySummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Stock out for %s\n", s.Date.Format("2006-01-02"))
	if s.Entries == 0 {
		b.WriteString("No stock out recorded.")
		return b.String()
	}
	fmt.Fprintf(&b, "Entries: %d, units: %d, total: %s\n", s.Entries, s.Units, s.Revenue.StringFixed(2))
	for _, c := range s.Categories {
		fmt.Fprintf(&b, "— %s: %d pcs, %s\n", c.Category, c.Units, c.Revenue.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Nop используется, когда токен не задан.
type Nop struct{}

func (Nop) LowStock(context.Context, inventory.Part, int64) error { return nil }

func (Nop) DailyDigest(context.Context, reports.DailySummary, []byte) error { return nil }
