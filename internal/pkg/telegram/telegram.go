package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ManuelReschke/PayFox/app/models"
	"github.com/ManuelReschke/PayFox/internal/pkg/env"
	"github.com/ManuelReschke/PayFox/internal/pkg/statistics"
)

const defaultAPIBaseURL = "https://api.telegram.org"

const defaultTemplate = "🆕 NEW PAYMENT at {service_name}\n\n" +
	"💫 Current Transaction:\n" +
	"━━━━━━━━━━━━━━━━━━━━\n" +
	"💰 Amount: {amount} {currency}\n" +
	"🆔 Payment ID: {payment_id}\n" +
	"📅 Time: {create_time}\n" +
	"✅ Status: {status}\n\n" +
	"📊 Rolling Stats:\n" +
	"━━━━━━━━━━━━━━━━━━━━\n" +
	"📈 24h: {payments_24h} payments / {amount_24h}\n" +
	"📈 7d: {payments_7d} payments / {amount_7d}\n" +
	"📈 28d: {payments_28d} payments / {amount_28d}"

// Notifier relays payment alerts to a Telegram chat. Delivery is strictly
// best-effort; an unconfigured notifier is a silent no-op.
type Notifier struct {
	BotToken    string
	ChatID      string
	ServiceName string
	Template    string

	APIBaseURL string

	HTTPClient *http.Client
}

func NewNotifierFromEnv() *Notifier {
	template := env.GetEnv("TELEGRAM_MESSAGE_TEMPLATE", "")
	if strings.TrimSpace(template) == "" {
		template = defaultTemplate
	}
	return &Notifier{
		BotToken:    strings.TrimSpace(env.GetEnv("TELEGRAM_BOT_TOKEN", "")),
		ChatID:      strings.TrimSpace(env.GetEnv("TELEGRAM_CHAT_ID", "")),
		ServiceName: env.GetEnv("SERVICE_NAME", "PayFox"),
		Template:    template,
		APIBaseURL:  strings.TrimRight(env.GetEnv("TELEGRAM_API_BASE_URL", defaultAPIBaseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Render substitutes {key} placeholders with their mapped values. Keys
// without a mapping are left verbatim so a template typo is visible in the
// delivered message instead of silently vanishing.
func Render(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	return out
}

// Dispatch renders the configured template from the payment and snapshot
// and sends it. The returned error is informational only; callers log and
// swallow it, the ingestion response never depends on delivery.
func (n *Notifier) Dispatch(ctx context.Context, payment *models.Payment, snap statistics.Snapshot) error {
	text := Render(n.Template, map[string]string{
		"service_name": n.ServiceName,
		"amount":       formatAmount(payment.Amount),
		"currency":     payment.Currency,
		"payment_id":   payment.PaymentID,
		"create_time":  payment.CreateTime,
		"status":       payment.Status,
		"payments_24h": strconv.FormatInt(snap.Last24h.Count, 10),
		"amount_24h":   formatAmount(snap.Last24h.Sum),
		"payments_7d":  strconv.FormatInt(snap.Last7d.Count, 10),
		"amount_7d":    formatAmount(snap.Last7d.Sum),
		"payments_28d": strconv.FormatInt(snap.Last28d.Count, 10),
		"amount_28d":   formatAmount(snap.Last28d.Sum),
	})
	return n.Send(ctx, text)
}

// Send posts a message to the configured chat. When bot token or chat id is
// unset the call is a no-op by design.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if n.BotToken == "" || n.ChatID == "" {
		return nil
	}

	form := url.Values{}
	form.Set("chat_id", n.ChatID)
	form.Set("text", text)
	form.Set("parse_mode", "HTML")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.APIBaseURL, n.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telegram sendMessage failed: status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
