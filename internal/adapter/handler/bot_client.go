package handler

import (
	"context"
	"net/http"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// BotClient is the subset of *bot.Bot the Telegram handler uses. Tests
// substitute a recording fake.
type BotClient interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*models.Message, error)
	AnswerShippingQuery(ctx context.Context, params *bot.AnswerShippingQueryParams) (bool, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
	SetMyCommands(ctx context.Context, params *bot.SetMyCommandsParams) (bool, error)
	SetWebhook(ctx context.Context, params *bot.SetWebhookParams) (bool, error)

	// Start runs long polling until ctx is done.
	Start(ctx context.Context)

	// StartWebhook processes updates received by WebhookHandler until ctx is done.
	StartWebhook(ctx context.Context)
	WebhookHandler() http.HandlerFunc
}

var _ BotClient = (*bot.Bot)(nil)

// NewBot creates the Telegram client with every update routed to h.
func NewBot(token, webhookSecret string, h *TelegramHandler) (*bot.Bot, error) {
	opts := []bot.Option{
		bot.WithDefaultHandler(h.HandleUpdate),
	}
	if webhookSecret != "" {
		opts = append(opts, bot.WithWebhookSecretToken(webhookSecret))
	}

	b, err := bot.New(token, opts...)
	if err != nil {
		return nil, err
	}
	h.SetClient(b)
	return b, nil
}
