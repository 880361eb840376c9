package handler

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/storefront-bot/storefront/internal/core/domain"
	"github.com/storefront-bot/storefront/internal/core/service"
	"github.com/storefront-bot/storefront/internal/metrics"
	"github.com/storefront-bot/storefront/internal/port"
)

const (
	ModeLongPolling = "long_polling"
	ModeWebhook     = "webhook"

	msgInvalidData     = "Error: invalid data."
	msgCheckoutChanged = "Your cart has changed since the invoice was issued. Please check out again."
	msgUnknownInvoice  = "This invoice is no longer valid."
)

type TelegramConfig struct {
	Mode          string
	WebhookURL    string
	WebhookSecret string
	ProviderToken string
	AdminUserID   int64
}

// TelegramHandler turns Telegram updates into conversation events and sends
// the resulting replies back.
type TelegramHandler struct {
	client       BotClient
	conversation *service.ConversationService
	checkout     *service.CheckoutService
	dedupe       port.CacheRepository
	cfg          TelegramConfig
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

func NewTelegramHandler(
	conversation *service.ConversationService,
	checkout *service.CheckoutService,
	dedupe port.CacheRepository,
	cfg TelegramConfig,
	logger *slog.Logger,
	m *metrics.Metrics,
) *TelegramHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramHandler{
		conversation: conversation,
		checkout:     checkout,
		dedupe:       dedupe,
		cfg:          cfg,
		logger:       logger.With("component", "telegram"),
		metrics:      m,
	}
}

// SetClient attaches the client used for outbound calls. The bot needs the
// handler at construction time, so this happens after NewTelegramHandler.
func (h *TelegramHandler) SetClient(c BotClient) {
	h.client = c
}

// Run registers the command menu and receives updates until ctx is done.
func (h *TelegramHandler) Run(ctx context.Context) error {
	if h.client == nil {
		return errors.New("telegram client not configured")
	}
	if err := h.RegisterCommands(ctx); err != nil {
		h.logger.Warn("failed to register command menu", "error", err)
	}

	if h.cfg.Mode == ModeWebhook {
		h.logger.Info("starting webhook mode", "url", h.cfg.WebhookURL)
		_, err := h.client.SetWebhook(ctx, &bot.SetWebhookParams{
			URL:         h.cfg.WebhookURL,
			SecretToken: h.cfg.WebhookSecret,
		})
		if err != nil {
			return err
		}
		h.client.StartWebhook(ctx)
		return nil
	}

	h.logger.Info("starting long polling mode")
	h.client.Start(ctx)
	return nil
}

// RegisterCommands publishes the command menu. The admin command is only
// shown in the administrator's private chat.
func (h *TelegramHandler) RegisterCommands(ctx context.Context) error {
	if _, err := h.client.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: botCommands(false),
		Scope:    &models.BotCommandScopeDefault{},
	}); err != nil {
		return err
	}
	if h.cfg.AdminUserID == 0 {
		return nil
	}
	_, err := h.client.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: botCommands(true),
		Scope:    &models.BotCommandScopeChat{ChatID: h.cfg.AdminUserID},
	})
	return err
}

func botCommands(isAdmin bool) []models.BotCommand {
	available := service.AvailableCommands(isAdmin)
	out := make([]models.BotCommand, 0, len(available))
	for _, c := range available {
		out = append(out, models.BotCommand{Command: string(c.Command), Description: c.Description})
	}
	return out
}

// HandleUpdate is the bot's default handler.
func (h *TelegramHandler) HandleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || !h.firstDelivery(ctx, update.ID) {
		return
	}

	switch {
	case update.CallbackQuery != nil:
		h.handleCallback(ctx, update.CallbackQuery)
	case update.ShippingQuery != nil:
		h.handleShippingQuery(ctx, update.ShippingQuery)
	case update.PreCheckoutQuery != nil:
		h.handlePreCheckoutQuery(ctx, update.PreCheckoutQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		h.handlePayment(ctx, update.Message)
	case update.Message != nil:
		h.handleMessage(ctx, update.Message)
	}
}

// firstDelivery drops updates Telegram delivers more than once. When the
// dedupe store is down the update is processed anyway.
func (h *TelegramHandler) firstDelivery(ctx context.Context, updateID int64) bool {
	if h.dedupe == nil {
		return true
	}
	ok, err := h.dedupe.SetIdempotency(ctx, "update:"+strconv.FormatInt(updateID, 10))
	if err != nil {
		h.logger.Warn("update dedupe unavailable", "update_id", updateID, "error", err)
		return true
	}
	if !ok {
		h.logger.Debug("duplicate update dropped", "update_id", updateID)
	}
	return ok
}

func (h *TelegramHandler) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.Text == "" {
		return
	}

	ev := domain.Event{
		Kind:   domain.EventText,
		UserID: msg.From.ID,
		ChatID: msg.Chat.ID,
		Text:   msg.Text,
	}
	if cmd, ok := domain.ParseCommand(msg.Text); ok {
		ev.Kind = domain.EventCommand
		ev.Command = cmd
	} else if name, isCommand := strings.CutPrefix(strings.TrimSpace(msg.Text), "/"); isCommand {
		// Unknown commands still count as commands so they never feed a
		// pending numeric prompt.
		name, _, _ = strings.Cut(name, " ")
		ev.Kind = domain.EventCommand
		ev.Command = domain.Command(strings.ToLower(name))
	}

	h.render(ctx, ev.ChatID, 0, h.conversation.Handle(ctx, ev))
}

func (h *TelegramHandler) handleCallback(ctx context.Context, q *models.CallbackQuery) {
	chatID, messageID := q.From.ID, 0
	if m := q.Message.Message; m != nil {
		chatID, messageID = m.Chat.ID, m.ID
	}

	payload, err := domain.ParsePayload(q.Data)
	if err != nil {
		h.logger.Debug("rejected callback payload", "user_id", q.From.ID, "data", q.Data, "error", err)
		h.answerCallback(ctx, q.ID, msgInvalidData)
		h.send(ctx, chatID, domain.Reply{Text: msgInvalidData})
		return
	}
	h.answerCallback(ctx, q.ID, "")

	res := h.conversation.Handle(ctx, domain.Event{
		Kind:      domain.EventButton,
		UserID:    q.From.ID,
		ChatID:    chatID,
		MessageID: messageID,
		Payload:   payload,
	})
	h.render(ctx, chatID, messageID, res)
}

func (h *TelegramHandler) answerCallback(ctx context.Context, id, text string) {
	if _, err := h.client.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: id,
		Text:            text,
	}); err != nil {
		h.logger.Warn("failed to answer callback query", "error", err)
	}
}

func (h *TelegramHandler) handleShippingQuery(ctx context.Context, q *models.ShippingQuery) {
	params := &bot.AnswerShippingQueryParams{ShippingQueryID: q.ID, OK: true}
	if _, err := service.ParseInvoicePayload(q.InvoicePayload); err != nil {
		h.metrics.Checkout("shipping", "rejected")
		params.OK = false
		params.ErrorMessage = msgUnknownInvoice
	} else {
		h.metrics.Checkout("shipping", "ok")
		for _, opt := range h.checkout.ShippingOptions() {
			params.ShippingOptions = append(params.ShippingOptions, models.ShippingOption{
				ID:     opt.ID,
				Title:  opt.Title,
				Prices: []models.LabeledPrice{{Label: opt.Title, Amount: int(opt.Price)}},
			})
		}
	}

	if _, err := h.client.AnswerShippingQuery(ctx, params); err != nil {
		h.logger.Error("failed to answer shipping query", "error", err)
	}
}

func (h *TelegramHandler) handlePreCheckoutQuery(ctx context.Context, q *models.PreCheckoutQuery) {
	var userID int64
	if q.From != nil {
		userID = q.From.ID
	}

	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: true}
	err := h.checkout.ValidatePreCheckout(ctx, service.PreCheckout{
		UserID:           userID,
		Currency:         q.Currency,
		TotalAmount:      int64(q.TotalAmount),
		InvoicePayload:   q.InvoicePayload,
		ShippingOptionID: q.ShippingOptionID,
	})
	switch {
	case err == nil:
		h.metrics.Checkout("pre_checkout", "ok")
	case errors.Is(err, service.ErrCheckoutMismatch), errors.Is(err, domain.ErrEmptyCart):
		h.logger.Info("pre-checkout rejected", "user_id", userID, "reason", err)
		h.metrics.Checkout("pre_checkout", "rejected")
		params.OK = false
		params.ErrorMessage = msgCheckoutChanged
	default:
		h.logger.Error("pre-checkout validation failed", "user_id", userID, "error", err)
		h.metrics.Checkout("pre_checkout", "error")
		params.OK = false
		params.ErrorMessage = "Something went wrong, please try again later."
	}

	if _, err := h.client.AnswerPreCheckoutQuery(ctx, params); err != nil {
		h.logger.Error("failed to answer pre-checkout query", "error", err)
	}
}

func (h *TelegramHandler) handlePayment(ctx context.Context, msg *models.Message) {
	if msg.From == nil {
		return
	}
	p := msg.SuccessfulPayment
	res := h.conversation.HandlePayment(ctx, domain.Payment{
		UserID:           msg.From.ID,
		Currency:         p.Currency,
		TotalAmount:      int64(p.TotalAmount),
		InvoicePayload:   p.InvoicePayload,
		ShippingOptionID: p.ShippingOptionID,
		ProviderChargeID: p.ProviderPaymentChargeID,
		TelegramChargeID: p.TelegramPaymentChargeID,
	})
	h.render(ctx, msg.Chat.ID, 0, res)
}

// render delivers replies in order, then the invoice if there is one.
func (h *TelegramHandler) render(ctx context.Context, chatID int64, messageID int, res domain.Response) {
	for _, r := range res.Replies {
		if r.Edit && messageID != 0 {
			h.edit(ctx, chatID, messageID, r)
			continue
		}
		h.send(ctx, chatID, r)
	}

	if res.Invoice != nil {
		h.sendInvoice(ctx, chatID, *res.Invoice)
	}
}

func (h *TelegramHandler) send(ctx context.Context, chatID int64, r domain.Reply) {
	params := &bot.SendMessageParams{ChatID: chatID, Text: r.Text}
	if kb := inlineKeyboard(r.Keyboard); kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := h.client.SendMessage(ctx, params); err != nil {
		h.logger.Error("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (h *TelegramHandler) edit(ctx context.Context, chatID int64, messageID int, r domain.Reply) {
	params := &bot.EditMessageTextParams{ChatID: chatID, MessageID: messageID, Text: r.Text}
	if kb := inlineKeyboard(r.Keyboard); kb != nil {
		params.ReplyMarkup = kb
	}

	_, err := h.client.EditMessageText(ctx, params)
	switch {
	case err == nil:
	case isNotModified(err):
	default:
		h.logger.Warn("edit failed, sending a new message", "chat_id", chatID, "error", err)
		h.send(ctx, chatID, r)
	}
}

func (h *TelegramHandler) sendInvoice(ctx context.Context, chatID int64, inv domain.Invoice) {
	prices := make([]models.LabeledPrice, 0, len(inv.Prices))
	for _, p := range inv.Prices {
		prices = append(prices, models.LabeledPrice{Label: p.Label, Amount: int(p.Amount)})
	}

	_, err := h.client.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:              chatID,
		Title:               inv.Title,
		Description:         inv.Description,
		Payload:             inv.Payload,
		ProviderToken:       h.cfg.ProviderToken,
		Currency:            inv.Currency,
		Prices:              prices,
		NeedName:            inv.Requirements.Name,
		NeedPhoneNumber:     inv.Requirements.PhoneNumber,
		NeedEmail:           inv.Requirements.Email,
		NeedShippingAddress: inv.Requirements.ShippingAddress,
		IsFlexible:          inv.Flexible,
	})
	if err != nil {
		h.logger.Error("failed to send invoice", "chat_id", chatID, "error", err)
		h.metrics.Checkout("invoice_send", "error")
	}
}

func inlineKeyboard(rows [][]domain.Button) *models.InlineKeyboardMarkup {
	if len(rows) == 0 {
		return nil
	}
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: b.Text, CallbackData: b.Payload.Encode()})
		}
		kb = append(kb, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

// Telegram rejects edits that leave a message unchanged.
func isNotModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
