package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/models"
)

const pollTimeout = 60

// Bot is the owner-facing RSVP bot
type Bot struct {
	api    *tgbotapi.BotAPI
	logger *logrus.Logger
	router *Router
}

// NewBot authorizes token against the Bot API. An empty endpoint uses
// the public Telegram API.
func NewBot(token, endpoint string, logger *logrus.Logger) (*Bot, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.WithField("account", api.Self.UserName).Info("Telegram bot authorized")
	return &Bot{api: api, logger: logger, router: NewRouter(logger)}, nil
}

// Start publishes the command menu and then long-polls for updates until
// ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	if err := b.publishCommands(); err != nil {
		b.logger.WithError(err).Warn("Failed to publish bot commands")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.api.GetUpdatesChan(u)
	b.logger.WithField("commands", len(b.router.Commands())).Info("RSVP bot polling for updates")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("RSVP bot stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(update)
		}
	}
}

// publishCommands sets the command menu shown by Telegram clients
func (b *Bot) publishCommands() error {
	commands := b.router.Commands()
	menu := make([]tgbotapi.BotCommand, 0, len(commands))
	for _, c := range commands {
		menu = append(menu, tgbotapi.BotCommand{Command: c.Name, Description: c.Description})
	}
	_, err := b.api.Request(tgbotapi.NewSetMyCommands(menu...))
	return err
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.WithField("update_id", update.UpdateID).Errorf("Panic in update handler: %v", r)
		}
	}()

	if update.Message != nil && update.Message.IsCommand() {
		b.router.HandleMessage(b.api, update.Message)
	}
}

// SendMessage sends a Markdown message to a chat
func (b *Bot) SendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
	}
	return nil
}

// NotifyRSVP tells the owner's linked chat that a household answered
func (b *Bot) NotifyRSVP(chatID int64, household *models.HouseholdView, couple string) error {
	return b.SendMessage(chatID, FormatRSVPNotice(household, couple))
}

// RegisterCommand registers a command handler on the router
func (b *Bot) RegisterCommand(command, description string, handler CommandHandler) {
	b.router.RegisterCommand(command, description, handler)
}

// Commands lists the commands registered on the bot
func (b *Bot) Commands() []Command {
	return b.router.Commands()
}

// FormatRSVPNotice renders the message sent after a household answers
func FormatRSVPNotice(household *models.HouseholdView, couple string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "💌 *New RSVP for %s*\n\n", Escape(couple))
	fmt.Fprintf(&sb, "*%s*\n", Escape(household.Name))
	for _, g := range household.Guests {
		fmt.Fprintf(&sb, "%s %s", StatusEmoji(g.RSVPStatus), Escape(g.Name))
		if g.DietaryRequirements != "" {
			fmt.Fprintf(&sb, " _(%s)_", Escape(g.DietaryRequirements))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// StatusEmoji returns an emoji representing an RSVP status
func StatusEmoji(status models.RSVPStatus) string {
	switch status {
	case models.RSVPAttending:
		return "✅"
	case models.RSVPDeclined:
		return "❌"
	default:
		return "⏳"
	}
}

// Escape escapes user text for Markdown messages
func Escape(text string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, text)
}
