package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/service"
	"github.com/Kerhoff/weddingplanner/internal/telegram"
)

// StartHandler handles the /start command
type StartHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewStartHandler creates a new start command handler
func NewStartHandler(svc *service.Service, logger *logrus.Logger) *StartHandler {
	return &StartHandler{
		svc:    svc,
		logger: logger,
	}
}

// Handle processes the /start command. It prints the chat id the owner
// stores in their wedding profile to receive RSVP notifications here.
func (h *StartHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	profile, err := h.svc.Profiles.GetByTelegramChat(context.Background(), message.Chat.ID)
	if err != nil {
		return fmt.Errorf("find linked profile: %w", err)
	}

	var text string
	if profile != nil {
		text = fmt.Sprintf("💍 *Welcome back!*\n\nThis chat receives RSVP updates for *%s*.\nUse /rsvps or /pending to check on your guests.",
			telegram.Escape(profile.Couple()))
	} else {
		text = fmt.Sprintf("💍 *Welcome to the wedding planner!*\n\n"+
			"To get RSVP updates in this chat, save this chat id as `telegram_chat_id` in your wedding profile:\n\n`%d`\n\n"+
			"Use /help to see available commands.", message.Chat.ID)
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send start message: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id": message.Chat.ID,
		"linked":  profile != nil,
	}).Info("Sent start message")

	return nil
}
