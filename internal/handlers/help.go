package handlers

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/telegram"
)

type commandLister interface {
	Commands() []telegram.Command
}

// HelpHandler handles the /help command
type HelpHandler struct {
	commands commandLister
	logger   *logrus.Logger
}

func NewHelpHandler(commands commandLister, logger *logrus.Logger) *HelpHandler {
	return &HelpHandler{commands: commands, logger: logger}
}

func (h *HelpHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	msg := tgbotapi.NewMessage(message.Chat.ID, HelpText(h.commands.Commands()))
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := bot.Send(msg)
	if err != nil {
		return fmt.Errorf("failed to send help message: %w", err)
	}

	h.logger.WithField("chat_id", message.Chat.ID).Info("Sent help message")

	return nil
}

// HelpText renders the command list
func HelpText(commands []telegram.Command) string {
	var sb strings.Builder
	sb.WriteString("📚 *Wedding Planner Help*\n\n")
	for _, c := range commands {
		fmt.Fprintf(&sb, "• /%s - %s\n", c.Name, telegram.Escape(c.Description))
	}
	return sb.String()
}
