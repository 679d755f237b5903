package handlers

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/service"
	"github.com/Kerhoff/weddingplanner/internal/telegram"
)

const notLinkedText = "🔗 This chat is not linked to a wedding yet. Send /start to get the chat id to link."

// linkedHouseholds loads the households of the owner linked to chatID. A
// nil profile means the chat is not linked.
func linkedHouseholds(svc *service.Service, chatID int64) (*models.WeddingProfile, []models.HouseholdView, error) {
	ctx := context.Background()

	profile, err := svc.Profiles.GetByTelegramChat(ctx, chatID)
	if err != nil || profile == nil {
		return nil, nil, err
	}

	households, err := svc.FetchHouseholds(auth.WithUser(ctx, profile.UserID))
	if err != nil {
		return nil, nil, fmt.Errorf("fetch households: %w", err)
	}
	return profile, households, nil
}

func sendMarkdown(bot *tgbotapi.BotAPI, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// RSVPsHandler – /rsvps
// ---------------------------------------------------------------------------

// RSVPsHandler handles the /rsvps command showing answer counts
type RSVPsHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewRSVPsHandler creates a new RSVPsHandler.
func NewRSVPsHandler(svc *service.Service, logger *logrus.Logger) *RSVPsHandler {
	return &RSVPsHandler{svc: svc, logger: logger}
}

// Handle processes the /rsvps command.
func (h *RSVPsHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	profile, households, err := linkedHouseholds(h.svc, message.Chat.ID)
	if err != nil {
		return err
	}
	if profile == nil {
		return sendMarkdown(bot, message.Chat.ID, notLinkedText)
	}

	h.logger.WithFields(logrus.Fields{
		"chat_id":    message.Chat.ID,
		"user_id":    profile.UserID,
		"households": len(households),
	}).Info("Sent RSVP summary")

	return sendMarkdown(bot, message.Chat.ID, FormatSummary(profile.Couple(), households))
}

// FormatSummary renders the RSVP counts over all households
func FormatSummary(couple string, households []models.HouseholdView) string {
	var total models.RSVPSummary
	answered := 0
	for _, h := range households {
		s := h.Summary()
		total.Merge(s)
		if s.Total() > 0 && s.Pending == 0 {
			answered++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📋 *RSVPs for %s*\n\n", telegram.Escape(couple))
	fmt.Fprintf(&sb, "%s Attending: %d\n", telegram.StatusEmoji(models.RSVPAttending), total.Attending)
	fmt.Fprintf(&sb, "%s Declined: %d\n", telegram.StatusEmoji(models.RSVPDeclined), total.Declined)
	fmt.Fprintf(&sb, "%s Pending: %d\n\n", telegram.StatusEmoji(models.RSVPPending), total.Pending)
	fmt.Fprintf(&sb, "%d of %d households fully answered, %d guests in total.", answered, len(households), total.Total())
	return sb.String()
}

// ---------------------------------------------------------------------------
// PendingHandler – /pending
// ---------------------------------------------------------------------------

// PendingHandler handles the /pending command listing unanswered households
type PendingHandler struct {
	svc    *service.Service
	logger *logrus.Logger
}

// NewPendingHandler creates a new PendingHandler.
func NewPendingHandler(svc *service.Service, logger *logrus.Logger) *PendingHandler {
	return &PendingHandler{svc: svc, logger: logger}
}

// Handle processes the /pending command.
func (h *PendingHandler) Handle(bot *tgbotapi.BotAPI, message *tgbotapi.Message, args []string) error {
	profile, households, err := linkedHouseholds(h.svc, message.Chat.ID)
	if err != nil {
		return err
	}
	if profile == nil {
		return sendMarkdown(bot, message.Chat.ID, notLinkedText)
	}

	return sendMarkdown(bot, message.Chat.ID, FormatPending(households))
}

// FormatPending lists households that still have unanswered guests
func FormatPending(households []models.HouseholdView) string {
	var sb strings.Builder
	count := 0
	for _, h := range households {
		if !h.HasPending() {
			continue
		}
		count++
		var waiting []string
		for _, g := range h.Guests {
			if g.RSVPStatus == models.RSVPPending {
				waiting = append(waiting, telegram.Escape(g.Name))
			}
		}
		fmt.Fprintf(&sb, "⏳ *%s*: %s", telegram.Escape(h.Name), strings.Join(waiting, ", "))
		if !h.InvitationSent {
			sb.WriteString(" _(invitation not sent)_")
		}
		sb.WriteString("\n")
	}

	if count == 0 {
		return "🎉 Every household has answered!"
	}
	return fmt.Sprintf("📬 *%d households still to answer*\n\n", count) + sb.String()
}
