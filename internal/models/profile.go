package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCouple is shown to guests when the owner has no wedding profile
const DefaultCouple = "The Happy Couple"

// WeddingProfile is the public pairing of partner names and wedding date,
// one per owner.
type WeddingProfile struct {
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	PartnerNames   string     `json:"partner_names" db:"partner_names"`
	WeddingDate    *time.Time `json:"wedding_date" db:"wedding_date"`
	TelegramChatID *int64     `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Couple returns the partner names, or the generic label when unset
func (p *WeddingProfile) Couple() string {
	if p == nil || strings.TrimSpace(p.PartnerNames) == "" {
		return DefaultCouple
	}
	return p.PartnerNames
}
