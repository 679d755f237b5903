package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/telegram"
)

func household(name string, sent bool, statuses ...models.RSVPStatus) models.HouseholdView {
	v := models.HouseholdView{Household: models.Household{Name: name, InvitationSent: sent}}
	for i, s := range statuses {
		v.Guests = append(v.Guests, models.Guest{Name: name + string(rune('A'+i)), RSVPStatus: s})
	}
	return v
}

func TestFormatSummary(t *testing.T) {
	text := FormatSummary("Ann & Bob", []models.HouseholdView{
		household("Smith", true, models.RSVPAttending, models.RSVPAttending),
		household("Jones", true, models.RSVPDeclined, models.RSVPPending),
		household("Empty", false),
	})

	assert.Contains(t, text, "Attending: 2")
	assert.Contains(t, text, "Declined: 1")
	assert.Contains(t, text, "Pending: 1")
	assert.Contains(t, text, "1 of 3 households fully answered, 4 guests in total.")
}

func TestFormatPending(t *testing.T) {
	text := FormatPending([]models.HouseholdView{
		household("Smith", true, models.RSVPAttending),
		household("Jones", false, models.RSVPPending, models.RSVPDeclined, models.RSVPPending),
	})

	assert.Contains(t, text, "*1 households still to answer*")
	assert.Contains(t, text, "*Jones*: JonesA, JonesC _(invitation not sent)_")
	assert.NotContains(t, text, "Smith")

	assert.Equal(t, "🎉 Every household has answered!", FormatPending(nil))
}

func TestHelpText(t *testing.T) {
	text := HelpText([]telegram.Command{
		{Name: "pending", Description: "Households still to answer"},
		{Name: "rsvps", Description: "RSVP counts"},
	})
	assert.Contains(t, text, "• /pending - Households still to answer\n")
	assert.Contains(t, text, "• /rsvps - RSVP counts\n")
}
