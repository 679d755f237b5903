package telegram

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/weddingplanner/internal/models"
)

func TestFormatRSVPNotice(t *testing.T) {
	text := FormatRSVPNotice(&models.HouseholdView{
		Household: models.Household{Name: "The_Smiths"},
		Guests: []models.Guest{
			{Name: "John", RSVPStatus: models.RSVPAttending, DietaryRequirements: "vegan"},
			{Name: "Jane", RSVPStatus: models.RSVPDeclined},
			{Name: "Baby", RSVPStatus: models.RSVPPending},
		},
	}, "Ann & Bob")

	assert.Contains(t, text, "New RSVP for Ann & Bob")
	assert.Contains(t, text, `*The\_Smiths*`)
	assert.Contains(t, text, "✅ John _(vegan)_\n")
	assert.Contains(t, text, "❌ Jane\n")
	assert.Contains(t, text, "⏳ Baby\n")
}

func TestRouterCommandsSorted(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	r := NewRouter(logger)
	r.RegisterCommand("rsvps", "RSVP counts", nil)
	r.RegisterCommand("help", "Show help", nil)
	r.RegisterCommand("pending", "Unanswered households", nil)

	assert.Equal(t, []Command{
		{Name: "help", Description: "Show help"},
		{Name: "pending", Description: "Unanswered households"},
		{Name: "rsvps", Description: "RSVP counts"},
	}, r.Commands())
}
