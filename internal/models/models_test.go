package models

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyGroupInitialGuests(t *testing.T) {
	tests := []struct {
		name  string
		group LegacyGroup
		want  []NewGuest
	}{
		{
			name:  "count only",
			group: LegacyGroup{Name: "Friends", Count: 3},
			want: []NewGuest{
				{Name: "Guest", RSVPStatus: RSVPPending},
				{Name: "Guest", RSVPStatus: RSVPPending},
				{Name: "Guest", RSVPStatus: RSVPPending},
			},
		},
		{
			name: "explicit names win over count",
			group: LegacyGroup{Count: 5, Guests: []LegacyGuest{
				{Name: "Grandma"},
				{Name: "Uncle Joe", RSVPStatus: RSVPAttending},
			}},
			want: []NewGuest{
				{Name: "Grandma", RSVPStatus: RSVPPending},
				{Name: "Uncle Joe", RSVPStatus: RSVPAttending},
			},
		},
		{
			name:  "negative count",
			group: LegacyGroup{Count: -2},
			want:  []NewGuest{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.group.InitialGuests()); diff != "" {
				t.Errorf("InitialGuests() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLegacyGroupDefaults(t *testing.T) {
	g := LegacyGroup{Name: "  ", Category: ""}
	assert.Equal(t, "Group", g.HouseholdName())
	assert.Equal(t, DefaultHouseholdCategory, g.HouseholdCategory())

	g = LegacyGroup{Name: "Work", Category: "Colleagues"}
	assert.Equal(t, "Work", g.HouseholdName())
	assert.Equal(t, "Colleagues", g.HouseholdCategory())
}

func TestDecodeHouseholdPatch(t *testing.T) {
	p, err := DecodeHouseholdPatch(strings.NewReader(`{"name":"Smiths","invitation_sent":true}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Smiths", "invitation_sent": true}, p.Columns())

	h := Household{Name: "Smith", Category: "Family"}
	p.Apply(&h)
	assert.Equal(t, Household{Name: "Smiths", Category: "Family", InvitationSent: true}, h)

	_, err = DecodeHouseholdPatch(strings.NewReader(`{"rsvp_token":"abc"}`))
	assert.Error(t, err)

	_, err = DecodeHouseholdPatch(strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestDecodeGuestPatch(t *testing.T) {
	p, err := DecodeGuestPatch(strings.NewReader(`{"rsvp_status":"declined"}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"rsvp_status": "declined"}, p.Columns())

	_, err = DecodeGuestPatch(strings.NewReader(`{"rsvp_status":"maybe"}`))
	assert.Error(t, err)

	_, err = DecodeGuestPatch(strings.NewReader(`{"household_id":"x"}`))
	assert.Error(t, err)

	_, err = DecodeGuestPatch(strings.NewReader(`{}`))
	assert.ErrorIs(t, err, ErrEmptyPatch)
}

func TestRSVPStatus(t *testing.T) {
	assert.Equal(t, RSVPPending, RSVPStatus("").OrPending())
	assert.Equal(t, RSVPDeclined, RSVPDeclined.OrPending())
	assert.True(t, RSVPAttending.Valid())
	assert.False(t, RSVPStatus("maybe").Valid())
	assert.False(t, RSVPStatus("").Valid())
}

func TestHouseholdSummary(t *testing.T) {
	v := HouseholdView{Guests: []Guest{
		{Name: "A", RSVPStatus: RSVPAttending},
		{Name: "B", RSVPStatus: RSVPDeclined},
		{Name: "C", RSVPStatus: RSVPPending},
		{Name: "D", RSVPStatus: RSVPAttending},
	}}
	s := v.Summary()
	assert.Equal(t, RSVPSummary{Attending: 2, Declined: 1, Pending: 1}, s)
	assert.Equal(t, 4, s.Total())
	assert.True(t, v.HasPending())
	assert.Equal(t, []string{"A", "B", "C", "D"}, v.GuestNames())

	s.Merge(RSVPSummary{Pending: 3})
	assert.Equal(t, 7, s.Total())
}

func TestPlannerDataSnapshotAndClone(t *testing.T) {
	d := DefaultPlannerData()
	d.Guests = []LegacyGroup{{Name: "Friends", Count: 2}}

	c := d.Clone()
	require.NotNil(t, c)
	a, err := d.Snapshot()
	require.NoError(t, err)
	b, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c.Timeline[0].Tasks[0].Done = true
	assert.False(t, d.Timeline[0].Tasks[0].Done)
	b, _ = c.Snapshot()
	assert.NotEqual(t, a, b)

	assert.True(t, d.HasLegacyGuests())
	d.Guests = nil
	assert.False(t, d.HasLegacyGuests())

	var nilData *PlannerData
	assert.Nil(t, nilData.Clone())
	assert.False(t, nilData.HasLegacyGuests())
	snap, err := nilData.Snapshot()
	require.NoError(t, err)
	assert.Empty(t, snap)
}

func TestPlannerDataTotals(t *testing.T) {
	d := DefaultPlannerData()
	done, total := d.Progress()
	assert.Zero(t, done)
	assert.Positive(t, total)
	assert.Zero(t, d.TotalSpent())

	d.BudgetCategories[0].Spent = 1200
	d.BudgetCategories[1].Spent = 300.5
	assert.InDelta(t, 1500.5, d.TotalSpent(), 0.001)
}

func TestWeddingProfileCouple(t *testing.T) {
	var p *WeddingProfile
	assert.Equal(t, DefaultCouple, p.Couple())
	assert.Equal(t, DefaultCouple, (&WeddingProfile{PartnerNames: "  "}).Couple())
	assert.Equal(t, "Ann & Bob", (&WeddingProfile{PartnerNames: "Ann & Bob"}).Couple())
}

func TestGuestRSVPPatch(t *testing.T) {
	declined := RSVPDeclined
	r := GuestRSVP{RSVPStatus: &declined}
	require.NoError(t, r.Validate())

	g := Guest{RSVPStatus: RSVPAttending, DietaryRequirements: "vegan"}
	r.Patch().Apply(&g)
	assert.Equal(t, Guest{RSVPStatus: RSVPDeclined, DietaryRequirements: "vegan"}, g)

	assert.ErrorIs(t, GuestRSVP{}.Validate(), ErrEmptyPatch)
	maybe := RSVPStatus("maybe")
	assert.Error(t, GuestRSVP{RSVPStatus: &maybe}.Validate())
}
