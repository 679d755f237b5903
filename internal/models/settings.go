package models

import (
	"encoding/json"
	"strings"
)

// DefaultTotalBudget is the starting budget for a new planner
const DefaultTotalBudget = 17500

const (
	legacyGroupName     = "Group"
	legacyGuestName     = "Guest"
	legacyGroupCategory = DefaultHouseholdCategory
)

// PlannerData is the owner's settings payload stored as JSONB in user_data.
// Guests is the legacy embedded guest list, removed once migrated.
type PlannerData struct {
	WeddingDate      string           `json:"weddingDate"`
	PartnerNames     string           `json:"partnerNames"`
	TotalBudget      float64          `json:"totalBudget"`
	BudgetCategories []BudgetCategory `json:"budgetCategories"`
	Timeline         []TimelinePhase  `json:"timeline"`
	Guests           []LegacyGroup    `json:"guests,omitempty"`
	Notes            string           `json:"notes"`
}

// BudgetCategory is one line of the budget planner
type BudgetCategory struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Percent   float64 `json:"percent"`
	Icon      string  `json:"icon"`
	Spent     float64 `json:"spent"`
	IsDefault bool    `json:"isDefault"`
}

// TimelinePhase groups timeline tasks
type TimelinePhase struct {
	ID        string         `json:"id"`
	Phase     string         `json:"phase"`
	Color     string         `json:"color"`
	IsDefault bool           `json:"isDefault"`
	Tasks     []TimelineTask `json:"tasks"`
}

// TimelineTask is a single checklist entry
type TimelineTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// LegacyGroup is one entry of the pre-normalization guest list. Older
// payloads only carry Count; newer ones carry explicit Guests.
type LegacyGroup struct {
	ID       string        `json:"id,omitempty"`
	Name     string        `json:"name"`
	Category string        `json:"category,omitempty"`
	Count    int           `json:"count,omitempty"`
	Guests   []LegacyGuest `json:"guests,omitempty"`
}

// LegacyGuest is a named guest inside a legacy group
type LegacyGuest struct {
	Name       string     `json:"name"`
	RSVPStatus RSVPStatus `json:"rsvp_status,omitempty"`
}

// HouseholdName returns the group name, defaulting to "Group"
func (g LegacyGroup) HouseholdName() string {
	if strings.TrimSpace(g.Name) == "" {
		return legacyGroupName
	}
	return g.Name
}

// HouseholdCategory returns the group category, defaulting to "Other"
func (g LegacyGroup) HouseholdCategory() string {
	if strings.TrimSpace(g.Category) == "" {
		return legacyGroupCategory
	}
	return g.Category
}

// InitialGuests derives the guest rows for the group. An explicit guest list
// is used verbatim; otherwise Count placeholders named "Guest" are produced,
// since count-only groups never recorded names.
func (g LegacyGroup) InitialGuests() []NewGuest {
	if g.Guests != nil {
		guests := make([]NewGuest, 0, len(g.Guests))
		for _, lg := range g.Guests {
			guests = append(guests, NewGuest{Name: lg.Name, RSVPStatus: lg.RSVPStatus.OrPending()})
		}
		return guests
	}
	guests := make([]NewGuest, 0, max(g.Count, 0))
	for i := 0; i < g.Count; i++ {
		guests = append(guests, NewGuest{Name: legacyGuestName, RSVPStatus: RSVPPending})
	}
	return guests
}

// HasLegacyGuests reports whether the payload still carries the legacy blob
func (d *PlannerData) HasLegacyGuests() bool {
	return d != nil && len(d.Guests) > 0
}

// Snapshot returns the canonical serialization of the payload. Two payloads
// with equal snapshots are equal regardless of JSONB key order.
func (d *PlannerData) Snapshot() (string, error) {
	if d == nil {
		return "", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Clone returns a deep copy of the payload
func (d *PlannerData) Clone() *PlannerData {
	if d == nil {
		return nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil
	}
	var out PlannerData
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return &out
}

// DefaultPlannerData returns the payload a new owner starts with
func DefaultPlannerData() *PlannerData {
	return &PlannerData{
		TotalBudget: DefaultTotalBudget,
		BudgetCategories: []BudgetCategory{
			{ID: "b1", Name: "Venue & Rentals", Percent: 30, Icon: "🏛️", IsDefault: true},
			{ID: "b2", Name: "Catering & Bar", Percent: 25, Icon: "🍽️", IsDefault: true},
			{ID: "b3", Name: "Photography & Video", Percent: 12, Icon: "📸", IsDefault: true},
			{ID: "b4", Name: "Flowers & Decor", Percent: 8, Icon: "💐", IsDefault: true},
			{ID: "b5", Name: "Music & Entertainment", Percent: 5, Icon: "🎵", IsDefault: true},
			{ID: "b6", Name: "Attire & Beauty", Percent: 7, Icon: "👗", IsDefault: true},
			{ID: "b7", Name: "Invitations & Paper", Percent: 3, Icon: "💌", IsDefault: true},
			{ID: "b8", Name: "Officiant & License", Percent: 2, Icon: "📜", IsDefault: true},
			{ID: "b9", Name: "Transportation", Percent: 3, Icon: "🚗", IsDefault: true},
			{ID: "b10", Name: "Contingency Fund", Percent: 5, Icon: "🛟", IsDefault: true},
		},
		Timeline: []TimelinePhase{
			{ID: "p1", Phase: "Right Now (5-6 Months Out)", Color: "#c0705b", IsDefault: true, Tasks: []TimelineTask{
				{ID: "t1", Text: "Set overall budget & priorities"},
				{ID: "t2", Text: "Create guest list (aim for final count)"},
				{ID: "t3", Text: "Book venue"},
				{ID: "t4", Text: "Book officiant"},
				{ID: "t5", Text: "Book photographer & videographer"},
				{ID: "t6", Text: "Book caterer / plan menu"},
				{ID: "t7", Text: "Choose wedding party"},
			}},
			{ID: "p2", Phase: "3-4 Months Out", Color: "#c99a6b", IsDefault: true, Tasks: []TimelineTask{
				{ID: "t8", Text: "Send Save-the-Dates"},
				{ID: "t9", Text: "Book DJ / musician / entertainment"},
				{ID: "t10", Text: "Order wedding attire & begin alterations"},
				{ID: "t11", Text: "Book florist & plan arrangements"},
				{ID: "t12", Text: "Plan ceremony details & vows"},
				{ID: "t13", Text: "Arrange transportation"},
				{ID: "t14", Text: "Book hotel room block for guests"},
			}},
			{ID: "p3", Phase: "6-8 Weeks Out", Color: "#b5a36b", IsDefault: true, Tasks: []TimelineTask{
				{ID: "t15", Text: "Send formal invitations"},
				{ID: "t16", Text: "Order wedding cake / desserts"},
				{ID: "t17", Text: "Plan rehearsal dinner"},
				{ID: "t18", Text: "Purchase wedding bands"},
				{ID: "t19", Text: "Apply for marriage license"},
				{ID: "t20", Text: "Create day-of timeline for vendors"},
			}},
			{ID: "p4", Phase: "2-4 Weeks Out", Color: "#7da07d", IsDefault: true, Tasks: []TimelineTask{
				{ID: "t21", Text: "Confirm all vendor details & final payments"},
				{ID: "t22", Text: "Final dress/suit fitting"},
				{ID: "t23", Text: "Finalize seating chart"},
				{ID: "t24", Text: "Prepare welcome bags"},
				{ID: "t25", Text: "Write toasts / personal vows"},
			}},
			{ID: "p5", Phase: "Final Week", Color: "#6b8ea0", IsDefault: true, Tasks: []TimelineTask{
				{ID: "t26", Text: "Wedding rehearsal & rehearsal dinner"},
				{ID: "t27", Text: "Delegate day-of tasks to wedding party"},
				{ID: "t28", Text: "Pack for honeymoon"},
				{ID: "t29", Text: "Confirm final guest count with caterer"},
				{ID: "t30", Text: "Relax & enjoy - you've got this! ✨"},
			}},
		},
	}
}

// Progress returns completed and total timeline task counts
func (d *PlannerData) Progress() (done, total int) {
	for _, p := range d.Timeline {
		for _, t := range p.Tasks {
			total++
			if t.Done {
				done++
			}
		}
	}
	return done, total
}

// TotalSpent sums spending across budget categories
func (d *PlannerData) TotalSpent() float64 {
	var sum float64
	for _, c := range d.BudgetCategories {
		sum += c.Spent
	}
	return sum
}
