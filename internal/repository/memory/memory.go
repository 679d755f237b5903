// Package memory implements the repository interfaces on in-process maps.
// It backs service, search and API tests and supports fault injection on
// writes.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

// FaultFunc may fail a write before it is applied. op names the operation,
// e.g. "guests.update_rsvp", and id is the row being written.
type FaultFunc func(op string, id uuid.UUID) error

// Store holds every table in memory
type Store struct {
	mu         sync.Mutex
	households map[uuid.UUID]models.Household
	guests     map[uuid.UUID]models.Guest
	profiles   map[uuid.UUID]models.WeddingProfile
	settings   map[uuid.UUID]*models.PlannerData
	clock      time.Time
	fault      FaultFunc
}

// New creates an empty store
func New() *Store {
	return &Store{
		households: make(map[uuid.UUID]models.Household),
		guests:     make(map[uuid.UUID]models.Guest),
		profiles:   make(map[uuid.UUID]models.WeddingProfile),
		settings:   make(map[uuid.UUID]*models.PlannerData),
		clock:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// SetFault installs f on every subsequent write; nil removes it
func (s *Store) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

// Households returns the household repository view of the store
func (s *Store) Households() *HouseholdRepository { return &HouseholdRepository{s} }

// Guests returns the guest repository view of the store
func (s *Store) Guests() *GuestRepository { return &GuestRepository{s} }

// Search returns the search repository view of the store
func (s *Store) Search() *SearchRepository { return &SearchRepository{s} }

// Profiles returns the profile repository view of the store
func (s *Store) Profiles() *ProfileRepository { return &ProfileRepository{s} }

// Settings returns the settings repository view of the store
func (s *Store) Settings() *SettingsRepository { return &SettingsRepository{s} }

// tick returns strictly increasing timestamps so creation order is stable
func (s *Store) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *Store) check(op string, id uuid.UUID) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, id)
}

func (s *Store) guestsOf(householdID uuid.UUID) []models.Guest {
	out := []models.Guest{}
	for _, g := range s.guests {
		if g.HouseholdID == householdID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) sortedHouseholds(keep func(models.Household) bool) []models.Household {
	out := []models.Household{}
	for _, h := range s.households {
		if keep(h) {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) owns(householdID, userID uuid.UUID) bool {
	h, ok := s.households[householdID]
	return ok && h.UserID == userID
}

// HouseholdRepository implements repository.HouseholdRepository
type HouseholdRepository struct{ s *Store }

var _ repository.HouseholdRepository = (*HouseholdRepository)(nil)

func (r *HouseholdRepository) Create(ctx context.Context, household *models.Household) (*models.Household, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h := *household
	h.ID = uuid.New()
	if err := r.s.check("households.create", h.ID); err != nil {
		return nil, err
	}
	if h.Category == "" {
		h.Category = models.DefaultHouseholdCategory
	}
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	h.RSVPToken = hex.EncodeToString(b)
	h.CreatedAt = r.s.tick()
	r.s.households[h.ID] = h
	return &h, nil
}

func (r *HouseholdRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.HouseholdView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var views []*models.HouseholdView
	for _, h := range r.s.sortedHouseholds(func(h models.Household) bool { return h.UserID == userID }) {
		views = append(views, &models.HouseholdView{Household: h, Guests: r.s.guestsOf(h.ID)})
	}
	return views, nil
}

func (r *HouseholdRepository) GetByToken(ctx context.Context, token string) (*models.HouseholdView, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, h := range r.s.households {
		if h.RSVPToken == token {
			return &models.HouseholdView{Household: h, Guests: r.s.guestsOf(h.ID)}, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *HouseholdRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Household, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.households[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &h, nil
}

func (r *HouseholdRepository) Update(ctx context.Context, id, userID uuid.UUID, patch models.HouseholdPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("households.update", id); err != nil {
		return err
	}
	if !r.s.owns(id, userID) {
		return repository.ErrNotFound
	}
	h := r.s.households[id]
	patch.Apply(&h)
	r.s.households[id] = h
	return nil
}

func (r *HouseholdRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("households.delete", id); err != nil {
		return err
	}
	if !r.s.owns(id, userID) {
		return repository.ErrNotFound
	}
	delete(r.s.households, id)
	for gid, g := range r.s.guests {
		if g.HouseholdID == id {
			delete(r.s.guests, gid)
		}
	}
	return nil
}

// GuestRepository implements repository.GuestRepository
type GuestRepository struct{ s *Store }

var _ repository.GuestRepository = (*GuestRepository)(nil)

func (r *GuestRepository) insert(householdID uuid.UUID, name string, status models.RSVPStatus) models.Guest {
	g := models.Guest{
		ID:          uuid.New(),
		HouseholdID: householdID,
		Name:        name,
		RSVPStatus:  status.OrPending(),
		CreatedAt:   r.s.tick(),
	}
	r.s.guests[g.ID] = g
	return g
}

func (r *GuestRepository) CreateBatch(ctx context.Context, householdID uuid.UUID, guests []models.NewGuest) ([]*models.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("guests.create_batch", householdID); err != nil {
		return nil, err
	}
	if _, ok := r.s.households[householdID]; !ok {
		return nil, repository.ErrRejected
	}
	out := make([]*models.Guest, 0, len(guests))
	for _, ng := range guests {
		g := r.insert(householdID, ng.Name, ng.RSVPStatus)
		out = append(out, &g)
	}
	return out, nil
}

func (r *GuestRepository) Create(ctx context.Context, householdID, userID uuid.UUID, name string) (*models.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("guests.create", householdID); err != nil {
		return nil, err
	}
	if !r.s.owns(householdID, userID) {
		return nil, repository.ErrNotFound
	}
	g := r.insert(householdID, name, models.RSVPPending)
	return &g, nil
}

func (r *GuestRepository) ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*models.Guest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Guest
	for _, g := range r.s.guestsOf(householdID) {
		out = append(out, &g)
	}
	return out, nil
}

func (r *GuestRepository) Update(ctx context.Context, id, userID uuid.UUID, patch models.GuestPatch) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("guests.update", id); err != nil {
		return err
	}
	g, ok := r.s.guests[id]
	if !ok || !r.s.owns(g.HouseholdID, userID) {
		return repository.ErrNotFound
	}
	patch.Apply(&g)
	r.s.guests[id] = g
	return nil
}

func (r *GuestRepository) UpdateRSVP(ctx context.Context, householdID uuid.UUID, rsvp models.GuestRSVP) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("guests.update_rsvp", rsvp.ID); err != nil {
		return err
	}
	if err := rsvp.Validate(); err != nil {
		return err
	}
	g, ok := r.s.guests[rsvp.ID]
	if !ok || g.HouseholdID != householdID {
		return repository.ErrNotFound
	}
	rsvp.Patch().Apply(&g)
	r.s.guests[rsvp.ID] = g
	return nil
}

func (r *GuestRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("guests.delete", id); err != nil {
		return err
	}
	g, ok := r.s.guests[id]
	if !ok || !r.s.owns(g.HouseholdID, userID) {
		return repository.ErrNotFound
	}
	delete(r.s.guests, id)
	return nil
}

// SearchRepository implements repository.SearchRepository with the same
// case-insensitive substring semantics as ILIKE '%word%'.
type SearchRepository struct{ s *Store }

var _ repository.SearchRepository = (*SearchRepository)(nil)

func containsAny(value string, words []string) bool {
	value = strings.ToLower(value)
	for _, w := range words {
		if strings.Contains(value, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

func (r *SearchRepository) HouseholdsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.Household, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []*models.Household
	for _, h := range r.s.sortedHouseholds(func(h models.Household) bool { return containsAny(h.Name, words) }) {
		if len(out) == limit {
			break
		}
		out = append(out, &h)
	}
	return out, nil
}

func (r *SearchRepository) GuestsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.GuestMatch, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var guests []models.Guest
	for _, g := range r.s.guests {
		if containsAny(g.Name, words) {
			guests = append(guests, g)
		}
	}
	sort.Slice(guests, func(i, j int) bool { return guests[i].CreatedAt.Before(guests[j].CreatedAt) })

	var out []*models.GuestMatch
	for _, g := range guests {
		if len(out) == limit {
			break
		}
		out = append(out, &models.GuestMatch{Guest: g, Household: r.s.households[g.HouseholdID]})
	}
	return out, nil
}

// ProfileRepository implements repository.ProfileRepository
type ProfileRepository struct{ s *Store }

var _ repository.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) Upsert(ctx context.Context, profile *models.WeddingProfile) (*models.WeddingProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("profiles.upsert", profile.UserID); err != nil {
		return nil, err
	}
	p := *profile
	p.UpdatedAt = r.s.tick()
	r.s.profiles[p.UserID] = p
	return &p, nil
}

func (r *ProfileRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*models.WeddingProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProfileRepository) GetByTelegramChat(ctx context.Context, chatID int64) (*models.WeddingProfile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.profiles {
		if p.TelegramChatID != nil && *p.TelegramChatID == chatID {
			return &p, nil
		}
	}
	return nil, nil
}

// SettingsRepository implements repository.SettingsRepository
type SettingsRepository struct{ s *Store }

var _ repository.SettingsRepository = (*SettingsRepository)(nil)

func (r *SettingsRepository) Load(ctx context.Context, userID uuid.UUID) (*models.PlannerData, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.settings[userID].Clone(), nil
}

func (r *SettingsRepository) Save(ctx context.Context, userID uuid.UUID, data *models.PlannerData) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("settings.save", userID); err != nil {
		return err
	}
	r.s.settings[userID] = data.Clone()
	return nil
}

func (r *SettingsRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.s.check("settings.delete", userID); err != nil {
		return err
	}
	delete(r.s.settings, userID)
	return nil
}
