// Package search resolves a free-text name query to invited households.
//
// Candidates are gathered broadly (any word in the household name, any word
// in a guest name) and then filtered strictly: every query word must appear
// somewhere in the household's composite label, the household name followed
// by all of its guests' names.
package search

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
)

const (
	// MinWordLength is the shortest query word taken into account
	MinWordLength = 2

	DefaultHouseholdLimit = 50
	DefaultGuestLimit     = 100

	loadConcurrency = 8
)

// Words normalizes a query into lower-case words of at least MinWordLength
func Words(query string) []string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= MinWordLength {
			words = append(words, f)
		}
	}
	return words
}

// Label builds the lower-case composite label of a household
func Label(name string, guestNames []string) string {
	parts := make([]string, 0, len(guestNames)+1)
	parts = append(parts, name)
	parts = append(parts, guestNames...)
	return strings.ToLower(strings.Join(parts, " "))
}

// MatchesAll reports whether every word is a substring of label
func MatchesAll(label string, words []string) bool {
	for _, w := range words {
		if !strings.Contains(label, w) {
			return false
		}
	}
	return true
}

type guestLister interface {
	ListByHousehold(ctx context.Context, householdID uuid.UUID) ([]*models.Guest, error)
}

type profileReader interface {
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.WeddingProfile, error)
}

// Engine runs public household searches
type Engine struct {
	repo           repository.SearchRepository
	guests         guestLister
	profiles       profileReader
	logger         *logrus.Logger
	metrics        *metrics.Metrics
	householdLimit int
	guestLimit     int
}

// NewEngine creates a search engine with the default candidate caps
func NewEngine(repo repository.SearchRepository, guests guestLister, profiles profileReader, logger *logrus.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		repo:           repo,
		guests:         guests,
		profiles:       profiles,
		logger:         logger,
		metrics:        m,
		householdLimit: DefaultHouseholdLimit,
		guestLimit:     DefaultGuestLimit,
	}
}

// WithLimits overrides the candidate caps; non-positive values keep the default
func (e *Engine) WithLimits(households, guests int) *Engine {
	if households > 0 {
		e.householdLimit = households
	}
	if guests > 0 {
		e.guestLimit = guests
	}
	return e
}

// Find returns the households whose composite label contains every query
// word. Retrieval errors are logged and treated as "no candidates from that
// source"; the search itself never fails. Results follow candidate order:
// household-name matches first, then guest-name matches.
func (e *Engine) Find(ctx context.Context, query string) []models.PublicHousehold {
	words := Words(query)
	if len(words) == 0 {
		return []models.PublicHousehold{}
	}
	e.metrics.SearchQueries.Inc()

	candidates := e.candidates(ctx, words)
	guestLists := e.loadGuests(ctx, candidates)

	results := make([]models.PublicHousehold, 0, len(candidates))
	couples := make(map[uuid.UUID]string)
	for i, h := range candidates {
		view := models.HouseholdView{Household: *h, Guests: guestLists[i]}
		if !MatchesAll(Label(h.Name, view.GuestNames()), words) {
			continue
		}
		couple, ok := couples[h.UserID]
		if !ok {
			couple = e.couple(ctx, h.UserID)
			couples[h.UserID] = couple
		}
		results = append(results, models.PublicHousehold{HouseholdView: view, Couple: couple})
	}

	e.metrics.SearchResults.Observe(float64(len(results)))
	return results
}

// candidates runs both broad queries and unions them by household id
func (e *Engine) candidates(ctx context.Context, words []string) []*models.Household {
	var (
		byName  []*models.Household
		byGuest []*models.GuestMatch
	)

	var g errgroup.Group
	g.Go(func() error {
		households, err := e.repo.HouseholdsMatchingAny(ctx, words, e.householdLimit)
		if err != nil {
			e.logger.WithError(err).Error("Household name search failed")
			return nil
		}
		byName = households
		return nil
	})
	g.Go(func() error {
		matches, err := e.repo.GuestsMatchingAny(ctx, words, e.guestLimit)
		if err != nil {
			e.logger.WithError(err).Error("Guest name search failed")
			return nil
		}
		byGuest = matches
		return nil
	})
	_ = g.Wait()

	seen := make(map[uuid.UUID]bool, len(byName)+len(byGuest))
	out := make([]*models.Household, 0, len(byName)+len(byGuest))
	for _, h := range byName {
		if !seen[h.ID] {
			seen[h.ID] = true
			out = append(out, h)
		}
	}
	for _, m := range byGuest {
		h := m.Household
		if !seen[h.ID] {
			seen[h.ID] = true
			out = append(out, &h)
		}
	}
	return out
}

// loadGuests fetches the full guest list of every candidate. A failed load
// leaves that household with no guests, so only its name can match.
func (e *Engine) loadGuests(ctx context.Context, candidates []*models.Household) [][]models.Guest {
	lists := make([][]models.Guest, len(candidates))

	var g errgroup.Group
	g.SetLimit(loadConcurrency)
	for i, h := range candidates {
		g.Go(func() error {
			guests, err := e.guests.ListByHousehold(ctx, h.ID)
			if err != nil {
				e.logger.WithError(err).WithField("household_id", h.ID).Error("Failed to load guests for search")
			}
			list := make([]models.Guest, 0, len(guests))
			for _, gu := range guests {
				list = append(list, *gu)
			}
			lists[i] = list
			return nil
		})
	}
	_ = g.Wait()
	return lists
}

func (e *Engine) couple(ctx context.Context, userID uuid.UUID) string {
	profile, err := e.profiles.GetByUser(ctx, userID)
	if err != nil {
		e.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load wedding profile for search")
		return models.DefaultCouple
	}
	return profile.Couple()
}
