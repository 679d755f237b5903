package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/repository"
	"github.com/Kerhoff/weddingplanner/internal/repository/memory"
)

func TestWords(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"  Smith   JOHN ", []string{"smith", "john"}},
		{"a Jo", []string{"jo"}},
		{"x y", []string{}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Words(tt.query)
			if len(tt.want) == 0 {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatchesAll(t *testing.T) {
	label := Label("Smith Family", []string{"John Smith", "Jane Smith"})
	assert.Equal(t, "smith family john smith jane smith", label)
	assert.True(t, MatchesAll(label, []string{"john", "smith"}))
	assert.True(t, MatchesAll(label, []string{"fam"}))
	assert.False(t, MatchesAll(label, []string{"john", "jones"}))
	assert.True(t, MatchesAll(label, nil))
}

type fixture struct {
	store   *memory.Store
	engine  *Engine
	metrics *metrics.Metrics
	couple  uuid.UUID
	other   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &fixture{store: memory.New(), metrics: metrics.New(), couple: uuid.New(), other: uuid.New()}
	f.engine = NewEngine(f.store.Search(), f.store.Guests(), f.store.Profiles(), logger, f.metrics)

	ctx := context.Background()
	_, err := f.store.Profiles().Upsert(ctx, &models.WeddingProfile{UserID: f.couple, PartnerNames: "Ann & Bob"})
	require.NoError(t, err)

	f.add(t, f.couple, "Smith Family", "John Smith", "Jane Smith")
	f.add(t, f.couple, "The Jones Family", "Alice Jones")
	f.add(t, f.other, "Brown", "Charlie Brown")
	return f
}

func (f *fixture) add(t *testing.T, owner uuid.UUID, name string, guests ...string) {
	t.Helper()
	ctx := context.Background()
	h, err := f.store.Households().Create(ctx, &models.Household{UserID: owner, Name: name})
	require.NoError(t, err)

	batch := make([]models.NewGuest, 0, len(guests))
	for _, g := range guests {
		batch = append(batch, models.NewGuest{Name: g})
	}
	_, err = f.store.Guests().CreateBatch(ctx, h.ID, batch)
	require.NoError(t, err)
}

func names(results []models.PublicHousehold) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Name)
	}
	return out
}

func TestFind(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		query string
		want  []string
	}{
		{"Smith John", []string{"Smith Family"}},
		{"john SMITH", []string{"Smith Family"}},
		{"Family", []string{"Smith Family", "The Jones Family"}},
		{"alice", []string{"The Jones Family"}},
		{"jones alice", []string{"The Jones Family"}},
		{"charlie", []string{"Brown"}},
		{"smith alice", []string{}},
		{"xyz", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			results := f.engine.Find(context.Background(), tt.query)
			assert.NotNil(t, results)
			assert.Equal(t, tt.want, names(results))
		})
	}
	assert.Equal(t, float64(len(tests)), testutil.ToFloat64(f.metrics.SearchQueries))
}

func TestFindIgnoresShortQueries(t *testing.T) {
	f := newFixture(t)

	assert.Empty(t, f.engine.Find(context.Background(), "a"))
	assert.Empty(t, f.engine.Find(context.Background(), "   "))
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.SearchQueries))
}

func TestFindAttachesGuestsAndCouple(t *testing.T) {
	f := newFixture(t)

	results := f.engine.Find(context.Background(), "jane")
	require.Len(t, results, 1)
	assert.Equal(t, "Ann & Bob", results[0].Couple)
	assert.Equal(t, []string{"John Smith", "Jane Smith"}, results[0].GuestNames())
	assert.NotEmpty(t, results[0].RSVPToken)

	results = f.engine.Find(context.Background(), "brown")
	require.Len(t, results, 1)
	assert.Equal(t, models.DefaultCouple, results[0].Couple)
}

func TestFindHonoursCandidateLimits(t *testing.T) {
	f := newFixture(t)
	f.engine.WithLimits(1, 0)

	assert.Equal(t, []string{"Smith Family"}, names(f.engine.Find(context.Background(), "family")))
	assert.Equal(t, DefaultGuestLimit, f.engine.guestLimit)
}

type failingNames struct {
	repository.SearchRepository
}

func (failingNames) HouseholdsMatchingAny(ctx context.Context, words []string, limit int) ([]*models.Household, error) {
	return nil, errors.New("statement timeout")
}

func TestFindSurvivesFailedSource(t *testing.T) {
	f := newFixture(t)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	engine := NewEngine(failingNames{f.store.Search()}, f.store.Guests(), f.store.Profiles(), logger, f.metrics)

	// household-name candidates are gone but guest matches still resolve
	assert.Equal(t, []string{"Smith Family"}, names(engine.Find(context.Background(), "john")))
	assert.Empty(t, engine.Find(context.Background(), "family"))
}
