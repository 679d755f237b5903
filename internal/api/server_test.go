package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/metrics"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/realtime"
	"github.com/Kerhoff/weddingplanner/internal/repository/memory"
	"github.com/Kerhoff/weddingplanner/internal/search"
	"github.com/Kerhoff/weddingplanner/internal/service"
)

type testEnv struct {
	store  *memory.Store
	server *httptest.Server
	owner  uuid.UUID
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	m := metrics.New()
	store := memory.New()
	svc := service.New(logger, m, store.Households(), store.Guests(), store.Profiles(), store.Settings())
	engine := search.NewEngine(store.Search(), store.Guests(), store.Profiles(), logger, m)
	hub := realtime.NewHub(svc, logger, m, time.Hour)
	verifier := auth.NewVerifier("test-secret")

	srv := NewServer(svc, engine, hub, verifier, logger, "https://wedding.example/")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	owner := uuid.New()
	token, err := verifier.Issue(owner, time.Hour)
	require.NoError(t, err)

	return &testEnv{store: store, server: ts, owner: owner, token: token}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) createHousehold(t *testing.T, name string, guests ...string) models.HouseholdView {
	t.Helper()
	req := createHouseholdRequest{Name: name, Category: "Family"}
	for _, g := range guests {
		req.Guests = append(req.Guests, models.NewGuest{Name: g})
	}
	resp := e.do(t, http.MethodPost, "/api/households", req, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.HouseholdView](t, resp)
}

func status(s models.RSVPStatus) *models.RSVPStatus {
	return &s
}

func TestOwnerRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/households", nil, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/healthz", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHealthReportsDatabase(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	srv := NewServer(nil, nil, nil, auth.NewVerifier("x"), logger, "")

	down := errors.New("connection refused")
	srv.SetHealthCheck(func(context.Context) error { return down })
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv.SetHealthCheck(func(context.Context) error { return nil })
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHouseholdLifecycle(t *testing.T) {
	env := newTestEnv(t)

	created := env.createHousehold(t, "Smith Family", "John Smith", "Jane Smith")
	assert.Len(t, created.RSVPToken, 32)
	require.Len(t, created.Guests, 2)
	assert.Equal(t, models.RSVPPending, created.Guests[0].RSVPStatus)

	resp := env.do(t, http.MethodGet, "/api/households", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]models.HouseholdView](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"John Smith", "Jane Smith"}, list[0].GuestNames())

	path := "/api/households/" + created.ID.String()
	resp = env.do(t, http.MethodPatch, path, `{"rsvp_token":"stolen"}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, path, `{"invitation_sent":true}`, true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path+"/guests", addGuestRequest{Name: "Baby Smith"}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	guest := decode[models.Guest](t, resp)

	resp = env.do(t, http.MethodPatch, "/api/guests/"+guest.ID.String(), `{"rsvp_status":"maybe"}`, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/guests/"+guest.ID.String(), nil, true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, path, nil, true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodDelete, path, nil, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListHouseholdsDegradesToEmpty(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/households", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.HouseholdView](t, resp))
}

func TestPublicRSVPPartialFailure(t *testing.T) {
	env := newTestEnv(t)
	created := env.createHousehold(t, "Jones", "Alice Jones", "Bob Jones")
	first, second := created.Guests[0], created.Guests[1]

	resp := env.do(t, http.MethodGet, "/public/rsvp/"+created.RSVPToken, nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env.store.SetFault(func(op string, id uuid.UUID) error {
		if op == "guests.update_rsvp" && id == second.ID {
			return errors.New("connection reset")
		}
		return nil
	})

	resp = env.do(t, http.MethodPost, "/public/rsvp/"+created.RSVPToken, rsvpRequest{Guests: []models.GuestRSVP{
		{ID: first.ID, RSVPStatus: status(models.RSVPAttending)},
		{ID: second.ID, RSVPStatus: status(models.RSVPDeclined)},
	}}, false)
	require.Equal(t, http.StatusMultiStatus, resp.StatusCode)
	partial := decode[partialResponse](t, resp)
	assert.Equal(t, 2, partial.Total)
	assert.Equal(t, 1, partial.Failed)

	env.store.SetFault(nil)
	resp = env.do(t, http.MethodGet, "/public/rsvp/"+created.RSVPToken, nil, false)
	view := decode[models.HouseholdView](t, resp)
	assert.Equal(t, models.RSVPAttending, view.Guests[0].RSVPStatus)
	assert.Equal(t, models.RSVPPending, view.Guests[1].RSVPStatus)

	resp = env.do(t, http.MethodGet, "/public/rsvp/not-a-token", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPublicRSVPRejectsForeignGuest(t *testing.T) {
	env := newTestEnv(t)
	mine := env.createHousehold(t, "Smith", "John Smith")
	other := env.createHousehold(t, "Jones", "Alice Jones")

	resp := env.do(t, http.MethodPost, "/public/rsvp/"+mine.RSVPToken, rsvpRequest{Guests: []models.GuestRSVP{
		{ID: other.Guests[0].ID, RSVPStatus: status(models.RSVPDeclined)},
	}}, false)
	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)
}

func TestPublicRSVPWritesOnlySentFields(t *testing.T) {
	env := newTestEnv(t)
	created := env.createHousehold(t, "Smith", "John Smith")
	guestID := created.Guests[0].ID.String()
	path := "/public/rsvp/" + created.RSVPToken

	resp := env.do(t, http.MethodPost, path, map[string]any{"guests": []map[string]any{
		{"id": guestID, "rsvp_status": "attending", "dietary_requirements": "vegan"},
	}}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path, map[string]any{"guests": []map[string]any{
		{"id": guestID, "rsvp_status": "declined"},
	}}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, path, map[string]any{"guests": []map[string]any{
		{"id": guestID},
	}}, false)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, path, nil, false)
	view := decode[models.HouseholdView](t, resp)
	assert.Equal(t, models.RSVPDeclined, view.Guests[0].RSVPStatus)
	assert.Equal(t, "vegan", view.Guests[0].DietaryRequirements)
}

func TestPublicSearch(t *testing.T) {
	env := newTestEnv(t)
	env.createHousehold(t, "Smith Family", "John Smith")
	env.createHousehold(t, "Jones Family", "Alice Jones")

	resp := env.do(t, http.MethodGet, "/public/search?q=Smith+John", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := decode[[]models.PublicHousehold](t, resp)
	require.Len(t, results, 1)
	assert.Equal(t, "Smith Family", results[0].Name)
	assert.Equal(t, models.DefaultCouple, results[0].Couple)

	resp = env.do(t, http.MethodGet, "/public/search?q=family", nil, false)
	assert.Len(t, decode[[]models.PublicHousehold](t, resp), 2)

	resp = env.do(t, http.MethodGet, "/public/search?q=x", nil, false)
	assert.Empty(t, decode[[]models.PublicHousehold](t, resp))
}

func TestInvitationAndQRCode(t *testing.T) {
	env := newTestEnv(t)
	created := env.createHousehold(t, "Smith", "John Smith")

	resp := env.do(t, http.MethodPut, "/api/profile", profileRequest{PartnerNames: "Ann & Bob", WeddingDate: "2025-06-21"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/public/invite/"+created.RSVPToken, nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	inv := decode[models.Invitation](t, resp)
	assert.Equal(t, "Ann & Bob", inv.Couple)
	require.NotNil(t, inv.WeddingDate)
	assert.Equal(t, "2025-06-21", inv.WeddingDate.Format(dateLayout))

	resp = env.do(t, http.MethodGet, "/public/invite/"+created.RSVPToken+"/qr.png", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	magic := make([]byte, 8)
	_, err := resp.Body.Read(magic)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), magic)

	resp = env.do(t, http.MethodPut, "/api/profile", profileRequest{WeddingDate: "21/06/2025"}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSettingsAndLegacyMigration(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/settings", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defaults := decode[models.PlannerData](t, resp)
	assert.Equal(t, float64(models.DefaultTotalBudget), defaults.TotalBudget)

	legacy := models.DefaultPlannerData()
	legacy.Guests = []models.LegacyGroup{
		{Name: "Friends", Count: 3},
		{Name: "Family", Guests: []models.LegacyGuest{{Name: "Grandma"}}},
	}
	resp = env.do(t, http.MethodPut, "/api/settings", legacy, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/migrate-legacy", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[service.MigrationReport](t, resp)
	require.Len(t, report.Groups, 2)
	assert.Equal(t, service.GroupMigrated, report.Groups[1].Status)

	resp = env.do(t, http.MethodGet, "/api/households", nil, true)
	list := decode[[]models.HouseholdView](t, resp)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Guest", "Guest", "Guest"}, list[0].GuestNames())
	assert.Equal(t, []string{"Grandma"}, list[1].GuestNames())

	resp = env.do(t, http.MethodGet, "/api/settings", nil, true)
	assert.Empty(t, decode[models.PlannerData](t, resp).Guests)

	resp = env.do(t, http.MethodDelete, "/api/settings", nil, true)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLiveStreamsWorkspaceState(t *testing.T) {
	env := newTestEnv(t)
	env.createHousehold(t, "Smith", "John Smith")

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/api/live?access_token=" + env.token
	conn, err := websocket.Dial(wsURL, "", env.server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var event liveEvent
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	assert.Equal(t, "state", event.Type)
	require.NotNil(t, event.State)
	require.Len(t, event.State.Households, 1)

	guestID := event.State.Households[0].Guests[0].ID
	require.NoError(t, websocket.JSON.Send(conn, liveMessage{
		Type:  "update_guest",
		ID:    guestID,
		Patch: json.RawMessage(`{"rsvp_status":"attending"}`),
	}))
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	assert.Equal(t, models.RSVPAttending, event.State.Households[0].Guests[0].RSVPStatus)

	require.NoError(t, websocket.JSON.Send(conn, liveMessage{Type: "bogus"}))
	require.NoError(t, websocket.JSON.Receive(conn, &event))
	assert.Equal(t, "error", event.Type)
}
