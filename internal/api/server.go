package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/net/websocket"

	"github.com/Kerhoff/weddingplanner/internal/auth"
	"github.com/Kerhoff/weddingplanner/internal/models"
	"github.com/Kerhoff/weddingplanner/internal/realtime"
	"github.com/Kerhoff/weddingplanner/internal/repository"
	"github.com/Kerhoff/weddingplanner/internal/search"
	"github.com/Kerhoff/weddingplanner/internal/service"
)

const (
	maxBodyBytes = 1 << 20
	qrSize       = 256
	dateLayout   = "2006-01-02"
)

// Server provides the owner API, the public guest endpoints and the live
// workspace stream.
type Server struct {
	svc           *service.Service
	search        *search.Engine
	hub           *realtime.Hub
	verifier      *auth.Verifier
	logger        *logrus.Logger
	publicBaseURL string
	health        func(context.Context) error
	mux           *http.ServeMux
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, engine *search.Engine, hub *realtime.Hub, verifier *auth.Verifier, logger *logrus.Logger, publicBaseURL string) *Server {
	s := &Server{
		svc:           svc,
		search:        engine,
		hub:           hub,
		verifier:      verifier,
		logger:        logger,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Owner – households and guests
	s.mux.Handle("GET /api/households", s.owner(s.handleListHouseholds))
	s.mux.Handle("POST /api/households", s.owner(s.handleCreateHousehold))
	s.mux.Handle("PATCH /api/households/{id}", s.owner(s.handleUpdateHousehold))
	s.mux.Handle("DELETE /api/households/{id}", s.owner(s.handleDeleteHousehold))
	s.mux.Handle("POST /api/households/{id}/guests", s.owner(s.handleAddGuest))
	s.mux.Handle("PATCH /api/guests/{id}", s.owner(s.handleUpdateGuest))
	s.mux.Handle("DELETE /api/guests/{id}", s.owner(s.handleRemoveGuest))

	// Owner – settings, profile, migration
	s.mux.Handle("GET /api/settings", s.owner(s.handleGetSettings))
	s.mux.Handle("PUT /api/settings", s.owner(s.handleSaveSettings))
	s.mux.Handle("DELETE /api/settings", s.owner(s.handleResetSettings))
	s.mux.Handle("GET /api/profile", s.owner(s.handleGetProfile))
	s.mux.Handle("PUT /api/profile", s.owner(s.handleSaveProfile))
	s.mux.Handle("POST /api/migrate-legacy", s.owner(s.handleMigrateLegacy))

	// Owner – live workspace
	s.mux.Handle("GET /api/live", s.verifier.Middleware(websocket.Server{Handler: s.handleLive}))

	// Public – guests
	s.mux.HandleFunc("GET /public/search", s.handleSearch)
	s.mux.HandleFunc("GET /public/rsvp/{token}", s.handleGetRSVP)
	s.mux.HandleFunc("POST /public/rsvp/{token}", s.handleSubmitRSVP)
	s.mux.HandleFunc("GET /public/invite/{token}", s.handleInvitation)
	s.mux.HandleFunc("GET /public/invite/{token}/qr.png", s.handleInviteQR)

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

func (s *Server) owner(h http.HandlerFunc) http.Handler {
	return s.verifier.Middleware(h)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

type partialResponse struct {
	Error  string `json:"error"`
	Total  int    `json:"total"`
	Failed int    `json:"failed"`
	Result any    `json:"result,omitempty"`
}

// respondServiceError maps the service error taxonomy to a status code.
// The service layer has already logged the failure.
func (s *Server) respondServiceError(w http.ResponseWriter, err error, message string, result any) {
	var partial *service.PartialWriteError
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		s.respondError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &partial):
		s.respondJSON(w, http.StatusMultiStatus, partialResponse{
			Error:  message,
			Total:  partial.Total,
			Failed: partial.Failed,
			Result: result,
		})
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrRejected):
		s.respondError(w, http.StatusConflict, message)
	default:
		s.respondError(w, http.StatusInternalServerError, message)
	}
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathID extracts the {id} path value and parses it as a UUID.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("missing id in path")
	}
	return uuid.Parse(raw)
}

// ---------------------------------------------------------------------------
// Households
// ---------------------------------------------------------------------------

type createHouseholdRequest struct {
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Guests   []models.NewGuest `json:"guests"`
}

type addGuestRequest struct {
	Name string `json:"name"`
}

// handleListHouseholds degrades to an empty list when the backend fails
func (s *Server) handleListHouseholds(w http.ResponseWriter, r *http.Request) {
	households, err := s.svc.FetchHouseholds(r.Context())
	if errors.Is(err, service.ErrUnauthenticated) {
		s.respondServiceError(w, err, "", nil)
		return
	}
	s.respondJSON(w, http.StatusOK, households)
}

func (s *Server) handleCreateHousehold(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	view, err := s.svc.CreateHousehold(r.Context(), req.Name, req.Category, req.Guests)
	if err != nil {
		s.respondServiceError(w, err, "failed to create household", view)
		return
	}

	s.respondJSON(w, http.StatusCreated, view)
}

func (s *Server) handleUpdateHousehold(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid household id")
		return
	}
	patch, err := models.DecodeHouseholdPatch(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.UpdateHousehold(r.Context(), id, patch); err != nil {
		s.respondServiceError(w, err, "failed to update household", nil)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteHousehold(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid household id")
		return
	}

	if err := s.svc.DeleteHousehold(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to delete household", nil)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleAddGuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid household id")
		return
	}
	var req addGuestRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	guest, err := s.svc.AddGuest(r.Context(), id, req.Name)
	if err != nil {
		s.respondServiceError(w, err, "failed to add guest", nil)
		return
	}

	s.respondJSON(w, http.StatusCreated, guest)
}

func (s *Server) handleUpdateGuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid guest id")
		return
	}
	patch, err := models.DecodeGuestPatch(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.UpdateGuest(r.Context(), id, patch); err != nil {
		s.respondServiceError(w, err, "failed to update guest", nil)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleRemoveGuest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid guest id")
		return
	}

	if err := s.svc.RemoveGuest(r.Context(), id); err != nil {
		s.respondServiceError(w, err, "failed to remove guest", nil)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

// ---------------------------------------------------------------------------
// Settings, profile, migration
// ---------------------------------------------------------------------------

type profileRequest struct {
	PartnerNames   string `json:"partner_names"`
	WeddingDate    string `json:"wedding_date"`
	TelegramChatID *int64 `json:"telegram_chat_id"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	data, err := s.svc.LoadSettings(r.Context())
	if err != nil {
		s.respondServiceError(w, err, "failed to load settings", nil)
		return
	}
	if data == nil {
		data = models.DefaultPlannerData()
	}

	s.respondJSON(w, http.StatusOK, data)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var data models.PlannerData
	if ok, msg := s.decodeJSON(r, &data); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	if err := s.svc.SaveSettings(r.Context(), &data); err != nil {
		s.respondServiceError(w, err, "failed to save settings", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.ResetSettings(r.Context()); err != nil {
		s.respondServiceError(w, err, "failed to reset settings", nil)
		return
	}

	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	profile, err := s.svc.FetchWeddingProfile(r.Context(), userID)
	if err != nil {
		s.respondServiceError(w, err, "failed to load profile", nil)
		return
	}
	if profile == nil {
		s.respondError(w, http.StatusNotFound, "no wedding profile yet")
		return
	}

	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	var weddingDate *time.Time
	if req.WeddingDate != "" {
		t, err := time.Parse(dateLayout, req.WeddingDate)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "wedding_date must be YYYY-MM-DD")
			return
		}
		weddingDate = &t
	}

	profile, err := s.svc.SaveWeddingProfile(r.Context(), req.PartnerNames, weddingDate, req.TelegramChatID)
	if err != nil {
		s.respondServiceError(w, err, "failed to save profile", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleMigrateLegacy(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.MigrateLegacySettings(r.Context())
	if err != nil && len(report.Groups) == 0 {
		s.respondServiceError(w, err, "failed to migrate legacy guests", nil)
		return
	}
	if err != nil {
		s.respondJSON(w, http.StatusMultiStatus, report)
		return
	}

	s.respondJSON(w, http.StatusOK, report)
}

// ---------------------------------------------------------------------------
// Live workspace
// ---------------------------------------------------------------------------

type liveMessage struct {
	Type     string              `json:"type"`
	ID       uuid.UUID           `json:"id"`
	Patch    json.RawMessage     `json:"patch,omitempty"`
	Settings *models.PlannerData `json:"settings,omitempty"`
}

type liveEvent struct {
	Type  string          `json:"type"`
	State *realtime.State `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// handleLive streams the owner's workspace state and accepts local edits.
// Edits are applied optimistically and written in the background of the
// workspace; settings edits are autosaved after a quiet period.
func (s *Server) handleLive(conn *websocket.Conn) {
	defer conn.Close()

	ctx := conn.Request().Context()
	userID, ok := auth.UserID(ctx)
	if !ok {
		return
	}

	ws, release := s.hub.Acquire(ctx, userID)
	defer release()
	updates, cancel := ws.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg liveMessage
			if err := websocket.JSON.Receive(conn, &msg); err != nil {
				return
			}
			if err := s.applyLive(ctx, ws, msg); err != nil {
				_ = websocket.JSON.Send(conn, liveEvent{Type: "error", Error: err.Error()})
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(conn, liveEvent{Type: "state", State: &state}); err != nil {
				s.logger.WithError(err).WithField("user_id", userID).Debug("Live client went away")
				return
			}
		}
	}
}

func (s *Server) applyLive(ctx context.Context, ws *realtime.Workspace, msg liveMessage) error {
	switch msg.Type {
	case "update_guest":
		patch, err := models.DecodeGuestPatch(bytes.NewReader(msg.Patch))
		if err != nil {
			return err
		}
		return ws.UpdateGuest(ctx, msg.ID, patch)
	case "update_household":
		patch, err := models.DecodeHouseholdPatch(bytes.NewReader(msg.Patch))
		if err != nil {
			return err
		}
		return ws.UpdateHousehold(ctx, msg.ID, patch)
	case "edit_settings":
		if msg.Settings == nil {
			return fmt.Errorf("settings are required")
		}
		ws.EditSettings(func(d *models.PlannerData) { *d = *msg.Settings })
		return nil
	case "refresh":
		ws.Refresh(ctx)
		return nil
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// ---------------------------------------------------------------------------
// Public guest endpoints
// ---------------------------------------------------------------------------

type rsvpRequest struct {
	Guests []models.GuestRSVP `json:"guests"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.search.Find(r.Context(), r.URL.Query().Get("q")))
}

func (s *Server) handleGetRSVP(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.FetchByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.respondServiceError(w, err, "failed to load invitation", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitRSVP(w http.ResponseWriter, r *http.Request) {
	var req rsvpRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}
	if len(req.Guests) == 0 {
		s.respondError(w, http.StatusBadRequest, "at least one guest answer is required")
		return
	}

	if err := s.svc.SubmitRSVPByToken(r.Context(), r.PathValue("token"), req.Guests); err != nil {
		s.respondServiceError(w, err, "some answers were not saved, please try again", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"status": "received"})
}

func (s *Server) handleInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := s.svc.FetchInvitation(r.Context(), r.PathValue("token"))
	if err != nil {
		s.respondServiceError(w, err, "failed to load invitation", nil)
		return
	}

	s.respondJSON(w, http.StatusOK, inv)
}

// InviteURL returns the public invite link for a token
func (s *Server) InviteURL(token string) string {
	return s.publicBaseURL + "/invite/" + url.PathEscape(token)
}

func (s *Server) handleInviteQR(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.FetchByToken(r.Context(), r.PathValue("token"))
	if err != nil {
		s.respondServiceError(w, err, "failed to load invitation", nil)
		return
	}

	png, err := qrcode.Encode(s.InviteURL(view.RSVPToken), qrcode.Medium, qrSize)
	if err != nil {
		s.logger.WithError(err).Error("failed to render invite QR code")
		s.respondError(w, http.StatusInternalServerError, "failed to render QR code")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// SetHealthCheck makes /healthz report the result of check
func (s *Server) SetHealthCheck(check func(context.Context) error) {
	s.health = check
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.logger.WithError(err).Warn("Health check failed")
			s.respondError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
