package ginserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"staybook/internal/app/notify"
	"staybook/internal/app/reservation"
	"staybook/internal/domain/rules"
	"staybook/internal/domain/shared/money"
	"staybook/internal/domain/unit"
	"staybook/internal/infra/config"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/storage/memory"
)

func buildTestServer(t *testing.T) http.Handler {
	t.Helper()
	engine, err := rules.NewEngine(rules.Default())
	if err != nil {
		t.Fatalf("rules.NewEngine: %v", err)
	}
	units := memory.NewUnitRepository()
	units.Seed(unit.Unit{ID: "U1", Title: "Seaside cabin", InventoryCount: 1, WeeklyRate: money.Must(70000, "EUR")})
	bookings := memory.NewBookingRepository()
	slots := memory.NewAvailabilityStore()
	now := time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

	coordinator := &reservation.Coordinator{
		Units:    units,
		Bookings: bookings,
		Slots:    slots,
		Rules:    engine,
		Outbox:   memory.NewOutbox(),
		Notifier: notify.NewHub(),
		HoldTTL:  30 * time.Minute,
		Clock:    func() time.Time { return now },
	}

	auth := AuthMiddleware{Resolver: StaticTokenResolver{Tokens: map[string]StaticPrincipal{
		"guest-token": {ID: "guest-1", Roles: []string{"guest"}},
		"admin-token": {ID: "admin-1", Roles: []string{"admin"}},
	}}}

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Reservation:    ReservationHandler{Coordinator: coordinator, Bookings: bookings, Units: units},
		Calendar:       CalendarHandler{Units: units, Slots: slots},
		Admin:          AdminHandler{Coordinator: coordinator},
		AuthMiddleware: auth.Handle,
	})
	return server.Handler
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

const holdBody = `{"unit_id":"U1","check_in":"2024-06-02T00:00:00Z","check_out":"2024-06-15T00:00:00Z"}`

func TestHoldEndpoint(t *testing.T) {
	h := buildTestServer(t)

	if resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/hold", "", holdBody); resp.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous hold = %d, want 401", resp.Code)
	}

	resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/hold", "guest-token", holdBody)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("hold = %d, body %s", resp.Code, resp.Body.String())
	}
	var out struct {
		BookingID string `json:"booking_id"`
		State     string `json:"state"`
		AmountDue int64  `json:"amount_due"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.State != "pending_payment" || out.AmountDue != 130000 || out.BookingID == "" {
		t.Fatalf("unexpected receipt %+v", out)
	}

	if resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/hold", "guest-token", holdBody); resp.Code != http.StatusConflict {
		t.Fatalf("second overlapping hold = %d, want 409", resp.Code)
	}

	shortStay := `{"unit_id":"U1","check_in":"2024-06-02T00:00:00Z","check_out":"2024-06-08T00:00:00Z"}`
	if resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/hold", "guest-token", shortStay); resp.Code != http.StatusBadRequest {
		t.Fatalf("six-night hold = %d, want 400", resp.Code)
	}
}

func TestCheckoutUnavailableWithoutProcessor(t *testing.T) {
	h := buildTestServer(t)

	resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/hold", "guest-token", holdBody)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("hold = %d", resp.Code)
	}
	var out struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// No payment processor wired in this fixture.
	if resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+out.BookingID+"/checkout", "guest-token", ""); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("checkout = %d, want 503", resp.Code)
	}
}

func TestReleaseEndpointOwnership(t *testing.T) {
	h := buildTestServer(t)

	resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/hold", "guest-token", holdBody)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("hold = %d", resp.Code)
	}
	var out struct {
		BookingID string `json:"booking_id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}

	// Admin may release a foreign booking, a missing one is 404.
	if resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/"+out.BookingID+"/release", "admin-token", ""); resp.Code != http.StatusOK {
		t.Fatalf("admin release = %d", resp.Code)
	}
	if resp := doJSON(t, h, http.MethodPost, "/api/v1/reservations/missing/release", "guest-token", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("release missing booking = %d, want 404", resp.Code)
	}
}

func TestAdminSlotsRBAC(t *testing.T) {
	h := buildTestServer(t)
	body := `{"unit_id":"U1","date":"2024-07-01","status":"HOLD"}`

	if resp := doJSON(t, h, http.MethodPost, "/api/v1/admin/slots", "guest-token", body); resp.Code != http.StatusForbidden {
		t.Fatalf("guest toggle = %d, want 403", resp.Code)
	}
	if resp := doJSON(t, h, http.MethodPost, "/api/v1/admin/slots", "admin-token", body); resp.Code != http.StatusOK {
		t.Fatalf("admin toggle = %d, want 200", resp.Code)
	}
}

func TestCalendarEndpoint(t *testing.T) {
	h := buildTestServer(t)

	if resp := doJSON(t, h, http.MethodPost, "/api/v1/admin/slots", "admin-token", `{"unit_id":"U1","date":"2024-07-01","status":"HOLD"}`); resp.Code != http.StatusOK {
		t.Fatalf("toggle = %d", resp.Code)
	}

	resp := doJSON(t, h, http.MethodGet, "/api/v1/units/U1/calendar?from=2024-06-30&to=2024-07-07", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("calendar = %d, body %s", resp.Code, resp.Body.String())
	}
	var out struct {
		Days []struct {
			Date   string `json:"date"`
			Status string `json:"status"`
		} `json:"days"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Days) != 7 {
		t.Fatalf("days = %d, want 7", len(out.Days))
	}
	for _, d := range out.Days {
		want := "AVAILABLE"
		if d.Date == "2024-07-01" {
			want = "HOLD"
		}
		if d.Status != want {
			t.Errorf("%s = %s, want %s", d.Date, d.Status, want)
		}
	}

	if resp := doJSON(t, h, http.MethodGet, "/api/v1/units/missing/calendar", "", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown unit calendar = %d, want 404", resp.Code)
	}
}
