package bot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tazhate/freetime/internal/clients/caldav"
)

func serveAPI(b *Bot, method, target string, auth bool) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	b.SetupAPI(mux)

	req := httptest.NewRequest(method, target, nil)
	if auth {
		req.SetBasicAuth("api", "secret")
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestAPI_RequiresAuth(t *testing.T) {
	b := newTestBot(t)

	rec := serveAPI(b, http.MethodGet, "/api/free", false)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Error("expected WWW-Authenticate header")
	}
}

func TestAPI_DisabledWithoutCredentials(t *testing.T) {
	b := newTestBot(t)
	b.cfg.APIPassword = ""

	rec := serveAPI(b, http.MethodGet, "/api/free", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestAPI_Free(t *testing.T) {
	b := newTestBot(t, caldav.Event{UID: "standup", StartTime: at(10, 0), EndTime: at(11, 0)})

	rec := serveAPI(b, http.MethodGet, "/api/free?weeks=0&start=9", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool             `json:"success"`
		Data    FreeTimeResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.Data.DayStart != "09:00" || resp.Data.DayEnd != "17:00" || resp.Data.Timezone != "UTC" {
		t.Errorf("unexpected window %+v", resp.Data)
	}
	if len(resp.Data.Days) != 1 {
		t.Fatalf("expected 1 day, got %d", len(resp.Data.Days))
	}

	day := resp.Data.Days[0]
	if day.Date != "2024-03-04" || day.Weekday != "Mon" {
		t.Errorf("unexpected day %+v", day)
	}
	want := []FreeSlotResponse{{"09:00", "10:00"}, {"11:00", "17:00"}}
	if len(day.Free) != len(want) || day.Free[0] != want[0] || day.Free[1] != want[1] {
		t.Errorf("free = %+v, want %+v", day.Free, want)
	}
	if day.Text != "(Mon) Mar 04, 9am-10am, 11am-5pm" {
		t.Errorf("unexpected text %q", day.Text)
	}
}

func TestAPI_FreeBadRequest(t *testing.T) {
	b := newTestBot(t)

	for _, target := range []string{
		"/api/free?weeks=x",
		"/api/free?weeks=-2",
		"/api/free?start=25",
		"/api/free?start=17&end=9",
	} {
		rec := serveAPI(b, http.MethodGet, target, true)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", target, rec.Code)
		}
	}

	rec := serveAPI(b, http.MethodPost, "/api/free", true)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestAPI_FreeUnknownCalendar(t *testing.T) {
	b := newTestBotWithCalendars(t, []string{"Missing"})

	rec := serveAPI(b, http.MethodGet, "/api/free?weeks=0", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_Calendars(t *testing.T) {
	b := newTestBot(t)

	rec := serveAPI(b, http.MethodGet, "/api/calendars", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Data []CalendarResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := []CalendarResponse{
		{Name: "Work", Path: "/cals/work/", Used: true},
		{Name: "Home & Family", Path: "/cals/home/", Used: false},
	}
	if len(resp.Data) != len(want) || resp.Data[0] != want[0] || resp.Data[1] != want[1] {
		t.Errorf("calendars = %+v, want %+v", resp.Data, want)
	}
}
