package bot

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/tazhate/freetime/internal/clients/caldav"
	"github.com/tazhate/freetime/internal/service"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type FreeSlotResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type FreeDayResponse struct {
	Date    string             `json:"date"`
	Weekday string             `json:"weekday"`
	Free    []FreeSlotResponse `json:"free"`
	Text    string             `json:"text,omitempty"`
}

type FreeTimeResponse struct {
	Weeks    int               `json:"weeks"`
	DayStart string            `json:"day_start"`
	DayEnd   string            `json:"day_end"`
	Timezone string            `json:"timezone"`
	Days     []FreeDayResponse `json:"days"`
}

type CalendarResponse struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Used bool   `json:"used"`
}

// SetupAPI registers API routes with Basic Auth
func (b *Bot) SetupAPI(mux *http.ServeMux) {
	if b.cfg.APIUsername == "" || b.cfg.APIPassword == "" {
		return // API disabled if no credentials
	}

	mux.HandleFunc("/api/free", b.basicAuth(b.apiFree))
	mux.HandleFunc("/api/calendars", b.basicAuth(b.apiCalendars))
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.APIUsername || password != b.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="Freetime API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// queryInt reads an optional integer query parameter, -1 when absent
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return -1, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	return n, nil
}

// GET /api/free?weeks=2&start=9&end=17 - free time per day
func (b *Bot) apiFree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var a freeArgs
	var err error
	if a.Weeks, err = queryInt(r, "weeks"); err != nil {
		b.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if a.StartHour, err = queryInt(r, "start"); err != nil {
		b.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if a.EndHour, err = queryInt(r, "end"); err != nil {
		b.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if a.Weeks < -1 || a.StartHour < -1 || a.StartHour > 23 || a.EndHour < -1 || a.EndHour > 23 {
		b.jsonError(w, "weeks must not be negative, hours must be between 0 and 23", http.StatusBadRequest)
		return
	}

	q := b.query(a)
	if err := q.Validate(); err != nil {
		b.jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	days, err := b.availability.Availability(ctx, q)
	if err != nil {
		b.jsonError(w, err.Error(), apiErrorStatus(err))
		return
	}

	resp := FreeTimeResponse{
		Weeks:    q.Weeks,
		DayStart: q.Window.Start.String(),
		DayEnd:   q.Window.End.String(),
		Timezone: b.availability.Timezone().String(),
		Days:     make([]FreeDayResponse, 0, len(days)),
	}
	for _, d := range days {
		item := FreeDayResponse{
			Date:    d.Day.String(),
			Weekday: d.Day.Time(b.availability.Timezone()).Weekday().String()[:3],
			Free:    make([]FreeSlotResponse, 0, len(d.Free)),
		}
		for _, f := range d.Free {
			item.Free = append(item.Free, FreeSlotResponse{Start: f.Start.String(), End: f.End.String()})
		}
		if line, ok := service.FormatDay(d); ok {
			item.Text = line
		}
		resp.Days = append(resp.Days, item)
	}

	b.jsonResponse(w, resp)
}

// GET /api/calendars - calendars on the CalDAV server
func (b *Bot) apiCalendars(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
	defer cancel()

	cals, err := b.availability.ListCalendars(ctx)
	if err != nil {
		b.jsonError(w, err.Error(), apiErrorStatus(err))
		return
	}

	used := make(map[string]bool, len(b.cfg.Calendars))
	for _, name := range b.cfg.Calendars {
		used[name] = true
	}

	result := make([]CalendarResponse, 0, len(cals))
	for _, c := range cals {
		result = append(result, CalendarResponse{Name: c.Name, Path: c.Path, Used: used[c.Name]})
	}

	b.jsonResponse(w, result)
}

func apiErrorStatus(err error) int {
	if errors.Is(err, caldav.ErrCalendarNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}
