package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"timesheet/backend/internal/db"
	"timesheet/backend/internal/handler"
	"timesheet/backend/internal/i18n"
	"timesheet/backend/internal/model"
	"timesheet/backend/internal/repository"
	"timesheet/backend/internal/router"
	"timesheet/backend/internal/service"
	"timesheet/backend/internal/timesheet"
	"timesheet/backend/internal/writeback"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID           string `json:"id"`
		PrimaryEmail string `json:"primaryEmail"`
		DisplayName  string `json:"displayName"`
	} `json:"user"`
}

type dayEnvelope struct {
	Day struct {
		Date          string `json:"date"`
		TimeIntervals []struct {
			ID        string `json:"id"`
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
		} `json:"timeIntervals"`
		AllowanceCount float64 `json:"allowanceCount"`
		IsNightStay    bool    `json:"isNightStay"`
		VacationType   string  `json:"vacationType"`
		HourBreakdown  struct {
			Normal    float64 `json:"normal"`
			Saturday  float64 `json:"saturday"`
			Sunday    float64 `json:"sunday"`
			Extra     float64 `json:"extra"`
			NightStay float64 `json:"nightStay"`
			Total     float64 `json:"total"`
		} `json:"hourBreakdown"`
		TotalEarnings string `json:"totalEarnings"`
		SaveError     string `json:"saveError"`
	} `json:"day"`
}

type monthEnvelope struct {
	MonthlyHours struct {
		Normal float64 `json:"normal"`
		Extra  float64 `json:"extra"`
		Total  float64 `json:"total"`
	} `json:"monthlyHours"`
	MonthlyEarnings   string           `json:"monthlyEarnings"`
	MonthlyAllowances *json.RawMessage `json:"monthlyAllowances"`
	MonthlyNightStays *json.RawMessage `json:"monthlyNightStays"`
	Days              []struct {
		Date string `json:"date"`
	} `json:"days"`
	UnsavedDays []string `json:"unsavedDays"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			Dates []string `json:"dates"`
		} `json:"details"`
	} `json:"error"`
}

// flakyDays fails every save while down is set.
type flakyDays struct {
	*repository.DayRepository

	mu   sync.Mutex
	down bool
}

func (f *flakyDays) setDown(down bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = down
}

func (f *flakyDays) SaveDay(ctx context.Context, userID, date string, rec model.DayRecord) error {
	f.mu.Lock()
	down := f.down
	f.mu.Unlock()
	if down {
		return errors.New("database is locked")
	}
	return f.DayRepository.SaveDay(ctx, userID, date, rec)
}

func TestDayEditingAndMonthSummary(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "worker@example.com", "123456")

	status, body := requestJSON(t, server, http.MethodPatch, "/api/rates", user.Token, map[string]interface{}{
		"extraRate":     15,
		"allowanceRate": 20,
		"nightStayRate": 40,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on rates patch, got %d: %s", status, string(body))
	}

	// Wednesday with two intervals: 8 normal + 2 extra.
	status, body = requestJSON(t, server, http.MethodPut, "/api/days/2026-10-14", user.Token, map[string]interface{}{
		"timeIntervals": []map[string]string{
			{"id": "a", "startTime": "08:00", "endTime": "14:00"},
			{"id": "b", "startTime": "15:00", "endTime": "19:00"},
		},
		"allowanceCount": 1.5,
		"isNightStay":    true,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on day put, got %d: %s", status, string(body))
	}
	var day dayEnvelope
	decode(t, body, &day)
	if day.Day.HourBreakdown.Normal != 8 || day.Day.HourBreakdown.Extra != 2 {
		t.Fatalf("unexpected breakdown: %+v", day.Day.HourBreakdown)
	}
	if day.Day.HourBreakdown.Total != 10 || day.Day.HourBreakdown.NightStay != 10 {
		t.Fatalf("unexpected totals: %+v", day.Day.HourBreakdown)
	}
	// 2*15 + 1.5*20 + 40
	if day.Day.TotalEarnings != "100" {
		t.Fatalf("expected earnings 100, got %s", day.Day.TotalEarnings)
	}

	status, body = requestJSON(t, server, http.MethodPost, "/api/days/2026-10-15/intervals", user.Token, nil)
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on add interval, got %d: %s", status, string(body))
	}
	var added struct {
		Interval struct {
			ID string `json:"id"`
		} `json:"interval"`
	}
	decode(t, body, &added)
	status, body = requestJSON(t, server, http.MethodPatch, "/api/days/2026-10-15/intervals/"+added.Interval.ID, user.Token, map[string]string{
		"startTime": "09:00",
		"endTime":   "12:00",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on interval patch, got %d: %s", status, string(body))
	}

	status, body = requestJSON(t, server, http.MethodGet, "/api/months/2026/10", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 for month, got %d: %s", status, string(body))
	}
	var month monthEnvelope
	decode(t, body, &month)
	if month.MonthlyHours.Normal != 11 || month.MonthlyHours.Extra != 2 || month.MonthlyHours.Total != 13 {
		t.Fatalf("unexpected monthly hours: %+v", month.MonthlyHours)
	}
	if month.MonthlyEarnings != "100" {
		t.Fatalf("expected monthly earnings 100, got %s", month.MonthlyEarnings)
	}
	if month.MonthlyAllowances == nil || month.MonthlyNightStays == nil {
		t.Fatal("expected allowance and night-stay totals while the features are on")
	}
	if len(month.Days) != 2 || month.Days[0].Date != "2026-10-14" {
		t.Fatalf("unexpected month days: %+v", month.Days)
	}

	status, _ = requestJSON(t, server, http.MethodPatch, "/api/rates", user.Token, map[string]bool{
		"hasAllowance": false,
		"hasNightStay": false,
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on toggle patch, got %d", status)
	}
	_, body = requestJSON(t, server, http.MethodGet, "/api/months/2026/10", user.Token, nil)
	month = monthEnvelope{}
	decode(t, body, &month)
	if month.MonthlyAllowances != nil || month.MonthlyNightStays != nil {
		t.Fatal("expected allowance and night-stay totals to be omitted")
	}
}

func TestSavedDaysSurviveSync(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "sync@example.com", "123456")

	status, body := requestJSON(t, server, http.MethodPut, "/api/days/2026-10-17/vacation", user.Token, map[string]string{
		"vacationType": "full_day",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on vacation, got %d: %s", status, string(body))
	}

	status, body = requestJSON(t, server, http.MethodPost, "/api/sync", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on sync, got %d: %s", status, string(body))
	}

	// The cache is gone after sync; this read comes from the database.
	status, body = requestJSON(t, server, http.MethodGet, "/api/days/2026-10-17", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on day get, got %d", status)
	}
	var day dayEnvelope
	decode(t, body, &day)
	if day.Day.VacationType != "full_day" || day.Day.HourBreakdown.Saturday != 8 {
		t.Fatalf("expected stored full-day vacation, got %+v", day.Day)
	}

	status, body = requestJSON(t, server, http.MethodGet, "/api/years/2026/vacations.ics", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on ics, got %d", status)
	}
	if !strings.Contains(string(body), "DTSTART;VALUE=DATE:20261017") {
		t.Fatalf("expected vacation event in calendar, got %s", string(body))
	}

	// Calendar subscriptions pass the token in the query string.
	status, _ = requestJSON(t, server, http.MethodGet, "/api/years/2026/vacations.ics?token="+user.Token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on ics with query token, got %d", status)
	}
	status, _ = requestJSON(t, server, http.MethodPost, "/api/sync?token="+user.Token, "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token on POST, got %d", status)
	}

	status, _ = requestJSON(t, server, http.MethodDelete, "/api/days/2026-10-17", user.Token, nil)
	if status != http.StatusNoContent {
		t.Fatalf("expected 204 on clear, got %d", status)
	}
	requestJSON(t, server, http.MethodPost, "/api/sync", user.Token, nil)
	_, body = requestJSON(t, server, http.MethodGet, "/api/years/2026/vacations", user.Token, nil)
	var stats struct {
		TotalVacationDays     float64 `json:"totalVacationDays"`
		RemainingVacationDays float64 `json:"remainingVacationDays"`
	}
	decode(t, body, &stats)
	if stats.TotalVacationDays != 0 || stats.RemainingVacationDays != 22 {
		t.Fatalf("expected cleared vacation, got %+v", stats)
	}
}

func TestFailedSaveKeepsEditsAcrossSync(t *testing.T) {
	var days *flakyDays
	server := setupTestServerWithDays(t, func(repo *repository.DayRepository) timesheet.DayStore {
		days = &flakyDays{DayRepository: repo}
		return days
	})
	user := registerUser(t, server, "flaky@example.com", "123456")

	days.setDown(true)
	status, body := requestJSON(t, server, http.MethodPut, "/api/days/2026-10-12", user.Token, map[string]interface{}{
		"timeIntervals": []map[string]string{{"id": "a", "startTime": "09:00", "endTime": "17:00"}},
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on day put, got %d: %s", status, string(body))
	}

	status, body = requestJSON(t, server, http.MethodPost, "/api/sync", user.Token, nil)
	if status != http.StatusBadGateway {
		t.Fatalf("expected 502 on sync with failing store, got %d: %s", status, string(body))
	}
	var syncErr apiErrorEnvelope
	decode(t, body, &syncErr)
	if syncErr.Error.Code != "save_failed" || len(syncErr.Error.Details.Dates) != 1 || syncErr.Error.Details.Dates[0] != "2026-10-12" {
		t.Fatalf("unexpected sync error: %+v", syncErr.Error)
	}

	_, body = requestJSON(t, server, http.MethodGet, "/api/days/2026-10-12", user.Token, nil)
	var day dayEnvelope
	decode(t, body, &day)
	if day.Day.TimeIntervals[0].StartTime != "09:00" || day.Day.HourBreakdown.Total != 8 {
		t.Fatalf("expected the unsaved edit to survive sync, got %+v", day.Day)
	}
	if day.Day.SaveError == "" {
		t.Fatal("expected the day to report its failed save")
	}

	_, body = requestJSON(t, server, http.MethodGet, "/api/months/2026/10", user.Token, nil)
	var month monthEnvelope
	decode(t, body, &month)
	if len(month.UnsavedDays) != 1 || month.UnsavedDays[0] != "2026-10-12" {
		t.Fatalf("expected unsaved day in month payload, got %v", month.UnsavedDays)
	}

	days.setDown(false)
	status, body = requestJSON(t, server, http.MethodPost, "/api/sync", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 once the store recovers, got %d: %s", status, string(body))
	}

	// Read back from the database after the cache was dropped.
	_, body = requestJSON(t, server, http.MethodGet, "/api/days/2026-10-12", user.Token, nil)
	day = dayEnvelope{}
	decode(t, body, &day)
	if day.Day.SaveError != "" || day.Day.TimeIntervals[0].EndTime != "17:00" {
		t.Fatalf("expected stored day without save error, got %+v", day.Day)
	}
}

func TestQueryTokenOnlyForCalendarFeed(t *testing.T) {
	var logged bytes.Buffer
	previous := gin.DefaultWriter
	gin.DefaultWriter = &logged
	t.Cleanup(func() { gin.DefaultWriter = previous })

	server := setupTestServer(t)
	user := registerUser(t, server, "feed@example.com", "123456")

	status, _ := requestJSON(t, server, http.MethodGet, "/api/rates?token="+user.Token, "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token on rates, got %d", status)
	}
	status, _ = requestJSON(t, server, http.MethodGet, "/api/years/2026/vacations?token="+user.Token, "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for query token on vacations, got %d", status)
	}
	status, body := requestJSON(t, server, http.MethodGet, "/api/years/2026/vacations.ics?token="+user.Token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on ics with query token, got %d: %s", status, string(body))
	}

	if !strings.Contains(logged.String(), "/api/years/2026/vacations.ics") {
		t.Fatalf("expected the feed request in the access log, got %q", logged.String())
	}
	if strings.Contains(logged.String(), user.Token) {
		t.Fatal("access log contains the bearer token")
	}
}

func TestUserIsolation(t *testing.T) {
	server := setupTestServer(t)
	user1 := registerUser(t, server, "user1@example.com", "123456")
	user2 := registerUser(t, server, "user2@example.com", "123456")

	requestJSON(t, server, http.MethodPut, "/api/days/2026-10-14/allowance", user1.Token, map[string]float64{"allowanceCount": 2})
	requestJSON(t, server, http.MethodPost, "/api/sync", user1.Token, nil)

	_, body := requestJSON(t, server, http.MethodGet, "/api/days/2026-10-14", user2.Token, nil)
	var day dayEnvelope
	decode(t, body, &day)
	if day.Day.AllowanceCount != 0 {
		t.Fatalf("user2 sees user1 allowance: %v", day.Day.AllowanceCount)
	}

	status, body := requestJSON(t, server, http.MethodGet, "/api/auth/me", user2.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on me, got %d", status)
	}
	var me struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, body, &me)
	if me.User.ID != user2.User.ID {
		t.Fatalf("expected %s, got %s", user2.User.ID, me.User.ID)
	}
}

func TestValidationErrors(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "errors@example.com", "123456")

	cases := []struct {
		method, path string
		body         interface{}
		status       int
		code         string
	}{
		{http.MethodGet, "/api/days/2026-02-30", nil, http.StatusBadRequest, "invalid_date"},
		{http.MethodPut, "/api/days/2026-10-14/allowance", map[string]float64{"allowanceCount": 0.3}, http.StatusBadRequest, "invalid_allowance"},
		{http.MethodPut, "/api/days/2026-10-14/vacation", map[string]string{"vacationType": "sabbatical"}, http.StatusBadRequest, "invalid_vacation_type"},
		{http.MethodDelete, "/api/days/2026-10-14/intervals/missing", nil, http.StatusNotFound, "interval_not_found"},
		{http.MethodPatch, "/api/rates", map[string]int{"paymentType": 13}, http.StatusBadRequest, "invalid_rates"},
		{http.MethodGet, "/api/months/2026/13", nil, http.StatusBadRequest, "invalid_date"},
	}
	for _, tc := range cases {
		status, body := requestJSON(t, server, tc.method, tc.path, user.Token, tc.body)
		if status != tc.status {
			t.Fatalf("%s %s: expected %d, got %d: %s", tc.method, tc.path, tc.status, status, string(body))
		}
		var resp apiErrorEnvelope
		decode(t, body, &resp)
		if resp.Error.Code != tc.code {
			t.Fatalf("%s %s: expected %s, got %s", tc.method, tc.path, tc.code, resp.Error.Code)
		}
	}

	status, _ := requestJSON(t, server, http.MethodGet, "/api/rates", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", status)
	}
}

func TestMonthCSVExport(t *testing.T) {
	server := setupTestServer(t)
	user := registerUser(t, server, "csv@example.com", "123456")

	requestJSON(t, server, http.MethodPut, "/api/days/2026-10-18", user.Token, map[string]interface{}{
		"timeIntervals": []map[string]string{{"id": "a", "startTime": "10:00", "endTime": "13:30"}},
	})

	status, body := requestJSON(t, server, http.MethodGet, "/api/months/2026/10/export.csv", user.Token, nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on csv, got %d", status)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", lines)
	}
	if !strings.HasPrefix(lines[0], "Fecha,") {
		t.Fatalf("expected spanish header, got %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2026-10-18,0.00,0.00,3.50,") {
		t.Fatalf("unexpected row: %s", lines[1])
	}
}

func TestCORSPreflight(t *testing.T) {
	server := setupTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/days/2026-10-14", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	recorder := httptest.NewRecorder()

	server.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
	if !strings.Contains(recorder.Header().Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("expected PATCH in allowed methods: %s", recorder.Header().Get("Access-Control-Allow-Methods"))
	}
}

func setupTestServer(t *testing.T) http.Handler {
	t.Helper()
	return setupTestServerWithDays(t, nil)
}

func setupTestServerWithDays(t *testing.T, wrapDays func(*repository.DayRepository) timesheet.DayStore) http.Handler {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := db.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	labels, err := i18n.New("es")
	if err != nil {
		t.Fatalf("load labels: %v", err)
	}

	userRepo := repository.NewUserRepository(database)
	rateRepo := repository.NewRateRepository(database)
	dayRepo := repository.NewDayRepository(database)
	var days timesheet.DayStore = dayRepo
	if wrapDays != nil {
		days = wrapDays(dayRepo)
	}

	// Saves only happen on /sync so tests observe the database deterministically.
	writes := writeback.New(time.Hour, 5*time.Second, nil)
	t.Cleanup(func() {
		_ = writes.Flush(context.Background())
	})

	authService := service.NewAuthService(userRepo, rateRepo, "test-secret", 24*time.Hour, nil)
	timesheetService := service.NewTimesheetService(days, rateRepo, writes, nil)
	exportService := service.NewExportService(timesheetService, labels)

	authHandler := handler.NewAuthHandler(authService)
	timesheetHandler := handler.NewTimesheetHandler(timesheetService, exportService)

	return router.New(authService, authHandler, timesheetHandler, []string{"http://localhost:5173"})
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	decode(t, body, &resp)
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	if resp.User.PrimaryEmail != email {
		t.Fatalf("expected email %s, got %s", email, resp.User.PrimaryEmail)
	}
	return resp
}

func decode(t *testing.T, body []byte, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(body, out); err != nil {
		t.Fatalf("unmarshal response %s: %v", string(body), err)
	}
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
