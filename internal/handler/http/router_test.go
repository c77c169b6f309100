package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timepay-go/internal/config"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/compensation"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-timepay-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-timepay-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timepay-go/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-test-secret"

// Fakes embed the service interface; calling a method the test did not stub panics.

type fakeAttendanceService struct {
	attendance.AttendanceService
	clockOut func(actor user.Actor, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error)
	checks   int
	clientIP string
}

func (f *fakeAttendanceService) ClockOut(ctx context.Context, actor user.Actor, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
	return f.clockOut(actor, req)
}

func (f *fakeAttendanceService) Check(ctx context.Context, actor user.Actor, req attendance.CheckRequest) (attendance.AttendanceResponse, error) {
	f.checks++
	f.clientIP = req.ClientIP
	return attendance.AttendanceResponse{ID: "att-1"}, nil
}

type fakePayrollService struct {
	payroll.PayrollService
	run func(actor user.Actor, cycleID string) (payroll.RunResult, error)
}

func (f *fakePayrollService) Run(ctx context.Context, actor user.Actor, cycleID string) (payroll.RunResult, error) {
	return f.run(actor, cycleID)
}

type fakeCompensationService struct {
	compensation.CompensationService
}

type fakeNotificationService struct {
	notification.Service
	unread   int
	lastList notification.ListRequest
}

func (f *fakeNotificationService) List(ctx context.Context, recipientID string, req notification.ListRequest) (notification.ListResponse, error) {
	f.lastList = req
	if _, err := req.Filter(recipientID); err != nil {
		return notification.ListResponse{}, err
	}
	return notification.ListResponse{Page: req.Page, PageSize: req.PageSize}, nil
}

func (f *fakeNotificationService) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	return f.unread, nil
}

type testServer struct {
	handler    http.Handler
	jwt        jwt.Service
	attendance *fakeAttendanceService
	payroll    *fakePayrollService
	notifier   *fakeNotificationService
}

func newTestServer(t *testing.T, trustedProxies ...netip.Prefix) *testServer {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts := &testServer{
		jwt:        jwt.NewJWTService(testSecret, time.Hour),
		attendance: &fakeAttendanceService{},
		payroll:    &fakePayrollService{},
		notifier:   &fakeNotificationService{unread: 3},
	}
	ts.handler = NewRouter(ctx, RouterDeps{
		Logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		App:                 config.AppConfig{CORSOrigins: []string{"http://localhost:3000"}, TrustedProxies: trustedProxies},
		RateLimit:           config.RateLimitConfig{Burst: 1, PerSecond: 0.1},
		JWTService:          ts.jwt,
		AttendanceHandler:   NewAttendanceHandler(ts.attendance),
		CompensationHandler: NewCompensationHandler(&fakeCompensationService{}),
		PayrollHandler:      NewPayrollHandler(ts.payroll),
		NotificationHandler: NewNotificationHandler(ts.notifier, ts.jwt),
	})
	return ts
}

func (ts *testServer) do(t *testing.T, actor *user.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return ts.serve(t, actor, httptest.NewRequest(method, path, reader))
}

func (ts *testServer) serve(t *testing.T, actor *user.Actor, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	req.RemoteAddr = "192.0.2.10:50000"
	if actor != nil {
		token, _, err := ts.jwt.GenerateAccessToken(*actor)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

var (
	hrUser = user.Actor{
		UserID:     "user-hr",
		EmployeeID: "emp-hr",
		CompanyID:  "company-1",
		Role:       user.RoleHR,
	}
	employeeUser = user.Actor{
		UserID:     "user-emp",
		EmployeeID: "emp-1",
		CompanyID:  "company-1",
		Role:       user.RoleEmployee,
	}
)

func TestRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, nil, http.MethodGet, "/api/v1/payroll/cycles", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeBody(t, rec).Error.Code)
}

func TestRunCycle(t *testing.T) {
	ts := newTestServer(t)
	var gotActor user.Actor
	ts.payroll.run = func(actor user.Actor, cycleID string) (payroll.RunResult, error) {
		gotActor = actor
		return payroll.RunResult{RunID: "run-1", CycleID: cycleID, Created: 2}, nil
	}

	rec := ts.do(t, &hrUser, http.MethodPost, "/api/v1/payroll/cycles/cycle-9/run", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, hrUser, gotActor)
	body := decodeBody(t, rec)
	assert.True(t, body.Success)
	data := body.Data.(map[string]interface{})
	assert.Equal(t, "cycle-9", data["cycle_id"])
	assert.EqualValues(t, 2, data["created"])
}

func TestRunCycleConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.payroll.run = func(actor user.Actor, cycleID string) (payroll.RunResult, error) {
		return payroll.RunResult{}, payroll.ErrRunInProgress
	}

	rec := ts.do(t, &hrUser, http.MethodPost, "/api/v1/payroll/cycles/cycle-9/run", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRunCycleForbiddenForEmployee(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/payroll/cycles/cycle-9/run", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAttendanceDeleteIsAdminOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &hrUser, http.MethodDelete, "/api/v1/attendances/att-1", "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestClockOutPassesPathID(t *testing.T) {
	ts := newTestServer(t)
	var got attendance.ClockOutRequest
	ts.attendance.clockOut = func(actor user.Actor, req attendance.ClockOutRequest) (attendance.AttendanceResponse, error) {
		got = req
		return attendance.AttendanceResponse{ID: req.ID}, nil
	}

	rec := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/attendances/att-7/clock-out", `{"location":"HQ"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "att-7", got.ID)
	assert.Equal(t, "HQ", got.Location)
}

func TestClockOutRejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	t.Run("malformed json", func(t *testing.T) {
		rec := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/attendances/att-7/clock-out", `{"location":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unparseable instant", func(t *testing.T) {
		rec := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/attendances/att-7/clock-out", `{"instant":"yesterday"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, decodeBody(t, rec).Error.Details, "instant")
	})
}

func TestCheckIsRateLimited(t *testing.T) {
	ts := newTestServer(t)
	body := `{"action":"clock_in","location":"HQ"}`

	first := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/attendances/check", body)
	second := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/attendances/check", body)

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
	assert.Equal(t, 1, ts.attendance.checks)
}

func TestCheckClientAddress(t *testing.T) {
	check := func(ts *testServer) string {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/attendances/check", strings.NewReader(`{"action":"clock_in"}`))
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		rec := ts.serve(t, &employeeUser, req)
		require.Equal(t, http.StatusCreated, rec.Code)
		return ts.attendance.clientIP
	}

	assert.Equal(t, "192.0.2.10", check(newTestServer(t)), "forwarded header from an untrusted peer")
	assert.Equal(t, "203.0.113.7", check(newTestServer(t, netip.MustParsePrefix("192.0.2.0/24"))))
}

func TestNotificationStreamToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &employeeUser, http.MethodPost, "/api/v1/notifications/stream-token", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec).Data.(map[string]interface{})
	userID, err := ts.jwt.ValidateStreamToken(data["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, employeeUser.UserID, userID)
	assert.EqualValues(t, 300, data["expires_in"])
}

func TestNotificationStreamRejectsAccessToken(t *testing.T) {
	ts := newTestServer(t)
	access, _, err := ts.jwt.GenerateAccessToken(employeeUser)
	require.NoError(t, err)

	rec := ts.do(t, nil, http.MethodGet, "/api/v1/notifications/stream?token="+access, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUnreadCount(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &employeeUser, http.MethodGet, "/api/v1/notifications/unread-count", "")

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec).Data.(map[string]interface{})
	assert.EqualValues(t, 3, data["unread_count"])
}

func TestNotificationListQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, &employeeUser, http.MethodGet, "/api/v1/notifications?type=payroll.generated&unread_only=true&page=2&page_size=5", "")

	require.Equal(t, http.StatusOK, rec.Code)
	got := ts.notifier.lastList
	require.NotNil(t, got.Type)
	assert.Equal(t, "payroll.generated", *got.Type)
	assert.True(t, got.UnreadOnly)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, 5, got.PageSize)

	rec = ts.do(t, &employeeUser, http.MethodGet, "/api/v1/notifications?type=leave_request", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, nil, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
}
