package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"dustbinpro/internal/config"
	"dustbinpro/internal/domain"
	"dustbinpro/internal/export"
	"dustbinpro/internal/models"
	"dustbinpro/internal/repository"
	"dustbinpro/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const customerID = "cust-1"

type testEnv struct {
	server        *Server
	handler       http.Handler
	sessions      *session.Manager
	sessionStore  *repository.MemorySessionStore
	bookings      *mockBookings
	stats         *mockStats
	notifications *mockNotifications
	payments      *mockPayments
	profiles      *mockProfiles
	support       *mockSupport
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "portal-test", Environment: "test"},
		HTTP:    config.HTTPConfig{CSRFDisabled: true, WriteTimeout: 5 * time.Second},
		Session: config.SessionConfig{CookieName: "sid", TTL: 30 * time.Minute},
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, pinger Pinger) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := repository.NewMemorySessionStore(cfg.Session.TTL)
	logger := zerolog.Nop()
	env := &testEnv{
		sessionStore:  store,
		sessions:      session.NewManager(store, cfg.Session, &logger),
		bookings:      new(mockBookings),
		stats:         new(mockStats),
		notifications: new(mockNotifications),
		payments:      new(mockPayments),
		profiles:      new(mockProfiles),
		support:       new(mockSupport),
	}
	if pinger == nil {
		pinger = stubPinger{}
	}

	srv, err := NewServer(cfg, Services{
		Bookings:      env.bookings,
		Stats:         env.stats,
		Notifications: env.notifications,
		Payments:      env.payments,
		Profiles:      env.profiles,
		Support:       env.support,
	}, env.sessions, pinger, &logger)
	require.NoError(t, err)
	env.server = srv
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	s, err := e.sessions.Issue(context.Background(), session.Identity{
		UID:           customerID,
		Email:         "ann@example.com",
		EmailVerified: true,
		CustomerName:  "Ann Lee",
	})
	require.NoError(t, err)
	return &http.Cookie{Name: "sid", Value: s.ID}
}

func (e *testEnv) do(method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func TestAnonymousAccess(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)

	t.Run("PagesRedirectToLogin", func(t *testing.T) {
		w := env.do(http.MethodGet, "/Customer/Dashboard", nil, nil)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, session.LoginPath, w.Header().Get("Location"))
	})

	t.Run("CheckActiveBooking", func(t *testing.T) {
		w := env.do(http.MethodGet, "/Customer/CheckActiveBooking?date=2025-06-01", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"hasActiveBooking":false}`, w.Body.String())
	})

	t.Run("MarkNotificationRead", func(t *testing.T) {
		w := env.do(http.MethodPost, "/Customer/MarkNotificationRead", url.Values{"notificationId": {"n1"}}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false}`, w.Body.String())
	})

	env.bookings.AssertNotCalled(t, "HasActiveBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestDashboard(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)

	env.stats.On("ComputeStats", mock.Anything, customerID).
		Return(models.CustomerStats{TotalBookings: 7, PendingCount: 2}, nil)
	env.notifications.On("Recent", mock.Anything, customerID, 0).
		Return([]*models.Notification{{ID: "n1", Title: "Crew assigned", Type: "info", CreatedAt: time.Now()}})
	env.profiles.On("DisplayName", mock.Anything, customerID).Return("Ann Lee")

	w := env.do(http.MethodGet, "/Customer/Dashboard", nil, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Welcome back, Ann Lee")
	assert.Contains(t, body, "<strong>7</strong> Total bookings")
	assert.Contains(t, body, "Crew assigned")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestDashboardStatsFailureStillRenders(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)

	env.stats.On("ComputeStats", mock.Anything, customerID).
		Return(models.CustomerStats{}, &domain.StoreError{Op: "find", Collection: "bookings", Err: errors.New("timeout")})
	env.notifications.On("Recent", mock.Anything, customerID, 0).Return([]*models.Notification(nil))
	env.profiles.On("DisplayName", mock.Anything, customerID).Return("Customer")

	w := env.do(http.MethodGet, "/Customer/Dashboard", nil, cookie)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<strong>0</strong> Total bookings")
}

func bookingForm() url.Values {
	return url.Values{
		"bookingDate":    {"2025-06-01"},
		"bookingTime":    {"08:00 - 10:00"},
		"address":        {"1 Main St"},
		"serviceType":    {"Bin Cleaning"},
		"estimatedPrice": {"35.50"},
		"binSize":        {"240L"},
	}
}

func TestBookCleaning(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)

		env.bookings.On("CreateBooking", mock.Anything, mock.MatchedBy(func(req models.BookingRequest) bool {
			return req.CustomerID == customerID &&
				req.CustomerName == "Ann Lee" &&
				req.CustomerEmail == "ann@example.com" &&
				req.Date.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) &&
				req.EstimatedPrice == 35.5 &&
				req.Options.BinSize == "240L" &&
				req.Options.CarpetSize == ""
		})).Return(&models.Booking{
			ID:          "b-1",
			Date:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			Address:     "1 Main St",
			ServiceType: "Bin Cleaning",
		}, nil)

		w := env.do(http.MethodPost, "/Customer/BookCleaning", bookingForm(), cookie)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Bin Cleaning cleaning on 2025-06-01 at 1 Main St has been requested")
		env.bookings.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.bookings.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, domain.ErrConflict)

		w := env.do(http.MethodPost, "/Customer/BookCleaning", bookingForm(), cookie)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "You already have an active booking for this date.")
		assert.Contains(t, w.Body.String(), `value="1 Main St"`)
	})

	t.Run("InvalidDate", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		form := bookingForm()
		form.Set("bookingDate", "01/06/2025")

		w := env.do(http.MethodPost, "/Customer/BookCleaning", form, cookie)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Please choose a valid booking date.")
		env.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	})

	t.Run("FormUsesLegacyName", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		s, err := env.sessions.Issue(context.Background(), session.Identity{UID: customerID})
		require.NoError(t, err)
		cookie := &http.Cookie{Name: "sid", Value: s.ID}
		env.profiles.On("LegacyName", mock.Anything, customerID).Return("Annie").Once()

		w := env.do(http.MethodGet, "/Customer/BookCleaning", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Annie")

		// the name is cached in the session
		w = env.do(http.MethodGet, "/Customer/BookCleaning", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)
		env.profiles.AssertNumberOfCalls(t, "LegacyName", 1)
	})
}

func TestCancelBooking(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		err      error
		wantCode int
		wantBody string
	}{
		{"Missing", "", &domain.ValidationError{Field: "bookingId", Message: "Invalid booking ID."}, http.StatusBadRequest, "Invalid booking ID."},
		{"NotFound", "b-9", domain.ErrNotFound, http.StatusNotFound, "Booking not found."},
		{"Forbidden", "b-2", domain.ErrForbidden, http.StatusForbidden, "You are not authorized to cancel this booking."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), nil)
			cookie := env.login(t)
			env.bookings.On("CancelBooking", mock.Anything, customerID, tc.id).Return(tc.err)

			w := env.do(http.MethodPost, "/Customer/CancelBooking", url.Values{"bookingId": {tc.id}}, cookie)

			assert.Equal(t, tc.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
		})
	}

	t.Run("SuccessFlashesOnHistory", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.bookings.On("CancelBooking", mock.Anything, customerID, "b-1").Return(nil)
		env.bookings.On("ListBookings", mock.Anything, customerID).Return([]models.BookingView{
			{BookingID: "b-1", Status: "cancelled", ServiceType: "Bin Cleaning", Date: time.Now(), PaymentStatus: "pending"},
		}, nil)

		w := env.do(http.MethodPost, "/Customer/CancelBooking", url.Values{"bookingId": {"b-1"}}, cookie)
		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/Customer/BookingHistory", w.Header().Get("Location"))

		w = env.do(http.MethodGet, "/Customer/BookingHistory", nil, cookie)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Your booking has been successfully cancelled.")
		assert.NotContains(t, w.Body.String(), `name="bookingId" value="b-1"`, "cancelled bookings offer no cancel button")

		// flash is shown once
		w = env.do(http.MethodGet, "/Customer/BookingHistory", nil, cookie)
		assert.NotContains(t, w.Body.String(), "successfully cancelled")
	})
}

func TestCheckActiveBooking(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	env.bookings.On("HasActiveBooking", mock.Anything, customerID, day).Return(true, nil).Once()
	w := env.do(http.MethodGet, "/Customer/CheckActiveBooking?date=2025-06-01", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasActiveBooking":true}`, w.Body.String())

	env.bookings.On("HasActiveBooking", mock.Anything, customerID, day).Return(false, errors.New("store down")).Once()
	w = env.do(http.MethodGet, "/Customer/CheckActiveBooking?date=2025-06-01", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	var resp activeBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.HasActiveBooking)
	assert.NotEmpty(t, resp.Error)

	w = env.do(http.MethodGet, "/Customer/CheckActiveBooking?date=tomorrow", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportHistory(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)
	env.bookings.On("ListBookings", mock.Anything, customerID).Return([]models.BookingView{
		{BookingID: "b-1", Date: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), Status: "pending"},
	}, nil)

	w := env.do(http.MethodGet, "/Customer/BookingHistory/Export", nil, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "booking_history_")
	assert.NotZero(t, w.Body.Len())
}

func TestMakePayment(t *testing.T) {
	payable := []models.PayableBooking{{BookingID: "b-1", ServiceType: "Bin Cleaning", FinalPrice: 25, BookingDate: time.Now()}}

	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.payments.On("RecordPayment", mock.Anything, models.PaymentRequest{
			CustomerID:    customerID,
			BookingID:     "b-1",
			Amount:        25,
			PaymentMethod: "card",
			ServiceType:   "Bin Cleaning",
		}).Return(&models.Payment{ID: "p-1"}, nil)
		env.payments.On("ListPayable", mock.Anything, customerID).Return([]models.PayableBooking(nil), nil)

		w := env.do(http.MethodPost, "/Customer/MakePayment", url.Values{
			"bookingId": {"b-1"}, "amount": {"25"}, "paymentMethod": {"card"}, "serviceType": {"Bin Cleaning"},
		}, cookie)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment of $25.00 received")
		env.payments.AssertExpectations(t)
	})

	t.Run("FailureRerendersPayable", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.payments.On("RecordPayment", mock.Anything, mock.Anything).Return(nil, errors.New("card declined"))
		env.payments.On("ListPayable", mock.Anything, customerID).Return(payable, nil)

		w := env.do(http.MethodPost, "/Customer/MakePayment", url.Values{
			"bookingId": {"b-1"}, "amount": {"25"}, "paymentMethod": {"card"},
		}, cookie)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment failed: card declined")
		assert.Contains(t, w.Body.String(), `value="b-1"`)
	})

	t.Run("ForeignBooking", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.payments.On("RecordPayment", mock.Anything, mock.Anything).Return(nil, domain.ErrForbidden)
		env.payments.On("ListPayable", mock.Anything, customerID).Return(payable, nil)

		w := env.do(http.MethodPost, "/Customer/MakePayment", url.Values{
			"bookingId": {"b-other"}, "amount": {"25"}, "paymentMethod": {"card"},
		}, cookie)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Payment failed: this booking does not belong to your account")
	})

	t.Run("BadAmount", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.payments.On("ListPayable", mock.Anything, customerID).Return(payable, nil)

		w := env.do(http.MethodPost, "/Customer/MakePayment", url.Values{"amount": {"lots"}}, cookie)

		assert.Contains(t, w.Body.String(), "Payment failed: amount must be a number")
		env.payments.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything)
	})
}

func TestUpdateProfile(t *testing.T) {
	t.Run("SuccessCachesName", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.profiles.On("Update", mock.Anything, customerID, models.ProfileUpdate{
			FirstName: "Annabel", LastName: "Lee", Phone: "555-0101", Address: "1 Main St",
		}).Return(nil)

		w := env.do(http.MethodPost, "/Customer/UpdateProfile", url.Values{
			"FirstName": {"Annabel"}, "LastName": {"Lee"}, "Phone": {"555-0101"}, "Address": {"1 Main St"},
		}, cookie)

		require.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/Customer/Profile", w.Header().Get("Location"))

		stored, err := env.sessionStore.GetSession(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "Annabel Lee", stored.CustomerName)
		assert.Equal(t, "Profile updated successfully!", stored.Flash)
	})

	t.Run("FailureKeepsName", func(t *testing.T) {
		env := newTestEnv(t, testConfig(), nil)
		cookie := env.login(t)
		env.profiles.On("Update", mock.Anything, customerID, mock.Anything).Return(errors.New("write failed"))

		env.do(http.MethodPost, "/Customer/UpdateProfile", url.Values{"FirstName": {"X"}, "LastName": {"Y"}}, cookie)

		stored, err := env.sessionStore.GetSession(context.Background(), cookie.Value)
		require.NoError(t, err)
		assert.Equal(t, "Ann Lee", stored.CustomerName)
		assert.Equal(t, "Error updating profile: write failed", stored.FlashError)
	})
}

func TestProfilePage(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)
	env.profiles.On("Get", mock.Anything, customerID).Return(&models.UserProfile{FirstName: "Ann", Email: "ann@example.com"}, nil)

	w := env.do(http.MethodGet, "/Customer/Profile", nil, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `value="Ann"`)
	assert.Contains(t, w.Body.String(), `value="ann@example.com"`)
}

func TestSubmitSupport(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)
	env.support.On("Submit", mock.Anything, models.SupportRequest{
		CustomerID: customerID, Subject: "Missed pickup", Message: "No crew came", Priority: "high",
	}).Return(&models.SupportTicket{ID: "t-1"}, nil)

	w := env.do(http.MethodPost, "/Customer/SubmitSupport", url.Values{
		"subject": {"Missed pickup"}, "message": {"No crew came"}, "priority": {"high"},
	}, cookie)

	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/Customer/Support", w.Header().Get("Location"))

	w = env.do(http.MethodGet, "/Customer/Support", nil, cookie)
	assert.Contains(t, w.Body.String(), "Support ticket submitted successfully!")
}

func TestNotifications(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)
	env.notifications.On("Recent", mock.Anything, customerID, 0).
		Return([]*models.Notification{{ID: "n1", Title: "Quick Tip", Type: "info", CreatedAt: time.Now()}})
	env.notifications.On("MarkRead", mock.Anything, "n1").Return(models.MarkReadResult{Success: true})
	env.notifications.On("MarkRead", mock.Anything, "n2").Return(models.MarkReadResult{Error: "not found"})

	w := env.do(http.MethodGet, "/Customer/Notifications", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Quick Tip")

	w = env.do(http.MethodPost, "/Customer/MarkNotificationRead", url.Values{"notificationId": {"n1"}}, cookie)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/Customer/MarkNotificationRead", strings.NewReader(`{"notificationId":"n2"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.JSONEq(t, `{"success":false,"error":"not found"}`, rec.Body.String())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	cookie := env.login(t)

	w := env.do(http.MethodPost, "/Customer/Logout", url.Values{}, cookie)

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, session.LoginPath, w.Header().Get("Location"))
	stored, err := env.sessionStore.GetSession(context.Background(), cookie.Value)
	require.NoError(t, err)
	assert.Nil(t, stored)

	w = env.do(http.MethodGet, "/Customer/Dashboard", nil, cookie)
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	env := newTestEnv(t, testConfig(), nil)
	w := env.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestEnv(t, testConfig(), stubPinger{err: errors.New("no primary")})
	w = down.do(http.MethodGet, "/readyz", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestCSRFRejectsPostWithoutToken(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.CSRFDisabled = false
	cfg.HTTP.CSRFKey = "0123456789abcdef0123456789abcdef"
	env := newTestEnv(t, cfg, nil)
	cookie := env.login(t)

	w := env.do(http.MethodPost, "/Customer/SubmitSupport", url.Values{"subject": {"x"}}, cookie)

	assert.Equal(t, http.StatusForbidden, w.Code)
	env.support.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestRateLimitOnPosts(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.RateLimit = config.RateLimit{RPS: 0.001, Burst: 1}
	env := newTestEnv(t, cfg, nil)
	cookie := env.login(t)
	env.notifications.On("MarkRead", mock.Anything, "n1").Return(models.MarkReadResult{Success: true})

	w := env.do(http.MethodPost, "/Customer/MarkNotificationRead", url.Values{"notificationId": {"n1"}}, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodPost, "/Customer/MarkNotificationRead", url.Values{"notificationId": {"n1"}}, cookie)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}
