package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/export"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/metrics"
	"dustbinpro/internal/models"
	"dustbinpro/internal/session"

	"github.com/gin-gonic/gin"
)

const conflictMessage = "You already have an active booking for this date. Please cancel your existing booking or choose a different date."

var (
	timeSlots    = []string{"08:00 - 10:00", "10:00 - 12:00", "12:00 - 14:00", "14:00 - 16:00", "16:00 - 18:00"}
	serviceTypes = []string{"Bin Cleaning", "Carpet Cleaning", "Bin and Carpet Cleaning"}
)

var bookingFormFields = []string{
	"bookingDate", "bookingTime", "address", "serviceType",
	"estimatedPrice", "binSize", "carpetSize", "specialRequest",
}

func (s *Server) handleDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.Get(c)
	log := logging.Ctx(ctx, s.logger)

	stats, err := s.svc.Stats.ComputeStats(ctx, sess.UID)
	if err != nil {
		log.Error().Err(err).Msg("compute dashboard stats error")
		stats = models.CustomerStats{}
	}

	s.render(c, http.StatusOK, "dashboard", "Dashboard", gin.H{
		"UserID":        sess.UID,
		"Email":         sess.Email,
		"EmailVerified": sess.EmailVerified,
		"Stats":         stats,
		"Notifications": s.svc.Notifications.Recent(ctx, sess.UID, 0),
		"CustomerName":  s.svc.Profiles.DisplayName(ctx, sess.UID),
	})
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := s.sessions.Destroy(c); err != nil {
		logging.Ctx(c.Request.Context(), s.logger).Error().Err(err).Msg("destroy session error")
	}
	c.Redirect(http.StatusSeeOther, session.LoginPath)
}

// bookingName is the session's cached name, else the legacy users.name field
// (which is then cached), else the default.
func (s *Server) bookingName(c *gin.Context) string {
	sess := session.Get(c)
	if sess.CustomerName != "" {
		return sess.CustomerName
	}
	if name := s.svc.Profiles.LegacyName(c.Request.Context(), sess.UID); name != "" {
		sess.CustomerName = name
		return name
	}
	return models.DefaultCustomerName
}

func (s *Server) bookingFormData(name string, form map[string]string) gin.H {
	return gin.H{
		"CustomerName": name,
		"TimeSlots":    timeSlots,
		"ServiceTypes": serviceTypes,
		"Form":         form,
	}
}

func (s *Server) handleBookCleaningForm(c *gin.Context) {
	name := s.bookingName(c)
	s.render(c, http.StatusOK, "book_cleaning", "Book Cleaning", s.bookingFormData(name, map[string]string{}))
}

func (s *Server) handleBookCleaning(c *gin.Context) {
	ctx := c.Request.Context()
	sess := session.Get(c)
	name := s.bookingName(c)

	form := make(map[string]string, len(bookingFormFields))
	for _, f := range bookingFormFields {
		form[f] = strings.TrimSpace(c.PostForm(f))
	}
	data := s.bookingFormData(name, form)

	date, err := time.Parse(models.DateLayout, form["bookingDate"])
	if err != nil {
		data["Error"] = "Please choose a valid booking date."
		s.render(c, http.StatusBadRequest, "book_cleaning", "Book Cleaning", data)
		return
	}
	price, err := strconv.ParseFloat(form["estimatedPrice"], 64)
	if err != nil {
		data["Error"] = "Please enter a valid estimated price."
		s.render(c, http.StatusBadRequest, "book_cleaning", "Book Cleaning", data)
		return
	}

	booking, err := s.svc.Bookings.CreateBooking(ctx, models.BookingRequest{
		CustomerID:     sess.UID,
		CustomerName:   name,
		CustomerEmail:  sess.Email,
		Date:           date,
		PreferredTime:  form["bookingTime"],
		Address:        form["address"],
		ServiceType:    form["serviceType"],
		EstimatedPrice: price,
		Options: models.BookingOptions{
			BinSize:        form["binSize"],
			CarpetSize:     form["carpetSize"],
			SpecialRequest: form["specialRequest"],
		},
	})
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrConflict):
		metrics.IncBookingConflict()
		data["Error"] = conflictMessage
		s.render(c, http.StatusOK, "book_cleaning", "Book Cleaning", data)
		return
	case domain.IsValidation(err):
		data["Error"] = err.Error()
		s.render(c, http.StatusBadRequest, "book_cleaning", "Book Cleaning", data)
		return
	default:
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("create booking error")
		data["Error"] = "We could not save your booking. Please try again."
		s.render(c, http.StatusInternalServerError, "book_cleaning", "Book Cleaning", data)
		return
	}

	data["Success"] = true
	data["BookingDate"] = booking.Date.Format(models.DateLayout)
	data["Address"] = booking.Address
	data["ServiceType"] = booking.ServiceType
	data["Form"] = map[string]string{}
	s.render(c, http.StatusOK, "book_cleaning", "Book Cleaning", data)
}

func (s *Server) handleBookingHistory(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := s.svc.Bookings.ListBookings(ctx, session.Get(c).UID)
	if err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("list bookings error")
		session.SetFlashError(c, "We could not load your bookings. Please try again later.")
	}
	s.render(c, http.StatusOK, "booking_history", "My Bookings", gin.H{"Bookings": list})
}

func (s *Server) handleExportHistory(c *gin.Context) {
	ctx := c.Request.Context()
	list, err := s.svc.Bookings.ListBookings(ctx, session.Get(c).UID)
	if err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("export bookings error")
		session.SetFlashError(c, "We could not export your bookings. Please try again later.")
		c.Redirect(http.StatusSeeOther, "/Customer/BookingHistory")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteHistory(&buf, list); err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("write history workbook error")
		s.renderError(c, http.StatusInternalServerError, "We could not export your bookings.")
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+export.FileName(s.now())+`"`)
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

func (s *Server) handleCancelBooking(c *gin.Context) {
	ctx := c.Request.Context()
	err := s.svc.Bookings.CancelBooking(ctx, session.Get(c).UID, strings.TrimSpace(c.PostForm("bookingId")))
	switch {
	case err == nil:
		session.SetFlash(c, "Your booking has been successfully cancelled.")
	case domain.IsValidation(err):
		s.renderError(c, http.StatusBadRequest, "Invalid booking ID.")
		return
	case errors.Is(err, domain.ErrNotFound):
		s.renderError(c, http.StatusNotFound, "Booking not found.")
		return
	case errors.Is(err, domain.ErrForbidden):
		s.renderError(c, http.StatusForbidden, "You are not authorized to cancel this booking.")
		return
	default:
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("cancel booking error")
		session.SetFlashError(c, "We could not cancel your booking. Please try again.")
	}
	c.Redirect(http.StatusSeeOther, "/Customer/BookingHistory")
}

type activeBookingResponse struct {
	HasActiveBooking bool   `json:"hasActiveBooking"`
	Error            string `json:"error,omitempty"`
}

func (s *Server) handleCheckActiveBooking(c *gin.Context) {
	ctx := c.Request.Context()
	date, err := time.Parse(models.DateLayout, strings.TrimSpace(c.Query("date")))
	if err != nil {
		c.JSON(http.StatusBadRequest, activeBookingResponse{Error: "date must be YYYY-MM-DD"})
		return
	}

	active, err := s.svc.Bookings.HasActiveBooking(ctx, session.Get(c).UID, date)
	if err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("check active booking error")
		c.JSON(http.StatusOK, activeBookingResponse{Error: "unable to check bookings right now"})
		return
	}
	c.JSON(http.StatusOK, activeBookingResponse{HasActiveBooking: active})
}
