package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/logging"
	"dustbinpro/internal/models"
	"dustbinpro/internal/session"

	"github.com/gin-gonic/gin"
)

func (s *Server) payableData(c *gin.Context) gin.H {
	ctx := c.Request.Context()
	pending, err := s.svc.Payments.ListPayable(ctx, session.Get(c).UID)
	data := gin.H{"PendingBookings": pending}
	if err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("list payable bookings error")
		data["Error"] = "We could not load your outstanding bookings."
	}
	return data
}

func (s *Server) handlePaymentForm(c *gin.Context) {
	s.render(c, http.StatusOK, "make_payment", "Payments", s.payableData(c))
}

// handleMakePayment records the payment and re-renders the payable list
// whatever the outcome.
func (s *Server) handleMakePayment(c *gin.Context) {
	ctx := c.Request.Context()

	var recordErr string
	amount, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("amount")), 64)
	if err != nil {
		recordErr = "Payment failed: amount must be a number"
	} else {
		_, err = s.svc.Payments.RecordPayment(ctx, models.PaymentRequest{
			CustomerID:    session.Get(c).UID,
			BookingID:     strings.TrimSpace(c.PostForm("bookingId")),
			Amount:        amount,
			PaymentMethod: strings.TrimSpace(c.PostForm("paymentMethod")),
			Reference:     strings.TrimSpace(c.PostForm("reference")),
			Description:   strings.TrimSpace(c.PostForm("description")),
			ServiceType:   strings.TrimSpace(c.PostForm("serviceType")),
		})
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrForbidden):
			recordErr = "Payment failed: this booking does not belong to your account"
		default:
			logging.Ctx(ctx, s.logger).Error().Err(err).Msg("record payment error")
			recordErr = "Payment failed: " + err.Error()
		}
	}

	data := s.payableData(c)
	if recordErr != "" {
		data["Error"] = recordErr
	} else {
		data["PaymentSuccess"] = true
		data["Amount"] = amount
	}
	s.render(c, http.StatusOK, "make_payment", "Payments", data)
}

func (s *Server) handleProfile(c *gin.Context) {
	ctx := c.Request.Context()
	profile, err := s.svc.Profiles.Get(ctx, session.Get(c).UID)
	if err != nil {
		logging.Ctx(ctx, s.logger).Error().Err(err).Msg("load profile error")
		session.SetFlashError(c, "We could not load your profile. Please try again later.")
		profile = &models.UserProfile{}
	}
	s.render(c, http.StatusOK, "profile", "Profile", gin.H{"Profile": profile})
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	ctx := c.Request.Context()
	var update models.ProfileUpdate
	if err := c.ShouldBind(&update); err != nil {
		session.SetFlashError(c, "Error updating profile: "+err.Error())
		c.Redirect(http.StatusSeeOther, "/Customer/Profile")
		return
	}

	sess := session.Get(c)
	if err := s.svc.Profiles.Update(ctx, sess.UID, update); err != nil {
		logging.Ctx(ctx, s.logger).Warn().Err(err).Msg("update profile error")
		session.SetFlashError(c, "Error updating profile: "+err.Error())
		c.Redirect(http.StatusSeeOther, "/Customer/Profile")
		return
	}

	sess.CustomerName = strings.TrimSpace(update.FirstName) + " " + strings.TrimSpace(update.LastName)
	session.SetFlash(c, "Profile updated successfully!")
	c.Redirect(http.StatusSeeOther, "/Customer/Profile")
}

func (s *Server) handleSupport(c *gin.Context) {
	s.render(c, http.StatusOK, "support", "Support", nil)
}

func (s *Server) handleSubmitSupport(c *gin.Context) {
	ctx := c.Request.Context()
	_, err := s.svc.Support.Submit(ctx, models.SupportRequest{
		CustomerID: session.Get(c).UID,
		Subject:    strings.TrimSpace(c.PostForm("subject")),
		Message:    strings.TrimSpace(c.PostForm("message")),
		Priority:   strings.TrimSpace(c.PostForm("priority")),
	})
	if err != nil {
		logging.Ctx(ctx, s.logger).Warn().Err(err).Msg("submit support ticket error")
		session.SetFlashError(c, "Error submitting support ticket: "+err.Error())
	} else {
		session.SetFlash(c, "Support ticket submitted successfully! We'll get back to you soon.")
	}
	c.Redirect(http.StatusSeeOther, "/Customer/Support")
}

func (s *Server) handleNotifications(c *gin.Context) {
	list := s.svc.Notifications.Recent(c.Request.Context(), session.Get(c).UID, 0)
	s.render(c, http.StatusOK, "notifications", "Notifications", gin.H{"Notifications": list})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	id := strings.TrimSpace(c.PostForm("notificationId"))
	if id == "" {
		var body struct {
			NotificationID string `json:"notificationId"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			id = strings.TrimSpace(body.NotificationID)
		}
	}
	c.JSON(http.StatusOK, s.svc.Notifications.MarkRead(c.Request.Context(), id))
}
