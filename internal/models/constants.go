package models

import "time"

const (
	StatusPending    = "pending"
	StatusApproved   = "approved"
	StatusAssigned   = "assigned"
	StatusInProgress = "in progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"

	// PaymentRecordCompleted is the status stored on every Payment document.
	PaymentRecordCompleted = "completed"
)

const (
	NotificationInfo    = "info"
	NotificationSuccess = "success"
)

const (
	TicketStatusOpen = "open"
)

const (
	RoleCustomer = "customer"

	// DefaultCustomerName is shown when no profile name can be resolved.
	DefaultCustomerName = "Customer"

	// UnknownCustomerName is stored on payments when the profile lookup fails.
	UnknownCustomerName = "Unknown Customer"
)

const (
	// DefaultNotificationsLimit caps the dashboard notification list.
	DefaultNotificationsLimit = 5

	// DefaultSessionTTL is the session idle timeout.
	DefaultSessionTTL = 30 * time.Minute

	// WorkerQueueSize is the in-memory buffer of the notice worker.
	WorkerQueueSize = 128

	// DateLayout is the date format accepted from booking forms.
	DateLayout = "2006-01-02"
)
