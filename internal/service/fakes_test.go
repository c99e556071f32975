package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"dustbinpro/internal/domain"
	"dustbinpro/internal/models"

	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory document store used by the service tests.
type memStore struct {
	mu            sync.Mutex
	bookings      map[string]*models.Booking
	users         map[string]*models.UserProfile
	notifications []*models.Notification
	payments      []*models.Payment
	tickets       []*models.SupportTicket
	locks         map[string]string

	failFind         error
	failNotification error
	failCreate       error
}

var _ domain.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{
		bookings: make(map[string]*models.Booking),
		users:    make(map[string]*models.UserProfile),
		locks:    make(map[string]string),
	}
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) filter(match func(*models.Booking) bool) ([]*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFind != nil {
		return nil, m.failFind
	}
	var out []*models.Booking
	for _, b := range m.bookings {
		if match(b) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memStore) FindBookingsByCustomer(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.CustomerID == customerID })
}

func (m *memStore) FindBookingsByCustomerAndDate(ctx context.Context, customerID string, date time.Time) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.CustomerID == customerID && b.Date.Equal(date) })
}

func (m *memStore) FindPayableBookings(ctx context.Context, customerID string) ([]*models.Booking, error) {
	return m.filter(func(b *models.Booking) bool {
		return b.CustomerID == customerID && b.IsPriceSet && b.PaymentStatus == models.PaymentStatusPending &&
			(b.Status == models.StatusApproved || b.Status == models.StatusAssigned)
	})
}

func (m *memStore) UpdateBookingStatus(ctx context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = status
	return nil
}

func (m *memStore) MarkBookingPaid(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.PaymentStatus = models.PaymentStatusPaid
	return nil
}

func lockID(customerID string, date time.Time) string {
	return customerID + ":" + date.Format(models.DateLayout)
}

func (m *memStore) AcquireBookingLock(ctx context.Context, customerID string, date time.Time, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockID(customerID, date)
	if _, held := m.locks[key]; held {
		return domain.ErrConflict
	}
	m.locks[key] = bookingID
	return nil
}

func (m *memStore) ReleaseBookingLock(ctx context.Context, customerID string, date time.Time, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := lockID(customerID, date)
	if m.locks[key] == bookingID {
		delete(m.locks, key)
	}
	return nil
}

func (m *memStore) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[uid]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) UpdateProfile(ctx context.Context, uid string, u models.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[uid]
	if !ok {
		return domain.ErrNotFound
	}
	p.FirstName, p.LastName, p.Phone, p.Address = u.FirstName, u.LastName, u.Phone, u.Address
	return nil
}

func (m *memStore) RecentNotifications(ctx context.Context, customerID string, limit int) ([]*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNotification != nil {
		return nil, m.failNotification
	}
	var out []*models.Notification
	for _, n := range m.notifications {
		if n.CustomerID == customerID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNotification != nil {
		return m.failNotification
	}
	if n.ID == "" {
		n.ID = "n" + time.Now().Format("150405.000000000")
	}
	cp := *n
	m.notifications = append(m.notifications, &cp)
	return nil
}

func (m *memStore) MarkNotificationRead(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	cp := *p
	m.payments = append(m.payments, &cp)
	return nil
}

func (m *memStore) CreateTicket(ctx context.Context, t *models.SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate != nil {
		return m.failCreate
	}
	t.ID = "t1"
	cp := *t
	m.tickets = append(m.tickets, &cp)
	return nil
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

var errStoreDown = errors.New("store unavailable")
