package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository/memstore"
	"homestay-booking/internal/gateway"
	"homestay-booking/internal/idempotency"
	"homestay-booking/internal/notification"
	"homestay-booking/pkg/clock"
	"homestay-booking/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const nightlyRate = 500000

var (
	ict    = time.FixedZone("ICT", 7*60*60)
	room11 = uuid.MustParse("00000000-0000-0000-0000-000000000011")
)

type fakeProvider struct {
	mu        sync.Mutex
	quoteErr  error
	status    gateway.Status
	statusErr error
	quotes    int
	// externalID overrides the id derived from the order code.
	externalID string
}

func (p *fakeProvider) CreateQuote(ctx context.Context, req gateway.QuoteRequest) (*gateway.Quote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.quotes++
	if p.quoteErr != nil {
		return nil, p.quoteErr
	}
	externalID := gateway.ExternalIDFor(req.OrderCode)
	if p.externalID != "" {
		externalID = p.externalID
	}
	return &gateway.Quote{
		ExternalID:  externalID,
		Code:        "000201-" + req.Description,
		CheckoutURL: "https://pay.example.test/" + gateway.ExternalIDFor(req.OrderCode),
		Status:      gateway.StatusPending,
		ExpiresAt:   req.ExpiresAt,
	}, nil
}

func (p *fakeProvider) GetStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.statusErr != nil {
		return nil, p.statusErr
	}
	return &gateway.StatusResult{ExternalID: externalID, Status: p.status}, nil
}

// VerifyWebhook accepts {"external_id": ..., "status": ..., "signature": "ok"}.
func (p *fakeProvider) VerifyWebhook(raw []byte) (*gateway.Event, error) {
	var body struct {
		ExternalID string `json:"external_id"`
		Status     string `json:"status"`
		Signature  string `json:"signature"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, gateway.ErrMalformedEvent
	}
	if body.Signature != "ok" {
		return nil, gateway.ErrInvalidSignature
	}
	return &gateway.Event{ExternalID: body.ExternalID, Status: gateway.Status(body.Status)}, nil
}

func webhook(externalID string, status gateway.Status) []byte {
	raw, _ := json.Marshal(map[string]string{
		"external_id": externalID,
		"status":      string(status),
		"signature":   "ok",
	})
	return raw
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []notification.Message
}

func (n *recordingNotifier) Enqueue(m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, m)
	return nil
}

func (n *recordingNotifier) count(tpl notification.Template) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	c := 0
	for _, m := range n.messages {
		if m.Template == tpl {
			c++
		}
	}
	return c
}

type fixture struct {
	store    *memstore.Store
	clock    *clock.Fixed
	provider *fakeProvider
	notifier *recordingNotifier
	dedupe   idempotency.Store
	config   *utils.Config
	svc      *Service

	owner      entity.User
	otherOwner entity.User
	admin      entity.User
	customer   entity.User
	stranger   entity.User
}

func newUser(name string, role entity.UserRole) entity.User {
	return entity.User{
		Base:     entity.Base{ID: uuid.New()},
		FullName: name,
		Email:    name + "@example.test",
		Role:     role,
		IsActive: true,
	}
}

// newFixture starts on 2025-06-01 08:00 ICT with room 11 free.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:      memstore.New(),
		clock:      &clock.Fixed{At: time.Date(2025, 6, 1, 8, 0, 0, 0, ict), Loc: ict},
		provider:   &fakeProvider{status: gateway.StatusPending},
		notifier:   &recordingNotifier{},
		dedupe:     idempotency.NewMemory(time.Hour),
		owner:      newUser("owner", entity.RoleOwner),
		otherOwner: newUser("other-owner", entity.RoleOwner),
		admin:      newUser("admin", entity.RoleAdmin),
		customer:   newUser("customer", entity.RoleCustomer),
		stranger:   newUser("stranger", entity.RoleCustomer),
		config: &utils.Config{
			App: utils.AppConfig{Env: "development"},
			Payment: utils.PaymentConfig{
				MinAmount:       2000,
				AmountTolerance: 1,
				ExpiryMinutes:   5,
			},
			Booking: utils.BookingConfig{
				HousekeepingBufferMinutes: 120,
				HintHorizonDays:           30,
			},
		},
	}

	for _, u := range []entity.User{f.owner, f.otherOwner, f.admin, f.customer, f.stranger} {
		f.store.PutUser(u)
	}

	f.store.PutRoom(entity.RoomDetail{
		Room: entity.Room{
			BaseNoDelete: entity.BaseNoDelete{ID: room11},
			ListingID:    uuid.New(),
			Name:         "Room 11",
			NightlyRate:  nightlyRate,
			MaxGuests:    4,
			Status:       entity.RoomStatusAvailable,
		},
		ListingTitle: "Riverside Homestay",
		OwnerID:      f.owner.ID,
		OwnerName:    f.owner.FullName,
		OwnerEmail:   f.owner.Email,
	})

	f.rebuild(t)
	return f
}

// rebuild wires the services again, picking up dependency changes.
func (f *fixture) rebuild(t *testing.T) {
	f.svc = NewService(Dependencies{
		Repo:     f.store.Repository(),
		Tx:       f.store,
		Clock:    f.clock,
		Provider: f.provider,
		Dedupe:   f.dedupe,
		Notifier: f.notifier,
		Config:   f.config,
		Log:      zaptest.NewLogger(t),
	})
}

func (f *fixture) at(hour, minute int) {
	now := f.clock.Now()
	f.clock.At = time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, ict)
}

func date(s string) time.Time {
	d, err := clock.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// seedBooking stores a booking directly, bypassing availability.
func (f *fixture) seedBooking(status entity.BookingStatus, start, end string, user *entity.User) entity.Booking {
	now := f.clock.Now()
	b := entity.Booking{
		BaseNoDelete:               entity.NewBaseNoDelete(now),
		BookingNumber:              utils.GenerateBookingNumber(now) + uuid.NewString()[:4],
		RoomID:                     room11,
		StartDate:                  date(start),
		EndDate:                    date(end),
		Guests:                     2,
		Status:                     status,
		ManualConfirmationRequired: true,
	}
	b.TotalPrice = float64(b.Nights() * nightlyRate)
	if user != nil {
		id := user.ID
		b.UserID = &id
	} else {
		b.Guest = &entity.GuestContact{Name: "Walk In", Email: "walkin@example.test", Phone: "0900000000"}
	}
	f.store.PutBooking(b)
	return b
}

func (f *fixture) actor(u entity.User) entity.Actor {
	return entity.ActorFor(&u)
}

func (f *fixture) booking(t *testing.T, id string) *entity.Booking {
	t.Helper()
	b, err := f.store.Repository().Booking.FindByID(context.Background(), uuid.MustParse(id))
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}

func requireKind(t *testing.T, err error, kind utils.ErrorKind) *utils.AppError {
	t.Helper()
	require.Error(t, err)

	var appErr *utils.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, kind, appErr.Kind, appErr.Message)
	return appErr
}
