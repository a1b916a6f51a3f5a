package usecase

import (
	"context"
	"fmt"

	"homestay-booking/internal/data/entity"
	"homestay-booking/internal/data/repository"
	"homestay-booking/internal/notification"
	"homestay-booking/pkg/clock"

	"go.uber.org/zap"
)

// notices builds notification messages after a commit. Every failure is
// logged here and never reaches the caller.
type notices struct {
	queue Notifier
	users repository.UserRepository
	log   *zap.Logger
}

func newNotices(queue Notifier, users repository.UserRepository, log *zap.Logger) *notices {
	return &notices{
		queue: queue,
		users: users,
		log:   log.With(zap.String("component", "notices")),
	}
}

func (n *notices) send(m notification.Message) {
	if n.queue == nil || m.Recipient == "" {
		return
	}
	if err := n.queue.Enqueue(m); err != nil {
		n.log.Warn("Failed to enqueue notification",
			zap.Error(err),
			zap.String("recipient", m.Recipient),
			zap.String("template", string(m.Template)),
		)
	}
}

// party resolves the booking's contact: the guest contact or the user account.
func (n *notices) party(ctx context.Context, b *entity.Booking) (name, email string) {
	if b.Guest != nil {
		return b.Guest.Name, b.Guest.Email
	}
	if b.UserID == nil {
		return "", ""
	}

	user, err := n.users.FindByID(ctx, *b.UserID)
	if err != nil || user == nil {
		n.log.Warn("Cannot resolve booking contact",
			zap.Error(err),
			zap.String("booking_id", b.ID.String()),
		)
		return "", ""
	}
	return user.FullName, user.Email
}

func bookingData(b *entity.Booking, name string) map[string]any {
	return map[string]any{
		"name":           name,
		"booking_number": b.BookingNumber,
		"start_date":     clock.FormatDate(b.StartDate),
		"end_date":       clock.FormatDate(b.EndDate),
		"guests":         b.Guests,
		"total_price":    fmt.Sprintf("%.0f", b.TotalPrice),
		"status":         string(b.Status),
	}
}

func (n *notices) bookingCreated(ctx context.Context, b *entity.Booking, room *entity.RoomDetail) {
	name, email := n.party(ctx, b)

	data := bookingData(b, name)
	data["room"] = room.Name
	n.send(notification.Message{Recipient: email, Template: notification.TemplateBookingCreated, Data: data})

	owner := bookingData(b, room.OwnerName)
	owner["room"] = room.Name
	owner["guest"] = name
	n.send(notification.Message{Recipient: room.OwnerEmail, Template: notification.TemplateOwnerNewBooking, Data: owner})
}

func (n *notices) statusChanged(ctx context.Context, b *entity.Booking, from entity.BookingStatus) {
	name, email := n.party(ctx, b)

	data := bookingData(b, name)
	data["previous_status"] = string(from)
	if b.CancellationReason != nil {
		data["reason"] = *b.CancellationReason
	}
	n.send(notification.Message{Recipient: email, Template: notification.TemplateBookingStatusChanged, Data: data})
}

func (n *notices) paymentSettled(ctx context.Context, b *entity.Booking, p *entity.Payment) {
	name, email := n.party(ctx, b)

	data := bookingData(b, name)
	data["amount"] = fmt.Sprintf("%.0f", p.Amount)

	template := notification.TemplatePaymentCompleted
	if p.Status == entity.PaymentStatusFailed {
		template = notification.TemplatePaymentFailed
	}
	n.send(notification.Message{Recipient: email, Template: template, Data: data})
}
