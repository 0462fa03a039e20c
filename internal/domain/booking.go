package domain

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: status must be one of pending, confirmed, cancelled, completed", ErrValidation)
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch st := PaymentStatus(s); st {
	case PaymentPending, PaymentPaid, PaymentRefunded, PaymentFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: paymentStatus must be one of pending, paid, refunded, failed", ErrValidation)
}

// Snapshot copies the package terms at booking time so later catalogue
// edits do not change what was booked.
type Snapshot struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Duration string  `json:"duration,omitempty"`
}

type LineItem struct {
	Activity  string    `json:"activity"`
	Quantity  int       `json:"quantity"`
	Date      time.Time `json:"date"`
	UnitPrice float64   `json:"unitPrice,omitempty"`
}

type Booking struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	Target        Target        `json:"target"`
	Snapshot      *Snapshot     `json:"snapshot,omitempty"`
	Items         []LineItem    `json:"items,omitempty"`
	Travelers     int           `json:"travelers,omitempty"`
	TravelDate    *time.Time    `json:"travelDate,omitempty"`
	TotalAmount   float64       `json:"totalAmount"`
	Status        BookingStatus `json:"status"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// Validate checks the fields a booking needs before it is persisted.
func (b Booking) Validate() error {
	if strings.TrimSpace(b.UserID) == "" {
		return fmt.Errorf("%w: user is required", ErrValidation)
	}
	if err := b.Target.Validate(); err != nil {
		return err
	}
	if b.Snapshot == nil && len(b.Items) == 0 {
		return fmt.Errorf("%w: a package snapshot or at least one line item is required", ErrValidation)
	}
	if b.Snapshot != nil && b.Snapshot.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	for i, it := range b.Items {
		if strings.TrimSpace(it.Activity) == "" {
			return fmt.Errorf("%w: items[%d].activity is required", ErrValidation, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: items[%d].quantity must be at least 1", ErrValidation, i)
		}
		if it.Date.IsZero() {
			return fmt.Errorf("%w: items[%d].date is required", ErrValidation, i)
		}
	}
	if b.TotalAmount < 0 {
		return fmt.Errorf("%w: totalAmount must not be negative", ErrValidation)
	}
	return nil
}

// ComputeTotal is the snapshot price per traveler plus every priced line item.
func (b Booking) ComputeTotal() float64 {
	var total float64
	if b.Snapshot != nil {
		n := b.Travelers
		if n < 1 {
			n = 1
		}
		total += b.Snapshot.Price * float64(n)
	}
	for _, it := range b.Items {
		total += it.UnitPrice * float64(it.Quantity)
	}
	return total
}
