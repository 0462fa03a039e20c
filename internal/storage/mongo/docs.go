package mongo

import (
	"time"

	"travel_market/internal/domain"
)

// Targets are keyed by "kind:id" so one collection holds both kinds.
type targetDoc struct {
	Key           string    `bson:"_id"`
	Kind          string    `bson:"kind"`
	ID            string    `bson:"targetId"`
	Name          string    `bson:"name"`
	Location      string    `bson:"location,omitempty"`
	Category      string    `bson:"category,omitempty"`
	Description   string    `bson:"description,omitempty"`
	Images        []string  `bson:"images,omitempty"`
	Price         float64   `bson:"price"`
	Duration      string    `bson:"duration,omitempty"`
	AverageRating float64   `bson:"averageRating"`
	TotalReviews  int       `bson:"totalReviews"`
	ReviewIDs     []string  `bson:"reviewIds"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func targetKey(t domain.Target) string { return t.String() }

func toTargetDoc(ti domain.TargetInfo) targetDoc {
	ids := ti.ReviewIDs
	if ids == nil {
		ids = []string{}
	}
	return targetDoc{
		Key:           targetKey(ti.Ref()),
		Kind:          string(ti.Kind),
		ID:            ti.ID,
		Name:          ti.Name,
		Location:      ti.Location,
		Category:      ti.Category,
		Description:   ti.Description,
		Images:        ti.Images,
		Price:         ti.Price,
		Duration:      ti.Duration,
		AverageRating: ti.AverageRating,
		TotalReviews:  ti.TotalReviews,
		ReviewIDs:     ids,
		CreatedAt:     ti.CreatedAt.UTC(),
		UpdatedAt:     ti.UpdatedAt.UTC(),
	}
}

func (d targetDoc) toDomain() domain.TargetInfo {
	ti := domain.TargetInfo{
		ID:            d.ID,
		Kind:          domain.TargetKind(d.Kind),
		Name:          d.Name,
		Location:      d.Location,
		Category:      d.Category,
		Description:   d.Description,
		Images:        d.Images,
		Price:         d.Price,
		Duration:      d.Duration,
		AverageRating: d.AverageRating,
		TotalReviews:  d.TotalReviews,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if len(d.ReviewIDs) > 0 {
		ti.ReviewIDs = d.ReviewIDs
	}
	return ti
}

type reviewDoc struct {
	ID         string    `bson:"_id"`
	AuthorID   string    `bson:"authorId"`
	TargetKind string    `bson:"targetKind"`
	TargetID   string    `bson:"targetId"`
	Rating     int       `bson:"rating"`
	Comment    string    `bson:"comment"`
	Images     []string  `bson:"images,omitempty"`
	Verified   bool      `bson:"verified"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

func toReviewDoc(r domain.Review) reviewDoc {
	return reviewDoc{
		ID:         r.ID,
		AuthorID:   r.AuthorID,
		TargetKind: string(r.Target.Kind),
		TargetID:   r.Target.ID,
		Rating:     r.Rating,
		Comment:    r.Comment,
		Images:     r.Images,
		Verified:   r.Verified,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (d reviewDoc) toDomain() domain.Review {
	return domain.Review{
		ID:        d.ID,
		AuthorID:  d.AuthorID,
		Target:    domain.Target{Kind: domain.TargetKind(d.TargetKind), ID: d.TargetID},
		Rating:    d.Rating,
		Comment:   d.Comment,
		Images:    d.Images,
		Verified:  d.Verified,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type snapshotDoc struct {
	Name     string  `bson:"name"`
	Price    float64 `bson:"price"`
	Duration string  `bson:"duration,omitempty"`
}

type lineItemDoc struct {
	Activity  string    `bson:"activity"`
	Quantity  int       `bson:"quantity"`
	Date      time.Time `bson:"date"`
	UnitPrice float64   `bson:"unitPrice,omitempty"`
}

type bookingDoc struct {
	ID            string        `bson:"_id"`
	UserID        string        `bson:"userId"`
	TargetKind    string        `bson:"targetKind"`
	TargetID      string        `bson:"targetId"`
	Snapshot      *snapshotDoc  `bson:"snapshot,omitempty"`
	Items         []lineItemDoc `bson:"items,omitempty"`
	Travelers     int           `bson:"travelers"`
	TravelDate    *time.Time    `bson:"travelDate,omitempty"`
	TotalAmount   float64       `bson:"totalAmount"`
	Status        string        `bson:"status"`
	PaymentStatus string        `bson:"paymentStatus"`
	CreatedAt     time.Time     `bson:"createdAt"`
	UpdatedAt     time.Time     `bson:"updatedAt"`
}

func toBookingDoc(b domain.Booking) bookingDoc {
	d := bookingDoc{
		ID:            b.ID,
		UserID:        b.UserID,
		TargetKind:    string(b.Target.Kind),
		TargetID:      b.Target.ID,
		Travelers:     b.Travelers,
		TravelDate:    b.TravelDate,
		TotalAmount:   b.TotalAmount,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		CreatedAt:     b.CreatedAt.UTC(),
		UpdatedAt:     b.UpdatedAt.UTC(),
	}
	if b.Snapshot != nil {
		d.Snapshot = &snapshotDoc{Name: b.Snapshot.Name, Price: b.Snapshot.Price, Duration: b.Snapshot.Duration}
	}
	for _, it := range b.Items {
		d.Items = append(d.Items, lineItemDoc{Activity: it.Activity, Quantity: it.Quantity, Date: it.Date.UTC(), UnitPrice: it.UnitPrice})
	}
	return d
}

func (d bookingDoc) toDomain() domain.Booking {
	b := domain.Booking{
		ID:            d.ID,
		UserID:        d.UserID,
		Target:        domain.Target{Kind: domain.TargetKind(d.TargetKind), ID: d.TargetID},
		Travelers:     d.Travelers,
		TravelDate:    d.TravelDate,
		TotalAmount:   d.TotalAmount,
		Status:        domain.BookingStatus(d.Status),
		PaymentStatus: domain.PaymentStatus(d.PaymentStatus),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.Snapshot != nil {
		b.Snapshot = &domain.Snapshot{Name: d.Snapshot.Name, Price: d.Snapshot.Price, Duration: d.Snapshot.Duration}
	}
	for _, it := range d.Items {
		b.Items = append(b.Items, domain.LineItem{Activity: it.Activity, Quantity: it.Quantity, Date: it.Date, UnitPrice: it.UnitPrice})
	}
	return b
}
