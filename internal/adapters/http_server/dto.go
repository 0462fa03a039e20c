package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"travel_market/internal/domain"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json field names instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type submitReviewRequest struct {
	Rating  int      `json:"rating" validate:"required,min=1,max=5"`
	Comment string   `json:"comment" validate:"required,max=4000"`
	Images  []string `json:"images" validate:"omitempty,max=10,dive,url"`
}

type editReviewRequest struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,min=1,max=4000"`
}

type createTargetRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Location    string   `json:"location" validate:"max=200"`
	Category    string   `json:"category" validate:"max=100"`
	Description string   `json:"description" validate:"max=8000"`
	Images      []string `json:"images" validate:"omitempty,max=20,dive,url"`
	Price       float64  `json:"price" validate:"gte=0"`
	Duration    string   `json:"duration" validate:"max=100"`
}

func (r createTargetRequest) toDomain(kind domain.TargetKind) domain.TargetInfo {
	return domain.TargetInfo{
		Kind:        kind,
		Name:        r.Name,
		Location:    r.Location,
		Category:    r.Category,
		Description: r.Description,
		Images:      r.Images,
		Price:       r.Price,
		Duration:    r.Duration,
	}
}

type snapshotDTO struct {
	Name     string  `json:"name" validate:"max=200"`
	Price    float64 `json:"price" validate:"gte=0"`
	Duration string  `json:"duration" validate:"max=100"`
}

type lineItemDTO struct {
	Activity  string    `json:"activity" validate:"required,max=200"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
	Date      time.Time `json:"date" validate:"required"`
	UnitPrice float64   `json:"unitPrice" validate:"gte=0"`
}

type createBookingRequest struct {
	Kind        string        `json:"kind" validate:"required"`
	TargetID    string        `json:"targetId" validate:"required"`
	Snapshot    *snapshotDTO  `json:"snapshot"`
	Items       []lineItemDTO `json:"items" validate:"omitempty,max=50,dive"`
	Travelers   int           `json:"travelers" validate:"gte=0,lte=100"`
	TravelDate  *time.Time    `json:"travelDate"`
	TotalAmount float64       `json:"totalAmount" validate:"gte=0"`
}

func (r createBookingRequest) toDomain() (domain.Booking, error) {
	kind, err := domain.ParseTargetKind(r.Kind)
	if err != nil {
		return domain.Booking{}, err
	}
	b := domain.Booking{
		Target:      domain.Target{Kind: kind, ID: r.TargetID},
		Travelers:   r.Travelers,
		TravelDate:  r.TravelDate,
		TotalAmount: r.TotalAmount,
	}
	if r.Snapshot != nil {
		b.Snapshot = &domain.Snapshot{Name: r.Snapshot.Name, Price: r.Snapshot.Price, Duration: r.Snapshot.Duration}
	}
	for _, it := range r.Items {
		b.Items = append(b.Items, domain.LineItem{Activity: it.Activity, Quantity: it.Quantity, Date: it.Date, UnitPrice: it.UnitPrice})
	}
	return b, nil
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type paymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" validate:"required"`
}

// decode reads a JSON body into dst and runs struct validation. Failures
// are reported as domain.ErrValidation.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", domain.ErrValidation)
		}
		return fmt.Errorf("%w: malformed JSON: %v", domain.ErrValidation, err)
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), strings.SplitN(fe.Namespace(), ".", 2)[0]+".")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "url":
		return field + " must be a URL"
	}
	return fmt.Sprintf("%s failed %s", field, fe.Tag())
}
