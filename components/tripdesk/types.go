package tripdesk

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResourceKind names a remote resource collection.
type ResourceKind string

const (
	KindBookings  ResourceKind = "bookings"
	KindBuses     ResourceKind = "buses"
	KindCampaigns ResourceKind = "campaigns"
	KindPackages  ResourceKind = "packages"
	KindPayments  ResourceKind = "payments"
	KindDocuments ResourceKind = "documents"
	KindGallery   ResourceKind = "gallery"
)

// Kinds lists every resource kind in display order.
func Kinds() []ResourceKind {
	return []ResourceKind{
		KindBookings,
		KindBuses,
		KindCampaigns,
		KindPackages,
		KindPayments,
		KindDocuments,
		KindGallery,
	}
}

// ParseKind normalizes user input ("Bookings", " gallery ") into a known kind.
func ParseKind(value string) (ResourceKind, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, kind := range Kinds() {
		if string(kind) == value {
			return kind, true
		}
	}
	return "", false
}

// Record is the contract shared by every resource payload.
type Record interface {
	RecordID() string
	RecordStatus() Status
	SearchFields() []string
}

// Owned records belong to an office or operator and can be scoped locally.
type Owned interface {
	OwnerID() string
}

// PaymentStatused records expose a payment state usable by the payment_status filter.
type PaymentStatused interface {
	PaymentState() string
}

// Timestamps is embedded by every record.
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Created returns the creation time used by date range filters.
func (t Timestamps) Created() time.Time { return t.CreatedAt }

// Dated is implemented by records that embed Timestamps.
type Dated interface {
	Created() time.Time
}

// WithStatus returns a copy of rec with its status replaced. Records are plain values
// with a "status" JSON field, so the copy goes through a JSON round trip.
func WithStatus[T Record](rec T, status Status, now time.Time) (T, error) {
	var out T
	raw, err := json.Marshal(rec)
	if err != nil {
		return out, fmt.Errorf("tripdesk: encode record: %w", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return out, fmt.Errorf("tripdesk: decode record: %w", err)
	}
	fields["status"] = string(status)
	if !now.IsZero() {
		fields["updated_at"] = now.UTC()
	}
	raw, err = json.Marshal(fields)
	if err != nil {
		return out, fmt.Errorf("tripdesk: encode record: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("tripdesk: decode record: %w", err)
	}
	return out, nil
}

// Booking is a seat or package reservation made by a customer.
type Booking struct {
	ID            string  `json:"id" yaml:"id"`
	Reference     string  `json:"reference" yaml:"reference"`
	CustomerName  string  `json:"customer_name" yaml:"customer_name"`
	CustomerPhone string  `json:"customer_phone,omitempty" yaml:"customer_phone,omitempty"`
	TripName      string  `json:"trip_name" yaml:"trip_name"`
	PackageID     string  `json:"package_id,omitempty" yaml:"package_id,omitempty"`
	Seats         int     `json:"seats" yaml:"seats"`
	Total         float64 `json:"total" yaml:"total"`
	Currency      string  `json:"currency" yaml:"currency"`
	Status        Status  `json:"status" yaml:"status"`
	PaymentStatus string  `json:"payment_status" yaml:"payment_status"`
	OfficeID      string  `json:"office_id" yaml:"office_id"`
	Notes         string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	Timestamps    `yaml:",inline"`
}

func (b Booking) RecordID() string     { return b.ID }
func (b Booking) RecordStatus() Status { return b.Status }
func (b Booking) OwnerID() string      { return b.OfficeID }
func (b Booking) PaymentState() string { return b.PaymentStatus }
func (b Booking) SearchFields() []string {
	return []string{b.ID, b.Reference, b.CustomerName, b.CustomerPhone, b.TripName}
}

// Bus is a fleet vehicle owned by a bus operator.
type Bus struct {
	ID          string   `json:"id" yaml:"id"`
	PlateNumber string   `json:"plate_number" yaml:"plate_number"`
	Model       string   `json:"model" yaml:"model"`
	Capacity    int      `json:"capacity" yaml:"capacity"`
	Images      []string `json:"images,omitempty" yaml:"images,omitempty"`
	Features    []string `json:"features,omitempty" yaml:"features,omitempty"`
	Status      Status   `json:"status" yaml:"status"`
	OperatorID  string   `json:"operator_id" yaml:"operator_id"`
	Timestamps  `yaml:",inline"`
}

func (b Bus) RecordID() string       { return b.ID }
func (b Bus) RecordStatus() Status   { return b.Status }
func (b Bus) OwnerID() string        { return b.OperatorID }
func (b Bus) SearchFields() []string { return []string{b.ID, b.PlateNumber, b.Model} }

// Campaign is a promotional offer published by an office.
type Campaign struct {
	ID          string     `json:"id" yaml:"id"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Discount    float64    `json:"discount" yaml:"discount"`
	StartsAt    *time.Time `json:"starts_at,omitempty" yaml:"starts_at,omitempty"`
	EndsAt      *time.Time `json:"ends_at,omitempty" yaml:"ends_at,omitempty"`
	Status      Status     `json:"status" yaml:"status"`
	OfficeID    string     `json:"office_id" yaml:"office_id"`
	Timestamps  `yaml:",inline"`
}

func (c Campaign) RecordID() string       { return c.ID }
func (c Campaign) RecordStatus() Status   { return c.Status }
func (c Campaign) OwnerID() string        { return c.OfficeID }
func (c Campaign) SearchFields() []string { return []string{c.ID, c.Title, c.Description} }

// TourPackage is an Umrah or travel package sold by an office.
type TourPackage struct {
	ID         string   `json:"id" yaml:"id"`
	Name       string   `json:"name" yaml:"name"`
	Cities     []string `json:"cities,omitempty" yaml:"cities,omitempty"`
	Nights     int      `json:"nights" yaml:"nights"`
	Price      float64  `json:"price" yaml:"price"`
	Currency   string   `json:"currency" yaml:"currency"`
	Features   []string `json:"features,omitempty" yaml:"features,omitempty"`
	Images     []string `json:"images,omitempty" yaml:"images,omitempty"`
	Status     Status   `json:"status" yaml:"status"`
	OfficeID   string   `json:"office_id" yaml:"office_id"`
	Timestamps `yaml:",inline"`
}

func (p TourPackage) RecordID() string     { return p.ID }
func (p TourPackage) RecordStatus() Status { return p.Status }
func (p TourPackage) OwnerID() string      { return p.OfficeID }
func (p TourPackage) SearchFields() []string {
	return append([]string{p.ID, p.Name}, p.Cities...)
}

// Payment records money received against a booking.
type Payment struct {
	ID         string  `json:"id" yaml:"id"`
	BookingID  string  `json:"booking_id" yaml:"booking_id"`
	PayerName  string  `json:"payer_name" yaml:"payer_name"`
	Amount     float64 `json:"amount" yaml:"amount"`
	Currency   string  `json:"currency" yaml:"currency"`
	Method     string  `json:"method" yaml:"method"`
	Reference  string  `json:"reference,omitempty" yaml:"reference,omitempty"`
	Status     Status  `json:"status" yaml:"status"`
	OfficeID   string  `json:"office_id" yaml:"office_id"`
	Timestamps `yaml:",inline"`
}

func (p Payment) RecordID() string     { return p.ID }
func (p Payment) RecordStatus() Status { return p.Status }
func (p Payment) OwnerID() string      { return p.OfficeID }
func (p Payment) PaymentState() string { return string(p.Status) }
func (p Payment) SearchFields() []string {
	return []string{p.ID, p.BookingID, p.PayerName, p.Reference}
}

// Document is a file (passport, visa, license) submitted for review.
type Document struct {
	ID         string `json:"id" yaml:"id"`
	OwnerName  string `json:"owner_name" yaml:"owner_name"`
	Type       string `json:"type" yaml:"type"`
	FileURL    string `json:"file_url" yaml:"file_url"`
	Notes      string `json:"notes,omitempty" yaml:"notes,omitempty"`
	Status     Status `json:"status" yaml:"status"`
	OfficeID   string `json:"office_id" yaml:"office_id"`
	Timestamps `yaml:",inline"`
}

func (d Document) RecordID() string       { return d.ID }
func (d Document) RecordStatus() Status   { return d.Status }
func (d Document) OwnerID() string        { return d.OfficeID }
func (d Document) SearchFields() []string { return []string{d.ID, d.OwnerName, d.Type} }

// GalleryImage is a media item shown on an office profile.
type GalleryImage struct {
	ID         string `json:"id" yaml:"id"`
	Title      string `json:"title" yaml:"title"`
	URL        string `json:"url" yaml:"url"`
	Album      string `json:"album,omitempty" yaml:"album,omitempty"`
	Status     Status `json:"status" yaml:"status"`
	OfficeID   string `json:"office_id" yaml:"office_id"`
	Timestamps `yaml:",inline"`
}

func (g GalleryImage) RecordID() string       { return g.ID }
func (g GalleryImage) RecordStatus() Status   { return g.Status }
func (g GalleryImage) OwnerID() string        { return g.OfficeID }
func (g GalleryImage) SearchFields() []string { return []string{g.ID, g.Title, g.Album} }
