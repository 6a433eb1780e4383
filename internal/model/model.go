// Package model defines the core domain types shared across the
// campaign engine. All monetary and area values use shopspring/decimal —
// never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/pricing"
)

// Campaign statuses.
const (
	CampaignOpen   = "open"
	CampaignClosed = "closed"
)

// Booking statuses.
const (
	BookingActive    = "active"
	BookingCancelled = "cancelled"
)

// Campaign is a provider-published group booking: a reverse auction
// where the unit price drops as more field area is committed. The
// committed-area total and the derived price are stored as a snapshot,
// updated whenever a booking is created or cancelled.
type Campaign struct {
	ID         string `json:"id" db:"id"`
	Code       string `json:"code" db:"code"`
	MeshCode   string `json:"mesh_code" db:"mesh_code"`
	Task       string `json:"task" db:"task"`
	Crop       string `json:"crop" db:"crop"`
	ProviderID string `json:"provider_id" db:"provider_id"`

	Pricing pricing.Config `json:"pricing"`

	CommittedArea decimal.Decimal  `json:"committed_area" db:"committed_area"`
	CurrentPrice  *decimal.Decimal `json:"current_price" db:"current_price"` // nil while unformed
	Unformed      bool             `json:"unformed" db:"unformed"`

	Status    string    `json:"status" db:"status"` // "open" or "closed"
	Deadline  time.Time `json:"deadline" db:"deadline"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Booking is a farmer's application to a campaign. Monetary amounts are
// locked at creation time from the campaign's price after this booking's
// area is included; cancellation keeps the row but removes its area from
// the campaign's committed total.
type Booking struct {
	ID         string `json:"id" db:"id"`
	CampaignID string `json:"campaign_id" db:"campaign_id"`
	FarmerID   string `json:"farmer_id" db:"farmer_id"`

	// Field details, denormalized for dispatch sheets.
	FieldName string  `json:"field_name" db:"field_name"`
	Address   string  `json:"address" db:"address"`
	OwnerName string  `json:"owner_name" db:"owner_name"`
	Lat       float64 `json:"lat" db:"lat"`
	Lng       float64 `json:"lng" db:"lng"`

	Area            decimal.Decimal `json:"area" db:"area"` // estimated, in 10a
	LockedUnitPrice decimal.Decimal `json:"locked_unit_price" db:"locked_unit_price"`
	AmountExTax     decimal.Decimal `json:"amount_ex_tax" db:"amount_ex_tax"`
	TaxAmount       decimal.Decimal `json:"tax_amount" db:"tax_amount"`
	AmountInclusive decimal.Decimal `json:"amount_inclusive" db:"amount_inclusive"`

	Status    string    `json:"status" db:"status"` // "active" or "cancelled"
	WorkDate  time.Time `json:"work_date" db:"work_date"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FarmerSummary aggregates a farmer's bookings with area and amount
// totals, plus their active committed area per campaign district.
type FarmerSummary struct {
	FarmerID       string                     `json:"farmer_id"`
	Bookings       []Booking                  `json:"bookings"`
	ActiveBookings int                        `json:"active_bookings"`
	TotalArea      decimal.Decimal            `json:"total_area"`
	TotalInclusive decimal.Decimal            `json:"total_inclusive"`
	AreaByMesh     map[string]decimal.Decimal `json:"area_by_mesh"`
}
