// Package store defines the persistence interface for the campaign
// engine. Implementations include PostgreSQL (source of truth), Redis
// (read-through cache), and in-memory (for testing).
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/model"
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer for campaign reads.
type Store interface {
	// --- Campaign operations ---

	// CreateCampaign persists a new campaign.
	CreateCampaign(ctx context.Context, c *model.Campaign) error

	// GetCampaign retrieves a campaign by its ID.
	GetCampaign(ctx context.Context, id string) (*model.Campaign, error)

	// GetCampaignByCode retrieves a campaign by its campaign code.
	GetCampaignByCode(ctx context.Context, code string) (*model.Campaign, error)

	// ListCampaigns returns all campaigns.
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)

	// UpdateCampaignState updates the committed-area and price snapshot
	// after a booking is created or cancelled.
	UpdateCampaignState(ctx context.Context, id string, committedArea decimal.Decimal, currentPrice *decimal.Decimal, unformed bool) error

	// --- Bookings ---

	// InsertBooking appends a booking record.
	InsertBooking(ctx context.Context, b *model.Booking) error

	// GetBooking retrieves a booking by its ID.
	GetBooking(ctx context.Context, id string) (*model.Booking, error)

	// CancelBooking marks a booking cancelled. Cancelling twice is an error.
	CancelBooking(ctx context.Context, id string) error

	// ListBookingsByCampaign returns all bookings for a campaign.
	ListBookingsByCampaign(ctx context.Context, campaignID string) ([]model.Booking, error)

	// ListBookingsByFarmer returns all bookings for a farmer.
	ListBookingsByFarmer(ctx context.Context, farmerID string) ([]model.Booking, error)

	// ListBookingsForWorkDate returns active bookings scheduled on a day.
	ListBookingsForWorkDate(ctx context.Context, day time.Time) ([]model.Booking, error)

	// --- Aggregations ---

	// CommittedArea sums the active booked area for a campaign.
	CommittedArea(ctx context.Context, campaignID string) (decimal.Decimal, error)

	// FarmerAreaInCampaign sums a farmer's active area in one campaign.
	FarmerAreaInCampaign(ctx context.Context, farmerID, campaignID string) (decimal.Decimal, error)

	// FarmerAreaByMesh returns a farmer's active area per campaign mesh code.
	FarmerAreaByMesh(ctx context.Context, farmerID string) (map[string]decimal.Decimal, error)
}
