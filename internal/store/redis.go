package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and invalidate the cache; reads
// check Redis first then fall back to the primary. Campaign reads are the
// hot path (every price preview hits one), so campaigns and the code→ID
// mapping are cached; booking aggregates always read the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	if err := s.primary.CreateCampaign(ctx, c); err != nil {
		return err
	}
	s.cacheCampaign(ctx, c)
	return nil
}

func (s *CachedStore) UpdateCampaignState(ctx context.Context, id string, committedArea decimal.Decimal, currentPrice *decimal.Decimal, unformed bool) error {
	if err := s.primary.UpdateCampaignState(ctx, id, committedArea, currentPrice, unformed); err != nil {
		return err
	}
	// Invalidate cache; next read will re-populate.
	s.rdb.Del(ctx, campaignKey(id))
	return nil
}

func (s *CachedStore) InsertBooking(ctx context.Context, b *model.Booking) error {
	if err := s.primary.InsertBooking(ctx, b); err != nil {
		return err
	}
	// Invalidate the farmer's summary cache.
	s.rdb.Del(ctx, farmerAreaKey(b.FarmerID))
	return nil
}

func (s *CachedStore) CancelBooking(ctx context.Context, id string) error {
	b, err := s.primary.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if err := s.primary.CancelBooking(ctx, id); err != nil {
		return err
	}
	s.rdb.Del(ctx, farmerAreaKey(b.FarmerID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, campaignKey(id)).Bytes()
	if err == nil {
		var c model.Campaign
		if json.Unmarshal(data, &c) == nil {
			return &c, nil
		}
	}

	// Cache miss: read from primary.
	c, err := s.primary.GetCampaign(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheCampaign(ctx, c)
	return c, nil
}

func (s *CachedStore) GetCampaignByCode(ctx context.Context, code string) (*model.Campaign, error) {
	// Try cache via code→campaignID mapping.
	campaignID, err := s.rdb.Get(ctx, codeKey(code)).Result()
	if err == nil {
		return s.GetCampaign(ctx, campaignID)
	}

	// Cache miss.
	c, err := s.primary.GetCampaignByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	// Cache both the campaign and the code→ID mapping.
	s.cacheCampaign(ctx, c)
	s.rdb.Set(ctx, codeKey(code), c.ID, s.ttl)
	return c, nil
}

func (s *CachedStore) FarmerAreaByMesh(ctx context.Context, farmerID string) (map[string]decimal.Decimal, error) {
	// Try cache.
	data, err := s.rdb.Get(ctx, farmerAreaKey(farmerID)).Bytes()
	if err == nil {
		var areas map[string]decimal.Decimal
		if json.Unmarshal(data, &areas) == nil {
			return areas, nil
		}
	}

	// Cache miss.
	areas, err := s.primary.FarmerAreaByMesh(ctx, farmerID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(areas); err == nil {
		s.rdb.Set(ctx, farmerAreaKey(farmerID), data, s.ttl)
	}
	return areas, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return s.primary.ListCampaigns(ctx)
}

func (s *CachedStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	return s.primary.GetBooking(ctx, id)
}

func (s *CachedStore) ListBookingsByCampaign(ctx context.Context, campaignID string) ([]model.Booking, error) {
	return s.primary.ListBookingsByCampaign(ctx, campaignID)
}

func (s *CachedStore) ListBookingsByFarmer(ctx context.Context, farmerID string) ([]model.Booking, error) {
	return s.primary.ListBookingsByFarmer(ctx, farmerID)
}

func (s *CachedStore) ListBookingsForWorkDate(ctx context.Context, day time.Time) ([]model.Booking, error) {
	return s.primary.ListBookingsForWorkDate(ctx, day)
}

func (s *CachedStore) CommittedArea(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	return s.primary.CommittedArea(ctx, campaignID)
}

func (s *CachedStore) FarmerAreaInCampaign(ctx context.Context, farmerID, campaignID string) (decimal.Decimal, error) {
	return s.primary.FarmerAreaInCampaign(ctx, farmerID, campaignID)
}

// --- Cache helpers ---

func (s *CachedStore) cacheCampaign(ctx context.Context, c *model.Campaign) {
	if data, err := json.Marshal(c); err == nil {
		s.rdb.Set(ctx, campaignKey(c.ID), data, s.ttl)
	}
}

func campaignKey(id string) string      { return fmt.Sprintf("campaign:%s", id) }
func codeKey(code string) string        { return fmt.Sprintf("campaign_code:%s", code) }
func farmerAreaKey(fid string) string   { return fmt.Sprintf("farmer_area:%s", fid) }
