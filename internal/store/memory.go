package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	campaigns map[string]*model.Campaign
	bookings  []model.Booking
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		campaigns: make(map[string]*model.Campaign),
	}
}

func (s *MemoryStore) CreateCampaign(_ context.Context, c *model.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.campaigns {
		if existing.Code == c.Code {
			return fmt.Errorf("campaign with code %s already exists", c.Code)
		}
	}

	// Store a copy to avoid external mutation.
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id string) (*model.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, fmt.Errorf("campaign %s not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) GetCampaignByCode(_ context.Context, code string) (*model.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.campaigns {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("campaign with code %s not found", code)
}

func (s *MemoryStore) ListCampaigns(_ context.Context) ([]model.Campaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	campaigns := make([]model.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		campaigns = append(campaigns, *c)
	}
	return campaigns, nil
}

func (s *MemoryStore) UpdateCampaignState(_ context.Context, id string, committedArea decimal.Decimal, currentPrice *decimal.Decimal, unformed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.campaigns[id]
	if !ok {
		return fmt.Errorf("campaign %s not found", id)
	}
	c.CommittedArea = committedArea
	c.CurrentPrice = currentPrice
	c.Unformed = unformed
	return nil
}

func (s *MemoryStore) InsertBooking(_ context.Context, b *model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookings = append(s.bookings, *b)
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.bookings {
		if s.bookings[i].ID == id {
			cp := s.bookings[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("booking %s not found", id)
}

func (s *MemoryStore) CancelBooking(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.bookings {
		if s.bookings[i].ID == id {
			if s.bookings[i].Status == model.BookingCancelled {
				return fmt.Errorf("booking %s is already cancelled", id)
			}
			s.bookings[i].Status = model.BookingCancelled
			return nil
		}
	}
	return fmt.Errorf("booking %s not found", id)
}

func (s *MemoryStore) ListBookingsByCampaign(_ context.Context, campaignID string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Booking
	for _, b := range s.bookings {
		if b.CampaignID == campaignID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListBookingsByFarmer(_ context.Context, farmerID string) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Booking
	for _, b := range s.bookings {
		if b.FarmerID == farmerID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListBookingsForWorkDate(_ context.Context, day time.Time) ([]model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := day.Date()

	var result []model.Booking
	for _, b := range s.bookings {
		by, bm, bd := b.WorkDate.Date()
		if b.Status == model.BookingActive && by == y && bm == m && bd == d {
			result = append(result, b)
		}
	}
	return result, nil
}

func (s *MemoryStore) CommittedArea(_ context.Context, campaignID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, b := range s.bookings {
		if b.CampaignID == campaignID && b.Status == model.BookingActive {
			total = total.Add(b.Area)
		}
	}
	return total, nil
}

func (s *MemoryStore) FarmerAreaInCampaign(_ context.Context, farmerID, campaignID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, b := range s.bookings {
		if b.CampaignID == campaignID && b.FarmerID == farmerID && b.Status == model.BookingActive {
			total = total.Add(b.Area)
		}
	}
	return total, nil
}

// FarmerAreaByMesh aggregates a farmer's active booked area per campaign
// mesh code (single lock, no re-entrant calls).
func (s *MemoryStore) FarmerAreaByMesh(_ context.Context, farmerID string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	areas := make(map[string]decimal.Decimal)
	for _, b := range s.bookings {
		if b.FarmerID != farmerID || b.Status != model.BookingActive {
			continue
		}
		c := s.campaigns[b.CampaignID] // direct access, already under RLock
		if c == nil || c.MeshCode == "" {
			continue
		}
		areas[c.MeshCode] = areas[c.MeshCode].Add(b.Area)
	}
	return areas, nil
}
