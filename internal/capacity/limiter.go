// Package capacity enforces per-farmer area limits on campaign bookings.
//
// Campaigns are group discounts: the price drops as the committed total
// grows, so a single large farm could book most of a campaign's ceiling
// and capture a discount meant for a group. The limiter caps one
// farmer's area per campaign and, because nearby campaigns compete for
// the same drone crews, also caps their aggregate area across campaigns
// in the same district.
//
// District grouping uses JIS regional mesh code prefix matching: mesh
// codes encode spatial hierarchy digit by digit, so campaigns whose mesh
// codes share a longer prefix serve closer fields. PrefixLen controls
// the grouping radius (6 digits ≈ 1 km mesh, 4 digits ≈ 80 km mesh).
package capacity

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrCampaignLimitExceeded is returned when a booking would push a
	// farmer's area in one campaign beyond the per-campaign maximum.
	ErrCampaignLimitExceeded = errors.New("capacity: per-campaign area limit exceeded")

	// ErrDistrictLimitExceeded is returned when a booking would push a
	// farmer's aggregate area across campaigns in the same district
	// beyond the district maximum.
	ErrDistrictLimitExceeded = errors.New("capacity: district area limit exceeded")
)

// AreaLimiter enforces booking area limits per farmer.
type AreaLimiter struct {
	// MaxPerCampaign is the maximum area one farmer may commit to a
	// single campaign.
	MaxPerCampaign decimal.Decimal

	// MaxPerDistrict is the maximum aggregate area one farmer may commit
	// across all campaigns whose mesh codes share the same prefix.
	MaxPerDistrict decimal.Decimal

	// PrefixLen is how many leading mesh-code digits must match for two
	// campaigns to be considered the same district.
	PrefixLen int
}

// NewAreaLimiter creates a limiter with the given per-campaign and
// district caps.
func NewAreaLimiter(maxPerCampaign, maxPerDistrict decimal.Decimal, prefixLen int) *AreaLimiter {
	if prefixLen < 1 {
		prefixLen = 1
	}
	return &AreaLimiter{
		MaxPerCampaign: maxPerCampaign,
		MaxPerDistrict: maxPerDistrict,
		PrefixLen:      prefixLen,
	}
}

// CheckLimit validates whether a booking respects the farmer's limits.
//
// Parameters:
//   - targetMesh: mesh code of the campaign being booked
//   - inCampaign: the farmer's current active area in that campaign
//   - areaDelta: the area of the new booking
//   - byMesh: the farmer's current active area per campaign mesh code
func (l *AreaLimiter) CheckLimit(
	targetMesh string,
	inCampaign decimal.Decimal,
	areaDelta decimal.Decimal,
	byMesh map[string]decimal.Decimal,
) error {
	if inCampaign.Add(areaDelta).GreaterThan(l.MaxPerCampaign) {
		return ErrCampaignLimitExceeded
	}

	prefix := l.prefix(targetMesh)

	district := areaDelta
	for mesh, area := range byMesh {
		if l.prefix(mesh) == prefix {
			district = district.Add(area)
		}
	}
	if district.GreaterThan(l.MaxPerDistrict) {
		return ErrDistrictLimitExceeded
	}

	return nil
}

func (l *AreaLimiter) prefix(mesh string) string {
	if len(mesh) <= l.PrefixLen {
		return mesh
	}
	return mesh[:l.PrefixLen]
}
