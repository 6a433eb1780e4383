package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/model"
	"github.com/wayfinder/campaign-engine/internal/pricing"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary and area values are stored as NUMERIC for exact decimal
// precision and round-tripped through text.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const campaignColumns = `id, code, mesh_code, task, crop, provider_id,
	base_price::TEXT, min_price::TEXT, target_area::TEXT,
	min_target_area::TEXT, max_target_area::TEXT, execution_price::TEXT,
	committed_area::TEXT, current_price::TEXT, unformed,
	status, deadline, created_at`

func (s *PostgresStore) CreateCampaign(ctx context.Context, c *model.Campaign) error {
	var currentPrice *string
	if c.CurrentPrice != nil {
		p := c.CurrentPrice.String()
		currentPrice = &p
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO campaigns (id, code, mesh_code, task, crop, provider_id,
		    base_price, min_price, target_area, min_target_area, max_target_area, execution_price,
		    committed_area, current_price, unformed, status, deadline, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6,
		    $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC,
		    $13::NUMERIC, $14::NUMERIC, $15, $16, $17, $18)`,
		c.ID, c.Code, c.MeshCode, c.Task, c.Crop, c.ProviderID,
		c.Pricing.BasePrice.String(), c.Pricing.MinPrice.String(),
		c.Pricing.TargetArea.String(), c.Pricing.MinTargetArea.String(),
		c.Pricing.MaxTargetArea.String(), c.Pricing.ExecutionPrice.String(),
		c.CommittedArea.String(), currentPrice, c.Unformed,
		c.Status, c.Deadline, c.CreatedAt,
	)
	return err
}

func scanCampaign(row pgx.Row) (*model.Campaign, error) {
	var c model.Campaign
	var basePrice, minPrice, targetArea, minTargetArea, maxTargetArea, executionPrice string
	var committedArea string
	var currentPrice *string

	err := row.Scan(&c.ID, &c.Code, &c.MeshCode, &c.Task, &c.Crop, &c.ProviderID,
		&basePrice, &minPrice, &targetArea,
		&minTargetArea, &maxTargetArea, &executionPrice,
		&committedArea, &currentPrice, &c.Unformed,
		&c.Status, &c.Deadline, &c.CreatedAt)
	if err != nil {
		return nil, err
	}

	c.Pricing = pricing.Config{
		BasePrice:      pricing.N(pricing.ParseNumericOrZero(basePrice)),
		MinPrice:       pricing.N(pricing.ParseNumericOrZero(minPrice)),
		TargetArea:     pricing.N(pricing.ParseNumericOrZero(targetArea)),
		MinTargetArea:  pricing.N(pricing.ParseNumericOrZero(minTargetArea)),
		MaxTargetArea:  pricing.N(pricing.ParseNumericOrZero(maxTargetArea)),
		ExecutionPrice: pricing.N(pricing.ParseNumericOrZero(executionPrice)),
	}
	c.CommittedArea = pricing.ParseNumericOrZero(committedArea)
	if currentPrice != nil {
		p := pricing.ParseNumericOrZero(*currentPrice)
		c.CurrentPrice = &p
	}

	return &c, nil
}

func (s *PostgresStore) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	c, err := scanCampaign(s.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	return c, nil
}

func (s *PostgresStore) GetCampaignByCode(ctx context.Context, code string) (*model.Campaign, error) {
	c, err := scanCampaign(s.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE code = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("get campaign by code %s: %w", code, err)
	}
	return c, nil
}

func (s *PostgresStore) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM campaigns ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []model.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *c)
	}
	return campaigns, rows.Err()
}

func (s *PostgresStore) UpdateCampaignState(ctx context.Context, id string, committedArea decimal.Decimal, currentPrice *decimal.Decimal, unformed bool) error {
	var price *string
	if currentPrice != nil {
		p := currentPrice.String()
		price = &p
	}

	_, err := s.pool.Exec(ctx,
		`UPDATE campaigns
		 SET committed_area = $2::NUMERIC, current_price = $3::NUMERIC, unformed = $4
		 WHERE id = $1`,
		id, committedArea.String(), price, unformed,
	)
	return err
}

const bookingColumns = `id, campaign_id, farmer_id, field_name, address, owner_name,
	lat, lng, area::TEXT, locked_unit_price::TEXT,
	amount_ex_tax::TEXT, tax_amount::TEXT, amount_inclusive::TEXT,
	status, work_date, created_at`

func (s *PostgresStore) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bookings (id, campaign_id, farmer_id, field_name, address, owner_name,
		    lat, lng, area, locked_unit_price, amount_ex_tax, tax_amount, amount_inclusive,
		    status, work_date, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6,
		    $7, $8, $9::NUMERIC, $10::NUMERIC, $11::NUMERIC, $12::NUMERIC, $13::NUMERIC,
		    $14, $15, $16)`,
		b.ID, b.CampaignID, b.FarmerID, b.FieldName, b.Address, b.OwnerName,
		b.Lat, b.Lng, b.Area.String(), b.LockedUnitPrice.String(),
		b.AmountExTax.String(), b.TaxAmount.String(), b.AmountInclusive.String(),
		b.Status, b.WorkDate, b.CreatedAt,
	)
	return err
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var area, lockedUnitPrice, amountExTax, taxAmount, amountInclusive string

	err := row.Scan(&b.ID, &b.CampaignID, &b.FarmerID, &b.FieldName, &b.Address, &b.OwnerName,
		&b.Lat, &b.Lng, &area, &lockedUnitPrice,
		&amountExTax, &taxAmount, &amountInclusive,
		&b.Status, &b.WorkDate, &b.CreatedAt)
	if err != nil {
		return nil, err
	}

	b.Area = pricing.ParseNumericOrZero(area)
	b.LockedUnitPrice = pricing.ParseNumericOrZero(lockedUnitPrice)
	b.AmountExTax = pricing.ParseNumericOrZero(amountExTax)
	b.TaxAmount = pricing.ParseNumericOrZero(taxAmount)
	b.AmountInclusive = pricing.ParseNumericOrZero(amountInclusive)

	return &b, nil
}

func (s *PostgresStore) GetBooking(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(s.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) CancelBooking(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE bookings SET status = $2 WHERE id = $1 AND status = $3`,
		id, model.BookingCancelled, model.BookingActive,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found or already cancelled", id)
	}
	return nil
}

func (s *PostgresStore) listBookings(ctx context.Context, query string, args ...any) ([]model.Booking, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (s *PostgresStore) ListBookingsByCampaign(ctx context.Context, campaignID string) ([]model.Booking, error) {
	return s.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE campaign_id = $1 ORDER BY created_at`,
		campaignID)
}

func (s *PostgresStore) ListBookingsByFarmer(ctx context.Context, farmerID string) ([]model.Booking, error) {
	return s.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE farmer_id = $1 ORDER BY created_at`,
		farmerID)
}

func (s *PostgresStore) ListBookingsForWorkDate(ctx context.Context, day time.Time) ([]model.Booking, error) {
	return s.listBookings(ctx,
		`SELECT `+bookingColumns+` FROM bookings
		 WHERE status = $1 AND work_date::DATE = $2::DATE
		 ORDER BY created_at`,
		model.BookingActive, day)
}

func (s *PostgresStore) CommittedArea(ctx context.Context, campaignID string) (decimal.Decimal, error) {
	var total string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(area), 0)::TEXT FROM bookings
		 WHERE campaign_id = $1 AND status = $2`,
		campaignID, model.BookingActive).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("committed area for campaign %s: %w", campaignID, err)
	}
	return pricing.ParseNumericOrZero(total), nil
}

func (s *PostgresStore) FarmerAreaInCampaign(ctx context.Context, farmerID, campaignID string) (decimal.Decimal, error) {
	var total string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(area), 0)::TEXT FROM bookings
		 WHERE farmer_id = $1 AND campaign_id = $2 AND status = $3`,
		farmerID, campaignID, model.BookingActive).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("farmer %s area in campaign %s: %w", farmerID, campaignID, err)
	}
	return pricing.ParseNumericOrZero(total), nil
}

func (s *PostgresStore) FarmerAreaByMesh(ctx context.Context, farmerID string) (map[string]decimal.Decimal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT c.mesh_code, COALESCE(SUM(b.area), 0)::TEXT
		 FROM bookings b
		 JOIN campaigns c ON c.id = b.campaign_id
		 WHERE b.farmer_id = $1 AND b.status = $2
		 GROUP BY c.mesh_code`,
		farmerID, model.BookingActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := make(map[string]decimal.Decimal)
	for rows.Next() {
		var mesh, total string
		if err := rows.Scan(&mesh, &total); err != nil {
			return nil, err
		}
		areas[mesh] = pricing.ParseNumericOrZero(total)
	}
	return areas, rows.Err()
}
