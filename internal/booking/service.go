// Package booking provides the HTTP handlers and business logic for
// publishing campaigns, applying fields to them (with server-side price
// locking), cancelling, invoicing, and planning dispatch routes.
//
// All monetary and area values use shopspring/decimal — never float64
// for money.
package booking

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wayfinder/campaign-engine/internal/campaign"
	"github.com/wayfinder/campaign-engine/internal/capacity"
	"github.com/wayfinder/campaign-engine/internal/metrics"
	"github.com/wayfinder/campaign-engine/internal/model"
	"github.com/wayfinder/campaign-engine/internal/pricing"
	"github.com/wayfinder/campaign-engine/internal/route"
	"github.com/wayfinder/campaign-engine/internal/store"
)

// workDateLayout is the wire format for work dates.
const workDateLayout = "2006-01-02"

// Service handles campaign and booking operations. Uses a mutex for
// serialized booking execution (single-instance): the locked price must
// be derived from a committed-area total no concurrent booking can move.
// For horizontal scaling, replace with distributed locking or
// database-level optimistic concurrency.
type Service struct {
	store   store.Store
	limiter *capacity.AreaLimiter
	mu      sync.Mutex
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new booking service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, limiter *capacity.AreaLimiter, hub *WSHub) *Service {
	return &Service{
		store:   st,
		limiter: limiter,
		wsHub:   hub,
	}
}

// --- Request/Response types ---

// CreateCampaignRequest is the JSON body for campaign creation.
type CreateCampaignRequest struct {
	Code       string         `json:"code"` // AGRX-{mesh}-{task}-{crop}-{YYYYMMDD}
	ProviderID string         `json:"provider_id"`
	Pricing    pricing.Config `json:"pricing"`
}

// BookingRequest is the JSON body for POST /bookings.
type BookingRequest struct {
	CampaignCode string          `json:"campaign_code"`
	FarmerID     string          `json:"farmer_id"`
	FieldName    string          `json:"field_name"`
	Address      string          `json:"address"`
	OwnerName    string          `json:"owner_name"`
	Lat          float64         `json:"lat"`
	Lng          float64         `json:"lng"`
	Area         pricing.Numeric `json:"area"`      // in 10a
	WorkDate     string          `json:"work_date"` // YYYY-MM-DD
}

// BookingResponse is the JSON body returned from POST /bookings.
type BookingResponse struct {
	BookingID       string           `json:"booking_id"`
	CampaignID      string           `json:"campaign_id"`
	FarmerID        string           `json:"farmer_id"`
	Area            decimal.Decimal  `json:"area"`
	LockedUnitPrice decimal.Decimal  `json:"locked_unit_price"`
	AmountExTax     decimal.Decimal  `json:"amount_ex_tax"`
	TaxAmount       decimal.Decimal  `json:"tax_amount"`
	AmountInclusive decimal.Decimal  `json:"amount_inclusive"`
	Campaign        CampaignSnapshot `json:"campaign"`
}

// CampaignSnapshot is the campaign price state included in booking
// responses and cancellations.
type CampaignSnapshot struct {
	CommittedArea decimal.Decimal  `json:"committed_area"`
	CurrentPrice  *decimal.Decimal `json:"current_price"`
	Unformed      bool             `json:"unformed"`
	RemainingArea decimal.Decimal  `json:"remaining_area"`
}

// InvoiceResponse is the final billing for a booking from actual worked area.
type InvoiceResponse struct {
	BookingID       string          `json:"booking_id"`
	CampaignID      string          `json:"campaign_id"`
	FarmerID        string          `json:"farmer_id"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	BilledArea      decimal.Decimal `json:"billed_area"`
	AmountExTax     decimal.Decimal `json:"amount_ex_tax"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	AmountInclusive decimal.Decimal `json:"amount_inclusive"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
}

// RoutePlanRequest is the JSON body for POST /routes/plan.
type RoutePlanRequest struct {
	WorkDate       string   `json:"work_date"` // YYYY-MM-DD
	BaseLat        *float64 `json:"base_lat"`
	BaseLng        *float64 `json:"base_lng"`
	MinutesPerKm   *float64 `json:"minutes_per_km"`
	MinutesPerArea *float64 `json:"minutes_per_area"`
	StartHour      *int     `json:"start_hour"`
	StartMinute    *int     `json:"start_minute"`
}

// RoutePlanResponse is the dispatch sheet for one work day.
type RoutePlanResponse struct {
	WorkDate string                `json:"work_date"`
	Stops    int                   `json:"stops"`
	Schedule []route.ScheduleEntry `json:"schedule"`
}

// --- HTTP Handlers ---

// CreateCampaign handles POST /api/v1/campaigns
func (s *Service) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// Validate code format.
	parsed, err := campaign.ParseCode(req.Code)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// The pricing engine tolerates any config, but publishing a campaign
	// without a positive opening price is a provider mistake.
	if !req.Pricing.BasePrice.IsPositive() {
		writeError(w, "base_price must be positive", http.StatusBadRequest)
		return
	}

	quote := pricing.CurrentQuote(req.Pricing, decimal.Zero)

	c := &model.Campaign{
		ID:            uuid.New().String(),
		Code:          req.Code,
		MeshCode:      parsed.MeshCode,
		Task:          parsed.Task,
		Crop:          parsed.Crop,
		ProviderID:    req.ProviderID,
		Pricing:       req.Pricing,
		CommittedArea: decimal.Zero,
		CurrentPrice:  quote.CurrentPrice,
		Unformed:      quote.Unformed,
		Status:        model.CampaignOpen,
		Deadline:      parsed.Deadline,
		CreatedAt:     time.Now().UTC(),
	}

	ctx := r.Context()
	if err := s.store.CreateCampaign(ctx, c); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	metrics.ActiveCampaigns.Inc()
	if c.Unformed {
		metrics.UnformedCampaigns.Inc()
	}

	slog.Info("campaign created",
		"id", c.ID,
		"code", req.Code,
		"mesh", parsed.MeshCode,
		"task", parsed.Task,
		"base_price", req.Pricing.BasePrice.String(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(c)
}

// GetCampaign handles GET /api/v1/campaigns/{campaignID}
func (s *Service) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	c, err := s.store.GetCampaign(r.Context(), campaignID)
	if err != nil {
		writeError(w, "campaign not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(c)
}

// ListCampaigns handles GET /api/v1/campaigns
// Returns all campaigns, optionally filtered by ?mesh=<meshCode>.
func (s *Service) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := s.store.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, "failed to list campaigns", http.StatusInternalServerError)
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}

	// Optional filter by mesh query parameter.
	if mesh := r.URL.Query().Get("mesh"); mesh != "" {
		var filtered []model.Campaign
		for _, c := range campaigns {
			if c.MeshCode == mesh {
				filtered = append(filtered, c)
			}
		}
		if filtered == nil {
			filtered = []model.Campaign{}
		}
		campaigns = filtered
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaigns)
}

// ListCampaignBookings handles GET /api/v1/campaigns/{campaignID}/bookings
// Returns the campaign's booking ledger in creation order, cancelled rows
// included. Price history reconstructs from this: each row carries the
// unit price locked at its creation.
func (s *Service) ListCampaignBookings(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	ctx := r.Context()

	if _, err := s.store.GetCampaign(ctx, campaignID); err != nil {
		writeError(w, "campaign not found", http.StatusNotFound)
		return
	}

	bookings, err := s.store.ListBookingsByCampaign(ctx, campaignID)
	if err != nil {
		writeError(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(bookings)
}

// GetQuote handles GET /api/v1/campaigns/{campaignID}/price
// Live price preview: the current quote from the authoritative committed
// total, plus billing amounts when ?area= is supplied. This is the same
// computation the browser shows while the farmer draws a field polygon —
// both sides call the identical engine so previews and locks agree.
func (s *Service) GetQuote(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	ctx := r.Context()

	c, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		writeError(w, "campaign not found", http.StatusNotFound)
		return
	}

	committed, err := s.store.CommittedArea(ctx, c.ID)
	if err != nil {
		writeError(w, "failed to compute committed area", http.StatusInternalServerError)
		return
	}

	applied := pricing.ParseNumericOrZero(r.URL.Query().Get("area"))
	res := pricing.CampaignPrice(c.Pricing, committed, applied)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// CreateBooking handles POST /api/v1/bookings
// Locks the unit price against the committed-area total including the
// new booking's area, and records the billing amounts at that price.
func (s *Service) CreateBooking(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	// --- Input validation ---
	if req.FarmerID == "" {
		writeError(w, "farmer_id is required", http.StatusBadRequest)
		return
	}
	if !req.Area.IsPositive() {
		writeError(w, "area must be positive", http.StatusBadRequest)
		return
	}
	workDate, err := time.Parse(workDateLayout, req.WorkDate)
	if err != nil {
		writeError(w, "work_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	// Serialize booking execution.
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.store.GetCampaignByCode(ctx, req.CampaignCode)
	if err != nil {
		writeError(w, "campaign not found for code: "+req.CampaignCode, http.StatusNotFound)
		return
	}

	if c.Status != model.CampaignOpen {
		writeError(w, "campaign is not open for booking", http.StatusConflict)
		return
	}
	if campaign.Expired(c.Deadline, time.Now().UTC()) {
		writeError(w, "campaign application deadline has passed", http.StatusConflict)
		return
	}

	// --- Area limit check ---
	inCampaign, err := s.store.FarmerAreaInCampaign(ctx, req.FarmerID, c.ID)
	if err != nil {
		writeError(w, "failed to check area limits", http.StatusInternalServerError)
		return
	}
	byMesh, err := s.store.FarmerAreaByMesh(ctx, req.FarmerID)
	if err != nil {
		writeError(w, "failed to check area limits", http.StatusInternalServerError)
		return
	}
	if err := s.limiter.CheckLimit(c.MeshCode, inCampaign, req.Area.Decimal, byMesh); err != nil {
		metrics.AreaLimitRejections.Inc()
		metrics.BookingsTotal.WithLabelValues("rejected").Inc()
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	// --- Price lock ---
	committed, err := s.store.CommittedArea(ctx, c.ID)
	if err != nil {
		writeError(w, "failed to compute committed area", http.StatusInternalServerError)
		return
	}

	newCommitted := committed.Add(req.Area.Decimal)
	res := pricing.CampaignPrice(c.Pricing, newCommitted, req.Area.Decimal)
	if res.Billing == nil {
		// Unreachable with a positive area; guard anyway.
		writeError(w, "internal error: no billing computed", http.StatusInternalServerError)
		return
	}

	if err := s.store.UpdateCampaignState(ctx, c.ID, newCommitted, res.CurrentPrice, res.Unformed); err != nil {
		writeError(w, "failed to update campaign state", http.StatusInternalServerError)
		return
	}

	b := &model.Booking{
		ID:              uuid.New().String(),
		CampaignID:      c.ID,
		FarmerID:        req.FarmerID,
		FieldName:       req.FieldName,
		Address:         req.Address,
		OwnerName:       req.OwnerName,
		Lat:             req.Lat,
		Lng:             req.Lng,
		Area:            req.Area.Decimal,
		LockedUnitPrice: res.Billing.UnitPrice,
		AmountExTax:     res.Billing.AmountExTax,
		TaxAmount:       res.Billing.TaxAmount,
		AmountInclusive: res.Billing.AmountInclusive,
		Status:          model.BookingActive,
		WorkDate:        workDate,
		CreatedAt:       time.Now().UTC(),
	}

	if err := s.store.InsertBooking(ctx, b); err != nil {
		writeError(w, "failed to record booking", http.StatusInternalServerError)
		return
	}

	metrics.BookingsTotal.WithLabelValues("created").Inc()
	metrics.BookingLatency.Observe(time.Since(start).Seconds())
	metrics.CommittedAreaTotal.WithLabelValues(c.ID).Add(req.Area.InexactFloat64())
	if c.Unformed && !res.Unformed {
		metrics.UnformedCampaigns.Dec()
	}

	slog.Info("booking created",
		"booking_id", b.ID,
		"campaign", req.CampaignCode,
		"farmer", req.FarmerID,
		"area", req.Area.String(),
		"locked_price", b.LockedUnitPrice.String(),
		"committed", newCommitted.String(),
		"unformed", res.Unformed,
	)

	s.broadcastCampaign(c, newCommitted, res.Quote)

	resp := BookingResponse{
		BookingID:       b.ID,
		CampaignID:      c.ID,
		FarmerID:        req.FarmerID,
		Area:            b.Area,
		LockedUnitPrice: b.LockedUnitPrice,
		AmountExTax:     b.AmountExTax,
		TaxAmount:       b.TaxAmount,
		AmountInclusive: b.AmountInclusive,
		Campaign: CampaignSnapshot{
			CommittedArea: newCommitted,
			CurrentPrice:  res.CurrentPrice,
			Unformed:      res.Unformed,
			RemainingArea: res.RemainingArea,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// CancelBooking handles POST /api/v1/bookings/{bookingID}/cancel
// Removes the booking's area from the campaign's committed total and
// reprices the campaign — it can drop back below its viability threshold.
func (s *Service) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")
	ctx := r.Context()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		writeError(w, "booking not found", http.StatusNotFound)
		return
	}

	c, err := s.store.GetCampaign(ctx, b.CampaignID)
	if err != nil {
		writeError(w, "campaign not found", http.StatusInternalServerError)
		return
	}

	if err := s.store.CancelBooking(ctx, bookingID); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	committed, err := s.store.CommittedArea(ctx, c.ID)
	if err != nil {
		writeError(w, "failed to compute committed area", http.StatusInternalServerError)
		return
	}

	quote := pricing.CurrentQuote(c.Pricing, committed)
	if err := s.store.UpdateCampaignState(ctx, c.ID, committed, quote.CurrentPrice, quote.Unformed); err != nil {
		writeError(w, "failed to update campaign state", http.StatusInternalServerError)
		return
	}

	metrics.BookingsTotal.WithLabelValues("cancelled").Inc()
	if !c.Unformed && quote.Unformed {
		metrics.UnformedCampaigns.Inc()
	}

	slog.Info("booking cancelled",
		"booking_id", bookingID,
		"campaign", c.Code,
		"committed", committed.String(),
		"unformed", quote.Unformed,
	)

	s.broadcastCampaign(c, committed, quote)

	resp := map[string]any{
		"booking_id": bookingID,
		"status":     model.BookingCancelled,
		"campaign": CampaignSnapshot{
			CommittedArea: committed,
			CurrentPrice:  quote.CurrentPrice,
			Unformed:      quote.Unformed,
			RemainingArea: quote.RemainingArea,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetInvoice handles GET /api/v1/bookings/{bookingID}/invoice
// Computes the final billed amounts from the actual worked area
// (?actual_area=) at the unit price locked when the booking was created.
// Without an actual area the estimated booking area is billed.
func (s *Service) GetInvoice(w http.ResponseWriter, r *http.Request) {
	bookingID := chi.URLParam(r, "bookingID")

	b, err := s.store.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeError(w, "booking not found", http.StatusNotFound)
		return
	}
	if b.Status != model.BookingActive {
		writeError(w, "cannot invoice a cancelled booking", http.StatusConflict)
		return
	}

	billedArea := pricing.ParseNumericOrZero(r.URL.Query().Get("actual_area"))
	if !billedArea.IsPositive() {
		billedArea = b.Area
	}

	exTax := pricing.FinalAmount(b.LockedUnitPrice, billedArea)
	tb := pricing.Tax(exTax)

	resp := InvoiceResponse{
		BookingID:       b.ID,
		CampaignID:      b.CampaignID,
		FarmerID:        b.FarmerID,
		UnitPrice:       b.LockedUnitPrice,
		BilledArea:      billedArea,
		AmountExTax:     exTax,
		TaxAmount:       tb.TaxAmount,
		AmountInclusive: tb.AmountInclusive,
		TaxRate:         tb.TaxRate,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// GetFarmerSummary handles GET /api/v1/farmers/{farmerID}/bookings
// Returns the farmer's bookings with area and amount totals per district.
func (s *Service) GetFarmerSummary(w http.ResponseWriter, r *http.Request) {
	farmerID := chi.URLParam(r, "farmerID")
	ctx := r.Context()

	bookings, err := s.store.ListBookingsByFarmer(ctx, farmerID)
	if err != nil {
		writeError(w, "failed to load bookings", http.StatusInternalServerError)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}

	areaByMesh, err := s.store.FarmerAreaByMesh(ctx, farmerID)
	if err != nil {
		writeError(w, "failed to load area totals", http.StatusInternalServerError)
		return
	}

	totalArea := decimal.Zero
	totalInclusive := decimal.Zero
	active := 0
	for _, b := range bookings {
		if b.Status != model.BookingActive {
			continue
		}
		active++
		totalArea = totalArea.Add(b.Area)
		totalInclusive = totalInclusive.Add(b.AmountInclusive)
	}

	summary := model.FarmerSummary{
		FarmerID:       farmerID,
		Bookings:       bookings,
		ActiveBookings: active,
		TotalArea:      totalArea,
		TotalInclusive: totalInclusive,
		AreaByMesh:     areaByMesh,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}

// PlanRoute handles POST /api/v1/routes/plan
// Builds the dispatch sheet for a work day: active bookings scheduled on
// that day are sequenced with the nearest-neighbor optimizer and
// projected onto an arrival/departure schedule. Nothing is persisted.
func (s *Service) PlanRoute(w http.ResponseWriter, r *http.Request) {
	var req RoutePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	workDate, err := time.Parse(workDateLayout, req.WorkDate)
	if err != nil {
		writeError(w, "work_date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	bookings, err := s.store.ListBookingsForWorkDate(r.Context(), workDate)
	if err != nil {
		writeError(w, "failed to load bookings", http.StatusInternalServerError)
		return
	}

	points := make([]route.Point, 0, len(bookings))
	for _, b := range bookings {
		points = append(points, route.Point{
			ID:        b.ID,
			Name:      b.FieldName,
			Address:   b.Address,
			OwnerName: b.OwnerName,
			Area:      b.Area,
			Lat:       b.Lat,
			Lng:       b.Lng,
		})
	}

	var base *route.Coordinates
	if req.BaseLat != nil && req.BaseLng != nil {
		base = &route.Coordinates{Lat: *req.BaseLat, Lng: *req.BaseLng}
	}

	minutesPerKm := route.DefaultMinutesPerKm
	if req.MinutesPerKm != nil && *req.MinutesPerKm > 0 {
		minutesPerKm = *req.MinutesPerKm
	}
	minutesPerArea := route.DefaultMinutesPerAreaUnit
	if req.MinutesPerArea != nil && *req.MinutesPerArea > 0 {
		minutesPerArea = *req.MinutesPerArea
	}
	startHour := route.DefaultStartHour
	if req.StartHour != nil {
		startHour = *req.StartHour
	}
	startMinute := route.DefaultStartMinute
	if req.StartMinute != nil {
		startMinute = *req.StartMinute
	}

	stops := route.Optimize(points, base, minutesPerKm)
	schedule := route.BuildSchedule(stops, workDate, minutesPerArea, startHour, startMinute)

	resp := RoutePlanResponse{
		WorkDate: req.WorkDate,
		Stops:    len(stops),
		Schedule: schedule,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// broadcastCampaign pushes a price update to WebSocket clients.
func (s *Service) broadcastCampaign(c *model.Campaign, committed decimal.Decimal, quote pricing.Quote) {
	if s.wsHub == nil {
		return
	}

	msg := WSMessage{
		Type:          "price_update",
		CampaignID:    c.ID,
		Code:          c.Code,
		MeshCode:      c.MeshCode,
		CommittedArea: committed.String(),
		Unformed:      quote.Unformed,
		Progress:      quote.Progress.String(),
	}
	if quote.CurrentPrice != nil {
		msg.CurrentPrice = quote.CurrentPrice.String()
	}
	s.wsHub.Broadcast(msg)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
