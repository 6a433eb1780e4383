// Package route sequences a day's field visits for a drone operator and
// projects an arrival/departure schedule for the resulting order.
//
// Ordering uses a greedy nearest-neighbor heuristic over great-circle
// distance. It minimizes the immediate travel leg at each step and does
// not attempt global route optimization — daily routes are tens of stops
// at most, and determinism matters more than optimality (the same
// booking set must always print the same dispatch sheet).
//
// Everything here is pure: inputs are never mutated, outputs are fresh
// values, and there is no I/O.
package route

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Scheduling defaults.
const (
	// DefaultMinutesPerAreaUnit is the assumed service time per 10a of field.
	DefaultMinutesPerAreaUnit = 30.0

	// DefaultMinutesPerKm converts great-circle distance to travel time.
	DefaultMinutesPerKm = 1.0

	// DefaultStartHour and DefaultStartMinute give the 09:00 day start.
	DefaultStartHour   = 9
	DefaultStartMinute = 0
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// Coordinates is a geographic position (latitude, longitude in degrees).
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point is one field to visit: its location, its area in 10a (drives
// service duration), and display metadata for the dispatch sheet.
type Point struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Address   string          `json:"address"`
	OwnerName string          `json:"owner_name"`
	Area      decimal.Decimal `json:"area"`
	Lat       float64         `json:"lat"`
	Lng       float64         `json:"lng"`
}

// Stop pairs a point with its position in the optimized order and the
// travel time from the previous stop (or from the base, for the first
// stop when a base was given).
type Stop struct {
	Point
	Order         int `json:"order"`
	TravelMinutes int `json:"travel_minutes"`
}

// HaversineKm returns the great-circle distance between two coordinates
// in kilometers.
func HaversineKm(a, b Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func travelMinutes(distanceKm, minutesPerKm float64) int {
	return int(math.Ceil(distanceKm * minutesPerKm))
}

// Optimize orders points with a greedy nearest-neighbor scan.
//
// When a base is given, the point nearest the base becomes the first
// stop and is charged travel time from the base; without a base the
// first input point starts the route with zero travel. Each subsequent
// stop is the nearest unvisited point from the current one. Ties keep
// the first-encountered candidate (strict less-than scan), so the same
// input order always yields the same route.
func Optimize(points []Point, base *Coordinates, minutesPerKm float64) []Stop {
	if len(points) == 0 {
		return []Stop{}
	}

	remaining := make([]Point, len(points))
	copy(remaining, points)

	stops := make([]Stop, 0, len(points))

	// Select the first stop.
	first := 0
	firstTravel := 0
	if base != nil {
		best := math.MaxFloat64
		for i, p := range remaining {
			if dist := HaversineKm(*base, Coordinates{Lat: p.Lat, Lng: p.Lng}); dist < best {
				best = dist
				first = i
			}
		}
		firstTravel = travelMinutes(best, minutesPerKm)
	}

	current := remaining[first]
	stops = append(stops, Stop{Point: current, Order: 0, TravelMinutes: firstTravel})
	remaining = append(remaining[:first], remaining[first+1:]...)

	for len(remaining) > 0 {
		from := Coordinates{Lat: current.Lat, Lng: current.Lng}

		next := 0
		best := math.MaxFloat64
		for i, p := range remaining {
			if dist := HaversineKm(from, Coordinates{Lat: p.Lat, Lng: p.Lng}); dist < best {
				best = dist
				next = i
			}
		}

		current = remaining[next]
		stops = append(stops, Stop{
			Point:         current,
			Order:         len(stops),
			TravelMinutes: travelMinutes(best, minutesPerKm),
		})
		remaining = append(remaining[:next], remaining[next+1:]...)
	}

	return stops
}

// ScheduleEntry is one line of the dispatch sheet: when the operator
// arrives at a stop, how long the work takes, and when they leave.
// Times are zero-padded 24-hour HH:MM on the work date.
type ScheduleEntry struct {
	Stop
	Arrival     string `json:"arrival"`
	WorkMinutes int    `json:"work_minutes"`
	Departure   string `json:"departure"`
}

// BuildSchedule projects arrival and departure times over an ordered
// route. Starting from startHour:startMinute on the work date, each
// stop's arrival is the previous departure plus its travel time, and
// its departure follows ceil(area × minutesPerAreaUnit) minutes of work.
func BuildSchedule(stops []Stop, workDate time.Time, minutesPerAreaUnit float64, startHour, startMinute int) []ScheduleEntry {
	entries := make([]ScheduleEntry, 0, len(stops))

	current := time.Date(
		workDate.Year(), workDate.Month(), workDate.Day(),
		startHour, startMinute, 0, 0, workDate.Location(),
	)

	for _, s := range stops {
		arrival := current.Add(time.Duration(s.TravelMinutes) * time.Minute)
		workMinutes := int(math.Ceil(s.Area.InexactFloat64() * minutesPerAreaUnit))
		if workMinutes < 0 {
			workMinutes = 0
		}
		departure := arrival.Add(time.Duration(workMinutes) * time.Minute)

		entries = append(entries, ScheduleEntry{
			Stop:        s,
			Arrival:     clock(arrival),
			WorkMinutes: workMinutes,
			Departure:   clock(departure),
		})

		current = departure
	}

	return entries
}

func clock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
