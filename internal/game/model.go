package game

import (
	"errors"
	"fmt"
	"math"
	mathrand "math/rand"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Survival goal: stay solvent this many in-game days.
	SurvivalTargetDays = 666

	// Stranded IDLE aircraft are swept home every rtbSweepInterval days.
	rtbSweepInterval = 3

	// Monthly bills land every billingPeriodDays; compounding growth
	// starts on the second billing period.
	billingPeriodDays = 30

	maxConditionPercent = 100

	// Offer generation samples twice as many candidate airports as
	// offers requested, then drops the ones without coordinates.
	offerCandidateFactor = 2

	upgradeCodeEco = "ECO"

	earthRadiusKm = 6371.0
)

// Aircraft operational states.
const (
	AircraftIdle    = "IDLE"
	AircraftBusy    = "BUSY"
	AircraftBusyRTB = "BUSY_RTB"
)

// Flight states. RTB variants mark automatic return-to-base ferries.
const (
	FlightEnroute    = "ENROUTE"
	FlightEnrouteRTB = "ENROUTE_RTB"
	FlightArrived    = "ARRIVED"
	FlightArrivedRTB = "ARRIVED_RTB"
)

// Contract states.
const (
	ContractInProgress    = "IN_PROGRESS"
	ContractCompleted     = "COMPLETED"
	ContractCompletedLate = "COMPLETED_LATE"
)

// Save states.
const (
	SaveActive   = "ACTIVE"
	SaveBankrupt = "BANKRUPT"
	SaveVictory  = "VICTORY"
)

// Base tiers, smallest first. A base's tier gates which aircraft
// categories the shop will sell.
var baseTiers = []string{"SMALL", "MEDIUM", "LARGE", "HUGE"}

const categoryStarter = "STARTER"

// The canonical no-op calendar entry. Initialization falls back to it
// whenever a rolled event misses its chance window.
const normalDayEventName = "Normal Day"

var (
	ErrSaveNotFound         = errors.New("save not found")
	ErrSaveTerminal         = errors.New("save is in a terminal state")
	ErrAircraftNotFound     = errors.New("aircraft not found")
	ErrAircraftBusy         = errors.New("aircraft is busy")
	ErrModelNotFound        = errors.New("aircraft model not found")
	ErrAirportNotFound      = errors.New("airport not found")
	ErrBaseNotFound         = errors.New("base not owned")
	ErrBaseAlreadyOwned     = errors.New("base already owned")
	ErrBaseMaxTier          = errors.New("base already at max tier")
	ErrTierLocked           = errors.New("aircraft category locked by base tier")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrListingSold          = errors.New("listing no longer available")
	ErrNoFlightsEnroute     = errors.New("no flights enroute")
	ErrEmptyEventCatalog    = errors.New("event catalog is empty")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
	ErrTxConflict           = errors.New("transaction conflict, retry")
)

// Money is an exact decimal amount. All settlement math rounds
// half-up to two places at the point a value is persisted, never at
// display time.
type Money = decimal.Decimal

func money(s string) Money {
	return decimal.RequireFromString(s)
}

// ParseMoney parses a money string from external input.
func ParseMoney(s string) (Money, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}

// roundMoney rounds half away from zero to cents, which for the
// non-negative amounts the engine settles equals round-half-up.
func roundMoney(v Money) Money {
	return v.Round(2)
}

// HaversineKm returns the great-circle distance between two
// coordinates in kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// tierIndex maps a tier code to its position on the upgrade ladder,
// -1 for unknown codes.
func tierIndex(tier string) int {
	tier = strings.ToUpper(strings.TrimSpace(tier))
	for i, t := range baseTiers {
		if t == tier {
			return i
		}
	}
	return -1
}

func nextTier(tier string) (string, error) {
	idx := tierIndex(tier)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(baseTiers)-1 {
		return "", ErrBaseMaxTier
	}
	return baseTiers[idx+1], nil
}

// categoryAllowed reports whether the shop sells the given model
// category to a player whose best base is at maxTier. STARTER models
// are gift-only and never purchasable.
func categoryAllowed(category, maxTier string) bool {
	category = strings.ToUpper(strings.TrimSpace(category))
	if category == categoryStarter {
		return false
	}
	catIdx := tierIndex(category)
	tierIdx := tierIndex(maxTier)
	if catIdx < 0 || tierIdx < 0 {
		return false
	}
	return catIdx <= tierIdx
}

// registration builds a tail number like "SH-QZ41". The starter gift
// uses the historical "666" prefix instead.
func registration(prefix string, r *mathrand.Rand) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return fmt.Sprintf("%s-%c%c%d%d",
		prefix,
		letters[r.Intn(len(letters))],
		letters[r.Intn(len(letters))],
		r.Intn(10),
		r.Intn(10),
	)
}
