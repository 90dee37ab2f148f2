package game

import "github.com/shopspring/decimal"

type GameState struct {
	SaveID     int64           `json:"save_id"`
	PlayerName string          `json:"player_name"`
	Cash       decimal.Decimal `json:"cash"`
	CurrentDay int             `json:"current_day"`
	Status     string          `json:"status"`
	Difficulty string          `json:"difficulty"`
	Seed       int64           `json:"seed"`
	Stats      SaveStats       `json:"stats"`
}

type SaveStats struct {
	FleetSize          int             `json:"fleet_size"`
	ContractsCompleted int             `json:"contracts_completed"`
	ContractsLate      int             `json:"contracts_late"`
	TotalEarned        decimal.Decimal `json:"total_earned"`
	BasesOwned         int             `json:"bases_owned"`
	TotalEmissionsKg   float64         `json:"total_emissions_kg"`
}

type Aircraft struct {
	AircraftID       int64           `json:"aircraft_id"`
	ModelCode        string          `json:"model_code"`
	ModelName        string          `json:"model_name"`
	Category         string          `json:"category"`
	Registration     string          `json:"registration"`
	Nickname         string          `json:"nickname,omitempty"`
	CurrentAirport   string          `json:"current_airport_ident"`
	ConditionPercent int             `json:"condition_percent"`
	Status           string          `json:"status"`
	HoursFlown       int             `json:"hours_flown"`
	AcquiredDay      int             `json:"acquired_day"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	EcoLevel         int             `json:"eco_level"`
	EffectiveEco     decimal.Decimal `json:"effective_eco"`
	CargoKg          int             `json:"cargo_kg"`
	CruiseSpeedKts   int             `json:"cruise_speed_kts"`
}

type AircraftModel struct {
	ModelCode      string          `json:"model_code"`
	Manufacturer   string          `json:"manufacturer"`
	ModelName      string          `json:"model_name"`
	PurchasePrice  decimal.Decimal `json:"purchase_price"`
	CargoKg        int             `json:"cargo_kg"`
	RangeKm        int             `json:"range_km"`
	CruiseSpeedKts int             `json:"cruise_speed_kts"`
	Category       string          `json:"category"`
	EcoMultiplier  decimal.Decimal `json:"eco_multiplier"`
	Co2KgPerKm     float64         `json:"co2_kg_per_km"`
}

type Contract struct {
	ContractID       int64           `json:"contract_id"`
	AircraftID       int64           `json:"aircraft_id"`
	DestinationIdent string          `json:"destination_ident"`
	PayloadKg        int             `json:"payload_kg"`
	Reward           decimal.Decimal `json:"reward"`
	Penalty          decimal.Decimal `json:"penalty"`
	CreatedDay       int             `json:"created_day"`
	DeadlineDay      int             `json:"deadline_day"`
	CompletedDay     int             `json:"completed_day,omitempty"`
	Status           string          `json:"status"`
	FinalReward      decimal.Decimal `json:"final_reward"`
	EventAdjustment  decimal.Decimal `json:"event_adjustment"`
	LostPackages     int             `json:"lost_packages"`
	DamagedPackages  int             `json:"damaged_packages"`
}

type Flight struct {
	FlightID     int64   `json:"flight_id"`
	AircraftID   int64   `json:"aircraft_id"`
	ContractID   *int64  `json:"contract_id,omitempty"`
	OriginIdent  string  `json:"origin_ident"`
	DestIdent    string  `json:"destination_ident"`
	DepartureDay int     `json:"departure_day"`
	ArrivalDay   int     `json:"arrival_day"`
	Status       string  `json:"status"`
	DistanceKm   float64 `json:"distance_km"`
	DelayMinutes int     `json:"delay_minutes"`
	EmissionsKg  float64 `json:"emission_kg_co2"`
}

type OwnedBase struct {
	BaseID       int64           `json:"base_id"`
	Ident        string          `json:"base_ident"`
	Name         string          `json:"base_name"`
	AcquiredDay  int             `json:"acquired_day"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	IsHQ         bool            `json:"is_hq"`
	Tier         string          `json:"tier"`
}

type MarketListing struct {
	MarketID         int64           `json:"market_id"`
	ModelCode        string          `json:"model_code"`
	ModelName        string          `json:"model_name"`
	Category         string          `json:"category"`
	ConditionPercent int             `json:"condition_percent"`
	Price            decimal.Decimal `json:"price"`
	ListedDay        int             `json:"listed_day"`
}

type Offer struct {
	DestinationIdent string          `json:"destination_ident"`
	DestinationName  string          `json:"destination_name"`
	DistanceKm       float64         `json:"distance_km"`
	PayloadKg        int             `json:"payload_kg"`
	Trips            int             `json:"trips"`
	TotalDays        int             `json:"total_days"`
	DeadlineDay      int             `json:"deadline_day"`
	Reward           decimal.Decimal `json:"reward"`
	Penalty          decimal.Decimal `json:"penalty"`
	DelayMinutes     int             `json:"delay_minutes"`
	EventName        string          `json:"event_name,omitempty"`
}

// FlightEvent is one row of the random-event catalog. ChanceMax is an
// inverse probability weight: a roll in [1, ChanceMax] hits only when
// it equals ChanceMax. DayFactor scales flight durations on departure
// days, Duration is how many calendar days the event persists once
// scheduled.
type FlightEvent struct {
	EventID           int64           `json:"event_id"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	ChanceMax         int             `json:"chance_max"`
	PackageMultiplier decimal.Decimal `json:"package_multiplier"`
	PlaneDamage       int             `json:"plane_damage"`
	DayFactor         float64         `json:"day_factor"`
	Duration          int             `json:"duration"`
}

type ArrivalReport struct {
	AircraftID   int64           `json:"aircraft_id"`
	Registration string          `json:"registration"`
	Airport      string          `json:"airport"`
	ReturnToBase bool            `json:"return_to_base"`
	ContractID   *int64          `json:"contract_id,omitempty"`
	OnTime       bool            `json:"on_time"`
	Earned       decimal.Decimal `json:"earned"`
	EventName    string          `json:"event_name,omitempty"`
	EventDelta   decimal.Decimal `json:"event_delta"`
	DamageDealt  int             `json:"damage_dealt"`
	LostPackages int             `json:"lost_packages"`
}

type BillingReport struct {
	Day       int             `json:"day"`
	Amount    decimal.Decimal `json:"amount"`
	Paid      bool            `json:"paid"`
	Defaulted bool            `json:"defaulted"`
}

// DaySummary is the structured result of one simulated day. Both the
// interactive CLI and the fast-forward loop consume the same shape;
// there is no silent variant.
type DaySummary struct {
	Day         int             `json:"day"`
	Advanced    bool            `json:"advanced"`
	Arrivals    []ArrivalReport `json:"arrivals"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	RTBStarted  int             `json:"rtb_started"`
	Billing     *BillingReport  `json:"billing,omitempty"`
	Status      string          `json:"status"`
}

type FastForwardSummary struct {
	Days        []DaySummary    `json:"days"`
	StopReason  string          `json:"stop_reason"`
	TotalEarned decimal.Decimal `json:"total_earned"`
	FinalDay    int             `json:"final_day"`
	Status      string          `json:"status"`
}

// Fast-forward stop reasons.
const (
	StopArrivals = "arrivals"
	StopBankrupt = "bankrupt"
	StopVictory  = "victory"
	StopMaxDays  = "max_days"
)

type EventLogEntry struct {
	Day       int    `json:"day"`
	EventType string `json:"event_type"`
	Details   string `json:"details"`
}

type NewGameInput struct {
	PlayerName   string
	StartingCash decimal.Decimal
	Seed         int64
	Difficulty   string
	HomeBase     string
}

type AcceptOfferInput struct {
	SaveID         int64
	AircraftID     int64
	Offer          Offer
	IdempotencyKey string
}

type PurchaseAircraftInput struct {
	SaveID         int64
	ModelCode      string
	AirportIdent   string
	Nickname       string
	IdempotencyKey string
}
