package game

import (
	"context"
)

type seedAirport struct {
	Ident string
	Name  string
	Type  string
	Lat   float64
	Lon   float64
}

var defaultAirports = []seedAirport{
	{"EFHK", "Helsinki-Vantaa", "large_airport", 60.3172, 24.9633},
	{"LFPG", "Paris Charles de Gaulle", "large_airport", 49.0097, 2.5479},
	{"KJFK", "New York John F Kennedy", "large_airport", 40.6413, -73.7781},
	{"EGLL", "London Heathrow", "large_airport", 51.4700, -0.4543},
	{"EDDF", "Frankfurt am Main", "large_airport", 50.0379, 8.5622},
	{"EHAM", "Amsterdam Schiphol", "large_airport", 52.3105, 4.7683},
	{"LSZH", "Zurich", "large_airport", 47.4647, 8.5492},
	{"EKCH", "Copenhagen Kastrup", "large_airport", 55.6180, 12.6508},
	{"ENGM", "Oslo Gardermoen", "large_airport", 60.1939, 11.1004},
	{"LGAV", "Athens Eleftherios Venizelos", "large_airport", 37.9364, 23.9445},
	{"RJTT", "Tokyo Haneda", "large_airport", 35.5494, 139.7798},
	{"VHHH", "Hong Kong Chek Lap Kok", "large_airport", 22.3080, 113.9185},
	{"KLAX", "Los Angeles International", "large_airport", 33.9416, -118.4085},
	{"CYYZ", "Toronto Pearson", "large_airport", 43.6777, -79.6248},
	{"OMDB", "Dubai International", "large_airport", 25.2532, 55.3657},
	{"YSSY", "Sydney Kingsford Smith", "large_airport", -33.9399, 151.1753},
	{"SBGR", "Sao Paulo Guarulhos", "large_airport", -23.4356, -46.4731},
	{"FAOR", "Johannesburg O R Tambo", "large_airport", -26.1392, 28.2460},
	{"BIKF", "Keflavik", "medium_airport", 63.9850, -22.6056},
	{"EETN", "Tallinn Lennart Meri", "medium_airport", 59.4133, 24.8328},
}

type seedModel struct {
	Code         string
	Manufacturer string
	Name         string
	Price        string
	CargoKg      int
	RangeKm      int
	SpeedKts     int
	Category     string
	EcoMult      string
	Co2KgPerKm   float64
}

// The starter airframe is gift-only: zero price, STARTER category, the
// shop never sells it.
var defaultModels = []seedModel{
	{"DC3FREE", "Douglas", "DC-3 Freighter", "0.00", 2500, 2400, 160, "STARTER", "1.00", 2.10},
	{"C208F", "Cessna", "208B Super Cargomaster", "250000.00", 1300, 1900, 180, "SMALL", "0.90", 1.20},
	{"AT72F", "ATR", "72-600F", "650000.00", 8600, 1500, 275, "SMALL", "0.95", 2.40},
	{"B737F", "Boeing", "737-800BCF", "1800000.00", 23000, 3700, 450, "MEDIUM", "1.10", 9.80},
	{"A321F", "Airbus", "A321P2F", "2200000.00", 27000, 3500, 450, "MEDIUM", "1.05", 9.20},
	{"B767F", "Boeing", "767-300F", "4500000.00", 52000, 6000, 470, "LARGE", "1.25", 14.50},
	{"MD11F", "McDonnell Douglas", "MD-11F", "5200000.00", 91000, 7000, 490, "LARGE", "1.40", 19.30},
	{"B747F", "Boeing", "747-8F", "9000000.00", 113000, 8200, 490, "HUGE", "1.60", 28.60},
	{"AN124", "Antonov", "An-124 Ruslan", "12000000.00", 120000, 5400, 430, "HUGE", "1.80", 33.40},
}

type seedEvent struct {
	Name        string
	Description string
	ChanceMax   int
	PackageMult string
	PlaneDamage int
	DayFactor   float64
	Duration    int
}

// Normal Day must stay in the catalog: calendar generation falls back
// to it when a rolled event misses its chance window.
var defaultEvents = []seedEvent{
	{"Normal Day", "Nothing out of the ordinary.", 1, "1.00", 0, 1.0, 1},
	{"Tailwinds", "Strong tailwinds shorten flights.", 4, "1.00", 0, 0.8, 1},
	{"Headwinds", "Persistent headwinds slow everything down.", 4, "1.00", 0, 1.25, 2},
	{"Perfect Weather", "Clear skies and happy clients.", 5, "1.10", 0, 0.9, 2},
	{"Thunderstorms", "Severe storms batter airframes and cargo.", 6, "0.90", 5, 1.5, 1},
	{"Customs Strike", "Ground handling grinds to a halt.", 8, "0.85", 0, 1.4, 3},
	{"Cargo Pilferage", "Part of the payload vanishes in transit.", 9, "0.70", 0, 1.0, 1},
	{"Engine Trouble", "An inflight shutdown forces a precautionary landing.", 10, "1.00", 15, 1.3, 1},
	{"Air Freight Boom", "Demand spikes and clients pay premium rates.", 12, "1.25", 0, 1.0, 2},
}

// SeedDefaults loads the reference catalogs. Safe to run on every
// startup; existing rows are left untouched.
func (s *Service) SeedDefaults(ctx context.Context) error {
	for _, a := range defaultAirports {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO airports (ident, name, airport_type, latitude_deg, longitude_deg)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (ident) DO NOTHING
		`, a.Ident, a.Name, a.Type, a.Lat, a.Lon); err != nil {
			return err
		}
	}
	for _, m := range defaultModels {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO aircraft_models
			    (model_code, manufacturer, model_name, purchase_price, base_cargo_kg, range_km, cruise_speed_kts, category, eco_fee_multiplier, co2_kg_per_km)
			VALUES
			    ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9::numeric, $10)
			ON CONFLICT (model_code) DO NOTHING
		`, m.Code, m.Manufacturer, m.Name, m.Price, m.CargoKg, m.RangeKm, m.SpeedKts, m.Category, m.EcoMult, m.Co2KgPerKm); err != nil {
			return err
		}
	}
	for _, e := range defaultEvents {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO random_events
			    (event_name, description, chance_max, package_multiplier, plane_damage, day_factor, duration)
			VALUES
			    ($1, $2, $3, $4::numeric, $5, $6, $7)
			ON CONFLICT (event_name) DO NOTHING
		`, e.Name, e.Description, e.ChanceMax, e.PackageMult, e.PlaneDamage, e.DayFactor, e.Duration); err != nil {
			return err
		}
	}
	s.log.Info("default catalogs seeded",
		"airports", len(defaultAirports), "models", len(defaultModels), "events", len(defaultEvents))
	return nil
}
