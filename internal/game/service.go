package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Starting-base choices offered during onboarding. The price is a
// share of the starting cash, so the first decision is how much runway
// to keep.
var homeBaseChoices = map[string]struct {
	Name    string
	CostPct decimal.Decimal
}{
	"EFHK": {"Helsinki-Vantaa", money("0.30")},
	"LFPG": {"Paris Charles de Gaulle", money("0.50")},
	"KJFK": {"New York JFK", money("0.70")},
}

var startingCashByDifficulty = map[string]decimal.Decimal{
	"easy":   money("750000.00"),
	"normal": money("500000.00"),
	"hard":   money("350000.00"),
}

const starterModelCode = "DC3FREE"

type Service struct {
	db   *pgxpool.Pool
	log  *slog.Logger
	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(db *pgxpool.Pool, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:   db,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// intn draws from the service RNG under the mutex. This stream is
// time-seeded and only feeds offer sampling and market refresh; the
// seed-deterministic calendar never touches it.
func (s *Service) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

func (s *Service) shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rand.Shuffle(n, swap)
}

func (s *Service) registration(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return registration(prefix, s.rand)
}

// NewGame creates a save, buys the chosen home base, gifts the starter
// aircraft and initializes the event calendar, all as one onboarding
// flow. Day counters start at 1.
func (s *Service) NewGame(ctx context.Context, in NewGameInput) (GameState, error) {
	var out GameState
	in.PlayerName = strings.TrimSpace(in.PlayerName)
	if in.PlayerName == "" {
		return out, fmt.Errorf("player name is required")
	}
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))
	if in.Difficulty == "" {
		in.Difficulty = "normal"
	}
	if in.StartingCash.IsZero() {
		cash, ok := startingCashByDifficulty[in.Difficulty]
		if !ok {
			return out, fmt.Errorf("unknown difficulty: %s", in.Difficulty)
		}
		in.StartingCash = cash
	}
	baseIdent := strings.ToUpper(strings.TrimSpace(in.HomeBase))
	choice, ok := homeBaseChoices[baseIdent]
	if !ok {
		return out, fmt.Errorf("home base must be one of EFHK, LFPG, KJFK")
	}
	if in.Seed == 0 {
		in.Seed = int64(s.intn(1_000_000) + 1)
	}

	baseCost := roundMoney(in.StartingCash.Mul(choice.CostPct))
	remaining := in.StartingCash.Sub(baseCost)
	if remaining.IsNegative() {
		return out, ErrInsufficientFunds
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	defer tx.Rollback(ctx)

	var saveID int64
	err = tx.QueryRow(ctx, `
		INSERT INTO game_saves (player_name, cash, current_day, status, difficulty, rng_seed)
		VALUES ($1, $2::numeric, 1, 'ACTIVE', $3, $4)
		RETURNING save_id
	`, in.PlayerName, remaining.StringFixed(2), in.Difficulty, in.Seed).Scan(&saveID)
	if err != nil {
		return out, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO owned_bases (save_id, base_ident, base_name, acquired_day, purchase_cost, is_hq)
		VALUES ($1, $2, $3, 1, $4::numeric, true)
	`, saveID, baseIdent, choice.Name, baseCost.StringFixed(2))
	if err != nil {
		return out, err
	}

	reg := s.registration("666")
	_, err = tx.Exec(ctx, `
		INSERT INTO aircraft
		    (save_id, model_code, current_airport_ident, registration, acquired_day, purchase_price, condition_percent, status, hours_flown)
		VALUES
		    ($1, $2, $3, $4, 1, 0, 100, 'IDLE', 0)
	`, saveID, starterModelCode, baseIdent, reg)
	if err != nil {
		return out, err
	}
	if err := tx.Commit(ctx); err != nil {
		return out, err
	}

	s.flushAudit(ctx, saveID, []auditEntry{
		{1, "GAME_CREATED", fmt.Sprintf("player=%s difficulty=%s base=%s seed=%d", in.PlayerName, in.Difficulty, baseIdent, in.Seed)},
		{1, "BASE_PURCHASED", fmt.Sprintf("ident=%s cost=%s hq=true", baseIdent, baseCost.StringFixed(2))},
		{1, "GIFT_AIRCRAFT", fmt.Sprintf("model=%s registration=%s", starterModelCode, reg)},
	})

	if _, err := s.InitEventsForSeed(ctx, in.Seed, SurvivalTargetDays); err != nil {
		return out, fmt.Errorf("init event calendar: %w", err)
	}
	return s.LoadGame(ctx, saveID)
}

// LoadGame returns the session snapshot plus lifetime stats.
func (s *Service) LoadGame(ctx context.Context, saveID int64) (GameState, error) {
	var out GameState
	var cash string
	err := s.db.QueryRow(ctx, `
		SELECT save_id, player_name, cash::text, current_day, status, difficulty, rng_seed
		FROM game_saves
		WHERE save_id = $1
	`, saveID).Scan(&out.SaveID, &out.PlayerName, &cash, &out.CurrentDay, &out.Status, &out.Difficulty, &out.Seed)
	if err == pgx.ErrNoRows {
		return out, ErrSaveNotFound
	}
	if err != nil {
		return out, err
	}
	out.Cash = money(cash)

	var earned string
	err = s.db.QueryRow(ctx, `
		SELECT
		    (SELECT COUNT(1) FROM aircraft WHERE save_id = $1 AND sold_day IS NULL),
		    (SELECT COUNT(1) FROM contracts WHERE save_id = $1 AND status = 'COMPLETED'),
		    (SELECT COUNT(1) FROM contracts WHERE save_id = $1 AND status = 'COMPLETED_LATE'),
		    (SELECT COALESCE(SUM(final_reward), 0)::text FROM contracts WHERE save_id = $1 AND status IN ('COMPLETED', 'COMPLETED_LATE')),
		    (SELECT COUNT(1) FROM owned_bases WHERE save_id = $1),
		    (SELECT COALESCE(SUM(emission_kg_co2), 0) FROM flights WHERE save_id = $1)
	`, saveID).Scan(&out.Stats.FleetSize, &out.Stats.ContractsCompleted, &out.Stats.ContractsLate, &earned, &out.Stats.BasesOwned, &out.Stats.TotalEmissionsKg)
	if err != nil {
		return out, err
	}
	out.Stats.TotalEarned = money(earned)
	return out, nil
}

// settlement is the pure outcome of resolving one delivery contract on
// its arrival day.
type settlement struct {
	Status          string
	FinalReward     decimal.Decimal
	EventAdjustment decimal.Decimal
	DeliveredKg     int
	LostKg          int
	Damage          int
	OnTime          bool
	EventName       string
}

// settleDelivery resolves a contract that arrived on newDay. On-time
// deliveries pay the full reward, late ones reward minus penalty
// floored at zero. The arrival-day event then scales that base amount
// and may damage the aircraft; a multiplier below one also loses part
// of the payload.
func settleDelivery(reward, penalty decimal.Decimal, payloadKg, deadlineDay, newDay int, ev *FlightEvent) settlement {
	out := settlement{OnTime: newDay <= deadlineDay}
	base := reward
	if out.OnTime {
		out.Status = ContractCompleted
	} else {
		out.Status = ContractCompletedLate
		base = reward.Sub(penalty)
		if base.IsNegative() {
			base = decimal.Zero
		}
	}

	mult := decimal.NewFromInt(1)
	if ev != nil {
		out.EventName = ev.Name
		mult = ev.PackageMultiplier
		if mult.IsNegative() {
			mult = decimal.Zero
		}
		if ev.PlaneDamage > 0 {
			out.Damage = ev.PlaneDamage
		}
	}

	final := roundMoney(base.Mul(mult))
	if final.IsNegative() {
		final = decimal.Zero
	}
	out.FinalReward = final
	out.EventAdjustment = base.Sub(final)

	out.DeliveredKg = payloadKg
	if mult.LessThan(decimal.NewFromInt(1)) {
		delivered := int(decimal.NewFromInt(int64(payloadKg)).Mul(mult).Round(0).IntPart())
		if delivered < 0 {
			delivered = 0
		}
		out.DeliveredKg = delivered
	}
	out.LostKg = payloadKg - out.DeliveredKg
	return out
}

// AdvanceDay advances the save by exactly one day inside a single
// serializable transaction: sweep stranded aircraft home (every 3rd
// day), bump the day counter, land due flights, settle their
// contracts against the arrival-day event, and apply the earnings to
// the locked save row. Monthly billing runs in its own transaction
// after the day commits. On failure nothing moves and the returned
// summary is zero-effect.
func (s *Service) AdvanceDay(ctx context.Context, saveID int64) (DaySummary, error) {
	var summary DaySummary
	var audit []auditEntry
	var lockedDay int
	var lockedStatus string

	const maxAttempts = 8
	retryDelay := 75 * time.Millisecond
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return summary, err
		}
		summary = DaySummary{TotalEarned: decimal.Zero}
		audit = audit[:0]
		err = func() error {
			defer tx.Rollback(ctx)

			var cash string
			var day int
			var status string
			var seed int64
			err := tx.QueryRow(ctx, `
				SELECT cash::text, current_day, status, rng_seed
				FROM game_saves
				WHERE save_id = $1
				FOR UPDATE
			`, saveID).Scan(&cash, &day, &status, &seed)
			if err == pgx.ErrNoRows {
				return ErrSaveNotFound
			}
			if err != nil {
				return err
			}
			lockedDay, lockedStatus = day, status
			summary.Day = day
			summary.Status = status
			if status != SaveActive {
				return ErrSaveTerminal
			}

			if day%rtbSweepInterval == 0 {
				started, entries, err := s.rtbSweepTx(ctx, tx, saveID, day)
				if err != nil {
					return err
				}
				summary.RTBStarted = started
				audit = append(audit, entries...)
			}

			newDay := day + 1
			if _, err := tx.Exec(ctx, `
				UPDATE game_saves SET current_day = $1 WHERE save_id = $2
			`, newDay, saveID); err != nil {
				return err
			}
			summary.Day = newDay

			arrivals, earned, entries, err := s.landDueFlightsTx(ctx, tx, saveID, seed, newDay)
			if err != nil {
				return err
			}
			summary.Arrivals = arrivals
			summary.TotalEarned = earned
			audit = append(audit, entries...)

			if earned.IsPositive() {
				if _, err := tx.Exec(ctx, `
					UPDATE game_saves SET cash = cash + $1::numeric WHERE save_id = $2
				`, earned.StringFixed(2), saveID); err != nil {
					return err
				}
			}
			audit = append(audit, auditEntry{newDay, "DAY_ADVANCE", fmt.Sprintf("arrivals=%d earned=%s", len(arrivals), earned.StringFixed(2))})
			return tx.Commit(ctx)
		}()
		if err == nil {
			summary.Advanced = true
			break
		}
		if !isSerializationError(err) {
			return DaySummary{Day: lockedDay, Status: lockedStatus, TotalEarned: decimal.Zero}, err
		}
		if attempt == maxAttempts-1 {
			return DaySummary{Day: lockedDay, Status: lockedStatus, TotalEarned: decimal.Zero}, ErrTxConflict
		}
		if err := sleepWithContext(ctx, retryDelay); err != nil {
			return summary, err
		}
		if retryDelay < 1200*time.Millisecond {
			retryDelay *= 2
		}
	}

	s.flushAudit(ctx, saveID, audit)

	if summary.Day%billingPeriodDays == 0 {
		billing, err := s.runMonthlyBilling(ctx, saveID, summary.Day)
		if err != nil {
			return summary, err
		}
		summary.Billing = billing
		if billing != nil && billing.Defaulted {
			summary.Status = SaveBankrupt
		}
	}
	if summary.Status == "" || summary.Status == SaveActive {
		summary.Status = SaveActive
	}

	s.log.Info("day advanced", "save_id", saveID, "day", summary.Day,
		"arrivals", len(summary.Arrivals), "earned", summary.TotalEarned.StringFixed(2), "status", summary.Status)
	return summary, nil
}

// rtbSweepTx schedules a return flight for every IDLE aircraft parked
// away from an owned base, targeting the nearest base by great-circle
// distance.
func (s *Service) rtbSweepTx(ctx context.Context, tx pgx.Tx, saveID int64, day int) (int, []auditEntry, error) {
	type base struct {
		ident    string
		lat, lon float64
	}
	rows, err := tx.Query(ctx, `
		SELECT ob.base_ident, ap.latitude_deg, ap.longitude_deg
		FROM owned_bases ob
		JOIN airports ap ON ap.ident = ob.base_ident
	 	WHERE ob.save_id = $1
	`, saveID)
	if err != nil {
		return 0, nil, err
	}
	var bases []base
	for rows.Next() {
		var b base
		if err := rows.Scan(&b.ident, &b.lat, &b.lon); err != nil {
			rows.Close()
			return 0, nil, err
		}
		bases = append(bases, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}
	if len(bases) == 0 {
		return 0, nil, nil
	}
	baseIdents := make(map[string]bool, len(bases))
	for _, b := range bases {
		baseIdents[b.ident] = true
	}

	type stranded struct {
		aircraftID int64
		reg        string
		airport    string
		lat, lon   float64
		speedKts   int
		co2PerKm   float64
	}
	aRows, err := tx.Query(ctx, `
		SELECT a.aircraft_id, a.registration, a.current_airport_ident,
		       ap.latitude_deg, ap.longitude_deg, am.cruise_speed_kts, am.co2_kg_per_km
		FROM aircraft a
		JOIN aircraft_models am ON am.model_code = a.model_code
		JOIN airports ap ON ap.ident = a.current_airport_ident
		WHERE a.save_id = $1 AND a.status = 'IDLE' AND a.sold_day IS NULL
		FOR UPDATE OF a
	`, saveID)
	if err != nil {
		return 0, nil, err
	}
	var lost []stranded
	for aRows.Next() {
		var st stranded
		if err := aRows.Scan(&st.aircraftID, &st.reg, &st.airport, &st.lat, &st.lon, &st.speedKts, &st.co2PerKm); err != nil {
			aRows.Close()
			return 0, nil, err
		}
		if !baseIdents[st.airport] {
			lost = append(lost, st)
		}
	}
	aRows.Close()
	if err := aRows.Err(); err != nil {
		return 0, nil, err
	}

	var audit []auditEntry
	for _, st := range lost {
		nearest := bases[0]
		best := HaversineKm(st.lat, st.lon, bases[0].lat, bases[0].lon)
		for _, b := range bases[1:] {
			if d := HaversineKm(st.lat, st.lon, b.lat, b.lon); d < best {
				best = d
				nearest = b
			}
		}
		days := travelDays(best, st.speedKts)
		if _, err := tx.Exec(ctx, `
			INSERT INTO flights
			    (save_id, aircraft_id, contract_id, origin_ident, destination_ident, departure_day, arrival_day, status, distance_km, delay_minutes, emission_kg_co2)
			VALUES
			    ($1, $2, NULL, $3, $4, $5, $6, 'ENROUTE_RTB', $7, 0, $8)
		`, saveID, st.aircraftID, st.airport, nearest.ident, day, day+days, best,
			emissionsKg(best, st.co2PerKm)); err != nil {
			return 0, nil, err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE aircraft SET status = 'BUSY_RTB' WHERE aircraft_id = $1
		`, st.aircraftID); err != nil {
			return 0, nil, err
		}
		audit = append(audit, auditEntry{day, "RTB_STARTED",
			fmt.Sprintf("aircraft=%s from=%s to=%s eta_day=%d", st.reg, st.airport, nearest.ident, day+days)})
	}
	return len(lost), audit, nil
}

// landDueFlightsTx resolves every enroute flight whose arrival day has
// come: hours accrue, the flight terminates, the aircraft parks IDLE
// at the destination, and plain (non-RTB) flights settle their
// contract against the arrival-day event.
func (s *Service) landDueFlightsTx(ctx context.Context, tx pgx.Tx, saveID, seed int64, newDay int) ([]ArrivalReport, decimal.Decimal, []auditEntry, error) {
	type due struct {
		flightID   int64
		aircraftID int64
		contractID *int64
		dest       string
		depDay     int
		arrDay     int
		status     string
		reg        string
	}
	rows, err := tx.Query(ctx, `
		SELECT f.flight_id, f.aircraft_id, f.contract_id, f.destination_ident,
		       f.departure_day, f.arrival_day, f.status, a.registration
		FROM flights f
		JOIN aircraft a ON a.aircraft_id = f.aircraft_id
		WHERE f.save_id = $1
		  AND f.status IN ('ENROUTE', 'ENROUTE_RTB')
		  AND f.arrival_day <= $2
		ORDER BY f.flight_id
		FOR UPDATE OF f
	`, saveID, newDay)
	if err != nil {
		return nil, decimal.Zero, nil, err
	}
	var dues []due
	for rows.Next() {
		var d due
		if err := rows.Scan(&d.flightID, &d.aircraftID, &d.contractID, &d.dest, &d.depDay, &d.arrDay, &d.status, &d.reg); err != nil {
			rows.Close()
			return nil, decimal.Zero, nil, err
		}
		dues = append(dues, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, decimal.Zero, nil, err
	}

	earned := decimal.Zero
	var reports []ArrivalReport
	var audit []auditEntry
	for _, d := range dues {
		hours := (d.arrDay - d.depDay) * 24
		if hours < 0 {
			hours = 0
		}
		finalStatus := FlightArrived
		if d.status == FlightEnrouteRTB {
			finalStatus = FlightArrivedRTB
		}
		if _, err := tx.Exec(ctx, `
			UPDATE flights SET status = $1 WHERE flight_id = $2
		`, finalStatus, d.flightID); err != nil {
			return nil, decimal.Zero, nil, err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE aircraft
			SET status = 'IDLE', current_airport_ident = $1, hours_flown = hours_flown + $2
			WHERE aircraft_id = $3
		`, d.dest, hours, d.aircraftID); err != nil {
			return nil, decimal.Zero, nil, err
		}

		report := ArrivalReport{
			AircraftID:   d.aircraftID,
			Registration: d.reg,
			Airport:      d.dest,
			ReturnToBase: finalStatus == FlightArrivedRTB,
			ContractID:   d.contractID,
			Earned:       decimal.Zero,
			EventDelta:   decimal.Zero,
		}

		if d.contractID != nil && d.status == FlightEnroute {
			var reward, penalty string
			var payloadKg, deadlineDay int
			if err := tx.QueryRow(ctx, `
				SELECT reward::text, penalty::text, payload_kg, deadline_day
				FROM contracts
				WHERE contract_id = $1
				FOR UPDATE
			`, *d.contractID).Scan(&reward, &penalty, &payloadKg, &deadlineDay); err != nil {
				return nil, decimal.Zero, nil, err
			}

			ev, err := eventForDayTx(ctx, tx, seed, d.arrDay)
			if err != nil {
				return nil, decimal.Zero, nil, err
			}
			res := settleDelivery(money(reward), money(penalty), payloadKg, deadlineDay, newDay, ev)

			if res.Damage > 0 {
				if _, err := tx.Exec(ctx, `
					UPDATE aircraft
					SET condition_percent = GREATEST(0, condition_percent - $1)
					WHERE aircraft_id = $2
				`, res.Damage, d.aircraftID); err != nil {
					return nil, decimal.Zero, nil, err
				}
			}

			var eventID *int64
			if ev != nil {
				eventID = &ev.EventID
			}
			if _, err := tx.Exec(ctx, `
				UPDATE contracts
				SET status = $1, completed_day = $2, final_reward = $3::numeric,
				    event_adjustment = $4::numeric, lost_packages = $5, damaged_packages = $6, event_id = $7
				WHERE contract_id = $8
			`, res.Status, newDay, res.FinalReward.StringFixed(2),
				res.EventAdjustment.StringFixed(2), res.LostKg, res.Damage, eventID, *d.contractID); err != nil {
				return nil, decimal.Zero, nil, err
			}

			earned = earned.Add(res.FinalReward)
			report.OnTime = res.OnTime
			report.Earned = res.FinalReward
			report.EventName = res.EventName
			report.EventDelta = res.EventAdjustment
			report.DamageDealt = res.Damage
			report.LostPackages = res.LostKg

			logType := "CONTRACT_COMPLETED"
			if res.Status == ContractCompletedLate {
				logType = "CONTRACT_COMPLETED_LATE"
			}
			audit = append(audit, auditEntry{newDay, logType,
				fmt.Sprintf("contract=%d aircraft=%s earned=%s lost_kg=%d event=%s", *d.contractID, d.reg, res.FinalReward.StringFixed(2), res.LostKg, res.EventName)})
		}
		reports = append(reports, report)
	}
	return reports, earned, audit, nil
}

func eventForDayTx(ctx context.Context, tx pgx.Tx, seed int64, day int) (*FlightEvent, error) {
	if seed == 0 || day <= 0 {
		return nil, nil
	}
	ev, err := scanEvent(tx.QueryRow(ctx, `
		SELECT re.event_id, re.event_name, re.description, re.chance_max,
		       re.package_multiplier::text, re.plane_damage, re.day_factor, re.duration
		FROM player_fate pf
		JOIN random_events re ON re.event_name = pf.event_name
		WHERE pf.rng_seed = $1 AND pf.day = $2
	`, seed, day))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ev, err
}

// runMonthlyBilling charges the recurring bill for the 30-day period
// that just closed. An unpayable bill is the designed bankruptcy
// trigger: the save flips to BANKRUPT with no partial debit.
func (s *Service) runMonthlyBilling(ctx context.Context, saveID int64, day int) (*BillingReport, error) {
	var audit []auditEntry
	report := &BillingReport{Day: day}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		var cash, status string
		if err := tx.QueryRow(ctx, `
			SELECT cash::text, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, saveID).Scan(&cash, &status); err != nil {
			return err
		}
		if status != SaveActive {
			report = nil
			return tx.Commit(ctx)
		}

		var fleet, starters int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(1),
			       COUNT(1) FILTER (WHERE am.category = 'STARTER')
			FROM aircraft a
			JOIN aircraft_models am ON am.model_code = a.model_code
			WHERE a.save_id = $1 AND a.sold_day IS NULL
		`, saveID).Scan(&fleet, &starters); err != nil {
			return err
		}

		bill := MonthlyBill(day, fleet, starters)
		report.Amount = bill

		if money(cash).LessThan(bill) {
			if _, err := tx.Exec(ctx, `
				UPDATE game_saves SET status = 'BANKRUPT' WHERE save_id = $1
			`, saveID); err != nil {
				return err
			}
			report.Defaulted = true
			audit = append(audit, auditEntry{day, "BILLS_DEFAULT",
				fmt.Sprintf("bill=%s cash=%s", bill.StringFixed(2), cash)})
			return tx.Commit(ctx)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game_saves SET cash = cash - $1::numeric WHERE save_id = $2
		`, bill.StringFixed(2), saveID); err != nil {
			return err
		}
		report.Paid = true
		audit = append(audit, auditEntry{day, "BILLS_PAID", fmt.Sprintf("bill=%s", bill.StringFixed(2))})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return nil, err
	}
	s.flushAudit(ctx, saveID, audit)
	return report, nil
}

// MaybeDeclareVictory flips an ACTIVE save that has reached the
// survival target to VICTORY. Terminal-state detection after a day
// tick is the caller's job; this is the helper both the API and the
// fast-forward loop use.
func (s *Service) MaybeDeclareVictory(ctx context.Context, saveID int64) (bool, error) {
	cmd, err := s.db.Exec(ctx, `
		UPDATE game_saves
		SET status = 'VICTORY'
		WHERE save_id = $1 AND status = 'ACTIVE' AND current_day >= $2
	`, saveID, SurvivalTargetDays)
	if err != nil {
		return false, err
	}
	if cmd.RowsAffected() == 0 {
		return false, nil
	}
	s.flushAudit(ctx, saveID, []auditEntry{{SurvivalTargetDays, "VICTORY", "survival target reached"}})
	return true, nil
}

// ffStop decides whether the fast-forward loop is done after a tick.
// ticks is how many days have been simulated so far. Arrivals are
// checked first: landing day is what the player fast-forwards toward,
// even when that same day bankrupts or wins the save.
func ffStop(sum DaySummary, ticks, maxDays int) string {
	switch {
	case len(sum.Arrivals) > 0:
		return StopArrivals
	case sum.Status == SaveBankrupt:
		return StopBankrupt
	case sum.Day >= SurvivalTargetDays:
		return StopVictory
	case ticks >= maxDays:
		return StopMaxDays
	}
	return ""
}

// FastForward drives AdvanceDay until something lands, the game ends,
// or maxDays elapse. It refuses to start when nothing is enroute;
// there would be nothing to wait for.
func (s *Service) FastForward(ctx context.Context, saveID int64, maxDays int) (FastForwardSummary, error) {
	out := FastForwardSummary{TotalEarned: decimal.Zero}
	if maxDays <= 0 {
		maxDays = 30
	}

	// Only contract flights count as something to wait for; an RTB
	// ferry alone does not justify burning days.
	var enroute int
	if err := s.db.QueryRow(ctx, `
		SELECT COUNT(1) FROM flights
		WHERE save_id = $1 AND status = 'ENROUTE'
	`, saveID).Scan(&enroute); err != nil {
		return out, err
	}
	if enroute == 0 {
		return out, ErrNoFlightsEnroute
	}

	for ticks := 1; ; ticks++ {
		sum, err := s.AdvanceDay(ctx, saveID)
		if err != nil {
			return out, err
		}
		out.Days = append(out.Days, sum)
		out.TotalEarned = out.TotalEarned.Add(sum.TotalEarned)
		out.FinalDay = sum.Day
		out.Status = sum.Status

		reason := ffStop(sum, ticks, maxDays)
		if reason == "" {
			continue
		}
		if sum.Day >= SurvivalTargetDays && sum.Status == SaveActive {
			if _, err := s.MaybeDeclareVictory(ctx, saveID); err != nil {
				return out, err
			}
			out.Status = SaveVictory
		}
		out.StopReason = reason
		return out, nil
	}
}

// GenerateOffers samples candidate destinations for an aircraft and
// prices a delivery to each. Nothing is persisted; the only side
// effect is consumption of the service RNG.
func (s *Service) GenerateOffers(ctx context.Context, saveID, aircraftID int64, count int) ([]Offer, error) {
	if count <= 0 {
		count = 3
	}
	ac, err := s.fleetAircraft(ctx, saveID, aircraftID)
	if err != nil {
		return nil, err
	}
	state, err := s.LoadGame(ctx, saveID)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		ident, name string
		lat, lon    float64
	}
	var origin candidate
	err = s.db.QueryRow(ctx, `
		SELECT ident, name, latitude_deg, longitude_deg
		FROM airports
		WHERE ident = $1 AND latitude_deg IS NOT NULL AND longitude_deg IS NOT NULL
	`, ac.CurrentAirport).Scan(&origin.ident, &origin.name, &origin.lat, &origin.lon)
	if err == pgx.ErrNoRows {
		return nil, ErrAirportNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT ident, name, latitude_deg, longitude_deg
		FROM airports
		WHERE ident <> $1 AND latitude_deg IS NOT NULL AND longitude_deg IS NOT NULL
	`, ac.CurrentAirport)
	if err != nil {
		return nil, err
	}
	var pool []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.ident, &c.name, &c.lat, &c.lon); err != nil {
			rows.Close()
			return nil, err
		}
		pool = append(pool, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > offerCandidateFactor*count {
		pool = pool[:offerCandidateFactor*count]
	}

	depEvent, err := s.EventForDay(ctx, state.Seed, state.CurrentDay)
	if err != nil {
		return nil, err
	}

	offers := make([]Offer, 0, count)
	for _, c := range pool {
		if len(offers) == count {
			break
		}
		dist := HaversineKm(origin.lat, origin.lon, c.lat, c.lon)
		minKg, maxKg := payloadRange(dist, ac.CargoKg)
		payload := minKg
		if maxKg > minKg {
			payload = minKg + s.intn(maxKg-minKg+1)
		}
		offers = append(offers, buildOffer(c.ident, c.name, dist, payload, ac, state.CurrentDay, depEvent))
	}
	return offers, nil
}

// buildOffer prices one candidate destination. The departure-day event
// stretches the schedule and records the expected delay; the same
// calendar is consulted again at settlement for the arrival day.
func buildOffer(ident, name string, distanceKm float64, payloadKg int, ac Aircraft, currentDay int, depEvent *FlightEvent) Offer {
	trips := tripCount(payloadKg, ac.CargoKg)
	totalDays := travelDays(distanceKm, ac.CruiseSpeedKts) * trips
	delayMinutes := 0
	eventName := ""
	if depEvent != nil && depEvent.DayFactor > 0 && depEvent.DayFactor != 1 {
		scaled := int(math.Ceil(float64(totalDays) * depEvent.DayFactor))
		if scaled < 1 {
			scaled = 1
		}
		delayMinutes = int((depEvent.DayFactor - 1) * 24 * 60)
		if delayMinutes < 0 {
			delayMinutes = 0
		}
		totalDays = scaled
		eventName = depEvent.Name
	}
	reward := TaskReward(payloadKg, distanceKm, ac.EffectiveEco)
	return Offer{
		DestinationIdent: ident,
		DestinationName:  name,
		DistanceKm:       math.Round(distanceKm*10) / 10,
		PayloadKg:        payloadKg,
		Trips:            trips,
		TotalDays:        totalDays,
		DeadlineDay:      currentDay + totalDays + deadlineBuffer(trips),
		Reward:           reward,
		Penalty:          TaskPenalty(reward),
		DelayMinutes:     delayMinutes,
		EventName:        eventName,
	}
}

// AcceptOffer creates the contract and its flight atomically and
// marks the aircraft busy.
func (s *Service) AcceptOffer(ctx context.Context, in AcceptOfferInput) (int64, error) {
	if in.Offer.PayloadKg <= 0 || in.Offer.DestinationIdent == "" {
		return 0, fmt.Errorf("offer payload and destination are required")
	}
	var contractID int64
	var audit []auditEntry

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if err := claimIdempotency(ctx, tx, in.SaveID, in.IdempotencyKey, "accept_offer"); err != nil {
			return err
		}

		var day int
		var status string
		err := tx.QueryRow(ctx, `
			SELECT current_day, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, in.SaveID).Scan(&day, &status)
		if err == pgx.ErrNoRows {
			return ErrSaveNotFound
		}
		if err != nil {
			return err
		}
		if status != SaveActive {
			return ErrSaveTerminal
		}

		var acStatus, reg, location string
		var co2PerKm float64
		err = tx.QueryRow(ctx, `
			SELECT a.status, a.registration, a.current_airport_ident, am.co2_kg_per_km
			FROM aircraft a
			JOIN aircraft_models am ON am.model_code = a.model_code
			WHERE a.aircraft_id = $1 AND a.save_id = $2 AND a.sold_day IS NULL
			FOR UPDATE OF a
		`, in.AircraftID, in.SaveID).Scan(&acStatus, &reg, &location, &co2PerKm)
		if err == pgx.ErrNoRows {
			return ErrAircraftNotFound
		}
		if err != nil {
			return err
		}
		if acStatus != AircraftIdle {
			return ErrAircraftBusy
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO contracts
			    (save_id, aircraft_id, destination_ident, payload_kg, reward, penalty,
			     created_day, accepted_day, deadline_day, status)
			VALUES
			    ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $7, $8, 'IN_PROGRESS')
			RETURNING contract_id
		`, in.SaveID, in.AircraftID, in.Offer.DestinationIdent, in.Offer.PayloadKg,
			in.Offer.Reward.StringFixed(2), in.Offer.Penalty.StringFixed(2),
			day, in.Offer.DeadlineDay).Scan(&contractID); err != nil {
			return err
		}

		totalDistance := in.Offer.DistanceKm * float64(in.Offer.Trips)
		if _, err := tx.Exec(ctx, `
			INSERT INTO flights
			    (save_id, aircraft_id, contract_id, origin_ident, destination_ident,
			     departure_day, arrival_day, status, distance_km, delay_minutes, emission_kg_co2)
			VALUES
			    ($1, $2, $3, $4, $5, $6, $7, 'ENROUTE', $8, $9, $10)
		`, in.SaveID, in.AircraftID, contractID, location, in.Offer.DestinationIdent,
			day, day+in.Offer.TotalDays, totalDistance, in.Offer.DelayMinutes,
			emissionsKg(totalDistance, co2PerKm)); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE aircraft SET status = 'BUSY' WHERE aircraft_id = $1
		`, in.AircraftID); err != nil {
			return err
		}

		audit = append(audit, auditEntry{day, "CONTRACT_STARTED",
			fmt.Sprintf("contract=%d aircraft=%s dest=%s payload_kg=%d reward=%s deadline=%d",
				contractID, reg, in.Offer.DestinationIdent, in.Offer.PayloadKg, in.Offer.Reward.StringFixed(2), in.Offer.DeadlineDay)})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return 0, err
	}
	s.flushAudit(ctx, in.SaveID, audit)
	return contractID, nil
}

// RepairAircraft restores one aircraft to full condition for a linear
// fee. Busy airframes cannot be worked on.
func (s *Service) RepairAircraft(ctx context.Context, saveID, aircraftID int64) (decimal.Decimal, error) {
	totals, err := s.repair(ctx, saveID, []int64{aircraftID}, true)
	if err != nil {
		return decimal.Zero, err
	}
	return totals, nil
}

// RepairMany repairs every listed aircraft it can afford, skipping
// busy and already-perfect ones.
func (s *Service) RepairMany(ctx context.Context, saveID int64, aircraftIDs []int64) (decimal.Decimal, error) {
	return s.repair(ctx, saveID, aircraftIDs, false)
}

func (s *Service) repair(ctx context.Context, saveID int64, aircraftIDs []int64, strict bool) (decimal.Decimal, error) {
	total := decimal.Zero
	var audit []auditEntry

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return total, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		var cashText string
		var day int
		var status string
		err := tx.QueryRow(ctx, `
			SELECT cash::text, current_day, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, saveID).Scan(&cashText, &day, &status)
		if err == pgx.ErrNoRows {
			return ErrSaveNotFound
		}
		if err != nil {
			return err
		}
		if status != SaveActive {
			return ErrSaveTerminal
		}
		cash := money(cashText)

		for _, id := range aircraftIDs {
			var cond int
			var acStatus, reg string
			err := tx.QueryRow(ctx, `
				SELECT condition_percent, status, registration
				FROM aircraft
				WHERE aircraft_id = $1 AND save_id = $2 AND sold_day IS NULL
				FOR UPDATE
			`, id, saveID).Scan(&cond, &acStatus, &reg)
			if err == pgx.ErrNoRows {
				if strict {
					return ErrAircraftNotFound
				}
				continue
			}
			if err != nil {
				return err
			}
			if acStatus != AircraftIdle {
				if strict {
					return ErrAircraftBusy
				}
				continue
			}
			cost := RepairCost(cond)
			if cost.IsZero() {
				continue
			}
			if cash.LessThan(cost) {
				if strict {
					return ErrInsufficientFunds
				}
				break
			}
			if _, err := tx.Exec(ctx, `
				UPDATE aircraft SET condition_percent = 100 WHERE aircraft_id = $1
			`, id); err != nil {
				return err
			}
			cash = cash.Sub(cost)
			total = total.Add(cost)
			audit = append(audit, auditEntry{day, "REPAIR",
				fmt.Sprintf("aircraft=%s cost=%s", reg, cost.StringFixed(2))})
		}

		if total.IsPositive() {
			if _, err := tx.Exec(ctx, `
				UPDATE game_saves SET cash = $1::numeric WHERE save_id = $2
			`, cash.StringFixed(2), saveID); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	}()
	if err != nil {
		return decimal.Zero, err
	}
	s.flushAudit(ctx, saveID, audit)
	return total, nil
}

// PurchaseAircraft buys a factory-new airframe from the shop. The
// model's category must be unlocked by the player's best base tier and
// the delivery airport must be an owned base.
func (s *Service) PurchaseAircraft(ctx context.Context, in PurchaseAircraftInput) (Aircraft, error) {
	var out Aircraft
	var audit []auditEntry
	modelCode := strings.ToUpper(strings.TrimSpace(in.ModelCode))
	airport := strings.ToUpper(strings.TrimSpace(in.AirportIdent))

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if err := claimIdempotency(ctx, tx, in.SaveID, in.IdempotencyKey, "purchase_aircraft"); err != nil {
			return err
		}

		var cashText string
		var day int
		var status string
		err := tx.QueryRow(ctx, `
			SELECT cash::text, current_day, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, in.SaveID).Scan(&cashText, &day, &status)
		if err == pgx.ErrNoRows {
			return ErrSaveNotFound
		}
		if err != nil {
			return err
		}
		if status != SaveActive {
			return ErrSaveTerminal
		}

		var priceText, category string
		err = tx.QueryRow(ctx, `
			SELECT purchase_price::text, category FROM aircraft_models WHERE model_code = $1
		`, modelCode).Scan(&priceText, &category)
		if err == pgx.ErrNoRows {
			return ErrModelNotFound
		}
		if err != nil {
			return err
		}

		maxTier, err := maxBaseTierTx(ctx, tx, in.SaveID)
		if err != nil {
			return err
		}
		if !categoryAllowed(category, maxTier) {
			return ErrTierLocked
		}

		var owned bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM owned_bases WHERE save_id = $1 AND base_ident = $2)
		`, in.SaveID, airport).Scan(&owned); err != nil {
			return err
		}
		if !owned {
			return ErrBaseNotFound
		}

		price := money(priceText)
		cash := money(cashText)
		if cash.LessThan(price) {
			return ErrInsufficientFunds
		}

		reg := s.registration("SH")
		if err := tx.QueryRow(ctx, `
			INSERT INTO aircraft
			    (save_id, model_code, current_airport_ident, registration, nickname,
			     acquired_day, purchase_price, condition_percent, status, hours_flown)
			VALUES
			    ($1, $2, $3, $4, NULLIF($5, ''), $6, $7::numeric, 100, 'IDLE', 0)
			RETURNING aircraft_id
		`, in.SaveID, modelCode, airport, reg, strings.TrimSpace(in.Nickname), day, price.StringFixed(2)).Scan(&out.AircraftID); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE game_saves SET cash = $1::numeric WHERE save_id = $2
		`, cash.Sub(price).StringFixed(2), in.SaveID); err != nil {
			return err
		}

		out.ModelCode = modelCode
		out.Registration = reg
		out.CurrentAirport = airport
		out.Status = AircraftIdle
		out.ConditionPercent = 100
		out.AcquiredDay = day
		out.PurchasePrice = price
		audit = append(audit, auditEntry{day, "AIRCRAFT_PURCHASED",
			fmt.Sprintf("model=%s registration=%s price=%s at=%s", modelCode, reg, price.StringFixed(2), airport)})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return Aircraft{}, err
	}
	s.flushAudit(ctx, in.SaveID, audit)
	return out, nil
}

// UpgradeAircraftEco installs the next eco level on an aircraft. The
// upgrade history is append-only; the current level is the max row.
func (s *Service) UpgradeAircraftEco(ctx context.Context, saveID, aircraftID int64, idemKey string) (int, decimal.Decimal, error) {
	var newLevel int
	cost := decimal.Zero
	var audit []auditEntry

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, cost, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if err := claimIdempotency(ctx, tx, saveID, idemKey, "upgrade_aircraft_eco"); err != nil {
			return err
		}

		var cashText string
		var day int
		var status string
		err := tx.QueryRow(ctx, `
			SELECT cash::text, current_day, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, saveID).Scan(&cashText, &day, &status)
		if err == pgx.ErrNoRows {
			return ErrSaveNotFound
		}
		if err != nil {
			return err
		}
		if status != SaveActive {
			return ErrSaveTerminal
		}

		var reg, category string
		var acPrice, modelPrice string
		err = tx.QueryRow(ctx, `
			SELECT a.registration, am.category, a.purchase_price::text, am.purchase_price::text
			FROM aircraft a
			JOIN aircraft_models am ON am.model_code = a.model_code
			WHERE a.aircraft_id = $1 AND a.save_id = $2 AND a.sold_day IS NULL
			FOR UPDATE OF a
		`, aircraftID, saveID).Scan(&reg, &category, &acPrice, &modelPrice)
		if err == pgx.ErrNoRows {
			return ErrAircraftNotFound
		}
		if err != nil {
			return err
		}

		var level int
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(MAX(level), 0)
			FROM aircraft_upgrades
			WHERE aircraft_id = $1 AND upgrade_code = $2
		`, aircraftID, upgradeCodeEco).Scan(&level); err != nil {
			return err
		}
		newLevel = level + 1

		price := money(acPrice)
		if price.IsZero() {
			price = money(modelPrice)
		}
		cost = AircraftUpgradeCost(category, price, newLevel)

		cash := money(cashText)
		if cash.LessThan(cost) {
			return ErrInsufficientFunds
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO aircraft_upgrades (aircraft_id, upgrade_code, level, installed_day)
			VALUES ($1, $2, $3, $4)
		`, aircraftID, upgradeCodeEco, newLevel, day); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game_saves SET cash = $1::numeric WHERE save_id = $2
		`, cash.Sub(cost).StringFixed(2), saveID); err != nil {
			return err
		}
		audit = append(audit, auditEntry{day, "AIRCRAFT_ECO_UPGRADE",
			fmt.Sprintf("aircraft=%s level=%d cost=%s", reg, newLevel, cost.StringFixed(2))})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return 0, decimal.Zero, err
	}
	s.flushAudit(ctx, saveID, audit)
	return newLevel, cost, nil
}

// Airport-type price ladder for expansion bases bought after
// onboarding.
var basePurchaseCostByType = map[string]decimal.Decimal{
	"large_airport":  money("500000.00"),
	"medium_airport": money("350000.00"),
	"small_airport":  money("200000.00"),
}

// BuyBase purchases an expansion base at any cataloged airport.
func (s *Service) BuyBase(ctx context.Context, saveID int64, airportIdent, idemKey string) (OwnedBase, error) {
	var out OwnedBase
	var audit []auditEntry
	ident := strings.ToUpper(strings.TrimSpace(airportIdent))

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if err := claimIdempotency(ctx, tx, saveID, idemKey, "buy_base"); err != nil {
			return err
		}

		var cashText string
		var day int
		var status string
		err := tx.QueryRow(ctx, `
			SELECT cash::text, current_day, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, saveID).Scan(&cashText, &day, &status)
		if err == pgx.ErrNoRows {
			return ErrSaveNotFound
		}
		if err != nil {
			return err
		}
		if status != SaveActive {
			return ErrSaveTerminal
		}

		var name, airportType string
		err = tx.QueryRow(ctx, `
			SELECT name, airport_type FROM airports WHERE ident = $1
		`, ident).Scan(&name, &airportType)
		if err == pgx.ErrNoRows {
			return ErrAirportNotFound
		}
		if err != nil {
			return err
		}

		var owned bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM owned_bases WHERE save_id = $1 AND base_ident = $2)
		`, saveID, ident).Scan(&owned); err != nil {
			return err
		}
		if owned {
			return ErrBaseAlreadyOwned
		}

		cost, ok := basePurchaseCostByType[airportType]
		if !ok {
			cost = basePurchaseCostByType["small_airport"]
		}
		cash := money(cashText)
		if cash.LessThan(cost) {
			return ErrInsufficientFunds
		}

		if err := tx.QueryRow(ctx, `
			INSERT INTO owned_bases (save_id, base_ident, base_name, acquired_day, purchase_cost, is_hq)
			VALUES ($1, $2, $3, $4, $5::numeric, false)
			RETURNING base_id
		`, saveID, ident, name, day, cost.StringFixed(2)).Scan(&out.BaseID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game_saves SET cash = $1::numeric WHERE save_id = $2
		`, cash.Sub(cost).StringFixed(2), saveID); err != nil {
			return err
		}

		out.Ident = ident
		out.Name = name
		out.AcquiredDay = day
		out.PurchaseCost = cost
		out.Tier = baseTiers[0]
		audit = append(audit, auditEntry{day, "BASE_PURCHASED",
			fmt.Sprintf("ident=%s cost=%s", ident, cost.StringFixed(2))})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return OwnedBase{}, err
	}
	s.flushAudit(ctx, saveID, audit)
	return out, nil
}

// UpgradeBase moves a base one step up the tier ladder.
func (s *Service) UpgradeBase(ctx context.Context, saveID, baseID int64, idemKey string) (string, decimal.Decimal, error) {
	var toTier string
	cost := decimal.Zero
	var audit []auditEntry

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return "", cost, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if err := claimIdempotency(ctx, tx, saveID, idemKey, "upgrade_base"); err != nil {
			return err
		}

		var cashText string
		var day int
		var status string
		err := tx.QueryRow(ctx, `
			SELECT cash::text, current_day, status FROM game_saves WHERE save_id = $1 FOR UPDATE
		`, saveID).Scan(&cashText, &day, &status)
		if err == pgx.ErrNoRows {
			return ErrSaveNotFound
		}
		if err != nil {
			return err
		}
		if status != SaveActive {
			return ErrSaveTerminal
		}

		var ident, purchaseCost string
		err = tx.QueryRow(ctx, `
			SELECT base_ident, purchase_cost::text
			FROM owned_bases
			WHERE base_id = $1 AND save_id = $2
			FOR UPDATE
		`, baseID, saveID).Scan(&ident, &purchaseCost)
		if err == pgx.ErrNoRows {
			return ErrBaseNotFound
		}
		if err != nil {
			return err
		}

		var current string
		if err := tx.QueryRow(ctx, `
			SELECT COALESCE(
			    (SELECT upgrade_code FROM base_upgrades
			     WHERE base_id = $1 ORDER BY base_upgrade_id DESC LIMIT 1),
			    'SMALL')
		`, baseID).Scan(&current); err != nil {
			return err
		}
		toTier, err = nextTier(current)
		if err != nil {
			return err
		}

		cost = BaseUpgradeCost(money(purchaseCost), toTier)
		cash := money(cashText)
		if cash.LessThan(cost) {
			return ErrInsufficientFunds
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO base_upgrades (base_id, upgrade_code, installed_day, upgrade_cost)
			VALUES ($1, $2, $3, $4::numeric)
		`, baseID, toTier, day, cost.StringFixed(2)); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game_saves SET cash = $1::numeric WHERE save_id = $2
		`, cash.Sub(cost).StringFixed(2), saveID); err != nil {
			return err
		}
		audit = append(audit, auditEntry{day, "BASE_UPGRADE",
			fmt.Sprintf("base=%s to=%s cost=%s", ident, toTier, cost.StringFixed(2))})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return "", decimal.Zero, err
	}
	s.flushAudit(ctx, saveID, audit)
	return toTier, cost, nil
}

// ListBases returns owned bases with their current tier.
func (s *Service) ListBases(ctx context.Context, saveID int64) ([]OwnedBase, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ob.base_id, ob.base_ident, ob.base_name, ob.acquired_day,
		       ob.purchase_cost::text, ob.is_hq,
		       COALESCE(
		           (SELECT bu.upgrade_code FROM base_upgrades bu
		            WHERE bu.base_id = ob.base_id ORDER BY bu.base_upgrade_id DESC LIMIT 1),
		           'SMALL')
		FROM owned_bases ob
		WHERE ob.save_id = $1
		ORDER BY ob.base_name
	`, saveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OwnedBase
	for rows.Next() {
		var b OwnedBase
		var cost string
		if err := rows.Scan(&b.BaseID, &b.Ident, &b.Name, &b.AcquiredDay, &cost, &b.IsHQ, &b.Tier); err != nil {
			return nil, err
		}
		b.PurchaseCost = money(cost)
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListFleet returns the unsold fleet with model info and effective eco
// multipliers.
func (s *Service) ListFleet(ctx context.Context, saveID int64) ([]Aircraft, error) {
	rows, err := s.db.Query(ctx, `
		SELECT a.aircraft_id, a.model_code, am.model_name, am.category,
		       a.registration, COALESCE(a.nickname, ''), a.current_airport_ident,
		       a.condition_percent, a.status, a.hours_flown, a.acquired_day,
		       a.purchase_price::text, am.eco_fee_multiplier::text,
		       am.base_cargo_kg, am.cruise_speed_kts,
		       COALESCE((SELECT MAX(au.level) FROM aircraft_upgrades au
		                 WHERE au.aircraft_id = a.aircraft_id AND au.upgrade_code = $2), 0)
		FROM aircraft a
		JOIN aircraft_models am ON am.model_code = a.model_code
		WHERE a.save_id = $1 AND a.sold_day IS NULL
		ORDER BY a.aircraft_id
	`, saveID, upgradeCodeEco)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Aircraft
	for rows.Next() {
		ac, err := scanFleetRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ac)
	}
	return out, rows.Err()
}

func (s *Service) fleetAircraft(ctx context.Context, saveID, aircraftID int64) (Aircraft, error) {
	ac, err := scanFleetRow(s.db.QueryRow(ctx, `
		SELECT a.aircraft_id, a.model_code, am.model_name, am.category,
		       a.registration, COALESCE(a.nickname, ''), a.current_airport_ident,
		       a.condition_percent, a.status, a.hours_flown, a.acquired_day,
		       a.purchase_price::text, am.eco_fee_multiplier::text,
		       am.base_cargo_kg, am.cruise_speed_kts,
		       COALESCE((SELECT MAX(au.level) FROM aircraft_upgrades au
		                 WHERE au.aircraft_id = a.aircraft_id AND au.upgrade_code = $3), 0)
		FROM aircraft a
		JOIN aircraft_models am ON am.model_code = a.model_code
		WHERE a.aircraft_id = $1 AND a.save_id = $2 AND a.sold_day IS NULL
	`, aircraftID, saveID, upgradeCodeEco))
	if err == pgx.ErrNoRows {
		return Aircraft{}, ErrAircraftNotFound
	}
	return ac, err
}

func scanFleetRow(row pgx.Row) (Aircraft, error) {
	var ac Aircraft
	var price, eco string
	if err := row.Scan(&ac.AircraftID, &ac.ModelCode, &ac.ModelName, &ac.Category,
		&ac.Registration, &ac.Nickname, &ac.CurrentAirport,
		&ac.ConditionPercent, &ac.Status, &ac.HoursFlown, &ac.AcquiredDay,
		&price, &eco, &ac.CargoKg, &ac.CruiseSpeedKts, &ac.EcoLevel); err != nil {
		return ac, err
	}
	ac.PurchasePrice = money(price)
	ac.EffectiveEco = EffectiveEco(money(eco), ac.EcoLevel)
	return ac, nil
}

// ListModels returns the shop catalog annotated with whether the
// player's current best base tier unlocks each model.
func (s *Service) ListModels(ctx context.Context, saveID int64) ([]AircraftModel, string, error) {
	tiers, err := s.ownedTiers(ctx, saveID)
	if err != nil {
		return nil, "", err
	}
	maxTier := bestTier(tiers)

	rows, err := s.db.Query(ctx, `
		SELECT model_code, manufacturer, model_name, purchase_price::text,
		       base_cargo_kg, range_km, cruise_speed_kts, category, eco_fee_multiplier::text, co2_kg_per_km
		FROM aircraft_models
		ORDER BY purchase_price
	`)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	var out []AircraftModel
	for rows.Next() {
		var m AircraftModel
		var price, eco string
		if err := rows.Scan(&m.ModelCode, &m.Manufacturer, &m.ModelName, &price,
			&m.CargoKg, &m.RangeKm, &m.CruiseSpeedKts, &m.Category, &eco, &m.Co2KgPerKm); err != nil {
			return nil, "", err
		}
		m.PurchasePrice = money(price)
		m.EcoMultiplier = money(eco)
		out = append(out, m)
	}
	return out, maxTier, rows.Err()
}

func (s *Service) ownedTiers(ctx context.Context, saveID int64) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT COALESCE(
		    (SELECT bu.upgrade_code FROM base_upgrades bu
		     WHERE bu.base_id = ob.base_id ORDER BY bu.base_upgrade_id DESC LIMIT 1),
		    'SMALL')
		FROM owned_bases ob
		WHERE ob.save_id = $1
	`, saveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func bestTier(tiers []string) string {
	best := 0
	for _, t := range tiers {
		if idx := tierIndex(t); idx > best {
			best = idx
		}
	}
	return baseTiers[best]
}

func maxBaseTierTx(ctx context.Context, tx pgx.Tx, saveID int64) (string, error) {
	rows, err := tx.Query(ctx, `
		SELECT COALESCE(
		    (SELECT bu.upgrade_code FROM base_upgrades bu
		     WHERE bu.base_id = ob.base_id ORDER BY bu.base_upgrade_id DESC LIMIT 1),
		    'SMALL')
		FROM owned_bases ob
		WHERE ob.save_id = $1
	`, saveID)
	if err != nil {
		return "", err
	}
	defer rows.Close()
	var tiers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return "", err
		}
		tiers = append(tiers, t)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return bestTier(tiers), nil
}

// EventLog returns the most recent audit entries for a save.
func (s *Service) EventLog(ctx context.Context, saveID int64, limit int) ([]EventLogEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT day, event_type, details
		FROM save_event_log
		WHERE save_id = $1
		ORDER BY log_id DESC
		LIMIT $2
	`, saveID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventLogEntry
	for rows.Next() {
		var e EventLogEntry
		if err := rows.Scan(&e.Day, &e.EventType, &e.Details); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type auditEntry struct {
	day     int
	typ     string
	details string
}

// flushAudit writes audit rows after the primary transaction commits.
// Audit is best-effort: a failed insert is logged and dropped, never
// allowed to undo settled money.
func (s *Service) flushAudit(ctx context.Context, saveID int64, entries []auditEntry) {
	for _, e := range entries {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO save_event_log (save_id, day, event_type, details)
			VALUES ($1, $2, $3, $4)
		`, saveID, e.day, e.typ, e.details); err != nil {
			s.log.Warn("audit write failed", "save_id", saveID, "type", e.typ, "err", err)
		}
	}
}

func claimIdempotency(ctx context.Context, tx pgx.Tx, saveID int64, key, action string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := tx.Exec(ctx, `
		INSERT INTO idempotency_keys (save_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (save_id, key) DO NOTHING
	`, saveID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateIdempotency
	}
	return nil
}

func isSerializationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
