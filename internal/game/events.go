package game

import (
	"context"
	"fmt"
	mathrand "math/rand"

	"github.com/jackc/pgx/v5"
)

// BuildCalendar deterministically assigns one catalog event name to
// every day in [1, horizon]. The only entropy consumed is the local
// source seeded here, so the same seed and catalog always produce the
// same sequence.
//
// Selection per day: while the previous event still has remaining
// duration it carries over. Otherwise pick a uniformly random catalog
// entry, roll in [1, max(1, chance_max)], and treat an exact
// chance_max roll as a hit; misses fall back to "Normal Day". A row
// with chance_max < 1 can never roll its own value, so it never hits.
// If the catalog has no Normal Day entry the rolled candidate is used
// as-is rather than failing.
func BuildCalendar(seed int64, horizon int, catalog []FlightEvent) ([]string, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyEventCatalog
	}
	byName := make(map[string]FlightEvent, len(catalog))
	names := make([]string, 0, len(catalog))
	for _, ev := range catalog {
		byName[ev.Name] = ev
		names = append(names, ev.Name)
	}

	rng := mathrand.New(mathrand.NewSource(seed))
	out := make([]string, 0, horizon)
	remaining := 0
	current := ""
	for day := 1; day <= horizon; day++ {
		if remaining <= 0 {
			candidate := byName[names[rng.Intn(len(names))]]
			bound := candidate.ChanceMax
			if bound < 1 {
				bound = 1
			}
			roll := rng.Intn(bound) + 1
			picked := candidate
			if roll != candidate.ChanceMax {
				if normal, ok := byName[normalDayEventName]; ok {
					picked = normal
				}
			}
			current = picked.Name
			remaining = picked.Duration
			if remaining < 1 {
				remaining = 1
			}
		}
		out = append(out, current)
		remaining--
	}
	return out, nil
}

// InitEventsForSeed persists the per-day calendar for a seed once. A
// second call with the same seed is a no-op returning false. An empty
// event catalog is a hard error: a save without a fate table would
// silently play a different game.
func (s *Service) InitEventsForSeed(ctx context.Context, seed int64, horizon int) (bool, error) {
	catalog, err := s.eventCatalog(ctx)
	if err != nil {
		return false, err
	}
	calendar, err := BuildCalendar(seed, horizon, catalog)
	if err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var existing int
	if err := tx.QueryRow(ctx, `
		SELECT COUNT(1) FROM player_fate WHERE rng_seed = $1
	`, seed).Scan(&existing); err != nil {
		return false, err
	}
	if existing > 0 {
		return false, nil
	}

	rows := make([][]any, 0, len(calendar))
	for i, name := range calendar {
		rows = append(rows, []any{seed, i + 1, name})
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"player_fate"},
		[]string{"rng_seed", "day", "event_name"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	s.log.Info("event calendar initialized", "seed", seed, "days", len(calendar))
	return true, nil
}

// EventForDay is a pure lookup against the persisted calendar. Day
// zero, negative days and unset seeds have no fate and return nil. It
// never re-rolls.
func (s *Service) EventForDay(ctx context.Context, seed int64, day int) (*FlightEvent, error) {
	if seed == 0 || day <= 0 {
		return nil, nil
	}
	var name string
	err := s.db.QueryRow(ctx, `
		SELECT event_name FROM player_fate
		WHERE rng_seed = $1 AND day = $2
	`, seed, day).Scan(&name)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.eventByName(ctx, name)
}

func (s *Service) EventByID(ctx context.Context, eventID int64) (*FlightEvent, error) {
	ev, err := scanEvent(s.db.QueryRow(ctx, `
		SELECT event_id, event_name, description, chance_max, package_multiplier::text, plane_damage, day_factor, duration
		FROM random_events
		WHERE event_id = $1
	`, eventID))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("event %d: not found", eventID)
	}
	return ev, err
}

func (s *Service) eventByName(ctx context.Context, name string) (*FlightEvent, error) {
	ev, err := scanEvent(s.db.QueryRow(ctx, `
		SELECT event_id, event_name, description, chance_max, package_multiplier::text, plane_damage, day_factor, duration
		FROM random_events
		WHERE event_name = $1
	`, name))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return ev, err
}

func (s *Service) eventCatalog(ctx context.Context) ([]FlightEvent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT event_id, event_name, description, chance_max, package_multiplier::text, plane_damage, day_factor, duration
		FROM random_events
		ORDER BY event_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []FlightEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (*FlightEvent, error) {
	var ev FlightEvent
	var mult string
	if err := row.Scan(&ev.EventID, &ev.Name, &ev.Description, &ev.ChanceMax, &mult, &ev.PlaneDamage, &ev.DayFactor, &ev.Duration); err != nil {
		return nil, err
	}
	ev.PackageMultiplier = money(mult)
	return &ev, nil
}
