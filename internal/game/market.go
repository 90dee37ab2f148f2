package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const marketListingsPerSave = 5

// Used airframes sell below list even before wear: wear scales the
// price by condition, then this discount comes off the top.
var usedMarketDiscount = money("0.85")

// usedPrice prices a second-hand listing from the model's list price
// and its condition.
func usedPrice(listPrice decimal.Decimal, conditionPercent int) decimal.Decimal {
	cond := decimal.NewFromInt(int64(conditionPercent)).Div(decimal.NewFromInt(100))
	return roundMoney(listPrice.Mul(cond).Mul(usedMarketDiscount))
}

// RefreshMarket regenerates the used-aircraft listings for every
// ACTIVE save. The worker calls this on a timer; listings are a
// rotating stock, not an order book.
func (s *Service) RefreshMarket(ctx context.Context) (int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT save_id, current_day FROM game_saves WHERE status = 'ACTIVE'
	`)
	if err != nil {
		return 0, err
	}
	type target struct {
		saveID int64
		day    int
	}
	var targets []target
	for rows.Next() {
		var t target
		if err := rows.Scan(&t.saveID, &t.day); err != nil {
			rows.Close()
			return 0, err
		}
		targets = append(targets, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	refreshed := 0
	for _, t := range targets {
		if err := s.refreshMarketForSave(ctx, t.saveID, t.day); err != nil {
			s.log.Warn("market refresh failed", "save_id", t.saveID, "err", err)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

func (s *Service) refreshMarketForSave(ctx context.Context, saveID int64, day int) error {
	models, _, err := s.ListModels(ctx, saveID)
	if err != nil {
		return err
	}
	var sellable []AircraftModel
	for _, m := range models {
		if m.Category != categoryStarter {
			sellable = append(sellable, m)
		}
	}
	if len(sellable) == 0 {
		return fmt.Errorf("no sellable models in catalog")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		DELETE FROM market_aircraft WHERE save_id = $1
	`, saveID); err != nil {
		return err
	}
	for i := 0; i < marketListingsPerSave; i++ {
		m := sellable[s.intn(len(sellable))]
		condition := 40 + s.intn(51)
		if _, err := tx.Exec(ctx, `
			INSERT INTO market_aircraft (save_id, model_code, condition_percent, price, listed_day)
			VALUES ($1, $2, $3, $4::numeric, $5)
		`, saveID, m.ModelCode, condition, usedPrice(m.PurchasePrice, condition).StringFixed(2), day); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListMarket returns the current used listings for a save.
func (s *Service) ListMarket(ctx context.Context, saveID int64) ([]MarketListing, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ma.market_id, ma.model_code, am.model_name, am.category,
		       ma.condition_percent, ma.price::text, ma.listed_day
		FROM market_aircraft ma
		JOIN aircraft_models am ON am.model_code = ma.model_code
		WHERE ma.save_id = $1
		ORDER BY ma.price
	`, saveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MarketListing
	for rows.Next() {
		var l MarketListing
		var price string
		if err := rows.Scan(&l.MarketID, &l.ModelCode, &l.ModelName, &l.Category,
			&l.ConditionPercent, &price, &l.ListedDay); err != nil {
			return nil, err
		}
		l.Price = money(price)
		out = append(out, l)
	}
	return out, rows.Err()
}

// PurchaseUsedAircraft buys one market listing. The DELETE doubles as
// the race check: if a concurrent purchase got there first the row is
// gone and the sale fails cleanly.
func (s *Service) PurchaseUsedAircraft(ctx context.Context, saveID, marketID int64, airportIdent, idemKey string) (Aircraft, error) {
	var out Aircraft
	var audit []auditEntry
	airport := strings.ToUpper(strings.TrimSpace(airportIdent))

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return out, err
	}
	err = func() error {
		defer tx.Rollback(ctx)

		if err := claimIdempotency(ctx, tx, saveID, idemKey, "purchase_used_aircraft"); err != nil {
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

		var modelCode, priceText, category string
		var condition int
		err = tx.QueryRow(ctx, `
			SELECT ma.model_code, ma.price::text, ma.condition_percent, am.category
			FROM market_aircraft ma
			JOIN aircraft_models am ON am.model_code = ma.model_code
			WHERE ma.market_id = $1 AND ma.save_id = $2
			FOR UPDATE OF ma
		`, marketID, saveID).Scan(&modelCode, &priceText, &condition, &category)
		if err == pgx.ErrNoRows {
			return ErrListingSold
		}
		if err != nil {
			return err
		}

		maxTier, err := maxBaseTierTx(ctx, tx, saveID)
		if err != nil {
			return err
		}
		if !categoryAllowed(category, maxTier) {
			return ErrTierLocked
		}

		var owned bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (SELECT 1 FROM owned_bases WHERE save_id = $1 AND base_ident = $2)
		`, saveID, airport).Scan(&owned); err != nil {
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

		cmd, err := tx.Exec(ctx, `
			DELETE FROM market_aircraft WHERE market_id = $1
		`, marketID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return ErrListingSold
		}

		reg := s.registration("SH")
		if err := tx.QueryRow(ctx, `
			INSERT INTO aircraft
			    (save_id, model_code, current_airport_ident, registration,
			     acquired_day, purchase_price, condition_percent, status, hours_flown)
			VALUES
			    ($1, $2, $3, $4, $5, $6::numeric, $7, 'IDLE', 0)
			RETURNING aircraft_id
		`, saveID, modelCode, airport, reg, day, price.StringFixed(2), condition).Scan(&out.AircraftID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE game_saves SET cash = $1::numeric WHERE save_id = $2
		`, cash.Sub(price).StringFixed(2), saveID); err != nil {
			return err
		}

		out.ModelCode = modelCode
		out.Registration = reg
		out.CurrentAirport = airport
		out.Status = AircraftIdle
		out.ConditionPercent = condition
		out.AcquiredDay = day
		out.PurchasePrice = price
		audit = append(audit, auditEntry{day, "AIRCRAFT_PURCHASED_USED",
			fmt.Sprintf("model=%s registration=%s price=%s condition=%d", modelCode, reg, price.StringFixed(2), condition)})
		return tx.Commit(ctx)
	}()
	if err != nil {
		return Aircraft{}, err
	}
	s.flushAudit(ctx, saveID, audit)
	return out, nil
}
