package game

import (
	"math"

	"github.com/shopspring/decimal"
)

// Economy constants. Rewards are linear in payload and distance with a
// floor; penalties are a fixed share of the reward. Upgrade and bill
// curves grow geometrically so late-game costs keep pace with income.
var (
	RewardPerKg  = money("2.50")
	RewardPerKm  = money("1.90")
	MinReward    = money("250.00")
	PenaltyRatio = money("0.30")

	ecoFactorPerLevel = money("1.05")
	ecoMultMin        = money("0.50")
	ecoMultMax        = money("5.00")

	starterUpgradeBase   = money("100000")
	starterUpgradeGrowth = money("1.25")
	upgradeBasePct       = money("0.10")
	upgradeMinBase       = money("100000")
	upgradeGrowth        = money("1.20")

	HQMonthlyFee         = money("125000.00")
	MaintPerAircraft     = money("15000.00")
	starterMaintDiscount = money("1.00")
	billGrowthRate       = money("0.05")

	RepairCostPerPercent = money("3000.00")

	baseTierUpgradePct = map[string]decimal.Decimal{
		"MEDIUM": money("0.50"),
		"LARGE":  money("0.90"),
		"HUGE":   money("1.50"),
	}
)

// TaskReward computes the offer reward for a payload, distance and the
// aircraft's effective eco multiplier, floored at MinReward and
// rounded half-up to cents.
func TaskReward(payloadKg int, distanceKm float64, effectiveEco decimal.Decimal) decimal.Decimal {
	payload := decimal.NewFromInt(int64(payloadKg)).Mul(RewardPerKg)
	dist := decimal.NewFromFloat(distanceKm).Mul(RewardPerKm)
	reward := payload.Add(dist).Mul(effectiveEco)
	if reward.LessThan(MinReward) {
		reward = MinReward
	}
	return roundMoney(reward)
}

// TaskPenalty is the late-delivery deduction for a reward, never
// negative.
func TaskPenalty(reward decimal.Decimal) decimal.Decimal {
	p := roundMoney(reward.Mul(PenaltyRatio))
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// EffectiveEco applies the installed upgrade level to a model's base
// eco multiplier: base * 1.05^level, clamped to [0.50, 5.00].
func EffectiveEco(base decimal.Decimal, level int) decimal.Decimal {
	if level < 0 {
		level = 0
	}
	eff := base.Mul(ecoFactorPerLevel.Pow(decimal.NewFromInt(int64(level))))
	if eff.LessThan(ecoMultMin) {
		return ecoMultMin
	}
	if eff.GreaterThan(ecoMultMax) {
		return ecoMultMax
	}
	return eff
}

// AircraftUpgradeCost prices the next eco upgrade. STARTER airframes
// use a fixed base with steeper growth; everything else anchors on a
// share of the purchase price with an absolute minimum.
func AircraftUpgradeCost(category string, purchasePrice decimal.Decimal, nextLevel int) decimal.Decimal {
	if nextLevel < 1 {
		nextLevel = 1
	}
	var base, growth decimal.Decimal
	if category == categoryStarter {
		base = starterUpgradeBase
		growth = starterUpgradeGrowth
	} else {
		base = purchasePrice.Mul(upgradeBasePct)
		if base.LessThan(upgradeMinBase) {
			base = upgradeMinBase
		}
		growth = upgradeGrowth
	}
	cost := base.Mul(growth.Pow(decimal.NewFromInt(int64(nextLevel - 1))))
	return roundMoney(cost)
}

// BaseUpgradeCost prices the jump to targetTier as a share of the
// base's original purchase cost.
func BaseUpgradeCost(purchaseCost decimal.Decimal, targetTier string) decimal.Decimal {
	pct, ok := baseTierUpgradePct[targetTier]
	if !ok {
		return decimal.Zero
	}
	return roundMoney(purchaseCost.Mul(pct))
}

// MonthlyBill totals the HQ fee plus per-aircraft maintenance, then
// compounds by the growth rate for every 30-day period after the
// first. At day 30 the bill is the raw total; from day 60 the total is
// multiplied by (1+rate)^(day/30 - 1).
func MonthlyBill(day, fleetSize, starterCount int) decimal.Decimal {
	regular := decimal.NewFromInt(int64(fleetSize - starterCount)).Mul(MaintPerAircraft)
	starter := decimal.NewFromInt(int64(starterCount)).Mul(MaintPerAircraft).Mul(starterMaintDiscount)
	bill := HQMonthlyFee.Add(regular).Add(starter)

	periods := day/billingPeriodDays - 1
	if periods > 0 {
		growth := decimal.NewFromInt(1).Add(billGrowthRate)
		bill = bill.Mul(growth.Pow(decimal.NewFromInt(int64(periods))))
	}
	return roundMoney(bill)
}

// RepairCost is linear in missing condition.
func RepairCost(conditionPercent int) decimal.Decimal {
	missing := maxConditionPercent - conditionPercent
	if missing < 0 {
		missing = 0
	}
	return roundMoney(decimal.NewFromInt(int64(missing)).Mul(RepairCostPerPercent))
}

// tripCount is how many shuttle runs the contract payload needs given
// the aircraft's cargo capacity.
func tripCount(payloadKg, cargoKg int) int {
	if cargoKg <= 0 {
		return 1
	}
	trips := (payloadKg + cargoKg - 1) / cargoKg
	if trips < 1 {
		trips = 1
	}
	return trips
}

// travelDays converts distance to whole flying days. Cruise speed in
// knots becomes km covered per day assuming two 12h legs.
func travelDays(distanceKm float64, cruiseSpeedKts int) int {
	if cruiseSpeedKts <= 0 {
		return 1
	}
	kmPerDay := float64(cruiseSpeedKts) * 1.852 * 24 * 2
	days := int(math.Ceil(distanceKm / kmPerDay))
	if days < 1 {
		days = 1
	}
	return days
}

// emissionsKg is the CO2 burned over a flight's total distance at the
// model's per-km rate, rounded to hundredths of a kilogram.
func emissionsKg(distanceKm, co2KgPerKm float64) float64 {
	if distanceKm < 0 || co2KgPerKm < 0 {
		return 0
	}
	return math.Round(distanceKm*co2KgPerKm*100) / 100
}

// deadlineBuffer is the grace added on top of flight time when a
// contract is offered: half the trip count, at least one day.
func deadlineBuffer(trips int) int {
	buffer := trips / 2
	if buffer < 1 {
		buffer = 1
	}
	return buffer
}

// payloadRange picks the payload band for a destination by distance
// tier. Short hops offer light loads, long hauls multiples of the
// aircraft's capacity.
func payloadRange(distanceKm float64, cargoKg int) (minKg, maxKg int) {
	switch {
	case distanceKm < 500:
		return cargoKg / 2, cargoKg * 3
	case distanceKm < 1500:
		return cargoKg, cargoKg * 4
	default:
		return cargoKg * 2, cargoKg * 6
	}
}
