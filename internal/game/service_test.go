package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSettleDeliveryOnTime(t *testing.T) {
	res := settleDelivery(money("4020.00"), money("1206.00"), 1000, 10, 9, nil)
	require.True(t, res.OnTime)
	require.Equal(t, ContractCompleted, res.Status)
	require.Equal(t, "4020.00", res.FinalReward.StringFixed(2))
	require.Equal(t, "0.00", res.EventAdjustment.StringFixed(2))
	require.Equal(t, 1000, res.DeliveredKg)
	require.Zero(t, res.LostKg)
	require.Zero(t, res.Damage)
}

func TestSettleDeliveryDeadlineDayIsOnTime(t *testing.T) {
	res := settleDelivery(money("4020.00"), money("1206.00"), 1000, 10, 10, nil)
	require.True(t, res.OnTime)
	require.Equal(t, ContractCompleted, res.Status)
}

func TestSettleDeliveryLate(t *testing.T) {
	res := settleDelivery(money("4020.00"), money("1206.00"), 1000, 10, 11, nil)
	require.False(t, res.OnTime)
	require.Equal(t, ContractCompletedLate, res.Status)
	require.Equal(t, "2814.00", res.FinalReward.StringFixed(2))
}

func TestSettleDeliveryLateNeverNegative(t *testing.T) {
	res := settleDelivery(money("100.00"), money("500.00"), 100, 5, 9, nil)
	require.Equal(t, "0.00", res.FinalReward.StringFixed(2))
}

func TestSettleDeliveryEventMultiplier(t *testing.T) {
	ev := &FlightEvent{Name: "Cargo Pilferage", PackageMultiplier: money("0.70")}
	res := settleDelivery(money("4020.00"), money("1206.00"), 1000, 10, 9, ev)
	require.Equal(t, "2814.00", res.FinalReward.StringFixed(2))
	require.Equal(t, "1206.00", res.EventAdjustment.StringFixed(2))
	require.Equal(t, 700, res.DeliveredKg)
	require.Equal(t, 300, res.LostKg)
	require.Equal(t, "Cargo Pilferage", res.EventName)
}

func TestSettleDeliveryEventBonus(t *testing.T) {
	// Multipliers above one pay a bonus and lose no cargo.
	ev := &FlightEvent{Name: "Air Freight Boom", PackageMultiplier: money("1.25")}
	res := settleDelivery(money("1000.00"), money("300.00"), 500, 10, 9, ev)
	require.Equal(t, "1250.00", res.FinalReward.StringFixed(2))
	require.Equal(t, "-250.00", res.EventAdjustment.StringFixed(2))
	require.Equal(t, 500, res.DeliveredKg)
	require.Zero(t, res.LostKg)
}

func TestSettleDeliveryEventDamage(t *testing.T) {
	ev := &FlightEvent{Name: "Engine Trouble", PackageMultiplier: money("1.00"), PlaneDamage: 15}
	res := settleDelivery(money("1000.00"), money("300.00"), 500, 10, 9, ev)
	require.Equal(t, 15, res.Damage)
	require.Equal(t, "1000.00", res.FinalReward.StringFixed(2))
}

func TestSettleDeliveryNegativeMultiplierClamps(t *testing.T) {
	ev := &FlightEvent{Name: "Broken Row", PackageMultiplier: money("-2.00")}
	res := settleDelivery(money("1000.00"), money("300.00"), 500, 10, 9, ev)
	require.Equal(t, "0.00", res.FinalReward.StringFixed(2))
	require.Zero(t, res.DeliveredKg)
	require.Equal(t, 500, res.LostKg)
}

func TestFFStop(t *testing.T) {
	active := func(day int, arrivals int) DaySummary {
		sum := DaySummary{Day: day, Status: SaveActive}
		for i := 0; i < arrivals; i++ {
			sum.Arrivals = append(sum.Arrivals, ArrivalReport{})
		}
		return sum
	}

	if got := ffStop(active(5, 0), 1, 30); got != "" {
		t.Fatalf("expected no stop, got %q", got)
	}
	if got := ffStop(active(5, 2), 1, 30); got != StopArrivals {
		t.Fatalf("expected arrivals stop, got %q", got)
	}
	if got := ffStop(active(5, 0), 30, 30); got != StopMaxDays {
		t.Fatalf("expected max_days stop, got %q", got)
	}
	if got := ffStop(active(SurvivalTargetDays, 0), 1, 30); got != StopVictory {
		t.Fatalf("expected victory stop, got %q", got)
	}

	bankrupt := active(5, 0)
	bankrupt.Status = SaveBankrupt
	if got := ffStop(bankrupt, 1, 30); got != StopBankrupt {
		t.Fatalf("expected bankrupt stop, got %q", got)
	}

	// Arrivals are the reported reason even when the same day turns
	// the save terminal.
	bankruptLanding := active(5, 3)
	bankruptLanding.Status = SaveBankrupt
	if got := ffStop(bankruptLanding, 1, 30); got != StopArrivals {
		t.Fatalf("arrivals outrank bankruptcy, got %q", got)
	}
	if got := ffStop(active(SurvivalTargetDays, 1), 1, 30); got != StopArrivals {
		t.Fatalf("arrivals outrank victory, got %q", got)
	}
}

func TestBuildOffer(t *testing.T) {
	ac := Aircraft{CargoKg: 2500, CruiseSpeedKts: 160, EffectiveEco: money("1.00")}

	offer := buildOffer("LFPG", "Paris Charles de Gaulle", 800, 1000, ac, 10, nil)
	require.Equal(t, 1, offer.Trips)
	require.Equal(t, 1, offer.TotalDays)
	require.Equal(t, 12, offer.DeadlineDay)
	require.Equal(t, "4020.00", offer.Reward.StringFixed(2))
	require.Equal(t, "1206.00", offer.Penalty.StringFixed(2))
	require.Zero(t, offer.DelayMinutes)
	require.Empty(t, offer.EventName)
}

func TestBuildOfferMultiTrip(t *testing.T) {
	ac := Aircraft{CargoKg: 2500, CruiseSpeedKts: 160, EffectiveEco: money("1.00")}

	offer := buildOffer("KJFK", "New York John F Kennedy", 800, 5000, ac, 10, nil)
	require.Equal(t, 2, offer.Trips)
	require.Equal(t, 2, offer.TotalDays)
	// deadline = day + days + max(1, trips/2)
	require.Equal(t, 13, offer.DeadlineDay)
}

func TestBuildOfferDepartureEventStretch(t *testing.T) {
	ac := Aircraft{CargoKg: 2500, CruiseSpeedKts: 160, EffectiveEco: money("1.00")}
	ev := &FlightEvent{Name: "Thunderstorms", DayFactor: 1.5}

	offer := buildOffer("KJFK", "New York John F Kennedy", 800, 5000, ac, 10, ev)
	require.Equal(t, 3, offer.TotalDays)
	require.Equal(t, 720, offer.DelayMinutes)
	require.Equal(t, "Thunderstorms", offer.EventName)
}

func TestBuildOfferTailwindsShorten(t *testing.T) {
	ac := Aircraft{CargoKg: 2500, CruiseSpeedKts: 160, EffectiveEco: money("1.00")}
	ev := &FlightEvent{Name: "Tailwinds", DayFactor: 0.8}

	offer := buildOffer("EGLL", "London Heathrow", 800, 5000, ac, 10, ev)
	require.Equal(t, 2, offer.TotalDays)
	require.Zero(t, offer.DelayMinutes)
}
