package game

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTaskReward(t *testing.T) {
	// 1000 kg over 800 km at neutral eco:
	// 1000*2.50 + 800*1.90 = 4020.00
	reward := TaskReward(1000, 800, money("1.00"))
	require.Equal(t, "4020.00", reward.StringFixed(2))
	require.Equal(t, "1206.00", TaskPenalty(reward).StringFixed(2))
}

func TestTaskRewardFloor(t *testing.T) {
	reward := TaskReward(10, 20, money("1.00"))
	require.Equal(t, "250.00", reward.StringFixed(2))
}

func TestTaskRewardEcoScaling(t *testing.T) {
	base := TaskReward(1000, 800, money("1.00"))
	scaled := TaskReward(1000, 800, money("1.50"))
	require.Equal(t, base.Mul(money("1.50")).Round(2).StringFixed(2), scaled.StringFixed(2))
}

func TestEffectiveEco(t *testing.T) {
	require.Equal(t, "1.00", EffectiveEco(money("1.00"), 0).StringFixed(2))

	// 1.00 * 1.05^2 = 1.1025
	require.Equal(t, "1.1025", EffectiveEco(money("1.00"), 2).String())

	// Clamps on both ends.
	require.Equal(t, "5.00", EffectiveEco(money("2.00"), 100).StringFixed(2))
	require.Equal(t, "0.50", EffectiveEco(money("0.10"), 0).StringFixed(2))
}

func TestAircraftUpgradeCost(t *testing.T) {
	// STARTER ladder: 100000, then *1.25 per level.
	require.Equal(t, "100000.00", AircraftUpgradeCost("STARTER", decimal.Zero, 1).StringFixed(2))
	require.Equal(t, "125000.00", AircraftUpgradeCost("STARTER", decimal.Zero, 2).StringFixed(2))

	// Non-starter: 10% of price floored at 100000, *1.20 per level.
	require.Equal(t, "200000.00", AircraftUpgradeCost("MEDIUM", money("2000000"), 1).StringFixed(2))
	require.Equal(t, "288000.00", AircraftUpgradeCost("MEDIUM", money("2000000"), 3).StringFixed(2))
	require.Equal(t, "100000.00", AircraftUpgradeCost("SMALL", money("250000"), 1).StringFixed(2))
}

func TestBaseUpgradeCost(t *testing.T) {
	require.Equal(t, "50000.00", BaseUpgradeCost(money("100000"), "MEDIUM").StringFixed(2))
	require.Equal(t, "90000.00", BaseUpgradeCost(money("100000"), "LARGE").StringFixed(2))
	require.Equal(t, "150000.00", BaseUpgradeCost(money("100000"), "HUGE").StringFixed(2))
	require.True(t, BaseUpgradeCost(money("100000"), "SMALL").IsZero())
}

func TestMonthlyBill(t *testing.T) {
	// Day 30, one starter aircraft: 125000 + 15000, no growth yet.
	require.Equal(t, "140000.00", MonthlyBill(30, 1, 1).StringFixed(2))

	// Day 90 is the third period: 140000 * 1.05^2 = 154350.00.
	require.Equal(t, "154350.00", MonthlyBill(90, 1, 1).StringFixed(2))

	// Two regular plus one starter at day 60.
	// (125000 + 3*15000) * 1.05 = 178500.00
	require.Equal(t, "178500.00", MonthlyBill(60, 3, 1).StringFixed(2))
}

func TestRepairCost(t *testing.T) {
	require.Equal(t, "120000.00", RepairCost(60).StringFixed(2))
	require.True(t, RepairCost(100).IsZero())
	require.Equal(t, "300000.00", RepairCost(0).StringFixed(2))
}

func TestTripCount(t *testing.T) {
	tests := []struct {
		payload, cargo, want int
	}{
		{1000, 2500, 1},
		{2500, 2500, 1},
		{2501, 2500, 2},
		{5000, 2500, 2},
		{12000, 2500, 5},
		{100, 0, 1},
	}
	for _, tc := range tests {
		if got := tripCount(tc.payload, tc.cargo); got != tc.want {
			t.Fatalf("tripCount(%d, %d)=%d want %d", tc.payload, tc.cargo, got, tc.want)
		}
	}
}

func TestTravelDays(t *testing.T) {
	// 160 kts covers ~14223 km per day; a short hop is one day.
	if got := travelDays(800, 160); got != 1 {
		t.Fatalf("travelDays(800, 160)=%d", got)
	}
	if got := travelDays(20000, 160); got != 2 {
		t.Fatalf("travelDays(20000, 160)=%d", got)
	}
	if got := travelDays(1000, 0); got != 1 {
		t.Fatalf("travelDays with zero speed=%d", got)
	}
}

func TestDeadlineBuffer(t *testing.T) {
	if got := deadlineBuffer(1); got != 1 {
		t.Fatalf("deadlineBuffer(1)=%d", got)
	}
	if got := deadlineBuffer(6); got != 3 {
		t.Fatalf("deadlineBuffer(6)=%d", got)
	}
}

func TestPayloadRange(t *testing.T) {
	minKg, maxKg := payloadRange(300, 2500)
	if minKg != 1250 || maxKg != 7500 {
		t.Fatalf("short hop range [%d, %d]", minKg, maxKg)
	}
	minKg, maxKg = payloadRange(1000, 2500)
	if minKg != 2500 || maxKg != 10000 {
		t.Fatalf("medium range [%d, %d]", minKg, maxKg)
	}
	minKg, maxKg = payloadRange(5000, 2500)
	if minKg != 5000 || maxKg != 15000 {
		t.Fatalf("long haul range [%d, %d]", minKg, maxKg)
	}
}

func TestEmissionsKg(t *testing.T) {
	if got := emissionsKg(800, 2.10); got != 1680.00 {
		t.Fatalf("emissionsKg(800, 2.10)=%v", got)
	}
	if got := emissionsKg(123.456, 0.2); got != 24.69 {
		t.Fatalf("emissionsKg(123.456, 0.2)=%v", got)
	}
	if got := emissionsKg(-10, 2.10); got != 0 {
		t.Fatalf("negative distance=%v", got)
	}
	if got := emissionsKg(800, 0); got != 0 {
		t.Fatalf("zero rate=%v", got)
	}
}

func TestUsedPrice(t *testing.T) {
	require.Equal(t, "42500.00", usedPrice(money("100000"), 50).StringFixed(2))
	require.Equal(t, "85000.00", usedPrice(money("100000"), 100).StringFixed(2))
}
