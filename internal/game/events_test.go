package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func testCatalog() []FlightEvent {
	return []FlightEvent{
		{Name: "Normal Day", ChanceMax: 1, PackageMultiplier: money("1.00"), DayFactor: 1, Duration: 1},
		{Name: "Thunderstorms", ChanceMax: 6, PackageMultiplier: money("0.90"), PlaneDamage: 5, DayFactor: 1.5, Duration: 1},
		{Name: "Customs Strike", ChanceMax: 8, PackageMultiplier: money("0.85"), DayFactor: 1.4, Duration: 3},
	}
}

func TestBuildCalendarDeterministic(t *testing.T) {
	a, err := BuildCalendar(42, 200, testCatalog())
	require.NoError(t, err)
	b, err := BuildCalendar(42, 200, testCatalog())
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 200)

	c, err := BuildCalendar(43, 200, testCatalog())
	require.NoError(t, err)
	require.NotEqual(t, a, c)
}

func TestBuildCalendarEmptyCatalog(t *testing.T) {
	_, err := BuildCalendar(42, 100, nil)
	require.ErrorIs(t, err, ErrEmptyEventCatalog)
}

func TestBuildCalendarMissFallsBackToNormalDay(t *testing.T) {
	// With large chance windows nearly every roll misses, so the
	// calendar should be dominated by Normal Day.
	catalog := []FlightEvent{
		{Name: "Normal Day", ChanceMax: 1, Duration: 1},
		{Name: "Meteor Shower", ChanceMax: 1000000, Duration: 1},
	}
	days, err := BuildCalendar(7, 50, catalog)
	require.NoError(t, err)
	normal := 0
	for _, name := range days {
		if name == "Normal Day" {
			normal++
		}
	}
	require.Greater(t, normal, 40)
}

func TestBuildCalendarNoNormalDayUsesCandidate(t *testing.T) {
	catalog := []FlightEvent{
		{Name: "Headwinds", ChanceMax: 1000000, Duration: 1},
	}
	days, err := BuildCalendar(7, 10, catalog)
	require.NoError(t, err)
	for _, name := range days {
		require.Equal(t, "Headwinds", name)
	}
}

func TestBuildCalendarDurationCarriesOver(t *testing.T) {
	// A single always-hitting event with a 3-day duration fills the
	// whole calendar in unbroken runs of itself.
	catalog := []FlightEvent{
		{Name: "Customs Strike", ChanceMax: 1, Duration: 3},
	}
	days, err := BuildCalendar(11, 9, catalog)
	require.NoError(t, err)
	for _, name := range days {
		require.Equal(t, "Customs Strike", name)
	}
}

func TestBuildCalendarZeroChanceRow(t *testing.T) {
	// A chance_max of zero can come straight out of the catalog table.
	// The roll bound clamps to one and the row can never hit.
	catalog := []FlightEvent{
		{Name: "Normal Day", ChanceMax: 1, Duration: 1},
		{Name: "Broken Row", ChanceMax: 0, Duration: 1},
	}
	days, err := BuildCalendar(42, 100, catalog)
	require.NoError(t, err)
	require.Len(t, days, 100)
	for _, name := range days {
		require.Equal(t, "Normal Day", name)
	}
}

func TestBuildCalendarZeroChanceOnlyRow(t *testing.T) {
	catalog := []FlightEvent{
		{Name: "Broken Row", ChanceMax: 0, Duration: 1},
	}
	days, err := BuildCalendar(42, 10, catalog)
	require.NoError(t, err)
	require.Len(t, days, 10)
}

func TestBuildCalendarMinimumDuration(t *testing.T) {
	catalog := []FlightEvent{
		{Name: "Normal Day", ChanceMax: 1, Duration: 0},
	}
	days, err := BuildCalendar(3, 5, catalog)
	require.NoError(t, err)
	require.Len(t, days, 5)
}
