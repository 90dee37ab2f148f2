package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"skyhaul/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptOptional(label string) (string, error) {
	fmt.Printf("%s: ", label)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, fallback string) (string, error) {
	text, err := promptOptional(fmt.Sprintf("%s [%s] (default %s)", label, strings.Join(options, "/"), fallback))
	if err != nil {
		return "", err
	}
	if text == "" {
		return fallback, nil
	}
	for _, opt := range options {
		if strings.EqualFold(text, opt) {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s", label, strings.Join(options, ", "))
}

func decodeInto[T any](raw map[string]any) (T, error) {
	var out T
	body, err := json.Marshal(raw)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, err
	}
	return out, nil
}

func decodeGameState(raw map[string]any) (game.GameState, error) {
	return decodeInto[game.GameState](raw)
}

type fleetPayload struct {
	Fleet []game.Aircraft `json:"fleet"`
}

type offersPayload struct {
	Offers []game.Offer `json:"offers"`
}

type modelsPayload struct {
	Models  []game.AircraftModel `json:"models"`
	MaxTier string               `json:"max_tier"`
}

type marketPayload struct {
	Listings []game.MarketListing `json:"listings"`
}

type basesPayload struct {
	Bases []game.OwnedBase `json:"bases"`
}

type logPayload struct {
	Log []game.EventLogEntry `json:"log"`
}

func decodeFleet(raw map[string]any) ([]game.Aircraft, error) {
	p, err := decodeInto[fleetPayload](raw)
	return p.Fleet, err
}

func decodeOffers(raw map[string]any) ([]game.Offer, error) {
	p, err := decodeInto[offersPayload](raw)
	return p.Offers, err
}

func offerToMap(o game.Offer) map[string]any {
	return map[string]any{
		"destination_ident": o.DestinationIdent,
		"destination_name":  o.DestinationName,
		"distance_km":       o.DistanceKm,
		"payload_kg":        o.PayloadKg,
		"trips":             o.Trips,
		"total_days":        o.TotalDays,
		"deadline_day":      o.DeadlineDay,
		"reward":            o.Reward,
		"penalty":           o.Penalty,
		"delay_minutes":     o.DelayMinutes,
	}
}

func renderBaseChoices() {
	accent.Println("\nStarting bases")
	fmt.Println("  EFHK  Helsinki-Vantaa          30% of starting cash")
	fmt.Println("  LFPG  Paris Charles de Gaulle  50% of starting cash")
	fmt.Println("  KJFK  New York JFK             70% of starting cash")
	fmt.Println()
}

func renderGameState(state game.GameState) {
	accent.Printf("\n== %s (save #%d) ==\n", state.PlayerName, state.SaveID)
	fmt.Printf("Day:        %d / %d\n", state.CurrentDay, game.SurvivalTargetDays)
	fmt.Printf("Cash:       %s\n", state.Cash.StringFixed(2))
	fmt.Printf("Status:     %s\n", colorizeStatus(state.Status))
	fmt.Printf("Difficulty: %s\n", state.Difficulty)
	fmt.Printf("Fleet:      %d aircraft, %d bases\n", state.Stats.FleetSize, state.Stats.BasesOwned)
	fmt.Printf("Contracts:  %d completed, %d late, %s earned\n",
		state.Stats.ContractsCompleted, state.Stats.ContractsLate, state.Stats.TotalEarned.StringFixed(2))
	fmt.Println()
}

func colorizeStatus(status string) string {
	switch status {
	case game.SaveActive:
		return success.Sprint(status)
	case game.SaveVictory:
		return accent.Sprint(status)
	case game.SaveBankrupt:
		return danger.Sprint(status)
	default:
		return status
	}
}

func renderDaySummary(raw map[string]any) error {
	sum, err := decodeInto[game.DaySummary](raw)
	if err != nil {
		return err
	}
	accent.Printf("\n== Day %d ==\n", sum.Day)
	if sum.RTBStarted > 0 {
		printInfo(fmt.Sprintf("%d stranded aircraft started flying home.", sum.RTBStarted))
	}
	if len(sum.Arrivals) == 0 {
		printInfo("No arrivals.")
	}
	for _, a := range sum.Arrivals {
		if a.ReturnToBase {
			fmt.Printf("  %s returned to base at %s\n", a.Registration, a.Airport)
			continue
		}
		line := fmt.Sprintf("  %s delivered at %s, earned %s", a.Registration, a.Airport, a.Earned.StringFixed(2))
		if !a.OnTime {
			line += warn.Sprint(" (late)")
		}
		if a.EventName != "" {
			line += fmt.Sprintf(" [%s]", a.EventName)
		}
		fmt.Println(line)
		if a.LostPackages > 0 {
			printWarn(fmt.Sprintf("    lost %d kg of cargo", a.LostPackages))
		}
		if a.DamageDealt > 0 {
			printWarn(fmt.Sprintf("    airframe took %d%% damage", a.DamageDealt))
		}
	}
	if sum.TotalEarned.IsPositive() {
		success.Printf("Earned %s today.\n", sum.TotalEarned.StringFixed(2))
	}
	if sum.Billing != nil {
		if sum.Billing.Defaulted {
			danger.Printf("Monthly bill of %s could not be paid. The company is bankrupt.\n", sum.Billing.Amount.StringFixed(2))
		} else {
			printWarn(fmt.Sprintf("Monthly bill paid: %s", sum.Billing.Amount.StringFixed(2)))
		}
	}
	if sum.Status != game.SaveActive {
		fmt.Printf("Status: %s\n", colorizeStatus(sum.Status))
	}
	fmt.Println()
	return nil
}

func renderFastForward(raw map[string]any) error {
	sum, err := decodeInto[game.FastForwardSummary](raw)
	if err != nil {
		return err
	}
	renderFastForwardSummary(sum)
	return nil
}

func renderFastForwardSummary(sum game.FastForwardSummary) {
	accent.Printf("\n== Fast-forward: %d days to day %d ==\n", len(sum.Days), sum.FinalDay)
	fmt.Printf("Stopped on: %s\n", sum.StopReason)
	if sum.TotalEarned.IsPositive() {
		success.Printf("Earned %s along the way.\n", sum.TotalEarned.StringFixed(2))
	}
	for _, day := range sum.Days {
		for _, a := range day.Arrivals {
			if a.ReturnToBase {
				fmt.Printf("  day %d: %s returned to %s\n", day.Day, a.Registration, a.Airport)
			} else {
				fmt.Printf("  day %d: %s delivered at %s for %s\n", day.Day, a.Registration, a.Airport, a.Earned.StringFixed(2))
			}
		}
		if day.Billing != nil && day.Billing.Defaulted {
			danger.Printf("  day %d: bill of %s defaulted\n", day.Day, day.Billing.Amount.StringFixed(2))
		}
	}
	if sum.Status != game.SaveActive {
		fmt.Printf("Status: %s\n", colorizeStatus(sum.Status))
	}
	fmt.Println()
}

func renderFleet(raw map[string]any) error {
	fleet, err := decodeFleet(raw)
	if err != nil {
		return err
	}
	accent.Println("\nFleet")
	if len(fleet) == 0 {
		printInfo("No aircraft.")
		return nil
	}
	fmt.Printf("%-5s %-10s %-24s %-8s %-6s %-9s %5s %6s %8s\n",
		"ID", "REG", "MODEL", "AT", "COND", "STATUS", "ECO", "LVL", "HOURS")
	for _, ac := range fleet {
		cond := fmt.Sprintf("%d%%", ac.ConditionPercent)
		if ac.ConditionPercent < 50 {
			cond = danger.Sprint(cond)
		}
		fmt.Printf("%-5d %-10s %-24s %-8s %-6s %-9s %5s %6d %8d\n",
			ac.AircraftID, ac.Registration, truncate(ac.ModelName, 24), ac.CurrentAirport,
			cond, ac.Status, ac.EffectiveEco.StringFixed(2), ac.EcoLevel, ac.HoursFlown)
	}
	fmt.Println()
	return nil
}

func renderOffers(raw map[string]any) error {
	offers, err := decodeOffers(raw)
	if err != nil {
		return err
	}
	if len(offers) == 0 {
		printWarn("No offers available right now.")
		return nil
	}
	renderOfferTable(offers)
	return nil
}

func renderOfferTable(offers []game.Offer) {
	accent.Println("\nDelivery offers")
	fmt.Printf("%-3s %-6s %-26s %9s %9s %6s %5s %9s %12s %12s\n",
		"#", "DEST", "NAME", "DIST KM", "PAYLOAD", "TRIPS", "DAYS", "DEADLINE", "REWARD", "PENALTY")
	for i, o := range offers {
		fmt.Printf("%-3d %-6s %-26s %9.1f %9d %6d %5d %9d %12s %12s\n",
			i+1, o.DestinationIdent, truncate(o.DestinationName, 26), o.DistanceKm, o.PayloadKg,
			o.Trips, o.TotalDays, o.DeadlineDay, o.Reward.StringFixed(2), o.Penalty.StringFixed(2))
		if o.EventName != "" {
			printWarn(fmt.Sprintf("    %s: expect %d minutes of delay", o.EventName, o.DelayMinutes))
		}
	}
	fmt.Println()
}

func renderModels(raw map[string]any) error {
	p, err := decodeInto[modelsPayload](raw)
	if err != nil {
		return err
	}
	accent.Printf("\nAircraft catalog (your best base tier: %s)\n", p.MaxTier)
	fmt.Printf("%-8s %-18s %-22s %12s %8s %8s %6s %-7s %5s\n",
		"CODE", "MAKER", "MODEL", "PRICE", "CARGO", "RANGE", "SPEED", "TIER", "ECO")
	for _, m := range p.Models {
		if m.Category == "STARTER" {
			continue
		}
		fmt.Printf("%-8s %-18s %-22s %12s %8d %8d %6d %-7s %5s\n",
			m.ModelCode, truncate(m.Manufacturer, 18), truncate(m.ModelName, 22),
			m.PurchasePrice.StringFixed(2), m.CargoKg, m.RangeKm, m.CruiseSpeedKts,
			m.Category, m.EcoMultiplier.StringFixed(2))
	}
	fmt.Println()
	return nil
}

func renderMarket(raw map[string]any) error {
	p, err := decodeInto[marketPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\nUsed aircraft market")
	if len(p.Listings) == 0 {
		printInfo("No listings right now. The market restocks periodically.")
		return nil
	}
	fmt.Printf("%-5s %-8s %-24s %-7s %6s %12s %8s\n",
		"ID", "CODE", "MODEL", "TIER", "COND", "PRICE", "LISTED")
	for _, l := range p.Listings {
		fmt.Printf("%-5d %-8s %-24s %-7s %5d%% %12s %8d\n",
			l.MarketID, l.ModelCode, truncate(l.ModelName, 24), l.Category,
			l.ConditionPercent, l.Price.StringFixed(2), l.ListedDay)
	}
	fmt.Println()
	return nil
}

func renderBases(raw map[string]any) error {
	p, err := decodeInto[basesPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\nBases")
	fmt.Printf("%-5s %-6s %-28s %-7s %4s %10s %12s\n",
		"ID", "IDENT", "NAME", "TIER", "HQ", "DAY", "COST")
	for _, b := range p.Bases {
		hq := ""
		if b.IsHQ {
			hq = "HQ"
		}
		fmt.Printf("%-5d %-6s %-28s %-7s %4s %10d %12s\n",
			b.BaseID, b.Ident, truncate(b.Name, 28), b.Tier, hq, b.AcquiredDay, b.PurchaseCost.StringFixed(2))
	}
	fmt.Println()
	return nil
}

func renderEventLog(raw map[string]any) error {
	p, err := decodeInto[logPayload](raw)
	if err != nil {
		return err
	}
	accent.Println("\nEvent log")
	if len(p.Log) == 0 {
		printInfo("Nothing logged yet.")
		return nil
	}
	for _, e := range p.Log {
		fmt.Printf("  day %-4d %-24s %s\n", e.Day, e.EventType, e.Details)
	}
	fmt.Println()
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
