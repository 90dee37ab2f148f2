package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "skyhaul/internal/cli"
	"skyhaul/internal/config"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "sky",
		Short:        "Skyhaul cargo airline CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newNewCmd(&apiBase),
		newLoadCmd(&apiBase),
		newForgetCmd(),
		newStatusCmd(&apiBase),
		newAdvanceCmd(&apiBase),
		newFFCmd(&apiBase),
		newFleetCmd(&apiBase),
		newOffersCmd(&apiBase),
		newAcceptCmd(&apiBase),
		newRepairCmd(&apiBase),
		newShopCmd(&apiBase),
		newBuyCmd(&apiBase),
		newMarketCmd(&apiBase),
		newBuyUsedCmd(&apiBase),
		newUpgradeCmd(&apiBase),
		newBasesCmd(&apiBase),
		newBuyBaseCmd(&apiBase),
		newUpgradeBaseCmd(&apiBase),
		newLogCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func activeSave() (cl.Session, error) {
	sess, err := cl.LoadSession()
	if err != nil {
		return cl.Session{}, fmt.Errorf("no active game: %w", err)
	}
	return sess, nil
}

func newNewCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start a new airline",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := promptRequired("Company founder name")
			if err != nil {
				return err
			}
			difficulty, err := promptChoice("Difficulty", []string{"easy", "normal", "hard"}, "normal")
			if err != nil {
				return err
			}
			renderBaseChoices()
			base, err := promptChoice("Home base", []string{"EFHK", "LFPG", "KJFK"}, "EFHK")
			if err != nil {
				return err
			}
			seedText, err := promptOptional("Seed (blank for random)")
			if err != nil {
				return err
			}
			var seed int64
			if seedText != "" {
				seed, err = strconv.ParseInt(seedText, 10, 64)
				if err != nil {
					return fmt.Errorf("seed must be an integer")
				}
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.NewGame(ctx, name, difficulty, base, seed, uuid.NewString())
			if err != nil {
				return err
			}
			state, err := decodeGameState(out)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{SaveID: state.SaveID, PlayerName: state.PlayerName}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Airline founded. Save #%d, seed %d.", state.SaveID, state.Seed))
			renderGameState(state)
			return nil
		},
	}
}

func newLoadCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "load <save_id>",
		Short: "Resume an existing save",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			saveID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || saveID <= 0 {
				return fmt.Errorf("save_id must be a positive integer")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.GameState(ctx, saveID)
			if err != nil {
				return err
			}
			state, err := decodeGameState(out)
			if err != nil {
				return err
			}
			if err := cl.SaveSession(cl.Session{SaveID: state.SaveID, PlayerName: state.PlayerName}); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Loaded save #%d.", state.SaveID))
			renderGameState(state)
			return nil
		},
	}
}

func newForgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "forget",
		Short: "Clear the local session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cl.ClearSession(); err != nil {
				return err
			}
			printSuccess("Session cleared.")
			return nil
		},
	}
}

func newStatusCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the company dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).GameState(ctx, sess.SaveID)
			if err != nil {
				return err
			}
			state, err := decodeGameState(out)
			if err != nil {
				return err
			}
			renderGameState(state)
			return nil
		},
	}
}

func newAdvanceCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Advance the simulation by one day",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).AdvanceDay(ctx, sess.SaveID)
			if err != nil {
				return err
			}
			return renderDaySummary(out)
		},
	}
}

func newFFCmd(apiBase *string) *cobra.Command {
	var maxDays int
	var plain bool
	cmd := &cobra.Command{
		Use:   "ff",
		Short: "Fast-forward until a flight lands or the game ends",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			client := newClient(apiBase)
			if plain {
				ctx, cancel := context.WithTimeout(cmd.Context(), 120*time.Second)
				defer cancel()
				out, err := client.FastForward(ctx, sess.SaveID, maxDays)
				if err != nil {
					return err
				}
				return renderFastForward(out)
			}
			return runFastForwardView(cmd.Context(), client, sess.SaveID, maxDays)
		},
	}
	cmd.Flags().IntVar(&maxDays, "max-days", 30, "hard cap on simulated days")
	cmd.Flags().BoolVar(&plain, "plain", false, "skip the live view")
	return cmd
}

func newFleetCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "fleet",
		Short: "List your aircraft",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Fleet(ctx, sess.SaveID)
			if err != nil {
				return err
			}
			return renderFleet(out)
		},
	}
}

func newOffersCmd(apiBase *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "offers <aircraft_id>",
		Short: "Generate delivery offers for an aircraft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			aircraftID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("aircraft_id must be an integer")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Offers(ctx, sess.SaveID, aircraftID, count)
			if err != nil {
				return err
			}
			return renderOffers(out)
		},
	}
	cmd.Flags().IntVar(&count, "count", 3, "number of offers to generate")
	return cmd
}

func newAcceptCmd(apiBase *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "accept <aircraft_id>",
		Short: "Pick and accept a delivery offer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			aircraftID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("aircraft_id must be an integer")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			client := newClient(apiBase)
			out, err := client.Offers(ctx, sess.SaveID, aircraftID, count)
			if err != nil {
				return err
			}
			offers, err := decodeOffers(out)
			if err != nil {
				return err
			}
			if len(offers) == 0 {
				printWarn("No offers available right now.")
				return nil
			}
			renderOfferTable(offers)
			pickText, err := promptRequired(fmt.Sprintf("Accept which offer (1-%d)", len(offers)))
			if err != nil {
				return err
			}
			pick, err := strconv.Atoi(pickText)
			if err != nil || pick < 1 || pick > len(offers) {
				return fmt.Errorf("pick a number between 1 and %d", len(offers))
			}
			result, err := client.AcceptOffer(ctx, sess.SaveID, aircraftID, offerToMap(offers[pick-1]), uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Contract #%v started to %s.", result["contract_id"], offers[pick-1].DestinationIdent))
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 3, "number of offers to choose from")
	return cmd
}

func newRepairCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "repair <aircraft_id>|all",
		Short: "Repair one aircraft, or every idle one you can afford",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := newClient(apiBase)

			if strings.EqualFold(args[0], "all") {
				fleetRaw, err := client.Fleet(ctx, sess.SaveID)
				if err != nil {
					return err
				}
				fleet, err := decodeFleet(fleetRaw)
				if err != nil {
					return err
				}
				var ids []int64
				for _, ac := range fleet {
					ids = append(ids, ac.AircraftID)
				}
				out, err := client.RepairMany(ctx, sess.SaveID, ids)
				if err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("Repairs complete. Total cost %v.", out["total_cost"]))
				return nil
			}

			aircraftID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("aircraft_id must be an integer or 'all'")
			}
			out, err := client.Repair(ctx, sess.SaveID, aircraftID)
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Aircraft repaired for %v.", out["cost"]))
			return nil
		},
	}
}

func newShopCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "shop",
		Short: "Browse the factory-new aircraft catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Models(ctx, sess.SaveID)
			if err != nil {
				return err
			}
			return renderModels(out)
		},
	}
}

func newBuyCmd(apiBase *string) *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "buy <model_code> <airport_ident>",
		Short: "Buy a factory-new aircraft, delivered to an owned base",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).PurchaseAircraft(ctx, sess.SaveID, args[0], args[1], nickname, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Purchased %v, registration %v.", out["model_code"], out["registration"]))
			return nil
		},
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "optional aircraft nickname")
	return cmd
}

func newMarketCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "market",
		Short: "Browse used aircraft listings",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Market(ctx, sess.SaveID)
			if err != nil {
				return err
			}
			return renderMarket(out)
		},
	}
}

func newBuyUsedCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buyused <market_id> <airport_ident>",
		Short: "Buy a used aircraft from the market",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			marketID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("market_id must be an integer")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BuyUsed(ctx, sess.SaveID, marketID, args[1], uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Purchased used %v, registration %v, condition %v%%.",
				out["model_code"], out["registration"], out["condition_percent"]))
			return nil
		},
	}
}

func newUpgradeCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade <aircraft_id>",
		Short: "Install the next eco upgrade on an aircraft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			aircraftID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("aircraft_id must be an integer")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).UpgradeAircraft(ctx, sess.SaveID, aircraftID, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Eco upgrade installed: level %v for %v.", out["level"], out["cost"]))
			return nil
		},
	}
}

func newBasesCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "bases",
		Short: "List owned bases",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).Bases(ctx, sess.SaveID)
			if err != nil {
				return err
			}
			return renderBases(out)
		},
	}
}

func newBuyBaseCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "buybase <airport_ident>",
		Short: "Buy an expansion base at an airport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).BuyBase(ctx, sess.SaveID, args[0], uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Base %v acquired for %v.", out["base_ident"], out["purchase_cost"]))
			return nil
		},
	}
}

func newUpgradeBaseCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "upgradebase <base_id>",
		Short: "Upgrade a base to the next tier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			baseID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("base_id must be an integer")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).UpgradeBase(ctx, sess.SaveID, baseID, uuid.NewString())
			if err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Base upgraded to %v for %v.", out["tier"], out["cost"]))
			return nil
		},
	}
}

func newLogCmd(apiBase *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the company event log",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := activeSave()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out, err := newClient(apiBase).EventLog(ctx, sess.SaveID, limit)
			if err != nil {
				return err
			}
			return renderEventLog(out)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 30, "number of entries to show")
	return cmd
}
