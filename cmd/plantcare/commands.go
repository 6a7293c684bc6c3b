package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"plant-care/internal/model"
	"plant-care/internal/service"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Run the daily reminder once and print the batch to the log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		engine := a.startEngine(service.NewLogNotifier(), nil)

		result, err := engine.HandleDailyTrigger(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		switch {
		case result.Paused:
			fmt.Fprintln(out, "reminders are paused")
		case result.Due == 0:
			fmt.Fprintln(out, "nothing is due")
		default:
			fmt.Fprintf(out, "posted %d of %d due schedules\n", result.Posted, result.Due)
		}
		return nil
	},
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge care recommendations for a plant into its schedules",
	Long: `Reads a JSON array of recommendations, for example
[{"care_type":"water","frequency_days":7,"notes":"bright light"}]
from --file, or from stdin when --file is "-".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		plantID, _ := cmd.Flags().GetString("plant")
		file, _ := cmd.Flags().GetString("file")
		if plantID == "" || file == "" {
			return fmt.Errorf("--plant and --file are required")
		}

		recs, err := readRecommendations(cmd.InOrStdin(), file)
		if err != nil {
			return err
		}

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		engine := a.startEngine(service.NewLogNotifier(), nil)

		result, err := engine.CreateSchedulesFromRecommendations(cmd.Context(), plantID, recs)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printSchedules(out, "created", result.Created)
		printSchedules(out, "updated", result.Updated)
		printSchedules(out, "needs confirmation", result.NeedsConfirmation)
		for _, f := range result.Failures {
			fmt.Fprintf(out, "failed  %-10s %s\n", f.CareType, f.Error)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().String("plant", "", "plant id")
	reconcileCmd.Flags().String("file", "", `recommendations JSON file, "-" for stdin`)
}

func readRecommendations(stdin io.Reader, file string) ([]service.Recommendation, error) {
	var data []byte
	var err error
	if file == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("read recommendations: %w", err)
	}

	var recs []service.Recommendation
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("parse recommendations: %w", err)
	}
	return recs, nil
}

func printSchedules(out io.Writer, label string, schedules []model.CareSchedule) {
	for _, s := range schedules {
		fmt.Fprintf(out, "%-7s %-10s every %d days, next %s  %s\n",
			label, s.CareType, s.FrequencyDays, s.NextDue.In(cfg.Location).Format("2006-01-02 15:04"), s.ID)
	}
}

var plantCmd = &cobra.Command{
	Use:   "plant",
	Short: "Manage plants",
}

var plantAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a plant",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		species, _ := cmd.Flags().GetString("species")

		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		engine := a.startEngine(service.NewLogNotifier(), nil)

		plant, err := engine.CreatePlant(cmd.Context(), strings.Join(args, " "), species)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), plant.ID)
		return nil
	},
}

var plantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plants and their care schedules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		engine := a.startEngine(service.NewLogNotifier(), nil)

		plants, err := engine.ListPlants(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(plants) == 0 {
			fmt.Fprintln(out, "no plants")
			return nil
		}
		for _, p := range plants {
			fmt.Fprintf(out, "%s  %s\n", p.ID, p.DisplayName())
			schedules, err := engine.SchedulesForPlant(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			for _, s := range schedules {
				state := "on"
				if !s.IsEnabled {
					state = "off"
				}
				fmt.Fprintf(out, "    %-10s every %d days, next %s [%s]\n",
					s.CareType, s.FrequencyDays, s.NextDue.In(cfg.Location).Format("2006-01-02"), state)
			}
		}
		return nil
	},
}

var plantDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a plant with its schedules and history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()
		engine := a.startEngine(service.NewLogNotifier(), nil)

		if err := engine.DeletePlant(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
		return nil
	},
}

func init() {
	plantAddCmd.Flags().String("species", "", "botanical name")
	plantCmd.AddCommand(plantAddCmd, plantListCmd, plantDeleteCmd)
}
