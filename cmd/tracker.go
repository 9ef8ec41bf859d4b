package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bizassist/bizassist/internal/jobs"
)

var trackerCmd = &cobra.Command{
	Use:   "tracker",
	Short: "Manage tracked job applications",
}

var trackerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked applications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tracker, err := openTracker()
		if err != nil {
			return err
		}
		apps, err := tracker.List()
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("No applications tracked yet. Use `bizassist apply --track`.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDATE\tCOMPANY\tTITLE\tSTATUS\tMATCH")
		for _, a := range apps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", a.ID, a.Date, a.Company, a.Title, a.Status, a.MatchScore)
		}
		return w.Flush()
	},
}

var trackerStatusCmd = &cobra.Command{
	Use:   "status [id] [applied|interview|offer|rejected]",
	Short: "Update the status of an application",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, status := args[0], args[1]
		if !jobs.ValidStatus(status) {
			return fmt.Errorf("invalid status %q", status)
		}
		notes, _ := cmd.Flags().GetString("notes")
		tracker, err := openTracker()
		if err != nil {
			return err
		}
		app, err := tracker.Update(id, func(a *jobs.Application) {
			a.Status = status
			if notes != "" {
				a.Notes = notes
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s (%s, %s): %s\n", app.ID, app.Company, app.Title, app.Status)
		return nil
	},
}

func openTracker() (*jobs.Tracker, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return jobs.NewTracker(cfg.TrackerPath()), nil
}

func init() {
	trackerStatusCmd.Flags().String("notes", "", "replace the application notes")
	trackerCmd.AddCommand(trackerListCmd, trackerStatusCmd)
	rootCmd.AddCommand(trackerCmd)
}
