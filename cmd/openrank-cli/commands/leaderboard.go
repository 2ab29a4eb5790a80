package commands

import (
	"fmt"
	"os"

	"github.com/aravhawk/openrank/internal/scrapers/homeaccess"
	"github.com/aravhawk/openrank/internal/service"
	"github.com/aravhawk/openrank/internal/store"
	"github.com/aravhawk/openrank/internal/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var leaderboardData *string

func init() {
	leaderboardData = leaderboardCmd.Flags().String(
		"data",
		"data/students.json",
		"The record store file to read.",
	)
	rootCmd.AddCommand(leaderboardCmd)
}

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard [--data <path/to/students.json>]",
	Short: "Render the stored leaderboard as a table.",
	Run: func(cmd *cobra.Command, args []string) {
		tel := telemetry.SlogAPI{}

		st, err := store.NewFileStore(*leaderboardData, tel)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		svc := service.NewService(st, homeaccess.NewScraper(tel), nil, tel)

		students, err := svc.Leaderboard(cmd.Context())
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"#", "Student", "District", "Weighted GPA", "Last Updated"})
		for i, s := range students {
			name := s.Name
			if name == "" {
				name = s.Username
			}
			gpa := "—"
			if s.GPA != nil {
				gpa = fmt.Sprintf("%.2f", *s.GPA)
			}
			updated := "Never"
			if s.LastUpdated != nil {
				updated = s.LastUpdated.Local().Format("Jan 02, 2006 3:04 PM")
			}
			t.AppendRow(table.Row{i + 1, name, s.District, gpa, updated})
		}
		t.Render()
	},
}
