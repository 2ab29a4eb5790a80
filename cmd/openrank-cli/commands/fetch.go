package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aravhawk/openrank/internal/scrapers/homeaccess"
	"github.com/aravhawk/openrank/internal/service"
	"github.com/aravhawk/openrank/internal/telemetry"

	"github.com/spf13/cobra"
)

var fetchDistrict *string

func init() {
	fetchDistrict = fetchCmd.Flags().String(
		"district",
		homeaccess.DefaultDistrict,
		"The school district to log into.",
	)
	rootCmd.AddCommand(fetchCmd)
}

func prompt(reader *bufio.Reader, label string) (string, error) {
	fmt.Print(label)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--district <name>]",
	Short: "Log into the portal and print the weighted cumulative GPA.",
	Run: func(cmd *cobra.Command, args []string) {
		reader := bufio.NewReader(os.Stdin)
		username, err := prompt(reader, "Enter your HAC username: ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		password, err := prompt(reader, "Enter your HAC password: ")
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		scraper := homeaccess.NewScraper(telemetry.SlogAPI{})
		gpa, err := scraper.FetchGPA(ctx, *fetchDistrict, username, password)
		if err != nil {
			fmt.Fprintln(os.Stderr, service.UserMessage(err))
			os.Exit(1)
		}

		fmt.Printf("Weighted Cumulative GPA: %g\n", gpa)
	},
}
