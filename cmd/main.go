package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "focusonmeal",
	Short: "FocusOnMeal web front-end",
	Long:  "focusonmeal serves the safety-alert, account and meal-plan pages and proxies the rest to the backend.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
