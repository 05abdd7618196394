package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "passes",
	Short: "Festival passes microservice",
	Long:  "A festival passes microservice that reconciles gateway payments and issues exactly one QR pass per paid order.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
