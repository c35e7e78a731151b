package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "orange-money",
	Short: "Orange Money payment service",
	Long:  "A payment service integrating e-commerce orders with the Orange Money mobile-money gateway: checkout initiation, IPN handling, and order lifecycle jobs.",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
