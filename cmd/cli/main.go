package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/ccoin-network/pouw/cli"
	"github.com/ccoin-network/pouw/pkg/sdk"
)

var (
	coordinatorURL  = "http://localhost:7070"
	tlsVerification = false
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pouw-cli",
		Short: "PoUW CLI",
		Long:  `pouw-cli is a command line interface for interacting with the PoUW coordinator.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			s := sdk.NewSDK(sdk.Config{
				CoordinatorURL:  coordinatorURL,
				TLSVerification: tlsVerification,
			})
			cli.SetSDK(s)
		},
	}

	rootCmd.PersistentFlags().StringVarP(
		&coordinatorURL,
		"coordinator-url",
		"c",
		coordinatorURL,
		"Coordinator URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&tlsVerification,
		"tls-verification",
		"v",
		tlsVerification,
		"TLS Verification",
	)

	rootCmd.AddCommand(cli.NewTasksCmd())
	rootCmd.AddCommand(cli.NewModelsCmd())
	rootCmd.AddCommand(cli.NewHealthCmd())
	rootCmd.AddCommand(cli.NewProvisionCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
