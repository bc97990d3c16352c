package cli

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	pouw "github.com/ccoin-network/pouw"
)

var configPath = "config.toml"

// NewProvisionCmd generates broker credentials for the coordinator and
// a worker and writes them to a shared TOML config file.
func NewProvisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision broker credentials",
		Long:  `Generate coordinator and worker broker credentials and write them to a config file.`,
		Run: func(cmd *cobra.Command, args []string) {
			channelID := uuid.NewString()
			cfg := pouw.Config{
				Coordinator: pouw.CoordinatorConfig{
					ClientID:  uuid.NewString(),
					ClientKey: uuid.NewString(),
					ChannelID: channelID,
				},
				Worker: pouw.WorkerConfig{
					ClientID:  uuid.NewString(),
					ClientKey: uuid.NewString(),
					ChannelID: channelID,
				},
			}

			if err := cfg.Save(configPath); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, cfg)
		},
	}

	cmd.Flags().StringVar(
		&configPath,
		"config-file",
		configPath,
		"Where to write the generated config",
	)

	return cmd
}
