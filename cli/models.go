package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccoin-network/pouw/model"
)

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [register|view|list|infer]",
		Short: "Models manager",
		Long:  `Register, view and query models.`,
	}

	registerCmd := &cobra.Command{
		Use:   "register <config.json>",
		Short: "Register model",
		Long: `Register a model from a JSON configuration file.

Example config:
  {
    "model_id": "mnist_mlp",
    "architecture": "mlp",
    "task_type": "classification",
    "input_shape": [784],
    "output_shape": [10],
    "hyperparameters": {"hidden_sizes": [256, 128]}
  }`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			var cfg model.Config
			if err := json.Unmarshal(data, &cfg); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			registered, err := psdk.RegisterModel(cmd.Context(), cfg)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, registered)
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View model",
		Long:  `View model configuration.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cfg, err := psdk.GetModel(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, cfg)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List models",
		Long:  `List registered model ids.`,
		Run: func(cmd *cobra.Command, args []string) {
			models, err := psdk.ListModels(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, models)
		},
	}

	inferCmd := &cobra.Command{
		Use:   "infer <id> <inputs.json>",
		Short: "Run inference",
		Long:  `Run a forward pass with inputs read from a JSON file holding a 2D array.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 2 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			data, err := os.ReadFile(args[1])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			var inputs [][]float64
			if err := json.Unmarshal(data, &inputs); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			inference, err := psdk.Infer(cmd.Context(), args[0], inputs)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, inference)
		},
	}

	cmd.AddCommand(registerCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(inferCmd)

	return cmd
}

func NewHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Coordinator health",
		Long:  `Show coordinator status, loaded models and queue counters.`,
		Run: func(cmd *cobra.Command, args []string) {
			health, err := psdk.Health(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, health)
		},
	}
}
