package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccoin-network/pouw/pkg/sdk"
	"github.com/ccoin-network/pouw/task"
)

var (
	defOffset uint64 = 0
	defLimit  uint64 = 10

	deadlineIn time.Duration
	reward     uint64
)

var psdk sdk.SDK

func SetSDK(s sdk.SDK) {
	psdk = s
}

func NewTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks [create|view|list|claim|release|compute|result|verify]",
		Short: "Tasks manager",
		Long:  `Create, view, list, claim, release and compute training tasks.`,
	}

	createCmd := &cobra.Command{
		Use:   "create <model_id> <dataset_ref> <batch_start> <batch_end>",
		Short: "Create task",
		Long: `Create a training task over a dataset batch range.

Examples:
  # One batch of 32 samples, claimable for an hour
  pouw-cli tasks create mnist_mlp bafy-train-0001 0 32 --deadline-in=1h --reward=50`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 4 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			start, err := strconv.Atoi(args[2])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			end, err := strconv.Atoi(args[3])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			t := task.Task{
				ModelID:    args[0],
				DatasetRef: args[1],
				BatchStart: start,
				BatchEnd:   end,
				Reward:     reward,
			}
			if deadlineIn > 0 {
				t.Deadline = time.Now().Add(deadlineIn).Unix()
			}

			created, err := psdk.CreateTask(cmd.Context(), t)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, created)
		},
	}

	createCmd.Flags().DurationVar(
		&deadlineIn,
		"deadline-in",
		0,
		"How long the task stays claimable (e.g. 1h); zero means no deadline",
	)

	createCmd.Flags().Uint64Var(
		&reward,
		"reward",
		0,
		"Reward offered for a verified result",
	)

	viewCmd := &cobra.Command{
		Use:   "view <id>",
		Short: "View task",
		Long:  `View task.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			t, err := psdk.GetTask(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, t)
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List claimable tasks",
		Long:  `List claimable tasks.`,
		Run: func(cmd *cobra.Command, args []string) {
			page, err := psdk.ListTasks(cmd.Context(), defOffset, defLimit)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	claimCmd := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim task",
		Long:  `Claim a pending task for exclusive computation.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			t, err := psdk.ClaimTask(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, t)
		},
	}

	releaseCmd := &cobra.Command{
		Use:   "release <id>",
		Short: "Release task",
		Long:  `Give a claimed task back to the pending pool.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := psdk.ReleaseTask(cmd.Context(), args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	}

	computeCmd := &cobra.Command{
		Use:   "compute <id>",
		Short: "Compute gradients",
		Long:  `Run the gradient computation for a claimed task on the coordinator.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			result, err := psdk.ComputeGradients(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, result)
		},
	}

	resultCmd := &cobra.Command{
		Use:   "result <id>",
		Short: "View submitted result",
		Long:  `View the submitted result for a task.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			result, err := psdk.GetResult(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, result)
		},
	}

	verifyCmd := &cobra.Command{
		Use:   "verify <id>",
		Short: "Verify submitted result",
		Long:  `Check the commitment proof of a submitted result.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			result, err := psdk.GetResult(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			valid, err := psdk.VerifyResult(cmd.Context(), result)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, map[string]bool{"valid": valid})
		},
	}

	cmd.AddCommand(createCmd)
	cmd.AddCommand(viewCmd)
	cmd.AddCommand(listCmd)
	cmd.AddCommand(claimCmd)
	cmd.AddCommand(releaseCmd)
	cmd.AddCommand(computeCmd)
	cmd.AddCommand(resultCmd)
	cmd.AddCommand(verifyCmd)

	cmd.PersistentFlags().Uint64VarP(
		&defOffset,
		"offset",
		"o",
		defOffset,
		"Offset",
	)

	cmd.PersistentFlags().Uint64VarP(
		&defLimit,
		"limit",
		"l",
		defLimit,
		"Limit",
	)

	return cmd
}
