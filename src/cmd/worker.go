package cmd

import (
	"github.com/spf13/cobra"
	"github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/worker"
)

func init() {
	RootCmd.AddCommand(workerCmd)
}

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Delivers the outbox, expires jobs and reconciles escrows with the chain",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := worker.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished worker command")
		applicationCtxCancel()
		return
	},
}
