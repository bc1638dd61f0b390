package cmd

import (
	"github.com/spf13/cobra"
	"github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func init() {
	RootCmd.AddCommand(migrateCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Applies pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		return model.Migrate(applicationCtx, conf)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished migrate command")
		return
	},
}
