package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

var (
	tokenUserId string
	tokenRole   string
)

func init() {
	tokenCmd.Flags().StringVar(&tokenUserId, "user", "", "id of the user")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(model.UserRoleAdmin), "role put in the token")
	_ = tokenCmd.MarkFlagRequired("user")
	RootCmd.AddCommand(tokenCmd)
}

// Tokens for operators and scripts, no database access
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issues an API token",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		role := model.UserRole(tokenRole)
		switch role {
		case model.UserRoleClient, model.UserRoleFreelancer, model.UserRoleAdmin:
		default:
			return fmt.Errorf("unknown role: %s", tokenRole)
		}

		signed, claims, err := auth.NewTokens(conf).Issue(tokenUserId, role)
		if err != nil {
			return
		}

		fmt.Fprintln(cmd.OutOrStdout(), signed)
		fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", claims.ExpiresAt)
		return
	},
}
