package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/commitguard/internal/cli/formatter"
	"github.com/alexanderramin/commitguard/internal/contract"
)

func newBootstrapCmd(a *App) *cobra.Command {
	var id, name string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the root identity (once per database)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			u, err := c.Users.Bootstrap(cmd.Context(), id, name)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromUser(u), func() string {
				return fmt.Sprintf("Created root %s (%s)\n", formatter.Bold(u.DisplayName), u.ID)
			})
		},
	}

	cmd.Flags().StringVar(&id, "id", "root", "Root user id")
	cmd.Flags().StringVar(&name, "name", "Root", "Root display name")
	return cmd
}

func newUserCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage the user directory",
	}
	cmd.AddCommand(newUserAddCmd(a), newUserListCmd(a))
	return cmd
}

func newUserAddCmd(a *App) *cobra.Command {
	var req contract.ProvisionUserRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Provision a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			u, err := req.ToUser()
			if err != nil {
				return err
			}
			if err := c.Users.Provision(ctx, caller, u); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromUser(u), func() string {
				return fmt.Sprintf("Added %s (%s) as %s\n", formatter.Bold(u.DisplayName), u.ID, formatter.RoleBadge(u.Role))
			})
		},
	}

	cmd.Flags().StringVar(&req.ID, "id", "", "User id")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "Display name")
	cmd.Flags().StringVar(&req.Role, "role", "member", "Role: admin, project_leader, team_lead, member")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the users visible to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			users, err := c.Users.List(ctx, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromUsers(users), func() string {
				return formatter.FormatUsers(users)
			})
		},
	}
}
