package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/commitguard/internal/cli/formatter"
	"github.com/alexanderramin/commitguard/internal/contract"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/service"
)

func newLockCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Engage, abort and finalize sync sessions",
	}
	cmd.AddCommand(
		newLockListCmd(a),
		newLockEngageCmd(a),
		newLockReleaseCmd(a, "abort", "Abort a session (holder, or an administrator as override)"),
		newLockReleaseCmd(a, "finalize", "Complete your own session"),
	)
	return cmd
}

func newLockListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active sync sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			locks, err := c.Locks.ListLocks(ctx, caller)
			if err != nil {
				return err
			}
			nodes, err := c.View.Nodes(ctx, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromLocks(locks), func() string {
				return formatter.FormatLocks(locks, nodes, a.now())
			})
		},
	}
}

func newLockEngageCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "engage NODE SUBNODE",
		Short: "Start a sync session on a sub-node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			n, err := resolveNode(ctx, c, caller, args[0])
			if err != nil {
				return err
			}
			sub, err := resolveSubNode(n, args[1])
			if err != nil {
				return err
			}
			l, err := c.Locks.Engage(ctx, n.ID, sub.ID, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromLock(l), func() string {
				return fmt.Sprintf("%s %s / %s\n", formatter.StyleYellowBold.Render("▶ Engaged"), n.Name, sub.Name)
			})
		},
	}
}

// newLockReleaseCmd builds abort and finalize, which differ only in the
// service call and the no-op message.
func newLockReleaseCmd(a *App, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:   verb + " NODE SUBNODE",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			n, err := resolveNode(ctx, c, caller, args[0])
			if err != nil {
				return err
			}
			sub, err := resolveSubNode(n, args[1])
			if err != nil {
				return err
			}

			var rel *service.Release
			if verb == "abort" {
				rel, err = c.Locks.Abort(ctx, sub.ID, caller)
			} else {
				rel, err = c.Locks.Finalize(ctx, sub.ID, caller)
			}
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromReleaseResult(rel), func() string {
				if rel == nil {
					if verb == "abort" {
						return formatter.Dim(fmt.Sprintf("%s / %s was not locked.", n.Name, sub.Name)) + "\n"
					}
					return formatter.Dim(fmt.Sprintf("You hold no session on %s / %s.", n.Name, sub.Name)) + "\n"
				}
				return releaseLine(n.Name, sub.Name, rel.Entry.Kind, rel.Lock.UserName)
			})
		},
	}
}

func releaseLine(node, sub string, kind domain.AuditKind, holder string) string {
	label := formatter.KindColor(kind).Render(string(kind))
	if kind == domain.AuditOverride {
		return fmt.Sprintf("%s %s / %s %s\n", label, node, sub, formatter.Dim("(was held by "+holder+")"))
	}
	return fmt.Sprintf("%s %s / %s\n", label, node, sub)
}
