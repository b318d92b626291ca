package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/commitguard/internal/cli/formatter"
	"github.com/alexanderramin/commitguard/internal/contract"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/service"
)

func newDoneCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "done NODE",
		Short: "Toggle your done flag on a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			n, err := resolveNode(ctx, c, caller, args[0])
			if err != nil {
				return err
			}
			res, err := c.Done.ToggleDone(ctx, n.ID, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromDone(res), func() string {
				var b strings.Builder
				if res.Finalized != nil {
					sub := res.Finalized.Entry.SubNodeName
					b.WriteString(releaseLine(n.Name, sub, res.Finalized.Entry.Kind, res.Finalized.Lock.UserName))
				}
				if res.Done {
					fmt.Fprintf(&b, "%s on %s\n", formatter.StyleGreen.Render("✔ Marked done"), n.Name)
				} else {
					fmt.Fprintf(&b, "Cleared done on %s\n", n.Name)
				}
				return b.String()
			})
		},
	}
}

func newResetCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset NODE",
		Short: "Release every lock, clear done flags and retire the node's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			n, err := resolveNode(ctx, c, caller, args[0])
			if err != nil {
				return err
			}
			res, err := c.Reset.ResetNode(ctx, n.ID, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromReset(res), func() string {
				return fmt.Sprintf("%s %s: released %s, cleared %s, retired %s\n",
					formatter.StyleRed.Render("RESET"), n.Name,
					formatter.Plural(int(res.LocksReleased), "lock"),
					formatter.Plural(int(res.DoneCleared), "done flag"),
					formatter.Plural(int(res.AuditRetired), "audit entry"))
			})
		},
	}
}

func newAuditCmd(a *App) *cobra.Command {
	var (
		node       string
		kinds      []string
		since      time.Duration
		limit      int
		superseded bool
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail visible to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			q := service.AuditQuery{Limit: limit, IncludeSuperseded: superseded}
			if node != "" {
				n, err := resolveNode(ctx, c, caller, node)
				if err != nil {
					return err
				}
				q.NodeID = n.ID
			}
			for _, k := range kinds {
				kind := domain.AuditKind(strings.ToUpper(strings.TrimSpace(k)))
				if !domain.ValidAuditKinds[kind] {
					return domain.Fail(domain.CodeInvalidInput, "invalid audit kind %q", k)
				}
				q.Kinds = append(q.Kinds, kind)
			}
			if since > 0 {
				t := a.now().Add(-since)
				q.Since = &t
			}
			entries, err := c.Audit.Query(ctx, caller, q)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromAuditEntries(entries), func() string {
				return formatter.FormatAudit(entries)
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Only entries on this node")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Only these kinds, e.g. lock,override")
	cmd.Flags().DurationVar(&since, "since", 0, "Only entries newer than this, e.g. 24h")
	cmd.Flags().IntVar(&limit, "limit", 0, "Keep only the most recent N entries")
	cmd.Flags().BoolVar(&superseded, "superseded", false, "Include entries archived by a reset")
	return cmd
}

func newStatsCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show coordination statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			an, err := c.Stats.Analysis(ctx, caller, a.now())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromAnalysis(an), func() string {
				return formatter.FormatAnalysis(an) + "\n"
			})
		},
	}
}

func newMatrixCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "matrix NODE",
		Short: "Show each member's commit status across a node's sub-nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			n, err := resolveNode(ctx, c, caller, args[0])
			if err != nil {
				return err
			}
			m, err := c.Stats.Matrix(ctx, caller, n.ID)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromMatrix(m), func() string {
				return formatter.FormatMatrix(m)
			})
		},
	}
}
