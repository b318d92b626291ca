package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/commitguard/internal/app"
	"github.com/alexanderramin/commitguard/internal/cli/formatter"
	"github.com/alexanderramin/commitguard/internal/contract"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/importer"
)

func newNodeCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes and their sub-nodes",
	}

	cmd.AddCommand(
		newNodeListCmd(a),
		newNodeShowCmd(a),
		newNodeCreateCmd(a),
		newNodeUpdateCmd(a),
		newNodeDeleteCmd(a),
		newNodeSeedCmd(a),
	)
	return cmd
}

// parseSubNodes reads --sub values of the form NAME[:TIER[:DESCRIPTION]].
func parseSubNodes(values []string) ([]contract.SubNodeRequest, error) {
	out := make([]contract.SubNodeRequest, 0, len(values))
	for _, v := range values {
		parts := strings.SplitN(v, ":", 3)
		req := contract.SubNodeRequest{Name: strings.TrimSpace(parts[0])}
		if req.Name == "" {
			return nil, domain.Fail(domain.CodeInvalidInput, "--sub %q has no name", v)
		}
		req.Tier = string(domain.TierBackend)
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			req.Tier = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 {
			req.Description = strings.TrimSpace(parts[2])
		}
		out = append(out, req)
	}
	return out, nil
}

// directoryNames maps user ids to display names for member listings.
func directoryNames(ctx context.Context, c *app.Core, caller domain.User) map[string]string {
	users, err := c.View.Users(ctx, caller)
	if err != nil {
		return nil
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.DisplayName
	}
	return names
}

func newNodeListCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the nodes visible to you",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			nodes, err := c.View.Nodes(ctx, caller)
			if err != nil {
				return err
			}
			locks, err := c.View.Locks(ctx, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromNodes(nodes), func() string {
				return formatter.FormatNodes(nodes, locks)
			})
		},
	}
}

func newNodeShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show NODE",
		Short: "Show a node's sub-nodes, holders and members",
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
			locks, err := c.View.Locks(ctx, caller)
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromNode(n), func() string {
				return formatter.FormatNode(n, locks, directoryNames(ctx, c, caller))
			})
		},
	}
}

func newNodeCreateCmd(a *App) *cobra.Command {
	var (
		req  contract.CreateNodeRequest
		subs []string
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a node",
		Example: `  commitguard node create --name ALPHA --sub API:Backend --sub WEB:Frontend --member alice`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			if req.SubNodes, err = parseSubNodes(subs); err != nil {
				return err
			}
			n, err := c.Registry.CreateNode(ctx, caller, req.ToInput())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromNode(n), func() string {
				return fmt.Sprintf("Created node %s (%s) with %s\n",
					formatter.Bold(n.Name), n.ID, formatter.Plural(len(n.SubNodes), "sub-node"))
			})
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Node name (unique)")
	cmd.Flags().StringVar(&req.Description, "desc", "", "Description")
	cmd.Flags().StringArrayVar(&subs, "sub", nil, "Sub-node as NAME[:TIER[:DESCRIPTION]] (repeatable)")
	cmd.Flags().StringArrayVar(&req.AssignedUserIDs, "member", nil, "Assigned user id (repeatable)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newNodeUpdateCmd(a *App) *cobra.Command {
	var (
		name, desc    string
		subs, members []string
		clearMembers  bool
	)

	cmd := &cobra.Command{
		Use:   "update NODE",
		Short: "Change a node's name, description, sub-nodes or members",
		Long: `Only the flags you pass are changed. --sub replaces the whole sub-node list:
sub-nodes are matched to existing ones by name, so their locks survive; any
sub-node left out is removed together with its lock.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, c, caller, err := a.session(cmd)
			if err != nil {
				return err
			}
			n, err := resolveNode(ctx, c, caller, args[0])
			if err != nil {
				return err
			}

			var req contract.UpdateNodeRequest
			flags := cmd.Flags()
			if flags.Changed("name") {
				req.Name = &name
			}
			if flags.Changed("desc") {
				req.Description = &desc
			}
			if flags.Changed("sub") {
				parsed, err := parseSubNodes(subs)
				if err != nil {
					return err
				}
				for i := range parsed {
					if existing, err := resolveSubNode(n, parsed[i].Name); err == nil {
						parsed[i].ID = existing.ID
					}
				}
				req.SubNodes = &parsed
			}
			switch {
			case clearMembers:
				empty := []string{}
				req.AssignedUserIDs = &empty
			case flags.Changed("member"):
				req.AssignedUserIDs = &members
			}

			updated, err := c.Registry.UpdateNode(ctx, caller, n.ID, req.ToPatch())
			if err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), contract.FromNode(updated), func() string {
				return fmt.Sprintf("Updated node %s\n", formatter.Bold(updated.Name))
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&desc, "desc", "", "New description")
	cmd.Flags().StringArrayVar(&subs, "sub", nil, "Replacement sub-node as NAME[:TIER[:DESCRIPTION]] (repeatable)")
	cmd.Flags().StringArrayVar(&members, "member", nil, "Replacement member id (repeatable)")
	cmd.Flags().BoolVar(&clearMembers, "clear-members", false, "Remove every member")
	cmd.MarkFlagsMutuallyExclusive("member", "clear-members")
	return cmd
}

func newNodeDeleteCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NODE",
		Short: "Delete a node with its locks and done flags",
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
			if err := c.Registry.DeleteNode(ctx, caller, n.ID); err != nil {
				return err
			}
			return a.emit(cmd.OutOrStdout(), map[string]string{"deleted": n.ID}, func() string {
				return fmt.Sprintf("Deleted node %s\n", formatter.Bold(n.Name))
			})
		},
	}
}

func newNodeSeedCmd(a *App) *cobra.Command {
	var (
		file  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load users and nodes from a seed file, or the built-in seed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.open(ctx)
			if err != nil {
				return err
			}
			schema, err := importer.DefaultSeed()
			if file != "" {
				schema, err = importer.LoadSeed(file)
			}
			if err != nil {
				return err
			}
			res, err := c.Seed.Seed(ctx, schema, force)
			if err != nil {
				return err
			}
			out := map[string]any{"skipped": res.Skipped, "users": res.UserCount, "nodes": res.NodeCount}
			return a.emit(cmd.OutOrStdout(), out, func() string {
				if res.Skipped {
					return formatter.Dim("Registry already has nodes; nothing seeded (use --force to add anyway).") + "\n"
				}
				return fmt.Sprintf("Seeded %s and %s\n",
					formatter.Plural(res.UserCount, "user"), formatter.Plural(res.NodeCount, "node"))
			})
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Seed YAML; empty uses the built-in seed")
	cmd.Flags().BoolVar(&force, "force", false, "Seed even when nodes already exist")
	return cmd
}
