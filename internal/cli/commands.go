package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	"github.com/spec-kit/helpdesk/internal/workspace"
)

func (a *app) loginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Exchange credentials for an access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if email == "" || password == "" {
				return fmt.Errorf("--email and --password are required")
			}
			resp, err := cfg.client(cfg.logger()).Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if cfg.JSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s), token expires %s\n",
				resp.User.Name, resp.User.Role, resp.Auth.ExpiresAt.Format(time.RFC3339))
			fmt.Fprintf(cmd.OutOrStdout(), "export DESK_TOKEN=%s\n", resp.Auth.Token)
			return nil
		},
	}
	cmd.Flags().String("email", "", "account email")
	cmd.Flags().String("password", "", "account password")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <ticket>",
		Short: "Print a ticket with its relations and sub-collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], nil)
		},
	}
}

// scalarCmd builds status, priority and branch, which share a shape.
func (a *app) scalarCmd(use, short string, set func(*workspace.Workspace, context.Context, int64) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <ticket> <id>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(use, args[1])
			if err != nil {
				return err
			}
			return a.run(cmd, args[0], func(ctx context.Context, ws *workspace.Workspace) error {
				return set(ws, ctx, id)
			})
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return a.scalarCmd("status", "Change the ticket status", (*workspace.Workspace).SetStatus)
}

func (a *app) priorityCmd() *cobra.Command {
	return a.scalarCmd("priority", "Change the ticket priority", (*workspace.Workspace).SetPriority)
}

func (a *app) branchCmd() *cobra.Command {
	return a.scalarCmd("branch", "Move the ticket to another branch", (*workspace.Workspace).SetBranch)
}

func (a *app) dueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "due <ticket> <RFC3339|none>",
		Short: "Set or clear the due date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var due *time.Time
			if args[1] != "none" {
				t, err := time.Parse(time.RFC3339, args[1])
				if err != nil {
					return fmt.Errorf("invalid due date %q: %w", args[1], err)
				}
				due = &t
			}
			return a.run(cmd, args[0], func(ctx context.Context, ws *workspace.Workspace) error {
				return ws.SetDueDate(ctx, due)
			})
		},
	}
}

// memberCmd builds the attach/detach commands. With removable set a
// --remove flag switches to detach.
func (a *app) memberCmd(use, short string, rel dto.Relation, detach, removable bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use + " <ticket> <member>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := parseID("member", args[1])
			if err != nil {
				return err
			}
			remove := detach
			if removable {
				remove, _ = cmd.Flags().GetBool("remove")
			}
			return a.run(cmd, args[0], func(ctx context.Context, ws *workspace.Workspace) error {
				if remove {
					return ws.Detach(ctx, rel, memberID)
				}
				return ws.Attach(ctx, rel, dto.MemberRef{ID: memberID})
			})
		},
	}
	if removable {
		cmd.Flags().Bool("remove", false, "detach instead of attach")
	}
	return cmd
}

func (a *app) assignCmd() *cobra.Command {
	return a.memberCmd("assign", "Assign an agent", dto.RelationAgents, false, false)
}

func (a *app) unassignCmd() *cobra.Command {
	return a.memberCmd("unassign", "Unassign an agent", dto.RelationAgents, true, false)
}

func (a *app) notifyCmd() *cobra.Command {
	return a.memberCmd("notify", "Add a user to the notify list", dto.RelationNotifyUsers, false, true)
}

func (a *app) labelCmd() *cobra.Command {
	return a.memberCmd("label", "Tag the ticket with a label", dto.RelationLabels, false, true)
}

func (a *app) noteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note <ticket> <text...>",
		Short: "Add a note",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.Join(args[1:], " ")
			return a.run(cmd, args[0], func(ctx context.Context, ws *workspace.Workspace) error {
				_, err := ws.AddNote(ctx, body)
				return err
			})
		},
	}
}

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <ticket> <remarks...>",
		Short: "Mark the ticket verified",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			remarks := strings.Join(args[1:], " ")
			return a.run(cmd, args[0], func(ctx context.Context, ws *workspace.Workspace) error {
				return ws.Verify(ctx, remarks)
			})
		},
	}
}

func (a *app) invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice <ticket>",
		Short: "Show the invoice estimate, or create the invoice with --create",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			create, _ := flags.GetBool("create")
			serviceCharge, _ := flags.GetInt64("service-charge")
			discount, _ := flags.GetInt64("discount")
			mode, _ := flags.GetString("payment-mode")
			out := cmd.OutOrStdout()

			return a.withWorkspace(cmd, args[0], func(ctx context.Context, cfg Config, ws *workspace.Workspace) error {
				if !create {
					draft, err := ws.PrepareInvoice(ctx)
					if err != nil {
						return err
					}
					if cfg.JSON {
						return printJSON(out, draft)
					}
					printDraft(out, draft, serviceCharge, discount)
					return nil
				}
				res, err := ws.CreateInvoice(ctx, workspace.InvoiceInput{
					ServiceCharge: serviceCharge,
					Discount:      discount,
					PaymentMode:   mode,
				})
				if err != nil {
					return err
				}
				if cfg.JSON {
					return printJSON(out, res)
				}
				printInvoice(out, res)
				return nil
			})
		},
	}
	cmd.Flags().Bool("create", false, "create the invoice")
	cmd.Flags().Int64("service-charge", 0, "service charge in cents")
	cmd.Flags().Int64("discount", 0, "discount in cents")
	cmd.Flags().String("payment-mode", "", "CASH, CARD or TRANSFER")
	return cmd
}
