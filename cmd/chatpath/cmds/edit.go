package cmds

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/layout"
	"github.com/go-go-golems/chatpath/pkg/selection"
	"github.com/go-go-golems/chatpath/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

func NewSendCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send <node> <text>",
		Short: "Send a message to a node and wait for the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			noReply, _ := cmd.Flags().GetBool("no-reply")
			text := strings.Join(args[1:], " ")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				n, err := resolveNode(app.Store.State(), args[0])
				if err != nil {
					return err
				}
				if _, err := app.Store.SendMessage(ctx, n.ID, text); err != nil {
					return err
				}
				if noReply {
					app.Store.CancelReply(ctx, n.ID)
					return nil
				}

				app.Store.WaitForReplies()
				state := app.Store.State()
				n, ok := state.Tree.Node(n.ID)
				if !ok || len(n.Messages) == 0 {
					return errors.Wrapf(conversation.ErrNotFound, "node %s", args[0])
				}
				last := n.Messages[len(n.Messages)-1]
				if last.Role != conversation.RoleAssistant {
					return errors.New("no reply was delivered")
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), last.Content)
				return err
			})
		},
	}
	cmd.Flags().Bool("no-reply", false, "Store the message without waiting for a reply")
	return cmd
}

func NewBranchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch <node> <message-id> [text]",
		Short: "Create a branch seeded with text selected from a message",
		Long: "Create a branch seeded with text selected from a message. The selection is\n" +
			"the first occurrence of text, or the rune range given by --start and --end.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetInt("start")
			end, _ := cmd.Flags().GetInt("end")
			text := strings.Join(args[2:], " ")
			if text == "" && end == 0 {
				return errors.New("either text or --end is required")
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				n, err := resolveNode(app.Store.State(), args[0])
				if err != nil {
					return err
				}
				msg, err := resolveMessage(n, args[1])
				if err != nil {
					return err
				}

				var sel conversation.TextSelection
				if end > 0 {
					sel, err = selection.FromRange(n.ID, msg, start, end)
				} else {
					sel, err = selection.FromText(n.ID, msg, text)
				}
				if err != nil {
					return err
				}

				id, state, err := app.Store.CreateBranch(ctx, sel)
				if err != nil {
					return err
				}
				child, _ := state.Tree.Node(id)
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s at %.0f,%.0f\n", id, child.Position.X, child.Position.Y)
				return err
			})
		},
	}
	cmd.Flags().Int("start", 0, "First rune of the selection")
	cmd.Flags().Int("end", 0, "Rune after the last one of the selection")
	return cmd
}

func NewDeleteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <node>",
		Short: "Delete a node and all of its branches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				state := app.Store.State()
				n, err := resolveNode(state, args[0])
				if err != nil {
					return err
				}
				removed, err := state.Tree.Descendants(n.ID)
				if err != nil {
					return err
				}

				if !yes {
					if !isatty.IsTerminal(os.Stdin.Fd()) {
						return errors.New("refusing to delete without --yes on a non-interactive terminal")
					}
					ok, err := askForConfirmation(fmt.Sprintf(
						"Delete this conversation branch and all its sub-branches (%d nodes)? [y/n]", len(removed)))
					if err != nil {
						return err
					}
					if !ok {
						return nil
					}
				}

				state, err = app.Store.DeleteNode(ctx, n.ID)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "deleted %d nodes, active node is %s\n", len(removed), state.ActiveNodeID)
				return err
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Do not ask for confirmation")
	return cmd
}

func askForConfirmation(query string) (bool, error) {
	tty_, err := ui.OpenTTY()
	if err != nil {
		return false, err
	}
	defer func() {
		_ = tty_.Close()
	}()

	in := &input.UI{
		Writer: tty_,
		Reader: tty_,
	}
	answer, err := in.Ask(query, &input.Options{
		Default:  "n",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return errors.New("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}

func NewParentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parent [node]",
		Short: "Move focus to the parent of a node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				n, err := resolveNode(app.Store.State(), firstArg(args))
				if err != nil {
					return err
				}
				state, err := app.Store.Dispatch(ctx, conversation.NavigateToParent{NodeID: n.ID})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), state.ActiveNodeID)
				return err
			})
		},
	}
}

func NewActivateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <node>",
		Short: "Move focus to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				n, err := resolveNode(app.Store.State(), args[0])
				if err != nil {
					return err
				}
				state, err := app.Store.Dispatch(ctx, conversation.SetActiveNode{NodeID: n.ID})
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), state.ActiveNodeID)
				return err
			})
		},
	}
}

func NewMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "move <node> <x> <y>",
		Short: "Set the canvas position of a node",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return errors.Wrapf(err, "invalid x %q", args[1])
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return errors.Wrapf(err, "invalid y %q", args[2])
			}
			return withApp(cmd, func(ctx context.Context, app *App) error {
				n, err := resolveNode(app.Store.State(), args[0])
				if err != nil {
					return err
				}
				_, err = app.Store.Dispatch(ctx, conversation.UpdateNodePosition{
					NodeID:   n.ID,
					Position: layout.Point{X: x, Y: y},
				})
				return err
			})
		},
	}
}

func NewLayoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layout",
		Short: "Recompute the position of every node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				state, err := app.Store.RecalculateLayout(ctx)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, n := range state.Tree.Nodes {
					if _, err := fmt.Fprintf(w, "%s %.0f,%.0f\n", n.ID.Short(), n.Position.X, n.Position.Y); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func NewResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Throw the tree away and start a new conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if !yes {
					if !isatty.IsTerminal(os.Stdin.Fd()) {
						return errors.New("refusing to reset without --yes on a non-interactive terminal")
					}
					ok, err := askForConfirmation("Delete the whole conversation tree? [y/n]")
					if err != nil || !ok {
						return err
					}
				}
				state, err := app.Store.Reset(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), state.Tree.RootNodeID)
				return err
			})
		},
	}
	cmd.Flags().Bool("yes", false, "Do not ask for confirmation")
	return cmd
}
