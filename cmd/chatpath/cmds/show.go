package cmds

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/summary"
	"github.com/go-go-golems/chatpath/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tiktoken-go/tokenizer"
)

func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [node]",
		Short: "Print the messages of a node, the active one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, _ := cmd.Flags().GetBool("raw")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				state := app.Store.State()
				n, err := resolveNode(state, firstArg(args))
				if err != nil {
					return err
				}
				md := nodeMarkdown(n)
				if raw {
					_, err = fmt.Fprint(cmd.OutOrStdout(), md)
					return err
				}

				style := "notty"
				if isatty.IsTerminal(os.Stdout.Fd()) {
					style = "dark"
				}
				styled, err := glamour.Render(md, style)
				if err != nil {
					return err
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), styled)
				return err
			})
		},
	}
	cmd.Flags().Bool("raw", false, "Print markdown without rendering it")
	return cmd
}

func nodeMarkdown(n *conversation.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", summary.Title(conversation.Turns(n.Messages), n.ID.String()))
	fmt.Fprintf(&b, "`%s`", n.ID)
	if n.IsActive {
		b.WriteString(" (active)")
	}
	b.WriteString("\n\n")
	for _, m := range n.Messages {
		fmt.Fprintf(&b, "**%s** `%s` %s\n\n", m.Role, shortID(string(m.ID)), m.Timestamp.Format("2006-01-02 15:04"))
		b.WriteString(m.Content)
		b.WriteString("\n\n")
		for _, bp := range m.BranchPoints {
			fmt.Fprintf(&b, "> branch `%s` from \"%s\"\n\n", bp.ID, bp.SelectedText)
		}
	}
	return b.String()
}

func NewNodesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the nodes of the tree as an outline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			match, _ := cmd.Flags().GetString("match")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				state := app.Store.State()
				w := cmd.OutOrStdout()
				for _, row := range ui.Outline(state.Tree, state.ActiveNodeID) {
					if match != "" {
						ok, err := glob.Match(match, row.Title)
						if err != nil {
							return errors.Wrapf(err, "invalid pattern %q", match)
						}
						if !ok {
							continue
						}
					}
					n, _ := state.Tree.Node(row.ID)
					marker := " "
					if row.Active {
						marker = "*"
					}
					_, err := fmt.Fprintf(w, "%s %s %s%s (%d messages, at %.0f,%.0f)\n",
						marker, row.ID.Short(), strings.Repeat("  ", row.Depth), row.Title,
						len(n.Messages), n.Position.X, n.Position.Y)
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().String("match", "", "Only list nodes whose title matches this glob")
	return cmd
}

func NewContextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "context [node]",
		Short: "Print the context a reply in this node would see, with its token count",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				state := app.Store.State()
				n, err := resolveNode(state, firstArg(args))
				if err != nil {
					return err
				}
				lines, err := state.Tree.Transcript(n.ID)
				if err != nil {
					return err
				}
				text := strings.Join(lines, "\n")

				codec, err := tokenizer.Get(tokenizer.Encoding(app.Settings.Tokens.Encoding))
				if err != nil {
					return errors.Wrapf(err, "unknown encoding %s", app.Settings.Tokens.Encoding)
				}
				ids, _, err := codec.Encode(text)
				if err != nil {
					return errors.Wrap(err, "could not count tokens")
				}

				w := cmd.OutOrStdout()
				if _, err := fmt.Fprintln(w, text); err != nil {
					return err
				}
				_, err = fmt.Fprintf(w, "\n%d lines, %d tokens (%s)\n", len(lines), len(ids), app.Settings.Tokens.Encoding)
				return err
			})
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
