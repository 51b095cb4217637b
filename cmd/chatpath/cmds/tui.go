package cmds

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/chatpath/pkg/ui"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewTuiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Browse and grow the conversation tree interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				updates, err := app.Router.Subscribe(ctx)
				if err != nil {
					return err
				}

				isOutputTerminal := isatty.IsTerminal(os.Stdout.Fd())
				options := []tea.ProgramOption{
					tea.WithContext(ctx),
				}
				if !isOutputTerminal {
					options = append(options, tea.WithOutput(os.Stderr))
				} else {
					options = append(options, tea.WithAltScreen())
				}

				p := tea.NewProgram(ui.New(app.Store, updates), options...)
				_, err = p.Run()
				if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
					return nil
				}
				return err
			})
		},
	}
}
