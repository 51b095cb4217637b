package cmds

import (
	"context"

	"github.com/spf13/cobra"
)

// RegisterCommands adds every chatpath subcommand to rootCmd.
func RegisterCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(
		NewTuiCommand(),
		NewShowCommand(),
		NewNodesCommand(),
		NewContextCommand(),
		NewSendCommand(),
		NewBranchCommand(),
		NewDeleteCommand(),
		NewParentCommand(),
		NewActivateCommand(),
		NewMoveCommand(),
		NewLayoutCommand(),
		NewExportCommand(),
		NewImportCommand(),
		NewSchemaCommand(),
		NewResetCommand(),
	)
}

// withApp opens the app, loads the tree and runs f.
func withApp(cmd *cobra.Command, f func(ctx context.Context, app *App) error) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	return app.Run(cmd.Context(), func(ctx context.Context) error {
		return f(ctx, app)
	})
}
