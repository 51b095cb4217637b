package cmds

import (
	"context"
	"os"

	"github.com/go-go-golems/chatpath/pkg/conversation"
	"github.com/go-go-golems/chatpath/pkg/snapshot"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewExportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored tree as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			return withApp(cmd, func(ctx context.Context, app *App) error {
				tree := app.Store.State().Tree

				var b []byte
				var err error
				switch format {
				case "json":
					b, err = snapshot.Encode(tree)
				case "yaml":
					b, err = snapshot.EncodeYAML(tree)
				default:
					return errors.Errorf("unknown format %q", format)
				}
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(append(b, '\n'))
					return err
				}
				return os.WriteFile(output, b, 0o644)
			})
		},
	}
	cmd.Flags().String("format", "json", "Output format (json, yaml)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	return cmd
}

func NewImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored tree with a JSON snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repair, _ := cmd.Flags().GetBool("repair")

			b, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			if repair {
				b, err = snapshot.Repair(b)
				if err != nil {
					return err
				}
			}
			tree, err := snapshot.Decode(b)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				state, err := app.Store.Dispatch(ctx, conversation.SetTree{Tree: tree})
				if err != nil {
					return err
				}
				log.Info().
					Str("file", args[0]).
					Int("node_count", len(state.Tree.Nodes)).
					Msg("imported tree")
				return nil
			})
		},
	}
	cmd.Flags().Bool("repair", false, "Try to repair malformed JSON before decoding")
	return cmd
}

func NewSchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of stored trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := snapshot.SchemaJSON()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(b, '\n'))
			return err
		},
	}
}
