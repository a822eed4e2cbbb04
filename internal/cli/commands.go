package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newBuildCommand(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "build [PATH...]",
		Short: "Build every declared target in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, args, stderr)
			if err != nil {
				return err
			}
			res, runErr := a.Run(cmd.Context())
			if res != nil {
				writeSummary(stdout, res, nil)
			}
			if runErr != nil {
				return failure(runErr)
			}
			return nil
		},
	}
}

func newTestCommand(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "test [PATH...]",
		Short: "Build every target, then run the test hooks of the targets that declare one",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(v, args, stderr)
			if err != nil {
				return err
			}
			res, tests, runErr := a.Test(cmd.Context())
			if res != nil {
				writeSummary(stdout, res, tests)
			}
			if runErr != nil {
				return failure(runErr)
			}
			return nil
		},
	}
}

func newGraphCommand(v *viper.Viper, stdout, stderr io.Writer) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "graph [PATH...]",
		Short: "Print the validated build order without building",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "dot" {
				return usageError(errInvalidGraphFormat(format))
			}
			a, err := newApp(v, args, stderr)
			if err != nil {
				return err
			}
			if err := a.WriteGraph(stdout, format); err != nil {
				return failure(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "text", "Output format. Options: 'text' or 'dot'.")
	return cmd
}

func errInvalidGraphFormat(format string) error {
	return fmt.Errorf("invalid graph format %q: must be 'text' or 'dot'", format)
}
