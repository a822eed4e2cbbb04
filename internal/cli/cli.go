package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/specialistvlad/buildgrid/internal/app"
	"github.com/specialistvlad/buildgrid/internal/cache/s3cache"
	"github.com/specialistvlad/buildgrid/internal/hcl_adapter"
)

// Exit codes returned through ExitError.
const (
	ExitFailure = 1
	ExitUsage   = 2
)

// envPrefix is the prefix of environment variables that override flags,
// e.g. BUILDGRID_CACHE_MODE for --cache-mode.
const envPrefix = "BUILDGRID"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code int
	Err  error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

func failure(err error) error {
	return &ExitError{Code: ExitFailure, Err: err}
}

// Execute runs the command line args. The run summary and graphs go to
// stdout; logs and script output go to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	// Anything cobra reports on its own is a usage problem: unknown command,
	// bad flag value, wrong argument count.
	return usageError(err)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "buildgrid",
		Short: "Resolve build targets and propagate their artifacts",
		Long: `buildgrid reads target declarations (*.hcl), orders them by their
dependencies and builds them concurrently, handing every target the include
paths and libraries its dependencies exported.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	addGlobalFlags(root.PersistentFlags())
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return v.BindPFlags(cmd.Flags())
	}

	root.AddCommand(
		newBuildCommand(v, stdout, stderr),
		newTestCommand(v, stdout, stderr),
		newGraphCommand(v, stdout, stderr),
	)
	return root
}

func addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringSliceP("targets", "t", nil, "Target declaration file or directory (repeatable).")
	fs.String("workspace", ".", "Root that relative source locations resolve against.")
	fs.String("build-dir", "", "Directory holding one build directory per target (default {workspace}/build).")
	fs.Int("workers", 0, "Number of targets built at once. 0 uses the number of CPUs.")
	fs.String("platform", "", "Plan for this platform instead of the host: 'linux', 'windows' or 'macos'.")
	fs.String("cache-mode", "readwrite", "Cache usage: 'off', 'readwrite' or 'readonly'.")
	fs.String("cache-dir", "", "Local cache directory (default {workspace}/.buildgrid/cache).")
	fs.String("s3-endpoint", "", "S3 endpoint of a shared remote cache, e.g. 'localhost:9000'.")
	fs.String("s3-bucket", "", "Bucket of the remote cache.")
	fs.String("s3-prefix", "", "Object key prefix inside the remote cache bucket.")
	fs.String("s3-region", "", "Region of the remote cache bucket.")
	fs.String("s3-access-key", "", "Access key of the remote cache.")
	fs.String("s3-secret-key", "", "Secret key of the remote cache.")
	fs.Bool("s3-ssl", true, "Use TLS for the remote cache.")
	fs.Bool("s3-create-bucket", false, "Create the remote cache bucket when it does not exist.")
	fs.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	fs.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.Int("status-port", 0, "Port for the HTTP status server. 0 is disabled.")
}

// configFrom assembles the app configuration from flags, environment and
// positional paths.
func configFrom(v *viper.Viper, args []string) (*app.Config, error) {
	paths := append(v.GetStringSlice("targets"), args...)
	if len(paths) == 0 {
		return nil, usageError(errors.New("no target declarations given: pass a path or use --targets"))
	}

	cfg, err := app.NewConfig(app.Config{
		TargetPaths: paths,
		Workspace:   v.GetString("workspace"),
		BuildDir:    v.GetString("build-dir"),
		Workers:     v.GetInt("workers"),
		Platform:    v.GetString("platform"),
		CacheMode:   v.GetString("cache-mode"),
		CacheDir:    v.GetString("cache-dir"),
		S3: s3cache.Config{
			Endpoint:     v.GetString("s3-endpoint"),
			Bucket:       v.GetString("s3-bucket"),
			Prefix:       v.GetString("s3-prefix"),
			Region:       v.GetString("s3-region"),
			AccessKey:    v.GetString("s3-access-key"),
			SecretKey:    v.GetString("s3-secret-key"),
			UseSSL:       v.GetBool("s3-ssl"),
			CreateBucket: v.GetBool("s3-create-bucket"),
		},
		LogFormat:  v.GetString("log-format"),
		LogLevel:   v.GetString("log-level"),
		StatusPort: v.GetInt("status-port"),
	})
	if err != nil {
		return nil, usageError(err)
	}
	return cfg, nil
}

// newApp validates the configuration and loads the declarations. Load and
// graph errors are failures of the run, not of the command line.
func newApp(v *viper.Viper, args []string, stderr io.Writer) (*app.App, error) {
	cfg, err := configFrom(v, args)
	if err != nil {
		return nil, err
	}
	a, err := app.NewApp(stderr, cfg, hcl_adapter.NewLoader())
	if err != nil {
		return nil, failure(fmt.Errorf("startup: %w", err))
	}
	return a, nil
}
