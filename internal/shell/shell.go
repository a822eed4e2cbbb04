// Package shell runs build and test hook scripts in an embedded POSIX shell
// interpreter, so declarations behave the same on every host without
// depending on /bin/sh.
//
// Scripts run in the target's build directory. The environment carries
// TARGET, SOURCE_DIR, BUILD_DIR, BUILDGRID_OS and BUILDGRID_ARCH, every
// configuration option whose name is a valid shell identifier, and
// CMAKE_ARGS with all options rendered as sorted -DNAME=VALUE arguments.
package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/executor"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ScriptError reports a script that exited with a non-zero status.
type ScriptError struct {
	Hook string
	Code int
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s script exited with status %d", e.Hook, e.Code)
}

// Runner implements executor.Builder and executor.Tester.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	// InheritEnv passes the process environment to scripts before the
	// target-specific variables.
	InheritEnv bool
}

var (
	_ executor.Builder = (*Runner)(nil)
	_ executor.Tester  = (*Runner)(nil)
)

// New returns a runner writing script output to w.
func New(w io.Writer) *Runner {
	return &Runner{Stdout: w, Stderr: w, InheritEnv: true}
}

func (r *Runner) Build(ctx context.Context, req executor.BuildRequest) error {
	return r.run(ctx, "build", req)
}

func (r *Runner) Test(ctx context.Context, req executor.BuildRequest) error {
	return r.run(ctx, "test", req)
}

func (r *Runner) run(ctx context.Context, hook string, req executor.BuildRequest) error {
	logger := ctxlog.FromContext(ctx)
	if strings.TrimSpace(req.Script) == "" {
		logger.Debug("No script declared, nothing to run.", "hook", hook)
		return nil
	}

	prog, err := syntax.NewParser().Parse(strings.NewReader(req.Script), req.Target+"."+hook)
	if err != nil {
		return fmt.Errorf("failed to parse %s script: %w", hook, err)
	}

	runner, err := interp.New(
		interp.Dir(req.BuildDir),
		interp.Env(expand.ListEnviron(r.environ(req)...)),
		interp.StdIO(nil, writerOrDiscard(r.Stdout), writerOrDiscard(r.Stderr)),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	logger.Debug("Running script.", "hook", hook, "dir", req.BuildDir)
	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ScriptError{Hook: hook, Code: int(exitStatus)}
		}
		return fmt.Errorf("%s script execution failed: %w", hook, err)
	}
	return nil
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// environ builds the script environment. Later entries win.
func (r *Runner) environ(req executor.BuildRequest) []string {
	var env []string
	if r.InheritEnv {
		env = append(env, os.Environ()...)
	}

	names := make([]string, 0, len(req.Options))
	for name := range req.Options {
		names = append(names, name)
	}
	sort.Strings(names)

	cmakeArgs := make([]string, 0, len(names))
	for _, name := range names {
		value := req.Options[name]
		cmakeArgs = append(cmakeArgs, "-D"+name+"="+value)
		if identifier.MatchString(name) {
			env = append(env, name+"="+value)
		}
	}

	return append(env,
		"TARGET="+req.Target,
		"SOURCE_DIR="+req.SourceDir,
		"BUILD_DIR="+req.BuildDir,
		"BUILDGRID_OS="+req.Platform.OS,
		"BUILDGRID_ARCH="+req.Platform.Arch,
		"CMAKE_ARGS="+strings.Join(cmakeArgs, " "),
	)
}

func writerOrDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
