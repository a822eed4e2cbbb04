package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/nodestore"
	"github.com/specialistvlad/buildgrid/internal/session"
)

// TestResult is the outcome of one test hook.
type TestResult struct {
	Target string
	Err    error
}

// RunTests runs the test hook of every packaged target of res that declares
// one, in plan order. Unlike builds, one failing test does not stop the
// others; every failure is returned joined.
func (e *Executor) RunTests(ctx context.Context, sess *session.Session, res *RunResult) ([]TestResult, error) {
	if e.tester == nil {
		return nil, errors.New("executor has no tester configured")
	}
	ctx = sess.Context(ctx)
	var (
		out  []TestResult
		errs []error
	)
	for _, tr := range res.Targets {
		if tr.State != nodestore.Packaged || tr.Request == nil {
			continue
		}
		t, ok := sess.Plan.Target(tr.Name)
		if !ok || t.Test() == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		tctx := ctxlog.With(ctx, "target", tr.Name, "phase", PhaseTest)
		ctxlog.FromContext(tctx).Info("Running tests.")

		req := *tr.Request
		req.Script = t.Test().Script
		var testErr error
		if err := e.tester.Test(tctx, req); err != nil {
			testErr = &TargetError{Target: tr.Name, Phase: PhaseTest, Err: fmt.Errorf("test hook: %w", err)}
			errs = append(errs, testErr)
			ctxlog.FromContext(tctx).Error("Tests failed.", "error", err)
		}
		out = append(out, TestResult{Target: tr.Name, Err: testErr})
	}
	return out, errors.Join(errs...)
}
