package hcl_adapter

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// applyInjections rewrites the targets named by inject blocks. Each injection
// produces a new declaration that depends on the source target and carries
// the requested options; the original declaration value is left untouched.
func applyInjections(ctx context.Context, targets []target.Target, injects []*InjectBlock) ([]target.Target, error) {
	if len(injects) == 0 {
		return targets, nil
	}
	logger := ctxlog.FromContext(ctx)

	index := make(map[string]int, len(targets))
	for i, t := range targets {
		index[t.Name()] = i
	}

	out := append([]target.Target(nil), targets...)
	for _, ib := range injects {
		i, ok := index[ib.Into]
		if !ok {
			return nil, fmt.Errorf("inject %q: %w: %q", ib.Into, target.ErrUnknownTarget, ib.Into)
		}
		if _, ok := index[ib.From]; !ok {
			return nil, fmt.Errorf("inject %q: %w: %q", ib.Into, target.ErrUnknownDependency, ib.From)
		}
		if ib.IncludeOption == nil && ib.LibraryOption == nil {
			return nil, fmt.Errorf("inject %q: at least one of include_option or library_option is required", ib.Into)
		}
		d, ok := out[i].(*target.Declared)
		if !ok {
			return nil, fmt.Errorf("inject %q: target does not accept injected products", ib.Into)
		}

		opts := d.Options()
		set := func(name string, v target.Value) {
			if prev, ok := opts.Get(name); ok {
				logger.Info("Injected option replaces declared value.", "target", ib.Into, "option", name, "declared", prev.String())
			}
			opts = opts.With(name, v)
		}
		if ib.IncludeOption != nil {
			set(*ib.IncludeOption, target.Ref(ib.From, target.IncludePath))
		}
		if ib.LibraryOption != nil {
			name := ""
			if ib.Library != nil {
				name = *ib.Library
			}
			set(*ib.LibraryOption, injectedLibraries(ib.From, name))
		}

		out[i] = d.WithDependency(ib.From).WithOptions(opts)
		logger.Debug("Injected products.", "target", ib.Into, "from", ib.From)
	}
	return out, nil
}

// injectedLibraries resolves to the libraries of from followed by any system
// libraries it exports. A non-empty name keeps only the libraries whose file
// name contains it, e.g. "zlibstatic" selects zlibstatic.lib but not zlib.lib.
// When no file matches (libz.a on unix) every library of from is used.
func injectedLibraries(from, name string) target.Value {
	key := target.ProductKey{Target: from, Kind: target.Library}
	return target.Computed([]target.ProductKey{key}, func(l target.ProductLookup) (string, error) {
		paths, err := l.Products(from, target.Library)
		if err != nil {
			return "", err
		}
		system, err := l.Products(from, target.SystemLibrary)
		if err != nil && !errors.Is(err, target.ErrMissingProduct) {
			return "", err
		}

		picked := paths
		if name != "" {
			picked = nil
			for _, p := range paths {
				if strings.Contains(filepath.Base(p), name) {
					picked = append(picked, p)
				}
			}
			if len(picked) == 0 {
				picked = paths
			}
		}
		return target.JoinPaths(append(append([]string(nil), picked...), system...)), nil
	})
}
