package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/buildgrid/internal/ctxlog"
	"github.com/specialistvlad/buildgrid/internal/fsutil"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// FileExtension is the extension of target declaration files.
const FileExtension = ".hcl"

// Loader reads target declarations from HCL files.
type Loader struct{}

// NewLoader creates a new HCL declaration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every declaration file found under paths, in path order and
// lexical file order within a directory, and returns the resolved targets.
// Later declarations of a name replace earlier ones only when they set
// `override = true`. Inject blocks are applied last, across all files.
func (l *Loader) Load(ctx context.Context, paths ...string) ([]target.Target, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	var (
		decls   []target.Target
		injects []*InjectBlock
	)
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, tb := range root.Targets {
			d, err := l.translateTarget(ctx, hclFile.Bytes, tb)
			if err != nil {
				return nil, fmt.Errorf("%s: target %q: %w", file, tb.Name, err)
			}
			decls = append(decls, d)
		}
		injects = append(injects, root.Injects...)
	}

	targets, err := target.Resolve(decls, func(name string) {
		logger.Info("Target declaration overridden.", "target", name)
	})
	if err != nil {
		return nil, err
	}

	targets, err = applyInjections(ctx, targets, injects)
	if err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "targets", len(targets), "injections", len(injects))
	return targets, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. Every path must exist.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		found, err := fsutil.FindFilesByExtension(path, FileExtension)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}
		for _, f := range found {
			if _, wasSeen := seen[f]; !wasSeen {
				allFiles = append(allFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	return allFiles, nil
}

// translateTarget converts one target block. src is the content of the file
// the block was read from.
func (l *Loader) translateTarget(ctx context.Context, src []byte, tb *TargetBlock) (*target.Declared, error) {
	logger := ctxlog.FromContext(ctx).With("target", tb.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL target to declaration.")

	d := &target.Declared{TargetName: tb.Name}
	if tb.Override != nil {
		d.Override = *tb.Override
	}
	if tb.Source != nil {
		if tb.Source.Location != nil {
			d.SourceRef.Location = *tb.Source.Location
		}
		if tb.Source.Revision != nil {
			d.SourceRef.Revision = *tb.Source.Revision
		}
	}

	seenDeps := make(map[string]bool, len(tb.Dependencies))
	for _, db := range tb.Dependencies {
		if seenDeps[db.Target] {
			return nil, fmt.Errorf("dependency %q is declared more than once", db.Target)
		}
		seenDeps[db.Target] = true
		dep := target.Dependency{Target: db.Target}
		if isExprDefined(ctx, db.When, "when") {
			cond, err := translateCondition(db.When)
			if err != nil {
				return nil, fmt.Errorf("dependency %q: %w", db.Target, err)
			}
			dep.When = cond
		}
		d.Deps = append(d.Deps, dep)
	}

	if isExprDefined(ctx, tb.Options, "options") {
		opts, err := translateOptions(src, tb.Options)
		if err != nil {
			return nil, err
		}
		d.Opts = opts
	}

	for _, eb := range tb.Exports {
		rule, err := translateExport(ctx, eb)
		if err != nil {
			return nil, err
		}
		d.Rules = append(d.Rules, rule)
	}

	if tb.Build != nil {
		d.Build = &target.Hook{Script: tb.Build.Script}
	}
	if tb.Test != nil {
		d.TestHook = &target.Hook{Script: tb.Test.Script}
	}

	logger.Debug("Translated HCL target.", "dependencies", len(d.Deps), "options", d.Opts.Len(), "exports", len(d.Rules))
	return d, nil
}

// translateOptions converts the `options` object. The same key may appear
// more than once when its source text is identical; any other repeat is a
// conflict.
func translateOptions(src []byte, expr hcl.Expression) (target.Options, error) {
	pairs, diags := hcl.ExprMap(expr)
	if diags.HasErrors() {
		return target.Options{}, fmt.Errorf("options must be an object: %w", diags)
	}

	opts := target.NewOptions()
	texts := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, err := keyName(pair.Key)
		if err != nil {
			return target.Options{}, err
		}
		text := string(pair.Value.Range().SliceBytes(src))
		if prev, ok := texts[name]; ok && prev == text {
			continue
		}
		texts[name] = text

		v, err := translateValue(pair.Value)
		if err != nil {
			return target.Options{}, fmt.Errorf("option %s: %w", name, err)
		}
		if opts, err = opts.Add(name, v); err != nil {
			return target.Options{}, err
		}
	}
	return opts, nil
}

// translateExport converts an export block into a package rule and checks
// that it only sets the attributes its kind understands.
func translateExport(ctx context.Context, eb *ExportBlock) (target.PackageRule, error) {
	kind, err := target.ParseProductKind(eb.Kind)
	if err != nil {
		return target.PackageRule{}, fmt.Errorf("export: %w", err)
	}
	rule := target.PackageRule{Kind: kind, Patterns: eb.Patterns, Names: eb.Names}
	if eb.Dir != nil {
		rule.Dir = *eb.Dir
	}
	if isExprDefined(ctx, eb.When, "when") {
		if rule.When, err = translateCondition(eb.When); err != nil {
			return target.PackageRule{}, fmt.Errorf("export %q: %w", eb.Kind, err)
		}
	}

	invalid := func(attr string) error {
		return fmt.Errorf("export %q: attribute %q is not valid for this kind", eb.Kind, attr)
	}
	switch kind {
	case target.IncludePath:
		if eb.Dir == nil {
			return target.PackageRule{}, fmt.Errorf("export %q: dir is required", eb.Kind)
		}
		if len(eb.Patterns) > 0 {
			return target.PackageRule{}, invalid("patterns")
		}
		if len(eb.Names) > 0 {
			return target.PackageRule{}, invalid("names")
		}
		rule.FromBuildDir = eb.BuildDir != nil && *eb.BuildDir
	case target.Library:
		if len(eb.Patterns) == 0 {
			return target.PackageRule{}, fmt.Errorf("export %q: patterns is required", eb.Kind)
		}
		if len(eb.Names) > 0 {
			return target.PackageRule{}, invalid("names")
		}
		if rule.Dir == "" {
			rule.Dir = "."
		}
		rule.FromBuildDir = eb.BuildDir == nil || *eb.BuildDir
	case target.SystemLibrary:
		if len(eb.Names) == 0 {
			return target.PackageRule{}, fmt.Errorf("export %q: names is required", eb.Kind)
		}
		switch {
		case eb.Dir != nil:
			return target.PackageRule{}, invalid("dir")
		case len(eb.Patterns) > 0:
			return target.PackageRule{}, invalid("patterns")
		case eb.BuildDir != nil:
			return target.PackageRule{}, invalid("build_dir")
		}
	}
	return rule, nil
}
