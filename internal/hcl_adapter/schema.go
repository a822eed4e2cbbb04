// This file contains the gohcl schema of target declaration files. The
// structs mirror the HCL layout one to one and are translated into
// target.Declared values by the loader.

package hcl_adapter

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any
// file. Anything else in a file is a decode error.
type fileRoot struct {
	Targets []*TargetBlock `hcl:"target,block"`
	Injects []*InjectBlock `hcl:"inject,block"`
}

// TargetBlock is one `target "<name>" { ... }` declaration.
type TargetBlock struct {
	Name         string             `hcl:"name,label"`
	Override     *bool              `hcl:"override,optional"`
	Source       *SourceBlock       `hcl:"source,block"`
	Dependencies []*DependencyBlock `hcl:"dependency,block"`
	Options      hcl.Expression     `hcl:"options,optional"`
	Exports      []*ExportBlock     `hcl:"export,block"`
	Build        *HookBlock         `hcl:"build,block"`
	Test         *HookBlock         `hcl:"test,block"`
}

type SourceBlock struct {
	Location *string `hcl:"location,optional"`
	Revision *string `hcl:"revision,optional"`
}

// DependencyBlock declares an edge to another target, optionally guarded by
// a `when` platform expression.
type DependencyBlock struct {
	Target string         `hcl:"target,label"`
	When   hcl.Expression `hcl:"when,optional"`
}

// ExportBlock is one package rule. The label is the product kind.
type ExportBlock struct {
	Kind     string         `hcl:"kind,label"`
	Dir      *string        `hcl:"dir,optional"`
	Patterns []string       `hcl:"patterns,optional"`
	BuildDir *bool          `hcl:"build_dir,optional"`
	Names    []string       `hcl:"names,optional"`
	When     hcl.Expression `hcl:"when,optional"`
}

type HookBlock struct {
	Script string `hcl:"script"`
}

// InjectBlock wires the products of From into the options of the labelled
// target without editing that target's own declaration.
type InjectBlock struct {
	Into          string  `hcl:"into,label"`
	From          string  `hcl:"from"`
	IncludeOption *string `hcl:"include_option,optional"`
	LibraryOption *string `hcl:"library_option,optional"`
	Library       *string `hcl:"library,optional"`
}
