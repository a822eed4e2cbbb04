package executor

import (
	"fmt"
	"slices"

	"github.com/specialistvlad/buildgrid/internal/platform"
	"github.com/specialistvlad/buildgrid/internal/target"
)

// configureContext serves product lookups for one target. Only direct
// dependencies may be read, and only once they are published.
type configureContext struct {
	lookup    target.ProductLookup
	deps      []string
	facts     platform.Facts
	sourceDir string
	buildDir  string
}

var _ target.ConfigureContext = (*configureContext)(nil)

func (c *configureContext) Products(name string, kind target.ProductKind) ([]string, error) {
	if !slices.Contains(c.deps, name) {
		return nil, fmt.Errorf("%w: %q is not a dependency on this platform", target.ErrUnknownDependency, name)
	}
	return c.lookup.Products(name, kind)
}

func (c *configureContext) Platform() platform.Facts { return c.facts }
func (c *configureContext) SourceDir() string        { return c.sourceDir }
func (c *configureContext) BuildDir() string         { return c.buildDir }
