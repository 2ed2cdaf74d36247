// Package parseadapter defines the contract the CORE consumes from the
// (out-of-scope) source-code static analyzer: for each dialect, the three
// dotted-name sets observed in a snippet. Static analysis itself — walking
// an AST, resolving aliases, classifying standard-library modules — is a
// collaborator's job; this package only fixes the shape of its output.
package parseadapter

// Dialect names the two mutually-incompatible language generations the
// snippet might target.
type Dialect string

const (
	D2 Dialect = "D2"
	D3 Dialect = "D3"
)

// Names is one dialect's parse result: three dotted-name sets, per spec
// §6.1. A nil Names for a dialect means that dialect could not parse the
// snippet at all.
type Names struct {
	// Imports are fully qualified dotted names from `import X.Y` or
	// `from X import ...`, where X is non-standard-library. Relative
	// imports are excluded; standard-library classification is the
	// analyzer's responsibility.
	Imports map[string]struct{}

	// Resources are dotted names of the form "module.alias" for each
	// `from module import alias`; a resource may turn out to be either a
	// submodule or an attribute.
	Resources map[string]struct{}

	// Attrs are dotted names formed by attribute access on an imported
	// identifier: the longest accessed path, after alias resolution.
	Attrs map[string]struct{}
}

// Snippet is the full per-dialect parse result for one snippet file.
type Snippet struct {
	Parses map[Dialect]*Names
}

// Get returns the parse result for d, or nil if d failed to parse.
func (s *Snippet) Get(d Dialect) *Names {
	if s == nil {
		return nil
	}
	return s.Parses[d]
}

// NewNames returns an empty Names value with initialized sets.
func NewNames() *Names {
	return &Names{
		Imports:   make(map[string]struct{}),
		Resources: make(map[string]struct{}),
		Attrs:     make(map[string]struct{}),
	}
}

func (n *Names) AddImport(name string)   { n.Imports[name] = struct{}{} }
func (n *Names) AddResource(name string) { n.Resources[name] = struct{}{} }
func (n *Names) AddAttr(name string)     { n.Attrs[name] = struct{}{} }
