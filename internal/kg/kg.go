// Package kg defines the read-only knowledge-graph query contract (spec
// §4.B/§6.2) that the CORE consults, plus the node/edge types it queries
// over. The storage backend itself — a graph database, its Cypher dialect,
// network transport — is explicitly out of the CORE's scope; this package
// only fixes the shape of the six operations and their results so the
// resolver can be built and tested against a fixture implementation
// (kgmem) while a real backend (kgneo4j) is wired in at the edges.
package kg

import "github.com/nju-websoft/pycre-go/internal/version"

// ModuleID and VersionID are opaque identifiers minted by the backend
// (Neo4j internal node ids in the original system). PackageName is not an
// ID — Package nodes are addressed by their canonical name directly.
type ModuleID int64
type VersionID int64

// ImportStatus records whether a module was observed to import
// successfully during knowledge-graph population.
type ImportStatus bool

const (
	ImportOK      ImportStatus = true
	ImportFailure ImportStatus = false
)

// ModuleInfo is the result of a module_by_name / module_info lookup.
type ModuleInfo struct {
	ID           ModuleID
	Name         string
	ImportStatus ImportStatus
}

// VersionInfo is the result of a version_info lookup, or a node reached via
// packages_versions_of / require_subgraph.
type VersionInfo struct {
	ID      VersionID
	Version string
	Status  version.InstallStatus
}

// RequireEdge is one REQUIRES(v -> p) edge from the induced requirement
// subgraph, carrying the specifier string attached to the edge.
type RequireEdge struct {
	FromVersion VersionID
	ToPackage   string
	Specifier   string
}

// HasVersionEdge is one HAS_VERSION(p -> v) edge.
type HasVersionEdge struct {
	Package string
	Version VersionID
}

// RequireSubgraph is the induced subgraph returned by require_subgraph:
// every Package/Version node reachable from the given package names via
// HAS_VERSION/REQUIRES edges, plus those edges.
type RequireSubgraph struct {
	Packages     []string
	Versions     map[VersionID]VersionInfo
	HasVersion   []HasVersionEdge
	RequireEdges []RequireEdge
}

// Client is the six-operation read-only KG query contract from spec §4.B.
type Client interface {
	// ModuleByName performs an exact-name lookup (§4.B.1).
	ModuleByName(name string) ([]ModuleInfo, error)

	// SubmodulesWithin appends to acc[topID] every submodule name
	// reachable via at most maxHop HAS_MODULE edges from topID, whose own
	// import status is ImportOK (§4.B.2).
	SubmodulesWithin(topID ModuleID, maxHop int, acc map[ModuleID][]string) error

	// AttributesOf appends "submodule.attr" strings for every
	// HAS_ATTRIBUTE edge from any descendant submodule (of the given
	// module ids) whose name is in submoduleNames, into acc keyed by
	// module id (§4.B.3).
	AttributesOf(moduleIDs []ModuleID, submoduleNames []string, acc map[ModuleID][]string) error

	// PackagesVersionsOf finds all packages whose versions expose any of
	// the given modules (§4.B.4).
	PackagesVersionsOf(moduleIDs []ModuleID) (map[string]map[VersionID]struct{}, error)

	// RequireSubgraph returns the induced subgraph over HAS_VERSION and
	// REQUIRES edges rooted at the given package names (§4.B.5).
	RequireSubgraph(packageNames []string) (RequireSubgraph, error)

	// ModuleInfoByID and VersionInfoByID are node-attribute accessors
	// (§4.B.6).
	ModuleInfoByID(id ModuleID) (ModuleInfo, error)
	VersionInfoByID(id VersionID) (VersionInfo, error)
}
