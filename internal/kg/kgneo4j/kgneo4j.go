// Package kgneo4j is a reference kg.Client implementation for a knowledge
// graph stored in Neo4j, grounded directly on the Cypher strings the
// original system's QueryApplication issued (see
// original_source/bin/run.py). It depends only on a small BoltRunner
// interface rather than a concrete Neo4j driver package, because no Neo4j
// Go driver module appears anywhere in the retrieval pack; callers supply
// their own BoltRunner, backed by whichever driver they already vendor.
//
// This package sits outside the CORE's scope (spec §1 explicitly excludes
// "the knowledge-graph storage backend" from the core); it exists to show
// a complete, wireable collaborator, the same way the teacher's
// vcs_source.go is a complete collaborator behind the SourceManager
// interface rather than part of the solver itself.
package kgneo4j

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/version"
)

// Record is one row of a Cypher query result: positional fields, addressed
// the same way the original's Python driver addresses tuple elements
// (record[0], record[1], ...).
type Record []interface{}

// BoltRunner issues a single Cypher statement against a session and
// returns its result rows.
type BoltRunner interface {
	Run(ctx context.Context, cypher string, params map[string]interface{}) ([]Record, error)
}

// Client adapts a BoltRunner to kg.Client.
type Client struct {
	ctx context.Context
	run BoltRunner
}

// New returns a kg.Client backed by run, querying under ctx.
func New(ctx context.Context, run BoltRunner) *Client {
	return &Client{ctx: ctx, run: run}
}

// ModuleByName mirrors QueryApplication._get_module_info_by_name.
func (c *Client) ModuleByName(name string) ([]kg.ModuleInfo, error) {
	rows, err := c.run.Run(c.ctx,
		"MATCH (m:Module {name:$module_name}) RETURN id(m), m.name, m.import_status;",
		map[string]interface{}{"module_name": name})
	if err != nil {
		return nil, errors.Wrap(err, "module_by_name")
	}
	out := make([]kg.ModuleInfo, 0, len(rows))
	for _, r := range rows {
		if len(r) < 3 {
			continue
		}
		id, _ := r[0].(int64)
		nm, _ := r[1].(string)
		status, _ := r[2].(string)
		out = append(out, kg.ModuleInfo{
			ID:           kg.ModuleID(id),
			Name:         nm,
			ImportStatus: status == "True",
		})
	}
	return out, nil
}

// SubmodulesWithin mirrors QueryApplication._get_submodules_by_module,
// which calls out to the `apoc.neighbors.tohop` procedure for a bounded
// HAS_MODULE> traversal.
func (c *Client) SubmodulesWithin(topID kg.ModuleID, maxHop int, acc map[kg.ModuleID][]string) error {
	rows, err := c.run.Run(c.ctx,
		`MATCH (m) WHERE id(m) = $top_id
		 CALL apoc.neighbors.tohop(m, "HAS_MODULE>", $max_hop)
		 YIELD node
		 RETURN node.name, node.import_status;`,
		map[string]interface{}{"top_id": int64(topID), "max_hop": maxHop})
	if err != nil {
		return errors.Wrap(err, "submodules_within")
	}
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		name, _ := r[0].(string)
		status, _ := r[1].(string)
		if status == "True" {
			acc[topID] = append(acc[topID], name)
		}
	}
	return nil
}

// AttributesOf mirrors QueryApplication._get_attributes_by_module_list.
func (c *Client) AttributesOf(moduleIDs []kg.ModuleID, submoduleNames []string, acc map[kg.ModuleID][]string) error {
	ids := make([]int64, len(moduleIDs))
	for i, id := range moduleIDs {
		ids[i] = int64(id)
	}
	rows, err := c.run.Run(c.ctx,
		`MATCH (m:Module)-[:HAS_MODULE*0..]->(s:Module)-[:HAS_ATTRIBUTE]->(a:Attribute)
		 WHERE id(m) in $module_id_list AND s.name in $submodule_list
		 RETURN id(m), s.name, a.name`,
		map[string]interface{}{"module_id_list": ids, "submodule_list": submoduleNames})
	if err != nil {
		return errors.Wrap(err, "attributes_of")
	}
	for _, r := range rows {
		if len(r) < 3 {
			continue
		}
		id, _ := r[0].(int64)
		sub, _ := r[1].(string)
		attr, _ := r[2].(string)
		acc[kg.ModuleID(id)] = append(acc[kg.ModuleID(id)], sub+"."+attr)
	}
	return nil
}

// PackagesVersionsOf mirrors
// QueryApplication._get_packages_and_versions_by_module_list.
func (c *Client) PackagesVersionsOf(moduleIDs []kg.ModuleID) (map[string]map[kg.VersionID]struct{}, error) {
	ids := make([]int64, len(moduleIDs))
	for i, id := range moduleIDs {
		ids[i] = int64(id)
	}
	rows, err := c.run.Run(c.ctx,
		`MATCH (p:Package)-[:HAS_VERSION]->(v:Version)-[:HAS_MODULE]->(m:Module)
		 WHERE id(m) in $module_id_list
		 RETURN p.name, id(v);`,
		map[string]interface{}{"module_id_list": ids})
	if err != nil {
		return nil, errors.Wrap(err, "packages_versions_of")
	}
	out := make(map[string]map[kg.VersionID]struct{})
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		pname, _ := r[0].(string)
		vid, _ := r[1].(int64)
		if out[pname] == nil {
			out[pname] = make(map[kg.VersionID]struct{})
		}
		out[pname][kg.VersionID(vid)] = struct{}{}
	}
	return out, nil
}

// RequireSubgraph mirrors QueryApplication._get_require_subgraph, which
// uses `apoc.path.subgraphAll` to pull the full REQUIRES>|HAS_VERSION>
// closure from the given packages in one round trip.
func (c *Client) RequireSubgraph(packageNames []string) (kg.RequireSubgraph, error) {
	rows, err := c.run.Run(c.ctx,
		`WITH $package_list AS package_list
		 MATCH (startNode:Package) WHERE startNode.name in package_list
		 WITH collect(startNode) AS starts
		 CALL apoc.path.subgraphAll(starts, {relationshipFilter:"REQUIRES>|HAS_VERSION>"})
		 YIELD nodes, relationships
		 RETURN nodes, relationships`,
		map[string]interface{}{"package_list": packageNames})
	if err != nil {
		return kg.RequireSubgraph{}, errors.Wrap(err, "require_subgraph")
	}

	sub := kg.RequireSubgraph{Versions: make(map[kg.VersionID]kg.VersionInfo)}
	for _, r := range rows {
		if len(r) < 2 {
			continue
		}
		nodes, _ := r[0].([]map[string]interface{})
		rels, _ := r[1].([]map[string]interface{})
		for _, n := range nodes {
			labels, _ := n["labels"].([]string)
			if containsStr(labels, "Package") {
				if name, ok := n["name"].(string); ok {
					sub.Packages = append(sub.Packages, name)
				}
				continue
			}
			if containsStr(labels, "Version") {
				id, _ := n["id"].(int64)
				ver, _ := n["version"].(string)
				statusStr, _ := n["install_status"].(string)
				sub.Versions[kg.VersionID(id)] = kg.VersionInfo{
					ID:      kg.VersionID(id),
					Version: ver,
					Status:  parseInstallStatus(statusStr),
				}
			}
		}
		for _, rel := range rels {
			kind, _ := rel["type"].(string)
			switch kind {
			case "REQUIRES":
				from, _ := rel["start"].(int64)
				toName, _ := rel["end_name"].(string)
				req, _ := rel["requirement"].(string)
				sub.RequireEdges = append(sub.RequireEdges, kg.RequireEdge{
					FromVersion: kg.VersionID(from),
					ToPackage:   toName,
					Specifier:   req,
				})
			case "HAS_VERSION":
				pname, _ := rel["start_name"].(string)
				vid, _ := rel["end"].(int64)
				sub.HasVersion = append(sub.HasVersion, kg.HasVersionEdge{
					Package: pname,
					Version: kg.VersionID(vid),
				})
			}
		}
	}
	return sub, nil
}

func (c *Client) ModuleInfoByID(id kg.ModuleID) (kg.ModuleInfo, error) {
	rows, err := c.run.Run(c.ctx,
		"MATCH (m) WHERE id(m) = $id RETURN m.name, m.import_status;",
		map[string]interface{}{"id": int64(id)})
	if err != nil || len(rows) == 0 {
		return kg.ModuleInfo{}, errors.Wrap(err, "module_info")
	}
	name, _ := rows[0][0].(string)
	status, _ := rows[0][1].(string)
	return kg.ModuleInfo{ID: id, Name: name, ImportStatus: status == "True"}, nil
}

func (c *Client) VersionInfoByID(id kg.VersionID) (kg.VersionInfo, error) {
	rows, err := c.run.Run(c.ctx,
		"MATCH (v) WHERE id(v) = $id RETURN v.version, v.install_status;",
		map[string]interface{}{"id": int64(id)})
	if err != nil || len(rows) == 0 {
		return kg.VersionInfo{}, errors.Wrap(err, "version_info")
	}
	ver, _ := rows[0][0].(string)
	status, _ := rows[0][1].(string)
	return kg.VersionInfo{ID: id, Version: ver, Status: parseInstallStatus(status)}, nil
}

func parseInstallStatus(s string) version.InstallStatus {
	switch s {
	case "Success":
		return version.StatusSuccess
	case "Fail":
		return version.StatusFail
	default:
		return version.StatusUnknown
	}
}

func containsStr(ss []string, want string) bool {
	for _, s := range ss {
		if s == want {
			return true
		}
	}
	return false
}

var _ kg.Client = (*Client)(nil)
