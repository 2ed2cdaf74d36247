package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/parseadapter"
)

// snippetParser is the boundary to the static analyzer that walks a
// snippet's AST under both Python grammars. The CORE only consumes its
// output shape (parseadapter.Snippet); how that shape is produced is a
// collaborator's job, the same way gps.SourceManager hides VCS fetching
// behind an interface rather than folding it into the solver.
type snippetParser interface {
	Parse(ctx context.Context, path string) (*parseadapter.Snippet, time.Duration, error)
}

// execParser shells out to an external analyzer binary and reads its
// result as JSON on stdout. Grounded on vcs_source.go's pattern of
// invoking external VCS binaries (git, hg, bzr, svn) via exec.Command and
// parsing their stdout.
type execParser struct {
	bin string
}

func newExecParser(bin string) *execParser { return &execParser{bin: bin} }

type parseJSON struct {
	D2 *namesJSON `json:"D2"`
	D3 *namesJSON `json:"D3"`
}

type namesJSON struct {
	Imports   []string `json:"imports"`
	Resources []string `json:"resources"`
	Attrs     []string `json:"attrs"`
}

func (e *execParser) Parse(ctx context.Context, path string) (*parseadapter.Snippet, time.Duration, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, e.bin, path)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return nil, time.Since(start), errors.Wrapf(err, "running parser adapter %s: %s", e.bin, out.String())
	}

	var raw parseJSON
	if err := json.Unmarshal(out.Bytes(), &raw); err != nil {
		return nil, time.Since(start), errors.Wrapf(err, "decoding parser adapter output from %s", e.bin)
	}
	elapsed := time.Since(start)

	snip := &parseadapter.Snippet{Parses: make(map[parseadapter.Dialect]*parseadapter.Names)}
	if raw.D2 != nil {
		snip.Parses[parseadapter.D2] = toNames(raw.D2)
	}
	if raw.D3 != nil {
		snip.Parses[parseadapter.D3] = toNames(raw.D3)
	}
	return snip, elapsed, nil
}

func toNames(n *namesJSON) *parseadapter.Names {
	names := parseadapter.NewNames()
	for _, s := range n.Imports {
		names.AddImport(s)
	}
	for _, s := range n.Resources {
		names.AddResource(s)
	}
	for _, s := range n.Attrs {
		names.AddAttr(s)
	}
	return names
}
