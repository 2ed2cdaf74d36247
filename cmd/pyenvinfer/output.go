package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/infer"
)

// writeReport renders one inference Output into outDir as a
// requirements.txt, a minimal Dockerfile pinning the chosen interpreter,
// and a result.json carrying the full record (including timings and
// status) for programmatic consumers.
func writeReport(outDir string, out *infer.Output) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output dir %s", outDir)
	}

	var reqs bytes.Buffer
	for _, p := range out.InstallPairs {
		if p.Null {
			fmt.Fprintf(&reqs, "%s\n", p.Name)
			continue
		}
		fmt.Fprintf(&reqs, "%s==%s\n", p.Name, p.Version)
	}
	if err := os.WriteFile(filepath.Join(outDir, "requirements.txt"), reqs.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "writing requirements.txt in %s", outDir)
	}

	image := "python:2"
	if out.Dialect == "D3" {
		image = "python:3"
	}
	if out.InterpreterVersion != "" {
		image = "python:" + out.InterpreterVersion
	}
	dockerfile := fmt.Sprintf("FROM %s\nCOPY requirements.txt /tmp/requirements.txt\nRUN pip install -r /tmp/requirements.txt\n", image)
	if err := os.WriteFile(filepath.Join(outDir, "Dockerfile"), []byte(dockerfile), 0o644); err != nil {
		return errors.Wrapf(err, "writing Dockerfile in %s", outDir)
	}

	report, err := json.MarshalIndent(summarize(out), "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling result.json")
	}
	if err := os.WriteFile(filepath.Join(outDir, "result.json"), report, 0o644); err != nil {
		return errors.Wrapf(err, "writing result.json in %s", outDir)
	}
	return nil
}

// reportJSON mirrors spec §6.3's output contract field-for-field, nulling
// out fields the Output struct represents via Go zero values.
type reportJSON struct {
	Dialect            interface{} `json:"dialect"`
	InterpreterVersion interface{} `json:"interpreter_version"`
	InstallPairs       interface{} `json:"install_pairs"`
	Timings            timingsJSON `json:"timings"`
	Status             int         `json:"status"`
}

type timingsJSON struct {
	ParseMS   float64 `json:"parse_ms"`
	MatchMS   float64 `json:"match_ms"`
	SolvingMS float64 `json:"solving_ms"`
}

type pairJSON struct {
	Name     string      `json:"name"`
	Version  interface{} `json:"version"`
	Explicit bool        `json:"explicit"`
}

func summarize(out *infer.Output) reportJSON {
	r := reportJSON{
		Timings: timingsJSON{
			ParseMS:   out.Timings.Parse.Seconds() * 1000,
			MatchMS:   out.Timings.Match.Seconds() * 1000,
			SolvingMS: out.Timings.Solving.Seconds() * 1000,
		},
		Status: int(out.Status),
	}
	if out.Dialect != "" {
		r.Dialect = string(out.Dialect)
	}
	if out.InterpreterVersion != "" {
		r.InterpreterVersion = out.InterpreterVersion
	}
	if out.InstallPairs == nil {
		r.InstallPairs = nil
	} else {
		pairs := make([]pairJSON, 0, len(out.InstallPairs))
		for _, p := range out.InstallPairs {
			pj := pairJSON{Name: p.Name, Explicit: p.Explicit}
			if !p.Null {
				pj.Version = p.Version
			}
			pairs = append(pairs, pj)
		}
		r.InstallPairs = pairs
	}
	return r
}
