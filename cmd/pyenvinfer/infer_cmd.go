package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"

	"github.com/nju-websoft/pycre-go/internal/config"
	"github.com/nju-websoft/pycre-go/internal/infer"
	"github.com/nju-websoft/pycre-go/internal/snippetstage"
)

const inferShortHelp = `Infer a runtime environment for one snippet`
const inferLongHelp = `
Infer a compatible Python dialect, interpreter version, and pinned
install order for a single snippet file, writing requirements.txt,
Dockerfile, and result.json into the output directory.
`

type inferCommand struct {
	configPath      string
	kgDumpPath      string
	parserBin       string
	outDir          string
	interpreterVers string
}

func (cmd *inferCommand) Name() string      { return "infer" }
func (cmd *inferCommand) Args() string      { return "<snippet.py>" }
func (cmd *inferCommand) ShortHelp() string { return inferShortHelp }
func (cmd *inferCommand) LongHelp() string  { return inferLongHelp }
func (cmd *inferCommand) Hidden() bool      { return false }

func (cmd *inferCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.configPath, "config", "", "path to a pyenvinfer.toml config file")
	fs.StringVar(&cmd.kgDumpPath, "kg", "", "path to a knowledge-graph JSON dump (required)")
	fs.StringVar(&cmd.parserBin, "parser", "", "path to the external snippet-analyzer binary (required)")
	fs.StringVar(&cmd.outDir, "out", ".", "directory to write requirements.txt/Dockerfile/result.json into")
	fs.StringVar(&cmd.interpreterVers, "interpreter-version", "", "target interpreter version, if already known")
}

func (cmd *inferCommand) Run(args []string) error {
	if len(args) != 1 {
		return errors.New("infer takes exactly one snippet path")
	}
	if cmd.kgDumpPath == "" {
		return errors.New("-kg is required")
	}
	if cmd.parserBin == "" {
		return errors.New("-parser is required")
	}

	cfg := config.Default()
	if cmd.configPath != "" {
		loaded, err := config.Load(cmd.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	client, err := loadKG(cmd.kgDumpPath)
	if err != nil {
		return err
	}

	staged, err := snippetstage.Stage(args[0], cfg.Batch.StagingDir)
	if err != nil {
		return err
	}
	defer snippetstage.Cleanup(staged)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SolverTimeout())
	defer cancel()

	parser := newExecParser(cmd.parserBin)
	snippet, parseElapsed, err := parser.Parse(ctx, staged)
	if err != nil {
		return err
	}

	out, err := infer.Infer(client, snippet, infer.Options{
		InterpreterVersion: cmd.interpreterVers,
		ParseElapsed:       parseElapsed,
	})
	if err != nil && out == nil {
		return err
	}
	if err != nil && *verbose {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	if writeErr := writeReport(cmd.outDir, out); writeErr != nil {
		return writeErr
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summarize(out))
}
