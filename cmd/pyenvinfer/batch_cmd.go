package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
	"github.com/theckman/go-flock"

	"github.com/nju-websoft/pycre-go/internal/config"
	"github.com/nju-websoft/pycre-go/internal/infer"
	"github.com/nju-websoft/pycre-go/internal/kg"
	"github.com/nju-websoft/pycre-go/internal/snippetstage"
)

const batchShortHelp = `Infer runtime environments for every snippet in a directory`
const batchLongHelp = `
Walk a directory tree for .py snippets and run infer over each one
independently, writing one output subdirectory per snippet under -out.
Output-directory creation is serialized per snippet with a file lock, so
concurrent workers never race on the same subdirectory.
`

type batchCommand struct {
	configPath string
	kgDumpPath string
	parserBin  string
	outDir     string
	workers    int
}

func (cmd *batchCommand) Name() string      { return "batch" }
func (cmd *batchCommand) Args() string      { return "<dir>" }
func (cmd *batchCommand) ShortHelp() string { return batchShortHelp }
func (cmd *batchCommand) LongHelp() string  { return batchLongHelp }
func (cmd *batchCommand) Hidden() bool      { return false }

func (cmd *batchCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&cmd.configPath, "config", "", "path to a pyenvinfer.toml config file")
	fs.StringVar(&cmd.kgDumpPath, "kg", "", "path to a knowledge-graph JSON dump (required)")
	fs.StringVar(&cmd.parserBin, "parser", "", "path to the external snippet-analyzer binary (required)")
	fs.StringVar(&cmd.outDir, "out", ".", "directory under which each snippet gets its own output subdirectory")
	fs.IntVar(&cmd.workers, "workers", 0, "worker pool size (0 uses the config default)")
}

// batchResult is what one worker reports back for a single snippet, for
// the closing summary line.
type batchResult struct {
	path string
	err  error
}

func (cmd *batchCommand) Run(args []string) error {
	if len(args) != 1 {
		return errors.New("batch takes exactly one directory path")
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
	workers := cmd.workers
	if workers <= 0 {
		workers = cfg.Batch.Workers
	}

	client, err := loadKG(cmd.kgDumpPath)
	if err != nil {
		return err
	}

	var paths []string
	walkErr := godirwalk.Walk(args[0], &godirwalk.Options{
		Unsorted: true,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			if strings.HasSuffix(osPathname, ".py") {
				paths = append(paths, osPathname)
			}
			return nil
		},
	})
	if walkErr != nil {
		return errors.Wrapf(walkErr, "walking %s", args[0])
	}

	jobs := make(chan string)
	results := make(chan batchResult)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- batchResult{path: path, err: cmd.runOne(cfg, client, path)}
			}
		}()
	}
	go func() {
		for _, p := range paths {
			jobs <- p
		}
		close(jobs)
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var failed int
	for r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.path, r.err)
			continue
		}
		if *verbose {
			fmt.Fprintf(os.Stderr, "%s: ok\n", r.path)
		}
	}
	fmt.Printf("%d snippets, %d failed\n", len(paths), failed)
	if failed > 0 {
		return errors.Errorf("%d of %d snippets failed", failed, len(paths))
	}
	return nil
}

// runOne infers one snippet and writes its report into its own
// subdirectory of the -out directory, serialized with a file lock so two
// workers that land on the same output subdirectory (two snippets
// sharing a basename from different source subtrees) never interleave
// writes.
func (cmd *batchCommand) runOne(cfg *config.Config, client kg.Client, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.SolverTimeout())
	defer cancel()

	staged, err := snippetstage.Stage(path, filepath.Join(cfg.Batch.StagingDir, fmt.Sprintf("%d", os.Getpid())))
	if err != nil {
		return err
	}
	defer snippetstage.Cleanup(staged)

	parser := newExecParser(cmd.parserBin)
	snippet, parseElapsed, err := parser.Parse(ctx, staged)
	if err != nil {
		return err
	}

	out, err := infer.Infer(client, snippet, infer.Options{ParseElapsed: parseElapsed})
	if err != nil && out == nil {
		return err
	}

	snipOutDir := filepath.Join(cmd.outDir, sanitizeName(path))
	if err := os.MkdirAll(cmd.outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output root %s", cmd.outDir)
	}

	lock := flock.NewFlock(snipOutDir + ".lock")
	if lockErr := lock.Lock(); lockErr != nil {
		return errors.Wrapf(lockErr, "locking output dir %s", snipOutDir)
	}
	defer lock.Unlock()

	return writeReport(snipOutDir, out)
}

// sanitizeName turns a snippet's path into a filesystem-safe directory
// name, the way the teacher's project_manager.go derives a vendor
// subdirectory name from an import path.
func sanitizeName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
}
