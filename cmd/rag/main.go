package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ragindex/internal/app"
	"ragindex/internal/config"
	"ragindex/internal/domain"
	"ragindex/internal/extract"
	"ragindex/internal/logging"
	"ragindex/internal/tui"
)

const usage = `Usage: rag [--config=config.yaml] [--vectors] <command> [args]

Commands:
  ingest <file...>   extract, chunk, embed and store .txt/.md/.pdf files (globs allowed)
  ask <question>     answer a question from the indexed passages
  inspect            print every stored record as JSON
  info               print index diagnostics
  reset              drop every record and start a new index generation
  tui                interactive question/answer screen
`

func main() {
	_ = godotenv.Load()

	var cfgPath string
	var vectors bool
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/rag/config.yaml if not provided)")
	flag.BoolVar(&vectors, "vectors", false, "inspect: include raw vectors")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, _, err := config.Resolve(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	var logOut io.Writer = os.Stderr
	if args[0] == "tui" {
		logOut = io.Discard
	}
	logging.Configure(logOut, cfg.Log.Level)

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, a, args[0], args[1:], vectors)
	stop()
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, a *app.App, cmd string, args []string, vectors bool) error {
	svc := a.Service
	switch cmd {
	case "ingest":
		files, err := expand(args)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return errors.New("ingest: no files given")
		}
		total := 0
		for _, f := range files {
			text, err := extract.File(f)
			if err != nil {
				return err
			}
			n, err := svc.Ingest(ctx, text)
			total += n
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			fmt.Printf("%s: %d chunks\n", f, n)
		}
		fmt.Printf("ingested %d chunks from %d files\n", total, len(files))
	case "ask":
		ans, err := svc.Ask(ctx, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Println(ans.Response)
		fmt.Println()
		for i, p := range ans.Passages {
			fmt.Printf("[%d] %.3f  %s\n", i+1, p.Score, p.Text)
		}
	case "inspect":
		recs, err := svc.Inspect(ctx)
		if err != nil {
			return err
		}
		if !vectors {
			for i := range recs {
				recs[i].Vector = nil
			}
		}
		return printJSON(recs)
	case "info":
		info, err := svc.Info(ctx)
		if err != nil {
			return err
		}
		return printJSON(info)
	case "reset":
		if err := svc.Reset(ctx); err != nil {
			return err
		}
		fmt.Println("index reset")
	case "tui":
		info, err := svc.Info(ctx)
		if err != nil {
			return err
		}
		m := tui.New(ctx, svc, describe(info))
		_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

// expand resolves glob patterns. A pattern without matches is kept so the
// read error names it.
func expand(patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, err
		}
		if matches == nil {
			matches = []string{p}
		}
		out = append(out, matches...)
	}
	return out, nil
}

func describe(info domain.IndexInfo) string {
	if info.Count == 0 {
		return "Index is empty. Run `rag ingest <files>` first."
	}
	return fmt.Sprintf("%d passages, dimension %d, generation %d", info.Count, info.Dimension, info.Generation)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
