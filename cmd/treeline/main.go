package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/treeline/internal/datasource"
	"github.com/vanderheijden86/treeline/pkg/config"
	"github.com/vanderheijden86/treeline/pkg/engine"
	"github.com/vanderheijden86/treeline/pkg/export"
	"github.com/vanderheijden86/treeline/pkg/ui"
	"github.com/vanderheijden86/treeline/pkg/version"
	"github.com/vanderheijden86/treeline/pkg/watcher"
)

func main() {
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configPath := flag.String("config", "", "Config file path (default: XDG config dir)")
	exportPath := flag.String("export", "", "Render the tree to an SVG file instead of starting the viewer")
	exportDepth := flag.Int("export-depth", 3, "Tree depth to expand for --export")
	pageSize := flag.Int("page-size", 0, "Override the source page size")
	noWatch := flag.Bool("no-watch", false, "Disable source file watching")
	flag.Parse()

	if *help {
		fmt.Println("Usage: treeline [options] [source]")
		fmt.Println("\nA terminal viewer for large trees backed by SQLite or JSON.")
		fmt.Println("Source is a tree.db / tree.json file or a directory containing one;")
		fmt.Println("defaults to the current directory.")
		flag.PrintDefaults()
		os.Exit(0)
	}
	if *versionFlag {
		fmt.Printf("treeline %s\n", version.Version)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if *pageSize > 0 {
		cfg.Engine.PageSize = *pageSize
	}

	target := "."
	if flag.NArg() > 0 {
		target = flag.Arg(0)
	}
	sourcePath, err := datasource.Discover(target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	src, err := datasource.Open(sourcePath, datasource.Options{PageSize: cfg.Engine.PageSize})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	if *exportPath != "" {
		if err := runExport(src, *exportPath, *exportDepth); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Wrote %s\n", *exportPath)
		return
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "treeline needs a terminal; use --export for headless output")
		os.Exit(1)
	}

	model := ui.NewModel(src, cfg)

	var w *watcher.Watcher
	if cfg.Watch.Enabled && !*noWatch {
		debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
		w, err = watcher.New(sourcePath,
			watcher.WithDebounceDuration(debounce),
			watcher.WithOnChange(model.NotifyChange))
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Watcher disabled: %v\n", err)
			w = nil
		}
	}
	if w != nil {
		defer w.Stop()
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

// runExport renders the tree headlessly: roots loaded, branches expanded to
// the requested depth, all pages filled, then drawn as an SVG outline.
func runExport(src datasource.Source, outPath string, depth int) error {
	if err := confirmOverwrite(outPath); err != nil {
		return err
	}
	eng, err := loadToDepth(context.Background(), src, depth)
	if err != nil {
		return err
	}
	return export.WriteSVGFile(outPath, eng, export.SVGOptions{
		Title: src.Path(),
	})
}

// confirmOverwrite asks before clobbering an existing file when stdin is a
// terminal. Non-interactive runs overwrite silently, for scripting.
func confirmOverwrite(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil
	}
	overwrite := true
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(fmt.Sprintf("%s exists. Overwrite?", path)).
			Value(&overwrite),
	))
	if err := form.Run(); err != nil {
		return err
	}
	if !overwrite {
		return fmt.Errorf("refusing to overwrite %s", path)
	}
	return nil
}

// loadToDepth drives the engine synchronously: a breadth-first expansion of
// every branch down to maxDepth, pages included.
func loadToDepth(ctx context.Context, src datasource.Source, maxDepth int) (*engine.Engine, error) {
	eng := engine.NewEngine(src.Adapter(), engine.DefaultConfig(), nil)
	roots, err := src.LoadRoots(ctx)
	if err != nil {
		return nil, err
	}
	eng.InitRoots(roots)

	frontier := make([]engine.NodeID, 0, len(roots))
	for _, row := range eng.VisibleRows() {
		frontier = append(frontier, row.ID)
	}
	for level := 0; level < maxDepth && len(frontier) > 0; level++ {
		var next []engine.NodeID
		for _, id := range frontier {
			n := eng.Node(id)
			if n == nil || !n.Expandable() {
				continue
			}
			if eng.ToggleExpand(id, true) {
				res, err := src.LoadChildren(ctx, string(id))
				if err != nil {
					eng.SetNodeError(id, err)
					continue
				}
				eng.SetChildrenLoaded(id, res)
			}
			if err := fillAllPages(ctx, src, eng, id); err != nil {
				return nil, err
			}
			for _, child := range eng.Store().Children(id) {
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return eng, nil
}

func fillAllPages(ctx context.Context, src datasource.Source, eng *engine.Engine, id engine.NodeID) error {
	ps := eng.PageStateFor(id)
	if ps == nil {
		return nil
	}
	pages := eng.EnsureRangeLoaded(id, 0, ps.TotalCount-1)
	results, err := datasource.PrefetchPages(ctx, src, string(id), pages)
	if err != nil {
		return err
	}
	for _, pr := range results {
		eng.SetPageLoaded(id, pr.Page, pr.Items)
	}
	return nil
}
