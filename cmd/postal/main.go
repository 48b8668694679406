package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/config"
	"github.com/wippyai/postal/engine"
	"github.com/wippyai/postal/engine/libpostal"
	"github.com/wippyai/postal/errors"
)

var (
	y = color.New(color.FgHiYellow)
	g = color.New(color.FgHiGreen)
	r = color.New(color.FgHiRed)
	b = color.New(color.FgHiBlue)
)

type options struct {
	command     string
	addresses   []string
	configFile  string
	dataDir     string
	langs       string
	workers     int
	jsonOut     bool
	verbose     bool
	batch       bool
	debugConfig bool
	interactive bool
}

func main() {
	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return
		}
		r.Fprintf(color.Error, "Error: %v\n", err)
		os.Exit(2)
	}

	color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))

	if err := run(opts, os.Stdin, os.Stdout); err != nil {
		r.Fprintf(color.Error, "Error: %v\n", err)
		os.Exit(1)
	}
}

// parseArgs reads the global flags, then the command and its own flags.
// Command flags follow the command name: postal expand -lang fr <address>.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("postal", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		usage(stderr)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configFile, "config", "", "Path to the YAML configuration file")
	fs.StringVar(&opts.dataDir, "datadir", "", "libpostal data directory")
	fs.StringVar(&opts.langs, "lang", "", "Language hints for expand (comma-separated)")
	fs.IntVar(&opts.workers, "workers", runtime.GOMAXPROCS(0), "Concurrent lines in batch mode")
	addOutputFlags(fs, &opts)
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	fs.BoolVar(&opts.debugConfig, "debug-config", false, "Dump the resolved configuration and exit")
	fs.BoolVar(&opts.interactive, "i", false, "Interactive mode with TUI")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return opts, nil
	}
	opts.command = rest[0]

	cmd := flag.NewFlagSet(opts.command, flag.ContinueOnError)
	cmd.SetOutput(stderr)
	cmd.Usage = func() {
		usage(stderr)
		cmd.PrintDefaults()
	}
	switch opts.command {
	case "expand":
		cmd.StringVar(&opts.langs, "lang", opts.langs, "Language hints (comma-separated)")
		addOutputFlags(cmd, &opts)
	case "parse":
		addOutputFlags(cmd, &opts)
	default:
		if len(rest) > 1 {
			opts.addresses = rest[1:]
		}
		return opts, nil
	}
	if err := cmd.Parse(rest[1:]); err != nil {
		return opts, err
	}
	if addrs := cmd.Args(); len(addrs) > 0 {
		opts.addresses = addrs
	}
	return opts, nil
}

func addOutputFlags(fs *flag.FlagSet, opts *options) {
	fs.BoolVar(&opts.jsonOut, "json", opts.jsonOut, "Print results as JSON")
	fs.BoolVar(&opts.batch, "batch", opts.batch, "Read one address per line from stdin")
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: postal [flags] expand [-lang fr,de] [-json] <address>")
	fmt.Fprintln(w, "       postal [flags] parse [-json] <address>")
	fmt.Fprintln(w, "       postal [flags] expand|parse -batch < addresses.txt")
	fmt.Fprintln(w, "       postal [flags] -i  (interactive mode)")
}

func run(opts options, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Acquire(opts.configFile)
	if err != nil {
		return err
	}
	if err := applyFlags(cfg, opts); err != nil {
		return err
	}

	if opts.debugConfig {
		spew.Fdump(stdout, cfg)
		return nil
	}

	if !opts.interactive {
		switch opts.command {
		case "expand":
			cfg.Expand, cfg.Parse = true, false
		case "parse":
			cfg.Expand, cfg.Parse = false, true
		default:
			usage(os.Stderr)
			return fmt.Errorf("unknown command %q", opts.command)
		}
		if !opts.batch && len(opts.addresses) == 0 {
			usage(os.Stderr)
			return fmt.Errorf("%s: no address given", opts.command)
		}
	}

	log, err := cfg.Logger()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	engine.SetLogger(log.Named("engine"))

	if !libpostal.Available() {
		return errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Detail("postal was built without cgo, rebuild with CGO_ENABLED=1 and libpostal installed").
			Build()
	}

	ctx := postal.New(postal.WithLogger(log))
	if err := ctx.Init(cfg.InitOptions()); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer ctx.Close()

	if opts.interactive {
		return runInteractive(ctx, cfg.Languages)
	}

	p := &printer{w: stdout, json: opts.jsonOut}
	q := &query{ctx: ctx, command: opts.command, langs: cfg.Languages}

	if opts.batch {
		return runBatch(q, p, stdin, opts.workers)
	}

	res := q.do(strings.Join(opts.addresses, " "))
	if res.err != nil && !opts.jsonOut {
		return res.err
	}
	if err := p.print(res, false); err != nil {
		return err
	}
	return res.err
}

func applyFlags(cfg *config.Config, opts options) error {
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.langs != "" {
		cfg.Languages = strings.Split(opts.langs, ",")
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	return cfg.CheckSettings()
}

type query struct {
	ctx     *postal.Context
	command string
	langs   []string
}

type result struct {
	err        error
	Address    string             `json:"address"`
	Expansions []string           `json:"expansions,omitempty"`
	Components []postal.Component `json:"components,omitempty"`
	Error      string             `json:"error,omitempty"`
}

func (q *query) do(address string) *result {
	res := &result{Address: address}
	switch q.command {
	case "expand":
		res.Expansions, res.err = q.ctx.Expand(address, q.langs...)
	case "parse":
		res.Components, res.err = q.ctx.Parse(address)
	}
	if res.err != nil {
		res.Error = res.err.Error()
	}
	return res
}

// runBatch processes stdin lines concurrently and prints them in input order.
func runBatch(q *query, p *printer, stdin io.Reader, workers int) error {
	var lines []string
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	results := make([]*result, len(lines))
	var eg errgroup.Group
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for i, line := range lines {
		eg.Go(func() error {
			results[i] = q.do(line)
			return nil
		})
	}
	_ = eg.Wait()

	failed := 0
	for _, res := range results {
		if res.err != nil {
			failed++
		}
		if err := p.print(res, true); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d addresses failed", failed, len(results))
	}
	return nil
}

type printer struct {
	w    io.Writer
	json bool
}

func (p *printer) print(res *result, header bool) error {
	if p.json {
		return json.NewEncoder(p.w).Encode(res)
	}

	if header {
		b.Fprintln(p.w, res.Address)
	}
	if res.err != nil {
		r.Fprintf(p.w, "  error: %v\n", res.err)
		return nil
	}
	for _, e := range res.Expansions {
		fmt.Fprintln(p.w, e)
	}
	for _, c := range res.Components {
		fmt.Fprintf(p.w, "%s: %s\n", y.Sprint(c.Label), g.Sprint(c.Value))
	}
	return nil
}
