// Command gflow is a reference driver for the pkg/pipeline compiler: it
// reads a G-code script (from a file, stdin, or a raw terminal fed one
// keystroke at a time) and prints each emitted (command, fields[]) tuple,
// grounded on original_source/scripts/dump-gcode.py's read-parse-print loop.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/itchyny/gojq"
	"github.com/mattn/go-isatty"
	term "github.com/pkg/term"

	"github.com/cncflow/gflow/cmd/gflow/toolpath"
	"github.com/cncflow/gflow/pkg/host"
	"github.com/cncflow/gflow/pkg/hostenv"
	"github.com/cncflow/gflow/pkg/pipeline"
	"github.com/cncflow/gflow/pkg/types"
)

func main() {
	var (
		interactive = flag.Bool("i", false, "read the terminal in raw mode, one keystroke at a time")
		envFlag     = flag.String("env", "", "host environment: yaml:PATH or bolt:PATH")
		query       = flag.String("query", "", "run a jq-style query over the host environment tree and exit, without executing the script")
		svgPath     = flag.String("svg", "", "write an SVG toolpath preview of G0/G1/G2/G3 moves to PATH")
		svgScale    = flag.Float64("svg-scale", 4, "pixels per G-code unit in the -svg render")
	)
	flag.Parse()

	env, closeEnv, err := openEnv(*envFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gflow: %v\n", err)
		os.Exit(1)
	}
	if closeEnv != nil {
		defer closeEnv()
	}

	if *query != "" {
		if err := runQuery(os.Stdout, env, *query); err != nil {
			fmt.Fprintf(os.Stderr, "gflow: %v\n", err)
			os.Exit(1)
		}
		return
	}

	colorErrors := isatty.IsTerminal(os.Stdout.Fd())

	var render *toolpath.Renderer
	var svgFile *os.File
	if *svgPath != "" {
		svgFile, err = os.Create(*svgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "gflow: %v\n", err)
			os.Exit(1)
		}
		defer svgFile.Close()
		render = toolpath.New(svgFile, 800, 800, *svgScale)
		defer render.Close()
	}

	cb := hostCallbacks(env, render)

	p := pipeline.New(pipeline.WithHost(cb))

	if *interactive {
		runInteractive(p, colorErrors)
		return
	}

	data, err := readInput(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "gflow: %v\n", err)
		os.Exit(1)
	}

	p.Feed(data)
	p.FeedFinish()
	drain(p, colorErrors)
}

func readInput(args []string) ([]byte, error) {
	if len(args) > 0 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

// drain pops every pending result and prints it: the command on one line,
// then each field on a line of its own.
func drain(p *pipeline.Pipeline, colorErrors bool) {
	for p.Len() > 0 {
		res, _ := p.ExecNext()
		printResult(os.Stdout, res, colorErrors)
	}
}

func printResult(w io.Writer, res pipeline.Result, colorErrors bool) {
	switch res.Kind {
	case pipeline.ResultCommand:
		fmt.Fprintln(w, res.Command)
		for _, f := range res.Fields {
			fmt.Fprintln(w, f)
		}
	case pipeline.ResultError:
		if colorErrors {
			fmt.Fprintf(w, "\033[31m* %s\033[0m\n", res.Err.Message)
		} else {
			fmt.Fprintf(w, "* %s\n", res.Err.Message)
		}
	}
}

// hostCallbacks wires an optional host environment's Lookup/Serialize into
// the pipeline, and an optional toolpath.Renderer's Feed as an additional
// Exec side effect — the driver doesn't stop draining on a renderer's
// account, so Exec always returns true.
func hostCallbacks(env hostEnv, render *toolpath.Renderer) host.Callbacks {
	cb := host.Callbacks{
		Fatal: func(msg string) {
			fmt.Fprintf(os.Stderr, "gflow: fatal: %s\n", msg)
			os.Exit(1)
		},
	}
	if env != nil {
		cb.Lookup = env.Lookup
		cb.Serialize = env.Serialize
	}
	if render != nil {
		cb.Exec = func(command string, fields []string) bool {
			render.Feed(command, fields)
			return true
		}
	}
	return cb
}

// runInteractive puts stdin's controlling terminal in raw mode and feeds
// the pipeline one byte at a time, draining and printing after every byte
// — a direct, user-visible demonstration of the incrementality contract
// (every partial token survives across Feed calls, even single-byte ones).
func runInteractive(p *pipeline.Pipeline, colorErrors bool) {
	tty, err := term.Open("/dev/tty")
	if err != nil {
		fmt.Fprintf(os.Stderr, "gflow: -i requires a controlling terminal: %v\n", err)
		os.Exit(1)
	}
	if err := term.RawMode(tty); err != nil {
		fmt.Fprintf(os.Stderr, "gflow: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		tty.Restore()
		tty.Close()
	}()

	buf := make([]byte, 1)
	for {
		n, err := tty.Read(buf)
		if n == 0 || err != nil {
			break
		}
		if buf[0] == 4 { // ctrl-d
			break
		}
		p.Feed(buf[:n])
		drain(p, colorErrors)
	}
	p.FeedFinish()
	drain(p, colorErrors)
}

// hostEnv is the subset of hostenv.YAMLEnv/hostenv.BoltEnv the driver needs:
// Lookup/Serialize to wire into the pipeline, Tree to dump the whole
// environment as JSON for -query.
type hostEnv interface {
	Lookup(key string, parent types.Value) (types.Value, bool)
	Serialize(d types.Value) string
	Tree() (map[string]interface{}, error)
}

func runQuery(w io.Writer, env hostEnv, query string) error {
	if env == nil {
		return fmt.Errorf("-query requires -env to select a host environment")
	}
	tree, err := env.Tree()
	if err != nil {
		return fmt.Errorf("dump environment tree: %w", err)
	}

	q, err := gojq.Parse(query)
	if err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}

	// Round-trip through JSON so gojq sees plain map[string]interface{}/
	// []interface{} values rather than this module's own map shapes.
	blob, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("encode environment tree: %w", err)
	}
	var data interface{}
	if err := json.Unmarshal(blob, &data); err != nil {
		return fmt.Errorf("decode environment tree: %w", err)
	}

	out := bufio.NewWriter(w)
	defer out.Flush()

	iter := q.Run(data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(b))
	}
	return nil
}

func openEnv(spec string) (hostEnv, func(), error) {
	if spec == "" {
		return nil, nil, nil
	}
	kind, path, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, nil, fmt.Errorf("-env must be yaml:PATH or bolt:PATH, got %q", spec)
	}
	switch kind {
	case "yaml":
		env, err := hostenv.LoadYAMLEnv(path)
		if err != nil {
			return nil, nil, err
		}
		return env, nil, nil
	case "bolt":
		env, err := hostenv.OpenBoltEnv(path)
		if err != nil {
			return nil, nil, err
		}
		return env, func() { env.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("-env must be yaml:PATH or bolt:PATH, got %q", spec)
	}
}
