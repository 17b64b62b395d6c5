// Command dlfl builds, smooths and inspects DLFL polygon meshes.
//
// Usage:
//
//	dlfl hull   [flags] points.txt    convex hull of a point cloud
//	dlfl smooth [flags] mesh.dlfl     relax a mesh
//	dlfl run    [flags] script.lisp   evaluate a mesh script
//	dlfl stats  [flags] mesh.dlfl     print topology counts and checks
//	dlfl config [flags]               print the effective configuration
//
// Input paths may be "-" for stdin. Meshes are written in the meshio text
// format to stdout unless -o is given.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/dlfl/pkg/config"
	"github.com/chazu/dlfl/pkg/dlfl"
	"github.com/chazu/dlfl/pkg/engine"
	"github.com/chazu/dlfl/pkg/hull"
	"github.com/chazu/dlfl/pkg/kernel"
	"github.com/chazu/dlfl/pkg/kernel/manifold"
	"github.com/chazu/dlfl/pkg/kernel/sdfx"
	"github.com/chazu/dlfl/pkg/meshio"
	"github.com/chazu/dlfl/pkg/smooth"
	"github.com/chazu/dlfl/pkg/tessellate"
)

var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	switch {
	case err == nil, errors.Is(err, flag.ErrHelp):
		return
	case errors.Is(err, errUsage):
		fmt.Fprintf(os.Stderr, "dlfl: %v\n", err)
		os.Exit(2)
	default:
		fmt.Fprintf(os.Stderr, "dlfl: %v\n", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: dlfl <hull|smooth|run|stats|config> [flags] [file]")
}

// run dispatches a subcommand. It is main without the process exit.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stderr)
		return errUsage
	}
	env := &cmdEnv{stdin: stdin, stdout: stdout, stderr: stderr}
	switch args[0] {
	case "hull":
		return env.hullCmd(args[1:])
	case "smooth":
		return env.smoothCmd(args[1:])
	case "run":
		return env.runCmd(args[1:])
	case "stats":
		return env.statsCmd(args[1:])
	case "config":
		return env.configCmd(args[1:])
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return nil
	}
	usage(stderr)
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

type cmdEnv struct {
	stdin          io.Reader
	stdout, stderr io.Writer

	configPath string
	logLevel   string
	output     string
}

// newFlagSet returns a flag set carrying the flags every subcommand shares.
func (e *cmdEnv) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.StringVar(&e.configPath, "config", "", "Path to a TOML config file")
	fs.StringVar(&e.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&e.output, "o", "", "Output path (default: stdout)")
	return fs
}

// setup loads the config file, applies flags, and builds the logger.
func (e *cmdEnv) setup(flags config.Flags) (config.Config, *slog.Logger, error) {
	cfg := config.Default()
	if e.configPath != "" {
		var err error
		if cfg, err = config.Load(e.configPath); err != nil {
			return cfg, nil, err
		}
	}
	flags.LogLevel = e.logLevel
	cfg.Resolve(flags)
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}
	level, _ := cfg.Level()
	log := slog.New(slog.NewTextHandler(e.stderr, &slog.HandlerOptions{Level: level}))
	return cfg, log, nil
}

// open returns the single positional input, with "-" meaning stdin.
func (e *cmdEnv) open(fs *flag.FlagSet) (io.ReadCloser, string, error) {
	if fs.NArg() != 1 {
		return nil, "", fmt.Errorf("%w: %s needs exactly one input file", errUsage, fs.Name())
	}
	path := fs.Arg(0)
	if path == "-" {
		return io.NopCloser(e.stdin), "stdin", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}

func (e *cmdEnv) readMesh(fs *flag.FlagSet) (*dlfl.Mesh, error) {
	r, name, err := e.open(fs)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	m, err := meshio.Read(r, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	m.UpdateAll()
	return m, nil
}

func (e *cmdEnv) writeMesh(m *dlfl.Mesh, opts meshio.WriteOptions) error {
	if e.output == "" {
		return meshio.Write(e.stdout, m, opts)
	}
	return writeMeshFile(e.output, m, opts)
}

func writeMeshFile(path string, m *dlfl.Mesh, opts meshio.WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := meshio.Write(f, m, opts); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (e *cmdEnv) hullCmd(args []string) error {
	fs := e.newFlagSet("hull")
	eps := fs.Float64("epsilon", 0, "Visibility tolerance (default: config or 1e-10)")
	reverse := fs.Bool("reverse", false, "Write faces with inward winding")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := e.setup(config.Flags{Epsilon: *eps})
	if err != nil {
		return err
	}

	r, name, err := e.open(fs)
	if err != nil {
		return err
	}
	pts, err := meshio.ReadPoints(r)
	r.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	start := time.Now()
	b := hull.New(pts, hull.Options{
		Epsilon: cfg.Epsilon,
		Pool:    cfg.PoolOptions(),
		Logger:  log,
	})
	allOnHull, err := b.Construct()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	m := b.Mesh()
	log.Info("hull built",
		"points", len(pts),
		"vertices", m.NumVertices(),
		"faces", m.NumFaces(),
		"all_on_hull", allOnHull,
		"elapsed", time.Since(start))
	return e.writeMesh(m, meshio.WriteOptions{Reverse: *reverse})
}

func (e *cmdEnv) smoothCmd(args []string) error {
	fs := e.newFlagSet("smooth")
	n := fs.Int("n", 0, "Number of passes (default: config or 1)")
	mode := fs.String("mode", "", "Smoothing mode: tangential or planar")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := e.setup(config.Flags{Iterations: *n, Mode: *mode})
	if err != nil {
		return err
	}
	m, err := e.readMesh(fs)
	if err != nil {
		return err
	}
	sm, _ := cfg.Mode()
	st := smooth.Iterate(m, cfg.SmoothIterations, smooth.Options{Mode: sm, Logger: log})
	log.Info("smoothed",
		"mode", sm,
		"passes", cfg.SmoothIterations,
		"moved", st.Moved,
		"skipped", st.Skipped,
		"max_step", st.MaxStep)
	return e.writeMesh(m, meshio.WriteOptions{})
}

func (e *cmdEnv) runCmd(args []string) error {
	fs := e.newFlagSet("run")
	kern := fs.String("kernel", "", "Solid kernel: sdfx or manifold")
	cells := fs.Int("cells", 0, "Marching cubes cells along the longest axis")
	weld := fs.Float64("weld", 0, "Vertex weld distance for polygonized solids")
	timeout := fs.Duration("timeout", 0, "Evaluation time limit")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := e.setup(config.Flags{Kernel: *kern, Cells: *cells, Weld: *weld, Timeout: *timeout})
	if err != nil {
		return err
	}

	r, name, err := e.open(fs)
	if err != nil {
		return err
	}
	src, err := io.ReadAll(r)
	r.Close()
	if err != nil {
		return err
	}

	k, err := newKernel(cfg)
	if err != nil {
		return err
	}
	limit, _ := cfg.Timeout()
	eng := engine.NewEngine(engine.Options{
		Kernel:  k,
		Timeout: limit,
		Weld:    cfg.WeldThreshold,
		Epsilon: cfg.Epsilon,
		Pool:    cfg.PoolOptions(),
		Logger:  log,
	})
	scene, evalErrs, err := eng.Evaluate(string(src))
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(evalErrs) > 0 {
		for _, ee := range evalErrs {
			fmt.Fprintf(e.stderr, "%s:%s\n", name, locate(ee))
		}
		return fmt.Errorf("%s: %d evaluation error(s)", name, len(evalErrs))
	}

	render, err := scene.Render(tessellate.Flat)
	if err != nil {
		return err
	}
	for i, nm := range scene.Named() {
		fmt.Fprintf(e.stdout, "%s\tV=%d E=%d F=%d triangles=%d\n",
			nm.Name, nm.Mesh.NumVertices(), nm.Mesh.NumEdges(), nm.Mesh.NumFaces(), render[i].TriangleCount())
	}
	if e.output == "" {
		return nil
	}

	// With -o, every mesh is written to its own file in that directory.
	if err := os.MkdirAll(e.output, 0o755); err != nil {
		return err
	}
	for _, nm := range scene.Named() {
		path := filepath.Join(e.output, nm.Name+".dlfl")
		if err := writeMeshFile(path, nm.Mesh, meshio.WriteOptions{}); err != nil {
			return err
		}
		log.Debug("wrote mesh", "name", nm.Name, "path", path)
	}
	return nil
}

func newKernel(cfg config.Config) (kernel.Kernel, error) {
	if cfg.Kernel == config.KernelManifold {
		return manifold.New()
	}
	return sdfx.NewWithCells(cfg.MeshCells), nil
}

func locate(ee engine.EvalError) string {
	if ee.Line > 0 {
		return fmt.Sprintf("%d: %s", ee.Line, ee.Message)
	}
	return " " + ee.Message
}

func (e *cmdEnv) statsCmd(args []string) error {
	fs := e.newFlagSet("stats")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, _, err := e.setup(config.Flags{}); err != nil {
		return err
	}
	m, err := e.readMesh(fs)
	if err != nil {
		return err
	}

	boundary := 0
	for edge := range m.Edges() {
		if m.IsBoundary(edge) {
			boundary++
		}
	}
	violations := m.Check()
	euler := m.NumVertices() - m.NumEdges() + m.NumFaces()

	var b strings.Builder
	fmt.Fprintf(&b, "vertices:   %d\n", m.NumVertices())
	fmt.Fprintf(&b, "edges:      %d (%d boundary)\n", m.NumEdges(), boundary)
	fmt.Fprintf(&b, "faces:      %d\n", m.NumFaces())
	fmt.Fprintf(&b, "euler:      %d\n", euler)
	fmt.Fprintf(&b, "closed:     %t\n", m.IsClosed())
	fmt.Fprintf(&b, "violations: %d\n", len(violations))
	for _, v := range violations {
		fmt.Fprintf(&b, "  %s\n", v.Error())
	}
	_, err = io.WriteString(e.stdout, b.String())
	return err
}

func (e *cmdEnv) configCmd(args []string) error {
	fs := e.newFlagSet("config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, _, err := e.setup(config.Flags{})
	if err != nil {
		return err
	}
	return cfg.Write(e.stdout)
}
