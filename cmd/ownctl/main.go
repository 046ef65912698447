package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/owned"
	"github.com/wippyai/owned/guest"
	"github.com/wippyai/owned/resource"
)

func main() {
	var (
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("v", false, "Debug logging")
		jsonLogs    = flag.Bool("json", false, "Force JSON logs")
	)
	flag.Parse()

	tty := term.IsTerminal(int(os.Stdout.Fd()))

	log, err := newLogger(*verbose, *jsonLogs || !tty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	owned.SetLogger(log.Named("owned"))
	resource.SetLogger(log.Named("resource"))
	guest.SetLogger(log.Named("guest"))

	if *interactive {
		if !tty {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(verbose, json bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if json {
		cfg = zap.NewProductionConfig()
	}
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// Point is the value type used by the walkthrough.
type Point struct {
	X, Y float64
}

// NewPoint builds a point from integer coordinates.
func NewPoint(x, y int) Point {
	return Point{X: float64(x), Y: float64(y)}
}

// ScaledPoint builds a point on the diagonal.
func ScaledPoint(v float64) Point {
	return Point{X: v * 10, Y: v * 10}
}

func tracing(name string) owned.DeleterFunc[Point] {
	return func(p *Point) error {
		fmt.Printf("  deleter %s: destroying %+v at %p\n", name, *p, p)
		return nil
	}
}

func run(ctx context.Context) error {
	fmt.Println("== pointers")

	a := owned.Make(NewPoint(3, 4))
	b := owned.NewWithDeleter(&Point{X: 1, Y: 1}, tracing("b"))
	fmt.Printf("a=%v %+v\nb=%v %+v\n", a, a.Value(), b, b.Value())

	a.Swap(b)
	fmt.Printf("after swap: a=%+v b=%+v\n", a.Value(), b.Value())

	fmt.Println("reset a:")
	if err := a.ResetWithDeleter(&Point{X: 9, Y: 9}, tracing("a")); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	raw := b.Release()
	fmt.Printf("released b: %+v, b valid=%v\n", *raw, b.Valid())

	fmt.Println("assign a <- c:")
	c := owned.Make(ScaledPoint(2))
	if err := a.Assign(c); err != nil {
		return fmt.Errorf("assign: %w", err)
	}
	fmt.Printf("a=%+v c valid=%v\n", a.Value(), c.Valid())
	if err := a.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	fmt.Println("\n== table")

	table := resource.NewTable[Point]()
	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		fmt.Printf("  event: handle %d %s\n", e.Handle, e.Type)
	}))
	h1, err := table.Insert(owned.NewWithDeleter(&Point{X: 5}, tracing("h1")))
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	if _, err := table.Insert(owned.NewWithDeleter(&Point{Y: 6}, tracing("h2"))); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	table.Borrow(h1)
	if err := table.Drop(h1); err != nil {
		fmt.Printf("  drop while borrowed: %v\n", err)
	}
	table.ReturnBorrow(h1)
	if err := table.Drop(h1); err != nil {
		return fmt.Errorf("drop: %w", err)
	}
	if err := table.Close(); err != nil {
		return fmt.Errorf("close table: %w", err)
	}

	fmt.Println("\n== guest memory")

	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	heap := guest.NewHeap(16, 1<<20)
	mod, err := heap.Instantiate(ctx, rt, "heap")
	if err != nil {
		return fmt.Errorf("instantiate heap: %w", err)
	}
	alloc, err := guest.NewAllocator(mod)
	if err != nil {
		return err
	}

	r1, err := alloc.Alloc(ctx, 128, 16)
	if err != nil {
		return err
	}
	r2, err := alloc.Alloc(ctx, 32, 8)
	if err != nil {
		return err
	}
	fmt.Printf("r1=%v r2=%v live=%d\n", r1.Value(), r2.Value(), heap.Live())

	if err := r1.Assign(r2); err != nil {
		return fmt.Errorf("assign region: %w", err)
	}
	fmt.Printf("after r1 <- r2: r1=%v live=%d\n", r1.Value(), heap.Live())

	if err := r1.Close(); err != nil {
		return fmt.Errorf("free region: %w", err)
	}
	fmt.Printf("after close: live=%d\n", heap.Live())

	return nil
}
