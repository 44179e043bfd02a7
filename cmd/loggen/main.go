package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "loggen:", err)
		os.Exit(1)
	}
}

type options struct {
	rate     float64
	count    int
	out      string
	appendTo bool
	duration time.Duration
	seed     int64
	errRate  float64
}

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "loggen",
		Short: "Write synthetic timestamped log lines",
		Long: `loggen writes plain-text log lines with an RFC 3339 timestamp, a level
(DEBUG, INFO, WARN, ERROR) and a component, at a steady rate. Use it to feed
logscope through a pipe or to grow a file for --follow.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if o.duration > 0 {
				ctx, cancel = context.WithTimeout(ctx, o.duration)
				defer cancel()
			}

			var w io.Writer = cmd.OutOrStdout()
			if o.out != "" {
				flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
				if o.appendTo {
					flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
				}
				f, err := os.OpenFile(o.out, flags, 0o644)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
				fmt.Fprintf(cmd.ErrOrStderr(), "generating logs -> %s at %.2f lines/s\n", o.out, o.rate)
			}

			seed := o.seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			gen := newGenerator(rand.New(rand.NewSource(seed)), time.Now, o.errRate)
			n, err := writeLines(ctx, w, gen, o.rate, o.count)
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d lines\n", n)
			return err
		},
	}
	f := cmd.Flags()
	f.Float64Var(&o.rate, "rate", 5, "lines per second (0 writes as fast as possible)")
	f.IntVar(&o.count, "count", 0, "stop after this many lines (0 runs until interrupted)")
	f.StringVarP(&o.out, "out", "o", "", "write to this file instead of stdout")
	f.BoolVar(&o.appendTo, "append", false, "append to --out instead of truncating it")
	f.DurationVar(&o.duration, "duration", 0, "stop after this long (e.g. 30s, 2m)")
	f.Int64Var(&o.seed, "seed", 0, "random seed (0 picks one)")
	f.Float64Var(&o.errRate, "errors", 0.05, "fraction of lines logged at ERROR")
	return cmd
}

// writeLines writes gen's lines to w at rate lines per second until count
// lines are written or ctx is done. Cancellation is not an error.
func writeLines(ctx context.Context, w io.Writer, gen func() string, rate float64, count int) (int, error) {
	bw := bufio.NewWriter(w)
	defer bw.Flush()

	var tick <-chan time.Time
	if rate > 0 {
		interval := time.Duration(float64(time.Second) / rate)
		if interval <= 0 {
			interval = time.Microsecond
		}
		t := time.NewTicker(interval)
		defer t.Stop()
		tick = t.C
	}
	n := 0
	for count <= 0 || n < count {
		if tick != nil {
			select {
			case <-ctx.Done():
				return n, nil
			case <-tick:
			}
		} else if ctx.Err() != nil {
			return n, nil
		}
		if _, err := bw.WriteString(gen() + "\n"); err != nil {
			return n, err
		}
		n++
		// Paced output is flushed per line so readers see it live.
		if tick != nil {
			if err := bw.Flush(); err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// newGenerator returns a function producing one log line per call. errRate
// is the share of ERROR lines; the rest is weighted towards INFO.
func newGenerator(r *rand.Rand, now func() time.Time, errRate float64) func() string {
	pick := func(xs []string) string { return xs[r.Intn(len(xs))] }
	level := func() string {
		x := r.Float64()
		switch {
		case x < errRate:
			return "ERROR"
		case x < errRate+0.15:
			return "WARN"
		case x < errRate+0.35:
			return "DEBUG"
		default:
			return "INFO"
		}
	}
	return func() string {
		ts := now().UTC().Format(time.RFC3339Nano)
		lvl := level()
		comp := pick(components)
		if r.Intn(3) == 0 {
			return fmt.Sprintf("%s %-5s %s: %s %s -> %d latency_ms=%.2f user_id=%d",
				ts, lvl, comp, pick(methods), pick(paths), status(r, lvl), 0.5+r.Float64()*450, r.Intn(10000))
		}
		return fmt.Sprintf("%s %-5s %s: %s id=%s", ts, lvl, comp, message(r, lvl), hex(r, 8))
	}
}

var (
	components = []string{"api", "worker", "auth", "gateway", "billing"}
	methods    = []string{"GET", "POST", "PUT", "PATCH", "DELETE"}
	paths      = []string{"/", "/health", "/login", "/logout", "/api/v1/items", "/static/app.js"}
	infoMsgs   = []string{"user authenticated", "request completed", "cache hit", "db query executed", "background job finished"}
	warnMsgs   = []string{"cache miss", "rate limit exceeded", "slow query", "retrying request"}
	errorMsgs  = []string{"connection timeout", "invalid credentials", "disk full", "upstream returned 502"}
)

func message(r *rand.Rand, lvl string) string {
	switch lvl {
	case "ERROR":
		return errorMsgs[r.Intn(len(errorMsgs))]
	case "WARN":
		return warnMsgs[r.Intn(len(warnMsgs))]
	default:
		return infoMsgs[r.Intn(len(infoMsgs))]
	}
}

func status(r *rand.Rand, lvl string) int {
	switch lvl {
	case "ERROR":
		return []int{500, 502, 503}[r.Intn(3)]
	case "WARN":
		return []int{404, 429}[r.Intn(2)]
	default:
		return []int{200, 201, 204, 302}[r.Intn(4)]
	}
}

func hex(r *rand.Rand, n int) string {
	const digits = "0123456789abcdef"
	b := make([]byte, n)
	for i := range b {
		b[i] = digits[r.Intn(len(digits))]
	}
	return string(b)
}
