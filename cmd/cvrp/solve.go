package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vrpls/internal/config"
	"vrpls/internal/opt"
	"vrpls/internal/vrp"
)

// resultLine is the one-line JSON summary printed after a solve.
type resultLine struct {
	Instance string      `json:"Instance"`
	Time     json.Number `json:"Time"`
	Result   json.Number `json:"Result"`
	Solution string      `json:"Solution"`
}

func fixed2(x float64) json.Number {
	return json.Number(strconv.FormatFloat(x, 'f', 2, 64))
}

type solveFlags struct {
	config    string
	timeout   time.Duration
	workers   int
	seed      int64
	operators []string
	out       string
}

func newSolveCmd() *cobra.Command {
	var f solveFlags
	cmd := &cobra.Command{
		Use:   "solve <instance-file>",
		Short: "Search for a low-distance solution and print the result line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadSearch(f.config)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("timeout") {
				cfg.Timeout = f.timeout
			}
			if flags.Changed("workers") {
				cfg.Workers = f.workers
			}
			if flags.Changed("seed") {
				cfg.Seed = f.seed
			}
			if flags.Changed("operators") {
				cfg.Operators = f.operators
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return solve(ctx, cmd, args[0], cfg, f.out)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.config, "config", os.Getenv("CVRP_CONFIG"), "YAML file with a search: section")
	fl.DurationVar(&f.timeout, "timeout", 0, "search time budget, e.g. 30s")
	fl.IntVar(&f.workers, "workers", 0, "candidate worker goroutines")
	fl.Int64Var(&f.seed, "seed", 0, "random seed")
	fl.StringSliceVar(&f.operators, "operators", nil, "operator roster, comma separated")
	fl.StringVar(&f.out, "out", "", "also write a solution file to this path")
	return cmd
}

func solve(ctx context.Context, cmd *cobra.Command, path string, cfg opt.Config, out string) error {
	in, err := readInstance(path)
	if err != nil {
		return err
	}
	lg := log.With().Str("instance", instanceName(path)).Logger()
	lg.Info().
		Int("customers", in.NumCustomers-1).
		Int("vehicles", in.NumVehicles).
		Dur("timeout", cfg.Timeout).
		Msg("solving")

	s := &opt.Search{Instance: in, Config: cfg, Logger: &lg}
	res, err := s.Run(ctx)
	if err != nil {
		return err
	}
	line, err := json.Marshal(resultLine{
		Instance: instanceName(path),
		Time:     fixed2(res.Elapsed.Seconds()),
		Result:   fixed2(res.Solution.TotalDistance),
		Solution: res.Solution.String(),
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(line))

	if out == "" {
		return nil
	}
	fh, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := vrp.WriteSolutionFile(fh, res.Solution, 0); err != nil {
		_ = fh.Close()
		return fmt.Errorf("write %s: %w", out, err)
	}
	return fh.Close()
}

func readInstance(path string) (*vrp.Instance, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	in, err := vrp.ParseInstance(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return in, nil
}

func instanceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
