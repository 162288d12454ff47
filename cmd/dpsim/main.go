// Package main provides the dpsim binary: it simulates a ranged attacker
// against a passive defender and ranks item builds by damage output.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dpsim/internal/config"
	"github.com/cory-johannsen/dpsim/internal/game/build"
	"github.com/cory-johannsen/dpsim/internal/game/combat"
	"github.com/cory-johannsen/dpsim/internal/game/inventory"
	"github.com/cory-johannsen/dpsim/internal/observability"
)

const usage = `usage: dpsim [-config <file>] <command> [flags]

commands:
  run      -items a,b,c [-active id@seconds,...] [-trace]   simulate one build
  best     [-items a,b,...]                                  best build within budget
  replace  -items a,b,c                                      rank single-item swaps
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds what every subcommand needs.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	catalog *inventory.Registry
	out     io.Writer
}

func run(args []string, stdout io.Writer) error {
	global := flag.NewFlagSet("dpsim", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "configs/dev.yaml", "path to configuration file")
	if err := global.Parse(args); err != nil {
		return fmt.Errorf("%w\n%s", err, usage)
	}
	if global.NArg() == 0 {
		return errors.New(usage)
	}
	cmd, rest := global.Arg(0), global.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	itemsFlag := fs.String("items", "", "comma-separated item IDs")
	activeFlag := fs.String("active", "", "comma-separated id@seconds active triggers (run only)")
	trace := fs.Bool("trace", false, "log every simulation event (run only)")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	if *trace {
		cfg.Logging.Level = "debug"
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	catalog, err := inventory.LoadCatalog(cfg.Catalog.ItemsDir, cfg.Catalog.ScriptsDir, observability.Named(logger, "scripting"))
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}
	a := &app{cfg: cfg, logger: logger, catalog: catalog, out: stdout}

	ids := splitList(*itemsFlag)
	switch cmd {
	case "run":
		return a.runOne(ids, *activeFlag, *trace)
	case "best":
		return a.best(ids)
	case "replace":
		return a.replace(ids)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func baseStats(h config.HeroConfig) combat.BaseStats {
	return combat.BaseStats{Health: h.Health, BulletDamage: h.BulletDamage, FireRate: h.FireRate, Ammo: h.Ammo}
}

func (a *app) options(obs combat.Observer) combat.Options {
	return combat.Options{
		TravelTime: a.cfg.Simulation.TravelTime,
		Distance:   a.cfg.Simulation.Distance,
		Observer:   obs,
	}
}

func (a *app) runner() build.RunFunc {
	return build.NewRunner(
		a.cfg.Attacker.Name, baseStats(a.cfg.Attacker),
		a.cfg.Defender.Name, baseStats(a.cfg.Defender),
		a.options(nil),
	)
}

type trigger struct {
	id string
	at float64
}

func parseTriggers(s string) ([]trigger, error) {
	var out []trigger
	for _, p := range splitList(s) {
		id, at, ok := strings.Cut(p, "@")
		if !ok {
			out = append(out, trigger{id: id})
			continue
		}
		t, err := strconv.ParseFloat(at, 64)
		if err != nil {
			return nil, fmt.Errorf("active trigger %q: %w", p, err)
		}
		out = append(out, trigger{id: id, at: t})
	}
	return out, nil
}

func (a *app) runOne(ids []string, active string, trace bool) error {
	if len(ids) == 0 {
		return errors.New("run: -items is required")
	}
	triggers, err := parseTriggers(active)
	if err != nil {
		return err
	}
	defs, err := a.catalog.Resolve(ids)
	if err != nil {
		return err
	}
	items, err := inventory.NewInstances(defs)
	if err != nil {
		return err
	}
	defer inventory.ReleaseAll(items)

	attacker, err := combat.NewHero(a.cfg.Attacker.Name, baseStats(a.cfg.Attacker), items)
	if err != nil {
		return err
	}
	defer attacker.Release()
	defender, err := combat.NewHero(a.cfg.Defender.Name, baseStats(a.cfg.Defender), nil)
	if err != nil {
		return err
	}

	var obs combat.Observer = combat.NopObserver{}
	if trace {
		obs = combat.NewLoggedObserver(observability.Named(a.logger, "combat"))
	}
	sim, err := combat.NewSimulator(attacker, defender, a.options(obs))
	if err != nil {
		return err
	}
	for _, tr := range triggers {
		if err := sim.ScheduleActive(tr.at, tr.id); err != nil {
			return err
		}
	}
	res := sim.Run()

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Build:\t%s\n", strings.Join(build.Build(defs).Names(), ", "))
	fmt.Fprintf(w, "Cost:\t%d\n", build.Build(defs).TotalCost())
	fmt.Fprintf(w, "Outcome:\t%s\n", res.Outcome)
	fmt.Fprintf(w, "Attacks:\t%d\n", res.TotalAttacks)
	fmt.Fprintf(w, "Total damage:\t%.2f\n", res.TotalDamage)
	fmt.Fprintf(w, "Elapsed:\t%.3fs\n", res.Elapsed)
	fmt.Fprintf(w, "DPS:\t%.2f\n", res.DPS)
	fmt.Fprintf(w, "%s health:\t%.2f\n", a.cfg.Defender.Name, res.DefenderHealth)
	return w.Flush()
}

func (a *app) best(ids []string) error {
	pool := a.catalog.All()
	if len(ids) > 0 {
		defs, err := a.catalog.Resolve(ids)
		if err != nil {
			return err
		}
		pool = defs
	}
	builds := build.Combinations(pool, a.cfg.Simulation.BuildSize)
	if len(builds) == 0 {
		return fmt.Errorf("best: need at least %d items, have %d", a.cfg.Simulation.BuildSize, len(pool))
	}

	start := time.Now()
	scores, err := build.Evaluate(context.Background(), builds, a.runner(), a.cfg.Simulation.Workers)
	if err != nil {
		return err
	}
	a.logger.Info("builds scored",
		zap.Int("builds", len(scores)),
		zap.Duration("elapsed", time.Since(start)),
	)

	top, ok := build.Best(scores, a.cfg.Simulation.Budget)
	build.SortByDPS(scores)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDPS\tDamage\tCost\tDPS/Soul\tBuild")
	for i, s := range scores[:min(len(scores), a.cfg.Simulation.Top)] {
		fmt.Fprintf(w, "%d\t%.2f\t%.2f\t%d\t%.5f\t%s\n", i+1, s.Result.DPS, s.Result.TotalDamage, s.Cost, s.Value(), strings.Join(s.Build.Names(), ", "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(a.out, "\nNo build fits a budget of %d souls.\n", a.cfg.Simulation.Budget)
		return nil
	}
	fmt.Fprintf(a.out, "\nBest build within %d souls: %s\n", a.cfg.Simulation.Budget, strings.Join(top.Build.Names(), ", "))
	fmt.Fprintf(a.out, "DPS: %.2f  Cost: %d  DPS/Soul: %.5f\n", top.Result.DPS, top.Cost, top.Value())
	return nil
}

func (a *app) replace(ids []string) error {
	if len(ids) == 0 {
		return errors.New("replace: -items is required")
	}
	defs, err := a.catalog.Resolve(ids)
	if err != nil {
		return err
	}
	current := build.Build(defs)
	swaps := build.Replacements(current, a.catalog.All())
	if len(swaps) == 0 {
		fmt.Fprintln(a.out, "No replacement candidates.")
		return nil
	}

	builds := make([]build.Build, 0, len(swaps)+1)
	builds = append(builds, current)
	for _, s := range swaps {
		builds = append(builds, s.Build)
	}
	scores, err := build.Evaluate(context.Background(), builds, a.runner(), a.cfg.Simulation.Workers)
	if err != nil {
		return err
	}
	baseline := scores[0]
	ranked := append([]build.Score(nil), scores[1:]...)
	build.SortByTotalDamage(ranked)

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tReplace\tWith\tDPS\tDamage\tCost")
	for i, s := range ranked[:min(len(ranked), a.cfg.Simulation.Top)] {
		swap := swaps[s.Index-1]
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\t%.2f\t%d\n", i+1, swap.Replaced.Name, swap.With.Name, s.Result.DPS, s.Result.TotalDamage, s.Cost)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	top := ranked[0]
	bestSwap := swaps[top.Index-1]
	fmt.Fprintf(a.out, "\nBest replacement: %s -> %s\n", bestSwap.Replaced.Name, bestSwap.With.Name)
	fmt.Fprintf(a.out, "New build: %s\n", strings.Join(bestSwap.Build.Names(), ", "))
	fmt.Fprintf(a.out, "Original DPS: %.2f  New DPS: %.2f  Improvement: %.2f\n",
		baseline.Result.DPS, top.Result.DPS, top.Result.DPS-baseline.Result.DPS)
	return nil
}
