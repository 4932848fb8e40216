// Command fixture-export runs an input through the engine and writes the
// resulting trace as a JSON fixture for the replay tool.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/perceptlab/cortex/budget"
	"github.com/perceptlab/cortex/cortex"
	"github.com/perceptlab/cortex/replay"
)

// #region main

func main() {
	inputPath := flag.String("input", "", "input file, consumed byte-per-sample")
	samplesPath := flag.String("samples", "", "input file holding a JSON array of float samples")
	outPath := flag.String("out", "", "fixture output path")
	description := flag.String("description", "", "fixture description")
	maxPasses := flag.Int("max-passes", 5, "maturation pass ceiling")
	epsilon := flag.Float64("epsilon", 0.01, "convergence epsilon")
	protoAgency := flag.Bool("proto-agency", false, "enable the proto-agency transition")
	flag.Parse()

	if (*inputPath == "" && *samplesPath == "") || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --input file --out fixture.json [--max-passes N] [--epsilon E] [--proto-agency]")
		os.Exit(2)
	}

	in, samples, err := readInput(*inputPath, *samplesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}

	cfg := cortex.DefaultMaturation().
		WithMaxPasses(*maxPasses).
		WithConvergenceEpsilon(*epsilon).
		WithProtoAgency(*protoAgency)
	bud := budget.Default()

	engine := cortex.New()
	out, trace, err := engine.PerceiveMatureTraced(in, cfg, bud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "perceive: %v\n", err)
		os.Exit(1)
	}

	f := &replay.Fixture{
		Description:       *description,
		InputFingerprint:  trace.InputFingerprint,
		ConfigFingerprint: trace.ConfigFingerprint,
		Input:             replay.FixtureInput{Samples: samples},
		Config: replay.FixtureConfig{
			MaxPasses:          cfg.MaxPasses,
			MinPasses:          cfg.MinPasses,
			ConvergenceEpsilon: cfg.ConvergenceEpsilon,
			EnableProtoAgency:  cfg.EnableProtoAgency,
		},
		Budget: replay.FixtureBudget{
			MaxPasses:     bud.MaxPasses,
			MaxDurationMS: bud.MaxDuration.Milliseconds(),
			MaxWorkingSet: bud.MaxWorkingSet,
		},
		Expected: replay.FixtureExpected{
			StopReason: string(out.StopReason),
			FinalState: out.FinalState.String(),
			PassesRun:  out.PassesRun,
		},
	}
	for _, snap := range trace.Snapshots {
		f.Snapshots = append(f.Snapshots, replay.FixtureSnapshot{
			PassIndex: snap.PassIndex,
			State:     snap.State.String(),
			Signals:   replay.FromSignals(snap.Signals),
		})
	}

	if err := replay.SaveFixture(*outPath, f); err != nil {
		fmt.Fprintf(os.Stderr, "save fixture: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (%d passes, stop=%s)\n", *outPath, out.PassesRun, out.StopReason)
}

// #endregion main

// #region input

func readInput(inputPath, samplesPath string) (cortex.RawInput, []float64, error) {
	if samplesPath != "" {
		data, err := os.ReadFile(samplesPath)
		if err != nil {
			return cortex.RawInput{}, nil, err
		}
		var samples []float64
		if err := json.Unmarshal(data, &samples); err != nil {
			return cortex.RawInput{}, nil, fmt.Errorf("parse samples %s: %w", samplesPath, err)
		}
		return cortex.FromSamples(samples), samples, nil
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return cortex.RawInput{}, nil, err
	}
	in := cortex.FromBytes(data)
	return in, in.Samples(), nil
}

// #endregion input
