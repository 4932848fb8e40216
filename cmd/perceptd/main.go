// Command perceptd runs the perceptual engine over one input file and
// prints the matured output. With a database configured it also persists
// the invocation record, its replay trace, and association links to
// previously seen inputs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/perceptlab/cortex/cortex"
	"github.com/perceptlab/cortex/internal/assoc"
	"github.com/perceptlab/cortex/internal/records"
	"github.com/perceptlab/cortex/replay"
	"github.com/perceptlab/cortex/signals"
)

// #region main

func main() {
	configPath := flag.String("config", "", "path to perceptd.toml")
	inputPath := flag.String("input", "", "input file, consumed byte-per-sample")
	samplesPath := flag.String("samples", "", "input file holding a JSON array of float samples")
	dbPath := flag.String("db", "", "record database path (overrides config)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *inputPath == "" && *samplesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: perceptd --input file [--config perceptd.toml] [--db records.db] [--json]")
		os.Exit(2)
	}

	cfg := defaultRunConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadRunConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	in, err := readInput(*inputPath, *samplesPath)
	if err != nil {
		logger.Fatal("read input", zap.Error(err))
	}

	engine := cortex.New()
	out, trace, err := engine.PerceiveMatureTraced(in, cfg.Config, cfg.Budget)
	if err != nil {
		logger.Fatal("perceive", zap.Error(err))
	}

	logger.Info("invocation complete",
		zap.Int("passes_run", out.PassesRun),
		zap.String("stop_reason", string(out.StopReason)),
		zap.String("final_state", out.FinalState.String()),
		zap.Float64("final_delta", out.FinalDelta),
	)

	if cfg.DBPath != "" {
		if err := persist(logger, cfg.DBPath, in, out, trace); err != nil {
			logger.Error("persist", zap.Error(err))
		}
	}

	if err := printOutput(out, *jsonOut); err != nil {
		logger.Fatal("output", zap.Error(err))
	}
}

// #endregion main

// #region input

func readInput(inputPath, samplesPath string) (cortex.RawInput, error) {
	if samplesPath != "" {
		data, err := os.ReadFile(samplesPath)
		if err != nil {
			return cortex.RawInput{}, err
		}
		var samples []float64
		if err := json.Unmarshal(data, &samples); err != nil {
			return cortex.RawInput{}, fmt.Errorf("parse samples %s: %w", samplesPath, err)
		}
		return cortex.FromSamples(samples).WithTag("source", samplesPath), nil
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return cortex.RawInput{}, err
	}
	return cortex.FromBytes(data).WithTag("source", inputPath), nil
}

// #endregion input

// #region persist

// similarSignatureDistance is the feature-vector distance under which two
// inputs count as perceptually similar for association purposes.
const similarSignatureDistance = 0.25

// persist saves the record plus trace, then links the input to prior
// records that ended in the same perceptual state or with a nearby
// signature.
func persist(logger *zap.Logger, dbPath string, in cortex.RawInput, out cortex.MatureOutput, trace *replay.Context) error {
	store, err := records.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	inputFP := in.Fingerprint()
	prior, err := store.ListInvocations(100)
	if err != nil {
		return err
	}

	rec, err := store.SaveInvocation(records.InvocationRecord{
		InputFingerprint:  inputFP,
		ConfigFingerprint: trace.ConfigFingerprint,
		FinalState:        out.FinalState.String(),
		StopReason:        string(out.StopReason),
		PassesRun:         out.PassesRun,
		Converged:         out.Converged,
		FinalDelta:        out.FinalDelta,
		Signals:           out.Signals,
	}, trace)
	if err != nil {
		return err
	}
	logger.Info("record saved", zap.String("record_id", rec.RecordID))

	graph, err := assoc.NewGraph(store.DB())
	if err != nil {
		return err
	}
	for _, p := range prior {
		if p.InputFingerprint == inputFP {
			continue
		}
		if p.FinalState == rec.FinalState {
			if err := graph.Reinforce(inputFP, p.InputFingerprint, assoc.RelationSharedState, 0.1); err != nil {
				return err
			}
		}
		if signals.Distance(p.Signals, rec.Signals) < similarSignatureDistance {
			if err := graph.Reinforce(inputFP, p.InputFingerprint, assoc.RelationSimilarSignature, 0.2); err != nil {
				return err
			}
		}
	}
	return nil
}

// #endregion persist

// #region output

type textOutput struct {
	FinalState  string                 `json:"final_state"`
	StopReason  string                 `json:"stop_reason"`
	PassesRun   int                    `json:"passes_run"`
	Converged   bool                   `json:"converged"`
	FinalDelta  float64                `json:"final_delta"`
	Signals     signals.SensorySignals `json:"signals"`
	Transitions []transitionOutput     `json:"transitions"`
}

type transitionOutput struct {
	From      string `json:"from"`
	To        string `json:"to"`
	PassIndex int    `json:"pass_index"`
	Trigger   string `json:"trigger"`
}

func printOutput(out cortex.MatureOutput, jsonOut bool) error {
	to := textOutput{
		FinalState: out.FinalState.String(),
		StopReason: string(out.StopReason),
		PassesRun:  out.PassesRun,
		Converged:  out.Converged,
		FinalDelta: out.FinalDelta,
		Signals:    out.Signals,
	}
	for _, tr := range out.History.Transitions() {
		to.Transitions = append(to.Transitions, transitionOutput{
			From:      tr.From.String(),
			To:        tr.To.String(),
			PassIndex: tr.PassIndex,
			Trigger:   tr.Trigger,
		})
	}

	if jsonOut {
		data, err := json.MarshalIndent(to, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Final state: %s\n", to.FinalState)
	fmt.Printf("Stop reason: %s\n", to.StopReason)
	fmt.Printf("Passes run:  %d\n", to.PassesRun)
	fmt.Printf("Final delta: %.6f\n", to.FinalDelta)
	fmt.Printf("Entropy:     %.4f\n", out.Signals.Entropy)
	fmt.Printf("Periodicity: %v (lag %d, significance %.2f)\n",
		out.Signals.PeriodicityDetected, out.Signals.MaxAutocorrelationLag, out.Signals.PeriodicitySignificance)
	if out.Signals.IntentionalityScore > 0 {
		fmt.Printf("Intentionality: %.2f\n", out.Signals.IntentionalityScore)
	}
	for _, tr := range to.Transitions {
		fmt.Printf("  pass %d: %s -> %s (%s)\n", tr.PassIndex, tr.From, tr.To, tr.Trigger)
	}
	return nil
}

// #endregion output

// #region logger

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if parsed, err := zapcore.ParseLevel(level); err == nil {
		lvl = parsed
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

// #endregion logger
