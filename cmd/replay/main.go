// Command replay verifies bit-exact reproducibility of engine invocations.
// Fixture mode reruns a recorded fixture and compares every pass; DB mode
// cross-checks stored traces that share input and config fingerprints.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/perceptlab/cortex/budget"
	"github.com/perceptlab/cortex/cortex"
	"github.com/perceptlab/cortex/internal/records"
	"github.com/perceptlab/cortex/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to records database (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	runs := flag.Int("runs", 1, "repeat fixture runs, verifying each against the first")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--runs N]")
		fmt.Fprintln(os.Stderr, "       replay --db path/to/records.db")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *runs)
	} else {
		exitCode = runDBMode(*dbPath)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, runs int) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}

	in := cortex.FromSamples(f.Input.Samples)
	for k, v := range f.Input.Tags {
		in = in.WithTag(k, v)
	}
	cfg := cortex.MaturationConfig{
		MaxPasses:          f.Config.MaxPasses,
		MinPasses:          f.Config.MinPasses,
		ConvergenceEpsilon: f.Config.ConvergenceEpsilon,
		EnableProtoAgency:  f.Config.EnableProtoAgency,
	}
	bud := budget.Budget{
		MaxPasses:     f.Budget.MaxPasses,
		MaxDuration:   time.Duration(f.Budget.MaxDurationMS) * time.Millisecond,
		MaxWorkingSet: f.Budget.MaxWorkingSet,
	}

	engine := cortex.New()
	out, trace, err := engine.PerceiveMatureTraced(in, cfg, bud)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rerun: %v\n", err)
		return 2
	}

	recorded := f.ToContext()
	failures := 0

	if err := replay.Verify(recorded, trace); err != nil {
		fmt.Printf("trace:       DIFF (%v)\n", err)
		failures++
	} else {
		fmt.Printf("trace:       OK (%d passes, bit-exact)\n", len(trace.Snapshots))
	}
	failures += compareField("stop_reason", f.Expected.StopReason, string(out.StopReason))
	failures += compareField("final_state", f.Expected.FinalState, out.FinalState.String())
	failures += compareField("passes_run", fmt.Sprint(f.Expected.PassesRun), fmt.Sprint(out.PassesRun))

	// Repeat runs catch any hidden nondeterminism in the loop itself.
	for i := 1; i < runs; i++ {
		_, again, err := engine.PerceiveMatureTraced(in, cfg, bud)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run %d: %v\n", i+1, err)
			return 2
		}
		if err := replay.Verify(trace, again); err != nil {
			fmt.Printf("run %d:      DIFF (%v)\n", i+1, err)
			failures++
		}
	}

	if failures > 0 {
		fmt.Printf("\nSummary: %d divergence(s)\n", failures)
		return 1
	}
	fmt.Printf("\nSummary: reproducible\n")
	return 0
}

func compareField(name, expected, got string) int {
	if expected == got {
		fmt.Printf("%-12s OK (%s)\n", name+":", got)
		return 0
	}
	fmt.Printf("%-12s DIFF (expected %s, got %s)\n", name+":", expected, got)
	return 1
}

// #endregion fixture-mode

// #region db-mode

// runDBMode groups stored traces by (input, config) fingerprint pair and
// verifies every trace in a group against the group's oldest trace.
func runDBMode(dbPath string) int {
	store, err := records.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	recs, err := store.ListInvocations(1000)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list records: %v\n", err)
		return 2
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no records found")
		return 2
	}

	groups := make(map[string][]records.InvocationRecord)
	for _, rec := range recs {
		key := rec.InputFingerprint + "|" + rec.ConfigFingerprint
		groups[key] = append(groups[key], rec)
	}

	fmt.Printf("%-10s| %-10s| %s\n", "Record", "Against", "Result")
	fmt.Printf("%-10s+%-11s+%s\n", "----------", "-----------", "----------")

	compared, diverged := 0, 0
	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		// ListInvocations returns newest first.
		base := group[len(group)-1]
		baseTrace, err := store.GetTrace(base.RecordID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "trace %s: %v\n", base.RecordID, err)
			return 2
		}
		for _, rec := range group[:len(group)-1] {
			trace, err := store.GetTrace(rec.RecordID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "trace %s: %v\n", rec.RecordID, err)
				return 2
			}
			compared++
			result := "OK"
			if err := replay.Verify(baseTrace, trace); err != nil {
				result = fmt.Sprintf("DIFF (%v)", err)
				diverged++
			}
			fmt.Printf("%-10s| %-10s| %s\n", shortID(rec.RecordID), shortID(base.RecordID), result)
		}
	}

	fmt.Printf("\nSummary: %d compared, %d diverge\n", compared, diverged)
	if diverged > 0 {
		return 1
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion db-mode
