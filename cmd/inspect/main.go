// Command inspect browses persisted invocation records and the association
// graph built from them.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/perceptlab/cortex/internal/assoc"
	"github.com/perceptlab/cortex/internal/records"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to records database")
	last := flag.Int("last", 20, "show N most recent records")
	recordID := flag.String("record", "", "show single record detail")
	related := flag.String("related", "", "show associations spreading from an input fingerprint")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/records.db [--last N] [--record id] [--related fingerprint] [--json]")
		os.Exit(2)
	}

	store, err := records.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	switch {
	case *recordID != "":
		err = runDetailMode(store, *recordID, *jsonOut)
	case *related != "":
		err = runRelatedMode(store, *related, *jsonOut)
	default:
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RecordID   string  `json:"record_id"`
	InputFP    string  `json:"input_fingerprint"`
	FinalState string  `json:"final_state"`
	StopReason string  `json:"stop_reason"`
	PassesRun  int     `json:"passes_run"`
	Entropy    float64 `json:"entropy"`
	FinalDelta float64 `json:"final_delta"`
	CreatedAt  string  `json:"created_at"`
}

func runListMode(store *records.Store, last int, jsonOut bool) error {
	recs, err := store.ListInvocations(last)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stderr, "no records found")
		return nil
	}

	rows := make([]listRow, len(recs))
	for i, rec := range recs {
		rows[i] = listRow{
			RecordID:   rec.RecordID,
			InputFP:    rec.InputFingerprint,
			FinalState: rec.FinalState,
			StopReason: rec.StopReason,
			PassesRun:  rec.PassesRun,
			Entropy:    rec.Signals.Entropy,
			FinalDelta: rec.FinalDelta,
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-10s  %-12s  %-16s  %6s  %8s  %s\n",
		"Record", "Input", "State", "Stop", "Passes", "Entropy", "Time")
	fmt.Printf("%-10s+-%-10s+-%-12s+-%-16s+-%6s+-%8s+-%s\n",
		"----------", "----------", "------------", "----------------", "------", "--------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-10s  %-10s  %-12s  %-16s  %6d  %8.4f  %s\n",
			shortID(r.RecordID), shortID(r.InputFP), r.FinalState, r.StopReason,
			r.PassesRun, r.Entropy, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *records.Store, recordID string, jsonOut bool) error {
	rec, err := store.GetInvocation(recordID)
	if err != nil {
		return err
	}
	trace, err := store.GetTrace(recordID)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"record": rec,
			"trace":  trace,
		})
	}

	fmt.Printf("Record:      %s\n", rec.RecordID)
	fmt.Printf("Input:       %s\n", rec.InputFingerprint)
	fmt.Printf("Config:      %s\n", rec.ConfigFingerprint)
	fmt.Printf("Final state: %s\n", rec.FinalState)
	fmt.Printf("Stop reason: %s\n", rec.StopReason)
	fmt.Printf("Passes run:  %d\n", rec.PassesRun)
	fmt.Printf("Final delta: %.6f\n", rec.FinalDelta)
	fmt.Printf("Created:     %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))

	fmt.Printf("\nTrace (%d passes):\n", len(trace.Snapshots))
	for _, snap := range trace.Snapshots {
		fmt.Printf("  pass %d: state=%-12s entropy=%.4f autocorr=%.4f intent=%.2f\n",
			snap.PassIndex, snap.State.String(), snap.Signals.Entropy,
			snap.Signals.MaxAutocorrelation, snap.Signals.IntentionalityScore)
	}
	return nil
}

// #endregion detail-mode

// #region related-mode

func runRelatedMode(store *records.Store, fingerprint string, jsonOut bool) error {
	graph, err := assoc.NewGraph(store.DB())
	if err != nil {
		return err
	}
	result, err := graph.Spread(fingerprint, 3, 0.05, 16)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(result)
	}

	fmt.Printf("%-10s  %s\n", "Activation", "Fingerprint")
	for i, fp := range result.Fingerprints {
		fmt.Printf("%10.4f  %s\n", result.Activations[i], fp)
	}
	return nil
}

// #endregion related-mode

// #region output

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
