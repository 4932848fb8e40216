// Command assoc-rebuild rebuilds the association graph from the invocation
// records already in a database. Useful after changing similarity
// thresholds or after importing records from another database.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/perceptlab/cortex/internal/assoc"
	"github.com/perceptlab/cortex/internal/records"
	"github.com/perceptlab/cortex/signals"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to records database")
	threshold := flag.Float64("threshold", 0.25, "feature distance under which inputs count as similar")
	decayHours := flag.Float64("decay", 0, "apply weight decay with this half-life in hours before rebuilding")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: assoc-rebuild --db path/to/records.db [--threshold D] [--decay H]")
		os.Exit(2)
	}

	store, err := records.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	graph, err := assoc.NewGraph(store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "init graph: %v\n", err)
		os.Exit(1)
	}

	if *decayHours > 0 {
		pruned, err := graph.Decay(*decayHours)
		if err != nil {
			fmt.Fprintf(os.Stderr, "decay: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("decay pruned %d links\n", pruned)
	}

	recs, err := store.ListInvocations(10000)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list records: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("rebuilding from %d records\n", len(recs))

	// Keep one representative record per input so repeated runs of the
	// same input do not inflate link weights.
	latest := make(map[string]records.InvocationRecord)
	for i := len(recs) - 1; i >= 0; i-- {
		latest[recs[i].InputFingerprint] = recs[i]
	}

	linked := 0
	for fpA, recA := range latest {
		for fpB, recB := range latest {
			if fpA >= fpB {
				continue
			}
			if recA.FinalState == recB.FinalState {
				if err := reinforceBoth(graph, fpA, fpB, assoc.RelationSharedState, 0.1); err != nil {
					fmt.Fprintf(os.Stderr, "link: %v\n", err)
					os.Exit(1)
				}
				linked++
			}
			if signals.Distance(recA.Signals, recB.Signals) < *threshold {
				if err := reinforceBoth(graph, fpA, fpB, assoc.RelationSimilarSignature, 0.2); err != nil {
					fmt.Fprintf(os.Stderr, "link: %v\n", err)
					os.Exit(1)
				}
				linked++
			}
		}
	}
	fmt.Printf("reinforced %d link pairs across %d inputs\n", linked, len(latest))
}

func reinforceBoth(graph *assoc.Graph, fpA, fpB, relation string, delta float64) error {
	if err := graph.Reinforce(fpA, fpB, relation, delta); err != nil {
		return err
	}
	return graph.Reinforce(fpB, fpA, relation, delta)
}

// #endregion main
