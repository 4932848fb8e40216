// Package assoc maintains a weighted association graph between input
// fingerprints. Inputs whose perceptual signatures resemble each other get
// linked, and repeated co-observation reinforces the link. The graph lives
// in the same SQLite database as the invocation records and is purely an
// outer-layer convenience for the inspect tooling.
package assoc

import (
	"database/sql"
	"fmt"
	"math"
	"time"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS association_edges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    source_fp   TEXT NOT NULL,
    target_fp   TEXT NOT NULL,
    relation    TEXT NOT NULL,
    weight      REAL NOT NULL DEFAULT 0.1,
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    UNIQUE(source_fp, target_fp, relation)
);
CREATE INDEX IF NOT EXISTS idx_assoc_source ON association_edges(source_fp);
CREATE INDEX IF NOT EXISTS idx_assoc_target ON association_edges(target_fp);
`

// #endregion schema

// #region types

// Relations recognized by the inspect tooling. Arbitrary relation names
// are allowed; these are the ones the engine's outer layer produces.
const (
	RelationSharedState      = "shared_state"      // same final perceptual state
	RelationSimilarSignature = "similar_signature" // feature vectors within threshold
)

// Association is a weighted directed link between two input fingerprints.
type Association struct {
	ID        int64
	SourceFP  string
	TargetFP  string
	Relation  string
	Weight    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SpreadResult holds fingerprints reached by spreading activation, in
// visit order, with the cumulative activation at each node.
type SpreadResult struct {
	Fingerprints []string
	Activations  []float64
}

// Graph manages the association_edges table.
type Graph struct {
	db *sql.DB
}

// #endregion types

// #region constructor

// NewGraph creates tables on the given database and returns a Graph.
func NewGraph(db *sql.DB) (*Graph, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("assoc schema: %w", err)
	}
	return &Graph{db: db}, nil
}

// #endregion constructor

// #region link

// Link inserts an association. Existing links with the same endpoints and
// relation are left untouched.
func (g *Graph) Link(sourceFP, targetFP, relation string, weight float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := g.db.Exec(
		`INSERT OR IGNORE INTO association_edges (source_fp, target_fp, relation, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sourceFP, targetFP, relation, weight, now, now,
	)
	return err
}

// Reinforce strengthens an association by delta, capped at 1.0, creating
// it with weight=delta when absent. Repeated co-observation of two inputs
// therefore raises the link monotonically toward the cap.
func (g *Graph) Reinforce(sourceFP, targetFP, relation string, delta float64) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := g.db.Exec(
		`INSERT INTO association_edges (source_fp, target_fp, relation, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_fp, target_fp, relation) DO UPDATE SET
		   weight = MIN(1.0, association_edges.weight + ?),
		   updated_at = ?`,
		sourceFP, targetFP, relation, delta, now, now,
		delta, now,
	)
	return err
}

// #endregion link

// #region related

// Related returns associations from sourceFP with weight >= minWeight,
// strongest first.
func (g *Graph) Related(sourceFP string, minWeight float64) ([]Association, error) {
	rows, err := g.db.Query(
		`SELECT id, source_fp, target_fp, relation, weight, created_at, updated_at
		 FROM association_edges
		 WHERE source_fp = ? AND weight >= ?
		 ORDER BY weight DESC`,
		sourceFP, minWeight,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assocs []Association
	for rows.Next() {
		var a Association
		var createdAt, updatedAt string
		if err := rows.Scan(&a.ID, &a.SourceFP, &a.TargetFP, &a.Relation, &a.Weight, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		a.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		assocs = append(assocs, a)
	}
	return assocs, rows.Err()
}

// #endregion related

// #region spread

// Spread performs breadth-first spreading activation from entryFP,
// following links with weight >= minWeight, up to maxHops hops and
// maxNodes total fingerprints.
func (g *Graph) Spread(entryFP string, maxHops int, minWeight float64, maxNodes int) (SpreadResult, error) {
	if maxHops <= 0 {
		maxHops = 3
	}
	if maxNodes <= 0 {
		maxNodes = 16
	}

	result := SpreadResult{
		Fingerprints: []string{entryFP},
		Activations:  []float64{1.0},
	}
	visited := map[string]bool{entryFP: true}

	type queueItem struct {
		fp         string
		hops       int
		activation float64
	}
	queue := []queueItem{{entryFP, 0, 1.0}}

	for len(queue) > 0 {
		if len(result.Fingerprints) >= maxNodes {
			break
		}

		current := queue[0]
		queue = queue[1:]

		if current.hops >= maxHops {
			continue
		}

		related, err := g.Related(current.fp, minWeight)
		if err != nil {
			return result, fmt.Errorf("spread related: %w", err)
		}

		for _, a := range related {
			if len(result.Fingerprints) >= maxNodes {
				break
			}
			if visited[a.TargetFP] {
				continue
			}
			visited[a.TargetFP] = true
			activation := current.activation * a.Weight
			result.Fingerprints = append(result.Fingerprints, a.TargetFP)
			result.Activations = append(result.Activations, activation)
			queue = append(queue, queueItem{a.TargetFP, current.hops + 1, activation})
		}
	}

	return result, nil
}

// #endregion spread

// #region decay

// Decay applies exponential time decay to all link weights. Links that
// fall below 0.01 are deleted; the count of deletions is returned.
func (g *Graph) Decay(halfLifeHours float64) (int64, error) {
	now := time.Now().UTC()
	halfLifeSec := halfLifeHours * 3600.0

	rows, err := g.db.Query(`SELECT id, weight, updated_at FROM association_edges`)
	if err != nil {
		return 0, err
	}

	type decayItem struct {
		id        int64
		newWeight float64
	}
	var updates []decayItem
	var deletes []int64

	for rows.Next() {
		var id int64
		var weight float64
		var updatedAt string
		if err := rows.Scan(&id, &weight, &updatedAt); err != nil {
			rows.Close()
			return 0, err
		}
		t, _ := time.Parse(time.RFC3339, updatedAt)
		ageSec := now.Sub(t).Seconds()
		if ageSec <= 0 {
			continue
		}
		decayed := weight * math.Exp(-ageSec*math.Ln2/halfLifeSec)
		if decayed < 0.01 {
			deletes = append(deletes, id)
		} else {
			updates = append(updates, decayItem{id, decayed})
		}
	}
	rows.Close()

	nowStr := now.Format(time.RFC3339)
	for _, u := range updates {
		if _, err := g.db.Exec(`UPDATE association_edges SET weight = ?, updated_at = ? WHERE id = ?`, u.newWeight, nowStr, u.id); err != nil {
			return 0, err
		}
	}
	for _, id := range deletes {
		if _, err := g.db.Exec(`DELETE FROM association_edges WHERE id = ?`, id); err != nil {
			return 0, err
		}
	}

	return int64(len(deletes)), nil
}

// #endregion decay

// #region forget

// Forget deletes every link touching the given fingerprint.
func (g *Graph) Forget(fp string) error {
	_, err := g.db.Exec(
		`DELETE FROM association_edges WHERE source_fp = ? OR target_fp = ?`,
		fp, fp,
	)
	return err
}

// #endregion forget
