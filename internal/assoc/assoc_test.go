package assoc

import (
	"database/sql"
	"math"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// #region link-tests

func TestLink_IgnoresDuplicates(t *testing.T) {
	g, err := NewGraph(setupTestDB(t))
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	if err := g.Link("a", "b", RelationSharedState, 0.1); err != nil {
		t.Fatalf("link: %v", err)
	}
	if err := g.Link("a", "b", RelationSharedState, 0.5); err != nil {
		t.Fatalf("duplicate link: %v", err)
	}

	assocs, err := g.Related("a", 0)
	if err != nil {
		t.Fatalf("related: %v", err)
	}
	if len(assocs) != 1 {
		t.Fatalf("expected 1 link, got %d", len(assocs))
	}
	if math.Abs(assocs[0].Weight-0.1) > 0.001 {
		t.Errorf("duplicate must not change weight, got %.4f", assocs[0].Weight)
	}
}

func TestReinforce_CapsAtOne(t *testing.T) {
	g, err := NewGraph(setupTestDB(t))
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	if err := g.Reinforce("a", "b", RelationSimilarSignature, 0.2); err != nil {
		t.Fatalf("reinforce: %v", err)
	}
	if err := g.Reinforce("a", "b", RelationSimilarSignature, 0.2); err != nil {
		t.Fatalf("reinforce 2: %v", err)
	}

	assocs, _ := g.Related("a", 0)
	if math.Abs(assocs[0].Weight-0.4) > 0.001 {
		t.Errorf("expected weight 0.4, got %.4f", assocs[0].Weight)
	}

	if err := g.Reinforce("a", "b", RelationSimilarSignature, 5.0); err != nil {
		t.Fatalf("reinforce big: %v", err)
	}
	assocs, _ = g.Related("a", 0)
	if math.Abs(assocs[0].Weight-1.0) > 0.001 {
		t.Errorf("weight should cap at 1.0, got %.4f", assocs[0].Weight)
	}
}

// #endregion link-tests

// #region spread-tests

func TestSpread_FollowsChain(t *testing.T) {
	g, err := NewGraph(setupTestDB(t))
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	g.Link("a", "b", RelationSharedState, 0.5)
	g.Link("b", "c", RelationSharedState, 0.8)
	g.Link("c", "d", RelationSharedState, 0.3)
	g.Link("a", "e", RelationSimilarSignature, 0.2)

	result, err := g.Spread("a", 5, 0.1, 100)
	if err != nil {
		t.Fatalf("spread: %v", err)
	}
	if len(result.Fingerprints) != 5 {
		t.Fatalf("expected 5 nodes, got %d: %v", len(result.Fingerprints), result.Fingerprints)
	}
	if result.Fingerprints[0] != "a" || result.Activations[0] != 1.0 {
		t.Error("spread must start at the entry with activation 1")
	}

	// minWeight filters the weak branch.
	filtered, err := g.Spread("a", 5, 0.3, 100)
	if err != nil {
		t.Fatalf("spread filtered: %v", err)
	}
	for _, fp := range filtered.Fingerprints {
		if fp == "e" {
			t.Error("weight 0.2 link should be filtered at minWeight 0.3")
		}
	}

	// Hop limit stops after direct neighbors.
	near, err := g.Spread("a", 1, 0.1, 100)
	if err != nil {
		t.Fatalf("spread hops 1: %v", err)
	}
	if len(near.Fingerprints) != 3 {
		t.Errorf("one hop should reach 3 nodes, got %d: %v", len(near.Fingerprints), near.Fingerprints)
	}

	// Activation multiplies along the chain.
	for i, fp := range result.Fingerprints {
		if fp == "c" {
			want := 0.5 * 0.8
			if math.Abs(result.Activations[i]-want) > 0.001 {
				t.Errorf("expected activation %.2f at c, got %.4f", want, result.Activations[i])
			}
		}
	}
}

// #endregion spread-tests

// #region decay-forget-tests

func TestDecay_PrunesWeakLinks(t *testing.T) {
	db := setupTestDB(t)
	g, err := NewGraph(db)
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	// A weak stale link decays below the floor and is deleted.
	past := time.Now().UTC().Add(-200 * time.Hour).Format(time.RFC3339)
	db.Exec(
		`INSERT INTO association_edges (source_fp, target_fp, relation, weight, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		"stale-a", "stale-b", RelationSharedState, 0.05, past, past,
	)
	g.Link("fresh-a", "fresh-b", RelationSharedState, 0.5)

	deleted, err := g.Decay(48.0)
	if err != nil {
		t.Fatalf("decay: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned link, got %d", deleted)
	}

	fresh, _ := g.Related("fresh-a", 0)
	if len(fresh) != 1 || fresh[0].Weight < 0.49 {
		t.Errorf("fresh link should barely decay: %+v", fresh)
	}
}

func TestForget_RemovesBothDirections(t *testing.T) {
	g, err := NewGraph(setupTestDB(t))
	if err != nil {
		t.Fatalf("new graph: %v", err)
	}

	g.Link("a", "b", RelationSharedState, 0.5)
	g.Link("b", "c", RelationSharedState, 0.5)
	g.Link("c", "b", RelationSimilarSignature, 0.3)

	if err := g.Forget("b"); err != nil {
		t.Fatalf("forget: %v", err)
	}

	for _, fp := range []string{"a", "b", "c"} {
		assocs, _ := g.Related(fp, 0)
		if len(assocs) != 0 {
			t.Errorf("expected no links from %s after forget, got %d", fp, len(assocs))
		}
	}
}

// #endregion decay-forget-tests
