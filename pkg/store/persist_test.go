package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
)

// fakeGraphDB treats every distinct statement as one piece of state.
// Statements containing failOn return an error, statements containing
// noRows return zero rows.
type fakeGraphDB struct {
	applied  map[string]int
	order    []string
	failOn   string
	noRows   string
	executed int
}

func newFakeGraphDB() *fakeGraphDB {
	return &fakeGraphDB{applied: map[string]int{}}
}

func (f *fakeGraphDB) Execute(ctx context.Context, statement string) (*Result, error) {
	f.executed++
	f.order = append(f.order, statement)
	if f.failOn != "" && strings.Contains(statement, f.failOn) {
		return nil, errors.New("syntax error")
	}
	f.applied[statement]++
	if f.noRows != "" && strings.Contains(statement, f.noRows) {
		return &Result{Rows: 0}, nil
	}
	return &Result{Rows: 1}, nil
}

func sampleGraph() *common.Graph {
	return &common.Graph{
		Nodes: []common.Node{
			{Name: "Ada", Type: "PERSON"},
			{Name: "Acme", Type: "COMPANY"},
			{Name: "Rocket", Type: "PROJECT"},
		},
		Edges: []common.Edge{
			{Source: "Ada", SourceType: "PERSON", Target: "Acme", TargetType: "COMPANY", RelationshipType: "WORKS_AT"},
			{Source: "Ada", SourceType: "PERSON", Target: "Rocket", TargetType: "PROJECT", RelationshipType: "WORKS_ON"},
		},
	}
}

func TestPersist_NodesBeforeEdges(t *testing.T) {
	db := newFakeGraphDB()
	report := Persist(context.Background(), db, sampleGraph())

	if report.Executed != 5 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	for i, s := range db.order {
		isEdge := strings.HasPrefix(s, "MATCH")
		if i < 3 && isEdge {
			t.Fatalf("statement %d is an edge before all nodes ran: %s", i, s)
		}
		if i >= 3 && !isEdge {
			t.Fatalf("statement %d should be an edge: %s", i, s)
		}
	}
}

func TestPersist_Idempotent(t *testing.T) {
	db := newFakeGraphDB()
	g := sampleGraph()

	first := Persist(context.Background(), db, g)
	state := len(db.applied)
	second := Persist(context.Background(), db, g)

	if len(db.applied) != state {
		t.Fatalf("second run changed state: %d distinct statements, want %d", len(db.applied), state)
	}
	if first.Executed != second.Executed || second.Failed != 0 {
		t.Fatalf("runs differ: first %+v second %+v", first, second)
	}
}

func TestPersist_PartialFailure(t *testing.T) {
	db := newFakeGraphDB()
	db.failOn = "'Acme'})"
	db.noRows = "WORKS_ON"

	report := Persist(context.Background(), db, sampleGraph())

	if db.executed != 5 {
		t.Fatalf("expected every statement to be attempted, got %d", db.executed)
	}
	// node Acme fails, edge WORKS_AT references Acme and fails too,
	// edge WORKS_ON returns no rows
	if report.Failed != 3 || report.Executed != 2 {
		t.Fatalf("unexpected report: executed=%d failed=%d", report.Executed, report.Failed)
	}
	for _, f := range report.Failures {
		if !errors.Is(f.Err, ErrStatementExecution) {
			t.Fatalf("failure not wrapped in ErrStatementExecution: %v", f.Err)
		}
	}
}

func TestPersist_EmptyGraph(t *testing.T) {
	db := newFakeGraphDB()
	report := Persist(context.Background(), db, &common.Graph{})
	if report.Executed != 0 || report.Failed != 0 || db.executed != 0 {
		t.Fatalf("expected nothing to run, got %+v", report)
	}
	if r := Persist(context.Background(), db, nil); r.Executed != 0 {
		t.Fatalf("expected nil graph to be a no-op, got %+v", r)
	}
}

func TestChunkRange(t *testing.T) {
	var windows [][2]int
	err := ChunkRange(7, 3, func(start, end int) error {
		windows = append(windows, [2]int{start, end})
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := [][2]int{{0, 3}, {3, 6}, {6, 7}}
	if len(windows) != len(want) {
		t.Fatalf("got %v, want %v", windows, want)
	}
	for i := range want {
		if windows[i] != want[i] {
			t.Fatalf("got %v, want %v", windows, want)
		}
	}
}
