package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/kgimport/pkg/common"
	"github.com/OFFIS-RIT/kgimport/pkg/logger"
)

// ErrStatementExecution marks a statement that failed or, for edges,
// matched no endpoints.
var ErrStatementExecution = errors.New("statement execution failed")

// Failure records one failed statement.
type Failure struct {
	Statement string
	Err       error
}

// Report summarizes a Persist run.
type Report struct {
	Executed int
	Failed   int
	Failures []Failure
	Duration time.Duration
}

// Persist upserts the graph through exec, all nodes first and then all
// edges, one statement at a time.
//
// A failing statement is logged and recorded in the report; the remaining
// statements still run. Running Persist twice with the same graph leaves
// the database unchanged the second time.
func Persist(ctx context.Context, exec Executor, graph *common.Graph) Report {
	start := time.Now()
	var report Report
	if graph == nil {
		return report
	}

	record := func(statement string, err error) {
		report.Failed++
		report.Failures = append(report.Failures, Failure{Statement: statement, Err: err})
		logger.Warn("[Store] Statement failed", "statement", statement, "err", err)
	}

	for _, n := range graph.Nodes {
		statement := NodeStatement(n)
		if _, err := exec.Execute(ctx, statement); err != nil {
			record(statement, fmt.Errorf("%w: node %s: %w", ErrStatementExecution, n.Ref().Key(), err))
			continue
		}
		report.Executed++
	}

	for _, e := range graph.Edges {
		statement := EdgeStatement(e)
		res, err := exec.Execute(ctx, statement)
		if err != nil {
			record(statement, fmt.Errorf("%w: edge %s: %w", ErrStatementExecution, e.RelationshipType, err))
			continue
		}
		if res == nil || res.Rows == 0 {
			record(statement, fmt.Errorf("%w: edge %s: endpoint %s or %s not found",
				ErrStatementExecution, e.RelationshipType, e.SourceRef().Key(), e.TargetRef().Key()))
			continue
		}
		report.Executed++
	}

	report.Duration = time.Since(start)
	logger.Info("[Store] Graph persisted",
		"executed", report.Executed,
		"failed", report.Failed,
		"duration", report.Duration,
	)
	return report
}
