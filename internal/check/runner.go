// Package check runs batches of dependency and relationship checks against
// a source and collects the results into a Report.
package check

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tordrt/modelcheck/internal/schema"
	"github.com/tordrt/modelcheck/internal/table"
	"github.com/tordrt/modelcheck/internal/validate"
)

// Source supplies tables and, for discovery, schema metadata.
type Source interface {
	Schema(ctx context.Context, tables []string) (*schema.Schema, error)
	ReadTable(ctx context.Context, name string) (*table.Table, error)
}

// Plan lists the checks of one run.
type Plan struct {
	Dependencies  []DependencyCheck
	Relationships []validate.Relationship
	// Discover appends the foreign keys declared by the source.
	Discover bool
}

type Options struct {
	// Parallelism bounds concurrent relationship scans; 0 or 1 is sequential.
	Parallelism int
	// SourceName labels the report.
	SourceName string
}

type Runner struct {
	Source  Source
	Logger  *zap.SugaredLogger
	Options Options
}

// Run executes the plan. A check that cannot run (missing table or column,
// read failure) is recorded with StatusError and the run continues; only
// failures that affect the whole run are returned as errors.
func (r *Runner) Run(ctx context.Context, plan Plan) (*Report, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	report := &Report{
		RunID:     uuid.New(),
		Source:    r.Options.SourceName,
		StartedAt: time.Now(),
	}
	log = log.With("run_id", report.RunID.String())

	rels, discovered, err := r.relationships(ctx, plan)
	if err != nil {
		return nil, err
	}
	log.Infow("starting run", "dependencies", len(plan.Dependencies), "relationships", len(rels))

	cache := newTableCache(r.Source, log)

	for _, dc := range plan.Dependencies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := r.runDependency(ctx, cache, dc)
		if res.Err != nil {
			log.Warnw("dependency check failed", "table", dc.Table,
				"determinant", dc.Determinant, "dependent", dc.Dependent, "error", res.Err)
		}
		report.Dependencies = append(report.Dependencies, res)
	}

	relResults, err := r.runRelationships(ctx, cache, log, rels, discovered)
	if err != nil {
		return nil, err
	}
	report.Relationships = relResults

	report.Duration = time.Since(report.StartedAt)
	t := report.Totals()
	log.Infow("run complete", "checks", t.Checks, "failed", t.Failed,
		"errored", t.Errored, "violations", t.Violations, "duration", report.Duration)

	return report, nil
}

// relationships dedupes the declared relationships and appends discovered
// ones that were not declared.
func (r *Runner) relationships(ctx context.Context, plan Plan) ([]validate.Relationship, map[validate.Relationship]bool, error) {
	seen := make(map[validate.Relationship]bool)
	discovered := make(map[validate.Relationship]bool)

	var rels []validate.Relationship
	for _, rel := range plan.Relationships {
		if !seen[rel] {
			seen[rel] = true
			rels = append(rels, rel)
		}
	}

	if plan.Discover {
		s, err := r.Source.Schema(ctx, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to discover relationships: %w", err)
		}
		for _, rel := range s.Relationships() {
			if !seen[rel] {
				seen[rel] = true
				discovered[rel] = true
				rels = append(rels, rel)
			}
		}
	}

	return rels, discovered, nil
}

func (r *Runner) runDependency(ctx context.Context, cache *tableCache, dc DependencyCheck) DependencyResult {
	res := DependencyResult{Check: dc}

	t, err := cache.get(ctx, dc.Table)
	if err != nil {
		res.Status, res.Err = StatusError, err
		return res
	}
	res.Rows = t.Len()

	opts := dc.Options
	violations, err := validate.FindDependencyViolations(t, dc.Determinant, dc.Dependent, &opts)
	if err != nil {
		res.Status, res.Err = StatusError, err
		return res
	}

	res.Violations = violations
	res.Status = statusOf(len(violations))
	return res
}

func (r *Runner) runRelationships(ctx context.Context, cache *tableCache, log *zap.SugaredLogger,
	rels []validate.Relationship, discovered map[validate.Relationship]bool) ([]RelationshipResult, error) {

	results := make([]RelationshipResult, len(rels))
	tables := make(map[string]*table.Table)
	var valid []validate.Relationship
	slot := make(map[validate.Relationship]int, len(rels))

	for i, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results[i] = RelationshipResult{Relationship: rel, Discovered: discovered[rel]}

		err := loadInto(ctx, cache, tables, rel.ParentTable, rel.ChildTable)
		if err == nil {
			err = validate.ValidateRelationship(tables, rel)
		}
		if err != nil {
			log.Warnw("relationship check failed", "relationship", rel.String(), "error", err)
			results[i].Status, results[i].Err = StatusError, err
			continue
		}

		slot[rel] = i
		valid = append(valid, rel)
	}

	if len(valid) == 0 {
		return results, nil
	}

	violations, err := validate.FindRelationshipViolations(tables, valid,
		&validate.RelationshipOptions{Parallelism: r.Options.Parallelism})
	if err != nil {
		return nil, fmt.Errorf("failed to check relationships: %w", err)
	}

	for _, v := range violations {
		i := slot[v.Relationship]
		results[i].Violations = append(results[i].Violations, v)
	}
	for _, s := range validate.SummarizeRelationships(tables, valid, violations) {
		i := slot[s.Relationship]
		results[i].Summary = s
		results[i].Status = statusOf(len(results[i].Violations))
	}

	return results, nil
}

func loadInto(ctx context.Context, cache *tableCache, tables map[string]*table.Table, names ...string) error {
	for _, name := range names {
		if _, ok := tables[name]; ok {
			continue
		}
		t, err := cache.get(ctx, name)
		if err != nil {
			return err
		}
		tables[name] = t
	}
	return nil
}
