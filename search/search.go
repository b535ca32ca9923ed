// Package search sweeps (ℓ, k, N) triples, reduces every newform found
// and assigns multiplicity indices per ℓ.
package search

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mfmodell/internal/gfl"
	"mfmodell/lmfdb"
	"mfmodell/prof"
	"mfmodell/reduction"
)

// WeightPolicy bounds the weights searched for each ℓ: Min through
// max(ℓ+EllOffset, Floor), inclusive.
type WeightPolicy struct {
	Min       int
	EllOffset int
	Floor     int
}

// DefaultWeightPolicy searches weights 2 through max(ℓ+1, 4).
func DefaultWeightPolicy() WeightPolicy {
	return WeightPolicy{Min: 2, EllOffset: 1, Floor: 4}
}

// Weights lists the weights searched at ℓ in ascending order.
func (w WeightPolicy) Weights(ell uint64) []int {
	top := max(int(ell)+w.EllOffset, w.Floor)
	var out []int
	for k := w.Min; k <= top; k++ {
		out = append(out, k)
	}
	return out
}

// Plan is the parameter space of one sweep.
type Plan struct {
	Levels  []int
	Ells    []uint64
	Weights WeightPolicy
	Workers int
}

// Triple is one unit of work.
type Triple struct {
	Ell    uint64
	Weight int
	Level  int
}

// Triples enumerates the plan in canonical order ℓ, then k, then N,
// leaving out levels divisible by ℓ.
func (p Plan) Triples() []Triple {
	var out []Triple
	for _, ell := range p.Ells {
		for _, k := range p.Weights.Weights(ell) {
			for _, n := range p.Levels {
				if uint64(n)%ell == 0 {
					continue
				}
				out = append(out, Triple{Ell: ell, Weight: k, Level: n})
			}
		}
	}
	return out
}

// EllResult is everything the sweep produced for one ℓ.
type EllResult struct {
	Ell      uint64
	Records  []reduction.Record
	Deferred []reduction.Deferred
	Failures []reduction.Failure
	Distinct int
}

// Options configures an Orchestrator.
type Options struct {
	Logger   *zap.Logger
	Recorder *prof.Recorder
}

// Orchestrator runs sweeps against one Source.
type Orchestrator struct {
	source   lmfdb.Source
	pipeline *reduction.Pipeline
	rec      *prof.Recorder
	log      *zap.Logger
}

// New returns an orchestrator. The pipeline must read from the same
// source.
func New(src lmfdb.Source, pipeline *reduction.Pipeline, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{source: src, pipeline: pipeline, rec: opts.Recorder, log: log}
}

// tripleOutcome is what a worker hands to the aggregator.
type tripleOutcome struct {
	seq      int
	triple   Triple
	records  []reduction.Record
	deferred []reduction.Deferred
	failures []reduction.Failure
}

// Run executes the plan. Triples are processed concurrently; outcomes are
// folded into the per-ℓ logs by a single aggregator strictly in canonical
// order, so indices do not depend on scheduling. Per-form fatal errors are
// recorded as failures; any other error stops the sweep.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) ([]EllResult, error) {
	fields := make(map[uint64]gfl.Field, len(plan.Ells))
	for _, ell := range plan.Ells {
		f, err := gfl.New(ell)
		if err != nil {
			return nil, err
		}
		fields[ell] = f
	}
	workers := plan.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	triples := plan.Triples()
	o.log.Info("sweep started",
		zap.Int("triples", len(triples)),
		zap.Int("workers", workers),
		zap.Uint64s("ells", plan.Ells))
	start := time.Now()

	type job struct {
		seq int
		t   Triple
	}
	jobs := make(chan job, workers*2)
	outs := make(chan tripleOutcome, workers*2)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(jobs)
		for i, t := range triples {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			case jobs <- job{seq: i, t: t}:
			}
		}
		return nil
	})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		eg.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				out, err := o.runTriple(egCtx, j.t, fields[j.t.Ell])
				if err != nil {
					return err
				}
				out.seq = j.seq
				select {
				case <-egCtx.Done():
					return egCtx.Err()
				case outs <- out:
				}
			}
			return nil
		})
	}
	go func() {
		wg.Wait()
		close(outs)
	}()

	agg := newAggregator(plan.Ells, o.log)
	for out := range outs {
		agg.add(out)
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := agg.results()
	for _, r := range results {
		o.log.Info(fmt.Sprintf("%d mod %d newforms found, with %d distinct", len(r.Records), r.Ell, r.Distinct),
			zap.Uint64("ell", r.Ell),
			zap.Int("records", len(r.Records)),
			zap.Int("distinct", r.Distinct),
			zap.Int("deferred", len(r.Deferred)),
			zap.Int("failures", len(r.Failures)))
		for _, d := range r.Deferred {
			o.log.Info("hecke field missing", zap.String("label", d.Label), zap.Int("dim", d.Dim), zap.Uint64("ell", d.Ell))
		}
	}
	for _, s := range prof.Summarize(o.rec.SnapshotAndReset()) {
		o.log.Debug("stage timing", zap.String("stage", s.Label), zap.Duration("total", s.Total), zap.Int("count", s.Count))
	}
	o.log.Info("sweep finished", zap.Duration("elapsed", time.Since(start)))
	return results, nil
}

// runTriple reduces every form of (N, k) at ℓ.
func (o *Orchestrator) runTriple(ctx context.Context, t Triple, f gfl.Field) (tripleOutcome, error) {
	out := tripleOutcome{triple: t}
	fetch := time.Now()
	forms, err := o.source.FormsBy(ctx, t.Level, t.Weight)
	o.rec.Track(fetch, "forms")
	if err != nil {
		return out, fmt.Errorf("forms of level %d weight %d: %w", t.Level, t.Weight, err)
	}
	for _, stub := range forms {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		res, err := o.pipeline.Reduce(ctx, stub, f)
		if err != nil {
			if !reduction.IsFormFatal(err) {
				return out, err
			}
			o.log.Error("newform aborted",
				zap.String("label", stub.Label),
				zap.Uint64("ell", t.Ell),
				zap.Error(err))
			out.failures = append(out.failures, reduction.Failure{Label: stub.Label, Ell: t.Ell, Err: err})
			continue
		}
		switch res.Outcome {
		case reduction.OutcomeReduced:
			out.records = append(out.records, res.Records...)
		case reduction.OutcomeDeferred:
			out.deferred = append(out.deferred, *res.Deferred)
		}
	}
	o.log.Debug("triple done",
		zap.Uint64("ell", t.Ell),
		zap.Int("weight", t.Weight),
		zap.Int("level", t.Level),
		zap.Int("forms", len(forms)),
		zap.Int("records", len(out.records)))
	return out, nil
}

// aggregator owns the per-ℓ logs. Outcomes may arrive in any order; they
// are buffered until every earlier sequence number has been applied.
type aggregator struct {
	expect  int
	pending map[int]tripleOutcome
	order   []uint64
	logs    map[uint64]*Log
	extra   map[uint64]*EllResult
	log     *zap.Logger
}

func newAggregator(ells []uint64, log *zap.Logger) *aggregator {
	a := &aggregator{
		log:     log,
		pending: make(map[int]tripleOutcome),
		logs:    make(map[uint64]*Log, len(ells)),
		extra:   make(map[uint64]*EllResult, len(ells)),
	}
	for _, ell := range ells {
		if _, ok := a.logs[ell]; ok {
			continue
		}
		a.order = append(a.order, ell)
		a.logs[ell] = NewLog(ell)
		a.extra[ell] = &EllResult{Ell: ell}
	}
	return a
}

func (a *aggregator) add(out tripleOutcome) {
	a.pending[out.seq] = out
	for {
		next, ok := a.pending[a.expect]
		if !ok {
			return
		}
		delete(a.pending, a.expect)
		a.expect++
		a.apply(next)
	}
}

func (a *aggregator) apply(out tripleOutcome) {
	ell := out.triple.Ell
	log := a.logs[ell]
	for _, r := range out.records {
		stored := log.Append(r)
		if stored.Index == 1 {
			a.log.Debug(fmt.Sprintf("New mod %d form from %s", ell, stored.Label),
				zap.String("label", stored.Label), zap.Uint64("ell", ell), zap.Int("index", 1))
		} else {
			a.log.Debug(fmt.Sprintf("Repeat (#%d) mod %d form from %s", stored.Index, ell, stored.Label),
				zap.String("label", stored.Label), zap.Uint64("ell", ell), zap.Int("index", stored.Index))
		}
	}
	e := a.extra[ell]
	e.Deferred = append(e.Deferred, out.deferred...)
	e.Failures = append(e.Failures, out.failures...)
}

func (a *aggregator) results() []EllResult {
	out := make([]EllResult, 0, len(a.order))
	for _, ell := range a.order {
		r := *a.extra[ell]
		r.Records = a.logs[ell].Records()
		r.Distinct = a.logs[ell].Distinct()
		out = append(out, r)
	}
	return out
}
