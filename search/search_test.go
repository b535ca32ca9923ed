package search

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"mfmodell/lmfdb"
	"mfmodell/prof"
	"mfmodell/reduction"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func rec(label string, ap ...uint64) reduction.Record {
	return reduction.Record{Label: label, Ell: 2, AP: ap}
}

func TestLogMultiplicity(t *testing.T) {
	A := []uint64{1, 0, 1}
	B := []uint64{0, 0, 1}
	C := []uint64{1, 1, 1}
	l := NewLog(2)
	var got []int
	for i, ap := range [][]uint64{A, B, A, A, C} {
		r := l.Append(rec(string(rune('a'+i)), ap...))
		got = append(got, r.Index)
	}
	require.Equal(t, []int{1, 1, 2, 3, 1}, got)
	require.Equal(t, 3, l.Distinct())
	require.Equal(t, 5, l.Len())

	stored := l.Records()
	for i, want := range []int{1, 1, 2, 3, 1} {
		assert.Equal(t, want, stored[i].Index, "record %d", i)
	}
}

func TestLogMixedPrecision(t *testing.T) {
	A := []uint64{1, 0, 1, 1}
	S := []uint64{1, 0}
	B := []uint64{1, 0, 1, 0}
	l := NewLog(3)
	// A shorter list agreeing with both A and B on its primes must not
	// link them.
	require.Equal(t, 1, l.Append(rec("a", A...)).Index)
	require.Equal(t, 1, l.Append(rec("s", S...)).Index)
	require.Equal(t, 1, l.Append(rec("b", B...)).Index)
	require.Equal(t, 3, l.Distinct())

	require.Equal(t, 2, l.Append(rec("a2", A...)).Index)
	require.Equal(t, 2, l.Append(rec("s2", S...)).Index)
	require.Equal(t, 2, l.Append(rec("b2", B...)).Index)
	require.Equal(t, 3, l.Distinct())
	require.Equal(t, 6, l.Len())
}

func TestLogDigestSeparatesLengths(t *testing.T) {
	require.NotEqual(t, apDigest([]uint64{0}), apDigest([]uint64{0, 0}))
	require.NotEqual(t, apDigest(nil), apDigest([]uint64{0}))
	require.Equal(t, apDigest([]uint64{1, 2}), apDigest([]uint64{1, 2}))
}

func TestWeightPolicy(t *testing.T) {
	w := DefaultWeightPolicy()
	require.Equal(t, []int{2, 3, 4}, w.Weights(2))
	require.Equal(t, []int{2, 3, 4}, w.Weights(3))
	require.Equal(t, []int{2, 3, 4, 5, 6}, w.Weights(5))
	require.Equal(t, []int{2}, WeightPolicy{Min: 2, Floor: 2, EllOffset: -10}.Weights(7))
}

func TestTriplesSkipBadReduction(t *testing.T) {
	p := Plan{Levels: []int{10, 11, 15}, Ells: []uint64{5}, Weights: WeightPolicy{Min: 2, Floor: 3, EllOffset: -3}}
	require.Equal(t, []Triple{
		{Ell: 5, Weight: 2, Level: 11},
		{Ell: 5, Weight: 3, Level: 11},
	}, p.Triples())
}

func coeffs(xs ...int64) []lmfdb.Coefficient {
	out := make([]lmfdb.Coefficient, len(xs))
	for i, x := range xs {
		out[i] = lmfdb.Coefficient{big.NewInt(x)}
	}
	return out
}

func rational(label string, level, weight int, ap ...int64) lmfdb.Fixture {
	return lmfdb.Fixture{NewformStub: lmfdb.NewformStub{
		Label: label, Level: level, Weight: weight, Dim: 1, CharOrder: 1,
		FieldPoly: []*big.Int{big.NewInt(-1), big.NewInt(1)}, PowerBasis: true,
		AP: coeffs(ap...),
	}}
}

func sweepFixtures() []lmfdb.Fixture {
	cyclotomic := lmfdb.Fixture{NewformStub: lmfdb.NewformStub{
		Label: "23.2.a.a", Level: 23, Weight: 2, Dim: 2, CharOrder: 1,
		FieldPoly:     []*big.Int{big.NewInt(1), big.NewInt(1), big.NewInt(1)},
		CyclotomicGen: 3,
		AP:            []lmfdb.Coefficient{{big.NewInt(0), big.NewInt(1)}},
	}}
	deferred := lmfdb.Fixture{NewformStub: lmfdb.NewformStub{
		Label: "37.2.a.b", Level: 37, Weight: 2, Dim: 2, CharOrder: 1,
	}}
	return []lmfdb.Fixture{
		rational("11.2.a.a", 11, 2, -2, -1, 1, -2),
		rational("11.2.a.b", 11, 2, -2, -1, 1, -2),
		rational("14.2.a.a", 14, 2, -1, -2, 0, 1),
		rational("15.2.a.a", 15, 2, -1, -1, 1, 0),
		rational("19.2.a.a", 19, 2, 0, 2, 3, -1),
		rational("11.4.a.a", 11, 4, 4, -7, 3, 2),
		cyclotomic,
		deferred,
	}
}

func sweepPlan(workers int) Plan {
	return Plan{
		Levels:  []int{11, 14, 15, 19, 23, 37},
		Ells:    []uint64{2, 3},
		Weights: DefaultWeightPolicy(),
		Workers: workers,
	}
}

func runSweep(t *testing.T, src lmfdb.Source, workers int) ([]EllResult, error) {
	t.Helper()
	rec := prof.NewRecorder()
	p := reduction.NewPipeline(src, reduction.Options{Recorder: rec})
	return New(src, p, Options{Recorder: rec}).Run(context.Background(), sweepPlan(workers))
}

func labelsAndIndices(rs []reduction.Record) ([]string, []int) {
	var labels []string
	var idx []int
	for _, r := range rs {
		labels = append(labels, r.Label)
		idx = append(idx, r.Index)
	}
	return labels, idx
}

func TestRunSweep(t *testing.T) {
	src := lmfdb.NewMemory(sweepFixtures()...)
	results, err := runSweep(t, src, 4)
	require.NoError(t, err)
	require.Len(t, results, 2)

	two := results[0]
	require.Equal(t, uint64(2), two.Ell)
	labels, idx := labelsAndIndices(two.Records)
	require.Equal(t, []string{"11.2.a.a", "11.2.a.b", "15.2.a.a", "19.2.a.a", "11.4.a.a"}, labels)
	require.Equal(t, []int{1, 2, 1, 1, 3}, idx)
	require.Equal(t, 3, two.Distinct)
	require.Equal(t, []uint64{0, 1, 1, 0}, two.Records[0].AP)
	require.Equal(t, []reduction.Deferred{{Label: "37.2.a.b", Dim: 2, Ell: 2}}, two.Deferred)
	require.Len(t, two.Failures, 1)
	require.Equal(t, "23.2.a.a", two.Failures[0].Label)

	three := results[1]
	labels, idx = labelsAndIndices(three.Records)
	require.Equal(t, []string{"11.2.a.a", "11.2.a.b", "14.2.a.a", "19.2.a.a", "11.4.a.a"}, labels)
	require.Equal(t, []int{1, 2, 1, 1, 1}, idx)
	require.Equal(t, 4, three.Distinct)
	require.Equal(t, []reduction.Deferred{{Label: "37.2.a.b", Dim: 2, Ell: 3}}, three.Deferred)
	require.Len(t, three.Failures, 1)
}

func TestRunIndependentOfWorkers(t *testing.T) {
	src := lmfdb.NewMemory(sweepFixtures()...)
	serial, err := runSweep(t, src, 1)
	require.NoError(t, err)
	for _, w := range []int{2, 8} {
		parallel, err := runSweep(t, src, w)
		require.NoError(t, err)
		for i := range serial {
			require.Equal(t, serial[i].Records, parallel[i].Records, "workers=%d ell=%d", w, serial[i].Ell)
			require.Equal(t, serial[i].Deferred, parallel[i].Deferred)
			require.Equal(t, serial[i].Distinct, parallel[i].Distinct)
		}
	}
}

var errBackend = errors.New("backend down")

type flakySource struct {
	*lmfdb.Memory
	badLevel int
}

func (s flakySource) FormsBy(ctx context.Context, level, weight int) ([]lmfdb.NewformStub, error) {
	if level == s.badLevel {
		return nil, errBackend
	}
	return s.Memory.FormsBy(ctx, level, weight)
}

func TestRunAbortsOnSourceError(t *testing.T) {
	src := flakySource{Memory: lmfdb.NewMemory(sweepFixtures()...), badLevel: 19}
	_, err := runSweep(t, src, 3)
	require.ErrorIs(t, err, errBackend)
}

func TestRunCancelled(t *testing.T) {
	src := lmfdb.NewMemory(sweepFixtures()...)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := reduction.NewPipeline(src, reduction.Options{})
	_, err := New(src, p, Options{}).Run(ctx, sweepPlan(2))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsCompositeEll(t *testing.T) {
	src := lmfdb.NewMemory()
	p := reduction.NewPipeline(src, reduction.Options{})
	_, err := New(src, p, Options{}).Run(context.Background(), Plan{Levels: []int{11}, Ells: []uint64{4}})
	require.Error(t, err)
}

func TestRunLogsEachRecord(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	src := lmfdb.NewMemory(sweepFixtures()...)
	p := reduction.NewPipeline(src, reduction.Options{})
	plan := sweepPlan(2)
	plan.Ells = []uint64{2}
	_, err := New(src, p, Options{Logger: zap.New(core)}).Run(context.Background(), plan)
	require.NoError(t, err)

	var got []string
	for _, e := range logs.All() {
		if _, ok := e.ContextMap()["index"]; ok {
			got = append(got, e.Message)
		}
	}
	require.Equal(t, []string{
		"New mod 2 form from 11.2.a.a",
		"Repeat (#2) mod 2 form from 11.2.a.b",
		"New mod 2 form from 15.2.a.a",
		"New mod 2 form from 19.2.a.a",
		"Repeat (#3) mod 2 form from 11.4.a.a",
	}, got)
}
