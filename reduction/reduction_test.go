package reduction

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"mfmodell/algebra"
	"mfmodell/hecke"
	"mfmodell/internal/gfl"
	"mfmodell/lmfdb"
	"mfmodell/prof"
)

func coeff(xs ...int64) lmfdb.Coefficient {
	out := make(lmfdb.Coefficient, len(xs))
	for i, x := range xs {
		out[i] = big.NewInt(x)
	}
	return out
}

func seq(vs ...lmfdb.Coefficient) []lmfdb.Coefficient { return vs }

func poly(xs ...int64) []*big.Int { return coeff(xs...) }

func TestCharOrderValid(t *testing.T) {
	cases := []struct {
		m    int
		ell  uint64
		want bool
	}{
		{1, 5, true},
		{3, 2, false},
		{4, 2, true},
		{12, 2, false},
		{12, 13, true},
		{12, 5, false},
		{10, 5, true},
		{6, 7, true},
		{6, 3, true},
		{0, 5, false},
	}
	for _, tc := range cases {
		if got := CharOrderValid(tc.m, tc.ell); got != tc.want {
			t.Fatalf("CharOrderValid(%d, %d) = %v, want %v", tc.m, tc.ell, got, tc.want)
		}
	}
}

func TestApply(t *testing.T) {
	f := gfl.MustNew(5)
	require.Equal(t, uint64(1), Apply(f, coeff(3, 4), algebra.ReductionMap{1, 2}))
	require.Equal(t, uint64(4), Apply(f, coeff(-1, 0), algebra.ReductionMap{1, 2}))
	require.Equal(t, []uint64{0, 2}, ApplyAll(f, seq(coeff(5), coeff(-3)), algebra.ReductionMap{1}))
	require.Panics(t, func() { Apply(f, coeff(1), algebra.ReductionMap{1, 2}) })
}

func newPipeline(t *testing.T, fx ...lmfdb.Fixture) *Pipeline {
	t.Helper()
	return NewPipeline(lmfdb.NewMemory(fx...), Options{Recorder: prof.NewRecorder()})
}

func TestDegreeOneAtTwo(t *testing.T) {
	stub := lmfdb.NewformStub{
		Label: "11.2.a.a", Level: 11, Weight: 2, Dim: 1, CharOrder: 1,
		FieldPoly: poly(-1, 1), PowerBasis: true,
		AP: seq(coeff(-2), coeff(-1)),
	}
	ext := &lmfdb.Coefficients{
		AN: seq(coeff(1), coeff(-2), coeff(-1), coeff(2)),
		AP: seq(coeff(-2), coeff(-1), coeff(1), coeff(-2), coeff(1)),
	}
	p := newPipeline(t, lmfdb.Fixture{NewformStub: stub, Extended: ext})

	res, err := p.Reduce(context.Background(), stub, gfl.MustNew(2))
	require.NoError(t, err)
	require.Equal(t, OutcomeReduced, res.Outcome)
	require.Len(t, res.Records, 1)
	r := res.Records[0]
	require.Equal(t, []uint64{1}, r.Map)
	require.Equal(t, []uint64{0, 1, 1, 0, 1}, r.AP)
	require.Equal(t, []uint64{1, 0, 1, 0}, r.AN)
	require.Empty(t, r.Character)
	require.Equal(t, []uint64{2, 3, 5, 7, 11}, r.Primes())
	require.Zero(t, r.Index)
}

func TestShortPrefixFallback(t *testing.T) {
	stub := lmfdb.NewformStub{
		Label: "11.2.a.a", Level: 11, Weight: 2, Dim: 1, CharOrder: 1,
		FieldPoly: poly(-1, 1), AP: seq(coeff(-2), coeff(-1), coeff(1)),
	}
	res, err := newPipeline(t).Reduce(context.Background(), stub, gfl.MustNew(3))
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 1}, res.Records[0].AP)
}

func TestDeferredForm(t *testing.T) {
	stub := lmfdb.NewformStub{Label: "37.2.a.b", Level: 37, Weight: 2, Dim: 2, CharOrder: 1}
	res, err := newPipeline(t).Reduce(context.Background(), stub, gfl.MustNew(3))
	require.NoError(t, err)
	require.Equal(t, OutcomeDeferred, res.Outcome)
	require.Empty(t, res.Records)
	require.Equal(t, &Deferred{Label: "37.2.a.b", Dim: 2, Ell: 3}, res.Deferred)
}

func TestSkippedCharacterOrder(t *testing.T) {
	stub := lmfdb.NewformStub{Label: "7.3.b.a", Level: 7, Weight: 3, Dim: 1, CharOrder: 3, FieldPoly: poly(0, 1)}
	res, err := newPipeline(t).Reduce(context.Background(), stub, gfl.MustNew(2))
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, res.Outcome)
	require.Nil(t, res.Deferred)
}

func sqrt2Stub() lmfdb.NewformStub {
	return lmfdb.NewformStub{
		Label: "256.2.a.a", Level: 256, Weight: 2, Dim: 2, CharOrder: 1,
		FieldPoly: poly(-2, 0, 1), PowerBasis: true,
		AP: seq(coeff(0, 0), coeff(1, 1), coeff(-1, 2)),
	}
}

func TestQuadraticSplit(t *testing.T) {
	stub := sqrt2Stub()
	res, err := newPipeline(t).Reduce(context.Background(), stub, gfl.MustNew(7))
	require.NoError(t, err)
	require.Equal(t, OutcomeReduced, res.Outcome)
	require.Len(t, res.Records, 2)
	// √2 ↦ 3 and √2 ↦ 4 modulo 7.
	require.Equal(t, []uint64{1, 3}, res.Records[0].Map)
	require.Equal(t, []uint64{0, 4, 5}, res.Records[0].AP)
	require.Equal(t, []uint64{1, 4}, res.Records[1].Map)
	require.Equal(t, []uint64{0, 5, 0}, res.Records[1].AP)
}

func TestQuadraticInert(t *testing.T) {
	res, err := newPipeline(t).Reduce(context.Background(), sqrt2Stub(), gfl.MustNew(3))
	require.NoError(t, err)
	require.Equal(t, OutcomeNoReduction, res.Outcome)
	require.Empty(t, res.Records)
}

func TestCharacterValues(t *testing.T) {
	stub := sqrt2Stub()
	stub.CharOrder = 2
	stub.CharacterValues = []lmfdb.CharacterValue{{Gen: 3, Coeffs: coeff(-1, 0)}, {Gen: 5, Coeffs: coeff(0, 1)}}
	res, err := newPipeline(t).Reduce(context.Background(), stub, gfl.MustNew(7))
	require.NoError(t, err)
	require.Equal(t, []CharPair{{3, 6}, {5, 3}}, res.Records[0].Character)
	require.Equal(t, []CharPair{{3, 6}, {5, 4}}, res.Records[1].Character)
}

func TestFormFatalErrors(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)

	cyc := sqrt2Stub()
	cyc.FieldPoly = poly(1, 1, 1)
	cyc.CyclotomicGen = 3
	_, err := p.Reduce(ctx, cyc, gfl.MustNew(7))
	require.ErrorIs(t, err, hecke.ErrUnsupportedBasis)
	require.True(t, IsFormFatal(err))

	short := sqrt2Stub()
	short.AP = seq(coeff(1))
	_, err = p.Reduce(ctx, short, gfl.MustNew(7))
	require.ErrorIs(t, err, ErrMalformedForm)
	require.True(t, IsFormFatal(err))

	constant := sqrt2Stub()
	constant.FieldPoly = poly(5)
	_, err = p.Reduce(ctx, constant, gfl.MustNew(7))
	require.ErrorIs(t, err, ErrMalformedForm)

	wrongDim := sqrt2Stub()
	wrongDim.Dim = 3
	res, err := p.Reduce(ctx, wrongDim, gfl.MustNew(7))
	require.ErrorIs(t, err, ErrMalformedForm)
	require.True(t, IsFormFatal(err))
	require.Empty(t, res.Records)

	require.False(t, IsFormFatal(context.Canceled))
}

type failingSource struct{ lmfdb.Source }

var errBackend = errors.New("backend down")

func (failingSource) ExtendedCoefficients(context.Context, string) (lmfdb.Coefficients, error) {
	return lmfdb.Coefficients{}, errBackend
}

func TestSourceErrorIsNotFormFatal(t *testing.T) {
	p := NewPipeline(failingSource{lmfdb.NewMemory()}, Options{})
	_, err := p.Reduce(context.Background(), sqrt2Stub(), gfl.MustNew(7))
	require.ErrorIs(t, err, errBackend)
	require.False(t, IsFormFatal(err))
}

type memCache struct {
	maps       map[string][]algebra.ReductionMap
	gets, puts int
}

func (c *memCache) key(label string, ell uint64) string { return fmt.Sprintf("%s@%d", label, ell) }

func (c *memCache) Get(label string, ell uint64) ([]algebra.ReductionMap, bool, error) {
	c.gets++
	m, ok := c.maps[c.key(label, ell)]
	return m, ok, nil
}

func (c *memCache) Put(label string, ell uint64, maps []algebra.ReductionMap) error {
	c.puts++
	c.maps[c.key(label, ell)] = maps
	return nil
}

func TestMapCache(t *testing.T) {
	cache := &memCache{maps: map[string][]algebra.ReductionMap{}}
	p := NewPipeline(lmfdb.NewMemory(), Options{Cache: cache})
	ctx := context.Background()

	first, err := p.Reduce(ctx, sqrt2Stub(), gfl.MustNew(7))
	require.NoError(t, err)
	second, err := p.Reduce(ctx, sqrt2Stub(), gfl.MustNew(7))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 2, cache.gets)
	require.Equal(t, 1, cache.puts)

	// Empty results are cached too.
	_, err = p.Reduce(ctx, sqrt2Stub(), gfl.MustNew(3))
	require.NoError(t, err)
	require.Equal(t, 2, cache.puts)
}

func TestAPEqual(t *testing.T) {
	require.True(t, APEqual([]uint64{1, 0, 1}, []uint64{1, 0, 1}))
	require.False(t, APEqual([]uint64{1, 0}, []uint64{1, 0, 1}))
	require.True(t, APEqual(nil, []uint64{}))
	require.False(t, APEqual([]uint64{1, 0, 1}, []uint64{1, 1, 1}))
}
