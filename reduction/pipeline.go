package reduction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mfmodell/algebra"
	"mfmodell/hecke"
	"mfmodell/internal/gfl"
	"mfmodell/lmfdb"
	"mfmodell/prof"
	"mfmodell/qfield"
)

// ErrMalformedForm reports stored newform data that cannot be reduced as
// given: bad field polynomial or coefficient vectors of the wrong length.
var ErrMalformedForm = errors.New("reduction: malformed newform data")

// IsFormFatal reports whether err aborts only the newform that raised it.
// Anything else (database failures, cancellation) aborts the sweep.
func IsFormFatal(err error) bool {
	for _, target := range []error{
		hecke.ErrUnsupportedBasis,
		hecke.ErrInconsistentOrder,
		algebra.ErrDegenerateNormalization,
		algebra.ErrInternalConsistency,
		ErrMalformedForm,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Outcome classifies what happened to one form at one ℓ.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeDeferred
	OutcomeNoReduction
	OutcomeReduced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDeferred:
		return "deferred"
	case OutcomeNoReduction:
		return "no-reduction"
	case OutcomeReduced:
		return "reduced"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the product of Reduce for one form.
type Result struct {
	Outcome  Outcome
	Records  []Record
	Deferred *Deferred
}

// MapCache stores reduction maps per (label, ℓ). Get reports a miss with
// ok == false.
type MapCache interface {
	Get(label string, ell uint64) (maps []algebra.ReductionMap, ok bool, err error)
	Put(label string, ell uint64, maps []algebra.ReductionMap) error
}

// Options configures a Pipeline. All fields are optional.
type Options struct {
	Cache    MapCache
	Recorder *prof.Recorder
	Logger   *zap.Logger
}

// Pipeline reduces newforms drawn from a Source. It holds no per-form
// state and is safe for concurrent use.
type Pipeline struct {
	source lmfdb.Source
	cache  MapCache
	rec    *prof.Recorder
	log    *zap.Logger
}

// NewPipeline returns a pipeline reading extended coefficients from src.
func NewPipeline(src lmfdb.Source, opts Options) *Pipeline {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{source: src, cache: opts.Cache, rec: opts.Recorder, log: log}
}

// fielded is a form whose Hecke field has been parsed.
type fielded struct {
	stub lmfdb.NewformStub
	K    *qfield.Field
}

// mapped is a fielded form together with its reduction maps.
type mapped struct {
	fielded
	maps []algebra.ReductionMap
}

// Reduce runs every stage for one form at one ℓ. The stub is not
// modified; each stage returns a new value.
func (p *Pipeline) Reduce(ctx context.Context, stub lmfdb.NewformStub, f gfl.Field) (Result, error) {
	log := p.log.With(zap.String("label", stub.Label), zap.Uint64("ell", f.P))

	if !CharOrderValid(stub.CharOrder, f.P) {
		log.Debug("character order incompatible", zap.Int("char_order", stub.CharOrder))
		return Result{Outcome: OutcomeSkipped}, nil
	}
	if !stub.HasField() {
		log.Debug("hecke field unknown, deferring")
		return Result{
			Outcome:  OutcomeDeferred,
			Deferred: &Deferred{Label: stub.Label, Dim: stub.Dim, Ell: f.P},
		}, nil
	}

	ff, err := p.parseField(stub)
	if err != nil {
		return Result{}, err
	}
	m, err := p.findMaps(ff, f)
	if err != nil {
		return Result{}, err
	}
	if len(m.maps) == 0 {
		log.Debug("no reduction into GF(ell)", zap.Int("degree", ff.K.Degree))
		return Result{Outcome: OutcomeNoReduction}, nil
	}
	records, err := p.apply(ctx, m, f)
	if err != nil {
		return Result{}, err
	}
	log.Debug("reduced", zap.Int("maps", len(m.maps)), zap.Int("ap", len(records[0].AP)))
	return Result{Outcome: OutcomeReduced, Records: records}, nil
}

func (p *Pipeline) parseField(stub lmfdb.NewformStub) (fielded, error) {
	defer p.rec.Track(time.Now(), "field")
	K, err := qfield.New(stub.FieldPoly)
	if err != nil {
		return fielded{}, fmt.Errorf("%w: %s: %v", ErrMalformedForm, stub.Label, err)
	}
	d := K.Degree
	if stub.Dim != d {
		return fielded{}, fmt.Errorf("%w: %s: dimension %d but field degree %d", ErrMalformedForm, stub.Label, stub.Dim, d)
	}
	if err := checkLengths(d, "ap", stub.AP); err != nil {
		return fielded{}, fmt.Errorf("%s: %w", stub.Label, err)
	}
	if err := checkLengths(d, "an", stub.AN); err != nil {
		return fielded{}, fmt.Errorf("%s: %w", stub.Label, err)
	}
	for i, cv := range stub.CharacterValues {
		if len(cv.Coeffs) != d {
			return fielded{}, fmt.Errorf("%w: %s: character value %d has %d coordinates, field degree is %d",
				ErrMalformedForm, stub.Label, i, len(cv.Coeffs), d)
		}
	}
	return fielded{stub: stub, K: K}, nil
}

// findMaps enumerates homomorphisms of the Hecke order into GF(ℓ). For
// K = Q the only one is the canonical reduction of integers.
func (p *Pipeline) findMaps(ff fielded, f gfl.Field) (mapped, error) {
	if ff.K.Degree == 1 {
		return mapped{fielded: ff, maps: []algebra.ReductionMap{{1}}}, nil
	}
	if ff.stub.BasisKind() == hecke.CyclotomicBasis {
		return mapped{}, fmt.Errorf("%s: %w", ff.stub.Label, hecke.ErrUnsupportedBasis)
	}
	if p.cache != nil {
		maps, ok, err := p.cache.Get(ff.stub.Label, f.P)
		if err != nil {
			p.log.Warn("map cache read failed", zap.String("label", ff.stub.Label), zap.Error(err))
		} else if ok && mapsFit(maps, ff.K.Degree) {
			return mapped{fielded: ff, maps: maps}, nil
		}
	}

	start := time.Now()
	o, err := hecke.NewOrder(ff.K, ff.stub.BasisSpec())
	p.rec.Track(start, "order")
	if err != nil {
		return mapped{}, fmt.Errorf("%s: %w", ff.stub.Label, err)
	}
	start = time.Now()
	a, err := hecke.Compile(o, f)
	p.rec.Track(start, "structure")
	if err != nil {
		return mapped{}, fmt.Errorf("%s: %w", ff.stub.Label, err)
	}
	start = time.Now()
	maps, err := a.ReductionMaps()
	p.rec.Track(start, "homomorphisms")
	if err != nil {
		return mapped{}, fmt.Errorf("%s: %w", ff.stub.Label, err)
	}

	if p.cache != nil {
		if err := p.cache.Put(ff.stub.Label, f.P, maps); err != nil {
			p.log.Warn("map cache write failed", zap.String("label", ff.stub.Label), zap.Error(err))
		}
	}
	return mapped{fielded: ff, maps: maps}, nil
}

func mapsFit(maps []algebra.ReductionMap, d int) bool {
	for _, v := range maps {
		if len(v) != d || v[0] != 1 {
			return false
		}
	}
	return true
}

// coefficients returns the longest stored a_n / a_p prefixes.
func (p *Pipeline) coefficients(ctx context.Context, ff fielded) (lmfdb.Coefficients, error) {
	defer p.rec.Track(time.Now(), "fetch")
	ext, err := p.source.ExtendedCoefficients(ctx, ff.stub.Label)
	if errors.Is(err, lmfdb.ErrNotFound) {
		return lmfdb.Coefficients{AN: ff.stub.AN, AP: ff.stub.AP}, nil
	}
	if err != nil {
		return lmfdb.Coefficients{}, fmt.Errorf("extended coefficients for %s: %w", ff.stub.Label, err)
	}
	d := ff.K.Degree
	if err := checkLengths(d, "extended ap", ext.AP); err != nil {
		return lmfdb.Coefficients{}, fmt.Errorf("%s: %w", ff.stub.Label, err)
	}
	if err := checkLengths(d, "extended an", ext.AN); err != nil {
		return lmfdb.Coefficients{}, fmt.Errorf("%s: %w", ff.stub.Label, err)
	}
	if len(ext.AP) < len(ff.stub.AP) {
		ext.AP = ff.stub.AP
	}
	if len(ext.AN) < len(ff.stub.AN) {
		ext.AN = ff.stub.AN
	}
	return ext, nil
}

func (p *Pipeline) apply(ctx context.Context, m mapped, f gfl.Field) ([]Record, error) {
	coeffs, err := p.coefficients(ctx, m.fielded)
	if err != nil {
		return nil, err
	}
	defer p.rec.Track(time.Now(), "apply")
	stub := m.stub
	out := make([]Record, len(m.maps))
	for i, v := range m.maps {
		var chi []CharPair
		if stub.CharOrder != 1 {
			chi = make([]CharPair, len(stub.CharacterValues))
			for j, cv := range stub.CharacterValues {
				chi[j] = CharPair{Gen: cv.Gen, Value: Apply(f, cv.Coeffs, v)}
			}
		}
		out[i] = Record{
			Label:     stub.Label,
			Level:     stub.Level,
			Weight:    stub.Weight,
			Dim:       stub.Dim,
			Ell:       f.P,
			Map:       append([]uint64(nil), v...),
			AP:        ApplyAll(f, coeffs.AP, v),
			AN:        ApplyAll(f, coeffs.AN, v),
			Character: chi,
		}
	}
	return out, nil
}
