// Package output reads and writes the line formats consumed by the
// downstream analysis scripts:
//
//	label:N:k:c:id:dim:ell:index:chi_mod_ell:ap_list
//	label:dim:ell
package output

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mfmodell/lmfdb"
	"mfmodell/reduction"
)

// ErrSyntax is returned for lines that do not parse.
var ErrSyntax = errors.New("output: malformed line")

// FormatRecord renders one reduced record. A positive maxAP keeps only
// the first maxAP primes.
func FormatRecord(r reduction.Record, maxAP int) (string, error) {
	n, k, c, id, err := lmfdb.LabelParts(r.Label)
	if err != nil {
		return "", err
	}
	ap := r.AP
	if maxAP > 0 && len(ap) > maxAP {
		ap = ap[:maxAP]
	}
	var b strings.Builder
	b.WriteString(r.Label)
	for _, f := range []string{n, k, c, id, strconv.Itoa(r.Dim), strconv.FormatUint(r.Ell, 10), strconv.Itoa(r.Index)} {
		b.WriteByte(':')
		b.WriteString(f)
	}
	b.WriteByte(':')
	writeChi(&b, r.Character)
	b.WriteByte(':')
	writeList(&b, ap)
	return b.String(), nil
}

// FormatDeferred renders a form whose Hecke field is missing.
func FormatDeferred(d reduction.Deferred) string {
	return fmt.Sprintf("%s:%d:%d", d.Label, d.Dim, d.Ell)
}

func writeChi(b *strings.Builder, chi []reduction.CharPair) {
	b.WriteByte('[')
	for i, p := range chi {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		b.WriteString(strconv.FormatInt(p.Gen, 10))
		b.WriteByte(',')
		b.WriteString(strconv.FormatUint(p.Value, 10))
		b.WriteByte(']')
	}
	b.WriteByte(']')
}

func writeList(b *strings.Builder, vs []uint64) {
	for i, v := range vs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatUint(v, 10))
	}
}

// ParseRecord reads a record line back. Map and AN are not part of the
// format and stay nil.
func ParseRecord(line string) (reduction.Record, error) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) != 10 {
		return reduction.Record{}, fmt.Errorf("%w: %d fields in %q", ErrSyntax, len(fields), line)
	}
	var (
		r   = reduction.Record{Label: fields[0]}
		err error
	)
	if r.Level, err = strconv.Atoi(fields[1]); err != nil {
		return reduction.Record{}, fmt.Errorf("%w: level: %v", ErrSyntax, err)
	}
	if r.Weight, err = strconv.Atoi(fields[2]); err != nil {
		return reduction.Record{}, fmt.Errorf("%w: weight: %v", ErrSyntax, err)
	}
	if r.Dim, err = strconv.Atoi(fields[5]); err != nil {
		return reduction.Record{}, fmt.Errorf("%w: dim: %v", ErrSyntax, err)
	}
	if r.Ell, err = strconv.ParseUint(fields[6], 10, 64); err != nil {
		return reduction.Record{}, fmt.Errorf("%w: ell: %v", ErrSyntax, err)
	}
	if r.Index, err = strconv.Atoi(fields[7]); err != nil {
		return reduction.Record{}, fmt.Errorf("%w: index: %v", ErrSyntax, err)
	}
	if r.Character, err = parseChi(fields[8]); err != nil {
		return reduction.Record{}, err
	}
	if r.AP, err = parseList(fields[9]); err != nil {
		return reduction.Record{}, err
	}
	return r, nil
}

// ParseDeferred reads a deferred-form line back.
func ParseDeferred(line string) (reduction.Deferred, error) {
	fields := strings.Split(strings.TrimSpace(line), ":")
	if len(fields) != 3 {
		return reduction.Deferred{}, fmt.Errorf("%w: %d fields in %q", ErrSyntax, len(fields), line)
	}
	dim, err := strconv.Atoi(fields[1])
	if err != nil {
		return reduction.Deferred{}, fmt.Errorf("%w: dim: %v", ErrSyntax, err)
	}
	ell, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return reduction.Deferred{}, fmt.Errorf("%w: ell: %v", ErrSyntax, err)
	}
	return reduction.Deferred{Label: fields[0], Dim: dim, Ell: ell}, nil
}

func parseChi(s string) ([]reduction.CharPair, error) {
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("%w: character list %q", ErrSyntax, s)
	}
	inner := s[1 : len(s)-1]
	if inner == "" {
		return nil, nil
	}
	if !strings.HasPrefix(inner, "[") || !strings.HasSuffix(inner, "]") {
		return nil, fmt.Errorf("%w: character list %q", ErrSyntax, s)
	}
	var out []reduction.CharPair
	for _, pair := range strings.Split(inner[1:len(inner)-1], "],[") {
		gv := strings.Split(pair, ",")
		if len(gv) != 2 {
			return nil, fmt.Errorf("%w: character pair %q", ErrSyntax, pair)
		}
		g, err := strconv.ParseInt(gv[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: character generator: %v", ErrSyntax, err)
		}
		v, err := strconv.ParseUint(gv[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: character value: %v", ErrSyntax, err)
		}
		out = append(out, reduction.CharPair{Gen: g, Value: v})
	}
	return out, nil
}

func parseList(s string) ([]uint64, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]uint64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: ap[%d]: %v", ErrSyntax, i, err)
		}
		out[i] = v
	}
	return out, nil
}
