package output

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mfmodell/reduction"
)

func TestFormatRecordExact(t *testing.T) {
	r := reduction.Record{
		Label: "11.2.a.a", Level: 11, Weight: 2, Dim: 1, Ell: 2, Index: 1,
		AP: []uint64{1, 0, 1},
	}
	line, err := FormatRecord(r, 0)
	require.NoError(t, err)
	require.Equal(t, "11.2.a.a:11:2:a:a:1:2:1:[]:1,0,1", line)
}

func TestFormatRecordCharacterAndTruncation(t *testing.T) {
	r := reduction.Record{
		Label: "13.2.e.a", Dim: 2, Ell: 7, Index: 3,
		Character: []reduction.CharPair{{Gen: 2, Value: 3}, {Gen: 11, Value: 6}},
		AP:        []uint64{5, 0, 6, 2},
	}
	line, err := FormatRecord(r, 2)
	require.NoError(t, err)
	require.Equal(t, "13.2.e.a:13:2:e:a:2:7:3:[[2,3],[11,6]]:5,0", line)

	_, err = FormatRecord(reduction.Record{Label: "bad"}, 0)
	require.Error(t, err)
}

func TestFormatDeferred(t *testing.T) {
	require.Equal(t, "37.2.a.b:2:3", FormatDeferred(reduction.Deferred{Label: "37.2.a.b", Dim: 2, Ell: 3}))
	d, err := ParseDeferred("37.2.a.b:2:3")
	require.NoError(t, err)
	require.Equal(t, reduction.Deferred{Label: "37.2.a.b", Dim: 2, Ell: 3}, d)
}

func TestParseRecord(t *testing.T) {
	r, err := ParseRecord("13.2.e.a:13:2:e:a:2:7:3:[[2,3],[11,6]]:5,0,6\n")
	require.NoError(t, err)
	require.Equal(t, reduction.Record{
		Label: "13.2.e.a", Level: 13, Weight: 2, Dim: 2, Ell: 7, Index: 3,
		Character: []reduction.CharPair{{Gen: 2, Value: 3}, {Gen: 11, Value: 6}},
		AP:        []uint64{5, 0, 6},
	}, r)

	r, err = ParseRecord("11.2.a.a:11:2:a:a:1:2:1:[]:1,0,1")
	require.NoError(t, err)
	require.Nil(t, r.Character)
	require.Equal(t, []uint64{1, 0, 1}, r.AP)

	for _, bad := range []string{
		"11.2.a.a:11:2:a:a:1:2:1:[]",
		"11.2.a.a:x:2:a:a:1:2:1:[]:1",
		"11.2.a.a:11:2:a:a:1:2:1:[2,3]:1",
		"11.2.a.a:11:2:a:a:1:2:1:[]:1,,0",
	} {
		_, err := ParseRecord(bad)
		if !errors.Is(err, ErrSyntax) {
			t.Fatalf("ParseRecord(%q) err=%v, want ErrSyntax", bad, err)
		}
	}
}

func TestFilesWriteAndRead(t *testing.T) {
	dir := t.TempDir()
	records := []reduction.Record{
		{Label: "11.2.a.a", Level: 11, Weight: 2, Dim: 1, Ell: 3, Index: 1, AP: []uint64{1, 2, 1}},
		{Label: "11.2.a.b", Level: 11, Weight: 2, Dim: 1, Ell: 3, Index: 2, AP: []uint64{1, 2, 1}},
	}
	deferred := []reduction.Deferred{{Label: "37.2.a.b", Dim: 2, Ell: 3}}

	f := Files{Dir: dir, Tag: "test"}
	recPath, defPath, err := f.Write(3, records, deferred)
	require.NoError(t, err)
	require.Equal(t, RecordPath(dir, 3, "test"), recPath)
	require.True(t, strings.HasSuffix(recPath, "mod_3_test.txt"))
	require.True(t, strings.HasSuffix(defPath, "mod_3_test_missing.txt"))

	missing, err := os.ReadFile(defPath)
	require.NoError(t, err)
	require.Equal(t, "37.2.a.b:2:3\n", string(missing))

	got, err := ReadRecordFile(recPath)
	require.NoError(t, err)
	require.Equal(t, records, got)

	f.Append = true
	_, _, err = f.Write(3, records[:1], nil)
	require.NoError(t, err)
	got, err = ReadRecordFile(recPath)
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestWriteRecordsPropagatesLabelError(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRecords(&buf, []reduction.Record{{Label: "1.2.a"}}, 0)
	require.Error(t, err)
}
