package labels_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jpfielding/ctlabels.go/pkg/labels"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_Add(t *testing.T) {
	var s labels.Set
	l, err := s.Add(" Tumor ", 300, -4, 12)
	require.NoError(t, err)
	assert.Equal(t, "tumor", l.Name)
	assert.Equal(t, labels.RGB{R: 255, G: 0, B: 12}, l.Color)
	assert.Equal(t, 0, l.Class)

	_, err = s.Add("TUMOR", 0, 0, 0)
	assert.ErrorIs(t, err, labels.ErrDuplicate)
	_, err = s.Add("  ", 0, 0, 0)
	assert.ErrorIs(t, err, labels.ErrEmptyName)

	l, err = s.Add("liver", 0, 255, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, l.Class)
	assert.Equal(t, []string{"tumor", "liver"}, s.Names())
}

func TestSet_RemoveLeavesOthers(t *testing.T) {
	var s labels.Set
	for i, n := range []string{"a", "b", "c"} {
		_, err := s.Add(n, i, i, i)
		require.NoError(t, err)
	}
	before := s.All()
	require.NoError(t, s.Remove("b"))
	assert.Equal(t, []labels.Label{before[0], before[2]}, s.All())
	assert.ErrorIs(t, s.Remove("b"), labels.ErrNotFound)
}

func TestSet_SetClasses(t *testing.T) {
	var s labels.Set
	assert.ErrorIs(t, s.SetClasses(nil), labels.ErrNoLabels)
	s.Add("a", 0, 0, 0)
	s.Add("b", 0, 0, 0)
	require.NoError(t, s.SetClasses([]int{1, 0}))
	assert.Equal(t, []int{1, 0}, s.Classes())
	assert.ErrorIs(t, s.SetClasses([]int{1, 1}), labels.ErrInvalidClasses)
	assert.ErrorIs(t, s.SetClasses([]int{0, 2}), labels.ErrInvalidClasses)
	assert.ErrorIs(t, s.SetClasses([]int{0}), labels.ErrInvalidClasses)
	require.NoError(t, s.CheckClasses())

	require.NoError(t, s.Remove("b"))
	assert.ErrorIs(t, s.CheckClasses(), labels.ErrInvalidClasses)
}

func TestSet_SetColor(t *testing.T) {
	var s labels.Set
	s.Add("a", 0, 0, 0)
	require.NoError(t, s.SetColor("A", 10, 20, 999))
	l, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, labels.RGB{R: 10, G: 20, B: 255}, l.Color)
	assert.ErrorIs(t, s.SetColor("x", 0, 0, 0), labels.ErrNotFound)
}

func TestReadCSV_Scenario(t *testing.T) {
	s, err := labels.ReadCSV(strings.NewReader("liver,0,255,0,0\nlung,0,0,255,1\n"))
	require.NoError(t, err)
	assert.Equal(t, []labels.Label{
		{Name: "liver", Color: labels.RGB{G: 255}, Class: 0},
		{Name: "lung", Color: labels.RGB{B: 255}, Class: 1},
	}, s.All())
}

func TestReadCSV_SkipsShortRows(t *testing.T) {
	s, err := labels.ReadCSV(strings.NewReader("name,r,g\nliver,0,255,0,0\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"liver"}, s.Names())
}

func TestReadCSV_Malformed(t *testing.T) {
	_, err := labels.ReadCSV(strings.NewReader("liver,0,255,0,0\nlung,0,x,255,1\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, labels.ErrMalformedRow)
	var re *labels.RowError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Line)

	_, err = labels.ReadCSV(strings.NewReader("liver,0,0,0,0\nLIVER,1,1,1,1\n"))
	assert.ErrorIs(t, err, labels.ErrDuplicate)
}

func TestCSV_RoundTrip(t *testing.T) {
	var s labels.Set
	s.Add("tumor", 255, 0, 0)
	s.Add("kidney", 12, 34, 56)
	require.NoError(t, s.SetClasses([]int{1, 0}))

	var buf bytes.Buffer
	require.NoError(t, labels.WriteCSV(&buf, &s))
	assert.Equal(t, "tumor,255,0,0,1\nkidney,12,34,56,0\n", buf.String())

	back, err := labels.ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, s.All(), back.All())
}

func TestWriteFile_RefusesOverwrite(t *testing.T) {
	var s labels.Set
	fn := filepath.Join(t.TempDir(), "labels.csv")
	assert.ErrorIs(t, labels.WriteFile(fn, &s), labels.ErrNoLabels)

	s.Add("a", 1, 2, 3)
	require.NoError(t, labels.WriteFile(fn, &s))
	assert.ErrorIs(t, labels.WriteFile(fn, &s), labels.ErrFileExists)

	back, err := labels.ReadFile(fn)
	require.NoError(t, err)
	assert.Equal(t, s.All(), back.All())
}

func TestParseColor(t *testing.T) {
	tests := map[string]labels.RGB{
		"red":      {R: 255},
		"#00ff00":  {G: 255},
		"1, 2, 3":  {R: 1, G: 2, B: 3},
		"0,0,300":  {B: 255},
		" Maroon ": {R: 128},
	}
	for in, want := range tests {
		got, err := labels.ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := labels.ParseColor("mauve-ish")
	assert.Error(t, err)
}

func TestNextColor(t *testing.T) {
	assert.Equal(t, labels.RGB{R: 255}, labels.NextColor(0))
	a, b := labels.NextColor(20), labels.NextColor(21)
	assert.NotEqual(t, a, b)
}
