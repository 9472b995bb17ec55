package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeKnownSymbol(t *testing.T) {
	for _, key := range Builtin().Keys() {
		segs := Tokenize("{" + key + "}")
		require.Len(t, segs, 1, key)
		assert.Equal(t, SegmentSymbol, segs[0].Type, key)
		assert.Equal(t, key, segs[0].Key)
		assert.NotEmpty(t, segs[0].Icon)
	}
}

func TestTokenizeRoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"{T}: Add {G}.",
		"Pay {FOO} or {w} life.\n  Trailing  ",
		"{}{ {T}} {{X}}",
		"Kicker {2}{B/P}\n{Q}, {UT}",
		"unclosed {G",
	}
	for _, in := range inputs {
		assert.Equal(t, in, Join(Tokenize(in)), in)
	}
}

func TestUnknownTokenFailsOpen(t *testing.T) {
	segs := Tokenize("a {NOPE} b")
	require.Len(t, segs, 3)
	for _, s := range segs {
		assert.Equal(t, SegmentText, s.Type)
	}
	assert.Equal(t, "{NOPE}", segs[1].Value)
}

func TestTokenizeIsCaseSensitive(t *testing.T) {
	segs := Tokenize("{g}")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Type)
}

func TestTokenizeMixedLine(t *testing.T) {
	segs := Tokenize("{T}: Draw a card.")
	require.Len(t, segs, 2)
	assert.Equal(t, SegmentSymbol, segs[0].Type)
	assert.Equal(t, "T", segs[0].Key)
	assert.Equal(t, -1.0, segs[0].Offset)
	assert.Equal(t, Segment{Type: SegmentText, Value: ": Draw a card."}, segs[1])
}

func TestIterStopsEarly(t *testing.T) {
	n := 0
	for range Builtin().Iter("{W}{U}{B}{R}{G}") {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestManaCost(t *testing.T) {
	keys := func(segs []Segment) []string {
		var out []string
		for _, s := range segs {
			out = append(out, s.Key)
		}
		return out
	}
	assert.Equal(t, []string{"2", "W", "U"}, keys(ManaCost("{2}{W}{U}")))
	assert.Equal(t, []string{"X", "R/G", "G/P"}, keys(ManaCost("{X} {R/G}{G/P}")))
	assert.Equal(t, []string{"1"}, keys(ManaCost("{BOGUS}{1}")))
	assert.Empty(t, ManaCost(""))
}

func TestOffsets(t *testing.T) {
	s, ok := Builtin().Lookup("W")
	require.True(t, ok)
	assert.Zero(t, s.Offset)
	s, _ = Builtin().Lookup("T")
	assert.Equal(t, -1.0, s.Offset)
}

func TestLoadIcons(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "hybrid"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "W.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "W.png"), []byte("png"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hybrid", "WU.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	r := NewRegistry()
	n, err := r.LoadIcons(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	w, _ := r.Lookup("W")
	assert.Equal(t, filepath.Join(dir, "W.png"), w.Icon)
	wu, _ := r.Lookup("W/U")
	assert.Equal(t, filepath.Join(dir, "hybrid", "WU.svg"), wu.Icon)
	u, _ := r.Lookup("U")
	assert.Equal(t, "symbols/U.svg", u.Icon)

	// the shared registry is untouched
	bw, _ := Builtin().Lookup("W")
	assert.Equal(t, "symbols/W.svg", bw.Icon)
}

func TestIconNamesAreDistinct(t *testing.T) {
	seen := map[string]string{}
	for _, key := range Builtin().Keys() {
		name := IconName(key)
		prev, dup := seen[name]
		assert.False(t, dup, "%q and %q share icon %q", prev, key, name)
		seen[name] = key
	}
	half, _ := Builtin().Lookup("1/2")
	twelve, _ := Builtin().Lookup("12")
	assert.Equal(t, "symbols/HALF.svg", half.Icon)
	assert.Equal(t, "symbols/12.svg", twelve.Icon)
}

func TestLoadIconsUnbindsRemovedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "12.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "G.svg"), []byte("<svg/>"), 0o644))

	r := NewRegistry()
	n, err := r.LoadIcons(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	half, _ := r.Lookup("1/2")
	assert.Equal(t, "symbols/HALF.svg", half.Icon)

	require.NoError(t, os.Remove(filepath.Join(dir, "G.svg")))
	n, err = r.LoadIcons(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	g, _ := r.Lookup("G")
	assert.Equal(t, "symbols/G.svg", g.Icon)
}

func TestWatchReportsReloadedIcons(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "hybrid")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "WU.svg"), []byte("<svg/>"), 0o644))

	r := NewRegistry()
	_, err := r.LoadIcons(dir)
	require.NoError(t, err)
	reloads := make(chan []string, 8)
	r.OnReload = func(icons []string) { reloads <- icons }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, r.Watch(ctx, dir, nil))

	require.NoError(t, os.WriteFile(filepath.Join(sub, "WU.svg"), []byte(`<svg viewBox="0 0 1 1"/>`), 0o644))
	select {
	case icons := <-reloads:
		assert.Contains(t, icons, filepath.Join(sub, "WU.svg"))
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after editing an icon in a subdirectory")
	}
}
