package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/youruser/cardsmith/internal/cards"
	"github.com/youruser/cardsmith/internal/layout"
	"github.com/youruser/cardsmith/internal/symbols"
	"github.com/youruser/cardsmith/internal/template"
)

// fakeRasterizer returns a plain image sized like the tree and can fail on
// a given call.
type fakeRasterizer struct {
	mu     sync.Mutex
	calls  int
	failAt int
	scales []float64
	icons  []string
}

func (f *fakeRasterizer) Rasterize(_ context.Context, tree *layout.Tree) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.scales = append(f.scales, tree.Scale)
	if n, ok := tree.Find(template.ManaCost); ok {
		for _, seg := range n.Symbols {
			f.icons = append(f.icons, seg.Icon)
		}
	}
	if f.failAt > 0 && f.calls == f.failAt {
		return nil, errors.New("art fetch failed")
	}
	w, h := int(math.Round(tree.Width)), int(math.Round(tree.Height))
	return imaging.New(w, h, color.White), nil
}

func deckOf(n int) []Card {
	tpl := template.Default()
	tpl.ID = "tpl"
	out := make([]Card, n)
	for i := range out {
		c := cards.New()
		c.Name = "Card"
		out[i] = Card{Data: c, Template: tpl}
	}
	return out
}

func TestPaginateTenCards(t *testing.T) {
	ps := Paginate(10)
	require.Len(t, ps, 10)
	assert.Equal(t, 2, PageCount(10))

	var page2 []Placement
	for _, p := range ps {
		if p.Page == 1 {
			page2 = append(page2, p)
		}
	}
	require.Len(t, page2, 2)
	assert.Equal(t, [2]int{0, 0}, [2]int{page2[0].Col, page2[0].Row})
	assert.Equal(t, [2]int{1, 0}, [2]int{page2[1].Col, page2[1].Row})
	assert.Equal(t, ps[0].XMM, page2[0].XMM)
	assert.Equal(t, ps[0].YMM, page2[0].YMM)
}

func TestPaginateGridFitsPage(t *testing.T) {
	ps := Paginate(PerPage)
	first, last := ps[0], ps[len(ps)-1]
	assert.Equal(t, Columns-1, last.Col)
	assert.Equal(t, Rows-1, last.Row)
	assert.InDelta(t, PageWidthMM-(last.XMM+CardWidthMM), first.XMM, 1e-9)
	assert.InDelta(t, PageHeightMM-(last.YMM+CardHeightMM), first.YMM, 1e-9)
	// crop marks stay on the page
	for _, s := range CropMarks(first) {
		assert.GreaterOrEqual(t, min(s.X1, s.X2), 0.0)
		assert.GreaterOrEqual(t, min(s.Y1, s.Y2), 0.0)
	}
	assert.Equal(t, ps[1].XMM-ps[0].XMM, CardWidthMM+GutterMM)
	assert.Empty(t, Paginate(0))
	assert.Zero(t, PageCount(0))
}

func TestCropMarks(t *testing.T) {
	p := Placement{XMM: 10, YMM: 20}
	marks := CropMarks(p)
	require.Len(t, marks, 8)
	for _, s := range marks {
		length := math.Hypot(s.X2-s.X1, s.Y2-s.Y1)
		assert.InDelta(t, CropMarkMM, length, 1e-9)
		horizontal := s.Y1 == s.Y2
		vertical := s.X1 == s.X2
		assert.True(t, horizontal != vertical)
	}
	// top-left corner: horizontal mark to the left, vertical mark above
	assert.Equal(t, Segment{9, 20, 5, 20}, marks[0])
	assert.Equal(t, Segment{10, 19, 10, 15}, marks[1])
	// bottom-right corner
	assert.Equal(t, Segment{74, 108, 78, 108}, marks[6])
	assert.Equal(t, Segment{73, 109, 73, 113}, marks[7])
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "serraangel.png", Filename("Serra Angel", "png"))
	assert.Equal(t, "card.png", Filename("", "png"))
	assert.Equal(t, "card.pdf", Filename("!!!", "pdf"))
}

func TestDeckSheet(t *testing.T) {
	r := &fakeRasterizer{}
	var progress [][2]int
	out, err := DeckSheet(context.Background(), deckOf(10), r, SheetOptions{
		Title:    "Test Deck",
		ShareURL: "https://cards.example/decks/1",
		Progress: func(done, total int) { progress = append(progress, [2]int{done, total}) },
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	require.Len(t, progress, 10)
	assert.Equal(t, [2]int{1, 10}, progress[0])
	assert.Equal(t, [2]int{10, 10}, progress[9])
	assert.Equal(t, 10, r.calls)
	assert.InDelta(t, PrintScale(), r.scales[0], 1e-9)
}

func TestDeckSheetAbortsOnFailure(t *testing.T) {
	r := &fakeRasterizer{failAt: 3}
	var last int
	out, err := DeckSheet(context.Background(), deckOf(5), r, SheetOptions{
		Progress: func(done, _ int) { last = done },
	})
	assert.Nil(t, out)
	assert.ErrorContains(t, err, "card 3")
	assert.ErrorContains(t, err, "art fetch failed")
	assert.Equal(t, 2, last)
}

func TestDeckSheetErrors(t *testing.T) {
	_, err := DeckSheet(context.Background(), nil, &fakeRasterizer{}, SheetOptions{})
	assert.ErrorIs(t, err, ErrEmptyDeck)

	deck := deckOf(2)
	deck[1].Template = nil
	_, err = DeckSheet(context.Background(), deck, &fakeRasterizer{}, SheetOptions{})
	assert.ErrorIs(t, err, layout.ErrNoTemplate)
}

func TestCardPNG(t *testing.T) {
	c := cards.New()
	c.Name = "Black Lotus"
	r := &fakeRasterizer{}
	out, name, err := CardPNG(context.Background(), template.Default(), &c, r, PNGOptions{})
	require.NoError(t, err)
	assert.Equal(t, "blacklotus.png", name)
	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, int(layout.CardWidth)*DefaultSupersample, img.Bounds().Dx())

	// supersampling never drops under 2x
	_, _, err = CardPNG(context.Background(), template.Default(), &c, r, PNGOptions{Scale: 1, Supersample: 1})
	require.NoError(t, err)
	assert.Equal(t, 2.0, r.scales[len(r.scales)-1])

	_, _, err = CardPNG(context.Background(), nil, &c, r, PNGOptions{})
	assert.ErrorIs(t, err, layout.ErrNoTemplate)
}

func TestJobsLifecycle(t *testing.T) {
	jobs := NewJobs(time.Hour)
	var mu sync.Mutex
	var seen []Status
	jobs.OnUpdate = func(j Job) {
		mu.Lock()
		seen = append(seen, j.Status)
		mu.Unlock()
	}

	ok := jobs.Start("u1", "deck-pdf", "deck.pdf", "application/pdf", 2, func(_ context.Context, report ProgressFunc) ([]byte, error) {
		report(1, 2)
		report(2, 2)
		return []byte("pdf"), nil
	})
	bad := jobs.Start("u1", "deck-pdf", "deck.pdf", "application/pdf", 1, func(context.Context, ProgressFunc) ([]byte, error) {
		return nil, errors.New("boom")
	})
	jobs.Wait()

	out, job, err := jobs.Result(ok.ID)
	require.NoError(t, err)
	assert.Equal(t, "pdf", string(out))
	assert.Equal(t, StatusDone, job.Status)
	assert.Equal(t, 2, job.Done)
	assert.False(t, job.FinishedAt.IsZero())

	_, job, err = jobs.Result(bad.ID)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, StatusFailed, job.Status)

	_, _, err = jobs.Result("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)

	assert.Len(t, jobs.List("u1"), 2)
	assert.Empty(t, jobs.List("u2"))

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, StatusPending)
	assert.Contains(t, seen, StatusRunning)
	assert.Contains(t, seen, StatusDone)
	assert.Contains(t, seen, StatusFailed)
}

func TestJobsNotReadyAndPrune(t *testing.T) {
	jobs := NewJobs(time.Minute)
	release := make(chan struct{})
	j := jobs.Start("u1", "card-png", "a.png", "image/png", 1, func(context.Context, ProgressFunc) ([]byte, error) {
		<-release
		return []byte("x"), nil
	})
	_, _, err := jobs.Result(j.ID)
	assert.ErrorIs(t, err, ErrJobNotReady)
	close(release)
	jobs.Wait()

	base := time.Now()
	jobs.now = func() time.Time { return base.Add(2 * time.Minute) }
	jobs.Start("u1", "card-png", "b.png", "image/png", 1, func(context.Context, ProgressFunc) ([]byte, error) { return nil, nil })
	jobs.Wait()
	_, found := jobs.Get(j.ID)
	assert.False(t, found)
}

func TestExportUsesGivenSymbolRegistry(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "G.svg"), []byte("<svg/>"), 0o644))
	reg := symbols.NewRegistry()
	_, err := reg.LoadIcons(dir)
	require.NoError(t, err)
	lay := layout.Renderer{Symbols: reg}

	c := cards.New()
	c.Name = "Llanowar Elves"
	c.ManaCost = "{G}"
	r := &fakeRasterizer{}
	_, _, err = CardPNG(context.Background(), template.Default(), &c, r, PNGOptions{Layout: lay})
	require.NoError(t, err)
	_, err = DeckSheet(context.Background(), []Card{{Data: c, Template: template.Default()}}, r, SheetOptions{Layout: lay})
	require.NoError(t, err)
	_, _, err = CardPNG(context.Background(), template.Default(), &c, r, PNGOptions{})
	require.NoError(t, err)

	icon := filepath.Join(dir, "G.svg")
	assert.Equal(t, []string{icon, icon, "symbols/G.svg"}, r.icons)
}
