package e2e

import (
	"fmt"
	"image/color"
)

// PairedItem is a lost report and the found image that should match it.
type PairedItem struct {
	Name  string
	Color color.RGBA
	// LostTitle is used for the lost report; the found report comes from the intake file name.
	LostTitle string
}

// Corpus holds item pairs for E2E tests.
type Corpus struct {
	Pairs      []PairedItem
	TotalPairs int
}

// palette colors are pairwise far enough apart that no two distinct entries score 100
// (closest pair: orange and yellow at 95).
var palette = []struct {
	name string
	c    color.RGBA
}{
	{"red", color.RGBA{R: 255, A: 255}},
	{"green", color.RGBA{G: 255, A: 255}},
	{"blue", color.RGBA{B: 255, A: 255}},
	{"yellow", color.RGBA{R: 255, G: 255, A: 255}},
	{"cyan", color.RGBA{G: 255, B: 255, A: 255}},
	{"magenta", color.RGBA{R: 255, B: 255, A: 255}},
	{"white", color.RGBA{R: 255, G: 255, B: 255, A: 255}},
	{"orange", color.RGBA{R: 255, G: 128, A: 255}},
}

// BuildCorpus returns one lost/found pair per palette color.
func BuildCorpus() *Corpus {
	pairs := make([]PairedItem, 0, len(palette))
	for _, p := range palette {
		pairs = append(pairs, PairedItem{
			Name:      p.name,
			Color:     p.c,
			LostTitle: fmt.Sprintf("%s backpack", p.name),
		})
	}
	return &Corpus{Pairs: pairs, TotalPairs: len(pairs)}
}

// FileName returns the intake file name for the found half of the pair at index i,
// cycling through the supported extensions.
func (c *Corpus) FileName(i int) string {
	ext := SupportedImageExtensions[i%len(SupportedImageExtensions)]
	return fmt.Sprintf("found-%02d-%s%s", i, c.Pairs[i].Name, ext)
}
