package vision

import (
	"fmt"
	"os"

	pigo "github.com/esimov/pigo/core"
)

// Locator finds face regions in a grayscale grid using a pre-trained
// pixel-comparison cascade. The cascade never produces an error for a
// face-free image; zero rectangles is a normal result.
type Locator struct {
	classifier   *pigo.Pigo
	scaleFactor  float64
	minNeighbors int
	minSize      int
	maxSize      int
}

const (
	shiftFactor  = 0.1
	iouThreshold = 0.2
)

// NewLocator reads and unpacks the binary cascade file.
func NewLocator(cascadePath string, scaleFactor float64, minNeighbors, minSize, maxSize int) (*Locator, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}

	return &Locator{
		classifier:   classifier,
		scaleFactor:  scaleFactor,
		minNeighbors: minNeighbors,
		minSize:      minSize,
		maxSize:      maxSize,
	}, nil
}

// Locate scans the grid at all scales and returns candidate face regions
// in the cascade's native scan order. Each clustered candidate must be
// confirmed by at least minNeighbors raw windows to suppress false
// positives.
func (l *Locator) Locate(g *Gray) []Rect {
	maxSize := l.maxSize
	if m := min(g.Rows, g.Cols); maxSize > m {
		maxSize = m
	}
	if maxSize < l.minSize {
		return nil
	}

	params := pigo.CascadeParams{
		MinSize:     l.minSize,
		MaxSize:     maxSize,
		ShiftFactor: shiftFactor,
		ScaleFactor: l.scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: g.Pix,
			Rows:   g.Rows,
			Cols:   g.Cols,
			Dim:    g.Cols,
		},
	}

	raw := l.classifier.RunCascade(params, 0.0)
	clustered := l.classifier.ClusterDetections(raw, iouThreshold)

	var rects []Rect
	for _, det := range clustered {
		if countNeighbors(raw, det) < l.minNeighbors {
			continue
		}
		rects = append(rects, Rect{
			X: det.Col - det.Scale/2,
			Y: det.Row - det.Scale/2,
			W: det.Scale,
			H: det.Scale,
		})
	}
	return rects
}

// countNeighbors counts raw windows overlapping the clustered candidate.
func countNeighbors(raw []pigo.Detection, det pigo.Detection) int {
	n := 0
	for _, r := range raw {
		if detIoU(r, det) > iouThreshold {
			n++
		}
	}
	return n
}

func detIoU(a, b pigo.Detection) float64 {
	ax1 := float64(a.Col) - float64(a.Scale)/2
	ay1 := float64(a.Row) - float64(a.Scale)/2
	ax2 := ax1 + float64(a.Scale)
	ay2 := ay1 + float64(a.Scale)

	bx1 := float64(b.Col) - float64(b.Scale)/2
	by1 := float64(b.Row) - float64(b.Scale)/2
	bx2 := bx1 + float64(b.Scale)
	by2 := by1 + float64(b.Scale)

	ix := max(0, min(ax2, bx2)-max(ax1, bx1))
	iy := max(0, min(ay2, by2)-max(ay1, by1))
	intersection := ix * iy

	union := float64(a.Scale)*float64(a.Scale) + float64(b.Scale)*float64(b.Scale) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}
