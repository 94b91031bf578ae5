package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLocator struct {
	rects []Rect
}

func (s *stubLocator) Locate(g *Gray) []Rect {
	return s.rects
}

type stubPredictor struct {
	scores []float32
	calls  int
	faces  []*Gray
}

func (s *stubPredictor) Predict(face *Gray) ([]float32, error) {
	s.calls++
	s.faces = append(s.faces, face)
	return s.scores, nil
}

func encodeTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestClassifyMalformedBytes(t *testing.T) {
	p := &Pipeline{
		locator:    &stubLocator{},
		classifier: &stubPredictor{},
	}

	_, err := p.Classify([]byte("definitely not an image"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestClassifyNoFacesSkipsClassifier(t *testing.T) {
	pred := &stubPredictor{scores: []float32{1, 0, 0, 0, 0, 0, 0}}
	p := &Pipeline{
		locator:    &stubLocator{rects: nil},
		classifier: pred,
	}

	res, err := p.Classify(encodeTestPNG(t, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, Undetected, res.Label)
	assert.False(t, res.Detected)
	assert.Nil(t, res.Scores)
	assert.Equal(t, 0, pred.calls, "classifier must not run without a located face")
}

func TestClassifyFirstFaceOnly(t *testing.T) {
	first := Rect{X: 4, Y: 4, W: 16, H: 16}
	second := Rect{X: 30, Y: 30, W: 20, H: 20}

	pred := &stubPredictor{scores: []float32{0, 0, 0, 0.9, 0.05, 0.05, 0}}
	p := &Pipeline{
		locator:    &stubLocator{rects: []Rect{first, second}},
		classifier: pred,
	}

	data := encodeTestPNG(t, 64, 64)
	res, err := p.Classify(data)
	require.NoError(t, err)

	assert.True(t, res.Detected)
	assert.Equal(t, "Happy", res.Label)
	assert.Equal(t, first, res.Face)
	require.Equal(t, 1, pred.calls, "only the first rectangle is classified")

	img, err := Decode(data)
	require.NoError(t, err)
	want := ToGray(img).Crop(first)
	assert.Equal(t, want, pred.faces[0])
}

func TestClassifyDeterministic(t *testing.T) {
	pred := &stubPredictor{scores: []float32{0, 0, 0, 0, 0, 0.7, 0.3}}
	p := &Pipeline{
		locator:    &stubLocator{rects: []Rect{{X: 0, Y: 0, W: 32, H: 32}}},
		classifier: pred,
	}

	data := encodeTestPNG(t, 48, 48)
	a, err := p.Classify(data)
	require.NoError(t, err)
	b, err := p.Classify(data)
	require.NoError(t, err)

	assert.Equal(t, a.Label, b.Label)
	assert.Equal(t, "Sad", a.Label)
}

func TestClassifyTieBreaksToLowestIndex(t *testing.T) {
	pred := &stubPredictor{scores: []float32{0.2, 0.3, 0.3, 0.1, 0.1, 0, 0}}
	p := &Pipeline{
		locator:    &stubLocator{rects: []Rect{{X: 0, Y: 0, W: 32, H: 32}}},
		classifier: pred,
	}

	res, err := p.Classify(encodeTestPNG(t, 64, 64))
	require.NoError(t, err)
	assert.Equal(t, "Disgusted", res.Label)
}

func TestClassifyFaceOutsideImage(t *testing.T) {
	// Cascade order carries no bounds guarantee, so a rectangle fully
	// outside the grid must fall back to the sentinel.
	pred := &stubPredictor{scores: []float32{1, 0, 0, 0, 0, 0, 0}}
	p := &Pipeline{
		locator:    &stubLocator{rects: []Rect{{X: 100, Y: 100, W: 10, H: 10}}},
		classifier: pred,
	}

	res, err := p.Classify(encodeTestPNG(t, 32, 32))
	require.NoError(t, err)
	assert.Equal(t, Undetected, res.Label)
	assert.Equal(t, 0, pred.calls)
}

// sharedBufferPredictor mirrors the production classifier's contract: a
// single scratch buffer shared by every call, with the serialization the
// predictor itself must provide. The race detector flags any caller that
// relies on external synchronization.
type sharedBufferPredictor struct {
	mu      sync.Mutex
	scratch []float32
	scores  []float32
}

func (s *sharedBufferPredictor) Predict(face *Gray) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.scratch) < len(face.Pix) {
		s.scratch = make([]float32, len(face.Pix))
	}
	for i, p := range face.Pix {
		s.scratch[i] = float32(p) / 255.0
	}
	out := make([]float32, len(s.scores))
	copy(out, s.scores)
	return out, nil
}

func TestClassifyParallelRequests(t *testing.T) {
	pred := &sharedBufferPredictor{scores: []float32{0, 0, 0, 0.9, 0.1, 0, 0}}
	p := &Pipeline{
		locator:    &stubLocator{rects: []Rect{{X: 2, Y: 2, W: 24, H: 24}}},
		classifier: pred,
	}

	data := encodeTestPNG(t, 64, 64)

	const workers = 16
	const iterations = 25

	errs := make(chan error, workers*iterations)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				res, err := p.Classify(data)
				if err != nil {
					errs <- err
					continue
				}
				if res.Label != "Happy" || !res.Detected {
					errs <- fmt.Errorf("got label %q detected=%v", res.Label, res.Detected)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("parallel classify: %v", err)
	}
}

func TestArgmax(t *testing.T) {
	assert.Equal(t, 0, argmax([]float32{0.5, 0.5, 0.5}))
	assert.Equal(t, 3, argmax([]float32{0.1, 0.2, 0.1, 0.6, 0, 0, 0}))
	assert.Equal(t, 0, argmax([]float32{1, 1, 1, 1, 1, 1, 1}))
	// A flat or even degenerate distribution still yields a definite label.
	assert.Equal(t, 0, argmax(make([]float32, 7)))
}
