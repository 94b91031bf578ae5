package vision

import (
	"fmt"
	"log/slog"
	"path/filepath"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/moodlog/internal/config"
	"github.com/your-org/moodlog/internal/models"
)

// Undetected is the sentinel returned when no face region passes the
// locator threshold. It is a valid classification outcome, not an error.
const Undetected = "Undetected"

// Result is the outcome of one classification call.
type Result struct {
	Label    string
	Detected bool
	Face     Rect
	// Scores is the 7-class probability vector for the classified face,
	// nil when undetected.
	Scores []float32
}

type faceLocator interface {
	Locate(g *Gray) []Rect
}

type labelPredictor interface {
	Predict(face *Gray) ([]float32, error)
}

// Pipeline orchestrates decode → grayscale → locate → classify. It holds
// no mutable state after construction and is safe for concurrent use.
type Pipeline struct {
	locator    faceLocator
	classifier labelPredictor
	closer     func()
}

// NewPipeline loads the cascade and the emotion model and returns a ready
// pipeline. opts may be nil (ORT defaults) or a pre-configured
// *ort.SessionOptions.
func NewPipeline(cfg config.VisionConfig, opts *ort.SessionOptions) (*Pipeline, error) {
	cascadePath := filepath.Join(cfg.ModelsDir, "facefinder")
	modelPath := filepath.Join(cfg.ModelsDir, "emotion.onnx")

	slog.Info("loading face cascade", "path", cascadePath)
	locator, err := NewLocator(cascadePath, cfg.ScaleFactor, cfg.MinNeighbors, cfg.MinFaceSize, cfg.MaxFaceSize)
	if err != nil {
		return nil, fmt.Errorf("load locator: %w", err)
	}

	slog.Info("loading emotion model", "path", modelPath)
	classifier, err := NewClassifier(modelPath, opts)
	if err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}

	slog.Info("vision pipeline ready")

	return &Pipeline{
		locator:    locator,
		classifier: classifier,
		closer:     classifier.Close,
	}, nil
}

// Classify runs the full pipeline on raw image bytes. Only the first
// located rectangle, in the cascade's scan order, is ever classified;
// remaining rectangles are not examined. With zero rectangles the
// classifier stage is never invoked and the Undetected sentinel is
// returned.
func (p *Pipeline) Classify(imageData []byte) (Result, error) {
	img, err := Decode(imageData)
	if err != nil {
		return Result{}, err
	}

	gray := ToGray(img)
	faces := p.locator.Locate(gray)
	if len(faces) == 0 {
		return Result{Label: Undetected}, nil
	}

	face := gray.Crop(faces[0])
	if face == nil {
		return Result{Label: Undetected}, nil
	}

	scores, err := p.classifier.Predict(face)
	if err != nil {
		return Result{}, fmt.Errorf("classify face: %w", err)
	}

	idx := argmax(scores)
	// The 7-class head cannot produce an out-of-range index; kept as a
	// guard against a mismatched model file.
	if idx < 0 || idx >= len(models.EmotionLabels) {
		return Result{Label: Undetected}, nil
	}

	return Result{
		Label:    models.EmotionLabels[idx],
		Detected: true,
		Face:     faces[0],
		Scores:   scores,
	}, nil
}

// Close releases the ONNX session.
func (p *Pipeline) Close() {
	if p.closer != nil {
		p.closer()
	}
}
