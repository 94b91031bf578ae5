package vision

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	classifierInputSize = 48
	numClasses          = 7
)

// Classifier scores a cropped grayscale face region against the
// pre-trained emotion model. The session is bound to one pair of
// pre-allocated tensors, so mu serializes inference; this keeps the
// Classifier safe to share across request handlers.
type Classifier struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputW       int
	inputH       int
}

// NewClassifier loads the emotion ONNX model. The model expects a single
// 48x48 grayscale face and emits a 7-class probability vector.
// opts may be nil (ORT defaults) or a pre-configured *ort.SessionOptions.
func NewClassifier(modelPath string, opts *ort.SessionOptions) (*Classifier, error) {
	inputW, inputH := classifierInputSize, classifierInputSize

	inputShape := ort.NewShape(1, 1, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, numClasses)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create classifier session: %w", err)
	}

	return &Classifier{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputW:       inputW,
		inputH:       inputH,
	}, nil
}

// Predict resizes the face crop to the model input, rescales intensities
// from [0,255] to [0,1], and returns the 7-class probability vector.
// Safe for concurrent callers; inferences on the shared tensors run one
// at a time.
func (c *Classifier) Predict(face *Gray) ([]float32, error) {
	resized := face.Resize(c.inputW, c.inputH)

	c.mu.Lock()
	defer c.mu.Unlock()

	inputSlice := c.inputTensor.GetData()
	for i, p := range resized.Pix {
		inputSlice[i] = float32(p) / 255.0
	}

	if err := c.session.Run(); err != nil {
		return nil, fmt.Errorf("run classifier: %w", err)
	}

	data := c.outputTensor.GetData()
	if len(data) < numClasses {
		return nil, fmt.Errorf("unexpected output size: %d", len(data))
	}

	scores := make([]float32, numClasses)
	copy(scores, data)
	return scores, nil
}

func (c *Classifier) Close() {
	if c.session != nil {
		c.session.Destroy()
	}
	if c.inputTensor != nil {
		c.inputTensor.Destroy()
	}
	if c.outputTensor != nil {
		c.outputTensor.Destroy()
	}
}

// argmax returns the index of the first maximal value. Ties resolve to
// the lowest index.
func argmax(scores []float32) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
