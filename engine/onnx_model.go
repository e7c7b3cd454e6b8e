package engine

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"sync"

	"productmatcher/logging"

	"gocv.io/x/gocv"
)

// ImageNet statistics used by the DINOv2 image processor, RGB order
var (
	imagenetMean = [3]float32{0.485, 0.456, 0.406}
	imagenetStd  = [3]float32{0.229, 0.224, 0.225}
)

const (
	dinoResizeShortest = 256
	dinoCropSize       = 224
	dinoPrefixTokens   = 1 // CLS
)

// ONNXModel runs a DINOv2-style vision transformer exported to ONNX through
// OpenCV's DNN module. Its output is last_hidden_state, [1, tokens, dim].
type ONNXModel struct {
	path string

	// cv::dnn::Net keeps per-call input state, so forward passes are serialized
	mu  sync.Mutex
	net gocv.Net
}

// LoadONNXModel reads the network from path
func LoadONNXModel(path string) (*ONNXModel, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		net.Close()
		return nil, fmt.Errorf("failed to read ONNX model: %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	logging.DebugLog("Loaded ONNX model from %s", path)
	return &ONNXModel{path: path, net: net}, nil
}

// ONNXLoader returns a Loader for the model at path
func ONNXLoader(path string) Loader {
	return func(ctx context.Context) (Model, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return LoadONNXModel(path)
	}
}

// Forward preprocesses frame the way the model was trained and returns its token outputs
func (m *ONNXModel) Forward(frame gocv.Mat) (Hidden, error) {
	if frame.Empty() || frame.Channels() != 3 {
		return Hidden{}, fmt.Errorf("expected a non-empty 3-channel frame")
	}

	blob, err := preprocess(frame)
	if err != nil {
		return Hidden{}, err
	}
	defer blob.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return Hidden{}, fmt.Errorf("model produced no output")
	}

	tokens, dim, err := tokenShape(out.Size())
	if err != nil {
		return Hidden{}, err
	}

	data, err := out.DataPtrFloat32()
	if err != nil {
		return Hidden{}, fmt.Errorf("reading model output: %w", err)
	}
	if len(data) < tokens*dim {
		return Hidden{}, fmt.Errorf("model output has %d values, expected %d", len(data), tokens*dim)
	}

	// Copy out of the Mat before it is released
	hidden := make([]float32, tokens*dim)
	copy(hidden, data[:tokens*dim])

	return Hidden{Data: hidden, Tokens: tokens, Dim: dim, Prefix: dinoPrefixTokens}, nil
}

// Close releases the network
func (m *ONNXModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.net.Close()
}

// preprocess resizes the shortest edge to 256, center-crops 224x224,
// scales to [0,1], applies ImageNet normalization and packs an NCHW blob.
func preprocess(frame gocv.Mat) (gocv.Mat, error) {
	w, h := frame.Cols(), frame.Rows()
	scale := float64(dinoResizeShortest) / float64(min(w, h))
	size := image.Point{
		X: max(dinoResizeShortest, int(math.Round(float64(w)*scale))),
		Y: max(dinoResizeShortest, int(math.Round(float64(h)*scale))),
	}

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(frame, &resized, size, 0, 0, gocv.InterpolationCubic)

	left := (size.X - dinoCropSize) / 2
	top := (size.Y - dinoCropSize) / 2
	crop := resized.Region(image.Rect(left, top, left+dinoCropSize, top+dinoCropSize))
	defer crop.Close()

	scaled := gocv.NewMat()
	defer scaled.Close()
	crop.ConvertToWithParams(&scaled, gocv.MatTypeCV32FC3, 1.0/255.0, 0)

	channels := gocv.Split(scaled)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return gocv.NewMat(), fmt.Errorf("expected 3 channels, got %d", len(channels))
	}
	for i := range channels {
		channels[i].SubtractFloat(imagenetMean[i])
		channels[i].DivideFloat(imagenetStd[i])
	}

	normalized := gocv.NewMat()
	defer normalized.Close()
	gocv.Merge(channels, &normalized)

	// Frame is already RGB, so no channel swap
	blob := gocv.BlobFromImage(normalized, 1.0, image.Point{X: dinoCropSize, Y: dinoCropSize},
		gocv.NewScalar(0, 0, 0, 0), false, false)
	return blob, nil
}

// tokenShape interprets an output shape of [1, tokens, dim] or [tokens, dim]
func tokenShape(dims []int) (int, int, error) {
	switch {
	case len(dims) == 3 && dims[0] == 1:
		return dims[1], dims[2], nil
	case len(dims) == 2:
		return dims[0], dims[1], nil
	default:
		return 0, 0, fmt.Errorf("unexpected model output shape %v", dims)
	}
}
