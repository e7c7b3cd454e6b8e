package imageprocessor

import (
	"errors"
	"fmt"
	"sync"

	"productmatcher/logging"

	"gocv.io/x/gocv"
)

// ImageLoader decodes encoded image bytes into an RGB pixel grid
type ImageLoader interface {
	// Name identifies the loader in logs
	Name() string

	// CanLoad determines if this loader can handle the given format
	CanLoad(format FormatType) bool

	// LoadImage decodes data and returns a 3-channel RGB Mat
	LoadImage(data []byte) (gocv.Mat, error)
}

// ImageLoaderRegistry keeps loaders in the order they should be attempted
type ImageLoaderRegistry struct {
	loaders []ImageLoader
	mutex   sync.RWMutex
}

// NewImageLoaderRegistry creates a registry with the default loaders:
// OpenCV first, then Go's image decoders, then embedded-preview extraction
// when exiftool is installed.
func NewImageLoaderRegistry() *ImageLoaderRegistry {
	registry := &ImageLoaderRegistry{}
	registry.RegisterLoader(NewOpenCVLoader())
	registry.RegisterLoader(NewGoImageLoader())

	if checkExiftoolCommandAvailable() {
		registry.RegisterLoader(NewExiftoolPreviewLoader())
		logging.DebugLog("Registered exiftool preview loader")
	} else {
		logging.DebugLog("exiftool not found, embedded preview extraction disabled")
	}

	return registry
}

// RegisterLoader appends a loader to the registry
func (r *ImageLoaderRegistry) RegisterLoader(loader ImageLoader) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.loaders = append(r.loaders, loader)
}

// GetLoaders returns the loaders able to handle format, in attempt order.
// An unknown format is offered to every loader.
func (r *ImageLoaderRegistry) GetLoaders(format FormatType) []ImageLoader {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var out []ImageLoader
	for _, loader := range r.loaders {
		if format == FormatUnknown || loader.CanLoad(format) {
			out = append(out, loader)
		}
	}
	return out
}

// LoadImage tries each suitable loader until one produces a non-empty grid
func (r *ImageLoaderRegistry) LoadImage(data []byte, format FormatType) (gocv.Mat, error) {
	loaders := r.GetLoaders(format)
	if len(loaders) == 0 {
		return gocv.NewMat(), fmt.Errorf("no suitable loader found for format %s", format)
	}

	var errs []error
	for _, loader := range loaders {
		img, err := loader.LoadImage(data)
		if err == nil && !img.Empty() {
			logging.DebugLog("Decoded %s image with %s loader (%dx%d)", format, loader.Name(), img.Cols(), img.Rows())
			return img, nil
		}
		if err == nil {
			err = errors.New("empty image")
		}
		img.Close()
		errs = append(errs, fmt.Errorf("%s: %w", loader.Name(), err))
	}

	return gocv.NewMat(), errors.Join(errs...)
}
