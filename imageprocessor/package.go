// Package imageprocessor turns uploaded image bytes into canonical pixel
// buffers: it decodes through a registry of loaders, profiles dominant
// colors and produces the center-cropped, size-bounded frame fed to the
// embedding engine. All pixel grids are 3-channel RGB gocv.Mat values.
package imageprocessor
