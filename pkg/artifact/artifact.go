// Package artifact converts screenshots to grayscale GIFs and writes them to disk.
package artifact

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// DateLayout is the date stamp appended to step output names.
const DateLayout = "2006-01-02"

// grayPalette holds the 256 gray levels, indexed by luminance.
var grayPalette = func() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}()

// grayQuantizer returns the fixed gray palette regardless of image content.
type grayQuantizer struct{}

func (grayQuantizer) Quantize(p color.Palette, _ image.Image) color.Palette {
	return append(p[:0], grayPalette...)
}

// ToGrayscaleGIF decodes a PNG (or any format imaging can decode),
// desaturates it and encodes a single-frame GIF using exact gray levels.
func ToGrayscaleGIF(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}

	gray := imaging.Grayscale(img)

	var buf bytes.Buffer
	err = imaging.Encode(&buf, gray, imaging.GIF,
		imaging.GIFNumColors(len(grayPalette)),
		imaging.GIFQuantizer(grayQuantizer{}),
		imaging.GIFDrawer(draw.Src),
	)
	if err != nil {
		return nil, fmt.Errorf("encode gif: %w", err)
	}
	return buf.Bytes(), nil
}

// Writer writes step images into Dir.
type Writer struct {
	Dir string
	Now func() time.Time // Clock for the date stamp; defaults to time.Now
}

// NewWriter creates a Writer for dir using the wall clock.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, Now: time.Now}
}

func (w *Writer) now() time.Time {
	if w.Now == nil {
		return time.Now()
	}
	return w.Now()
}

// FileName returns "{name}_{yyyy-MM-dd}.gif" for today. Re-running a step
// on the same day reuses the name.
func (w *Writer) FileName(name string) string {
	return fmt.Sprintf("%s_%s.gif", name, w.now().Format(DateLayout))
}

// WriteGIF converts a screenshot and writes it under the dated step name.
// It returns the written path.
func (w *Writer) WriteGIF(name string, screenshot []byte) (string, error) {
	return w.WriteAs(w.FileName(name), screenshot)
}

// WriteAs converts a screenshot and writes it under a fixed file name.
func (w *Writer) WriteAs(file string, screenshot []byte) (string, error) {
	data, err := ToGrayscaleGIF(screenshot)
	if err != nil {
		return "", err
	}
	return w.write(file, data)
}

// WriteDebugPNG writes raw screenshot bytes unchanged.
func (w *Writer) WriteDebugPNG(file string, screenshot []byte) (string, error) {
	return w.write(file, screenshot)
}

func (w *Writer) write(file string, data []byte) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
