package render

import (
	"bytes"
	"testing"

	"github.com/Adirelle/docker-graph/pkg/errors"
)

const tinySVG = `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10"><rect width="10" height="10"/></svg>`

func TestToPNG(t *testing.T) {
	if !Available() {
		_, err := ToPNG([]byte(tinySVG), 1)
		if !errors.Is(err, errors.ErrCodeUnsupported) {
			t.Errorf("ToPNG() without rsvg-convert error = %v, want UNSUPPORTED", err)
		}
		t.Skip("rsvg-convert not installed")
	}

	png, err := ToPNG([]byte(tinySVG), 1)
	if err != nil {
		t.Fatalf("ToPNG() error: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("ToPNG() output does not start with the PNG signature")
	}
}

func TestToPDF(t *testing.T) {
	if !Available() {
		t.Skip("rsvg-convert not installed")
	}

	pdf, err := ToPDF([]byte(tinySVG))
	if err != nil {
		t.Fatalf("ToPDF() error: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("ToPDF() output does not start with %%PDF")
	}
}
