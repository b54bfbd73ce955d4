package flash

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"
	"golang.org/x/exp/constraints"
)

// ReadImage loads a firmware image, decompressing it if the file name ends
// in .xz
func ReadImage(path string) ([]byte, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".xz") {
		return bs, nil
	}

	r, err := xz.NewReader(bytes.NewReader(bs))
	if err != nil {
		return nil, errors.Wrap(err, "could not open xz stream")
	}
	image, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "could not decompress image")
	}
	return image, nil
}

// min will return the minimum of the two values
func min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}
