package img

import (
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
)

const (
	idxLabelMagic = 0x00000801
	idxImageMagic = 0x00000803
	maxImageSize  = 1 << 12
	maxItems      = 1 << 24
)

var (
	DigitClasses   = []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}
	FashionClasses = []string{"T-shirt/top", "Trouser", "Pullover", "Dress", "Coat", "Sandal", "Shirt", "Sneaker", "Bag", "Ankle boot"}
)

type labelHeader struct{ Magic, Num uint32 }

type imageHeader struct{ Magic, Num, Rows, Cols uint32 }

// LoadMNIST reads the <prefix>-images-idx3-ubyte and <prefix>-labels-idx1-ubyte files
// from dir, e.g. prefix "train" or "t10k". Gzipped copies are used if present.
func LoadMNIST(dir, prefix string, classes []string) (*Data, error) {
	labelFile := path.Join(dir, prefix+"-labels-idx1-ubyte")
	f, err := OpenIDX(labelFile)
	if err != nil {
		return nil, err
	}
	labels, err := ReadIDXLabels(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", labelFile, err)
	}
	fmt.Printf("read %d labels from %s\n", len(labels), labelFile)

	imageFile := path.Join(dir, prefix+"-images-idx3-ubyte")
	if f, err = OpenIDX(imageFile); err != nil {
		return nil, err
	}
	images, err := ReadIDXImages(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", imageFile, err)
	}
	if len(images) > 0 {
		fmt.Printf("read %d %dx%d images from %s\n", len(images), images[0].Height, images[0].Width, imageFile)
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%s: have %d images but %d labels", prefix, len(images), len(labels))
	}
	if len(images) == 0 {
		return nil, fmt.Errorf("%s: no images", prefix)
	}
	for i, label := range labels {
		if label < 0 || int(label) >= len(classes) {
			return nil, fmt.Errorf("%s: label %d at index %d out of range for %d classes", prefix, label, i, len(classes))
		}
	}
	return NewData(classes, labels, images), nil
}

// OpenIDX opens the named file, or name.gz if it does not exist. Gzipped files are
// decompressed on the fly.
func OpenIDX(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if os.IsNotExist(err) && !strings.HasSuffix(name, ".gz") {
		name += ".gz"
		f, err = os.Open(name)
	}
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, ".gz") {
		return f, nil
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return gzipFile{Reader: zr, f: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g gzipFile) Close() error {
	err := g.Reader.Close()
	if err2 := g.f.Close(); err == nil {
		err = err2
	}
	return err
}

// ReadIDXLabels decodes an IDX1 label file.
func ReadIDXLabels(r io.Reader) ([]int32, error) {
	var head labelHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("error reading label header: %w", err)
	}
	if head.Magic != idxLabelMagic {
		return nil, fmt.Errorf("invalid label file magic number %#x", head.Magic)
	}
	if head.Num > maxItems {
		return nil, fmt.Errorf("too many labels: %d", head.Num)
	}
	bytes := make([]byte, head.Num)
	if _, err := io.ReadFull(r, bytes); err != nil {
		return nil, fmt.Errorf("error reading %d labels: %w", head.Num, err)
	}
	labels := make([]int32, head.Num)
	for i, label := range bytes {
		labels[i] = int32(label)
	}
	return labels, nil
}

// ReadIDXImages decodes an IDX3 image file.
func ReadIDXImages(r io.Reader) ([]*Image, error) {
	var head imageHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("error reading image header: %w", err)
	}
	if head.Magic != idxImageMagic {
		return nil, fmt.Errorf("invalid image file magic number %#x", head.Magic)
	}
	h, w := int(head.Rows), int(head.Cols)
	if head.Num > maxItems {
		return nil, fmt.Errorf("too many images: %d", head.Num)
	}
	if h == 0 || w == 0 || h > maxImageSize || w > maxImageSize {
		return nil, fmt.Errorf("invalid image size %dx%d", h, w)
	}
	images := make([]*Image, head.Num)
	for i := range images {
		img := NewImage(w, h)
		if _, err := io.ReadFull(r, img.Pix); err != nil {
			return nil, fmt.Errorf("error reading image %d: %w", i, err)
		}
		images[i] = img
	}
	return images, nil
}

// WriteIDXLabels encodes labels in IDX1 format.
func WriteIDXLabels(w io.Writer, labels []int32) error {
	head := labelHeader{Magic: idxLabelMagic, Num: uint32(len(labels))}
	if err := binary.Write(w, binary.BigEndian, head); err != nil {
		return err
	}
	bytes := make([]byte, len(labels))
	for i, label := range labels {
		bytes[i] = byte(label)
	}
	_, err := w.Write(bytes)
	return err
}

// WriteIDXImages encodes a set of equal sized images in IDX3 format.
func WriteIDXImages(w io.Writer, images []*Image) error {
	head := imageHeader{Magic: idxImageMagic, Num: uint32(len(images))}
	if len(images) > 0 {
		head.Rows, head.Cols = uint32(images[0].Height), uint32(images[0].Width)
	}
	if err := binary.Write(w, binary.BigEndian, head); err != nil {
		return err
	}
	for i, img := range images {
		if img.Width != int(head.Cols) || img.Height != int(head.Rows) {
			return fmt.Errorf("image %d size mismatch", i)
		}
		if _, err := w.Write(img.Pix); err != nil {
			return err
		}
	}
	return nil
}
