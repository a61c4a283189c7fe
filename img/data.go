package img

import (
	"encoding/gob"
	"fmt"
	"image"
	"io"
)

// Image data set which implements the nnet.Data interface
type Data struct {
	DataHead
	Images []*Image
}

// DataHead holds the class names, labels and normalisation for a Data set.
type DataHead struct {
	Class  []string
	Dims   []int
	Labels []int32
	Mean   float32
	StdDev float32
}

// Create a new image set, pixels are scaled to the range 0-1 with no further normalisation.
func NewData(classes []string, labels []int32, images []*Image) *Data {
	var dims []int
	if len(images) > 0 {
		dims = []int{images[0].Height, images[0].Width}
	}
	return &Data{
		DataHead: DataHead{Class: classes, Dims: dims, Labels: labels, Mean: 0, StdDev: 1},
		Images:   images,
	}
}

// Len function returns number of images
func (d *Data) Len() int { return len(d.Labels) }

// Classes functions returns the names of each label value
func (d *Data) Classes() []string { return d.Class }

// Shape returns height, width
func (d *Data) Shape() []int { return d.Dims }

// Label returns classification for given images
func (d *Data) Label(index []int, label []int32) {
	for i, ix := range index {
		label[i] = d.Labels[ix]
	}
}

// Input returns normalised input data in buf array
func (d *Data) Input(index []int, buf []float32) {
	nfeat := d.nfeat()
	for i, ix := range index {
		d.Images[ix].Unpack(buf[i*nfeat:(i+1)*nfeat], d.Mean, d.StdDev)
	}
}

// Image returns given image number
func (d *Data) Image(ix int) image.Image {
	return d.Images[ix]
}

// SetNorm sets the mean and standard deviation applied by Input.
func (d *Data) SetNorm(mean, stdDev float32) {
	d.Mean, d.StdDev = mean, stdDev
}

// Slice returns images from start to end
func (d *Data) Slice(start, end int) *Data {
	data := *d
	data.Labels = append([]int32{}, d.Labels[start:end]...)
	data.Images = append([]*Image{}, d.Images[start:end]...)
	return &data
}

func (d *Data) nfeat() int {
	n := 1
	for _, d := range d.Dims {
		n *= d
	}
	return n
}

// Encode data to binary file
func (d *Data) Encode(w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(&d.DataHead); err != nil {
		return fmt.Errorf("error encoding header: %w", err)
	}
	for i, img := range d.Images {
		if err := enc.Encode(img); err != nil {
			return fmt.Errorf("error encoding image %d: %w", i, err)
		}
	}
	return nil
}

// Decode data from binary file
func (d *Data) Decode(r io.Reader) error {
	d.DataHead = DataHead{}
	dec := gob.NewDecoder(r)
	if err := dec.Decode(&d.DataHead); err != nil {
		return fmt.Errorf("error decoding header: %w", err)
	}
	d.Images = make([]*Image, d.Len())
	for i := range d.Images {
		if err := dec.Decode(&d.Images[i]); err != nil {
			return fmt.Errorf("error decoding image %d: %w", i, err)
		}
	}
	return nil
}
