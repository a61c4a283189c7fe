package img

import (
	"fmt"

	"github.com/jnb666/mlptrain/parallel"
	"github.com/jnb666/mlptrain/stats"
)

// Normalisation giving inputs in the range -1 to 1.
const (
	HalfMean   = 0.5
	HalfStdDev = 0.5
)

// Calculate mean and stddev of pixel values scaled to 0-1 from set of images,
// splitting the work over the given number of threads.
func GetStats(threads int, imgList ...[]*Image) (mean, std float32) {
	var all []*Image
	for _, images := range imgList {
		all = append(all, images...)
	}
	if threads < 1 {
		threads = 1
	}
	partial := make([]stats.Average, threads)
	parallel.Chunks(len(all), threads, func(chunk, start, end int) {
		s := &partial[chunk]
		for _, img := range all[start:end] {
			for _, pix := range img.Pix {
				s.Add(float64(pix) / 255)
			}
		}
	})
	var total stats.Average
	for i := range partial {
		total.Merge(&partial[i])
	}
	mean, std = float32(total.Mean), float32(total.StdDev)
	fmt.Printf("mean = %.4f stddev = %.4f\n", mean, std)
	return mean, std
}
