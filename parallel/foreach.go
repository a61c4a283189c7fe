// Package parallel runs loop bodies over a bounded set of goroutines.
package parallel

import "sync"

// ForEach calls body(i) for i from 0 to length-1 with at most limit calls in flight.
func ForEach(length, limit int, body func(i int)) {
	if limit <= 0 {
		limit = 1
	}
	if length <= 0 {
		return
	}
	if limit == 1 || length == 1 {
		for i := 0; i < length; i++ {
			body(i)
		}
		return
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(length)
	for i := 0; i < length; i++ {
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			body(i)
		}(i)
	}
	wg.Wait()
}

// Chunks splits the range [0, length) into at most n contiguous pieces and calls body
// concurrently for each with the chunk number and the start and end index.
func Chunks(length, n int, body func(chunk, start, end int)) {
	if n <= 0 {
		n = 1
	}
	if n > length {
		n = length
	}
	if n <= 0 {
		return
	}
	size := (length + n - 1) / n
	ForEach(n, n, func(i int) {
		start := i * size
		end := start + size
		if end > length {
			end = length
		}
		if start < end {
			body(i, start, end)
		}
	})
}
