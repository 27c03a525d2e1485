package nn

import "sync"

// runChunked splits the range [0, n) into at most workers contiguous chunks
// and calls f once per chunk, each on its own goroutine. It returns once all
// chunks are done. f must be safe to run concurrently with itself.
func runChunked(n, workers int, f func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		f(0, n)
		return
	}

	// Chunk sizes differ by at most one.
	size := n / workers
	rem := n % workers

	var wg sync.WaitGroup
	wg.Add(workers)
	lo := 0
	for w := 0; w < workers; w++ {
		hi := lo + size
		if w < rem {
			hi++
		}
		go func(lo, hi int) {
			defer wg.Done()
			f(lo, hi)
		}(lo, hi)
		lo = hi
	}
	wg.Wait()
}
