package usecase

// Partition splits ids into contiguous chunks for parallel processing.
//
// The number of workers is min(len(ids), parallelism), and every chunk except
// possibly the last holds ceil(len(ids)/workers) ids. Concatenating the chunks
// in order reproduces ids exactly. An empty input yields no chunks.
func Partition[T any](ids []T, parallelism int) [][]T {
	n := len(ids)
	if n == 0 {
		return nil
	}

	workers := min(n, max(parallelism, 1))
	chunkSize := (n + workers - 1) / workers

	chunks := make([][]T, 0, (n+chunkSize-1)/chunkSize)
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		// cap is clipped so an append on one chunk can never overwrite the next
		chunks = append(chunks, ids[start:end:end])
	}

	return chunks
}
