package common

import "fmt"

// BlockRange is an inclusive block interval.
type BlockRange struct {
	Start int64
	End   int64
}

func (r BlockRange) Blocks() int64 {
	return r.End - r.Start + 1
}

func (r BlockRange) String() string {
	return fmt.Sprintf("[%d, %d]", r.Start, r.End)
}

// SplitRange chunks an inclusive range into sub-ranges of at most chunkSize
// blocks. chunkSize <= 0 means no splitting.
func SplitRange(r BlockRange, chunkSize int64) []BlockRange {
	if chunkSize <= 0 || r.Blocks() <= chunkSize {
		return []BlockRange{r}
	}
	var chunks []BlockRange
	for start := r.Start; start <= r.End; start += chunkSize {
		end := start + chunkSize - 1
		if end > r.End {
			end = r.End
		}
		chunks = append(chunks, BlockRange{Start: start, End: end})
	}
	return chunks
}

// Halves splits a range into two near-equal sub-ranges. A single-block range
// cannot be halved and is returned as-is.
func Halves(r BlockRange) []BlockRange {
	if r.Blocks() <= 1 {
		return []BlockRange{r}
	}
	mid := r.Start + (r.End-r.Start)/2
	return []BlockRange{
		{Start: r.Start, End: mid},
		{Start: mid + 1, End: r.End},
	}
}
