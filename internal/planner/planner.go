package planner

import (
	"github.com/surgencelabs/dune-sync/internal/common"
)

// Input carries everything the window computation needs. Plan does no I/O so
// a run is reproducible from (checkpoint, head, config) alone.
type Input struct {
	Checkpoint    int64
	HasCheckpoint bool
	ChainHead     int64
	OverlapBlocks int64
	BatchSize     int64
	// StartBlock below zero means no configured start; the first run then
	// begins one batch behind the head.
	StartBlock int64
}

// Plan computes the next sync window. The last OverlapBlocks blocks before
// the checkpoint are always re-fetched: a block that looked final when the
// checkpoint was written may have been replaced by a competing block since.
// Re-fetching converges on the canonical chain without any reorg detection
// here; duplicates are resolved by the read-time dedup query.
//
// ok is false when there is nothing to do (checkpoint at or past the head).
func Plan(in Input) (window common.BlockRange, ok bool) {
	var start int64
	switch {
	case in.HasCheckpoint:
		if in.Checkpoint >= in.ChainHead {
			return common.BlockRange{}, false
		}
		start = in.Checkpoint - in.OverlapBlocks + 1
		if in.StartBlock >= 0 && start < in.StartBlock {
			start = in.StartBlock
		}
	case in.StartBlock >= 0:
		start = in.StartBlock
	default:
		start = in.ChainHead - in.BatchSize
	}

	if start < 0 {
		start = 0
	}
	if start > in.ChainHead {
		return common.BlockRange{}, false
	}

	end := start + in.BatchSize - 1
	if end > in.ChainHead {
		end = in.ChainHead
	}
	return common.BlockRange{Start: start, End: end}, true
}
