package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split frame into blocks of variable height and assign to the pool
	// of tracers using feedback collected from previous frames.
	//
	// This method returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler distributes rows proportionally to the static
// speed estimate reported by each tracer.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
	}

	var total float64
	for _, tr := range tracers {
		total += float64(tr.Speed())
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32
	for idx, tr := range tracers {
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(tr.Speed())*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing
	// ones to the first tracer.
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}

// The perfect scheduler assumes that the volume of tracing work between
// two subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// When previous frame timings are available the scheduler estimates the
// workload for tracer w and frame i+1 as:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	// Fall back to the static speed estimates until every tracer has
	// reported timings for a rendered block.
	useEstimates := len(sch.blockAssignment) != len(tracers)
	if !useEstimates {
		for _, tr := range tracers {
			stats := tr.Stats()
			if stats.BlockH == 0 || stats.RenderTime == 0 {
				useEstimates = true
				break
			}
		}
	}

	var total float64
	var scheduledRows uint32

	if useEstimates {
		sch.blockAssignment = make([]uint32, len(tracers))

		for _, tr := range tracers {
			total += float64(tr.Speed())
		}

		scaler := float64(frameH) / total
		for idx, tr := range tracers {
			sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(tr.Speed())*scaler)))
			scheduledRows += sch.blockAssignment[idx]
		}
		sch.blockAssignment[0] += frameH - scheduledRows

		return sch.blockAssignment
	}

	// Use last frame statistics.
	for _, tr := range tracers {
		stats := tr.Stats()
		total += float64(stats.BlockH) / float64(stats.RenderTime)
	}

	scaler := float64(frameH) / total
	for idx, tr := range tracers {
		stats := tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(stats.BlockH)/float64(stats.RenderTime)*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing
	// ones to the first tracer.
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}
