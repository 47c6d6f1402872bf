package recommend

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"
)

const bytesPerGB = 1024 * 1024 * 1024

// Usage summarizes observed resource consumption over a measurement window.
type Usage struct {
	AvgCPUPercent   float64
	AvgMemoryUsedGB float64
	PhysicalCores   int
}

// NeededCores converts average utilization of the physical cores into an
// effective core count, floored at one: an idle box still needs a CPU.
func (u Usage) NeededCores() float64 {
	needed := float64(u.PhysicalCores) * (u.AvgCPUPercent / 100.0)
	if needed < 1.0 {
		return 1.0
	}
	return needed
}

// NeededMemoryGB floors measured memory use at 2 GB so idle systems are not
// matched to instances too small to run anything.
func (u Usage) NeededMemoryGB() float64 {
	if u.AvgMemoryUsedGB < 2.0 {
		return 2.0
	}
	return u.AvgMemoryUsedGB
}

// MeasureUsage samples CPU and memory once per second for the given duration
// and averages the readings. Individual failed readings are logged and
// skipped. Returns early (with whatever was gathered) if ctx is cancelled.
func MeasureUsage(ctx context.Context, duration time.Duration, logger *zap.Logger) Usage {
	var cpuSamples, memSamples []float64

	seconds := int(duration.Seconds())
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

sampling:
	for i := 0; i < seconds; i++ {
		percents, err := cpu.PercentWithContext(ctx, 0, false)
		if err != nil {
			logger.Warn("CPU sample failed", zap.Error(err))
		} else if len(percents) > 0 {
			cpuSamples = append(cpuSamples, percents[0])
		}

		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			logger.Warn("Memory sample failed", zap.Error(err))
		} else {
			memSamples = append(memSamples, float64(vm.Used)/bytesPerGB)
		}

		select {
		case <-ctx.Done():
			break sampling // keep what we have
		case <-ticker.C:
		}
	}

	cores, err := cpu.CountsWithContext(ctx, false)
	if err != nil || cores == 0 {
		logical, lerr := cpu.CountsWithContext(ctx, true)
		if lerr == nil {
			cores = logical
		}
	}

	return Usage{
		AvgCPUPercent:   average(cpuSamples),
		AvgMemoryUsedGB: average(memSamples),
		PhysicalCores:   cores,
	}
}

func average(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples))
}
