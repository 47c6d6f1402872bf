// Package monitor produces point-in-time snapshots of host resource
// utilization. A Sampler gathers CPU, memory, disk, network, and static
// system facts via gopsutil and assembles them into the SystemMetrics value
// sent to the collector. Collection is best-effort: a failing subsystem is
// logged and leaves its section zero-valued rather than failing the whole
// snapshot.
package monitor

import (
	"context"
	"path/filepath"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
)

// Sampler collects SystemMetrics snapshots for a single instance.
// CPU utilization is computed as a delta against the previous call, so the
// first snapshot after startup reports zero CPU usage while a baseline is
// established.
type Sampler struct {
	instanceID string
	logger     *zap.Logger
}

// NewSampler creates a Sampler that stamps snapshots with the given instance id.
func NewSampler(instanceID string, logger *zap.Logger) *Sampler {
	return &Sampler{
		instanceID: instanceID,
		logger:     logger,
	}
}

// Sample gathers one snapshot of all monitored subsystems.
func (s *Sampler) Sample(ctx context.Context) SystemMetrics {
	return SystemMetrics{
		Timestamp:  time.Now().UTC(),
		InstanceID: s.instanceID,
		CPU:        s.collectCPU(ctx),
		Memory:     s.collectMemory(ctx),
		Disks:      s.collectDisks(ctx),
		Network:    s.collectNetwork(ctx),
		System:     s.collectSystemInfo(ctx),
	}
}

// collectCPU gathers aggregate and per-core utilization percentages.
func (s *Sampler) collectCPU(ctx context.Context) CPUMetrics {
	result := CPUMetrics{}

	overall, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		s.logger.Warn("CPU collection failed", zap.Error(err))
		return result
	}
	if len(overall) > 0 {
		result.UsagePercent = overall[0]
	}

	perCore, err := cpu.PercentWithContext(ctx, 0, true)
	if err == nil {
		result.PerCoreUsage = perCore
		result.CoreCount = len(perCore)
	}

	return result
}

// collectMemory gathers RAM and swap usage.
func (s *Sampler) collectMemory(ctx context.Context) MemoryMetrics {
	result := MemoryMetrics{}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		s.logger.Warn("Memory collection failed", zap.Error(err))
	} else {
		result.TotalMemory = vm.Total
		result.UsedMemory = vm.Used
		result.AvailableMemory = vm.Available
	}

	swap, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		s.logger.Warn("Swap collection failed", zap.Error(err))
	} else {
		result.TotalSwap = swap.Total
		result.UsedSwap = swap.Used
	}

	return result
}

// collectDisks gathers per-volume usage and cumulative I/O counters.
// Pseudo and remote filesystems are skipped; inaccessible partitions are
// skipped silently.
func (s *Sampler) collectDisks(ctx context.Context) []DiskMetric {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		s.logger.Warn("Disk collection failed", zap.Error(err))
		return nil
	}

	// I/O counters are keyed by device base name ("sda1", not "/dev/sda1").
	counters, err := disk.IOCountersWithContext(ctx)
	if err != nil {
		counters = nil
	}

	var results []DiskMetric
	for _, p := range partitions {
		if pseudoFSTypes[p.Fstype] {
			continue
		}

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}

		metric := DiskMetric{
			Name:           p.Device,
			MountPoint:     p.Mountpoint,
			TotalSpace:     usage.Total,
			AvailableSpace: usage.Free,
			Filesystem:     p.Fstype,
		}
		if io, ok := counters[filepath.Base(p.Device)]; ok {
			metric.TotalReadBytes = io.ReadBytes
			metric.TotalWrittenBytes = io.WriteBytes
		}
		results = append(results, metric)
	}

	return results
}

// collectNetwork gathers cumulative byte counters per interface.
func (s *Sampler) collectNetwork(ctx context.Context) []NetworkMetric {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		s.logger.Warn("Network collection failed", zap.Error(err))
		return nil
	}

	results := make([]NetworkMetric, 0, len(counters))
	for _, c := range counters {
		results = append(results, NetworkMetric{
			InterfaceName:         c.Name,
			ReceivedBytesTotal:    c.BytesRecv,
			TransmittedBytesTotal: c.BytesSent,
		})
	}

	return results
}

// collectSystemInfo gathers hostname, OS/kernel identification, and uptime.
func (s *Sampler) collectSystemInfo(ctx context.Context) SystemInfo {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		s.logger.Warn("Host info collection failed", zap.Error(err))
		return SystemInfo{
			Hostname:      "N/A",
			OSName:        "N/A",
			OSVersion:     "N/A",
			KernelVersion: "N/A",
		}
	}

	return SystemInfo{
		Hostname:      info.Hostname,
		OSName:        info.Platform,
		OSVersion:     info.PlatformVersion,
		KernelVersion: info.KernelVersion,
		Uptime:        info.Uptime,
	}
}

// pseudoFSTypes lists virtual, system, and network filesystems excluded from
// disk metrics: they do not represent local storage volumes.
var pseudoFSTypes = map[string]bool{
	"autofs":      true,
	"binfmt_misc": true,
	"bpf":         true,
	"cgroup":      true,
	"cgroup2":     true,
	"configfs":    true,
	"debugfs":     true,
	"devfs":       true,
	"devtmpfs":    true,
	"efivarfs":    true,
	"fusectl":     true,
	"hugetlbfs":   true,
	"mqueue":      true,
	"nsfs":        true,
	"overlay":     true,
	"proc":        true,
	"procfs":      true,
	"pstore":      true,
	"ramfs":       true,
	"securityfs":  true,
	"squashfs":    true,
	"sysfs":       true,
	"tmpfs":       true,
	"tracefs":     true,

	"9p":         true,
	"afs":        true,
	"ceph":       true,
	"cifs":       true,
	"fuse.sshfs": true,
	"glusterfs":  true,
	"lustre":     true,
	"nfs":        true,
	"nfs4":       true,
	"smbfs":      true,
}
