// Metric data structures serialized to JSON for transmission to the
// collector. Field names are part of the wire protocol.
package monitor

import "time"

// SystemMetrics is one point-in-time measurement of host resource state.
// Immutable after construction.
type SystemMetrics struct {
	Timestamp  time.Time       `json:"timestamp"`
	InstanceID string          `json:"instance_id"`
	CPU        CPUMetrics      `json:"cpu_metrics"`
	Memory     MemoryMetrics   `json:"memory_metrics"`
	Disks      []DiskMetric    `json:"disk_metrics"`
	Network    []NetworkMetric `json:"network_metrics"`
	System     SystemInfo      `json:"system_info"`
}

// CPUMetrics holds aggregate and per-core utilization percentages.
type CPUMetrics struct {
	UsagePercent float64   `json:"usage_percent"`
	CoreCount    int       `json:"core_count"`
	PerCoreUsage []float64 `json:"per_core_usage"`
}

// MemoryMetrics holds RAM and swap usage in bytes.
type MemoryMetrics struct {
	TotalMemory     uint64 `json:"total_memory"`
	UsedMemory      uint64 `json:"used_memory"`
	AvailableMemory uint64 `json:"available_memory"`
	TotalSwap       uint64 `json:"total_swap"`
	UsedSwap        uint64 `json:"used_swap"`
}

// DiskMetric holds usage and cumulative I/O counters for one volume.
type DiskMetric struct {
	Name              string `json:"name"`
	MountPoint        string `json:"mount_point"`
	TotalSpace        uint64 `json:"total_space"`
	AvailableSpace    uint64 `json:"available_space"`
	Filesystem        string `json:"filesystem"`
	TotalWrittenBytes uint64 `json:"total_written_bytes"`
	TotalReadBytes    uint64 `json:"total_read_bytes"`
}

// NetworkMetric holds cumulative byte counters for one interface.
type NetworkMetric struct {
	InterfaceName         string `json:"interface_name"`
	ReceivedBytesTotal    uint64 `json:"received_bytes_total"`
	TransmittedBytesTotal uint64 `json:"transmitted_bytes_total"`
}

// SystemInfo holds static host facts.
type SystemInfo struct {
	Hostname      string `json:"hostname"`
	OSName        string `json:"os_name"`
	OSVersion     string `json:"os_version"`
	KernelVersion string `json:"kernel_version"`
	Uptime        uint64 `json:"uptime"`
}
