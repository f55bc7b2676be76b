package profile

import (
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"
)

// HostInfo summarizes the probed host hardware and the device class it
// maps to.
type HostInfo struct {
	CPUModel string
	CPUMhz   float64
	Cores    int
	MemTotal uint64
	Class    DeviceClass
}

// Detect probes the host hardware and classifies it into a device
// class. Probing is best-effort: fields that cannot be read stay zero
// and the classification falls back to the logical core count alone.
func Detect() *HostInfo {
	info := &HostInfo{
		CPUModel: "unknown",
		Cores:    runtime.NumCPU(),
	}

	if cpuInfo, err := cpu.Info(); err == nil && len(cpuInfo) > 0 {
		info.CPUModel = cpuInfo[0].ModelName
		info.CPUMhz = cpuInfo[0].Mhz
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		info.MemTotal = vm.Total
	}

	info.Class = classify(info)
	return info
}

func classify(info *HostInfo) DeviceClass {
	memGB := int(info.MemTotal >> 30)

	// An unreadable memory total must not down-class a fast host.
	memAtLeast := func(min int) bool {
		return memGB == 0 || memGB >= min
	}

	model := strings.ToLower(info.CPUModel)
	serverPart := strings.Contains(model, "xeon") ||
		strings.Contains(model, "epyc") ||
		strings.Contains(model, "threadripper")

	switch {
	case serverPart && info.Cores >= 8:
		return Workstation
	case info.Cores >= 16 && memAtLeast(32):
		return Workstation
	case info.Cores >= 8 && memAtLeast(16):
		return Desktop
	case info.Cores >= 4 && memAtLeast(8):
		return Laptop
	}
	return Handheld
}
