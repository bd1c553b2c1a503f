package api

import (
	"fmt"
	"math"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/process"
)

const mb = 1 << 20

// ProcessSample - снимок состояния процесса для /api/stats и /api/server
type ProcessSample struct {
	Uptime     string  `json:"uptime"`
	MemoryMB   float64 `json:"memory_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	ServerTime int64   `json:"server_time"`
}

// HeapSample - статистика рантайма Go
type HeapSample struct {
	AllocMB     float64 `json:"alloc_mb"`
	SysMB       float64 `json:"sys_mb"`
	HeapInuseMB float64 `json:"heap_inuse_mb"`
	NumGC       uint32  `json:"num_gc"`
	Goroutines  int     `json:"goroutines"`
}

// processSampler снимает показатели процесса через gopsutil.
// Если процесс недоступен (контейнер без /proc), берутся данные рантайма.
type processSampler struct {
	started time.Time

	once sync.Once
	proc *process.Process
}

func newProcessSampler() *processSampler {
	return &processSampler{started: time.Now()}
}

func (p *processSampler) self() *process.Process {
	p.once.Do(func() {
		if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
			p.proc = proc
		}
	})
	return p.proc
}

// Sample возвращает текущий снимок; память и CPU округлены до сотых
func (p *processSampler) Sample() ProcessSample {
	return ProcessSample{
		Uptime:     formatUptime(time.Since(p.started)),
		MemoryMB:   round2(p.residentMB()),
		CPUPercent: round2(p.cpuPercent()),
		ServerTime: time.Now().Unix(),
	}
}

func (p *processSampler) residentMB() float64 {
	if proc := p.self(); proc != nil {
		if info, err := proc.MemoryInfo(); err == nil {
			return float64(info.RSS) / mb
		}
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.Sys) / mb
}

func (p *processSampler) cpuPercent() float64 {
	if proc := p.self(); proc != nil {
		if v, err := proc.CPUPercent(); err == nil {
			return v
		}
	}
	// Без процесса показываем загрузку всей машины
	if total, err := cpu.Percent(0, false); err == nil && len(total) > 0 {
		return total[0]
	}
	return 0
}

// Heap возвращает статистику кучи и горутин
func (p *processSampler) Heap() HeapSample {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return HeapSample{
		AllocMB:     round2(float64(m.Alloc) / mb),
		SysMB:       round2(float64(m.Sys) / mb),
		HeapInuseMB: round2(float64(m.HeapInuse) / mb),
		NumGC:       m.NumGC,
		Goroutines:  runtime.NumGoroutine(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// formatUptime печатает длительность без нулевых старших единиц: "2м 3с", "1д 1ч 0м 0с"
func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	parts := []struct {
		n    int
		unit string
	}{
		{total / 86400, "д"},
		{total / 3600 % 24, "ч"},
		{total / 60 % 60, "м"},
		{total % 60, "с"},
	}

	out := ""
	for i, p := range parts {
		if out == "" && p.n == 0 && i < len(parts)-1 {
			continue
		}
		if out != "" {
			out += " "
		}
		out += fmt.Sprintf("%d%s", p.n, p.unit)
	}
	return out
}
