package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "builder"

// Результаты запроса чанка
const (
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultCoalesced = "coalesced"
)

// Pipeline содержит Prometheus-метрики конвейера чанков:
// хранилище → генератор → мешер → сцена.
// Все методы допускают nil-получатель, чтобы компоненты работали без метрик.
type Pipeline struct {
	chunkRequests      *prometheus.CounterVec
	chunksCached       prometheus.Gauge
	chunksPending      prometheus.Gauge
	generationSeconds  prometheus.Histogram
	generationFailures prometheus.Counter
	meshBuildSeconds   *prometheus.HistogramVec
	meshesLive         prometheus.Gauge
	meshesDisposed     prometheus.Counter
	blockEdits         prometheus.Counter
	frameSeconds       prometheus.Histogram
}

// NewPipeline создаёт метрики и регистрирует их в reg.
// reg == nil означает глобальный регистр Prometheus.
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &Pipeline{
		chunkRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_requests_total",
			Help:      "Запросы чанков по результату: hit, miss, coalesced.",
		}, []string{"result"}),
		chunksCached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_cached",
			Help:      "Количество чанков в кеше.",
		}),
		chunksPending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "chunks_pending",
			Help:      "Количество чанков, ожидающих генерации.",
		}),
		generationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_generation_seconds",
			Help:      "Длительность генерации одного чанка.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
		generationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunk_generation_failures_total",
			Help:      "Генерации, завершившиеся паникой воркера.",
		}),
		meshBuildSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mesh_build_seconds",
			Help:      "Длительность построения меша по типу мешера.",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05},
		}, []string{"mesher"}),
		meshesLive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "meshes_live",
			Help:      "Количество мешей, присоединённых к сцене.",
		}),
		meshesDisposed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "meshes_disposed_total",
			Help:      "Освобождённые меши (замена или выгрузка).",
		}),
		blockEdits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "block_edits_total",
			Help:      "Успешные изменения блоков.",
		}),
		frameSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_seconds",
			Help:      "Длительность одного кадра игрового цикла.",
			Buckets:   []float64{0.001, 0.004, 0.008, 0.016, 0.033, 0.066, 0.1},
		}),
	}

	reg.MustRegister(
		p.chunkRequests, p.chunksCached, p.chunksPending,
		p.generationSeconds, p.generationFailures,
		p.meshBuildSeconds, p.meshesLive, p.meshesDisposed,
		p.blockEdits, p.frameSeconds,
	)
	return p
}

// ChunkRequest учитывает запрос чанка с указанным результатом
func (p *Pipeline) ChunkRequest(result string) {
	if p == nil {
		return
	}
	p.chunkRequests.WithLabelValues(result).Inc()
}

// SetChunkCounts обновляет размеры кеша и очереди ожидания
func (p *Pipeline) SetChunkCounts(cached, pending int) {
	if p == nil {
		return
	}
	p.chunksCached.Set(float64(cached))
	p.chunksPending.Set(float64(pending))
}

// ObserveGeneration фиксирует время генерации
func (p *Pipeline) ObserveGeneration(d time.Duration) {
	if p == nil {
		return
	}
	p.generationSeconds.Observe(d.Seconds())
}

// GenerationFailed учитывает упавшую генерацию
func (p *Pipeline) GenerationFailed() {
	if p == nil {
		return
	}
	p.generationFailures.Inc()
}

// ObserveMeshBuild фиксирует время построения меша
func (p *Pipeline) ObserveMeshBuild(mesher string, d time.Duration) {
	if p == nil {
		return
	}
	p.meshBuildSeconds.WithLabelValues(mesher).Observe(d.Seconds())
}

// SetMeshesLive обновляет число живых мешей
func (p *Pipeline) SetMeshesLive(n int) {
	if p == nil {
		return
	}
	p.meshesLive.Set(float64(n))
}

// MeshDisposed учитывает освобождённый меш
func (p *Pipeline) MeshDisposed() {
	if p == nil {
		return
	}
	p.meshesDisposed.Inc()
}

// BlockEdited учитывает изменение блока
func (p *Pipeline) BlockEdited() {
	if p == nil {
		return
	}
	p.blockEdits.Inc()
}

// ObserveFrame фиксирует длительность кадра
func (p *Pipeline) ObserveFrame(d time.Duration) {
	if p == nil {
		return
	}
	p.frameSeconds.Observe(d.Seconds())
}
