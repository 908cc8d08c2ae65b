package domain

// ModelState é o estado global de carregamento dos modelos de detecção
type ModelState string

const (
	ModelUnloaded ModelState = "unloaded"
	ModelLoading  ModelState = "loading"
	ModelReady    ModelState = "ready"
	ModelFailed   ModelState = "failed"
)

// Gauge maps the state onto the numeric value exported as a metric.
func (s ModelState) Gauge() float64 {
	switch s {
	case ModelLoading:
		return 1
	case ModelReady:
		return 2
	case ModelFailed:
		return -1
	default:
		return 0
	}
}

// LiveState é o estado da máquina do loop ao vivo
type LiveState string

const (
	LiveIdle     LiveState = "idle"
	LiveStarting LiveState = "starting"
	LiveRunning  LiveState = "running"
	LiveStopping LiveState = "stopping"
	LiveError    LiveState = "error"
)

// ViewMode indica qual par visual está visível
type ViewMode string

const (
	ViewNone  ViewMode = "none"
	ViewImage ViewMode = "image"
	ViewVideo ViewMode = "video"
)
