package service

import (
	"sync"

	"github.com/saturnino-fabrica-de-software/facewatch/internal/domain"
)

// View tracks which visual pair is visible. Only one is shown at a time.
type View struct {
	mu   sync.RWMutex
	mode domain.ViewMode
}

func NewView() *View {
	return &View{mode: domain.ViewNone}
}

func (v *View) SetMode(mode domain.ViewMode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.mode = mode
}

func (v *View) Mode() domain.ViewMode {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mode
}
