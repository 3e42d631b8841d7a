package manager

import (
	"sync"

	"transcode-jobs/pkg/logger"
)

// Resource is an external connection with an explicit lifecycle.
type Resource interface {
	MustOpen()
	Close()
}

// ResourcePlugin creates a named resource during startup.
type ResourcePlugin interface {
	Name() string
	MustCreateResource() Resource
}

var (
	mu              sync.Mutex
	resourcePlugins []ResourcePlugin
	resources       []Resource
)

// RegisterResourcePlugin records a resource plugin; called from init funcs.
func RegisterResourcePlugin(p ResourcePlugin) {
	mu.Lock()
	defer mu.Unlock()
	resourcePlugins = append(resourcePlugins, p)
}

// MustInitResources opens every registered resource; panics on failure.
func MustInitResources() {
	mu.Lock()
	defer mu.Unlock()
	for _, p := range resourcePlugins {
		r := p.MustCreateResource()
		r.MustOpen()
		resources = append(resources, r)
		logger.Infof("resource opened name=%s", p.Name())
	}
}

// CloseResources closes resources in reverse open order.
func CloseResources() {
	mu.Lock()
	defer mu.Unlock()
	for i := len(resources) - 1; i >= 0; i-- {
		resources[i].Close()
	}
	resources = nil
}
