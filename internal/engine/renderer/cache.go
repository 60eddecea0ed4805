package renderer

import (
	"github.com/Faultbox/rotorview/internal/engine/asset"
	"github.com/Faultbox/rotorview/internal/engine/gpu"
)

// Cache maps asset IDs to GPU handles. Each ID is built at most once for the
// lifetime of the cache.
//
// Builders may call GetOrCreate recursively (a vertex array pulls in its
// buffers), so the cache takes no lock and must stay on the render thread.
type Cache struct {
	handles map[asset.ID]gpu.Handle
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{handles: make(map[asset.ID]gpu.Handle)}
}

// GetOrCreate returns the handle for id, calling build on the first request.
// A failed build is not cached.
func (c *Cache) GetOrCreate(id asset.ID, build func() (gpu.Handle, error)) (gpu.Handle, error) {
	if h, ok := c.handles[id]; ok {
		return h, nil
	}
	h, err := build()
	if err != nil {
		return 0, err
	}
	c.handles[id] = h
	return h, nil
}

// Lookup returns the handle for id without building it.
func (c *Cache) Lookup(id asset.ID) (gpu.Handle, bool) {
	h, ok := c.handles[id]
	return h, ok
}

// Len returns the number of cached handles.
func (c *Cache) Len() int { return len(c.handles) }

// Release deletes every cached object and empties the cache.
func (c *Cache) Release(dev gpu.Device) {
	for id, h := range c.handles {
		dev.Delete(h)
		delete(c.handles, id)
	}
}
