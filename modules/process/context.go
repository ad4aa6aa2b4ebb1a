package process

import "sync"

// Context is the typed shared state passed between the steps of a
// single operation (spec's "process contexts"). Steps read and write
// entries by string key; callers that need compile-time typing should
// wrap Context in a small per-operation accessor type rather than
// sprinkling string keys through step bodies.
type Context struct {
	mu     sync.Mutex
	values map[string]interface{}
}

// NewContext returns an empty Context ready for use.
func NewContext() *Context {
	return &Context{values: make(map[string]interface{})}
}

// Set stores value under key, overwriting any previous value.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Get returns the value stored under key and whether it was present.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	return v, ok
}

// Delete removes key from the context, if present.
func (c *Context) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
}
