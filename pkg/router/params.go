package router

// Params maps parameter names to decoded path values.
type Params map[string]string

// Get returns the value for name, or "".
func (p Params) Get(name string) string {
	return p[name]
}

// Clone returns a copy that can be handed out without sharing the map.
func (p Params) Clone() Params {
	if p == nil {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
