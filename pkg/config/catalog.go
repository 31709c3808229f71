package config

// Catalog is the ordered set of plugin parameters. Order follows the
// in-code definition so the settings screen can group entries under
// their heading markers.
type Catalog struct {
	params []*Param
	index  map[string]*Param
}

// NewCatalog builds a catalog from the given parameters. Duplicate
// names keep the first definition.
func NewCatalog(params ...*Param) *Catalog {
	c := &Catalog{index: make(map[string]*Param, len(params))}
	for _, p := range params {
		if _, ok := c.index[p.Name]; ok {
			continue
		}
		c.params = append(c.params, p)
		c.index[p.Name] = p
	}
	return c
}

// Params returns all parameters in definition order.
func (c *Catalog) Params() []*Param {
	return c.params
}

// Get returns the typed value of a named parameter, or nil if the
// parameter does not exist.
func (c *Catalog) Get(name string) any {
	p, ok := c.index[name]
	if !ok {
		return nil
	}
	return p.Value
}

// GetString returns the value of a text or select parameter.
func (c *Catalog) GetString(name string) string {
	s, _ := c.Get(name).(string)
	return s
}

// GetBool returns the value of a bool parameter.
func (c *Catalog) GetBool(name string) bool {
	b, _ := c.Get(name).(bool)
	return b
}

// GetInt returns the value of an int parameter.
func (c *Catalog) GetInt(name string) int64 {
	n, _ := c.Get(name).(int64)
	return n
}

// GetFloat returns the value of a float parameter.
func (c *Catalog) GetFloat(name string) float64 {
	f, _ := c.Get(name).(float64)
	return f
}

// Clone returns a catalog with copies of all parameters, so values
// can be staged without touching the shared instance.
func (c *Catalog) Clone() *Catalog {
	params := make([]*Param, len(c.params))
	for i, p := range c.params {
		cp := *p
		params[i] = &cp
	}
	return NewCatalog(params...)
}

// AdoptValues takes over the values of same-named parameters from
// another catalog.
func (c *Catalog) AdoptValues(from *Catalog) {
	for _, p := range c.params {
		if other, ok := from.index[p.Name]; ok {
			p.Value = other.Value
		}
	}
}

// Set coerces raw into the declared kind of the named parameter and
// stores it. Setting an unknown name is a no-op so that persisted
// values from other plugin versions do not break loading.
func (c *Catalog) Set(name, raw string) error {
	p, ok := c.index[name]
	if !ok || p.Kind == KindHead {
		return nil
	}
	v, err := p.Coerce(raw)
	if err != nil {
		return err
	}
	p.Value = v
	return nil
}
