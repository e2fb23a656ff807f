package reactor

import (
	"fmt"

	"github.com/mosaicnetworks/reactor/src/effect"
)

// target is one delivery of an event: the index of a component and an
// optional conversion into its event type.
type target struct {
	index   int
	convert func(effect.Event) effect.Event
}

// routingTable maps every declared kind to its targets. It is built once and
// never modified, so lookups need no locking.
type routingTable struct {
	components []handler
	byName     map[string]int
	routes     map[effect.Kind][]target
}

func newRoutingTable(kinds []effect.Kind, routes []Route) (*routingTable, error) {
	rt := &routingTable{
		byName: make(map[string]int),
		routes: make(map[effect.Kind][]target),
	}

	declared := make(map[effect.Kind]bool, len(kinds))
	for _, k := range kinds {
		if isControl(k) {
			return nil, fmt.Errorf("%w: %s is reserved for the reactor", ErrDuplicateRoute, k)
		}
		declared[k] = true
	}

	// components first, so announcements may name any of them
	for _, r := range routes {
		if r.component == nil {
			continue
		}
		name := r.component.name()
		if _, ok := rt.byName[name]; ok {
			return nil, fmt.Errorf("%w: component %q registered twice", ErrDuplicateRoute, name)
		}
		rt.byName[name] = len(rt.components)
		rt.components = append(rt.components, r.component)
	}

	claim := func(k effect.Kind, r Route, ts []target) error {
		if !declared[k] {
			return fmt.Errorf("%w: %s claims undeclared kind %s", ErrUnroutable, r, k)
		}
		if _, ok := rt.routes[k]; ok {
			return fmt.Errorf("%w: %s claims %s", ErrDuplicateRoute, r, k)
		}
		rt.routes[k] = ts
		return nil
	}

	for _, r := range routes {
		if r.component != nil {
			idx := rt.byName[r.component.name()]
			for _, k := range r.kinds {
				if err := claim(k, r, []target{{index: idx}}); err != nil {
					return nil, err
				}
			}
			continue
		}

		ts := make([]target, 0, len(r.subscribers))
		for _, d := range r.subscribers {
			idx, ok := rt.byName[d.component]
			if !ok {
				return nil, fmt.Errorf("%w: %q subscribes to %s", ErrUnknownComponent, d.component, r.announce)
			}
			ts = append(ts, target{index: idx, convert: d.convert})
		}
		if err := claim(r.announce, r, ts); err != nil {
			return nil, err
		}
	}

	for _, k := range kinds {
		if _, ok := rt.routes[k]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnroutable, k)
		}
	}

	return rt, nil
}

func (rt *routingTable) lookup(k effect.Kind) ([]target, bool) {
	ts, ok := rt.routes[k]
	return ts, ok
}

func (rt *routingTable) index(name string) (int, bool) {
	idx, ok := rt.byName[name]
	return idx, ok
}
