package selection

// EventKind is what happened to the suggestion list.
type EventKind uint8

const (
	Hover EventKind = iota
	Click
	Up
	Down
	Enter
)

func (k EventKind) String() string {
	switch k {
	case Hover:
		return "hover"
	case Click:
		return "click"
	case Up:
		return "up"
	case Down:
		return "down"
	case Enter:
		return "enter"
	}
	return "unknown"
}

// Event is a pointer or key event. Index is only read for Hover and Click.
type Event struct {
	Kind  EventKind
	Index int
}

// Handlers receive the outcome of dispatched events.
type Handlers struct {
	// Highlight is called when the highlighted index changes.
	Highlight func(index int)
	// Confirm is called with the index to apply.
	Confirm func(index int)
}

// Dispatcher is the single entry point for list events; renderers only
// report indexes and never hold callbacks of their own.
type Dispatcher struct {
	nav *Navigator
	h   Handlers
}

// NewDispatcher routes events to nav and h.
func NewDispatcher(nav *Navigator, h Handlers) *Dispatcher {
	return &Dispatcher{nav: nav, h: h}
}

// Dispatch applies ev and reports whether it was consumed. Events on an empty
// list are not consumed, so the host can treat Enter or arrows normally.
func (d *Dispatcher) Dispatch(ev Event) bool {
	if d.nav.Count() == 0 {
		return false
	}
	switch ev.Kind {
	case Hover:
		if !d.nav.Set(ev.Index) {
			return false
		}
		d.highlight()
	case Click:
		if !d.nav.Set(ev.Index) {
			return false
		}
		d.highlight()
		d.confirm()
	case Up:
		d.nav.Move(-1)
		d.highlight()
	case Down:
		d.nav.Move(+1)
		d.highlight()
	case Enter:
		d.confirm()
	default:
		return false
	}
	return true
}

func (d *Dispatcher) highlight() {
	if d.h.Highlight != nil {
		d.h.Highlight(d.nav.Index())
	}
}

func (d *Dispatcher) confirm() {
	if d.h.Confirm != nil {
		d.h.Confirm(d.nav.Index())
	}
}
