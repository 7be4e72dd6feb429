package router

// SlotBinding is one slot filled by a matched level.
type SlotBinding struct {
	// Slot is the slot name ("default", "header", ...).
	Slot string

	// Ref is the view filling the slot.
	Ref ViewRef

	// Props is the view's input data. Only set on the default slot of a
	// record declared with Props; otherwise params are read from the
	// navigation state.
	Props Params
}

// Level is the set of slots one matched record populates.
type Level struct {
	Record *Record
	Slots  map[string]SlotBinding
}

// Resolve maps each level of a match to its slot bindings. It is pure: it
// performs no loading and cannot fail.
func Resolve(m *Match) []Level {
	chain := m.Chain()
	levels := make([]Level, 0, len(chain))
	for _, rec := range chain {
		slots := make(map[string]SlotBinding, len(rec.views))
		for name, ref := range rec.views {
			b := SlotBinding{Slot: name, Ref: ref}
			if rec.props && name == DefaultSlot {
				b.Props = m.Params.Clone()
			}
			slots[name] = b
		}
		levels = append(levels, Level{Record: rec, Slots: slots})
	}
	return levels
}

// Refs returns every view referenced by levels, deduplicated by name, in
// level order with slots in SlotNames order.
func Refs(levels []Level) []ViewRef {
	var refs []ViewRef
	seen := make(map[string]bool)
	for _, lvl := range levels {
		for _, slot := range lvl.Record.SlotNames() {
			ref := lvl.Slots[slot].Ref
			if seen[ref.Name()] {
				continue
			}
			seen[ref.Name()] = true
			refs = append(refs, ref)
		}
	}
	return refs
}
