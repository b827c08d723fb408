package runtime

import "github.com/veld-ui/veld/pkg/dom"

// Keyed is a fragment identified by a key expression, rendered as one item
// of a keyed each-block.
type Keyed interface {
	Fragment
	Key() any
}

// ReconcileKeyed updates a keyed each-block to match the new item list.
// Fragments whose keys survive are patched and moved into template order;
// new keys create fresh fragments; absent keys are detached. Reuse is
// strictly by key, mirroring how the element tree reuses children only when
// type and key both match.
//
// length is the new item count, keyAt returns the key for index i, create
// builds and Creates a fragment for index i, and patch re-renders a reused
// fragment against index i. The returned slice is the new fragment list in
// template order.
func ReconcileKeyed(
	existing []Keyed,
	length int,
	keyAt func(i int) any,
	create func(i int) Keyed,
	patch func(f Keyed, i int),
	parent *dom.Element,
	anchor dom.Node,
) []Keyed {
	byKey := make(map[any]Keyed, len(existing))
	for _, f := range existing {
		byKey[f.Key()] = f
	}

	updated := make([]Keyed, 0, length)
	seen := make(map[any]bool, length)
	for i := 0; i < length; i++ {
		key := keyAt(i)
		if seen[key] {
			// Duplicate keys would silently drop fragments; keep the first
			// and treat the rest as fresh rows.
			f := create(i)
			f.Mount(parent, anchor)
			updated = append(updated, f)
			continue
		}
		seen[key] = true

		if f, ok := byKey[key]; ok {
			patch(f, i)
			updated = append(updated, f)
			delete(byKey, key)
			continue
		}
		f := create(i)
		f.Mount(parent, anchor)
		updated = append(updated, f)
	}

	for _, f := range byKey {
		DetachWithOutro(f)
	}

	// Restore template order: remount in sequence before the block anchor.
	// Mount moves a fragment's nodes, so this is a no-op for items already
	// in place at the tail.
	for _, f := range updated {
		f.Mount(parent, anchor)
	}

	return updated
}

// ReconcilePositional updates an unkeyed each-block: overlapping indices
// are patched in place, the tail is created or detached as the list grows
// or shrinks.
func ReconcilePositional(
	existing []Fragment,
	length int,
	create func(i int) Fragment,
	patch func(f Fragment, i int),
	parent *dom.Element,
	anchor dom.Node,
) []Fragment {
	common := len(existing)
	if length < common {
		common = length
	}

	for i := 0; i < common; i++ {
		patch(existing[i], i)
	}
	for i := common; i < length; i++ {
		f := create(i)
		f.Mount(parent, anchor)
		existing = append(existing, f)
	}
	for i := length; i < len(existing); i++ {
		DetachWithOutro(existing[i])
	}
	return existing[:length]
}
