package gitobj

// Repository is the top-level handle a caller opens: it bundles the object
// Store (component F) with the reference layer (component H) and the
// checkout engine (component I), all sharing one FsIO root and one .git
// directory name. spec.md threads a single opaque handle through every
// operation in these three components; Repository is that handle's
// concrete Go shape.
type Repository struct {
	Store *Store
	Refs  *References
	Out   *Checkout
}

// Open constructs a Repository rooted at root, wiring the object store, the
// reference layer, and the checkout engine to the same FsIO and .git
// directory.
func Open(root string, opts ...Option) (*Repository, error) {
	store, err := NewStore(root, opts...)
	if err != nil {
		return nil, err
	}
	refs := newReferences(store.fsio, store.dotGit(), store.refChaseDepth)
	checkout := newCheckout(store, store.fsio, store.dotGit(), refs)
	return &Repository{Store: store, Refs: refs, Out: checkout}, nil
}

// Digest returns the content-addressing Digest this repository's store was
// configured with, for callers (Checkout.WriteIndex, cmd/gitobjctl) that
// need to compute an index checksum in the same algorithm as the object
// store.
func (r *Repository) Digest() Digest { return r.Store.codec.digest }
