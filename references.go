package gitobj

import (
	"fmt"
	"strings"
)

// defaultRefChaseDepth bounds how many "ref: <target>" hops Read and ReadHead
// will chase before declaring a cycle, per spec.md §9's guidance that a
// small fixed bound is sufficient since Git itself never produces chains
// longer than HEAD -> one branch. Tunable via Store's WithMaxRefChaseDepth
// option or gitobj.toml's max_ref_chase_depth.
const defaultRefChaseDepth = 5

// HeadKind distinguishes the two things HEAD can hold.
type HeadKind int

const (
	// HeadDetached means HEAD names a commit hash directly.
	HeadDetached HeadKind = iota
	// HeadSymbolic means HEAD names another ref ("ref: refs/heads/main").
	HeadSymbolic
)

// HeadContents is the parsed form of .git/HEAD.
type HeadContents struct {
	Kind HeadKind
	Hash Hash   // set when Kind == HeadDetached
	Ref  string // set when Kind == HeadSymbolic
}

const symbolicRefPrefix = "ref: "

// References is the two-tier reference layer: loose refs, one file per ref
// under refs/, consulted before the packed-refs roll-up file (spec.md §4.H).
// It is grounded on the teacher's layered-lookup shape for object
// resolution (try the cheap/specific source, fall back to the bulk one),
// here applied to refs instead of objects.
type References struct {
	fsio     *FsIO
	packed   PackedRefs
	dotGit   string
	tempDir  string
	maxDepth int
}

func newReferences(fsio *FsIO, dotGit string, maxDepth int) *References {
	return &References{fsio: fsio, dotGit: dotGit, tempDir: fsio.Join(dotGit, "tmp"), maxDepth: maxDepth}
}

func (r *References) refPath(ref string) string { return r.fsio.Join(r.dotGit, ref) }
func (r *References) headPath() string          { return r.fsio.Join(r.dotGit, "HEAD") }
func (r *References) packedRefsPath() string    { return r.fsio.Join(r.dotGit, "packed-refs") }

func (r *References) readPackedRefs() ([]PackedRefLine, error) {
	if !r.fsio.FileExists(r.packedRefsPath()) {
		return nil, nil
	}
	data, err := r.fsio.ReadFile(r.packedRefsPath())
	if err != nil {
		return nil, err
	}
	return r.packed.Parse(data)
}

// List returns every ref name under the given top-level namespace (e.g.
// "refs/heads" or "refs/tags"), merging loose refs and any matching
// packed-refs entries, deduplicated with the loose ref taking precedence.
func (r *References) List(namespace string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	looseFiles, err := r.fsio.RecFiles(r.fsio.Join(r.dotGit, namespace))
	if err != nil {
		return nil, err
	}
	for _, f := range looseFiles {
		name := namespace + "/" + f
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	entries, err := r.readPackedRefs()
	if err != nil {
		return nil, err
	}
	for _, name := range r.packed.References(entries) {
		if strings.HasPrefix(name, namespace+"/") && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out, nil
}

// Exists reports whether ref names either a loose or a packed reference.
func (r *References) Exists(ref string) (bool, error) {
	if r.fsio.FileExists(r.refPath(ref)) {
		return true, nil
	}
	entries, err := r.readPackedRefs()
	if err != nil {
		return false, err
	}
	_, ok := r.packed.Find(entries, ref)
	return ok, nil
}

// Remove deletes ref's loose file, if present. It does not rewrite
// packed-refs; a ref that exists only in the packed file is considered a
// historical record, not a live mutable ref, per spec.md §4.H.
func (r *References) Remove(ref string) error {
	return r.fsio.Remove(r.refPath(ref))
}

// Read resolves ref to a Hash, following at most r.maxDepth "ref: "
// redirections. ok is false if ref does not exist anywhere.
func (r *References) Read(ref string) (Hash, bool, error) {
	return r.readChased(ref, 0)
}

func (r *References) readChased(ref string, depth int) (Hash, bool, error) {
	if depth > r.maxDepth {
		return Hash{}, false, fmt.Errorf("%w: symbolic reference chain exceeds depth %d", ErrMalformedReference, r.maxDepth)
	}

	if r.fsio.FileExists(r.refPath(ref)) {
		data, err := r.fsio.ReadFile(r.refPath(ref))
		if err != nil {
			return Hash{}, false, err
		}
		return r.parseRefContents(strings.TrimSpace(string(data)), depth)
	}

	entries, err := r.readPackedRefs()
	if err != nil {
		return Hash{}, false, err
	}
	if h, ok := r.packed.Find(entries, ref); ok {
		return h, true, nil
	}
	return Hash{}, false, nil
}

func (r *References) parseRefContents(content string, depth int) (Hash, bool, error) {
	if strings.HasPrefix(content, symbolicRefPrefix) {
		target := strings.TrimSpace(strings.TrimPrefix(content, symbolicRefPrefix))
		return r.readChased(target, depth+1)
	}
	h, err := ParseHash(content)
	if err != nil {
		return Hash{}, false, fmt.Errorf("%w: %v", ErrMalformedReference, err)
	}
	return h, true, nil
}

// ReadHeadContents parses .git/HEAD's one line of content without following
// a symbolic reference to its target (spec.md §4.H's read_head). ok is false
// if HEAD does not exist.
func (r *References) ReadHeadContents() (HeadContents, bool, error) {
	if !r.fsio.FileExists(r.headPath()) {
		return HeadContents{}, false, nil
	}
	data, err := r.fsio.ReadFile(r.headPath())
	if err != nil {
		return HeadContents{}, false, err
	}
	content := strings.TrimSpace(string(data))
	if strings.HasPrefix(content, symbolicRefPrefix) {
		return HeadContents{Kind: HeadSymbolic, Ref: strings.TrimSpace(strings.TrimPrefix(content, symbolicRefPrefix))}, true, nil
	}
	h, err := ParseHash(content)
	if err != nil {
		return HeadContents{}, false, fmt.Errorf("%w: HEAD: %v", ErrMalformedReference, err)
	}
	return HeadContents{Kind: HeadDetached, Hash: h}, true, nil
}

// ReadHead resolves .git/HEAD all the way to a commit hash, chasing a
// symbolic HEAD through Read. This is a convenience built atop
// ReadHeadContents for callers that only want the final hash.
func (r *References) ReadHead() (Hash, bool, error) {
	head, ok, err := r.ReadHeadContents()
	if err != nil || !ok {
		return Hash{}, false, err
	}
	if head.Kind == HeadDetached {
		return head.Hash, true, nil
	}
	return r.Read(head.Ref)
}

// Write atomically sets ref's loose file to h.
func (r *References) Write(ref string, h Hash) error {
	return r.fsio.WriteFile(r.refPath(ref), r.tempDir, []byte(h.String()+"\n"))
}

// WriteHead atomically rewrites .git/HEAD.
func (r *References) WriteHead(head HeadContents) error {
	var content string
	switch head.Kind {
	case HeadDetached:
		content = head.Hash.String() + "\n"
	case HeadSymbolic:
		content = symbolicRefPrefix + head.Ref + "\n"
	default:
		return fmt.Errorf("%w: unknown HeadKind %d", ErrConfigError, head.Kind)
	}
	return r.fsio.WriteFile(r.headPath(), r.tempDir, []byte(content))
}
