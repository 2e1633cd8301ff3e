package gitobj

import "fmt"

// defaultDeflateLevel is used when a Store is constructed without
// WithLevel; it matches zlib.DefaultCompression.
const defaultDeflateLevel = -1

// Store is the façade over the object layer: a ValueCache in front of
// Loose and Packed, consulted in that order (spec.md §4.F). Every read and
// write goes through one Store, which owns the single Digest/ZCodec pair
// both tiers share.
//
// Construction follows the teacher's functional-options idiom
// (profiling.go's ScannerOption/WithProfiling), generalized from a single
// boolean flag to the handful of knobs SPEC_FULL.md's configuration surface
// names: .git subdirectory name, deflate level, the three cache capacities
// (ValueCache, Packed's index and key LRUs), the symbolic-ref chase depth,
// and Digest/ZCodec overrides. The root directory is NewStore's argument.
type Store struct {
	fsio  *FsIO
	files *FileCache
	codec *codec

	loose  *Loose
	packed *Packed
	cache  *ValueCache

	level int

	// refChaseDepth is threaded through to References by Open; Store has
	// no reference layer of its own, but owns config resolution for the
	// whole Repository (spec.md §6's configuration surface is one bag of
	// knobs, not one per component).
	refChaseDepth int
}

// Option configures a Store at construction time.
type Option func(*storeConfig)

type storeConfig struct {
	dotGit         string
	level          int
	valueCacheSize int
	indexLRUSize   int
	keysLRUSize    int
	refChaseDepth  int
	digest         Digest
	zcodec         ZCodec
}

func defaultConfig() storeConfig {
	return storeConfig{
		dotGit:         ".git",
		level:          defaultDeflateLevel,
		valueCacheSize: defaultCacheCapacity,
		indexLRUSize:   defaultIndexLRUCapacity,
		keysLRUSize:    defaultKeysLRUCapacity,
		refChaseDepth:  defaultRefChaseDepth,
	}
}

// WithDotGit overrides the name of the repository metadata directory
// (default ".git").
func WithDotGit(name string) Option {
	return func(c *storeConfig) { c.dotGit = name }
}

// WithLevel sets the zlib compression level (0-9, or -1 for the zlib
// default) new loose objects and packs are written at.
func WithLevel(level int) Option {
	return func(c *storeConfig) { c.level = level }
}

// WithValueCacheSize sets the per-table capacity of the Store's ValueCache.
func WithValueCacheSize(n int) Option {
	return func(c *storeConfig) { c.valueCacheSize = n }
}

// WithIndexLRUSize sets the capacity of Packed's indexLRU, the cache of
// parsed PackIndex values (spec.md §4.E).
func WithIndexLRUSize(n int) Option {
	return func(c *storeConfig) { c.indexLRUSize = n }
}

// WithKeysLRUSize sets the capacity of Packed's keysLRU, the cache of each
// pack's extracted key set (spec.md §4.E).
func WithKeysLRUSize(n int) Option {
	return func(c *storeConfig) { c.keysLRUSize = n }
}

// WithMaxRefChaseDepth sets how many "ref: <target>" hops References.Read
// and References.ReadHead will follow before declaring a cycle (spec.md
// §9's open question on symbolic-reference cycle detection).
func WithMaxRefChaseDepth(n int) Option {
	return func(c *storeConfig) { c.refChaseDepth = n }
}

// WithDigest overrides the content-addressing Digest (default: SHA-1, the
// only format Git's on-disk layout supports; provided for tests that want a
// deterministic stub).
func WithDigest(d Digest) Option {
	return func(c *storeConfig) { c.digest = d }
}

// WithZCodec overrides the ZCodec (default: RFC-1950 zlib).
func WithZCodec(z ZCodec) Option {
	return func(c *storeConfig) { c.zcodec = z }
}

// NewStore constructs a Store rooted at root (the repository's top-level
// working directory; .git lives at root/<dotGit>).
func NewStore(root string, opts ...Option) (*Store, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.level < -1 || cfg.level > 9 {
		return nil, fmt.Errorf("%w: compression level %d out of range [-1,9]", ErrConfigError, cfg.level)
	}

	fsio, err := NewFsIO(root)
	if err != nil {
		return nil, err
	}
	if cfg.digest == nil {
		cfg.digest = NewSHA1Digest()
	}
	if cfg.zcodec == nil {
		cfg.zcodec = NewZlibCodec()
	}

	files := NewFileCache(fsio)
	c := newCodec(cfg.digest, cfg.zcodec)

	s := &Store{
		fsio:          fsio,
		files:         files,
		codec:         c,
		loose:         newLoose(fsio, files, c, cfg.level, cfg.dotGit),
		packed:        newPacked(fsio, files, cfg.zcodec, cfg.dotGit, cfg.indexLRUSize, cfg.keysLRUSize),
		cache:         NewValueCache(cfg.valueCacheSize),
		level:         cfg.level,
		refChaseDepth: cfg.refChaseDepth,
	}
	if err := fsio.Mkdir(fsio.Join(cfg.dotGit, "objects", "pack")); err != nil {
		return nil, err
	}
	return s, nil
}

// dotGit returns the repository metadata directory this store was
// configured with; References and Checkout share it.
func (s *Store) dotGit() string { return s.loose.dotGit }

// recurse adapts Store.ReadInflated to the RecurseFunc shape Packed needs
// to resolve a ref-delta whose base lives in a different pack, or as a
// loose object — an explicit parameter rather than a closure Packed holds
// long-term, per spec.md §9.
func (s *Store) recurse(h Hash) ([]byte, ObjectKind, bool, error) {
	data, ok, err := s.ReadInflated(ShortHash(h.String()))
	if err != nil || !ok {
		return nil, KindInvalid, ok, err
	}
	v, err := s.codec.ParseInflated(data)
	if err != nil {
		return nil, KindInvalid, false, err
	}
	body, err := s.codec.serializeBody(v)
	if err != nil {
		return nil, KindInvalid, false, err
	}
	return body, v.Kind(), true, nil
}

// Read returns the decoded Value for sh, checking the ValueCache, then
// Loose, then Packed, in that order (spec.md §4.F).
func (s *Store) Read(sh ShortHash) (Value, bool, error) {
	if sh.IsFull() {
		h, err := sh.Full()
		if err != nil {
			return nil, false, err
		}
		if v, ok := s.cache.Find(h); ok {
			return v, true, nil
		}
	}

	v, ok, err := s.loose.Read(sh)
	if err != nil {
		return nil, false, err
	}
	if ok {
		if h, err := sh.Full(); err == nil {
			s.cache.Insert(h, v)
		}
		return v, true, nil
	}

	h, err := sh.Full()
	if err != nil {
		return nil, false, nil
	}
	data, kind, found, err := s.packed.Read(h, s.recurse)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	framed, err := s.codec.ParseInflated(frame(kind, data))
	if err != nil {
		return nil, false, err
	}
	s.cache.Insert(h, framed)
	return framed, true, nil
}

// ReadInflated returns the raw "<kind> <size>\0<body>" bytes for sh.
func (s *Store) ReadInflated(sh ShortHash) ([]byte, bool, error) {
	if sh.IsFull() {
		h, err := sh.Full()
		if err == nil {
			if data, ok := s.cache.FindInflated(h); ok {
				return data, true, nil
			}
		}
	}

	data, ok, err := s.loose.ReadInflated(sh)
	if err != nil {
		return nil, false, err
	}
	if ok {
		if h, err := sh.Full(); err == nil {
			s.cache.InsertInflated(h, data)
		}
		return data, true, nil
	}

	h, err := sh.Full()
	if err != nil {
		return nil, false, nil
	}
	body, kind, found, err := s.packed.Read(h, s.recurse)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	framed := frame(kind, body)
	s.cache.InsertInflated(h, framed)
	return framed, true, nil
}

// ReadExn is Read, returning ErrNotFound instead of ok=false.
func (s *Store) ReadExn(sh ShortHash) (Value, error) {
	v, ok, err := s.Read(sh)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, sh)
	}
	return v, nil
}

// Mem reports whether h is present in the object database, preferring
// Loose (a cheap stat) over scanning every pack.
func (s *Store) Mem(h Hash) (bool, error) {
	if _, ok := s.cache.Find(h); ok {
		return true, nil
	}
	if s.loose.Exists(h) {
		return true, nil
	}
	return s.packed.Mem(h)
}

// List returns every object hash reachable from either the loose or the
// packed tier, deduplicated.
func (s *Store) List() ([]Hash, error) {
	looseKeys, err := s.loose.List()
	if err != nil {
		return nil, err
	}
	seen := make(map[Hash]bool, len(looseKeys))
	out := make([]Hash, 0, len(looseKeys))
	for _, h := range looseKeys {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}

	packs, err := s.packed.List()
	if err != nil {
		return nil, err
	}
	for _, pack := range packs {
		keys, err := s.packed.ReadKeys(pack)
		if err != nil {
			return nil, err
		}
		for _, h := range keys {
			if !seen[h] {
				seen[h] = true
				out = append(out, h)
			}
		}
	}
	return out, nil
}

// Contents decodes and returns every object in the store. Intended for
// small repositories and tests; spec.md §4.F notes this is not meant to
// scale to a production-sized pack set.
func (s *Store) Contents() ([]Value, error) {
	hashes, err := s.List()
	if err != nil {
		return nil, err
	}
	out := make([]Value, 0, len(hashes))
	for _, h := range hashes {
		v, ok, err := s.Read(ShortHash(h.String()))
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// Write serializes, hashes, and stores v as a loose object, returning its
// hash. Writing is idempotent (spec invariant 3 / P3).
func (s *Store) Write(v Value) (Hash, error) {
	h, err := s.loose.Write(v)
	if err != nil {
		return Hash{}, err
	}
	s.cache.Insert(h, v)
	return h, nil
}

// WriteInflated stores an already-framed "<kind> <size>\0<body>" buffer as
// a loose object.
func (s *Store) WriteInflated(inflated []byte) (Hash, error) {
	h, err := s.loose.WriteInflated(inflated)
	if err != nil {
		return Hash{}, err
	}
	s.cache.InsertInflated(h, inflated)
	return h, nil
}

// WritePack writes a complete raw pack under objects/pack/, building and
// writing its companion .idx alongside it, and returns the set of hashes
// the pack contains (spec.md §4.F's write_pack). The pack's name is derived
// from its own trailing SHA-1 checksum, matching how a pack transferred
// over the wire has no name of its own until one is assigned on arrival.
func (s *Store) WritePack(packData []byte) ([]Hash, error) {
	if len(packData) < 20 {
		return nil, fmt.Errorf("gitobj: pack too short to contain a trailing checksum")
	}
	var packChecksum Hash
	copy(packChecksum[:], packData[len(packData)-20:])
	name := "pack-" + packChecksum.String()

	entries, err := buildPackIndexEntries(packData, s.codec, s.recurse)
	if err != nil {
		return nil, err
	}
	idxData := SerializePackIndex(entries, packChecksum, s.codec.digest)

	if err := s.packed.WritePack(name, packData); err != nil {
		return nil, err
	}
	if err := s.packed.WriteIndex(name, idxData); err != nil {
		return nil, err
	}

	keys := make([]Hash, len(entries))
	for i, e := range entries {
		keys[i] = e.hash
	}
	return keys, nil
}

// Clear discards FileCache's entries and Packed's indexLRU/keysLRU. It does
// not touch ValueCache, which has its own lifecycle (spec.md §4.F), nor
// anything on disk.
func (s *Store) Clear() {
	s.files.Clear()
	s.packed.Clear()
}

// frame re-applies the "<kind> <size>\0" header around body, the shape
// Loose.ReadInflated and codec.ParseInflated both expect.
func frame(kind ObjectKind, body []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", kind, len(body))
	out := make([]byte, 0, len(header)+len(body))
	out = append(out, header...)
	out = append(out, body...)
	return out
}
