// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package urkel

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// metaFileName holds the per-directory meta-key used to key the checksum in
// every meta-record written under dir (spec.md §4.D "Meta-key").
const metaFileName = "meta"

// Store is the append-only file manager behind a Tree: it owns the data
// directory's node and value records, the write buffer accumulated between
// commits, and the crash-recovery scan. A Store is single-writer: nothing
// in this package makes it safe for concurrent use from multiple
// goroutines, matching spec.md §5's single-threaded cooperative model.
type Store struct {
	dir     string
	metaKey [32]byte

	activeIndex uint16 // file currently being appended to
	pos         uint32 // logical tail of the active file, including buffered bytes
	buffer      []byte

	maxFileSize        uint64
	recoveryWindowSize uint32

	readOnly bool
	lock     *dirLock
}

// dataFileName renders a data file's 10-digit zero-padded name.
func dataFileName(index uint16) string {
	return fmt.Sprintf("%010d", index)
}

// dataFilePath joins dir with a data file's name.
func dataFilePath(dir string, index uint16) string {
	return filepath.Join(dir, dataFileName(index))
}

// parseDataFileName returns the file index if name is a valid 10-digit data
// file name, or ok == false otherwise (e.g. "meta", "urkel.lock", ".tmp"
// leftovers).
func parseDataFileName(name string) (index uint16, ok bool) {
	if len(name) != 10 {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(name, 10, 32)
	if err != nil || n == 0 || n > 0xffff {
		return 0, false
	}
	return uint16(n), true
}

// findDataFiles lists the data file indices present in dir, sorted
// descending (highest/most recent first).
func findDataFiles(dir string) ([]uint16, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var indices []uint16
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if idx, ok := parseDataFileName(e.Name()); ok {
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] > indices[j] })
	return indices, nil
}

// loadOrCreateMetaKey reads dir/meta, creating it with 32 random bytes if it
// does not already exist. The key is not a secret; pinning it prevents
// meta-records from being confused across distinct databases (spec.md
// §4.D).
func loadOrCreateMetaKey(dir string) ([32]byte, error) {
	var key [32]byte
	path := filepath.Join(dir, metaFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) != 32 {
			return key, fmt.Errorf("%w: meta key file has %d bytes, want 32", ErrCorrupt, len(data))
		}
		copy(key[:], data)
		return key, nil
	}
	if !os.IsNotExist(err) {
		return key, fmt.Errorf("urkel: read meta key: %w", err)
	}

	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("urkel: generate meta key: %w", err)
	}
	if err := os.WriteFile(path, key[:], 0o644); err != nil {
		return key, fmt.Errorf("urkel: write meta key: %w", err)
	}
	return key, nil
}

// openStore opens (or creates) the append-only store rooted at dir. When
// opts.ReadOnly is false, it acquires the directory's advisory lock; when
// true, it skips the lock (used by cmd/urkel-recover). Either way it
// creates dir and its meta key file if they do not exist yet.
func openStore(dir string, opts Options) (*Store, error) {
	opts, err := opts.resolved()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("urkel: mkdir %s: %w", dir, err)
	}

	var lock *dirLock
	if !opts.ReadOnly {
		l, err := acquireDirLock(dir)
		if err != nil {
			return nil, err
		}
		lock = l
	}

	metaKey, err := loadOrCreateMetaKey(dir)
	if err != nil {
		if lock != nil {
			lock.release()
		}
		return nil, err
	}

	indices, err := findDataFiles(dir)
	if err != nil {
		if lock != nil {
			lock.release()
		}
		return nil, fmt.Errorf("urkel: list data files: %w", err)
	}

	activeIndex := uint16(1)
	var pos uint32
	if len(indices) > 0 {
		activeIndex = indices[0]
		info, err := os.Stat(dataFilePath(dir, activeIndex))
		if err != nil {
			if lock != nil {
				lock.release()
			}
			return nil, fmt.Errorf("urkel: stat active data file: %w", err)
		}
		pos = uint32(info.Size())
	}

	return &Store{
		dir:                dir,
		metaKey:            metaKey,
		activeIndex:        activeIndex,
		pos:                pos,
		buffer:             make([]byte, 0, defaultBufferCap),
		maxFileSize:        opts.MaxFileSize,
		recoveryWindowSize: opts.RecoveryWindowSize,
		readOnly:           opts.ReadOnly,
		lock:               lock,
	}, nil
}

// Close releases the store's advisory lock, if held.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.release()
}

// rotateIfNeeded flushes the current buffer and rolls over to the next data
// file when the planned append of additional bytes would push the active
// file past s.maxFileSize (spec.md §4.E).
func (s *Store) rotateIfNeeded(additional int) error {
	if uint64(s.pos)+uint64(additional) <= s.maxFileSize {
		return nil
	}
	if err := s.flushBuffer(); err != nil {
		return err
	}
	s.activeIndex++
	s.pos = 0
	return nil
}

// flushBuffer appends the buffer to the active data file and fsyncs it, per
// spec.md §5's ordering guarantee ("the append-only flush is atomic with
// respect to already-durable prefixes"). The append handle is opened for
// this call only and released on return (spec.md §5 resource scoping).
func (s *Store) flushBuffer() error {
	if len(s.buffer) == 0 {
		return nil
	}
	f, err := os.OpenFile(dataFilePath(s.dir, s.activeIndex), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("urkel: open data file for append: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(s.buffer); err != nil {
		return fmt.Errorf("urkel: write data file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("urkel: sync data file: %w", err)
	}

	s.buffer = s.buffer[:0]
	return nil
}

// writeValue appends a leaf's value bytes to the buffer and records its
// locator. vindex is the active file index, vpos the buffer position
// before the append (spec.md §4.E "write_value").
func (s *Store) writeValue(n *leafNode) error {
	if err := s.rotateIfNeeded(len(n.value)); err != nil {
		return err
	}
	n.vloc = valueLocator{
		fileIndex: s.activeIndex,
		pos:       s.pos,
		size:      uint16(len(n.value)),
	}
	s.buffer = append(s.buffer, n.value...)
	s.pos += uint32(len(n.value))
	return nil
}

// writeNode appends an already-encoded node record to the buffer and
// returns its locator, tagging the position's low bit per isLeaf (spec.md
// §4.E "write_node").
func (s *Store) writeNode(record []byte, isLeaf bool) (locator, error) {
	if err := s.rotateIfNeeded(len(record)); err != nil {
		return locator{}, err
	}
	loc := locator{
		fileIndex: s.activeIndex,
		filePos:   taggedPos(s.pos, isLeaf),
	}
	s.buffer = append(s.buffer, record...)
	s.pos += uint32(len(record))
	return loc, nil
}

// read opens file index read-only, reads size bytes starting at pos, and
// releases the handle before returning (spec.md §5 resource scoping).
func (s *Store) read(index uint16, pos uint32, size int) ([]byte, error) {
	f, err := os.Open(dataFilePath(s.dir, index))
	if err != nil {
		return nil, fmt.Errorf("urkel: open data file %s: %w", dataFileName(index), err)
	}
	defer f.Close()

	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(pos)); err != nil {
		return nil, fmt.Errorf("urkel: read data file %s at %d: %w", dataFileName(index), pos, err)
	}
	return buf, nil
}

// resolve loads the node record a hashNode points to, decoding it into a
// materialised internal or leaf node whose children/value are themselves
// hash nodes or on-demand locators (spec.md §4.E "resolve").
func (s *Store) resolve(h *hashNode) (node, error) {
	rawPos, isLeaf := untagPos(h.loc.filePos)

	if isLeaf {
		buf, err := s.read(h.loc.fileIndex, rawPos, LeafNodeSize)
		if err != nil {
			return nil, err
		}
		key, vloc, err := decodeLeaf(buf)
		if err != nil {
			return nil, err
		}
		return &leafNode{key: key, hashVal: h.hashVal, vloc: vloc}, nil
	}

	buf, err := s.read(h.loc.fileIndex, rawPos, InternalNodeSize)
	if err != nil {
		return nil, err
	}
	left, right, err := decodeInternal(buf)
	if err != nil {
		return nil, err
	}
	return &internalNode{left: left, right: right}, nil
}

// retrieve reads a leaf's value bytes from their locator (spec.md §4.E
// "retrieve").
func (s *Store) retrieve(vloc valueLocator) ([]byte, error) {
	return s.read(vloc.fileIndex, vloc.pos, int(vloc.size))
}

// commit appends a meta-record describing root to the buffer, flushes the
// buffer to the active data file, and fsyncs. A crash between the value
// writes and this call leaves an unreferenced tail of bytes in the data
// file; recovery treats anything past the most recent valid meta-record as
// scratch (spec.md §4.E "Failure semantics of commit").
func (s *Store) commit(root node) (metaRecord, error) {
	rawPos, isLeaf := uint32(0), false
	var rootIndex uint16
	switch r := root.(type) {
	case emptyNode:
		// root stays Empty; index/pos/leaf all zero.
	case *hashNode:
		rootIndex = r.loc.fileIndex
		rawPos, isLeaf = untagPos(r.loc.filePos)
	default:
		return metaRecord{}, fmt.Errorf("urkel: commit requires a hashed or empty root, got %T", root)
	}

	padStart := s.pos
	rec := metaRecord{
		metaIndex: s.activeIndex,
		rootIndex: rootIndex,
		rootPos:   rawPos,
		rootLeaf:  isLeaf,
	}
	padding := (MetaSize - int(padStart)%MetaSize) % MetaSize
	rec.metaPos = padStart + uint32(padding)

	if err := s.rotateIfNeeded(padding + MetaSize); err != nil {
		return metaRecord{}, err
	}
	// Rotation may have moved us to a fresh file at pos 0; recompute the
	// padded offset against the (possibly new) active file and index.
	padStart = s.pos
	padding = (MetaSize - int(padStart)%MetaSize) % MetaSize
	rec.metaIndex = s.activeIndex
	rec.metaPos = padStart + uint32(padding)

	encoded := encodeMeta(rec, padStart, s.metaKey)
	s.buffer = append(s.buffer, encoded...)
	s.pos += uint32(len(encoded))

	if err := s.flushBuffer(); err != nil {
		return metaRecord{}, err
	}
	return rec, nil
}

// rootNode reconstructs the committed root as a *hashNode from a recovered
// meta-record. Neither an internal nor a leaf record carries its own hash on
// disk, so the root's hash is derived: for an internal root from its two
// child descriptors (which do carry their children's hashes), for a leaf
// root from the key and retrieved value (spec.md §4.D).
func (s *Store) rootNode(rec metaRecord) (node, error) {
	if rec.rootIndex == 0 {
		return emptyNode{}, nil
	}
	loc := locator{fileIndex: rec.rootIndex, filePos: taggedPos(rec.rootPos, rec.rootLeaf)}

	if rec.rootLeaf {
		buf, err := s.read(rec.rootIndex, rec.rootPos, LeafNodeSize)
		if err != nil {
			return nil, err
		}
		key, vloc, err := decodeLeaf(buf)
		if err != nil {
			return nil, err
		}
		value, err := s.retrieve(vloc)
		if err != nil {
			return nil, err
		}
		return newHashNode(loc, hashLeafValue(key, value), true), nil
	}

	buf, err := s.read(rec.rootIndex, rec.rootPos, InternalNodeSize)
	if err != nil {
		return nil, err
	}
	left, right, err := decodeInternal(buf)
	if err != nil {
		return nil, err
	}
	return newHashNode(loc, hashInternal(left.hash(), right.hash()), false), nil
}

// recoverMeta scans the store's data directory, highest file index first,
// for the most recent valid meta-record (spec.md §4.E "Recovery"). It
// returns found == false if no data files exist or none contain a valid
// meta-record, in which case the store starts empty.
func (s *Store) recoverMeta() (rec metaRecord, found bool, err error) {
	indices, err := findDataFiles(s.dir)
	if err != nil {
		return metaRecord{}, false, err
	}

	for _, index := range indices {
		rec, found, err = recoverMetaFromFile(dataFilePath(s.dir, index), index, s.metaKey, s.recoveryWindowSize)
		if err != nil {
			return metaRecord{}, false, err
		}
		if found {
			return rec, true, nil
		}
	}
	return metaRecord{}, false, nil
}

// recoverMetaFromFile implements the reverse windowed scan described in
// spec.md §4.E: starting from the highest MetaSize-aligned offset, read up
// to windowSize bytes at a time and scan backward in MetaSize strides for
// the magic constant, verifying the checksum on each candidate.
func recoverMetaFromFile(path string, fileIndex uint16, metaKey [32]byte, windowSize uint32) (metaRecord, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return metaRecord{}, false, fmt.Errorf("urkel: open %s for recovery: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return metaRecord{}, false, fmt.Errorf("urkel: stat %s: %w", path, err)
	}
	size := uint64(info.Size())
	off := size - size%MetaSize
	window64 := uint64(windowSize)

	for off >= MetaSize {
		windowStart := uint64(0)
		windowLen := off
		if off >= window64 {
			windowStart = off - window64
			windowLen = window64
		}

		window := make([]byte, windowLen)
		if _, err := f.ReadAt(window, int64(windowStart)); err != nil {
			return metaRecord{}, false, fmt.Errorf("urkel: read recovery window in %s: %w", path, err)
		}

		for windowLen >= MetaSize {
			windowLen -= MetaSize
			off -= MetaSize

			candidate := window[windowLen : windowLen+MetaSize]
			if candidate[0] != byte(metaMagic) || candidate[1] != byte(metaMagic>>8) ||
				candidate[2] != byte(metaMagic>>16) || candidate[3] != byte(metaMagic>>24) {
				continue
			}

			rec, err := decodeMeta(candidate, metaKey)
			if err != nil {
				continue // magic matched by chance; keep scanning.
			}
			rec.metaIndex = fileIndex
			rec.metaPos = uint32(windowStart) + uint32(windowLen)
			return rec, true, nil
		}
	}

	return metaRecord{}, false, nil
}
