// Package celldb keeps cells in leveldb, one record per cell keyed by its
// representation hash, so equal subtrees are stored once.
package celldb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/bitmark-inc/logger"
	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"
	ldb_opt "github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/cellcodec/cellcodec/tvm/cell"
)

var (
	ErrNotFound  = errors.New("cell not found")
	ErrCorrupted = errors.New("stored cell is corrupted")
	ErrReadOnly  = errors.New("cell db is read only")
	ErrClosed    = errors.New("cell db is closed")
)

const (
	hashSize         = 32
	defaultCacheSize = 4096

	// flags, bits length, refs number
	recordHeaderSize = 1 + 2 + 1
	flagSpecial      = 0x01
)

type Options struct {
	// CacheSize is the number of decoded cells kept in memory, 0 selects a default.
	CacheSize int
	// Logger is optional.
	Logger   *logger.L
	ReadOnly bool
}

// Store is safe for concurrent use.
type Store struct {
	sync.RWMutex
	db       *leveldb.DB
	cache    *lru.Cache
	log      *logger.L
	readOnly bool
}

// Open opens or creates a store in the directory.
func Open(path string, opts Options) (*Store, error) {
	db, err := leveldb.OpenFile(path, &ldb_opt.Options{
		ErrorIfMissing: opts.ReadOnly,
		ReadOnly:       opts.ReadOnly,
	})
	if nil != err {
		return nil, fmt.Errorf("failed to open cell db %s: %w", path, err)
	}

	s, err := newStore(db, opts)
	if nil != err {
		db.Close()
		return nil, err
	}
	s.infof("opened cell db: %s  read only: %t", path, opts.ReadOnly)
	return s, nil
}

// OpenStorage opens a store over a leveldb storage, like storage.NewMemStorage().
func OpenStorage(stor storage.Storage, opts Options) (*Store, error) {
	db, err := leveldb.Open(stor, &ldb_opt.Options{ReadOnly: opts.ReadOnly})
	if nil != err {
		return nil, fmt.Errorf("failed to open cell db: %w", err)
	}

	s, err := newStore(db, opts)
	if nil != err {
		db.Close()
		return nil, err
	}
	return s, nil
}

func newStore(db *leveldb.DB, opts Options) (*Store, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	cache, err := lru.New(size)
	if nil != err {
		return nil, err
	}

	return &Store{
		db:       db,
		cache:    cache,
		log:      opts.Logger,
		readOnly: opts.ReadOnly,
	}, nil
}

// Close releases the database, later calls fail with ErrClosed.
func (s *Store) Close() error {
	s.Lock()
	defer s.Unlock()

	if nil == s.db {
		return ErrClosed
	}
	err := s.db.Close()
	s.db = nil
	s.cache.Purge()
	s.infof("closed cell db")
	return err
}

// Put stores the tree of c and returns its representation hash.
// Subtrees which are already stored are not written again.
func (s *Store) Put(c *cell.Cell) ([]byte, error) {
	if s.readOnly {
		return nil, ErrReadOnly
	}

	s.Lock()
	defer s.Unlock()

	if nil == s.db {
		return nil, ErrClosed
	}

	batch := new(leveldb.Batch)
	seen := map[string]bool{}
	stack := []*cell.Cell{c}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		key := top.Hash()
		if seen[string(key)] || s.cache.Contains(string(key)) {
			continue
		}
		seen[string(key)] = true

		// a stored cell implies its whole subtree is stored
		has, err := s.db.Has(key, nil)
		if nil != err {
			return nil, err
		}
		if has {
			continue
		}

		rec, err := encodeRecord(top)
		if nil != err {
			return nil, err
		}
		batch.Put(key, rec)

		for i := 0; i < top.RefsNum(); i++ {
			ref, err := top.PeekRef(i)
			if nil != err {
				return nil, err
			}
			stack = append(stack, ref)
		}
	}

	if batch.Len() > 0 {
		if err := s.db.Write(batch, nil); nil != err {
			return nil, fmt.Errorf("failed to write cells: %w", err)
		}
	}
	s.cache.Add(string(c.Hash()), c)
	s.debugf("put cell %x: %d new records", c.Hash(), batch.Len())

	return c.Hash(), nil
}

// Has reports whether the cell with the representation hash is stored.
func (s *Store) Has(hash []byte) (bool, error) {
	s.RLock()
	defer s.RUnlock()

	if nil == s.db {
		return false, ErrClosed
	}
	if s.cache.Contains(string(hash)) {
		return true, nil
	}
	return s.db.Has(hash, nil)
}

// Get loads the tree of a cell, every loaded cell is checked against its key.
func (s *Store) Get(hash []byte) (*cell.Cell, error) {
	s.RLock()
	defer s.RUnlock()

	if nil == s.db {
		return nil, ErrClosed
	}
	if len(hash) != hashSize {
		return nil, fmt.Errorf("%w: hash should be %d bytes, got %d", ErrNotFound, hashSize, len(hash))
	}
	return s.load(hash)
}

type frame struct {
	key  []byte
	rec  *record
	refs []*cell.Cell
}

// load builds cells bottom up with an explicit stack.
func (s *Store) load(hash []byte) (*cell.Cell, error) {
	if c, ok := s.cached(hash); ok {
		return c, nil
	}

	root, err := s.readRecord(hash)
	if nil != err {
		return nil, err
	}

	stack := []*frame{{key: hash, rec: root}}
	var result *cell.Cell
	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if len(top.refs) < len(top.rec.refs) {
			refHash := top.rec.refs[len(top.refs)]
			if c, ok := s.cached(refHash); ok {
				top.refs = append(top.refs, c)
				continue
			}

			if len(stack) > cell.MaxDepth {
				return nil, fmt.Errorf("%w: tree is deeper than %d", ErrCorrupted, cell.MaxDepth)
			}
			rec, err := s.readRecord(refHash)
			if nil != err {
				return nil, err
			}
			stack = append(stack, &frame{key: refHash, rec: rec})
			continue
		}

		c, err := top.rec.build(top.refs)
		if nil != err {
			s.errorf("cell %x does not decode: %s", top.key, err)
			return nil, fmt.Errorf("%w: %x: %v", ErrCorrupted, top.key, err)
		}
		if !bytes.Equal(c.Hash(), top.key) {
			s.errorf("cell %x has hash %x", top.key, c.Hash())
			return nil, fmt.Errorf("%w: hash mismatch of %x", ErrCorrupted, top.key)
		}
		s.cache.Add(string(top.key), c)

		stack = stack[:len(stack)-1]
		if len(stack) == 0 {
			result = c
		} else {
			parent := stack[len(stack)-1]
			parent.refs = append(parent.refs, c)
		}
	}
	return result, nil
}

func (s *Store) cached(hash []byte) (*cell.Cell, bool) {
	v, ok := s.cache.Get(string(hash))
	if !ok {
		return nil, false
	}
	return v.(*cell.Cell), true
}

func (s *Store) readRecord(hash []byte) (*record, error) {
	data, err := s.db.Get(hash, nil)
	if leveldb.ErrNotFound == err {
		return nil, fmt.Errorf("%w: %x", ErrNotFound, hash)
	} else if nil != err {
		return nil, err
	}

	rec, err := decodeRecord(data)
	if nil != err {
		s.errorf("record %x: %s", hash, err)
		return nil, fmt.Errorf("%w: %x: %v", ErrCorrupted, hash, err)
	}
	return rec, nil
}

// record is the stored form of one cell, refs are their hashes.
type record struct {
	special bool
	bits    *cell.BitString
	refs    [][]byte
}

func encodeRecord(c *cell.Cell) ([]byte, error) {
	bits := c.Bits()

	out := make([]byte, recordHeaderSize, recordHeaderSize+len(bits.Bytes())+c.RefsNum()*hashSize)
	if c.IsSpecial() {
		out[0] |= flagSpecial
	}
	binary.BigEndian.PutUint16(out[1:], uint16(bits.Len()))
	out[3] = byte(c.RefsNum())
	out = append(out, bits.Bytes()...)

	for i := 0; i < c.RefsNum(); i++ {
		ref, err := c.PeekRef(i)
		if nil != err {
			return nil, err
		}
		out = append(out, ref.Hash()...)
	}
	return out, nil
}

func decodeRecord(data []byte) (*record, error) {
	if len(data) < recordHeaderSize {
		return nil, errors.New("record is too short")
	}

	sz := uint(binary.BigEndian.Uint16(data[1:]))
	refs := int(data[3])
	dataLen := int((sz + 7) / 8)
	if len(data) != recordHeaderSize+dataLen+refs*hashSize {
		return nil, fmt.Errorf("record length %d does not match %d bits and %d refs", len(data), sz, refs)
	}

	body := data[recordHeaderSize:]
	bits, err := cell.BitStringFromBytes(body[:dataLen], sz)
	if nil != err {
		return nil, err
	}

	rec := &record{special: data[0]&flagSpecial != 0, bits: bits}
	body = body[dataLen:]
	for i := 0; i < refs; i++ {
		rec.refs = append(rec.refs, body[i*hashSize:(i+1)*hashSize])
	}
	return rec, nil
}

func (r *record) build(refs []*cell.Cell) (*cell.Cell, error) {
	b := cell.BeginCell()
	if err := b.StoreBitString(r.bits); nil != err {
		return nil, err
	}
	for _, ref := range refs {
		if err := b.StoreRef(ref); nil != err {
			return nil, err
		}
	}
	return b.Finalize(r.special)
}

func (s *Store) debugf(format string, args ...interface{}) {
	if nil != s.log {
		s.log.Debugf(format, args...)
	}
}

func (s *Store) infof(format string, args ...interface{}) {
	if nil != s.log {
		s.log.Infof(format, args...)
	}
}

func (s *Store) errorf(format string, args ...interface{}) {
	if nil != s.log {
		s.log.Errorf(format, args...)
	}
}
