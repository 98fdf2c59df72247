package storageprovider

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/flachnetz/alwaysprofile/internal/storageutil"
)

// Badger implements storageutil.ObjectHandler on top of an embedded badger
// database, used for local snapshots of stacks.
type Badger struct {
	DB *badger.DB
}

// OpenBadger opens the database in dir, an empty dir keeps everything in memory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Badger{DB: db}, nil
}

// Put writes a file to the storage provider with name being the path.
// Nothing is stored until the writer is closed.
func (b *Badger) Put(ctx context.Context, name string) (io.WriteCloser, error) {
	return &badgerWriter{
		b:    &bytes.Buffer{},
		db:   b.DB,
		name: name,
	}, nil
}

// Get reads a file from the storage provider with name being the path.
// If a key was not found, it will return ErrObjectNotFound.
func (b *Badger) Get(ctx context.Context, name string) (storageutil.ReadSizeCloser, error) {
	var value []byte
	err := b.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storageutil.ErrObjectNotFound
		}
		return nil, err
	}
	return &badgerReader{
		Reader: bytes.NewReader(value),
		size:   int64(len(value)),
	}, nil
}

func (b *Badger) Close() error {
	return b.DB.Close()
}

type badgerWriter struct {
	b    *bytes.Buffer
	db   *badger.DB
	name string
}

func (bw *badgerWriter) Write(p []byte) (int, error) {
	return bw.b.Write(p)
}

func (bw *badgerWriter) Close() error {
	return bw.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(bw.name), bw.b.Bytes())
	})
}

type badgerReader struct {
	*bytes.Reader
	size int64
}

func (b *badgerReader) Close() error {
	return nil
}

func (b *badgerReader) Size() int64 {
	return b.size
}
