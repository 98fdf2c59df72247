package storageprovider

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"

	"github.com/flachnetz/alwaysprofile/internal/storageutil"
)

type Provider interface {
	storageutil.ObjectHandler
	io.Closer
}

// Open returns the provider for the url:
//
//	badger:///path/to/dir  embedded database, badger:// keeps it in memory
//	gs://bucket            Google Cloud Storage
//	file:///dir, mem://    any other gocloud bucket
func Open(ctx context.Context, url string) (Provider, error) {
	if dir, ok := strings.CutPrefix(url, "badger://"); ok {
		return OpenBadger(dir)
	}
	if name, ok := strings.CutPrefix(url, "gs://"); ok {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return &Gcs{BucketHandle: client.Bucket(name), client: client}, nil
	}
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Blob{Bucket: bucket}, nil
}
