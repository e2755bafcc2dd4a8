package blockstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
)

const gsPrefix = "gs://"

func isGS(path string) bool {
	return strings.HasPrefix(path, gsPrefix)
}

// splitGS turns gs://bucket/a/b into ("bucket", "a/b").
func splitGS(path string) (string, string, error) {
	rest := strings.TrimPrefix(path, gsPrefix)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("%s is not of the form gs://bucket/object", path)
	}
	return bucket, strings.TrimSuffix(object, "/"), nil
}

// gsReaderAt decorates a Google Storage object handle with ReadAt. Each call
// opens its own range reader, so it is safe for concurrent use.
type gsReaderAt struct {
	ctx    context.Context
	handle *storage.ObjectHandle
}

func (o gsReaderAt) ReadAt(p []byte, offset int64) (int, error) {
	rdr, err := o.handle.NewRangeReader(o.ctx, offset, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer rdr.Close()

	return io.ReadFull(rdr, p)
}

// openGS downloads the index of a remote store to a temporary file and leaves
// the block file remote. The returned cleanup removes the temporary file and
// closes the client.
func openGS(ctx context.Context, path string) (indexPath string, blocks io.ReaderAt, cleanup func() error, err error) {
	bucket, prefix, err := splitGS(path)
	if err != nil {
		return "", nil, nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return "", nil, nil, pfx.Err(err)
	}
	bkt := client.Bucket(bucket)

	tmp, err := os.CreateTemp("", "vstore-*.db")
	if err != nil {
		client.Close()
		return "", nil, nil, pfx.Err(err)
	}
	cleanup = func() error {
		os.Remove(tmp.Name())
		return client.Close()
	}

	rdr, err := bkt.Object(prefix + "/" + IndexFileName).NewReader(ctx)
	if err != nil {
		tmp.Close()
		cleanup()
		return "", nil, nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	_, err = io.Copy(tmp, rdr)
	rdr.Close()
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, nil, pfx.Err(err)
	}

	handle := bkt.Object(prefix + "/" + BlockFileName)
	if _, err := handle.Attrs(ctx); err != nil {
		cleanup()
		return "", nil, nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}

	return tmp.Name(), gsReaderAt{ctx: ctx, handle: handle}, cleanup, nil
}
