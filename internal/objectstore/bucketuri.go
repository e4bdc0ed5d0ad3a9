package objectstore

import (
	"net/url"
	"strings"

	"testprobe/internal/probeerrors"
)

// bucketLocation is a parsed Bucket URI (spec.md §6): s3://bucket/prefix/,
// https://account.blob.core.windows.net/container/prefix, or
// gs://bucket/prefix/.
type bucketLocation struct {
	Bucket string
	Prefix string
}

func parseBucketURI(uri string) (bucketLocation, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return bucketLocation{}, probeerrors.Wrap(probeerrors.KindStorage, err)
	}

	switch u.Scheme {
	case "s3", "gs":
		return bucketLocation{Bucket: u.Host, Prefix: strings.TrimPrefix(u.Path, "/")}, nil
	case "https", "http":
		// https://account.blob.core.windows.net/container/prefix
		parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
		if len(parts) == 0 || parts[0] == "" {
			return bucketLocation{}, probeerrors.New(probeerrors.KindStorage, "bucket URI %q missing container segment", uri)
		}
		loc := bucketLocation{Bucket: parts[0]}
		if len(parts) == 2 {
			loc.Prefix = parts[1]
		}
		return loc, nil
	default:
		return bucketLocation{}, probeerrors.New(probeerrors.KindStorage, "unrecognized bucket URI scheme %q", u.Scheme)
	}
}
