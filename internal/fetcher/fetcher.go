package fetcher

import (
	"context"
	"io"
	"net/url"
	"os"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)

	// DownloadToFile fetches the URL and writes it to the given path. Returns bytes written.
	DownloadToFile(ctx context.Context, url string, path string) (int64, error)
}

// OpenLocation opens a dataset location for reading. Locations may be
// local paths, http(s) URLs, or ftp URLs; remote ones are dispatched to
// the given HTTP fetcher or a fresh FTP fetcher by scheme.
func OpenLocation(ctx context.Context, f Fetcher, location string) (io.ReadCloser, error) {
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" {
		file, openErr := os.Open(location)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "open local file %s", location)
		}
		return file, nil
	}

	switch u.Scheme {
	case "http", "https":
		return f.Download(ctx, location)
	case "ftp":
		return NewFTPFetcher(FTPOptions{}).Download(ctx, location)
	case "file":
		file, openErr := os.Open(u.Path)
		if openErr != nil {
			return nil, eris.Wrapf(openErr, "open local file %s", u.Path)
		}
		return file, nil
	default:
		return nil, eris.Errorf("unsupported location scheme %q", u.Scheme)
	}
}
