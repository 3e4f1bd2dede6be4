// Package loader abstracts where contract source comes from: an inline
// string, a byte slice, an io.Reader, or a file on disk. Loaders hand out
// fresh readers so the same source can be compiled for several targets.
package loader

import (
	"io"
	"net/url"
)

type Loader interface {
	GetReader() (io.ReadCloser, error)
	GetSourceURL() *url.URL
}
