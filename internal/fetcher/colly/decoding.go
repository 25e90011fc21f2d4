package collyfetcher

import (
	"bufio"
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
)

// decodingTransport decodes br and deflate bodies. Colly already handles
// gzip, but only gzip, and the request advertises all three.
type decodingTransport struct {
	base http.RoundTripper
}

func newDecodingTransport(base http.RoundTripper) *decodingTransport {
	return &decodingTransport{base: base}
}

func (t *decodingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("decoding transport received nil request")
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("decoding transport base roundtrip: %w", err)
	}
	encoding := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding")))
	switch encoding {
	case "br":
		resp.Body = &decodedBody{Reader: brotli.NewReader(resp.Body), raw: resp.Body}
	case "deflate":
		resp.Body = newDeflateBody(resp.Body)
	default:
		return resp, nil
	}
	resp.Header.Del("Content-Encoding")
	resp.Header.Del("Content-Length")
	resp.ContentLength = -1
	resp.Uncompressed = true
	return resp, nil
}

type decodedBody struct {
	io.Reader
	raw io.Closer
}

func (b *decodedBody) Close() error {
	return b.raw.Close()
}

// newDeflateBody accepts both zlib-wrapped and raw deflate streams; servers
// disagree on what "deflate" means.
func newDeflateBody(raw io.ReadCloser) io.ReadCloser {
	br := bufio.NewReader(raw)
	header, err := br.Peek(2)
	if err == nil && isZlibHeader(header) {
		zr, zerr := zlib.NewReader(br)
		if zerr == nil {
			return &decodedBody{Reader: zr, raw: raw}
		}
	}
	return &decodedBody{Reader: flate.NewReader(br), raw: raw}
}

func isZlibHeader(b []byte) bool {
	if len(b) < 2 {
		return false
	}
	return b[0]&0x0f == 8 && (uint16(b[0])<<8|uint16(b[1]))%31 == 0
}
