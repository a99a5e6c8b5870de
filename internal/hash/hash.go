package hash

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

const chunkSize = 8192

// MD5OfFile computes the md5 digest of a file's bytes, streaming in 8KiB
// chunks. The digest depends only on the content, never on the name or path,
// which makes it usable as the catalog-wide image dedup key.
func MD5OfFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return MD5OfReader(f)
}

// MD5OfReader computes the md5 digest of everything readable from r.
func MD5OfReader(r io.Reader) (string, error) {
	h := md5.New()
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read content: %w", err)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
