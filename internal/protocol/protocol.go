package protocol

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
)

const (
	// FieldName is the multipart part that carries the file.
	FieldName = "file"
	// DefaultEndpoint is the path the upload is posted to.
	DefaultEndpoint = "/api/upload"
	// MaxMemory bounds how much of a parsed form is kept in memory.
	MaxMemory = 32 << 20
)

var ErrNoFilePart = errors.New("no file part in multipart body")

// NewMultipartBody streams content as a multipart/form-data body with a
// single part named FieldName. The returned reader must be consumed or closed.
func NewMultipartBody(filename string, content io.Reader) (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile(FieldName, filename)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("failed to create form part: %w", err))
			return
		}
		if _, err := io.Copy(part, content); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to write file content: %w", err))
			return
		}
		if err := mw.Close(); err != nil {
			pw.CloseWithError(fmt.Errorf("failed to close multipart writer: %w", err))
			return
		}
		pw.Close()
	}()

	return pr, mw.FormDataContentType()
}

// ReadFilePart parses a multipart body and returns the filename and content
// of the FieldName part.
func ReadFilePart(r io.Reader, contentType string) (string, []byte, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse content type: %w", err)
	}
	if mediaType != "multipart/form-data" {
		return "", nil, fmt.Errorf("unexpected content type %q", mediaType)
	}

	mr := multipart.NewReader(r, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return "", nil, ErrNoFilePart
		}
		if err != nil {
			return "", nil, fmt.Errorf("failed to read part: %w", err)
		}
		if part.FormName() != FieldName {
			part.Close()
			continue
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return "", nil, fmt.Errorf("failed to read file part: %w", err)
		}
		return part.FileName(), data, nil
	}
}

// ComputeChecksum calculates the SHA256 hash of a stream
func ComputeChecksum(r io.Reader) ([32]byte, error) {
	hash := sha256.New()
	if _, err := io.Copy(hash, r); err != nil {
		return [32]byte{}, err
	}

	var checksum [32]byte
	copy(checksum[:], hash.Sum(nil))
	return checksum, nil
}
