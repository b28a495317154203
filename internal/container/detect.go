package container

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
)

// IsBundle performs a streaming check of the manifest format without loading payloads.
// Writers put the format first, so only the head of the stream is read in practice.
func IsBundle(r io.Reader) (bool, error) {
	dec := json.NewDecoder(bufio.NewReader(r))
	tok, err := dec.Token()
	if err != nil {
		return notBundle(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return false, nil
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return notBundle(err)
		}
		if key, _ := tok.(string); key == "format" {
			var format string
			if err := dec.Decode(&format); err != nil {
				return notBundle(err)
			}
			return format == BundleFormat, nil
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return notBundle(err)
		}
	}
	return false, nil
}

// notBundle treats malformed input as a negative answer and keeps read failures.
func notBundle(err error) (bool, error) {
	var syntax *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.As(err, &syntax) || errors.As(err, &typ) {
		return false, nil
	}
	return false, err
}
