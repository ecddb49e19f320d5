package msgbuf

import (
	"golang.org/x/text/encoding/unicode"
)

// utf16Decoder is shared across calls; golang.org/x/text's decoders
// are safe for concurrent use once constructed.
var utf16Decoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()

// DecodeUTF16LE decodes a UTF-16LE byte span (as returned by
// SpanStringUTF16, terminator included) into a Go string, dropping the
// trailing double-zero terminator. Grounded on the teacher's
// golang.org/x/text/encoding/unicode usage for UTF-16 string fields.
func DecodeUTF16LE(span []byte) (string, error) {
	body := span
	if len(body) >= 2 && body[len(body)-2] == 0 && body[len(body)-1] == 0 {
		body = body[:len(body)-2]
	}
	out, err := utf16Decoder.Bytes(body)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
