package extract

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"
)

// ErrUndecodable is returned when a body cannot be turned into text at all.
var ErrUndecodable = errors.New("undecodable body")

// Decode converts body to UTF-8 using the charset declared in contentType,
// or one sniffed from a BOM, a <meta> tag, or the bytes themselves. When
// decoding fails it falls back to UTF-8 with invalid sequences replaced by
// U+FFFD.
func Decode(body []byte, contentType string) (string, error) {
	if len(body) == 0 {
		return "", ErrUndecodable
	}
	enc, name, _ := charset.DetermineEncoding(body, contentType)
	out, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		log.Debug().Err(err).Str("encoding", name).Msg("decode failed; falling back to utf-8")
		out = body
	}
	if !utf8.Valid(out) {
		return strings.ToValidUTF8(string(out), "\uFFFD"), nil
	}
	return string(out), nil
}
