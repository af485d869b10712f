// Package textutil repairs the character encoding of imported document
// text. Files dropped into the consume directory arrive in whatever
// encoding the producing scanner or export tool used, and the store only
// accepts UTF-8.
package textutil

import (
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// EnsureUTF8 returns s as valid UTF-8. Valid input is returned unchanged.
// Invalid input goes through charset detection, then a fixed list of
// likely legacy encodings, and finally byte-level sanitization.
func EnsureUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	data := []byte(s)

	// Detection confidence is unreliable on short samples, so accept a
	// weaker match there.
	minConfidence := 30
	if len(data) > 50 {
		minConfidence = 50
	}

	detector := chardet.NewTextDetector()
	if result, err := detector.DetectBest(data); err == nil && result.Confidence >= minConfidence {
		if enc := encodingByName(result.Charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
				return string(decoded)
			}
		}
	}

	// Legacy encodings seen in scanned-document exports, most common
	// first. Windows-1252 covers the smart quotes and dashes that OCR
	// tools on Windows tend to emit.
	candidates := []encoding.Encoding{
		charmap.Windows1252,
		charmap.ISO8859_1,
		charmap.ISO8859_15,
		japanese.ShiftJIS,
		japanese.EUCJP,
		korean.EUCKR,
		simplifiedchinese.GBK,
		traditionalchinese.Big5,
	}
	for _, enc := range candidates {
		if decoded, err := enc.NewDecoder().Bytes(data); err == nil && utf8.Valid(decoded) {
			return string(decoded)
		}
	}

	return SanitizeUTF8(s)
}

// SanitizeUTF8 replaces each invalid byte with the Unicode replacement
// character. Used as the last resort when no encoding decodes cleanly.
func SanitizeUTF8(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			sb.WriteRune('�')
			i++
		} else {
			sb.WriteRune(r)
			i += size
		}
	}
	return sb.String()
}

// encodingByName maps the detector's IANA charset names onto x/text
// encodings. Unknown names return nil and the caller falls through to the
// candidate list.
func encodingByName(name string) encoding.Encoding {
	switch strings.ToLower(name) {
	case "windows-1252", "cp1252":
		return charmap.Windows1252
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1
	case "iso-8859-15", "latin9":
		return charmap.ISO8859_15
	case "iso-8859-2", "latin2":
		return charmap.ISO8859_2
	case "shift_jis", "shift-jis", "sjis":
		return japanese.ShiftJIS
	case "euc-jp", "eucjp":
		return japanese.EUCJP
	case "iso-2022-jp":
		return japanese.ISO2022JP
	case "euc-kr", "euckr":
		return korean.EUCKR
	case "gb2312", "gbk":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	case "big5", "big-5":
		return traditionalchinese.Big5
	case "koi8-r":
		return charmap.KOI8R
	case "koi8-u":
		return charmap.KOI8U
	default:
		return nil
	}
}
