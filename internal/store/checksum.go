package store

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Checksum is an opaque token summarizing the full content of the store.
// Equal checksums mean identical content.
type Checksum string

// ChecksumGrid hashes a grid, header row included, as compact JSON with
// UTF-8 kept as is. U+2028 and U+2029 are written raw. Invalid UTF-8 bytes
// are copied into the hashed text unchanged, so they still change the sum.
func ChecksumGrid(grid [][]any) (Checksum, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range grid {
		if i > 0 {
			buf.WriteByte(',')
		}
		if row == nil {
			buf.WriteString("null")
			continue
		}
		buf.WriteByte('[')
		for j, cell := range row {
			if j > 0 {
				buf.WriteByte(',')
			}
			if err := encodeCell(&buf, cell); err != nil {
				return "", fmt.Errorf("ChecksumGrid: encoding cell %d,%d: %w", i, j, err)
			}
		}
		buf.WriteByte(']')
	}
	buf.WriteByte(']')

	sum := sha1.Sum(rawLineSeparators(buf.Bytes()))
	return Checksum(hex.EncodeToString(sum[:])), nil
}

func encodeCell(buf *bytes.Buffer, cell any) error {
	s, ok := cell.(string)
	if !ok || utf8.ValidString(s) {
		return encodeJSON(buf, cell)
	}

	// Encode each valid run normally and keep the invalid bytes between them.
	buf.WriteByte('"')
	for len(s) > 0 {
		n := 0
		for n < len(s) {
			r, size := utf8.DecodeRuneInString(s[n:])
			if r == utf8.RuneError && size == 1 {
				break
			}
			n += size
		}
		if n > 0 {
			var run bytes.Buffer
			if err := encodeJSON(&run, s[:n]); err != nil {
				return err
			}
			buf.Write(run.Bytes()[1 : run.Len()-1])
		}
		if n < len(s) {
			buf.WriteByte(s[n])
			n++
		}
		s = s[n:]
	}
	buf.WriteByte('"')
	return nil
}

func encodeJSON(buf *bytes.Buffer, v any) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}

// rawLineSeparators undoes encoding/json's \u2028 and \u2029 escapes.
// Other escapes are copied as pairs so an escaped backslash is never
// mistaken for the start of one.
func rawLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 >= len(b) {
			out = append(out, b[i])
			continue
		}
		if bytes.HasPrefix(b[i:], []byte(`\u2028`)) {
			out = utf8.AppendRune(out, '\u2028')
			i += 5
			continue
		}
		if bytes.HasPrefix(b[i:], []byte(`\u2029`)) {
			out = utf8.AppendRune(out, '\u2029')
			i += 5
			continue
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}
