// Package signature computes stable cache keys for query requests.
//
// Two requests that differ only in key order, parameter order or Unicode
// normalization form produce the same signature.
package signature

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/asofdevlab/qbjs/internal/qs"
)

// Of returns "discriminator:hex" where hex is the SHA-256 of the canonical
// encoding of input.
func Of(discriminator string, input map[string]any) string {
	var buf bytes.Buffer
	writeCanonical(&buf, input)
	return hashWithDiscriminator(discriminator, buf.Bytes())
}

// OfQueryString decodes raw and returns its signature. Undecodable input
// is hashed verbatim so it still gets a deterministic key.
func OfQueryString(discriminator, raw string) string {
	input, err := qs.Decode(raw)
	if err != nil {
		return hashWithDiscriminator(discriminator, []byte("raw\x00"+raw))
	}
	return Of(discriminator, input)
}

// Canonical returns the canonical encoding used for hashing.
func Canonical(input map[string]any) []byte {
	var buf bytes.Buffer
	writeCanonical(&buf, input)
	return buf.Bytes()
}

func hashWithDiscriminator(discriminator string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(discriminator))
	h.Write([]byte{0x00})
	h.Write(data)
	return discriminator + ":" + hex.EncodeToString(h.Sum(nil))
}

// writeCanonical writes a JSON-like encoding with sorted object keys and
// NFC strings. Integral floats encode like ints so 10 and 10.0 agree.
func writeCanonical(buf *bytes.Buffer, v any) {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		writeFloat(buf, val)
	case float32:
		writeFloat(buf, float64(val))
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonical(buf, elem)
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			return norm.NFC.String(keys[i]) < norm.NFC.String(keys[j])
		})
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			writeCanonical(buf, val[k])
		}
		buf.WriteByte('}')
	default:
		writeReflect(buf, v)
	}
}

// writeReflect handles typed slices, maps and other integer kinds.
func writeReflect(buf *bytes.Buffer, v any) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}
		writeCanonical(buf, list)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			writeString(buf, fmt.Sprint(v))
			return
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		writeCanonical(buf, m)
	case reflect.Int8, reflect.Int16, reflect.Int32:
		buf.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		buf.WriteString(strconv.FormatUint(rv.Uint(), 10))
	default:
		writeString(buf, fmt.Sprint(v))
	}
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteString(strconv.Quote(norm.NFC.String(s)))
}

func writeFloat(buf *bytes.Buffer, f float64) {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
}
