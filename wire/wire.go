// Package wire implements functions for marshaling and unmarshaling Kafka 0.7
// requests and responses. All integers are big endian. Strings are prefixed
// with an int16 length. Byte slices are prefixed with an int32 length. Other
// slices are prefixed with an int32 element count, or an int16 count when the
// field is tagged `wire:"len16"`.
package wire

import (
	"encoding/binary"
	"io"
	"math"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var ord = binary.BigEndian

const (
	tagOmit  = "omit"
	tagLen16 = "len16"
)

func exported(f reflect.StructField) bool {
	return f.Name[0:1] != strings.ToLower(f.Name[0:1])
}

func Write(w io.Writer, val reflect.Value) error {
	return write(w, val, "")
}

func write(w io.Writer, val reflect.Value, tag string) error {
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface:
		return write(w, val.Elem(), tag)
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			f := val.Type().Field(i)
			if !exported(f) {
				continue // skip fields that start with lowercase
			}
			t := f.Tag.Get("wire")
			if t == tagOmit {
				continue
			}
			if err := write(w, val.Field(i), t); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 { // []byte
			b := val.Bytes()
			if len(b) > math.MaxInt32 {
				return errors.Errorf("byte slice too long: %d", len(b))
			}
			if err := binary.Write(w, ord, int32(len(b))); err != nil {
				return err
			}
			_, err := w.Write(b)
			return err
		}
		if tag == tagLen16 {
			if val.Len() > math.MaxInt16 {
				return errors.Errorf("too many elements for int16 count: %d", val.Len())
			}
			if err := binary.Write(w, ord, int16(val.Len())); err != nil {
				return err
			}
		} else if err := binary.Write(w, ord, int32(val.Len())); err != nil {
			return err
		}
		for i := 0; i < val.Len(); i++ {
			if err := write(w, val.Index(i), ""); err != nil {
				return err
			}
		}
		return nil
	case reflect.String:
		s := val.String()
		if len(s) > math.MaxInt16 {
			return errors.Errorf("string too long: %d", len(s))
		}
		if err := binary.Write(w, ord, int16(len(s))); err != nil {
			return err
		}
		_, err := io.WriteString(w, s)
		return err
	case reflect.Int8:
		return binary.Write(w, ord, int8(val.Int()))
	case reflect.Int16:
		return binary.Write(w, ord, int16(val.Int()))
	case reflect.Int32:
		return binary.Write(w, ord, int32(val.Int()))
	case reflect.Uint32:
		return binary.Write(w, ord, uint32(val.Uint()))
	case reflect.Int64:
		return binary.Write(w, ord, val.Int())
	}
	return errors.Errorf("unsupported kind %s", val.Kind())
}

func Read(r io.Reader, val reflect.Value) error {
	return read(r, val, "")
}

func read(r io.Reader, val reflect.Value, tag string) error {
	switch val.Kind() {
	case reflect.Ptr, reflect.Interface:
		return read(r, val.Elem(), tag)
	case reflect.Struct:
		for i := 0; i < val.NumField(); i++ {
			f := val.Type().Field(i)
			if !exported(f) {
				continue
			}
			t := f.Tag.Get("wire")
			if t == tagOmit {
				continue
			}
			if err := read(r, val.Field(i), t); err != nil {
				return errors.Wrapf(err, "field %s", f.Name)
			}
		}
		return nil
	case reflect.Slice:
		var n int
		if tag == tagLen16 {
			var i int16
			if err := binary.Read(r, ord, &i); err != nil {
				return errors.Wrap(err, "error reading array length")
			}
			n = int(i)
		} else {
			var i int32
			if err := binary.Read(r, ord, &i); err != nil {
				return errors.Wrap(err, "error reading array length")
			}
			n = int(i)
		}
		if n < 0 {
			return errors.Errorf("negative array length %d", n)
		}
		typ := val.Type().Elem()
		if typ.Kind() == reflect.Uint8 { // []byte
			b := make([]byte, n)
			if _, err := io.ReadFull(r, b); err != nil {
				return errors.Wrap(err, "error reading []byte body")
			}
			val.SetBytes(b)
			return nil
		}
		val.Set(reflect.MakeSlice(val.Type(), 0, 0)) // n is not trusted before the elements are read
		for i := 0; i < n; i++ {
			element := reflect.New(typ).Elem()
			if err := read(r, element, ""); err != nil {
				return errors.Wrap(err, "error parsing array element")
			}
			val.Set(reflect.Append(val, element))
		}
		return nil
	case reflect.String:
		var n int16
		if err := binary.Read(r, ord, &n); err != nil {
			return errors.Wrap(err, "error reading string length")
		}
		if n < 0 {
			return nil
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return errors.Wrap(err, "error reading string body")
		}
		val.SetString(string(b))
		return nil
	case reflect.Int8:
		var i int8
		if err := binary.Read(r, ord, &i); err != nil {
			return errors.Wrap(err, "error reading int8")
		}
		val.SetInt(int64(i))
		return nil
	case reflect.Int16:
		var i int16
		if err := binary.Read(r, ord, &i); err != nil {
			return errors.Wrap(err, "error reading int16")
		}
		val.SetInt(int64(i))
		return nil
	case reflect.Int32:
		var i int32
		if err := binary.Read(r, ord, &i); err != nil {
			return errors.Wrap(err, "error reading int32")
		}
		val.SetInt(int64(i))
		return nil
	case reflect.Uint32:
		var i uint32
		if err := binary.Read(r, ord, &i); err != nil {
			return errors.Wrap(err, "error reading uint32")
		}
		val.SetUint(uint64(i))
		return nil
	case reflect.Int64:
		var i int64
		if err := binary.Read(r, ord, &i); err != nil {
			return errors.Wrap(err, "error reading int64")
		}
		val.SetInt(i)
		return nil
	}
	return errors.Errorf("unsupported kind %s", val.Kind())
}
