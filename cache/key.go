package cache

import (
	"bytes"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotEncodable is returned (wrapped) when an argument cannot be turned
// into a deterministic key, for example a func, a channel or a cyclic value.
var ErrNotEncodable = errors.New("cache: argument is not encodable")

// EncodeError reports which argument of which name could not be encoded. It
// matches both ErrNotEncodable and the underlying cause with errors.Is.
type EncodeError struct {
	Name  string
	Index int
	Err   error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("cache: %q argument %d is not encodable: %s", e.Name, e.Index, e.Err)
}

func (e *EncodeError) Unwrap() []error {
	return []error{ErrNotEncodable, e.Err}
}

// Key identifies one cached entry. It is the quoted name, a ':' separator and
// the canonical msgpack encoding of the argument list. Keys are plain strings
// so they compare and order like strings.
type Key string

// Prefix is the part of a Key shared by every argument combination of a name.
type Prefix string

// Keyer lets an argument supply its own canonical key. The returned string is
// encoded in place of the value, so a Keyer is keyed identically to that string.
type Keyer interface {
	CacheKey() (string, error)
}

var (
	keyerType = reflect.TypeOf((*Keyer)(nil)).Elem()
	timeType  = reflect.TypeOf(time.Time{})
)

// KeyPrefix returns the boundary used to flush every entry of name. The name
// is quoted, so "foo" never matches keys stored under "foo2".
func KeyPrefix(name string) Prefix {
	return Prefix(strconv.Quote(name) + ":")
}

// EncodeKey deterministically encodes name and args. Argument order and count
// are significant. Values are encoded by value:
//
//   - integers of any width compare by numeric value, float32 and float64 stay distinct
//   - slices and arrays in element order, maps sorted by the encoding of their keys
//   - structs as exported field name/value pairs in declaration order
//   - pointers and interfaces as the value they point to, nil as nil
//   - time.Time as a msgpack timestamp, Keyer as its key string
//
// Funcs, channels, complex numbers, unsafe pointers, structs with unexported
// fields and cyclic values fail with an error matching ErrNotEncodable.
func EncodeKey(name string, args ...any) (Key, error) {
	var buf bytes.Buffer
	buf.WriteString(string(KeyPrefix(name)))
	ke := newKeyEncoder(&buf, make(map[visit]struct{}))
	if err := ke.enc.EncodeArrayLen(len(args)); err != nil {
		return "", err
	}
	for i, arg := range args {
		if err := ke.encode(reflect.ValueOf(arg)); err != nil {
			return "", &EncodeError{Name: name, Index: i, Err: err}
		}
	}
	return Key(buf.String()), nil
}

// Name returns the name the key was encoded for.
func (k Key) Name() string {
	quoted, err := strconv.QuotedPrefix(string(k))
	if err != nil {
		return ""
	}
	name, _ := strconv.Unquote(quoted)
	return name
}

// HasPrefix reports whether the key belongs to the name of p.
func (k Key) HasPrefix(p Prefix) bool {
	return strings.HasPrefix(string(k), string(p))
}

// Hash is a 64-bit digest of the key, suitable for logs and span attributes.
func (k Key) Hash() uint64 {
	return xxhash.Sum64String(string(k))
}

func (k Key) String() string {
	return fmt.Sprintf("%s#%016x", k.Name(), k.Hash())
}

type visit struct {
	ptr uintptr
	typ reflect.Type
}

type keyEncoder struct {
	buf *bytes.Buffer
	enc *msgpack.Encoder
	// containers on the current traversal path, for cycle detection
	path map[visit]struct{}
}

func newKeyEncoder(buf *bytes.Buffer, path map[visit]struct{}) *keyEncoder {
	return &keyEncoder{buf: buf, enc: msgpack.NewEncoder(buf), path: path}
}

func (e *keyEncoder) enter(v reflect.Value) (func(), error) {
	id := visit{v.Pointer(), v.Type()}
	if _, ok := e.path[id]; ok {
		return nil, errors.Newf("cyclic value of type %s", v.Type())
	}
	e.path[id] = struct{}{}
	return func() { delete(e.path, id) }, nil
}

func (e *keyEncoder) encode(v reflect.Value) error {
	if !v.IsValid() {
		return e.enc.EncodeNil()
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return e.enc.EncodeNil()
		}
	}
	if v.Type().Implements(keyerType) && v.CanInterface() {
		key, err := v.Interface().(Keyer).CacheKey()
		if err != nil {
			return errors.Wrapf(err, "%s.CacheKey", v.Type())
		}
		return e.enc.EncodeString(key)
	}
	if v.Type() == timeType {
		return e.enc.EncodeTime(v.Interface().(time.Time))
	}

	switch v.Kind() {
	case reflect.Bool:
		return e.enc.EncodeBool(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.enc.EncodeInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return e.enc.EncodeUint(v.Uint())
	case reflect.Float32:
		return e.enc.EncodeFloat32(float32(v.Float()))
	case reflect.Float64:
		return e.enc.EncodeFloat64(v.Float())
	case reflect.String:
		return e.enc.EncodeString(v.String())
	case reflect.Pointer:
		leave, err := e.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return e.encode(v.Elem())
	case reflect.Interface:
		return e.encode(v.Elem())
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return e.enc.EncodeBytes(v.Bytes())
		}
		leave, err := e.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return e.encodeList(v)
	case reflect.Array:
		return e.encodeList(v)
	case reflect.Map:
		leave, err := e.enter(v)
		if err != nil {
			return err
		}
		defer leave()
		return e.encodeMap(v)
	case reflect.Struct:
		return e.encodeStruct(v)
	}
	return errors.Newf("unsupported kind %s (%s)", v.Kind(), v.Type())
}

func (e *keyEncoder) encodeList(v reflect.Value) error {
	if err := e.enc.EncodeArrayLen(v.Len()); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := e.encode(v.Index(i)); err != nil {
			return errors.Wrapf(err, "[%d]", i)
		}
	}
	return nil
}

type encodedPair struct {
	key, val []byte
}

func (e *keyEncoder) encodeMap(v reflect.Value) error {
	pairs := make([]encodedPair, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		var kb, vb bytes.Buffer
		if err := newKeyEncoder(&kb, e.path).encode(iter.Key()); err != nil {
			return errors.Wrap(err, "map key")
		}
		if err := newKeyEncoder(&vb, e.path).encode(iter.Value()); err != nil {
			return errors.Wrapf(err, "map value for %v", iter.Key())
		}
		pairs = append(pairs, encodedPair{kb.Bytes(), vb.Bytes()})
	}
	// keys that only differ by type (int 1, uint 1) share an encoding, so
	// break ties on the value to stay independent of map iteration order
	sort.Slice(pairs, func(i, j int) bool {
		if c := bytes.Compare(pairs[i].key, pairs[j].key); c != 0 {
			return c < 0
		}
		return bytes.Compare(pairs[i].val, pairs[j].val) < 0
	})
	if err := e.enc.EncodeMapLen(len(pairs)); err != nil {
		return err
	}
	for _, p := range pairs {
		e.buf.Write(p.key)
		e.buf.Write(p.val)
	}
	return nil
}

func (e *keyEncoder) encodeStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if !t.Field(i).IsExported() {
			return errors.Newf("%s has unexported field %s; implement Keyer", t, t.Field(i).Name)
		}
	}
	if err := e.enc.EncodeMapLen(t.NumField()); err != nil {
		return err
	}
	for i := 0; i < t.NumField(); i++ {
		if err := e.enc.EncodeString(t.Field(i).Name); err != nil {
			return err
		}
		if err := e.encode(v.Field(i)); err != nil {
			return errors.Wrapf(err, ".%s", t.Field(i).Name)
		}
	}
	return nil
}
