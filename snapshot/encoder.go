package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	flagVerified uint8 = 1 << iota
	flagActive
)

// ErrUnsupportedSchema is returned by Decode for unknown schema bytes.
var ErrUnsupportedSchema = errors.New("unsupported snapshot schema version")

// Encode serializes s with the current schema.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil {
		return nil, errors.New("nil snapshot")
	}
	if s.ID == "" {
		return nil, errors.New("snapshot id is required")
	}

	var buf bytes.Buffer
	buf.Grow(16 + len(s.ID) + len(s.Email) + len(s.Name) + len(s.Role))
	buf.WriteByte(CurrentSchemaVersion)

	for _, f := range []struct {
		name  string
		value string
	}{
		{"id", s.ID},
		{"email", s.Email},
		{"name", s.Name},
		{"role", s.Role},
	} {
		if err := writeString(&buf, f.value); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	var flags uint8
	if s.Verified {
		flags |= flagVerified
	}
	if s.Active {
		flags |= flagActive
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.CachedAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses data produced by Encode. Trailing bytes are rejected.
func Decode(data []byte) (*Snapshot, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != CurrentSchemaVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchema, version)
	}

	s := &Snapshot{SchemaVersion: version}
	for _, dst := range []*string{&s.ID, &s.Email, &s.Name, &s.Role} {
		if *dst, err = readString(reader); err != nil {
			return nil, err
		}
	}
	if s.ID == "" {
		return nil, errors.New("snapshot id is empty")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if flags&^(flagVerified|flagActive) != 0 {
		return nil, fmt.Errorf("unknown snapshot flags %#x", flags)
	}
	s.Verified = flags&flagVerified != 0
	s.Active = flags&flagActive != 0

	if err := binary.Read(reader, binary.BigEndian, &s.CachedAt); err != nil {
		return nil, err
	}
	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after snapshot")
	}

	return s, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return errors.New("field too long")
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	if int(n) > r.Len() {
		return "", io.ErrUnexpectedEOF
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
