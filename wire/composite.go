package wire

// CompositeDecoder handles array and struct decoding operations
type CompositeDecoder struct {
	decoder *Decoder
}

// CompositeEncoder handles array and struct encoding operations
type CompositeEncoder struct {
	encoder *Encoder
}

// NewCompositeDecoder creates a new composite decoder
func NewCompositeDecoder(d *Decoder) *CompositeDecoder {
	return &CompositeDecoder{decoder: d}
}

// NewCompositeEncoder creates a new composite encoder
func NewCompositeEncoder(e *Encoder) *CompositeEncoder {
	return &CompositeEncoder{encoder: e}
}

// maxPrealloc caps the capacity reserved from an untrusted element count.
const maxPrealloc = 1024

// DECODER METHODS

// DecodeArray decodes an array whose n-byte element count follows the tag.
func (cd *CompositeDecoder) DecodeArray(n int) (Array, error) {
	d := cd.decoder
	count, err := d.readLength(n)
	if err != nil {
		return nil, err
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	arr := make(Array, 0, prealloc(count))
	for i := uint64(0); i < count; i++ {
		v, err := d.DecodeValue()
		if err != nil {
			return nil, wrapWithPath(err, elementSegment(int(i)))
		}
		arr = append(arr, v)
	}
	return arr, nil
}

// DecodeStruct decodes a struct whose n-byte member count follows the tag.
// A repeated member name replaces the earlier value and keeps its position.
func (cd *CompositeDecoder) DecodeStruct(n int) (Struct, error) {
	d := cd.decoder
	count, err := d.readLength(n)
	if err != nil {
		return nil, err
	}
	if err := d.enter(); err != nil {
		return nil, err
	}
	defer d.leave()

	bd := NewBytesDecoder(d)
	s := make(Struct, 0, prealloc(count))
	index := make(map[string]int, prealloc(count))
	for i := uint64(0); i < count; i++ {
		name, err := bd.DecodeName()
		if err != nil {
			return nil, wrapWithPath(err, elementSegment(int(i)))
		}

		v, err := d.DecodeValue()
		if err != nil {
			return nil, wrapWithPath(err, memberSegment(name))
		}

		if at, ok := index[name]; ok {
			s[at].Value = v
			continue
		}
		index[name] = len(s)
		s = append(s, Member{Name: name, Value: v})
	}
	return s, nil
}

// ENCODER METHODS

// EncodeArray encodes an array and its elements.
func (ce *CompositeEncoder) EncodeArray(arr Array) error {
	e := ce.encoder
	e.putTagged(TagArray, uint64(len(arr)))
	for i, v := range arr {
		if err := e.EncodeValue(v); err != nil {
			return wrapWithPath(err, elementSegment(i))
		}
	}
	return nil
}

// EncodeStruct encodes a struct and its members in order. Duplicate names
// are an error.
func (ce *CompositeEncoder) EncodeStruct(s Struct) error {
	e := ce.encoder
	be := NewBytesEncoder(e)

	var seen map[string]struct{}
	if len(s) > 8 {
		seen = make(map[string]struct{}, len(s))
	}

	e.putTagged(TagStruct, uint64(len(s)))
	for i, m := range s {
		if seen != nil {
			if _, dup := seen[m.Name]; dup {
				return wrapWithPath(encodingError(ErrDuplicateMember), memberSegment(m.Name))
			}
			seen[m.Name] = struct{}{}
		} else {
			for _, prev := range s[:i] {
				if prev.Name == m.Name {
					return wrapWithPath(encodingError(ErrDuplicateMember), memberSegment(m.Name))
				}
			}
		}

		if err := be.EncodeName(m.Name); err != nil {
			return wrapWithPath(err, memberSegment(m.Name))
		}
		if err := e.EncodeValue(m.Value); err != nil {
			return wrapWithPath(err, memberSegment(m.Name))
		}
	}
	return nil
}

// UTILITY FUNCTIONS

func prealloc(count uint64) int {
	if count > maxPrealloc {
		return maxPrealloc
	}
	return int(count)
}

// Convenience methods

// EncodeArray encodes an array using the composite encoder.
func (e *Encoder) EncodeArray(arr Array) error {
	return NewCompositeEncoder(e).EncodeArray(arr)
}

// EncodeStruct encodes a struct using the composite encoder.
func (e *Encoder) EncodeStruct(s Struct) error {
	return NewCompositeEncoder(e).EncodeStruct(s)
}
