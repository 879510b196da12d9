package umbrella

// Plaintext is a sealed carrier for sensitive bytes. The payload is an
// unexported field, so packages outside umbrella can wrap data into a
// Plaintext but can never read it back out; the only consumer is
// Gateway.Encrypt, which wipes the buffer once the ciphertext exists.
type Plaintext struct {
	buf []byte
}

// Wrap copies b into a sealed Plaintext. Callers are expected to zero
// their own copy once wrapped.
func Wrap(b []byte) Plaintext {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Plaintext{buf: cp}
}

// WrapString seals a string payload.
func WrapString(s string) Plaintext {
	return Plaintext{buf: []byte(s)}
}

// Len reports the payload size without exposing the payload.
func (p Plaintext) Len() int { return len(p.buf) }

// wipe overwrites the buffer. Plaintext is passed by value but the
// backing array is shared, so this destroys every copy.
func (p Plaintext) wipe() {
	for i := range p.buf {
		p.buf[i] = 0
	}
}
