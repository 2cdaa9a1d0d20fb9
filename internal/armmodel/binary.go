package armmodel

import "github.com/funvibe/funbit/pkg/funbit"

// ReadSizedLE decodes an unsigned little-endian integer of byteLen bytes
// out of data (spec §3 sized data atoms: .db/.dw/.dd/.dq are little-endian
// by default). Uses funbit's bitstring matcher instead of hand-rolled
// shifts, the way the rest of this codebase prefers a pack library over a
// stdlib byte-twiddling routine (SPEC_FULL domain stack).
func ReadSizedLE(data []byte, byteLen int) (uint64, error) {
	var value uint64
	matcher := funbit.NewMatcher()
	funbit.Integer(matcher, &value,
		funbit.WithSize(byteLen*8),
		funbit.WithEndianness("little"),
		funbit.WithSigned(false),
	)
	if _, err := funbit.Match(matcher, data[:byteLen]); err != nil {
		return 0, err
	}
	return value, nil
}

// WriteSizedLE encodes value as a byteLen-byte little-endian bitstring,
// used by tests to synthesize data blocks (spec §8 invariant 6).
func WriteSizedLE(value uint64, byteLen int) ([]byte, error) {
	builder := funbit.NewBuilder()
	funbit.AddInteger(builder, value,
		funbit.WithSize(byteLen*8),
		funbit.WithEndianness("little"),
		funbit.WithSigned(false),
	)
	return funbit.Build(builder)
}
