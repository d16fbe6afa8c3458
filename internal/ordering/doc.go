// Package ordering computes display positions for bakery products.
//
// A product's position is a single packed integer:
//
//	order = sectorIndex*1000 + sequence
//
// where sectorIndex is the 1-based catalog position of the product's sector and
// sequence is its 1-based position inside that sector. The canonical text form is
// five digits, "SS" + "SEQ" (sector 2, sequence 7 is "02007", integer 2007).
//
// # Invariants
//
// After every mutation computed by Engine:
//   - Within a sector the sequences are exactly {1..n}: no gaps, no duplicates.
//   - Every order addresses a catalog sector (see Codec.DecodeSector for the
//     first-sector fallback applied to corrupted values).
//   - Order values are globally unique.
//
// # Purity
//
// Everything here is synchronous and works on a snapshot slice that is never
// modified. Operations return a Batch holding every order that changed; the caller
// must persist the whole batch atomically and must serialize concurrent mutations
// of the same sector. Operations either return a complete, validated batch or an
// *Error, never a partial result.
package ordering
