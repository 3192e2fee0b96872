// Package wire implements the canonical binary encoding for operations,
// transactions, and blocks described in spec §6: a length-prefixed,
// variant-tagged binary serialisation with a fixed per-entity field order.
// The codec itself is RLP (github.com/ethereum/go-ethereum/rlp), the same
// library the teacher uses to persist its validator set
// (consensus/store/store.go's rlp.EncodeToBytes) -- deterministic,
// length-prefixed, tag-free-but-order-fixed encoding is exactly what RLP
// already gives a sequence of struct fields.
//
// Entity-id and content hashing (Keccak256, ECDSA signature recovery) are
// deliberately not implemented here: per the Non-goal "cryptographic
// primitives are consumed through a crypto.Suite trait-style interface,
// not implemented here", hashing and signing stay an external collaborator
// concern. This package covers only the in-scope wire-format requirement,
// which is a serialisation concern, not a cryptographic one.
package wire

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
)

// OperationEnvelope is the variant-tagged wrapper around one operation's
// encoded fields (spec §6: "{ signatory, operation_specific_fields,
// extensions }"). Kind carries the variant tag; Payload is the
// operation-specific fields, already RLP-encoded by the caller, since the
// concrete operation types live in core/evaluator and this package stays
// agnostic of them to avoid a dependency cycle.
type OperationEnvelope struct {
	Kind       string
	Payload    []byte
	Extensions []byte
}

// EncodeOperation RLP-encodes op and wraps it in an OperationEnvelope
// tagged with kind (the operation's OperationKind, stringified by the
// caller).
func EncodeOperation(kind string, op interface{}) (OperationEnvelope, error) {
	payload, err := rlp.EncodeToBytes(op)
	if err != nil {
		return OperationEnvelope{}, fmt.Errorf("wire: encode operation %s: %w", kind, err)
	}
	return OperationEnvelope{Kind: kind, Payload: payload}, nil
}

// Decode unwraps env's payload into out, which must be a pointer to the
// concrete operation type the caller has registered for env.Kind.
func (env OperationEnvelope) Decode(out interface{}) error {
	if err := rlp.DecodeBytes(env.Payload, out); err != nil {
		return fmt.Errorf("wire: decode operation %s: %w", env.Kind, err)
	}
	return nil
}

// TxEnvelope is the transaction envelope from spec §6: "{ ref_block_num,
// ref_block_prefix, expiration, operations[], extensions, signatures[] }".
// Signatures lives at this level, not per-operation: one signing-key set
// authorises every operation the transaction carries (core/evaluator's
// SignedTransaction mirrors this at the in-memory dispatch layer).
type TxEnvelope struct {
	RefBlockNum    uint32
	RefBlockPrefix uint32
	Expiration     int64
	Operations     []OperationEnvelope
	Extensions     []byte
	Signatures     [][]byte
}

// EncodeTx returns tx's canonical RLP encoding.
func EncodeTx(tx TxEnvelope) ([]byte, error) {
	out, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return nil, fmt.Errorf("wire: encode transaction: %w", err)
	}
	return out, nil
}

// DecodeTx parses data produced by EncodeTx.
func DecodeTx(data []byte) (TxEnvelope, error) {
	var tx TxEnvelope
	if err := rlp.DecodeBytes(data, &tx); err != nil {
		return TxEnvelope{}, fmt.Errorf("wire: decode transaction: %w", err)
	}
	return tx, nil
}

// BlockEnvelope is the block envelope from spec §6: "{ previous_id,
// timestamp, producer, transaction_merkle_root, extensions,
// producer_signature, transactions[] }". PreviousID, TransactionMerkleRoot,
// and ProducerSignature stay caller-supplied opaque bytes/strings --
// computing them is the crypto.Suite seam's job, not this package's, the
// same way consensus/producer's BlockID fields stay plain strings with no
// concrete hash computation anywhere in that package.
type BlockEnvelope struct {
	PreviousID            string
	Timestamp             int64
	Producer              string
	TransactionMerkleRoot []byte
	Extensions            []byte
	ProducerSignature     []byte
	Transactions          [][]byte
}

// EncodeBlock returns b's canonical RLP encoding.
func EncodeBlock(b BlockEnvelope) ([]byte, error) {
	out, err := rlp.EncodeToBytes(b)
	if err != nil {
		return nil, fmt.Errorf("wire: encode block: %w", err)
	}
	return out, nil
}

// DecodeBlock parses data produced by EncodeBlock.
func DecodeBlock(data []byte) (BlockEnvelope, error) {
	var b BlockEnvelope
	if err := rlp.DecodeBytes(data, &b); err != nil {
		return BlockEnvelope{}, fmt.Errorf("wire: decode block: %w", err)
	}
	return b, nil
}
