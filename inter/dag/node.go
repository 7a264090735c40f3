package dag

import (
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/LinaBursami/aptos-core/hash"
	"github.com/LinaBursami/aptos-core/inter/idx"
)

// NodeMetadata locates a certified node inside an epoch's DAG.
// An author produces at most one node per round.
type NodeMetadata struct {
	Epoch  idx.Epoch
	Round  idx.Round
	Author idx.ValidatorID
}

// NodeCertificate references a node's metadata together with the quorum
// of validators which endorsed it. Signature verification happens before
// a certificate reaches the DAG store, so only the signer set is carried.
type NodeCertificate struct {
	Metadata NodeMetadata
	Signers  []idx.ValidatorID
}

type NodeCertificates []NodeCertificate

// CertifiedNode is a node proposal which has already gathered a quorum of
// endorsements. Parents are certificates of nodes from lower rounds.
type CertifiedNode struct {
	Metadata NodeMetadata
	Parents  NodeCertificates
	Signers  []idx.ValidatorID
}

// String returns string representation.
func (m NodeMetadata) String() string {
	return fmt.Sprintf("{epoch=%d, round=%d, author=%d}", m.Epoch, m.Round, m.Author)
}

// ID returns the digest which identifies the node in storage.
func (n *CertifiedNode) ID() hash.Hash {
	buf, err := rlp.EncodeToBytes(n)
	if err != nil {
		panic(err)
	}
	return hash.Hash(sha256.Sum256(buf))
}

// Certificate returns the node's own certificate.
func (n *CertifiedNode) Certificate() NodeCertificate {
	return NodeCertificate{
		Metadata: n.Metadata,
		Signers:  n.Signers,
	}
}

// String returns string representation.
func (n *CertifiedNode) String() string {
	return fmt.Sprintf("{id=%s, meta=%s, parents=%d}", n.ID().TerminalString(), n.Metadata.String(), len(n.Parents))
}

// Metadatas returns the metadata of every certificate.
func (cc NodeCertificates) Metadatas() []NodeMetadata {
	res := make([]NodeMetadata, len(cc))
	for i, c := range cc {
		res[i] = c.Metadata
	}
	return res
}
