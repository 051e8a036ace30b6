package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw multicodec, sha2-256 multihash) of data. This is
// the only CID shape the snapshot stores accept.
func Sum(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// String is Sum rendered as a string, or "" if hashing failed.
func String(data []byte) string {
	id, err := Sum(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// Matches reports whether data hashes to id.
func Matches(id cid.Cid, data []byte) bool {
	if !id.Defined() {
		return false
	}
	got, err := Sum(data)
	return err == nil && got.Equals(id)
}
