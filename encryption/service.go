package encryption

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
)

// CryptoService bundles the hashing helpers the ceremony and tally
// layers share.
type CryptoService struct{}

func NewCryptoService() *CryptoService {
	return &CryptoService{}
}

// HashShare derives the verification hash recorded alongside a
// distributed share: Keccak256(u32be(index) || value bytes).
func (cs *CryptoService) HashShare(index int, value *big.Int) []byte {
	idx := binary.BigEndian.AppendUint32(nil, uint32(index))
	return crypto.Keccak256(idx, value.Bytes())
}

// GenerateNonce returns 32 random bytes, used as tally request ids.
func (cs *CryptoService) GenerateNonce() ([]byte, error) {
	nonce := make([]byte, 32)
	_, err := rand.Read(nonce)
	return nonce, err
}
