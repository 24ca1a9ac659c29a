package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/rentfi/go-rentfi/service/persist"
	"github.com/rentfi/go-rentfi/service/redis"
)

// NoncePrepend is prepended to every login nonce before signing so that a
// signed nonce cannot be replayed as a transaction or arbitrary message
const NoncePrepend = "RentFi one-time login nonce: "

const nonceTTL = 10 * time.Minute

// ErrNonceNotFound is returned when a login is attempted without first
// requesting a nonce, or after the nonce has expired
var ErrNonceNotFound = errors.New("no login nonce found for address")

// ErrAddressSignatureMismatch is returned when a signature does not recover
// to the address attempting to log in
var ErrAddressSignatureMismatch = errors.New("address does not match signature")

// NonceStore issues and consumes one-time login nonces
type NonceStore struct {
	cache *redis.Cache
}

// NewNonceStore creates a nonce store backed by the given cache
func NewNonceStore(cache *redis.Cache) *NonceStore {
	return &NonceStore{cache: cache}
}

// NewNonce generates and stores a fresh nonce for the address, replacing any
// previous one
func (n *NonceStore) NewNonce(ctx context.Context, address persist.EthereumAddress) (string, error) {
	nonce := persist.GenerateID().String()
	if err := n.cache.Set(ctx, address.String(), []byte(nonce), nonceTTL); err != nil {
		return "", err
	}
	return NoncePrepend + nonce, nil
}

// ConsumeNonce retrieves and deletes the stored nonce for the address
func (n *NonceStore) ConsumeNonce(ctx context.Context, address persist.EthereumAddress) (string, error) {
	nonce, err := n.cache.Get(ctx, address.String())
	if err != nil {
		if _, ok := err.(redis.ErrKeyNotFound); ok {
			return "", ErrNonceNotFound
		}
		return "", err
	}
	if err := n.cache.Delete(ctx, address.String()); err != nil {
		return "", err
	}
	return NoncePrepend + string(nonce), nil
}

// Login verifies a personal_sign signature over the caller's stored nonce and,
// if valid, issues an auth token for the address
func Login(ctx context.Context, nonces *NonceStore, address persist.EthereumAddress, signature string) (string, error) {
	nonce, err := nonces.ConsumeNonce(ctx, address)
	if err != nil {
		return "", err
	}

	valid, err := VerifySignature(signature, nonce, address)
	if err != nil {
		return "", err
	}
	if !valid {
		return "", ErrAddressSignatureMismatch
	}

	return GenerateAuthToken(ctx, address)
}

// VerifySignature checks a personal_sign (EIP-191) signature over the given
// message against the address
func VerifySignature(signature string, message string, address persist.EthereumAddress) (bool, error) {
	// personal_sign hashes "\x19Ethereum Signed Message:\n" + len(message) + message
	data := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	dataHash := crypto.Keccak256Hash([]byte(data))

	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, err
	}
	if len(sig) != crypto.SignatureLength {
		return false, errors.New("invalid signature length")
	}

	// Ledger-produced signatures have v = 0 or 1
	if sig[64] == 0 || sig[64] == 1 {
		sig[64] += 27
	}
	if sig[64] != 27 && sig[64] != 28 {
		return false, errors.New("invalid signature (V is not 27 or 28)")
	}
	sig[64] -= 27

	sigPublicKeyECDSA, err := crypto.SigToPub(dataHash.Bytes(), sig)
	if err != nil {
		return false, err
	}

	recovered := crypto.PubkeyToAddress(*sigPublicKeyECDSA).Hex()
	if !strings.EqualFold(recovered, address.String()) {
		return false, ErrAddressSignatureMismatch
	}

	publicKeyBytes := crypto.CompressPubkey(sigPublicKeyECDSA)
	return crypto.VerifySignature(publicKeyBytes, dataHash.Bytes(), sig[:len(sig)-1]), nil
}
