package eth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrInvalidSignature = errors.New("invalid signature")

// Message a wallet signs to log in
func LoginMessage(address, nonce string) string {
	return fmt.Sprintf("Sign in to the marketplace\n\nAddress: %s\nNonce: %s", strings.ToLower(address), nonce)
}

// Verifies an EIP-191 personal_sign signature made by the address
func VerifySignature(address, message, signatureHex string) error {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return ErrInvalidSignature
	}

	// Wallets produce v in {27, 28}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return ErrInvalidSignature
	}
	return nil
}
