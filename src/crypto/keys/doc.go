// Package keys implements the public key cryptography used by Attest.
//
// Every account owns a secp256k1 key-pair. The account is identified by an
// address derived from the public key, exactly as Ethereum does it, so keys
// produced by common Ethereum wallets can sign messages for the ledger and
// vice versa.
//
// Messages are signed with the personal-message scheme: the text is prefixed
// with "\x19Ethereum Signed Message:\n" and its decimal byte length before
// being hashed with Keccak-256. The prefix makes it impossible to reinterpret
// a signature over user-supplied text as a signature over a transaction or
// any other structured payload.
//
// Signatures are 65 bytes, R || S || V, with V in {27, 28}. The signer is
// recovered from the signature, so no public key lookup is needed.
package keys
