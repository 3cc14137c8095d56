package cert

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// #region canonical
// CanonicalBytes returns the byte form the signature covers. The encoding is
// fixed: the signature field emptied, the struct marshaled, then re-encoded
// through a generic JSON pass so object keys sort lexically, with no extra
// whitespace and Go's shortest round-trip float formatting. Changing any of
// this silently invalidates every previously issued signature.
func CanonicalBytes(c Certificate) ([]byte, error) {
	c.Signature = ""
	first, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("certificate canonicalize: %w", err)
	}
	var generic any
	if err := json.Unmarshal(first, &generic); err != nil {
		return nil, fmt.Errorf("certificate canonicalize: %w", err)
	}
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("certificate canonicalize: %w", err)
	}
	return out, nil
}

// #endregion canonical

// #region signer
// Sign computes the hex HMAC-SHA256 of the canonical certificate bytes.
func Sign(c Certificate, key []byte) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("certificate sign: empty key")
	}
	b, err := CanonicalBytes(c)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(b)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature over current contents and compares it to
// the stored one in constant time. Any field mutation flips this to false.
func Verify(c Certificate, key []byte) (bool, error) {
	want, err := Sign(c, key)
	if err != nil {
		return false, err
	}
	return hmac.Equal([]byte(want), []byte(c.Signature)), nil
}

// #endregion signer
