package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"regexp"
	"strings"
)

var hexDigest64 = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// ParseMercadoPagoSignature splits an x-signature header of the form
// "ts=<unix>,v1=<hex>" into its parts.
func ParseMercadoPagoSignature(header string) (ts, v1 string, ok bool) {
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "ts":
			ts = strings.TrimSpace(value)
		case "v1":
			v1 = strings.TrimSpace(value)
		}
	}
	if ts == "" || !hexDigest64.MatchString(v1) {
		return "", "", false
	}
	return ts, v1, true
}

// mercadoPagoManifests returns the signed manifest candidates. Payment
// notifications have been observed signed with either key spelling.
func mercadoPagoManifests(dataID, requestID, ts string) []string {
	return []string{
		"id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";",
		"data.id:" + dataID + ";request-id:" + requestID + ";ts:" + ts + ";",
	}
}

// VerifyMercadoPagoSignature checks the x-signature header against every
// secret (current first, then rotation) and both manifest forms. First match wins.
func VerifyMercadoPagoSignature(dataID, requestID, signatureHeader string, secrets ...string) bool {
	dataID = strings.TrimSpace(dataID)
	requestID = strings.TrimSpace(requestID)
	if dataID == "" || requestID == "" {
		return false
	}
	ts, v1, ok := ParseMercadoPagoSignature(signatureHeader)
	if !ok {
		return false
	}
	expected, err := hex.DecodeString(strings.ToLower(v1))
	if err != nil {
		return false
	}

	for _, secret := range secrets {
		secret = strings.TrimSpace(secret)
		if secret == "" {
			continue
		}
		for _, manifest := range mercadoPagoManifests(dataID, requestID, ts) {
			if verifyHMAC([]byte(manifest), expected, []byte(secret), sha256.New) {
				return true
			}
		}
	}
	return false
}

func verifyHMAC(payload, expectedSig, secret []byte, hashFunc func() hash.Hash) bool {
	mac := hmac.New(hashFunc, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), expectedSig)
}
