package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signMercadoPago(secret, manifest string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(manifest))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestParseMercadoPagoSignature(t *testing.T) {
	digest := signMercadoPago("s", "x")
	ts, v1, ok := ParseMercadoPagoSignature(" ts=1700000000 , v1=" + digest)
	if !ok || ts != "1700000000" || v1 != digest {
		t.Fatalf("unexpected parse result ts=%q v1=%q ok=%v", ts, v1, ok)
	}

	for _, header := range []string{"", "ts=1", "v1=" + digest, "ts=1,v1=abc", "ts=1,v1=" + digest + "00"} {
		if _, _, ok := ParseMercadoPagoSignature(header); ok {
			t.Fatalf("expected %q to be rejected", header)
		}
	}
}

func TestVerifyMercadoPagoSignature(t *testing.T) {
	const (
		dataID    = "123456"
		requestID = "req-1"
		ts        = "1700000000"
	)

	current := signMercadoPago("current", "id:"+dataID+";request-id:"+requestID+";ts:"+ts+";")
	if !VerifyMercadoPagoSignature(dataID, requestID, "ts="+ts+",v1="+current, "current", "old") {
		t.Fatalf("expected current secret to validate")
	}

	alternate := signMercadoPago("current", "data.id:"+dataID+";request-id:"+requestID+";ts:"+ts+";")
	if !VerifyMercadoPagoSignature(dataID, requestID, "ts="+ts+",v1="+alternate, "current") {
		t.Fatalf("expected alternate manifest to validate")
	}

	rotated := signMercadoPago("old", "id:"+dataID+";request-id:"+requestID+";ts:"+ts+";")
	if !VerifyMercadoPagoSignature(dataID, requestID, "ts="+ts+",v1="+rotated, "current", "old") {
		t.Fatalf("expected rotation secret to validate")
	}
	if VerifyMercadoPagoSignature(dataID, requestID, "ts="+ts+",v1="+rotated, "current", "") {
		t.Fatalf("expected signature from unknown secret to fail")
	}

	if VerifyMercadoPagoSignature("999", requestID, "ts="+ts+",v1="+current, "current") {
		t.Fatalf("expected tampered data id to fail")
	}
	if VerifyMercadoPagoSignature(dataID, requestID, "ts=1700000001,v1="+current, "current") {
		t.Fatalf("expected tampered timestamp to fail")
	}
	if VerifyMercadoPagoSignature(dataID, "", "ts="+ts+",v1="+current, "current") {
		t.Fatalf("expected missing request id to fail")
	}
}
