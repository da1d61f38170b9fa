package agent

import (
	"testing"

	"github.com/aqib-kha9/backendgo/internal/security"
)

func TestHashToken(t *testing.T) {
	h1 := HashToken("secret-token")
	h2 := HashToken("secret-token")
	h3 := HashToken("other-token")

	if len(h1) != 64 {
		t.Errorf("Expected 64-character hex hash, got %d characters", len(h1))
	}
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}
	if h1 == h3 {
		t.Error("Different tokens should hash differently")
	}
}

func TestValidTallyPort(t *testing.T) {
	cases := []struct {
		port int
		want bool
	}{
		{9000, true},
		{9500, true},
		{10000, true},
		{8999, false},
		{10001, false},
		{0, false},
	}
	for _, c := range cases {
		if got := validTallyPort(c.port); got != c.want {
			t.Errorf("validTallyPort(%d) = %v, want %v", c.port, got, c.want)
		}
	}
}

func TestReportClaimsSignatureRoundTrip(t *testing.T) {
	secret := "agent-hmac-secret"

	report := TallyReport{
		RequestID:   "req-1",
		CompanyName: "Acme Traders",
		Timestamp:   "2026-01-02T03:04:05Z",
	}
	report.Data.XML = "<ENVELOPE></ENVELOPE>"

	sig, err := security.SignPayload(report.Claims(), secret)
	if err != nil {
		t.Fatalf("Failed to sign claims: %v", err)
	}
	report.Signature = sig

	if !security.VerifySignature(report.Claims(), report.Signature, secret) {
		t.Error("Signed report claims should verify")
	}

	// Tampering with the company name must break the signature
	tampered := report
	tampered.CompanyName = "Someone Else"
	if security.VerifySignature(tampered.Claims(), tampered.Signature, secret) {
		t.Error("Tampered claims should not verify")
	}
}

func TestReportSignatureBindsXML(t *testing.T) {
	secret := "agent-hmac-secret"

	report := TallyReport{
		RequestID:   "req-1",
		CompanyName: "Acme Traders",
		Timestamp:   "2026-01-02T03:04:05Z",
		Data:        ReportData{XML: "<ENVELOPE><BODY></BODY></ENVELOPE>"},
	}
	sig, err := security.SignPayload(report.Claims(), secret)
	if err != nil {
		t.Fatalf("Failed to sign claims: %v", err)
	}
	report.Signature = sig

	// Replacing the reported XML while keeping requestId, company and
	// timestamp must invalidate the signature: the payload is part of
	// the signed claims, not carried alongside them.
	report.Data.XML = `<ENVELOPE><BODY><DATA><COLLECTION><STOCKITEM NAME="Injected"/></COLLECTION></DATA></BODY></ENVELOPE>`
	if security.VerifySignature(report.Claims(), report.Signature, secret) {
		t.Error("Signature should not verify after the XML payload is replaced")
	}
}
