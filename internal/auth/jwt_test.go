package auth

import (
	"testing"
	"time"
)

func TestIssueParseRoundtrip(t *testing.T) {
	tok, err := Issue("lec1", "lecturer", "attendtrack", "secret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Parse(tok, "secret", "attendtrack")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Subject != "lec1" || claims.Role != "lecturer" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestParseRejectsWrongKeyAndIssuer(t *testing.T) {
	tok, err := Issue("lec1", "lecturer", "attendtrack", "secret", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(tok, "other-secret", "attendtrack"); err == nil {
		t.Fatal("wrong key must fail")
	}
	if _, err := Parse(tok, "secret", "someone-else"); err == nil {
		t.Fatal("issuer mismatch must fail")
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tok, err := Issue("stu1", "student", "attendtrack", "secret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(tok, "secret", "attendtrack"); err == nil {
		t.Fatal("expired token must fail")
	}
}
