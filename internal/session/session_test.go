package session

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestTokenRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if _, ok := store.Token(); ok {
		t.Fatal("fresh store should have no token")
	}
	if err := store.SaveToken("tok-abc"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	got, ok := store.Token()
	if !ok || got != "tok-abc" {
		t.Fatalf("Token = %q, %v", got, ok)
	}

	if err := store.SaveToken("tok-next"); err != nil {
		t.Fatalf("SaveToken replace: %v", err)
	}
	if got, _ := store.Token(); got != "tok-next" {
		t.Fatalf("replacement not visible, got %q", got)
	}

	if err := store.ClearToken(); err != nil {
		t.Fatalf("ClearToken: %v", err)
	}
	if _, ok := store.Token(); ok {
		t.Fatal("cleared token still readable")
	}
}

func TestSaveTokenRejectsEmpty(t *testing.T) {
	store := openTestStore(t)
	if err := store.SaveToken("   "); err == nil {
		t.Fatal("blank token must be rejected")
	}
}

func TestTokenIsReadFreshAcrossHandles(t *testing.T) {
	dir := t.TempDir()
	first, err := Open(dir)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	defer first.Close()
	second, err := Open(dir)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer second.Close()

	if _, ok := first.Token(); ok {
		t.Fatal("no token expected yet")
	}
	if err := second.SaveToken("written-elsewhere"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	// The first handle must see the write on its very next read.
	got, ok := first.Token()
	if !ok || got != "written-elsewhere" {
		t.Fatalf("first handle read %q, %v", got, ok)
	}
}

func TestIdentityFromClaims(t *testing.T) {
	store := openTestStore(t)
	token := signedToken(t, jwt.MapClaims{
		"user_id":   float64(42),
		"full_name": "Ada Lovelace",
		"role":      "teacher",
	})
	if err := store.SaveToken(token); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	id, ok := store.Identity()
	if !ok {
		t.Fatal("expected a decodable identity")
	}
	if id.UserID != 42 || id.FullName != "Ada Lovelace" || id.Role != "teacher" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentityFallsBackToSubAndName(t *testing.T) {
	id, ok := identityFromToken(signedToken(t, jwt.MapClaims{
		"sub":  "7",
		"name": "Grace Hopper",
	}))
	if !ok {
		t.Fatal("expected ok")
	}
	if id.UserID != 7 || id.FullName != "Grace Hopper" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestIdentityRejectsGarbage(t *testing.T) {
	if _, ok := identityFromToken("not-a-jwt"); ok {
		t.Fatal("garbage token must not yield an identity")
	}
	// Claims without any user id are unusable for attribution.
	if _, ok := identityFromToken(signedToken(t, jwt.MapClaims{"name": "x"})); ok {
		t.Fatal("identity without a user id must be rejected")
	}
}

func TestIdentityWithoutToken(t *testing.T) {
	store := openTestStore(t)
	if _, ok := store.Identity(); ok {
		t.Fatal("no token means no identity")
	}
}
