package wire

import (
	"crypto/sha256"
	"testing"
)

func TestFormEncodeSortsKeysAndEscapes(t *testing.T) {
	t.Parallel()

	got := FormEncode(map[string]string{
		"redirect_uri":  "https://example.com/cb",
		"code_verifier": "abc~123",
		"client_id":     "my client",
	})
	want := "client_id=my%20client&code_verifier=abc~123&redirect_uri=https%3A%2F%2Fexample.com%2Fcb"
	if got != want {
		t.Errorf("FormEncode() = %q, want %q", got, want)
	}
}

func TestFormEncodeDeterministic(t *testing.T) {
	t.Parallel()

	values := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := FormEncode(values)
	for i := 0; i < 20; i++ {
		if got := FormEncode(values); got != first {
			t.Fatalf("FormEncode() not deterministic: %q vs %q", got, first)
		}
	}
}

func TestBase64URLEncodeNoPadding(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("the quick brown fox"))
	got := Base64URLEncode(sum[:])
	if len(got) != 43 {
		t.Errorf("len(Base64URLEncode(sha256)) = %d, want 43", len(got))
	}
	for _, c := range got {
		if c == '+' || c == '/' || c == '=' {
			t.Fatalf("Base64URLEncode() contains non-url-safe char %q in %q", c, got)
		}
	}
}

func TestBase64URLRoundTrip(t *testing.T) {
	t.Parallel()

	data := []byte{0, 1, 2, 253, 254, 255, 'a', 'b', 'c'}
	encoded := Base64URLEncode(data)
	decoded, err := Base64URLDecode(encoded)
	if err != nil {
		t.Fatalf("Base64URLDecode() unexpected error: %v", err)
	}
	if string(decoded) != string(data) {
		t.Errorf("round trip = %v, want %v", decoded, data)
	}
}
