package explorer

import "testing"

func TestTxURL(t *testing.T) {
	cases := []struct {
		base, network, hash, want string
	}{
		{"", "", "H1", "https://stellar.expert/explorer/testnet/tx/H1"},
		{"https://example.org/x/", "public", "abc", "https://example.org/x/public/tx/abc"},
		{"  https://example.org ", " testnet ", " abc ", "https://example.org/testnet/tx/abc"},
	}
	for _, tc := range cases {
		if got := TxURL(tc.base, tc.network, tc.hash); got != tc.want {
			t.Fatalf("TxURL(%q,%q,%q) = %q, want %q", tc.base, tc.network, tc.hash, got, tc.want)
		}
	}
}
