package domain

import "testing"

func TestUserIdentity_Valid(t *testing.T) {
	cases := []struct {
		name string
		id   UserIdentity
		want bool
	}{
		{"ok", UserIdentity{ID: 1, Username: "alice"}, true},
		{"zero id", UserIdentity{ID: 0, Username: "alice"}, false},
		{"negative id", UserIdentity{ID: -3, Username: "alice"}, false},
		{"blank username", UserIdentity{ID: 1, Username: "  "}, false},
	}
	for _, tc := range cases {
		if got := tc.id.Valid(); got != tc.want {
			t.Fatalf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestUser_Identity(t *testing.T) {
	u := &User{ID: 7, Username: "bob", Email: "b@x.com", PasswordHash: "h"}
	if got := u.Identity(); got != (UserIdentity{ID: 7, Username: "bob"}) {
		t.Fatalf("unexpected identity: %+v", got)
	}
}
