package policy

import (
	"testing"

	"legalflow/internal/auth"
)

func TestOwnerHasAllActions(t *testing.T) {
	owner := Actor{ID: "u1", Role: auth.RoleClient}
	res := Resource{OwnerID: "u1"}

	for _, action := range []Action{ActionRead, ActionDownload, ActionUpdate, ActionComment, ActionDelete, ActionShare, ActionSign} {
		if !Can(owner, action, res) {
			t.Fatalf("owner denied %s", action)
		}
	}
}

func TestAdminOverridesOwnershipAndGrants(t *testing.T) {
	admin := Actor{ID: "m1", Role: auth.RoleAdmin}
	res := Resource{OwnerID: "someone-else"}

	for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete, ActionShare, ActionSign} {
		if !Can(admin, action, res) {
			t.Fatalf("admin denied %s", action)
		}
	}
}

func TestDenyByDefault(t *testing.T) {
	stranger := Actor{ID: "u2", Role: auth.RoleClient}
	res := Resource{OwnerID: "u1"}

	for _, action := range []Action{ActionRead, ActionDownload, ActionUpdate, ActionComment, ActionDelete, ActionShare, ActionSign} {
		if Can(stranger, action, res) {
			t.Fatalf("stranger permitted %s", action)
		}
	}
}

func TestGrantLevels(t *testing.T) {
	res := Resource{
		OwnerID: "u1",
		Grants: []Grant{
			{UserID: "viewer", Level: LevelView},
			{UserID: "editor", Level: LevelEdit},
			{UserID: "commenter", Level: LevelComment},
		},
	}

	cases := []struct {
		actor  string
		action Action
		want   bool
	}{
		{"viewer", ActionRead, true},
		{"viewer", ActionDownload, true},
		{"viewer", ActionUpdate, false},
		{"viewer", ActionComment, false},
		{"viewer", ActionShare, false},
		{"editor", ActionRead, true},
		{"editor", ActionUpdate, true},
		{"editor", ActionComment, false},
		{"editor", ActionDelete, false},
		{"commenter", ActionRead, true},
		{"commenter", ActionComment, true},
		{"commenter", ActionUpdate, false},
	}
	for _, tc := range cases {
		actor := Actor{ID: tc.actor, Role: auth.RoleClient}
		if got := Can(actor, tc.action, res); got != tc.want {
			t.Fatalf("Can(%s, %s)=%v, want %v", tc.actor, tc.action, got, tc.want)
		}
	}
}

func TestSigningRequiresPendingEntry(t *testing.T) {
	res := Resource{
		OwnerID: "u1",
		Signatures: []Signature{
			{UserID: "pending-signer", Status: SignaturePending},
			{UserID: "done-signer", Status: SignatureSigned},
		},
	}

	if !Can(Actor{ID: "pending-signer", Role: auth.RoleClient}, ActionSign, res) {
		t.Fatalf("pending signer denied sign")
	}
	if Can(Actor{ID: "done-signer", Role: auth.RoleClient}, ActionSign, res) {
		t.Fatalf("signer without pending entry permitted sign")
	}
	if Can(Actor{ID: "outsider", Role: auth.RoleLawyer}, ActionSign, res) {
		t.Fatalf("outsider permitted sign")
	}
	// Owner and admin may self-add a signature.
	if !Can(Actor{ID: "u1", Role: auth.RoleClient}, ActionSign, res) {
		t.Fatalf("owner denied sign")
	}
}

func TestOwnerShortCircuitBeatsGrantLevel(t *testing.T) {
	// A view-only grantee who is also the owner keeps full rights.
	res := Resource{
		OwnerID: "u1",
		Grants:  []Grant{{UserID: "u1", Level: LevelView}},
	}
	if !Can(Actor{ID: "u1", Role: auth.RoleClient}, ActionUpdate, res) {
		t.Fatalf("owner with view grant lost update")
	}
}

func TestParseLevel(t *testing.T) {
	if _, err := ParseLevel("EDIT"); err != nil {
		t.Fatalf("ParseLevel(EDIT): %v", err)
	}
	if _, err := ParseLevel("owner"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
