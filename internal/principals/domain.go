package principals

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

// CredentialKind identifies how a credential's secret is presented.
type CredentialKind string

// CredentialScope identifies which evaluation path tokens minted from a
// credential use. Kind and scope are deliberately separate fields: the
// password→administrative coupling is a policy of the command surface,
// not of the credential model.
type CredentialScope string

const (
	KindPassword   CredentialKind = "password"
	KindVoiceprint CredentialKind = "voice_print"

	// ScopeSystemWide tokens evaluate against the user's direct
	// entitlement set, ignoring the resource argument.
	ScopeSystemWide CredentialScope = "system_wide"
	// ScopeResourceBound tokens evaluate only against the user's
	// resource-bound role grants.
	ScopeResourceBound CredentialScope = "resource_bound"
)

// Credential belongs to exactly one user. Password verifiers hold a
// bcrypt hash; voiceprint verifiers hold the opaque secret bytes.
type Credential struct {
	Kind     CredentialKind
	Scope    CredentialScope
	verifier []byte
}

// Administrative reports whether tokens minted from this credential use
// the system-wide evaluation path.
func (c *Credential) Administrative() bool {
	return c.Scope == ScopeSystemWide
}

// Matches verifies a presented secret against the stored verifier.
func (c *Credential) Matches(signInText string) bool {
	switch c.Kind {
	case KindPassword:
		return bcrypt.CompareHashAndPassword(c.verifier, []byte(signInText)) == nil
	case KindVoiceprint:
		return subtle.ConstantTimeCompare(c.verifier, []byte(signInText)) == 1
	default:
		return false
	}
}

// User is a principal: an identifier, a display name, credentials,
// directly-granted entitlement ids, and resource-role binding names.
// All sets grow monotonically and are guarded by the owning registry.
type User struct {
	ID   string
	Name string

	credentials  []*Credential
	entitlements map[string]struct{}
	bindings     map[string]struct{}
}

func newUser(id, name string) *User {
	return &User{
		ID:           id,
		Name:         name,
		entitlements: make(map[string]struct{}),
		bindings:     make(map[string]struct{}),
	}
}

// Binding associates one role with one resource; it grants the role's
// permissions only within that resource's subtree.
type Binding struct {
	Name         string
	RoleID       string
	ResourceName string
}
