// Package domain holds the portal's view of an identity record: the
// attribute names, required action aliases, credential types and realm
// roles it reads and writes on the identity provider, plus helpers to
// classify what state a record is in.
package domain

import "regexp"

// Attribute names stored on the identity record.
const (
	// AttrRecoveryEmail is the user's personal fallback address,
	// captured at enrollment. Recovery is refused when unset.
	AttrRecoveryEmail = "recoveryEmail"

	// AttrTenantEmail holds the user's tenant address while their
	// primary email is diverted to an external address. Presence of
	// this attribute marks a diverted record.
	AttrTenantEmail = "tenantEmail"

	// AttrIsRecoveryFlow marks a diversion as recovery-initiated
	// ("true") as opposed to a first-time invitation.
	AttrIsRecoveryFlow = "isRecoveryFlow"

	// AttrBeginSetupToken stores the issued setup token so support
	// staff can re-send a lost link without restarting the flow.
	AttrBeginSetupToken = "beginSetupToken"

	// AttrUserType distinguishes guest accounts from members.
	AttrUserType = "userType"
)

// Required action aliases understood by the identity provider.
const (
	ActionVerifyEmail     = "VERIFY_EMAIL"
	ActionRegisterPasskey = "webauthn-register-passwordless"
)

// CredTypePasskey is the credential type of passwordless WebAuthn
// credentials, the only credential type recovery revokes.
const CredTypePasskey = "webauthn-passwordless"

// Realm roles managed by the portal.
const (
	RoleGuest  = "guest-user"
	RoleMember = "docs-user"
)

// UserTypeGuest is the AttrUserType value for guest accounts.
const UserTypeGuest = "guest"

// FlowState classifies an identity record by its email diversion.
type FlowState int

const (
	// FlowNone: the record's primary email is its tenant address.
	FlowNone FlowState = iota

	// FlowInvitation: email diverted to an external address for
	// first-time enrollment.
	FlowInvitation

	// FlowRecovery: email diverted to the recovery address after a
	// lost-credential recovery was started.
	FlowRecovery
)

// String implements fmt.Stringer.
func (s FlowState) String() string {
	switch s {
	case FlowInvitation:
		return "invitation"
	case FlowRecovery:
		return "recovery"
	default:
		return "none"
	}
}

// Attrs is the attribute accessor the classification helpers need.
// *kcadmin.User satisfies it.
type Attrs interface {
	Attr(name string) string
}

// ClassifyFlow reports whether a record is mid-diversion and which
// flow put it there.
func ClassifyFlow(u Attrs) FlowState {
	if u.Attr(AttrTenantEmail) == "" {
		return FlowNone
	}
	if u.Attr(AttrIsRecoveryFlow) == "true" {
		return FlowRecovery
	}
	return FlowInvitation
}

// IsDiverted reports whether the record's primary email is currently
// pointed at an external address.
func IsDiverted(u Attrs) bool {
	return ClassifyFlow(u) != FlowNone
}

var maskPattern = regexp.MustCompile(`(.{2}).*(@.*)`)

// MaskEmail obscures an address down to its first two characters and
// domain, e.g. "johndoe@gmail.com" becomes "jo***@gmail.com".
// Addresses too short to match are returned unchanged.
func MaskEmail(email string) string {
	return maskPattern.ReplaceAllString(email, "$1***$2")
}
