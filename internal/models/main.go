// Package models defines the core data structures for RADIUS accounts
// and the attribute rows they are projected from.
package models

import "time"

// Well-known attribute names written by this service.
const (
	// AttrCleartextPassword carries the password checked at authentication time.
	AttrCleartextPassword = "Cleartext-Password"
	// AttrSimultaneousUse limits concurrent sessions.
	AttrSimultaneousUse = "Simultaneous-Use"
	// AttrSessionTimeout is returned to the NAS to bound session length.
	AttrSessionTimeout = "Session-Timeout"
	// AttrAuthType with value AuthTypeReject administratively disables an account.
	AttrAuthType = "Auth-Type"

	// AuthTypeReject is the Auth-Type value that rejects every request.
	AuthTypeReject = "Reject"
	// OpAssign is the operator used for every row this service inserts.
	OpAssign = ":="
)

// Attribute is a single (name, operator, value) row of radcheck or radreply.
type Attribute struct {
	// Attribute is the RADIUS attribute name.
	Attribute string `json:"attribute" db:"attribute"`
	// Op is the comparison or assignment operator, carried through unchanged.
	Op string `json:"op" db:"op"`
	// Value is the attribute value in its string form.
	Value string `json:"value" db:"value"`
}

// Profile holds the administrative metadata kept in userinfo.
type Profile struct {
	Username   string     `json:"username" db:"username"`
	FirstName  string     `json:"firstname" db:"firstname"`
	LastName   string     `json:"lastname" db:"lastname"`
	Email      string     `json:"email" db:"email"`
	Department string     `json:"department" db:"department"`
	CreatedAt  *time.Time `json:"creationdate,omitempty" db:"creationdate"`
	CreatedBy  string     `json:"creationby,omitempty" db:"creationby"`
	UpdatedAt  *time.Time `json:"updatedate,omitempty" db:"updatedate"`
	UpdatedBy  string     `json:"updateby,omitempty" db:"updateby"`
}

// Account is the logical subscriber, assembled from every relation
// that references its username.
type Account struct {
	Username string
	// Check holds the radcheck rows.
	Check []Attribute
	// Reply holds the radreply rows.
	Reply []Attribute
	// Groups lists radusergroup memberships ordered by priority.
	Groups []string
	// Profile is nil when the profile integration is disabled or no row exists.
	Profile *Profile
}

// Active reports whether the account is eligible to authenticate. An
// Auth-Type := Reject check row marks it as administratively disabled.
func (a Account) Active() bool {
	for _, attr := range a.Check {
		if attr.Attribute == AttrAuthType && attr.Value == AuthTypeReject {
			return false
		}
	}
	return true
}

// ProfileFields are the optional userinfo columns of a create or update intent.
type ProfileFields struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Department *string
}

// Empty reports whether no profile field is present.
func (p ProfileFields) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.Department == nil
}

// AccountFields is the optional attribute set of a create or update intent.
// A nil pointer means the field was not supplied.
type AccountFields struct {
	Password        *string
	SimultaneousUse *string
	SessionTimeout  *string
	// Group assigns the account to a radusergroup; an empty string removes
	// the membership on update.
	Group   *string
	Profile ProfileFields
	// Actor is recorded as creationby/updateby on the profile row.
	Actor string
}
