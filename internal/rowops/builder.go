package rowops

import (
	"fmt"
	"strings"
	"time"

	"github.com/JohanU89-coder/radius-api/internal/models"
)

// DefaultActor is recorded as creationby/updateby when a request names no actor.
const DefaultActor = "radius-api"

// Builder turns account intents into ordered statement lists.
type Builder struct {
	// ProfileEnabled adds the userinfo relation to every intent.
	ProfileEnabled bool
	// Actor is the fallback creation/update actor.
	Actor string
	// Now stamps creationdate and updatedate.
	Now func() time.Time
}

// NewBuilder returns a Builder stamping rows with the wall clock.
func NewBuilder(profileEnabled bool) *Builder {
	return &Builder{ProfileEnabled: profileEnabled, Actor: DefaultActor, Now: time.Now}
}

// attributeMappings binds request fields to the attribute rows they live in.
var attributeMappings = []struct {
	relation  Relation
	attribute string
	value     func(*models.AccountFields) *string
}{
	{CredentialAttributes, models.AttrCleartextPassword, func(f *models.AccountFields) *string { return f.Password }},
	{CredentialAttributes, models.AttrSimultaneousUse, func(f *models.AccountFields) *string { return f.SimultaneousUse }},
	{ReplyAttributes, models.AttrSessionTimeout, func(f *models.AccountFields) *string { return f.SessionTimeout }},
}

// profileMappings binds profile fields to userinfo columns.
var profileMappings = []struct {
	column string
	value  func(*models.ProfileFields) *string
}{
	{"firstname", func(p *models.ProfileFields) *string { return p.FirstName }},
	{"lastname", func(p *models.ProfileFields) *string { return p.LastName }},
	{"email", func(p *models.ProfileFields) *string { return p.Email }},
	{"department", func(p *models.ProfileFields) *string { return p.Department }},
}

// accountRelations are cleared on delete, in this order, after userinfo.
var accountRelations = []Relation{CredentialAttributes, ReplyAttributes, GroupMembership, AccountingHistory}

func (b *Builder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

func (b *Builder) actor(f models.AccountFields) string {
	if f.Actor != "" {
		return f.Actor
	}
	if b.Actor != "" {
		return b.Actor
	}
	return DefaultActor
}

func attributeRow(name, value string) []Column {
	return []Column{{"attribute", name}, {"op", models.OpAssign}, {"value", value}}
}

func groupRow(group string) []Column {
	return []Column{{"groupname", group}, {"priority", 1}}
}

func requireUsername(username string) error {
	trimmed := strings.TrimSpace(username)
	if trimmed == "" {
		return fmt.Errorf("%w: username is required", models.ErrInvalidAccount)
	}
	if trimmed != username {
		return fmt.Errorf("%w: username must not have leading or trailing whitespace", models.ErrInvalidAccount)
	}
	return nil
}

// Create builds the statements inserting a new account. Username and
// password are required. The unit starts with a guard failing on an
// existing credential row for the username.
func (b *Builder) Create(username string, f models.AccountFields) ([]Statement, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}
	if f.Password == nil || *f.Password == "" {
		return nil, fmt.Errorf("%w: password is required", models.ErrInvalidAccount)
	}

	stmts := []Statement{{Relation: CredentialAttributes, Op: OpGuardAbsent, Username: username}}

	if b.ProfileEnabled {
		set := make([]Column, 0, len(profileMappings)+2)
		for _, m := range profileMappings {
			v := ""
			if p := m.value(&f.Profile); p != nil {
				v = *p
			}
			set = append(set, Column{m.column, v})
		}
		set = append(set, Column{"creationdate", b.now()}, Column{"creationby", b.actor(f)})
		stmts = append(stmts, Statement{Relation: ProfileMetadata, Op: OpInsert, Username: username, Set: set})
	}

	for _, m := range attributeMappings {
		v := m.value(&f)
		if v == nil {
			continue
		}
		stmts = append(stmts, Statement{
			Relation: m.relation,
			Op:       OpInsert,
			Username: username,
			Set:      attributeRow(m.attribute, *v),
		})
	}

	if f.Group != nil && *f.Group != "" {
		stmts = append(stmts, Statement{Relation: GroupMembership, Op: OpInsert, Username: username, Set: groupRow(*f.Group)})
	}
	return stmts, nil
}

// Read builds the selects assembling one account.
func (b *Builder) Read(username string) []Statement {
	stmts := []Statement{
		{Relation: CredentialAttributes, Op: OpSelect, Username: username},
		{Relation: ReplyAttributes, Op: OpSelect, Username: username},
		{Relation: GroupMembership, Op: OpSelect, Username: username},
	}
	if b.ProfileEnabled {
		stmts = append(stmts, Statement{Relation: ProfileMetadata, Op: OpSelect, Username: username})
	}
	return stmts
}

// List builds the query enumerating accounts. Without the profile
// integration only usernames known to radcheck are returned.
func (b *Builder) List() []Statement {
	if b.ProfileEnabled {
		return []Statement{{Relation: ProfileMetadata, Op: OpList}}
	}
	return []Statement{{Relation: CredentialAttributes, Op: OpList}}
}

// Update builds one targeted statement per supplied field. Missing
// attribute rows are inserted; absent fields are left untouched.
func (b *Builder) Update(username string, f models.AccountFields) ([]Statement, error) {
	if err := requireUsername(username); err != nil {
		return nil, err
	}
	if f.Password != nil && *f.Password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", models.ErrInvalidAccount)
	}

	stmts := []Statement{{Relation: CredentialAttributes, Op: OpGuardPresent, Username: username}}

	if b.ProfileEnabled && !f.Profile.Empty() {
		now, actor := b.now(), b.actor(f)
		var set []Column
		for _, m := range profileMappings {
			if v := m.value(&f.Profile); v != nil {
				set = append(set, Column{m.column, *v})
			}
		}
		set = append(set, Column{"updatedate", now}, Column{"updateby", actor})
		stmts = append(stmts, Statement{
			Relation: ProfileMetadata,
			Op:       OpUpsert,
			Username: username,
			Set:      set,
			Defaults: []Column{{"creationdate", now}, {"creationby", actor}},
		})
	}

	for _, m := range attributeMappings {
		v := m.value(&f)
		if v == nil {
			continue
		}
		stmts = append(stmts, Statement{
			Relation: m.relation,
			Op:       OpUpsert,
			Username: username,
			Where:    []Column{{"attribute", m.attribute}},
			Set:      []Column{{"value", *v}},
			Defaults: []Column{{"op", models.OpAssign}},
		})
	}

	if f.Group != nil {
		stmts = append(stmts, Statement{Relation: GroupMembership, Op: OpDelete, Username: username})
		if *f.Group != "" {
			stmts = append(stmts, Statement{Relation: GroupMembership, Op: OpInsert, Username: username, Set: groupRow(*f.Group)})
		}
	}

	if len(stmts) == 1 {
		return nil, fmt.Errorf("%w: no updatable field supplied", models.ErrInvalidAccount)
	}
	return stmts, nil
}

// Delete builds one unconditional delete per relation referencing the
// account. The caller decides existence from Outcome.Affected.
func (b *Builder) Delete(username string) []Statement {
	stmts := make([]Statement, 0, len(accountRelations)+1)
	if b.ProfileEnabled {
		stmts = append(stmts, Statement{Relation: ProfileMetadata, Op: OpDelete, Username: username})
	}
	for _, rel := range accountRelations {
		stmts = append(stmts, Statement{Relation: rel, Op: OpDelete, Username: username})
	}
	return stmts
}

// Activation builds the statements toggling the Auth-Type := Reject rule.
// Deactivation replaces any Auth-Type row so at most one exists afterwards.
func (b *Builder) Activation(username string, active bool) []Statement {
	authType := []Column{{"attribute", models.AttrAuthType}}
	if active {
		return []Statement{{Relation: CredentialAttributes, Op: OpDelete, Username: username, Where: authType}}
	}
	return []Statement{
		{Relation: CredentialAttributes, Op: OpGuardPresent, Username: username},
		{Relation: CredentialAttributes, Op: OpDelete, Username: username, Where: authType},
		{Relation: CredentialAttributes, Op: OpInsert, Username: username, Set: attributeRow(models.AttrAuthType, models.AuthTypeReject)},
	}
}
