package rowops

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohanU89-coder/radius-api/internal/models"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestBuilder(profile bool) *Builder {
	b := NewBuilder(profile)
	b.Now = func() time.Time { return fixedNow }
	return b
}

func ptr(s string) *string { return &s }

func TestCreate_RequiresUsernameAndPassword(t *testing.T) {
	b := newTestBuilder(false)

	_, err := b.Create("", models.AccountFields{Password: ptr("p1")})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)

	_, err = b.Create("   ", models.AccountFields{Password: ptr("p1")})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)

	_, err = b.Create(" carol ", models.AccountFields{Password: ptr("p1")})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)
	assert.ErrorContains(t, err, "leading or trailing whitespace")

	_, err = b.Update("carol\t", models.AccountFields{Password: ptr("p2")})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)

	_, err = b.Create("alice", models.AccountFields{})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)

	_, err = b.Create("alice", models.AccountFields{Password: ptr("")})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)
}

func TestCreate_PasswordOnly(t *testing.T) {
	stmts, err := newTestBuilder(false).Create("alice", models.AccountFields{Password: ptr("p1")})
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, OpGuardAbsent, stmts[0].Op)
	assert.Equal(t, CredentialAttributes, stmts[0].Relation)

	assert.Equal(t, Statement{
		Relation: CredentialAttributes,
		Op:       OpInsert,
		Username: "alice",
		Set:      attributeRow(models.AttrCleartextPassword, "p1"),
	}, stmts[1])
}

func TestCreate_AllFieldsInOrder(t *testing.T) {
	fields := models.AccountFields{
		Password:        ptr("p1"),
		SimultaneousUse: ptr("2"),
		SessionTimeout:  ptr("3600"),
		Group:           ptr("staff"),
		Profile:         models.ProfileFields{Email: ptr("alice@example.com")},
		Actor:           "billing",
	}
	stmts, err := newTestBuilder(true).Create("alice", fields)
	require.NoError(t, err)
	require.Len(t, stmts, 6)

	assert.Equal(t, OpGuardAbsent, stmts[0].Op)

	profile := stmts[1]
	assert.Equal(t, ProfileMetadata, profile.Relation)
	assert.Equal(t, OpInsert, profile.Op)
	assert.Contains(t, profile.Set, Column{"email", "alice@example.com"})
	assert.Contains(t, profile.Set, Column{"firstname", ""})
	assert.Contains(t, profile.Set, Column{"creationdate", fixedNow})
	assert.Contains(t, profile.Set, Column{"creationby", "billing"})

	assert.Equal(t, CredentialAttributes, stmts[2].Relation)
	assert.Equal(t, attributeRow(models.AttrCleartextPassword, "p1"), stmts[2].Set)
	assert.Equal(t, CredentialAttributes, stmts[3].Relation)
	assert.Equal(t, attributeRow(models.AttrSimultaneousUse, "2"), stmts[3].Set)
	assert.Equal(t, ReplyAttributes, stmts[4].Relation)
	assert.Equal(t, attributeRow(models.AttrSessionTimeout, "3600"), stmts[4].Set)
	assert.Equal(t, GroupMembership, stmts[5].Relation)
	assert.Equal(t, groupRow("staff"), stmts[5].Set)
}

func TestCreate_DefaultActor(t *testing.T) {
	stmts, err := newTestBuilder(true).Create("bob", models.AccountFields{Password: ptr("x")})
	require.NoError(t, err)
	assert.Contains(t, stmts[1].Set, Column{"creationby", DefaultActor})
}

func TestRead_Relations(t *testing.T) {
	stmts := newTestBuilder(false).Read("alice")
	require.Len(t, stmts, 3)
	assert.Equal(t, []Relation{CredentialAttributes, ReplyAttributes, GroupMembership},
		[]Relation{stmts[0].Relation, stmts[1].Relation, stmts[2].Relation})

	stmts = newTestBuilder(true).Read("alice")
	require.Len(t, stmts, 4)
	assert.Equal(t, ProfileMetadata, stmts[3].Relation)
	for _, s := range stmts {
		assert.Equal(t, OpSelect, s.Op)
		assert.Equal(t, "alice", s.Username)
	}
}

func TestList_FallsBackToCredentials(t *testing.T) {
	assert.Equal(t, CredentialAttributes, newTestBuilder(false).List()[0].Relation)
	assert.Equal(t, ProfileMetadata, newTestBuilder(true).List()[0].Relation)
}

func TestUpdate_PartialFields(t *testing.T) {
	stmts, err := newTestBuilder(true).Update("alice", models.AccountFields{
		Profile: models.ProfileFields{Email: ptr("new@example.com")},
	})
	require.NoError(t, err)
	require.Len(t, stmts, 2)

	assert.Equal(t, OpGuardPresent, stmts[0].Op)
	assert.Equal(t, ProfileMetadata, stmts[1].Relation)
	assert.Equal(t, OpUpsert, stmts[1].Op)
	assert.Equal(t, []Column{
		{"email", "new@example.com"},
		{"updatedate", fixedNow},
		{"updateby", DefaultActor},
	}, stmts[1].Set)

	for _, s := range stmts[1:] {
		assert.NotEqual(t, CredentialAttributes, s.Relation, "password row must not be touched")
	}
}

func TestUpdate_AttributeUpserts(t *testing.T) {
	stmts, err := newTestBuilder(false).Update("alice", models.AccountFields{
		Password:       ptr("p2"),
		SessionTimeout: ptr("60"),
	})
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Equal(t, Statement{
		Relation: CredentialAttributes,
		Op:       OpUpsert,
		Username: "alice",
		Where:    []Column{{"attribute", models.AttrCleartextPassword}},
		Set:      []Column{{"value", "p2"}},
		Defaults: []Column{{"op", models.OpAssign}},
	}, stmts[1])
	assert.Equal(t, ReplyAttributes, stmts[2].Relation)
	assert.Equal(t, []Column{{"attribute", models.AttrSessionTimeout}}, stmts[2].Where)
}

func TestUpdate_Group(t *testing.T) {
	stmts, err := newTestBuilder(false).Update("alice", models.AccountFields{Group: ptr("gold")})
	require.NoError(t, err)
	require.Len(t, stmts, 3)
	assert.Equal(t, OpDelete, stmts[1].Op)
	assert.Equal(t, OpInsert, stmts[2].Op)

	stmts, err = newTestBuilder(false).Update("alice", models.AccountFields{Group: ptr("")})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, OpDelete, stmts[1].Op)
}

func TestUpdate_Invalid(t *testing.T) {
	b := newTestBuilder(false)

	_, err := b.Update("alice", models.AccountFields{})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)

	_, err = b.Update("alice", models.AccountFields{Password: ptr("")})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)

	// profile fields are not updatable without the integration
	_, err = b.Update("alice", models.AccountFields{Profile: models.ProfileFields{Email: ptr("a@b.c")}})
	assert.ErrorIs(t, err, models.ErrInvalidAccount)
}

func TestDelete_EveryRelation(t *testing.T) {
	stmts := newTestBuilder(true).Delete("alice")
	var rels []Relation
	for _, s := range stmts {
		assert.Equal(t, OpDelete, s.Op)
		assert.Empty(t, s.Where)
		rels = append(rels, s.Relation)
	}
	assert.Equal(t, []Relation{ProfileMetadata, CredentialAttributes, ReplyAttributes, GroupMembership, AccountingHistory}, rels)

	assert.Len(t, newTestBuilder(false).Delete("alice"), 4)
}

func TestActivation(t *testing.T) {
	b := newTestBuilder(false)

	deactivate := b.Activation("alice", false)
	require.Len(t, deactivate, 3)
	assert.Equal(t, OpGuardPresent, deactivate[0].Op)
	assert.Equal(t, OpDelete, deactivate[1].Op)
	assert.Equal(t, []Column{{"attribute", models.AttrAuthType}}, deactivate[1].Where)
	assert.Equal(t, OpInsert, deactivate[2].Op)
	assert.Equal(t, attributeRow(models.AttrAuthType, models.AuthTypeReject), deactivate[2].Set)

	activate := b.Activation("alice", true)
	require.Len(t, activate, 1)
	assert.Equal(t, OpDelete, activate[0].Op)
	assert.Equal(t, []Column{{"attribute", models.AttrAuthType}}, activate[0].Where)
}
