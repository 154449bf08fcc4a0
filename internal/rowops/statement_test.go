package rowops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JohanU89-coder/radius-api/internal/models"
)

func TestQueries_Insert(t *testing.T) {
	s := Statement{
		Relation: CredentialAttributes,
		Op:       OpInsert,
		Username: "alice",
		Set:      attributeRow(models.AttrCleartextPassword, "p1"),
	}
	q := s.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, "INSERT INTO radcheck (username, attribute, op, value) VALUES ($1, $2, $3, $4)", q[0].SQL)
	assert.Equal(t, []any{"alice", "Cleartext-Password", ":=", "p1"}, q[0].Args)
}

func TestQueries_Select(t *testing.T) {
	q := Statement{Relation: ReplyAttributes, Op: OpSelect, Username: "alice"}.Queries()
	require.Len(t, q, 1)
	assert.Equal(t, "SELECT attribute, op, value FROM radreply WHERE username = $1 ORDER BY id", q[0].SQL)
	assert.Equal(t, []any{"alice"}, q[0].Args)
}

func TestQueries_List(t *testing.T) {
	q := Statement{Relation: CredentialAttributes, Op: OpList}.Queries()
	assert.Equal(t, "SELECT DISTINCT username FROM radcheck ORDER BY username", q[0].SQL)
	assert.Empty(t, q[0].Args)

	q = Statement{Relation: ProfileMetadata, Op: OpList}.Queries()
	assert.Contains(t, q[0].SQL, "FROM userinfo ORDER BY username")
	assert.Contains(t, q[0].SQL, "COALESCE(email, '') AS email")
}

func TestQueries_Upsert(t *testing.T) {
	s := Statement{
		Relation: CredentialAttributes,
		Op:       OpUpsert,
		Username: "alice",
		Where:    []Column{{"attribute", models.AttrSimultaneousUse}},
		Set:      []Column{{"value", "3"}},
		Defaults: []Column{{"op", models.OpAssign}},
	}
	q := s.Queries()
	require.Len(t, q, 2)
	assert.Equal(t, "UPDATE radcheck SET value = $2 WHERE username = $1 AND attribute = $3", q[0].SQL)
	assert.Equal(t, []any{"alice", "3", "Simultaneous-Use"}, q[0].Args)
	assert.Equal(t, "INSERT INTO radcheck (username, attribute, value, op) VALUES ($1, $2, $3, $4)", q[1].SQL)
	assert.Equal(t, []any{"alice", "Simultaneous-Use", "3", ":="}, q[1].Args)
}

func TestQueries_DeleteAndGuards(t *testing.T) {
	q := Statement{
		Relation: CredentialAttributes,
		Op:       OpDelete,
		Username: "alice",
		Where:    []Column{{"attribute", models.AttrAuthType}},
	}.Queries()
	assert.Equal(t, "DELETE FROM radcheck WHERE username = $1 AND attribute = $2", q[0].SQL)
	assert.Equal(t, []any{"alice", "Auth-Type"}, q[0].Args)

	q = Statement{Relation: AccountingHistory, Op: OpDelete, Username: "alice"}.Queries()
	assert.Equal(t, "DELETE FROM radacct WHERE username = $1", q[0].SQL)

	q = Statement{Relation: CredentialAttributes, Op: OpGuardAbsent, Username: "alice"}.Queries()
	assert.Equal(t, "SELECT EXISTS(SELECT 1 FROM radcheck WHERE username = $1)", q[0].SQL)
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "upsert", OpUpsert.String())
	assert.Equal(t, "op(42)", Op(42).String())
}
