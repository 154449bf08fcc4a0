// Package rowops maps account intents onto ordered row operations over the
// FreeRADIUS SQL relations and renders them as parameterised PostgreSQL.
//
// The package performs no I/O. An executor (see internal/repository) runs
// the statements of one intent inside a single transaction.
package rowops

import (
	"fmt"
	"strings"

	"github.com/JohanU89-coder/radius-api/internal/models"
)

// Relation names a physical table an account is projected over.
type Relation string

const (
	// CredentialAttributes holds the attributes checked at authentication time.
	CredentialAttributes Relation = "radcheck"
	// ReplyAttributes holds the attributes returned to the NAS.
	ReplyAttributes Relation = "radreply"
	// GroupMembership assigns accounts to groups.
	GroupMembership Relation = "radusergroup"
	// AccountingHistory holds session records. It is only ever deleted from.
	AccountingHistory Relation = "radacct"
	// ProfileMetadata holds administrative contact data.
	ProfileMetadata Relation = "userinfo"
)

// Op is the kind of row operation a Statement performs.
type Op int

const (
	// OpSelect reads the rows of one account.
	OpSelect Op = iota
	// OpList reads one row per account.
	OpList
	// OpInsert inserts one row built from Set.
	OpInsert
	// OpUpsert updates the rows matching Where with Set, and inserts a row
	// from Where, Set and Defaults when nothing was updated.
	OpUpsert
	// OpDelete removes the rows matching Where.
	OpDelete
	// OpGuardAbsent aborts the unit with models.ErrAccountExists when a row exists.
	OpGuardAbsent
	// OpGuardPresent aborts the unit with models.ErrAccountNotFound when no row exists.
	OpGuardPresent
)

func (o Op) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpList:
		return "list"
	case OpInsert:
		return "insert"
	case OpUpsert:
		return "upsert"
	case OpDelete:
		return "delete"
	case OpGuardAbsent:
		return "guard-absent"
	case OpGuardPresent:
		return "guard-present"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Column is a column name paired with a bound value.
type Column struct {
	Name  string
	Value any
}

// Statement is one structured row operation scoped to a username.
// Where holds equality predicates ANDed with the username predicate.
type Statement struct {
	Relation Relation
	Op       Op
	Username string
	Where    []Column
	Set      []Column
	// Defaults are only written when an OpUpsert falls back to inserting.
	Defaults []Column
}

// Query is a rendered SQL statement and its bound arguments.
type Query struct {
	SQL  string
	Args []any
}

// Outcome collects what executing a statement list produced.
type Outcome struct {
	// Affected is the number of rows changed across every write in the unit.
	Affected int64
	Check    []models.Attribute
	Reply    []models.Attribute
	Groups   []string
	Profiles []models.Profile
}

const profileProjection = "username, COALESCE(firstname, '') AS firstname, COALESCE(lastname, '') AS lastname, " +
	"COALESCE(email, '') AS email, COALESCE(department, '') AS department, creationdate, " +
	"COALESCE(creationby, '') AS creationby, updatedate, COALESCE(updateby, '') AS updateby"

// relations is the single place that knows how each table is read.
var relations = map[Relation]struct {
	projection string
	order      string
}{
	CredentialAttributes: {projection: "attribute, op, value", order: "id"},
	ReplyAttributes:      {projection: "attribute, op, value", order: "id"},
	GroupMembership:      {projection: "groupname", order: "priority, groupname"},
	ProfileMetadata:      {projection: profileProjection, order: "username"},
}

// placeholders hands out $n markers and records the matching arguments.
type placeholders struct {
	args []any
}

func (p *placeholders) next(v any) string {
	p.args = append(p.args, v)
	return fmt.Sprintf("$%d", len(p.args))
}

func (s Statement) predicate(p *placeholders) string {
	parts := []string{"username = " + p.next(s.Username)}
	for _, c := range s.Where {
		parts = append(parts, c.Name+" = "+p.next(c.Value))
	}
	return strings.Join(parts, " AND ")
}

func insertQuery(rel Relation, username string, cols []Column) Query {
	p := &placeholders{}
	names := []string{"username"}
	marks := []string{p.next(username)}
	for _, c := range cols {
		names = append(names, c.Name)
		marks = append(marks, p.next(c.Value))
	}
	return Query{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			rel, strings.Join(names, ", "), strings.Join(marks, ", ")),
		Args: p.args,
	}
}

// Queries renders the statement. OpUpsert yields the UPDATE followed by the
// fallback INSERT; every other op yields a single query.
func (s Statement) Queries() []Query {
	p := &placeholders{}
	switch s.Op {
	case OpSelect:
		layout := relations[s.Relation]
		where := s.predicate(p)
		return []Query{{
			SQL:  fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", layout.projection, s.Relation, where, layout.order),
			Args: p.args,
		}}
	case OpList:
		if s.Relation == ProfileMetadata {
			return []Query{{SQL: fmt.Sprintf("SELECT %s FROM %s ORDER BY username", profileProjection, s.Relation)}}
		}
		return []Query{{SQL: fmt.Sprintf("SELECT DISTINCT username FROM %s ORDER BY username", s.Relation)}}
	case OpInsert:
		return []Query{insertQuery(s.Relation, s.Username, s.Set)}
	case OpUpsert:
		p.next(s.Username)
		assignments := make([]string, 0, len(s.Set))
		for _, c := range s.Set {
			assignments = append(assignments, c.Name+" = "+p.next(c.Value))
		}
		where := "username = $1"
		for _, c := range s.Where {
			where += " AND " + c.Name + " = " + p.next(c.Value)
		}
		update := Query{
			SQL:  fmt.Sprintf("UPDATE %s SET %s WHERE %s", s.Relation, strings.Join(assignments, ", "), where),
			Args: p.args,
		}
		cols := make([]Column, 0, len(s.Where)+len(s.Set)+len(s.Defaults))
		cols = append(cols, s.Where...)
		cols = append(cols, s.Set...)
		cols = append(cols, s.Defaults...)
		return []Query{update, insertQuery(s.Relation, s.Username, cols)}
	case OpDelete:
		where := s.predicate(p)
		return []Query{{SQL: fmt.Sprintf("DELETE FROM %s WHERE %s", s.Relation, where), Args: p.args}}
	case OpGuardAbsent, OpGuardPresent:
		where := s.predicate(p)
		return []Query{{SQL: fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE %s)", s.Relation, where), Args: p.args}}
	}
	return nil
}
