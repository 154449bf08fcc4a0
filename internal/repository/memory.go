package repository

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/JohanU89-coder/radius-api/internal/models"
	"github.com/JohanU89-coder/radius-api/internal/rowops"
)

type row map[string]any

// MemoryAccountRepository executes row operations against in-process tables.
// It runs the API without a database; a failed unit restores the snapshot
// taken before its first statement.
type MemoryAccountRepository struct {
	mu     sync.Mutex
	tables map[rowops.Relation][]row
}

// NewMemoryAccountRepository returns an empty in-memory store.
func NewMemoryAccountRepository() *MemoryAccountRepository {
	return &MemoryAccountRepository{tables: make(map[rowops.Relation][]row)}
}

// Run executes stmts as one unit. Calls are serialised.
func (m *MemoryAccountRepository) Run(ctx context.Context, stmts []rowops.Statement) (*rowops.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.clone()
	out := &rowops.Outcome{}
	for _, s := range stmts {
		if err := m.apply(s, out); err != nil {
			m.tables = snapshot
			return nil, err
		}
	}
	return out, nil
}

func copyRow(r row) row {
	c := make(row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

func (m *MemoryAccountRepository) clone() map[rowops.Relation][]row {
	c := make(map[rowops.Relation][]row, len(m.tables))
	for rel, rows := range m.tables {
		cp := make([]row, len(rows))
		for i, r := range rows {
			cp[i] = copyRow(r)
		}
		c[rel] = cp
	}
	return c
}

func matches(r row, s rowops.Statement) bool {
	if r["username"] != s.Username {
		return false
	}
	for _, c := range s.Where {
		if r[c.Name] != c.Value {
			return false
		}
	}
	return true
}

func newRow(username string, cols ...[]rowops.Column) row {
	r := row{"username": username}
	for _, set := range cols {
		for _, c := range set {
			r[c.Name] = c.Value
		}
	}
	return r
}

func (m *MemoryAccountRepository) apply(s rowops.Statement, out *rowops.Outcome) error {
	rows := m.tables[s.Relation]

	switch s.Op {
	case rowops.OpSelect:
		for _, r := range rows {
			if matches(r, s) {
				collect(s.Relation, r, out)
			}
		}
		if s.Relation == rowops.GroupMembership {
			sortGroups(rows, s.Username, out)
		}

	case rowops.OpList:
		listAccounts(s.Relation, rows, out)

	case rowops.OpInsert:
		m.tables[s.Relation] = append(rows, newRow(s.Username, s.Set))
		out.Affected++

	case rowops.OpUpsert:
		var n int64
		for _, r := range rows {
			if matches(r, s) {
				for _, c := range s.Set {
					r[c.Name] = c.Value
				}
				n++
			}
		}
		if n == 0 {
			m.tables[s.Relation] = append(rows, newRow(s.Username, s.Where, s.Set, s.Defaults))
			n = 1
		}
		out.Affected += n

	case rowops.OpDelete:
		kept := rows[:0]
		for _, r := range rows {
			if matches(r, s) {
				out.Affected++
				continue
			}
			kept = append(kept, r)
		}
		m.tables[s.Relation] = kept

	case rowops.OpGuardAbsent, rowops.OpGuardPresent:
		exists := false
		for _, r := range rows {
			if matches(r, s) {
				exists = true
				break
			}
		}
		if s.Op == rowops.OpGuardAbsent && exists {
			return models.ErrAccountExists
		}
		if s.Op == rowops.OpGuardPresent && !exists {
			return models.ErrAccountNotFound
		}

	default:
		return fmt.Errorf("%s %s: unsupported statement", s.Op, s.Relation)
	}
	return nil
}

func str(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func timePtr(v any) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

func toAttribute(r row) models.Attribute {
	return models.Attribute{Attribute: str(r["attribute"]), Op: str(r["op"]), Value: str(r["value"])}
}

func toProfile(r row) models.Profile {
	return models.Profile{
		Username:   str(r["username"]),
		FirstName:  str(r["firstname"]),
		LastName:   str(r["lastname"]),
		Email:      str(r["email"]),
		Department: str(r["department"]),
		CreatedAt:  timePtr(r["creationdate"]),
		CreatedBy:  str(r["creationby"]),
		UpdatedAt:  timePtr(r["updatedate"]),
		UpdatedBy:  str(r["updateby"]),
	}
}

func collect(rel rowops.Relation, r row, out *rowops.Outcome) {
	switch rel {
	case rowops.CredentialAttributes:
		out.Check = append(out.Check, toAttribute(r))
	case rowops.ReplyAttributes:
		out.Reply = append(out.Reply, toAttribute(r))
	case rowops.ProfileMetadata:
		out.Profiles = append(out.Profiles, toProfile(r))
	}
}

// sortGroups fills out.Groups ordered by priority, then name.
func sortGroups(rows []row, username string, out *rowops.Outcome) {
	var member []row
	for _, r := range rows {
		if r["username"] == username {
			member = append(member, r)
		}
	}
	sort.SliceStable(member, func(i, j int) bool {
		pi, pj := priority(member[i]["priority"]), priority(member[j]["priority"])
		if pi != pj {
			return pi < pj
		}
		return str(member[i]["groupname"]) < str(member[j]["groupname"])
	})
	for _, r := range member {
		out.Groups = append(out.Groups, str(r["groupname"]))
	}
}

// priority reads a radusergroup priority as an integer. Missing or
// malformed values sort last.
func priority(v any) int {
	switch p := v.(type) {
	case int:
		return p
	case int64:
		return int(p)
	case string:
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	return math.MaxInt
}

func listAccounts(rel rowops.Relation, rows []row, out *rowops.Outcome) {
	if rel == rowops.ProfileMetadata {
		for _, r := range rows {
			out.Profiles = append(out.Profiles, toProfile(r))
		}
		sort.Slice(out.Profiles, func(i, j int) bool { return out.Profiles[i].Username < out.Profiles[j].Username })
		return
	}

	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		name := str(r["username"])
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		out.Profiles = append(out.Profiles, models.Profile{Username: name})
	}
}
