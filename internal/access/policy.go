// Package access decides which snippet rows a caller may see or change.
package access

import (
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
)

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

// Subject is the caller. An empty ID is an anonymous caller.
type Subject struct {
	ID   string
	Role string
}

// Resource is the row being accessed.
type Resource struct {
	OwnerID string
	Public  bool
}

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = act, rule

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.act == p.act && eval(p.rule)
`

var defaultRules = [][]string{
	{string(ActionRead), "r.obj.Public == true"},
	{string(ActionRead), "r.sub.ID != '' && r.sub.ID == r.obj.OwnerID"},
	{string(ActionRead), "r.sub.Role == 'admin'"},
	{string(ActionWrite), "r.sub.ID != '' && r.sub.ID == r.obj.OwnerID"},
}

type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("access model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("access enforcer: %w", err)
	}
	if _, err := e.AddPolicies(defaultRules); err != nil {
		return nil, fmt.Errorf("access rules: %w", err)
	}
	return &Policy{enforcer: e}, nil
}

func (p *Policy) Allowed(sub Subject, res Resource, act Action) (bool, error) {
	return p.enforcer.Enforce(sub, res, string(act))
}

func (p *Policy) CanRead(sub Subject, res Resource) bool {
	ok, err := p.Allowed(sub, res, ActionRead)
	return err == nil && ok
}

func (p *Policy) CanWrite(sub Subject, res Resource) bool {
	ok, err := p.Allowed(sub, res, ActionWrite)
	return err == nil && ok
}
