package auth

import (
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
)

// Objects and actions checked through the Authorizer.
const (
	ObjTracking  = "tracking"
	ObjNotice    = "notice"
	ObjAnalytics = "analytics"

	ActRead   = "read"
	ActList   = "list"
	ActDelete = "delete"
)

const rbacModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act`

// Policy decides role-level permissions. Ownership checks stay in the services.
type Policy interface {
	Can(role, obj, act string) bool
}

// Authorizer is a casbin-backed Policy.
type Authorizer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewAuthorizer builds the enforcer. Every privileged role may read any tracking
// page, list or delete any author's notices and read global analytics;
// "academic" authors may list and read analytics too.
func NewAuthorizer(privilegedRoles []string) (*Authorizer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("rbac model: %w", err)
	}

	var lines []string
	seen := make(map[string]bool)
	allow := func(role, obj, act string) {
		line := fmt.Sprintf("p, %s, %s, %s", role, obj, act)
		if !seen[line] {
			seen[line] = true
			lines = append(lines, line)
		}
	}
	for _, role := range privilegedRoles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		allow(role, ObjTracking, ActRead)
		allow(role, ObjNotice, ActList)
		allow(role, ObjNotice, ActDelete)
		allow(role, ObjAnalytics, ActRead)
	}
	allow("academic", ObjAnalytics, ActRead)
	allow("academic", ObjNotice, ActList)

	enforcer, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(strings.Join(lines, "\n")))
	if err != nil {
		return nil, fmt.Errorf("rbac enforcer: %w", err)
	}
	return &Authorizer{enforcer: enforcer}, nil
}

func (a *Authorizer) Can(role, obj, act string) bool {
	if role == "" {
		return false
	}
	ok, err := a.enforcer.Enforce(role, obj, act)
	return err == nil && ok
}
