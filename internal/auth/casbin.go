package auth

import (
	_ "embed"
	"fmt"
	"log/slog"
	"slices"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var casbinModelContent string

// Policy answers "may a caller holding these roles perform this operation".
// It is built once from Operation declarations and is safe for concurrent use.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
	ops      map[string]Operation
}

// NewPolicy loads one Casbin policy line per (role, operation) pair.
func NewPolicy(ops ...Operation) (*Policy, error) {
	m, err := model.NewModelFromString(casbinModelContent)
	if err != nil {
		return nil, fmt.Errorf("parse casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	p := &Policy{enforcer: enforcer, ops: make(map[string]Operation, len(ops))}
	for _, op := range ops {
		if op.Name == "" {
			return nil, fmt.Errorf("operation name is required")
		}
		if _, dup := p.ops[op.Name]; dup {
			return nil, fmt.Errorf("operation %q declared twice", op.Name)
		}
		for _, r := range op.RequiredRoles {
			if !r.Valid() {
				return nil, fmt.Errorf("operation %q: unknown role %q", op.Name, r)
			}
			if _, err := enforcer.AddPolicy(RoleID(r), op.Name); err != nil {
				return nil, fmt.Errorf("add policy %s/%s: %w", r, op.Name, err)
			}
		}
		op.RequiredRoles = slices.Clone(op.RequiredRoles)
		p.ops[op.Name] = op
	}
	return p, nil
}

// Allows reports whether any of held is permitted to perform op. Unknown
// operations and empty role lists are denied.
func (p *Policy) Allows(held []Role, op string) bool {
	if _, ok := p.ops[op]; !ok {
		return false
	}
	for _, r := range held {
		ok, err := p.enforcer.Enforce(RoleID(r), op)
		if err != nil {
			slog.Error("casbin enforce failed", "role", r, "operation", op, "error", err)
			return false
		}
		if ok {
			return true
		}
	}
	return false
}

// Operation returns the declaration for name.
func (p *Policy) Operation(name string) (Operation, bool) {
	op, ok := p.ops[name]
	if !ok {
		return Operation{}, false
	}
	op.RequiredRoles = slices.Clone(op.RequiredRoles)
	return op, true
}
