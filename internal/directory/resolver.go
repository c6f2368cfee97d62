package directory

import (
	"context"
)

// Resolver maps user IDs to principals, preferring students over employees.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

func (r *Resolver) Resolve(ctx context.Context, id string) (Principal, error) {
	m, err := r.ResolveMany(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return m[id], nil
}

// ResolveMany returns a principal for every requested ID. IDs found in
// neither collection map to Unresolved.
func (r *Resolver) ResolveMany(ctx context.Context, ids []string) (map[string]Principal, error) {
	out := make(map[string]Principal, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	students, err := r.repo.FindStudents(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range students {
		out[s.ID.Hex()] = s
	}

	var rest []string
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			rest = append(rest, id)
		}
	}
	if len(rest) > 0 {
		employees, err := r.repo.FindEmployees(ctx, rest)
		if err != nil {
			return nil, err
		}
		for _, e := range employees {
			out[e.ID.Hex()] = e
		}
	}

	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = Unresolved{ID: id}
		}
	}
	return out, nil
}

func (r *Resolver) Approvers(ctx context.Context) ([]*Employee, error) {
	return r.repo.ListApprovers(ctx)
}
