package query

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/apidex/internal/storage"
	"github.com/dshills/apidex/pkg/types"
)

// ParseRelations parses a comma-separated relation list. An empty string
// selects all relations.
func ParseRelations(s string) ([]Relation, error) {
	var relations []Relation
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		r := Relation(part)
		if !slices.Contains(AllRelations, r) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, part)
		}
		if !slices.Contains(relations, r) {
			relations = append(relations, r)
		}
	}
	if len(relations) == 0 {
		return AllRelations, nil
	}
	return relations, nil
}

// GetRelated collects entities related to a class or function. Classes are
// looked up first.
//
// For a class: inheritance gives subclasses, bases and the first methods;
// module gives other classes of the same module; similar gives classes whose
// name contains this one's. For a function: inheritance gives the owning
// class of a method; module gives sibling methods or sibling module-level
// functions; similar gives functions whose name contains this one's.
func (s *Service) GetRelated(ctx context.Context, entity string, relations []Relation) (*Related, error) {
	if len(relations) == 0 {
		relations = AllRelations
	}

	class, _, err := s.resolveClass(ctx, entity)
	switch {
	case err == nil:
		return s.relatedToClass(ctx, class, relations)
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	fn, _, err := s.resolveFunction(ctx, entity)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("entity %q: %w", strings.TrimSpace(entity), storage.ErrNotFound)
		}
		return nil, err
	}
	return s.relatedToFunction(ctx, fn, relations)
}

func (s *Service) relatedToClass(ctx context.Context, class *storage.Class, relations []Relation) (*Related, error) {
	related := &Related{Entity: class.FullQualifiedName, Type: types.EntityClass}

	if slices.Contains(relations, RelationInheritance) {
		subclasses, err := s.store.ListSubclasses(ctx, []string{class.Name, class.FullQualifiedName})
		if err != nil {
			return nil, err
		}
		for _, c := range subclasses {
			if c.ID != class.ID {
				related.Subclasses = append(related.Subclasses, c.FullQualifiedName)
			}
		}

		if related.Bases, err = s.store.ListBases(ctx, class.ID); err != nil {
			return nil, err
		}

		methods, err := s.store.ListMethods(ctx, class.ID)
		if err != nil {
			return nil, err
		}
		for _, m := range methods[:min(len(methods), relatedLimit)] {
			related.Methods = append(related.Methods, m.Name)
		}
	}

	if slices.Contains(relations, RelationModule) {
		siblings, err := s.store.ListClasses(ctx, storage.ListFilter{Module: class.ModuleName})
		if err != nil {
			return nil, err
		}
		for _, c := range siblings {
			// The filter is a substring match, keep the exact module only
			if c.ModuleName == class.ModuleName && c.ID != class.ID && len(related.Siblings) < relatedLimit {
				related.Siblings = append(related.Siblings, c.FullQualifiedName)
			}
		}
	}

	if slices.Contains(relations, RelationSimilar) {
		similar, err := s.store.ListClasses(ctx, storage.ListFilter{Name: class.Name, Limit: relatedLimit + 1})
		if err != nil {
			return nil, err
		}
		for _, c := range similar {
			if c.ID != class.ID && len(related.Similar) < relatedLimit {
				related.Similar = append(related.Similar, c.FullQualifiedName)
			}
		}
	}
	return related, nil
}

func (s *Service) relatedToFunction(ctx context.Context, fn *storage.Function, relations []Relation) (*Related, error) {
	related := &Related{Entity: fn.FullQualifiedName, Type: types.EntityFunction}

	if fn.IsMethod() && slices.Contains(relations, RelationInheritance) {
		related.Class = strings.TrimSuffix(fn.FullQualifiedName, "."+fn.Name)
	}

	if slices.Contains(relations, RelationModule) {
		var siblings []*storage.Function
		var err error
		if fn.IsMethod() {
			siblings, err = s.store.ListMethods(ctx, *fn.ClassID)
		} else {
			siblings, err = s.store.ListFunctions(ctx, storage.ListFilter{Module: fn.ModuleName})
		}
		if err != nil {
			return nil, err
		}
		for _, f := range siblings {
			if f.ModuleName == fn.ModuleName && f.ID != fn.ID && len(related.Siblings) < relatedLimit {
				related.Siblings = append(related.Siblings, f.FullQualifiedName)
			}
		}
	}

	if slices.Contains(relations, RelationSimilar) {
		similar, err := s.store.ListFunctions(ctx, storage.ListFilter{
			Name:           fn.Name,
			IncludeMethods: true,
			Limit:          relatedLimit + 1,
		})
		if err != nil {
			return nil, err
		}
		for _, f := range similar {
			if f.ID != fn.ID && len(related.Similar) < relatedLimit {
				related.Similar = append(related.Similar, f.FullQualifiedName)
			}
		}
	}
	return related, nil
}
