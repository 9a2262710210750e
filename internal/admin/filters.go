package admin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/crucial707/auditlog-admin/internal/models"
	"github.com/crucial707/auditlog-admin/internal/repo"
)

// Choice is one selectable filter value.
type Choice struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// FilterSpec is a filter as shown next to the changelist.
type FilterSpec struct {
	Title     string   `json:"title"`
	Parameter string   `json:"parameter"`
	Choices   []Choice `json:"choices"`
}

// ListFilter narrows the changelist by one query parameter.
type ListFilter interface {
	Title() string
	ParameterName() string
	Lookups(ctx context.Context, req *Request) ([]Choice, error)
	// Queryset applies the request's parameter value, if any, to q.
	Queryset(req *Request, q *repo.LogEntryQuery) error
}

// BadLookupError is returned when a filter parameter has an unusable value.
type BadLookupError struct {
	Parameter string
	Value     string
}

func (e *BadLookupError) Error() string {
	return fmt.Sprintf("invalid value %q for filter %q", e.Value, e.Parameter)
}

func param(req *Request, name string) string {
	if req == nil || req.Query == nil {
		return ""
	}
	return req.Query.Get(name)
}

func markSelected(choices []Choice, value string) []Choice {
	for i := range choices {
		choices[i].Selected = value != "" && choices[i].Value == value
	}
	return choices
}

// ActionFilter filters on the action field.
type ActionFilter struct{}

func (ActionFilter) Title() string         { return "Action" }
func (ActionFilter) ParameterName() string { return "action" }

func (f ActionFilter) Lookups(_ context.Context, req *Request) ([]Choice, error) {
	choices := make([]Choice, 0, len(models.Actions))
	for _, a := range models.Actions {
		choices = append(choices, Choice{Value: a.String(), Label: a.String()})
	}
	return markSelected(choices, param(req, f.ParameterName())), nil
}

func (f ActionFilter) Queryset(req *Request, q *repo.LogEntryQuery) error {
	v := param(req, f.ParameterName())
	if v == "" {
		return nil
	}
	a, err := models.ParseAction(v)
	if err != nil {
		return &BadLookupError{Parameter: f.ParameterName(), Value: v}
	}
	q.Action = &a
	return nil
}

// ResourceTypeLister returns the content types that have entries.
type ResourceTypeLister interface {
	ResourceTypes(ctx context.Context) ([]repo.ResourceType, error)
}

const resourceTypesKey = "resource_types"

// ResourceTypeFilter filters on the entry's content type. Its choices are the
// content types that actually have entries, cached for TTL.
type ResourceTypeFilter struct {
	Store ResourceTypeLister
	TTL   time.Duration

	cache *cache.Cache[string, []repo.ResourceType]
}

func NewResourceTypeFilter(store ResourceTypeLister, ttl time.Duration) *ResourceTypeFilter {
	return &ResourceTypeFilter{
		Store: store,
		TTL:   ttl,
		cache: cache.New[string, []repo.ResourceType](),
	}
}

func (*ResourceTypeFilter) Title() string         { return "Resource Type" }
func (*ResourceTypeFilter) ParameterName() string { return "resource_type" }

func (f *ResourceTypeFilter) Lookups(ctx context.Context, req *Request) ([]Choice, error) {
	types, ok := f.cache.Get(resourceTypesKey)
	if !ok {
		var err error
		types, err = f.Store.ResourceTypes(ctx)
		if err != nil {
			return nil, err
		}
		if f.TTL > 0 {
			f.cache.Set(resourceTypesKey, types, cache.WithExpiration(f.TTL))
		}
	}
	choices := make([]Choice, 0, len(types))
	for _, t := range types {
		choices = append(choices, Choice{Value: strconv.Itoa(t.ContentTypeID), Label: t.Model})
	}
	return markSelected(choices, param(req, f.ParameterName())), nil
}

func (f *ResourceTypeFilter) Queryset(req *Request, q *repo.LogEntryQuery) error {
	v := param(req, f.ParameterName())
	if v == "" {
		return nil
	}
	id, err := strconv.Atoi(v)
	if err != nil {
		return &BadLookupError{Parameter: f.ParameterName(), Value: v}
	}
	q.ContentTypeID = &id
	return nil
}

// Invalidate drops cached choices, e.g. after a cascade delete.
func (f *ResourceTypeFilter) Invalidate() {
	f.cache.Delete(resourceTypesKey)
}
