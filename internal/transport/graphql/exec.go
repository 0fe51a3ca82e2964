package graphql

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"

	"github.com/heartmarshall/activityfeed/internal/activity/describe"
	"github.com/heartmarshall/activityfeed/internal/domain"
	"github.com/heartmarshall/activityfeed/internal/service/feed"
	"github.com/heartmarshall/activityfeed/internal/transport/graphql/resolver"
)

//go:embed schema.graphqls
var schemaSDL string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSDL})

// queryResolver is what the schema needs from the root resolver.
type queryResolver interface {
	Activity(ctx context.Context, tables []string, limit *int) (*resolver.Feed, error)
	ActivityGroups(ctx context.Context, tables []string) (*resolver.Groups, error)
}

// executableSchema resolves the feed schema field by field on gqlgen's
// runtime. The embedded interface is never set: Complexity is only called by
// the complexity limit extension, which is not installed.
type executableSchema struct {
	graphql.ExecutableSchema
	resolvers queryResolver
}

// NewExecutableSchema returns the schema served by NewHandler.
func NewExecutableSchema(r queryResolver) graphql.ExecutableSchema {
	return &executableSchema{resolvers: r}
}

func (e *executableSchema) Schema() *ast.Schema { return parsedSchema }

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	if opCtx.Operation.Operation != ast.Query {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}

	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false

		ec := executionContext{opCtx: opCtx, resolvers: e.resolvers}
		var buf bytes.Buffer
		ec.query(ctx, opCtx.Operation.SelectionSet).MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes()}
	}
}

type executionContext struct {
	opCtx     *graphql.OperationContext
	resolvers queryResolver
}

func (ec *executionContext) fieldError(ctx context.Context, field graphql.CollectedField, err error) graphql.Marshaler {
	graphql.AddError(ctx, gqlerror.WrapPath(ast.Path{ast.PathName(field.Alias)}, err))
	return graphql.Null
}

func (ec *executionContext) query(ctx context.Context, sel ast.SelectionSet) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"Query"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("Query")
		case "activity":
			args := field.ArgumentMap(ec.opCtx.Variables)
			tables, err := stringListArg(args, "tables")
			if err != nil {
				out.Values[i] = ec.fieldError(ctx, field, err)
				continue
			}
			limit, err := intArg(args, "limit")
			if err != nil {
				out.Values[i] = ec.fieldError(ctx, field, err)
				continue
			}
			res, err := ec.resolvers.Activity(ctx, tables, limit)
			if err != nil {
				out.Values[i] = ec.fieldError(ctx, field, err)
				continue
			}
			out.Values[i] = ec.activityFeed(field.Selections, res)
		case "activityGroups":
			args := field.ArgumentMap(ec.opCtx.Variables)
			tables, err := stringListArg(args, "tables")
			if err != nil {
				out.Values[i] = ec.fieldError(ctx, field, err)
				continue
			}
			res, err := ec.resolvers.ActivityGroups(ctx, tables)
			if err != nil {
				out.Values[i] = ec.fieldError(ctx, field, err)
				continue
			}
			out.Values[i] = ec.activityGroups(field.Selections, res)
		default:
			graphql.AddError(ctx, &gqlerror.Error{
				Message: fmt.Sprintf("field %s is not available", field.Name),
				Path:    ast.Path{ast.PathName(field.Alias)},
			})
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) activityFeed(sel ast.SelectionSet, f *resolver.Feed) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"ActivityFeed"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("ActivityFeed")
		case "items":
			items := make(graphql.Array, len(f.Items))
			for j := range f.Items {
				items[j] = ec.activityItem(field.Selections, f.Items[j])
			}
			out.Values[i] = items
		case "hasMore":
			out.Values[i] = graphql.MarshalBoolean(f.HasMore)
		case "limit":
			out.Values[i] = graphql.MarshalInt(f.Limit)
		case "selectedTables":
			out.Values[i] = marshalTables(f.SelectedTables)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) activityItem(sel ast.SelectionSet, it feed.Item) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"ActivityItem"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("ActivityItem")
		case "id":
			out.Values[i] = graphql.MarshalID(it.ID)
		case "table":
			out.Values[i] = graphql.MarshalString(it.Table)
		case "operation":
			out.Values[i] = graphql.MarshalString(string(it.Operation))
		case "icon":
			out.Values[i] = graphql.MarshalString(it.IconKey)
		case "colorClass":
			out.Values[i] = graphql.MarshalString(it.ColorClass)
		case "actor":
			out.Values[i] = graphql.MarshalString(it.ActorDisplay)
		case "timestamp":
			if it.Timestamp.IsZero() {
				out.Values[i] = graphql.Null
			} else {
				out.Values[i] = graphql.MarshalString(it.Timestamp.UTC().Format(time.RFC3339))
			}
		case "extraDetail":
			out.Values[i] = optionalString(it.ExtraDetail)
		case "text":
			out.Values[i] = graphql.MarshalString(it.Description.Sentence.String())
		case "sentence":
			out.Values[i] = ec.segments(field.Selections, it.Description.Sentence)
		case "connection":
			out.Values[i] = ec.segments(field.Selections, it.Description.Connection)
		case "detail":
			out.Values[i] = optionalString(it.Description.Detail)
		case "changes":
			changes := make(graphql.Array, len(it.Description.Changes))
			for j, c := range it.Description.Changes {
				changes[j] = ec.changeField(field.Selections, c)
			}
			out.Values[i] = changes
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) segments(sel ast.SelectionSet, t describe.Template) graphql.Marshaler {
	list := make(graphql.Array, len(t))
	for j, seg := range t {
		fields := graphql.CollectFields(ec.opCtx, sel, []string{"Segment"})
		out := graphql.NewFieldSet(fields)
		for i, field := range fields {
			switch field.Name {
			case "__typename":
				out.Values[i] = graphql.MarshalString("Segment")
			case "kind":
				out.Values[i] = graphql.MarshalString(string(seg.Kind))
			case "text":
				out.Values[i] = graphql.MarshalString(seg.Text)
			case "path":
				if seg.Link == nil {
					out.Values[i] = graphql.Null
				} else {
					out.Values[i] = graphql.MarshalString(seg.Link.Path)
				}
			default:
				out.Values[i] = graphql.Null
			}
		}
		list[j] = out
	}
	return list
}

func (ec *executionContext) changeField(sel ast.SelectionSet, c domain.ChangeField) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"ChangeField"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("ChangeField")
		case "field":
			out.Values[i] = graphql.MarshalString(c.Field)
		case "oldValue":
			out.Values[i] = graphql.MarshalString(c.OldValue)
		case "newValue":
			out.Values[i] = graphql.MarshalString(c.NewValue)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) activityGroups(sel ast.SelectionSet, g *resolver.Groups) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"ActivityGroups"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("ActivityGroups")
		case "groups":
			groups := make(graphql.Array, len(g.Groups))
			for j, gv := range g.Groups {
				groups[j] = ec.activityGroup(field.Selections, gv)
			}
			out.Values[i] = groups
		case "selectedTables":
			out.Values[i] = marshalTables(g.SelectedTables)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func (ec *executionContext) activityGroup(sel ast.SelectionSet, g feed.GroupView) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"ActivityGroup"})
	out := graphql.NewFieldSet(fields)
	for i, field := range fields {
		switch field.Name {
		case "__typename":
			out.Values[i] = graphql.MarshalString("ActivityGroup")
		case "name":
			out.Values[i] = graphql.MarshalString(g.Name)
		case "state":
			out.Values[i] = graphql.MarshalString(strings.ToUpper(string(g.State)))
		case "tables":
			out.Values[i] = marshalTables(g.Tables)
		default:
			out.Values[i] = graphql.Null
		}
	}
	return out
}

func marshalTables(tables []domain.EntityKind) graphql.Marshaler {
	out := make(graphql.Array, len(tables))
	for i, t := range tables {
		out[i] = graphql.MarshalString(string(t))
	}
	return out
}

func optionalString(s string) graphql.Marshaler {
	if s == "" {
		return graphql.Null
	}
	return graphql.MarshalString(s)
}

// stringListArg returns nil when the argument is absent or null, and a
// non-nil slice for an explicit list.
func stringListArg(args map[string]any, name string) ([]string, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, domain.NewValidationError(name, "must be a list of strings")
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		s, ok := v.(string)
		if !ok {
			return nil, domain.NewValidationError(name, "must be a list of strings")
		}
		out = append(out, s)
	}
	return out, nil
}

// intArg accepts the integer shapes literals and decoded variables arrive in.
func intArg(args map[string]any, name string) (*int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return nil, nil
	}
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, domain.NewValidationError(name, "must be an integer")
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, domain.NewValidationError(name, "must be an integer")
		}
		n = i
	case string:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, domain.NewValidationError(name, "must be an integer")
		}
		n = i
	default:
		return nil, domain.NewValidationError(name, "must be an integer")
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, domain.NewValidationError(name, "out of range")
	}
	i := int(n)
	return &i, nil
}
