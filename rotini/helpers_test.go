//nolint:testpackage // using package name 'rotini' to access unexported fields for testing
package rotini

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	rotiniio "github.com/matthewgetz/rotini-sub000/io"
)

// pizzaDefinition is the program most tests run against:
//
//	pizza order <amount> pizza [--type] [--topping]... [--size]
//	pizza list --status
//	pizza delete <ids>...      (force)
//	pizza batch <items>... run
//	pizza legacy               (deprecated)
func pizzaDefinition() ProgramDefinition {
	return ProgramDefinition{
		Name:        "pizza",
		Description: "Order and manage pizzas",
		Version:     "1.2.3",
		GlobalFlags: []FlagDefinition{
			{Name: "verbose", Description: "log more", ShortKey: "V", LongKey: "verbose"},
		},
		Commands: []CommandDefinition{
			{
				Name:        "order",
				Description: "Order food",
				Aliases:     []string{"o"},
				Arguments: []ArgumentDefinition{
					{Name: "amount", Description: "how many", Type: TypeNumber},
				},
				Commands: []CommandDefinition{
					{
						Name:        "pizza",
						Description: "Order pizza",
						Examples:    []string{"pizza order 3 pizza --type veggie"},
						Flags: []FlagDefinition{
							{
								Name: "type", Description: "pizza type", Variant: FlagValue,
								ShortKey: "t", LongKey: "type",
								Values: []any{"cheese", "pepperoni", "veggie"}, Default: "cheese",
							},
							{Name: "topping", Description: "extra topping", Variant: FlagVariadic, LongKey: "topping"},
							{Name: "size", Description: "size in inches", Variant: FlagValue, Type: TypeNumber, LongKey: "size"},
						},
						Operation: &OperationDefinition{Handler: orderHandler},
					},
				},
			},
			{
				Name:        "list",
				Description: "List orders",
				Flags: []FlagDefinition{
					{Name: "status", Description: "order status", Variant: FlagValue, LongKey: "status", Required: true},
				},
				Operation: &OperationDefinition{Handler: func(_ context.Context, in *Input) (any, error) {
					return in.Leaf().Flags, nil
				}},
			},
			{
				Name:        "delete",
				Description: "Delete orders",
				Force:       true,
				Arguments: []ArgumentDefinition{
					{Name: "ids", Description: "order ids", Variant: ArgumentVariadic, Type: TypeNumberArray},
				},
				Operation: &OperationDefinition{Handler: func(_ context.Context, in *Input) (any, error) {
					return fmt.Sprintf("deleted %v", in.Leaf().Arguments["ids"]), nil
				}},
			},
			{
				Name:        "batch",
				Description: "Queue items",
				Arguments: []ArgumentDefinition{
					{Name: "items", Description: "items to queue", Variant: ArgumentVariadic},
				},
				Commands: []CommandDefinition{
					{Name: "run", Description: "Run the batch"},
				},
			},
			{
				Name:        "legacy",
				Description: "Old command",
				Deprecated:  true,
				Operation: &OperationDefinition{Handler: func(context.Context, *Input) (any, error) {
					return "legacy ran", nil
				}},
			},
		},
	}
}

func orderHandler(_ context.Context, in *Input) (any, error) {
	order, _ := in.Command("order")
	pizza := in.Leaf()
	return fmt.Sprintf("%v %v", order.Arguments["amount"], pizza.Flags["type"]), nil
}

type testIO struct {
	out *bytes.Buffer
	err *bytes.Buffer
	io  *rotiniio.IOManager
}

func newTestIO(input string) *testIO {
	out, errb := &bytes.Buffer{}, &bytes.Buffer{}
	return &testIO{
		out: out,
		err: errb,
		io:  rotiniio.New().WithIn(strings.NewReader(input)).WithOut(out).WithErr(errb).NoColor(),
	}
}

func newPizza(t *testing.T, opts ...Option) (*Program, *testIO) {
	t.Helper()
	tio := newTestIO("")
	p, err := New(pizzaDefinition(), append([]Option{WithIO(tio.io)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p, tio
}
