package condition

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCompileNilGroup(t *testing.T) {
	filter, err := NewCompiler(nil).Compile(nil)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(filter) != 0 {
		t.Fatalf("nil group must compile to empty filter, got %v", filter)
	}
}

func TestCompileAndGroup(t *testing.T) {
	group := &Group{
		Operator: "AND",
		Rules: []Rule{
			{Field: "status", Operator: "eq", Value: "pending"},
			{Field: "object_type", Operator: "eq", Value: "invoice"},
		},
	}

	filter, err := NewCompiler(nil).Compile(group)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	conds, ok := filter["$and"].([]bson.M)
	if !ok || len(conds) != 2 {
		t.Fatalf("expected $and with 2 conditions, got %v", filter)
	}
	if eq := conds[0]["status"].(bson.M)["$eq"]; eq != "pending" {
		t.Fatalf("wrong first condition: %v", conds[0])
	}
}

func TestCompileNestedOrGroup(t *testing.T) {
	group := &Group{
		Operator: "AND",
		Rules: []Rule{
			{Field: "object_type", Operator: "eq", Value: "invoice"},
		},
		Groups: []Group{
			{
				Operator: "OR",
				Rules: []Rule{
					{Field: "status", Operator: "eq", Value: "approved"},
					{Field: "status", Operator: "eq", Value: "rejected"},
				},
			},
		},
	}

	filter, err := NewCompiler(nil).Compile(group)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	conds := filter["$and"].([]bson.M)
	if len(conds) != 2 {
		t.Fatalf("expected 2 top-level conditions, got %v", filter)
	}
	if _, ok := conds[1]["$or"]; !ok {
		t.Fatalf("nested group must compile to $or, got %v", conds[1])
	}
}

func TestCompileUnknownOperator(t *testing.T) {
	group := &Group{
		Rules: []Rule{{Field: "status", Operator: "like", Value: "pend"}},
	}

	if _, err := NewCompiler(nil).Compile(group); err == nil {
		t.Fatal("expected unknown-operator error")
	}
}

func TestResolveNowVariable(t *testing.T) {
	group := &Group{
		Rules: []Rule{{Field: "created_at", Operator: "lt", Value: "$now"}},
	}

	before := time.Now()
	filter, err := NewCompiler(nil).Compile(group)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	conds := filter["$and"].([]bson.M)
	resolved, ok := conds[0]["created_at"].(bson.M)["$lt"].(time.Time)
	if !ok {
		t.Fatalf("$now must resolve to a time.Time, got %v", conds[0])
	}
	if resolved.Before(before.Add(-time.Minute)) || resolved.After(time.Now().Add(time.Minute)) {
		t.Fatalf("$now resolved implausibly: %v", resolved)
	}
}

func TestResolveContextVariable(t *testing.T) {
	compiler := NewCompiler(map[string]interface{}{"user.id": "u42"})
	group := &Group{
		Rules: []Rule{{Field: "signatures.user_id", Operator: "eq", Value: "$user.id"}},
	}

	filter, err := compiler.Compile(group)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	conds := filter["$and"].([]bson.M)
	if got := conds[0]["signatures.user_id"].(bson.M)["$eq"]; got != "u42" {
		t.Fatalf("context variable not resolved, got %v", got)
	}
}
