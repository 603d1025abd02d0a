package condition

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Rule is a single field comparison in a listing filter
type Rule struct {
	Field    string      `json:"field" bson:"field"`
	Operator string      `json:"operator" bson:"operator"`
	Value    interface{} `json:"value" bson:"value"`
}

// Group combines rules and nested groups with AND/OR
type Group struct {
	Operator string  `json:"operator" bson:"operator"` // "AND" | "OR"
	Rules    []Rule  `json:"rules" bson:"rules"`
	Groups   []Group `json:"groups,omitempty" bson:"groups,omitempty"`
}

// Compiler translates listing filters into Mongo queries. Context supplies
// values for $-prefixed variables (e.g. "$now", "$user.id").
type Compiler struct {
	Context map[string]interface{}
}

func NewCompiler(ctx map[string]interface{}) *Compiler {
	return &Compiler{Context: ctx}
}

func (c *Compiler) Compile(group *Group) (bson.M, error) {
	if group == nil {
		return bson.M{}, nil
	}

	var conditions []bson.M

	for _, rule := range group.Rules {
		cond, err := c.compileRule(rule)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}

	for _, subGroup := range group.Groups {
		cond, err := c.Compile(&subGroup)
		if err != nil {
			return nil, err
		}
		if len(cond) > 0 {
			conditions = append(conditions, cond)
		}
	}

	if len(conditions) == 0 {
		return bson.M{}, nil
	}

	op := "$and"
	if strings.ToUpper(group.Operator) == "OR" {
		op = "$or"
	}

	return bson.M{op: conditions}, nil
}

func (c *Compiler) compileRule(rule Rule) (bson.M, error) {
	val, err := c.resolveValue(rule.Value)
	if err != nil {
		return nil, err
	}

	field := rule.Field

	switch rule.Operator {
	case "eq":
		return bson.M{field: bson.M{"$eq": val}}, nil
	case "ne":
		return bson.M{field: bson.M{"$ne": val}}, nil
	case "gt":
		return bson.M{field: bson.M{"$gt": val}}, nil
	case "lt":
		return bson.M{field: bson.M{"$lt": val}}, nil
	case "gte":
		return bson.M{field: bson.M{"$gte": val}}, nil
	case "lte":
		return bson.M{field: bson.M{"$lte": val}}, nil
	case "in":
		return bson.M{field: bson.M{"$in": val}}, nil
	case "nin":
		return bson.M{field: bson.M{"$nin": val}}, nil
	case "contains":
		if strVal, ok := val.(string); ok {
			return bson.M{field: bson.M{"$regex": primitive.Regex{Pattern: strVal, Options: "i"}}}, nil
		}
		return nil, fmt.Errorf("contains operator requires string value")
	case "startsWith", "starts_with":
		if strVal, ok := val.(string); ok {
			return bson.M{field: bson.M{"$regex": primitive.Regex{Pattern: "^" + strVal, Options: "i"}}}, nil
		}
		return nil, fmt.Errorf("startsWith operator requires string value")
	default:
		return nil, fmt.Errorf("unknown operator: %s", rule.Operator)
	}
}

func (c *Compiler) resolveValue(val interface{}) (interface{}, error) {
	strVal, ok := val.(string)
	if !ok {
		return val, nil
	}

	if strings.HasPrefix(strVal, "$") {
		key := strings.TrimPrefix(strVal, "$")

		if key == "now" {
			return time.Now(), nil
		}

		if resolved, ok := c.Context[key]; ok {
			return resolved, nil
		}
		return nil, fmt.Errorf("variable not found in context: %s", key)
	}

	return val, nil
}
