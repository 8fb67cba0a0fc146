package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"fundline/pkg/events"
)

// Evaluator compiles and runs CEL match expressions against events. Replay
// uses it for operator-supplied filters that go beyond type and time range.
type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("type", cel.StringType),
		cel.Variable("aggregate_id", cel.StringType),
		cel.Variable("timestamp", cel.TimestampType),
		cel.Variable("payload", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("metadata", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

func (e *Evaluator) ValidateExpression(expression string) error {
	_, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return nil
}

// ValidateMatchExpression additionally requires a boolean result, which is
// what a replay filter must produce.
func (e *Evaluator) ValidateMatchExpression(expression string) error {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return fmt.Errorf("match expression must return bool, got %v", ast.OutputType())
	}

	return nil
}

func (e *Evaluator) EvaluateMatch(ctx context.Context, expression string, event events.Event) (bool, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return false, fmt.Errorf("match expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("failed to create CEL program: %w", err)
	}

	vars := eventVars(event)

	result, _, err := program.ContextEval(ctx, vars)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

// CompileMatch compiles once for evaluation against many events, which is
// what a batched replay run wants.
func (e *Evaluator) CompileMatch(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile CEL expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("match expression must return bool, got %v", ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

// EvaluateCompiled runs a program from CompileMatch against one event.
func (e *Evaluator) EvaluateCompiled(ctx context.Context, program cel.Program, event events.Event) (bool, error) {
	result, _, err := program.ContextEval(ctx, eventVars(event))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate CEL expression: %w", err)
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func eventVars(event events.Event) map[string]interface{} {
	payload := event.Payload
	if payload == nil {
		payload = map[string]interface{}{}
	}
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return map[string]interface{}{
		"id":           event.ID,
		"type":         event.Type,
		"aggregate_id": event.AggregateID,
		"timestamp":    event.Timestamp,
		"payload":      payload,
		"metadata":     metadata,
	}
}
