package evaluator

import (
	"context"
	"log/slog"

	"oris/internal/ast"
	"oris/internal/object"
)

// newClosure snapshots the free variables of fn. A free variable that is
// bound right now is captured by value; one that is not is recorded as
// undefined and looked up again when the closure runs.
func (e *Evaluator) newClosure(fn *ast.FunctionLiteral) *object.Closure {
	closure := &object.Closure{Function: fn}

	for _, ident := range FreeVariables(fn) {
		if value, ok := e.env.Get(ident.Value); ok {
			closure.Captured = append(closure.Captured, object.Capture{Ident: ident, Value: value})
		} else {
			closure.Undefined = append(closure.Undefined, ident)
		}
	}

	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		slog.Debug("closure created",
			slog.Int("position", fn.Pos()),
			slog.Any("captured", capturedNames(closure)),
			slog.Any("undefined", identNames(closure.Undefined)),
		)
	}

	return closure
}

// bindRecursive turns name from an undefined free variable of closure into
// its self reference.
func bindRecursive(closure *object.Closure, name *ast.Identifier) {
	for i, ident := range closure.Undefined {
		if ident.Value == name.Value {
			closure.Recursive = ident
			closure.Undefined = append(closure.Undefined[:i:i], closure.Undefined[i+1:]...)
			return
		}
	}
}

// FreeVariables lists the identifiers fn reads without binding them through
// its parameters or its own let statements, in order of first use. Nested
// function literals are not looked into: they capture for themselves when
// they are evaluated.
func FreeVariables(fn *ast.FunctionLiteral) []*ast.Identifier {
	params := make(map[string]struct{}, len(fn.Parameters))
	for _, p := range fn.Parameters {
		params[p.Value] = struct{}{}
	}

	a := &analyzer{
		scopes: []map[string]struct{}{params},
		seen:   make(map[string]struct{}),
	}
	a.walkBlock(fn.Body)

	return a.free
}

type analyzer struct {
	scopes []map[string]struct{}
	free   []*ast.Identifier
	seen   map[string]struct{}
}

func (a *analyzer) bind(ident *ast.Identifier) {
	a.scopes[len(a.scopes)-1][ident.Value] = struct{}{}
}

func (a *analyzer) access(ident *ast.Identifier) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if _, ok := a.scopes[i][ident.Value]; ok {
			return
		}
	}
	if _, ok := a.seen[ident.Value]; ok {
		return
	}
	a.seen[ident.Value] = struct{}{}
	a.free = append(a.free, ident)
}

func (a *analyzer) walkBlock(block *ast.BlockStatement) {
	if block == nil {
		return
	}

	a.scopes = append(a.scopes, make(map[string]struct{}))
	for _, stmt := range block.Statements {
		a.walkStatement(stmt)
	}
	a.scopes = a.scopes[:len(a.scopes)-1]
}

func (a *analyzer) walkStatement(stmt ast.Statement) {
	switch stmt := stmt.(type) {
	case *ast.LetStatement:
		a.walkExpression(stmt.Value)
		a.bind(stmt.Name)
	case *ast.ReturnStatement:
		if stmt.ReturnValue != nil {
			a.walkExpression(stmt.ReturnValue)
		}
	case *ast.ExpressionStatement:
		a.walkExpression(stmt.Expression)
	case *ast.BlockStatement:
		a.walkBlock(stmt)
	}
}

func (a *analyzer) walkExpression(exp ast.Expression) {
	switch exp := exp.(type) {
	case *ast.IntegerLiteral, *ast.StringLiteral, *ast.Boolean, *ast.FunctionLiteral:
	case *ast.Identifier:
		a.access(exp)
	case *ast.SeqLiteral:
		for _, el := range exp.Elements {
			a.walkExpression(el)
		}
	case *ast.MapLiteral:
		for _, entry := range exp.Entries {
			a.walkExpression(entry.Key)
			a.walkExpression(entry.Value)
		}
	case *ast.PrefixExpression:
		a.walkExpression(exp.Right)
	case *ast.InfixExpression:
		a.walkExpression(exp.Left)
		a.walkExpression(exp.Right)
	case *ast.IfExpression:
		a.walkExpression(exp.Condition)
		a.walkBlock(exp.ThenBranch)
		a.walkBlock(exp.ElseBranch)
	case *ast.CallExpression:
		a.walkExpression(exp.Function)
		for _, arg := range exp.Arguments {
			a.walkExpression(arg)
		}
	case *ast.IndexExpression:
		a.walkExpression(exp.Left)
		a.walkExpression(exp.Index)
	}
}

func capturedNames(c *object.Closure) []string {
	names := make([]string, len(c.Captured))
	for i, capture := range c.Captured {
		names[i] = capture.Ident.Value
	}
	return names
}

func identNames(idents []*ast.Identifier) []string {
	names := make([]string, len(idents))
	for i, ident := range idents {
		names[i] = ident.Value
	}
	return names
}
