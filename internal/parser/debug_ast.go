package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strings"

	"oris/internal/ast"
)

// WalkAST recursively traverses an AST and serializes it into a map structure for JSON output.
// Keys carry a numeric prefix so the encoder keeps them in reading order.
func WalkAST(node ast.Node) interface{} {
	if isNil(node) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Program:
		return map[string]interface{}{
			"0.type":       "Program",
			"1.statements": walkStatements(n.Statements),
		}

	case *ast.LetStatement:
		return map[string]interface{}{
			"0.type":     "LetStatement",
			"1.position": n.Pos(),
			"2.name":     n.Name.Value,
			"3.value":    WalkAST(n.Value),
		}

	case *ast.ReturnStatement:
		return map[string]interface{}{
			"0.type":        "ReturnStatement",
			"1.position":    n.Pos(),
			"2.returnValue": walkExpression(n.ReturnValue),
		}

	case *ast.ExpressionStatement:
		return map[string]interface{}{
			"0.type":       "ExpressionStatement",
			"1.position":   n.Pos(),
			"2.expression": WalkAST(n.Expression),
		}

	case *ast.BlockStatement:
		return map[string]interface{}{
			"0.type":       "BlockStatement",
			"1.position":   n.Pos(),
			"2.statements": walkStatements(n.Statements),
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"0.type":     "Identifier",
			"1.position": n.Pos(),
			"2.value":    n.Value,
		}

	case *ast.IntegerLiteral:
		return map[string]interface{}{
			"0.type":     "IntegerLiteral",
			"1.position": n.Pos(),
			"2.value":    n.Value,
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"0.type":     "StringLiteral",
			"1.position": n.Pos(),
			"2.value":    n.Value,
		}

	case *ast.Boolean:
		return map[string]interface{}{
			"0.type":     "Boolean",
			"1.position": n.Pos(),
			"2.value":    n.Value,
		}

	case *ast.PrefixExpression:
		return map[string]interface{}{
			"0.type":     "PrefixExpression",
			"1.position": n.Pos(),
			"2.operator": n.Operator,
			"3.right":    WalkAST(n.Right),
		}

	case *ast.InfixExpression:
		return map[string]interface{}{
			"0.type":     "InfixExpression",
			"1.position": n.Pos(),
			"2.left":     WalkAST(n.Left),
			"3.operator": n.Operator,
			"4.right":    WalkAST(n.Right),
		}

	case *ast.IfExpression:
		return map[string]interface{}{
			"0.type":       "IfExpression",
			"1.position":   n.Pos(),
			"2.condition":  WalkAST(n.Condition),
			"3.thenBranch": WalkAST(n.ThenBranch),
			"4.elseBranch": WalkAST(n.ElseBranch),
		}

	case *ast.FunctionLiteral:
		params := make([]interface{}, len(n.Parameters))
		for i, p := range n.Parameters {
			params[i] = WalkAST(p)
		}
		return map[string]interface{}{
			"0.type":       "FunctionLiteral",
			"1.position":   n.Pos(),
			"2.parameters": params,
			"3.body":       WalkAST(n.Body),
		}

	case *ast.CallExpression:
		return map[string]interface{}{
			"0.type":      "CallExpression",
			"1.position":  n.Pos(),
			"2.function":  WalkAST(n.Function),
			"3.arguments": walkExpressions(n.Arguments),
		}

	case *ast.IndexExpression:
		return map[string]interface{}{
			"0.type":     "IndexExpression",
			"1.position": n.Pos(),
			"2.left":     WalkAST(n.Left),
			"3.index":    WalkAST(n.Index),
		}

	case *ast.SeqLiteral:
		return map[string]interface{}{
			"0.type":     "SeqLiteral",
			"1.position": n.Pos(),
			"2.elements": walkExpressions(n.Elements),
		}

	case *ast.MapLiteral:
		entries := make([]interface{}, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = map[string]interface{}{
				"0.key":   WalkAST(e.Key),
				"1.value": WalkAST(e.Value),
			}
		}
		return map[string]interface{}{
			"0.type":     "MapLiteral",
			"1.position": n.Pos(),
			"2.entries":  entries,
		}

	default:
		return map[string]interface{}{
			"type": "Unknown",
			"node": fmt.Sprintf("%T", n),
		}
	}
}

func walkStatements(statements []ast.Statement) []interface{} {
	result := make([]interface{}, len(statements))
	for i, s := range statements {
		result[i] = WalkAST(s)
	}
	return result
}

func walkExpressions(expressions []ast.Expression) []interface{} {
	result := make([]interface{}, len(expressions))
	for i, e := range expressions {
		result[i] = WalkAST(e)
	}
	return result
}

// walkExpression keeps a nil interface from turning into a typed nil node.
func walkExpression(e ast.Expression) interface{} {
	if e == nil {
		return nil
	}
	return WalkAST(e)
}

func isNil(node ast.Node) bool {
	return node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil())
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.String(), nil
}

// WriteASTToJSON writes the JSON rendering of node to filename.
func WriteASTToJSON(node ast.Node, filename string) error {
	data, err := RenderASTAsJSON(node)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write AST to %s: %w", filename, err)
	}
	return nil
}

// RenderASTAsText produces an indented, source-like representation of the AST
// with every compound expression parenthesized, for debugging precedence.
func RenderASTAsText(node ast.Node, indent int) string {
	if isNil(node) {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Program:
		var sb strings.Builder
		for i, s := range n.Statements {
			if i > 0 {
				sb.WriteString("\n")
			}
			sb.WriteString(RenderASTAsText(s, 0))
		}
		return sb.String()

	case *ast.LetStatement:
		return fmt.Sprintf("%slet %s = %s", sp, n.Name.Value, RenderASTAsText(n.Value, indent))

	case *ast.ReturnStatement:
		if n.ReturnValue == nil {
			return sp + "return"
		}
		return fmt.Sprintf("%sreturn %s", sp, RenderASTAsText(n.ReturnValue, indent))

	case *ast.ExpressionStatement:
		return sp + RenderASTAsText(n.Expression, indent)

	case *ast.BlockStatement:
		var sb strings.Builder
		sb.WriteString("{\n")
		for _, s := range n.Statements {
			sb.WriteString(RenderASTAsText(s, indent+1))
			sb.WriteString("\n")
		}
		sb.WriteString(sp + "}")
		return sb.String()

	case *ast.IfExpression:
		out := fmt.Sprintf("if %s %s", RenderASTAsText(n.Condition, indent), RenderASTAsText(n.ThenBranch, indent))
		if n.ElseBranch != nil {
			out += " else " + RenderASTAsText(n.ElseBranch, indent)
		}
		return out

	case *ast.FunctionLiteral:
		params := make([]string, len(n.Parameters))
		for i, p := range n.Parameters {
			params[i] = p.Value
		}
		return fmt.Sprintf("fn(%s) %s", strings.Join(params, ", "), RenderASTAsText(n.Body, indent))

	case *ast.CallExpression:
		args := make([]string, len(n.Arguments))
		for i, a := range n.Arguments {
			args[i] = RenderASTAsText(a, indent)
		}
		return fmt.Sprintf("%s(%s)", RenderASTAsText(n.Function, indent), strings.Join(args, ", "))

	case *ast.SeqLiteral:
		elements := make([]string, len(n.Elements))
		for i, e := range n.Elements {
			elements[i] = RenderASTAsText(e, indent)
		}
		return "[" + strings.Join(elements, ", ") + "]"

	case *ast.MapLiteral:
		entries := make([]string, len(n.Entries))
		for i, e := range n.Entries {
			entries[i] = RenderASTAsText(e.Key, indent) + ": " + RenderASTAsText(e.Value, indent)
		}
		return "{" + strings.Join(entries, ", ") + "}"

	case *ast.PrefixExpression:
		return fmt.Sprintf("(%s%s)", n.Operator, RenderASTAsText(n.Right, indent))

	case *ast.InfixExpression:
		return fmt.Sprintf("(%s %s %s)", RenderASTAsText(n.Left, indent), n.Operator, RenderASTAsText(n.Right, indent))

	case *ast.IndexExpression:
		return fmt.Sprintf("%s[%s]", RenderASTAsText(n.Left, indent), RenderASTAsText(n.Index, indent))

	default:
		// literals and identifiers render as written
		return node.String()
	}
}
