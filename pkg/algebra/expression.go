package algebra

import "github.com/falkordb/go-sparql-adapter/pkg/rdf"

// Expression is a SPARQL filter expression. The concrete node types
// mirror the teacher's parser AST (BinaryExpression / UnaryExpression
// / VariableExpression / LiteralExpression / FunctionCallExpression):
// that shape is kept because the Expression Translator (spec.md §4.3)
// pattern-matches on exactly these cases.
type Expression interface {
	expressionNode()
}

// Operator enumerates the operators the algebra can carry. Only a
// subset is translatable (see internal/exprtranslate); the rest exist
// so the translator can name them in its "untranslatable" reason.
type Operator int

const (
	OpAnd Operator = iota
	OpOr
	OpNot

	OpEqual
	OpNotEqual
	OpLessThan
	OpLessThanOrEqual
	OpGreaterThan
	OpGreaterThanOrEqual

	OpAdd
	OpSubtract
	OpMultiply
	OpDivide

	OpRegex
	OpStr
	OpLang
	OpDatatype
	OpBound
	OpIsURI
	OpIsLiteral
)

func (o Operator) String() string {
	switch o {
	case OpAnd:
		return "&&"
	case OpOr:
		return "||"
	case OpNot:
		return "!"
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLessThan:
		return "<"
	case OpLessThanOrEqual:
		return "<="
	case OpGreaterThan:
		return ">"
	case OpGreaterThanOrEqual:
		return ">="
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	case OpRegex:
		return "REGEX"
	case OpStr:
		return "STR"
	case OpLang:
		return "LANG"
	case OpDatatype:
		return "DATATYPE"
	case OpBound:
		return "BOUND"
	case OpIsURI:
		return "isURI"
	case OpIsLiteral:
		return "isLiteral"
	default:
		return "?"
	}
}

// BinaryExpression is a two-operand operation: comparisons, AND/OR,
// arithmetic.
type BinaryExpression struct {
	Left     Expression
	Operator Operator
	Right    Expression
}

func (*BinaryExpression) expressionNode() {}

// UnaryExpression is a one-operand operation: NOT, STR, LANG, ...
type UnaryExpression struct {
	Operator Operator
	Operand  Expression
}

func (*UnaryExpression) expressionNode() {}

// VariableExpression references a bound variable.
type VariableExpression struct {
	Variable *Variable
}

func (*VariableExpression) expressionNode() {}

// LiteralExpression is a constant numeric, string, or boolean literal.
type LiteralExpression struct {
	Literal rdf.Term
}

func (*LiteralExpression) expressionNode() {}

// FunctionCallExpression is a named function application, e.g. a
// GeoSPARQL function (geof:distance, geof:sfWithin, ...).
type FunctionCallExpression struct {
	Function  string
	Arguments []Expression
}

func (*FunctionCallExpression) expressionNode() {}
