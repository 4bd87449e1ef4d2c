package ast

// Constructors build synthetic nodes. They never carry a span; printing
// renders them from their structure.

func newNode(kind Kind, name, value string, children ...*Node) *Node {
	return &Node{kind: kind, name: name, value: value, children: children}
}

// New builds a node of any kind. Prefer the typed constructors below.
func New(kind Kind, name, value string, children ...*Node) *Node {
	return newNode(kind, name, value, children...)
}

func File(stmts ...*Node) *Node { return newNode(KindFile, "", "", stmts...) }

// List groups children under a role such as "decorators", "members" or
// "args".
func List(role string, items ...*Node) *Node { return newNode(KindList, role, "", items...) }

func Ident(name string) *Node { return newNode(KindIdent, name, "") }

// Num takes the literal text of the number.
func Num(raw string) *Node { return newNode(KindNumber, "", raw) }

// Str takes the unquoted value and renders it double-quoted.
func Str(value string) *Node { return newNode(KindString, "", quote(value)) }

// Unquote returns the value of a string literal as written in source. Text
// that is not a quoted literal is returned unchanged.
func Unquote(raw string) string {
	if len(raw) < 2 {
		return raw
	}
	q := raw[0]
	if (q != '"' && q != '\'' && q != '`') || raw[len(raw)-1] != q {
		return raw
	}
	body := raw[1 : len(raw)-1]
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 == len(body) {
			out = append(out, c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			out = append(out, '\n')
		case 't':
			out = append(out, '\t')
		case 'r':
			out = append(out, '\r')
		case '0':
			out = append(out, 0)
		default:
			out = append(out, body[i])
		}
	}
	return string(out)
}

// RawString takes a string literal exactly as written, quotes included.
func RawString(raw string) *Node { return newNode(KindString, "", raw) }

// Template takes the whole template literal, backquotes included.
func Template(raw string) *Node { return newNode(KindTemplate, "", raw) }

func Regex(raw string) *Node { return newNode(KindRegex, "", raw) }

func Call(callee *Node, args ...*Node) *Node {
	return newNode(KindCall, "", "", callee, nil, List("args", args...))
}

// GenericCall is Call with explicit type arguments.
func GenericCall(callee *Node, typeArgs []*Node, args ...*Node) *Node {
	return newNode(KindCall, "", "", callee, List("typeArgs", typeArgs...), List("args", args...))
}

func Member(object *Node, property string) *Node {
	return newNode(KindMember, property, ".", object)
}

func OptionalMember(object *Node, property string) *Node {
	return newNode(KindMember, property, "?.", object)
}

func Index(object, index *Node) *Node { return newNode(KindIndex, "", "", object, index) }

func TaggedTemplate(tag, tmpl *Node) *Node { return newNode(KindTaggedTemplate, "", "", tag, tmpl) }

func Array(elems ...*Node) *Node { return newNode(KindArray, "", "", elems...) }

func Object(props ...*Node) *Node { return newNode(KindObject, "", "", props...) }

// Prop is an object literal entry. A nil value is the shorthand form.
func Prop(key string, value *Node) *Node {
	return newNode(KindProperty, key, "", nil, nil, value)
}

func Spread(expr *Node) *Node { return newNode(KindSpread, "", "", expr) }

func Binary(op string, left, right *Node) *Node { return newNode(KindBinary, op, "", left, right) }

func Unary(op string, expr *Node) *Node { return newNode(KindUnary, op, "", expr) }

func Postfix(op string, expr *Node) *Node { return newNode(KindPostfix, op, "", expr) }

func As(expr, typ *Node) *Node { return newNode(KindAs, "", "as", expr, typ) }

func Conditional(cond, then, otherwise *Node) *Node {
	return newNode(KindConditional, "", "", cond, then, otherwise)
}

func Paren(expr *Node) *Node { return newNode(KindParen, "", "", expr) }

// Arrow builds (params) => body where body is an expression or a Block.
func Arrow(params *Node, ret *Node, body *Node) *Node {
	return newNode(KindArrow, "", "", params, ret, body)
}

// ErrorPlaceholder stands in for an expression whose expansion failed.
func ErrorPlaceholder(message string) *Node {
	return newNode(KindErrorPlaceholder, ErrorHelper, message)
}

// ErrorHelper is the function an error placeholder calls.
const ErrorHelper = "__macro_error__"

func Params(params ...*Node) *Node { return newNode(KindParamList, "", "", params...) }

// Param builds a parameter; typ and def may be nil.
func Param(name string, typ, def *Node) *Node { return newNode(KindParam, name, "", typ, def) }

func TypeParams(params ...*Node) *Node { return newNode(KindTypeParamList, "", "", params...) }

func TypeParam(name string, constraint, def *Node) *Node {
	return newNode(KindTypeParam, name, "", constraint, def)
}

// VarDecl builds `keyword name: typ = init`. keyword may carry modifiers, as
// in "export const". typ and init may be nil.
func VarDecl(keyword, name string, typ, init *Node) *Node {
	return newNode(KindVarDecl, name, keyword, typ, init)
}

// Function builds a function declaration, or an expression when name is
// empty. Any of typeParams, ret and body may be nil.
func Function(name string, typeParams, params, ret, body *Node) *Node {
	return newNode(KindFunction, name, "", nil, typeParams, params, ret, body)
}

// Class builds a class declaration with members as its body.
func Class(name string, extends *Node, members ...*Node) *Node {
	return newNode(KindClass, name, "", List("decorators"), nil, extends, nil, List("members", members...))
}

func Interface(name string, members ...*Node) *Node {
	return newNode(KindInterface, name, "", List("decorators"), nil, nil, List("members", members...))
}

func TypeAlias(name string, typeParams, typ *Node) *Node {
	return newNode(KindTypeAlias, name, "", List("decorators"), typeParams, typ)
}

// Field is a class or interface property.
func Field(name string, typ, init *Node) *Node {
	return newNode(KindProperty, name, "", nil, typ, init)
}

func Decorator(name string, args ...*Node) *Node {
	return newNode(KindDecorator, name, "", List("args", args...))
}

func Block(stmts ...*Node) *Node { return newNode(KindBlock, "", "", stmts...) }

func Return(expr *Node) *Node { return newNode(KindReturn, "", "", expr) }

func If(cond, then, otherwise *Node) *Node { return newNode(KindIf, "", "", cond, then, otherwise) }

func Labeled(label string, body *Node) *Node { return newNode(KindLabeled, label, "", body) }

func ExprStmt(expr *Node) *Node { return newNode(KindExprStmt, "", "", expr) }

func Empty() *Node { return newNode(KindEmpty, "", "") }

func Import(module string, specs ...*Node) *Node { return newNode(KindImport, "", module, specs...) }

// ImportSpec binds local to the imported export. imported is "default" for a
// default import and "*" for a namespace import.
func ImportSpec(imported, local string) *Node { return newNode(KindImportSpec, imported, local) }

// ExportFrom forwards specs from module; an empty module exports local names.
func ExportFrom(module string, specs ...*Node) *Node {
	return newNode(KindExportFrom, "", module, specs...)
}

func ExportSpec(local, exported string) *Node { return newNode(KindExportSpec, local, exported) }

// ExportDefault is `export default expr`. Exported declarations carry
// "export" among their modifiers instead.
func ExportDefault(expr *Node) *Node { return newNode(KindExportDecl, "default", "", expr) }

func TypeRef(name string, args ...*Node) *Node { return newNode(KindTypeRef, name, "", args...) }

func ArrayType(elem *Node) *Node { return newNode(KindArrayType, "", "", elem) }

// TypeOp joins two types with | or &.
func TypeOp(op string, left, right *Node) *Node { return newNode(KindTypeOp, op, "", left, right) }

func TypeLiteral(members ...*Node) *Node { return newNode(KindTypeLiteral, "", "", members...) }

func FuncType(typeParams, params, ret *Node) *Node {
	return newNode(KindFuncType, "", "", typeParams, params, ret)
}

func TupleType(elems ...*Node) *Node { return newNode(KindTupleType, "", "", elems...) }

// LiteralType takes the literal text, such as "\"on\"" or "42".
func LiteralType(raw string) *Node { return newNode(KindLiteralType, "", raw) }

func ParenType(t *Node) *Node { return newNode(KindParenType, "", "", t) }

// TypeOperator applies keyof, typeof, readonly or unique to t.
func TypeOperator(op string, t *Node) *Node { return newNode(KindTypeOperator, op, "", t) }

func quote(s string) string {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\\':
			out = append(out, '\\', c)
		case '\n':
			out = append(out, '\\', 'n')
		case '\r':
			out = append(out, '\\', 'r')
		case '\t':
			out = append(out, '\\', 't')
		default:
			out = append(out, c)
		}
	}
	return string(append(out, '"'))
}
