package lite

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// The grammar covers a statically typed, curly-brace subset: enough to
// carry macro call sites and the declarations around them.

type gFile struct {
	Stmts []*gStmt `@@*`
}

type gStmt struct {
	ExportFrom    *gExportFrom    `  @@`
	Import        *gImport        `| @@`
	Decl          *gDecl          `| @@`
	ExportDefault *gExportDefault `| @@`
	Return        *gReturn        `| @@`
	If            *gIf            `| @@`
	Block         *gBlock         `| @@`
	Labeled       *gLabeled       `| @@`
	Empty         *gEmpty         `| @@`
	Expr          *gExprStmt      `| @@`
}

type gEmpty struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Semi   bool `@";"`
}

type gImport struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	TypeOnly  bool           `"import" @"type"?`
	Default   *string        `( ( @Ident ","? )?`
	Namespace *string        `  ( "*" "as" @Ident )?`
	Named     []*gImportSpec `  ( "{" ( @@ ( "," @@ )* ","? )? "}" )? "from" )?`
	Module    string         `@String ";"?`
}

type gImportSpec struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string  `@Ident`
	Alias  *string `( "as" @Ident )?`
}

type gExportFrom struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	TypeOnly bool           `"export" @"type"?`
	Star     bool           `( @"*"`
	StarAs   *string        `  ( "as" @Ident )?`
	Specs    []*gImportSpec `| "{" ( @@ ( "," @@ )* ","? )? "}" )`
	Module   *string        `( "from" @String )? ";"?`
}

type gExportDefault struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Expr   *gExpr `"export" "default" @@ ";"?`
}

type gDecl struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Decorators []*gDecorator `@@*`
	Modifiers  []string      `@( "export" | "default" | "declare" | "abstract" )*`
	Class      *gClass       `( @@`
	Interface  *gInterface   `| @@`
	TypeAlias  *gTypeAlias   `| @@`
	Function   *gFunction    `| @@`
	Var        *gVar         `| @@ )`
}

type gDecorator struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   []string `"@" @Ident ( "." @Ident )*`
	Args   *gArgs   `@@?`
}

type gVar struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Keyword string `@( "const" | "let" | "var" )`
	Name    string `@Ident`
	Type    *gType `( ":" @@ )?`
	Init    *gExpr `( "=" @@ )? ";"?`
}

type gFunction struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Async      bool         `@"async"? "function"`
	Generator  bool         `@"*"?`
	Name       *string      `@Ident?`
	TypeParams *gTypeParams `@@?`
	Params     *gParams     `@@`
	Return     *gType       `( ":" @@ )?`
	Body       *gBlock      `( @@ | ";" )`
}

type gParams struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Params []*gParam `"(" ( @@ ( "," @@ )* ","? )? ")"`
}

type gParam struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	Modifiers []string `@( "public" | "private" | "protected" | "readonly" )*`
	Rest      bool     `@"..."?`
	Name      string   `@Ident`
	Optional  bool     `@"?"?`
	Type      *gType   `( ":" @@ )?`
	Default   *gExpr   `( "=" @@ )?`
}

type gTypeParams struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Params []*gTypeParam `"<" @@ ( "," @@ )* ","? ">"`
}

type gTypeParam struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Name       string `@Ident`
	Constraint *gType `( "extends" @@ )?`
	Default    *gType `( "=" @@ )?`
}

type gClass struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Name       *string      `"class" @Ident?`
	TypeParams *gTypeParams `@@?`
	Extends    *gType       `( "extends" @@ )?`
	Implements *gTypeList   `( "implements" @@ )?`
	Body       *gClassBody  `@@`
}

type gTypeList struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Types  []*gType `@@ ( "," @@ )*`
}

type gClassBody struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Members []*gMember `"{" ( @@ | ";" )* "}"`
}

type gMember struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Decorators []*gDecorator `@@*`
	Modifiers  []string      `@( "public" | "private" | "protected" | "static" | "readonly" | "abstract" | "async" | "declare" | "override" )*`
	Name       string        `@( Ident | String | Number )`
	Optional   bool          `@"?"?`
	Method     *gMethod      `( @@`
	Type       *gType        `| ( ":" @@ )?`
	Init       *gExpr        `  ( "=" @@ )? ";"? )`
}

type gMethod struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	TypeParams *gTypeParams `@@?`
	Params     *gParams     `@@`
	Return     *gType       `( ":" @@ )?`
	Body       *gBlock      `( @@ | ";" )`
}

type gInterface struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Name       string       `"interface" @Ident`
	TypeParams *gTypeParams `@@?`
	Extends    *gTypeList   `( "extends" @@ )?`
	Body       *gTypeBody   `@@`
}

type gTypeBody struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Members []*gTypeMember `"{" ( @@ | ";" | "," )* "}"`
}

type gTypeMember struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Readonly bool        `@"readonly"?`
	Name     string      `@( Ident | String | Number )`
	Optional bool        `@"?"?`
	Method   *gSignature `( @@`
	Type     *gType      `| ":" @@ )`
}

type gSignature struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	TypeParams *gTypeParams `@@?`
	Params     *gParams     `@@`
	Return     *gType       `( ":" @@ )?`
}

type gTypeAlias struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	Name       string       `"type" @Ident`
	TypeParams *gTypeParams `@@?`
	Type       *gType       `"=" @@ ";"?`
}

type gReturn struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Value  *gExpr `"return" @@? ";"?`
}

type gIf struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Cond   *gExpr `"if" "(" @@ ")"`
	Then   *gStmt `@@`
	Else   *gStmt `( "else" @@ )?`
}

type gBlock struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Stmts  []*gStmt `"{" @@* "}"`
}

type gLabeled struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Label  string `@Ident ":"`
	Body   *gStmt `@@`
}

type gExprStmt struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Expr   *gExpr `@@ ";"?`
}

// expressions

type gExpr struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Arrow  *gArrow `  @@`
	Cond   *gCond  `| @@`
}

type gArrow struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Async  bool     `@"async"?`
	Params *gParams `( @@`
	Single *gIdent  `| @@ )`
	Return *gType   `( ":" @@ )?`
	Block  *gBlock  `"=>" ( @@`
	Expr   *gExpr   `| @@ )`
}

type gIdent struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   string `@Ident`
}

// gCond is a flat operator chain, folded left to right, with an optional
// conditional tail.
type gCond struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Head   *gUnary    `@@`
	Rest   []*gBinary `@@*`
	Then   *gExpr     `( "?" @@`
	Else   *gExpr     `  ":" @@ )?`
}

type gBinary struct {
	Op    string  `@( "===" | "!==" | "==" | "!=" | "<=" | ">=" | "&&" | "||" | "??" | "**" | "+" | "-" | "*" | "/" | "%" | "<" | ">" | "&" | "|" | "^" | "instanceof" | "in" | "=" | "+=" | "-=" | "*=" | "/=" | "%=" | "&&=" | "||=" | "??=" | "**=" )`
	Right *gUnary `@@`
}

type gUnary struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Ops     []string  `@( "!" | "-" | "+" | "~" | "typeof" | "void" | "delete" | "await" | "new" | "++" | "--" )*`
	Operand *gPostfix `@@`
}

type gPostfix struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Primary  *gPrimary  `@@`
	Suffixes []*gSuffix `@@*`
}

type gSuffix struct {
	Pos       lexer.Position
	EndPos    lexer.Position
	TypeArgs  *gTypeArgs `  ( @@`
	GenArgs   *gArgs     `    @@ )`
	Args      *gArgs     `| @@`
	Member    *string    `| "." @Ident`
	Optional  *string    `| "?." @Ident`
	Index     *gExpr     `| "[" @@ "]"`
	Template  *string    `| @Template`
	As        *gType     `| "as" @@`
	Satisfies *gType     `| "satisfies" @@`
	Postfix   *string    `| @( "!" | "++" | "--" )`
}

type gTypeArgs struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Types  []*gType `"<" @@ ( "," @@ )* ">"`
}

type gArgs struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Args   []*gArg `"(" ( @@ ( "," @@ )* ","? )? ")"`
}

type gArg struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Spread bool   `@"..."?`
	Expr   *gExpr `@@`
}

type gPrimary struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Function *gFunction `  @@`
	Paren    *gExpr     `| "(" @@ ")"`
	Array    *gArray    `| @@`
	Object   *gObject   `| @@`
	Number   *string    `| @Number`
	String   *string    `| @String`
	Template *string    `| @Template`
	Regex    *string    `| @Regex`
	Ident    *string    `| @Ident`
}

type gArray struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Elems  []*gArg `"[" ( @@ ( "," @@ )* ","? )? "]"`
}

type gObject struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Props  []*gProp `"{" ( @@ ( "," @@ )* ","? )? "}"`
}

type gProp struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Spread *gExpr  `  "..." @@`
	Key    *string `| @( Ident | String | Number )`
	Value  *gExpr  `  ( ":" @@ )?`
}

// types

type gType struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Lead   *string        `@( "|" | "&" )?`
	Head   *gTypePostfix  `@@`
	Rest   []*gTypeBinary `@@*`
}

type gTypeBinary struct {
	Op    string        `@( "|" | "&" )`
	Right *gTypePostfix `@@`
}

type gTypePostfix struct {
	Pos     lexer.Position
	EndPos  lexer.Position
	Primary *gTypePrimary `@@`
	Arrays  []string      `( @"[" "]" )*`
}

type gTypePrimary struct {
	Pos      lexer.Position
	EndPos   lexer.Position
	Func     *gFuncType     `  @@`
	Paren    *gType         `| "(" @@ ")"`
	Literal  *gTypeBody     `| @@`
	Tuple    *gTuple        `| @@`
	Operator *gTypeOperator `| @@`
	String   *string        `| @String`
	Number   *string        `| @Number`
	Ref      *gTypeRef      `| @@`
}

type gFuncType struct {
	Pos        lexer.Position
	EndPos     lexer.Position
	TypeParams *gTypeParams `@@?`
	Params     *gParams     `@@`
	Return     *gType       `"=>" @@`
}

type gTuple struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Elems  []*gType `"[" ( @@ ( "," @@ )* ","? )? "]"`
}

type gTypeOperator struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Op     string        `@( "keyof" | "typeof" | "readonly" | "unique" )`
	Type   *gTypePostfix `@@`
}

type gTypeRef struct {
	Pos    lexer.Position
	EndPos lexer.Position
	Name   []string   `@Ident ( "." @Ident )*`
	Args   *gTypeArgs `@@?`
}

var (
	parserOptions = []participle.Option{
		participle.Lexer(definition{}),
		participle.Elide("Comment"),
		participle.UseLookahead(4096),
	}

	fileParser      = participle.MustBuild[gFile](parserOptions...)
	exprParser      = participle.MustBuild[gExpr](parserOptions...)
	typeParser      = participle.MustBuild[gType](parserOptions...)
	decoratorParser = participle.MustBuild[gDecorator](parserOptions...)
)
