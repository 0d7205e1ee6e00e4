package pinconf

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ConfigLexer tokenizes pin configuration files. The files are usually
// CUPL style sources, so anything that is not a DEVICE or PIN statement
// still has to lex: the Other rule swallows single characters the grammar
// does not care about.
var ConfigLexer = lexer.MustSimple([]lexer.SimpleRule{
	// C style comments
	{Name: "Comment", Pattern: `/\*[\s\S]*?\*/|//[^\n]*`},

	{Name: "Whitespace", Pattern: `[\s\t\n\r]+`},

	// Keywords
	{Name: "KwDevice", Pattern: `(?i)\bDEVICE\b`},
	{Name: "KwPin", Pattern: `(?i)\bPIN\b`},

	{Name: "Number", Pattern: `[0-9]+`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_.]*`},

	{Name: "Not", Pattern: `!`},
	{Name: "Assign", Pattern: `=`},
	{Name: "Semicolon", Pattern: `;`},

	{Name: "Other", Pattern: `[^\s;]`},
})
