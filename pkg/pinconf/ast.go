package pinconf

import "github.com/alecthomas/participle/v2/lexer"

// ConfigFile is a parsed pin configuration file.
type ConfigFile struct {
	Statements []*Statement `@@*`
}

// Statement is one ';' terminated statement.
type Statement struct {
	Device *DeviceStmt `  @@`
	Pin    *PinStmt    `| @@`
	Other  *OtherStmt  `| @@`
}

// DeviceStmt selects the package footprint.
// Example: DEVICE g22v10;
type DeviceStmt struct {
	Pos  lexer.Position
	Name string `KwDevice @( Ident | Number )+ Semicolon`
}

// PinStmt names a device pin, optionally active low.
// Example: PIN 14 = !CS;
type PinStmt struct {
	Pos    lexer.Position
	Number int    `KwPin @Number Assign`
	Invert bool   `@Not?`
	Name   string `@Ident Semicolon`
}

// OtherStmt is any statement the analyzer does not interpret, such as
// CUPL header fields or equations.
type OtherStmt struct {
	Tokens []string `@~( KwPin | KwDevice | Semicolon ) @~Semicolon* Semicolon`
}
