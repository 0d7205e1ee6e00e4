package pinconf

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser parses pin configuration files.
type Parser struct {
	parser *participle.Parser[ConfigFile]
}

// NewParser creates a new configuration parser instance
func NewParser() (*Parser, error) {
	parser, err := participle.Build[ConfigFile](
		participle.Lexer(ConfigLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build parser: %w", err)
	}

	return &Parser{parser: parser}, nil
}

// ParseString parses configuration text.
func (p *Parser) ParseString(input string) (*ConfigFile, error) {
	cfg, err := p.parser.ParseString("", input)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return cfg, nil
}

// ParseFile parses the configuration at path and also returns the text it
// read, which WriteConfig echoes.
func (p *Parser) ParseFile(path string) (*ConfigFile, []byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to open %s for read: %w", path, err)
	}
	cfg, err := p.parser.ParseBytes(path, src)
	if err != nil {
		return nil, src, fmt.Errorf("parse error: %w", err)
	}
	return cfg, src, nil
}
