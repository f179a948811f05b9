package compiler

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/actscript/pkg/domain"
)

// Parser compiles script text into ScenarioData.
//
// Parse works on a copy of the parser settings and never changes the
// parser. ParseStored compiles the text the parser was created with and
// keeps the effect of `parse` directives on the parser's own settings.
type Parser struct {
	config   domain.ParserConfig
	raw      string
	scenario *domain.ScenarioData
}

// NewParser creates a parser. Empty fields of cfg take the defaults.
func NewParser(cfg domain.ParserConfig) *Parser {
	return &Parser{
		config:   domain.DefaultParserConfig().Merge(cfg),
		scenario: domain.NewScenarioData(),
	}
}

// NewParserFromText creates a parser for text and compiles it right away.
func NewParserFromText(text string, cfg domain.ParserConfig) *Parser {
	p := NewParser(cfg)
	p.raw = text
	p.ParseStored()
	return p
}

// Compile is the pure entry point: it compiles text with cfg over the defaults.
func Compile(text string, cfg domain.ParserConfig) *domain.ScenarioData {
	return NewParser(cfg).Parse(text)
}

// Config returns a copy of the parser settings.
func (p *Parser) Config() domain.ParserConfig {
	return p.config.Clone()
}

// Scenario returns the result of the last ParseStored.
func (p *Parser) Scenario() *domain.ScenarioData {
	return p.scenario
}

// Raw returns the stored script text.
func (p *Parser) Raw() string {
	return p.raw
}

// Parse compiles text without touching the parser.
func (p *Parser) Parse(text string) *domain.ScenarioData {
	cfg := p.config.Clone()
	return compile(text, &cfg, p.config.Keys.DefaultAct)
}

// ParseStored compiles the stored text, persisting `parse` directive effects
// and the result on the parser.
func (p *Parser) ParseStored() *domain.ScenarioData {
	if p.raw == "" {
		return p.scenario
	}
	p.scenario = compile(p.raw, &p.config, p.config.Keys.DefaultAct)
	return p.scenario
}

func compile(text string, cfg *domain.ParserConfig, defaultAct string) *domain.ScenarioData {
	c := &compilation{cfg: cfg, data: domain.NewScenarioData()}
	blocks := splitBlocks(normalize(text))

	// Directives ahead of the first act heading belong to the default act.
	for i, block := range blocks {
		if head, _ := splitLines(block); isActHeading(head) {
			break
		}
		blocks[i] = c.extractDirectives(block, actScope(defaultAct))
	}

	act := defaultAct
	for _, block := range blocks {
		if block = normalize(block); block == "" {
			continue
		}
		head, body := splitLines(block)

		if isActHeading(head) {
			act = c.declareAct(head, body)
			continue
		}
		if isComment(head, cfg.Comment) || isComment(act, cfg.Comment) {
			continue
		}
		c.appendMessage(act, head, body)
	}
	return c.data
}

// DecodeConfig rebuilds parser settings from a parserOverrides map laid over base.
func DecodeConfig(base domain.ParserConfig, overrides map[string]any) (domain.ParserConfig, error) {
	if len(overrides) == 0 {
		return base.Clone(), nil
	}
	var decoded domain.ParserConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &decoded,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return base, err
	}
	if err := dec.Decode(domain.Normalize(overrides)); err != nil {
		return base, fmt.Errorf("decode parser overrides: %w", err)
	}
	return base.Merge(decoded), nil
}
