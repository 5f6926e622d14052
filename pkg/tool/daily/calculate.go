package daily

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/warren/pkg/model"
	"github.com/m-mizutani/warren/pkg/tool"
)

var percentOfPattern = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*%\s*of\s*(\d+\.?\d*)`)

// Calculator evaluates arithmetic expressions with functions and the
// "<p>% of <n>" form.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (x *Calculator) Name() string {
	return "calculate"
}

func (x *Calculator) Description() string {
	return "Evaluate a mathematical expression (e.g. '15% of 2500', 'sqrt(144)', '2^8')"
}

func (x *Calculator) Schema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"expression": {Type: "string", Description: "Math expression to evaluate"},
		},
		Required: []string{"expression"},
	}
}

func (x *Calculator) Match(utterance string) (tool.Args, bool) {
	return tool.MatchRules([]tool.Rule{
		tool.PrefixRule{Prefix: "calculate", ArgKey: "expression"},
		tool.PrefixRule{Prefix: "calc", ArgKey: "expression"},
	}, utterance)
}

func (x *Calculator) Execute(ctx context.Context, args tool.Args) *model.Result {
	expression := strings.TrimSpace(args["expression"])

	if m := percentOfPattern.FindStringSubmatch(expression); m != nil {
		percent, _ := strconv.ParseFloat(m[1], 64)
		number, _ := strconv.ParseFloat(m[2], 64)
		value := percent / 100 * number
		return model.NewResult(x.Name(),
			fmt.Sprintf("%s%% of %s = %s", m[1], m[2], formatNumber(value)))
	}

	// Power operator shorthand
	normalized := strings.ReplaceAll(expression, "^", "**")

	value, err := evaluate(normalized)
	if err != nil {
		return model.NewErrorResult(x.Name(), model.ErrorKindInvalidArgument,
			goerr.Wrap(err, "could not evaluate expression", goerr.V("expression", expression)))
	}

	return model.NewResult(x.Name(), fmt.Sprintf("%s = %s", expression, formatNumber(value)))
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 10, 64)
}

// evaluate parses and computes an arithmetic expression: + - * / % **,
// parentheses, unary minus, named functions and constants.
func evaluate(expression string) (float64, error) {
	p := &parser{input: expression}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.hasNext() {
		return 0, fmt.Errorf("unexpected token at position %d", p.pos)
	}
	return value, nil
}

var functions = map[string]func(float64) float64{
	"sqrt":  math.Sqrt,
	"sin":   math.Sin,
	"cos":   math.Cos,
	"tan":   math.Tan,
	"log":   math.Log,
	"log10": math.Log10,
	"exp":   math.Exp,
	"abs":   math.Abs,
	"ceil":  math.Ceil,
	"floor": math.Floor,
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

type parser struct {
	input string
	pos   int
}

func (p *parser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('+'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.match('-'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *parser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}

	for {
		p.skipSpaces()
		switch {
		case p.match('*'):
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.match('/'):
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case p.match('%'):
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *parser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	p.skipSpaces()
	if p.matchWord("**") {
		// Right-associative
		exponent, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exponent), nil
	}
	return base, nil
}

func (p *parser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.match('-') {
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (float64, error) {
	p.skipSpaces()

	if p.match('(') {
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return 0, fmt.Errorf("missing closing parenthesis at position %d", p.pos)
		}
		return value, nil
	}

	if name := p.readIdent(); name != "" {
		if c, ok := constants[name]; ok {
			return c, nil
		}
		fn, ok := functions[strings.ToLower(name)]
		if !ok {
			return 0, fmt.Errorf("unknown function %q", name)
		}
		p.skipSpaces()
		if !p.match('(') {
			return 0, fmt.Errorf("function %q requires parentheses", name)
		}
		arg, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.match(')') {
			return 0, fmt.Errorf("missing closing parenthesis for %q", name)
		}
		return fn(arg), nil
	}

	return p.readNumber()
}

func (p *parser) readNumber() (float64, error) {
	start := p.pos
	for p.hasNext() {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at position %d", p.pos)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *parser) readIdent() string {
	start := p.pos
	for p.hasNext() {
		c := p.input[p.pos]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9' && p.pos > start) {
			p.pos++
			continue
		}
		break
	}
	return p.input[start:p.pos]
}

func (p *parser) skipSpaces() {
	for p.hasNext() && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) hasNext() bool {
	return p.pos < len(p.input)
}

func (p *parser) match(c byte) bool {
	// Do not consume '*' when it is the first half of '**'
	if c == '*' && strings.HasPrefix(p.input[p.pos:], "**") {
		return false
	}
	if p.hasNext() && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *parser) matchWord(w string) bool {
	if strings.HasPrefix(p.input[p.pos:], w) {
		p.pos += len(w)
		return true
	}
	return false
}
