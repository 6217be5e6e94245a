package infobox

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// exprCharset 与旧版前端约定一致：只有整条查询都落在表达式字符集内才触发计算器。
const exprCharset = `[+\-/*÷x()0-9.^ ]+`

// mathPatterns 依次匹配 “what is …”、“solve …”、“calc …”、裸表达式及尾随等号。
var mathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^what is (` + exprCharset + `)$`),
	regexp.MustCompile(`(?i)^solve (` + exprCharset + `)$`),
	regexp.MustCompile(`(?i)^calc (` + exprCharset + `)$`),
	regexp.MustCompile(`(?i)^calculate (` + exprCharset + `)$`),
	regexp.MustCompile(`(?i)^(` + exprCharset + `)$`),
	regexp.MustCompile(`(?i)^(` + exprCharset + `)=$`),
}

// solveMath 尝试把查询当作算术表达式求值；匹配但求值失败时不产生 infobox。
func (r *Resolver) solveMath(query string) *Infobox {
	for _, pattern := range mathPatterns {
		match := pattern.FindStringSubmatch(query)
		if match == nil {
			continue
		}

		equ := strings.TrimSpace(match[1])
		normalized := strings.NewReplacer("x", "*", "X", "*", "÷", "/").Replace(equ)
		value, err := evalExpression(normalized)
		if err != nil {
			return nil
		}

		return &Infobox{
			Infotype: "calc",
			Equ:      normalized,
			Result:   formatNumber(value),
		}
	}
	return nil
}

// formatNumber 输出最短的精确十进制表示，整数结果不带小数点。
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// evalExpression 对 + - * / ^ 与括号做递归下降求值。
// 运算符优先级：^（右结合） > * / > + -，支持一元负号。
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	p.skipSpaces()
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character at %d", p.pos)
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return 0, errors.New("result out of range")
	}
	return value, nil
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) parseExpr() (float64, error) {
	value, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '+':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value += rhs
		case '-':
			p.pos++
			rhs, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			value -= rhs
		default:
			return value, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch p.peek() {
		case '*':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			value *= rhs
		case '/':
			p.pos++
			rhs, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if rhs == 0 {
				return 0, errors.New("division by zero")
			}
			value /= rhs
		default:
			return value, nil
		}
	}
}

func (p *exprParser) parseUnary() (float64, error) {
	p.skipSpaces()
	if p.peek() == '-' {
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parsePower()
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseAtom()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.peek() == '^' {
		p.pos++
		// 右结合：2^3^2 == 2^(3^2)。
		exp, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseAtom() (float64, error) {
	p.skipSpaces()
	if p.peek() == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return 0, errors.New("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' {
			p.pos++
			continue
		}
		break
	}
	if start == p.pos {
		return 0, fmt.Errorf("expected number at %d", start)
	}
	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return value, nil
}

func (p *exprParser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}
