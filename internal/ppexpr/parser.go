// Copyright 2025 EngFlow Inc. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ppexpr

import (
	"fmt"

	"github.com/tads3toolchain/tppc/internal/diag"
	"github.com/tads3toolchain/tppc/internal/lexer"
	"github.com/tads3toolchain/tppc/internal/source"
)

// binPrec mirrors C's operator precedence table (logical OR binds
// loosest, multiplicative tightest); "?:" is handled separately in
// parseExpr since it is right-associative and its own token (Question)
// does not appear here.
var binPrec = map[lexer.Kind]int{
	lexer.OrOr: 1,
	lexer.AndAnd: 2,
	lexer.Pipe: 3,
	lexer.Caret: 4,
	lexer.Amp: 5,
	lexer.EqEq: 6, lexer.Ne: 6,
	lexer.Lt: 7, lexer.Le: 7, lexer.Gt: 7, lexer.Ge: 7,
	lexer.Shl: 8, lexer.Shr: 8,
	lexer.Plus: 9, lexer.Minus: 9,
	lexer.Star: 10, lexer.Slash: 10, lexer.Percent: 10,
}

const ternaryPrec = 0

type parser struct {
	toks []lexer.Token
	pos  int
}

func (p *parser) cur() lexer.Token { return p.toks[p.pos] }
func (p *parser) advance()         { p.pos++ }

// Parse lexes text (the remainder of a #if/#elif directive line) and
// parses it as a constant preprocessor expression, per spec.md §4.3.
func Parse(sink *diag.Sink, file string, pos source.Position, text string) (Expr, error) {
	lx := lexer.New(sink, file, pos, text)
	var toks []lexer.Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Kind == lexer.EndPPLine {
			break
		}
	}

	p := &parser{toks: toks}
	expr, err := p.parseExpr(ternaryPrec)
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != lexer.EndPPLine {
		return nil, fmt.Errorf("ppexpr: unexpected trailing token %s", p.cur())
	}
	return expr, nil
}

func (p *parser) parseExpr(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		if p.cur().Kind == lexer.Question && minPrec <= ternaryPrec {
			p.advance()
			thenE, err := p.parseExpr(ternaryPrec)
			if err != nil {
				return nil, err
			}
			if p.cur().Kind != lexer.Colon {
				return nil, fmt.Errorf("ppexpr: expected ':' in ?: expression, got %s", p.cur())
			}
			p.advance()
			elseE, err := p.parseExpr(ternaryPrec)
			if err != nil {
				return nil, err
			}
			left = &Ternary{Cond: left, Then: thenE, Else: elseE}
			continue
		}

		prec, ok := binPrec[p.cur().Kind]
		if !ok || prec < minPrec {
			break
		}
		op := p.cur()
		p.advance()
		right, err := p.parseExpr(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op.Kind.String(), L: left, R: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	switch p.cur().Kind {
	case lexer.Bang, lexer.Tilde, lexer.Minus, lexer.Plus:
		op := p.cur().Kind.String()
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, X: x}, nil
	default:
		return p.parsePrimary()
	}
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case lexer.Int:
		p.advance()
		return &IntLit{V: t.IntValue}, nil

	case lexer.BigInt:
		p.advance()
		return nil, fmt.Errorf("ppexpr: value %q too large for a preprocessor expression", t.Text)

	case lexer.LParen:
		p.advance()
		e, err := p.parseExpr(ternaryPrec)
		if err != nil {
			return nil, err
		}
		if p.cur().Kind != lexer.RParen {
			return nil, fmt.Errorf("ppexpr: expected ')', got %s", p.cur())
		}
		p.advance()
		return e, nil

	case lexer.KwTrue:
		p.advance()
		return &IntLit{V: 1}, nil

	case lexer.KwFalse, lexer.KwNil:
		p.advance()
		return &IntLit{V: 0}, nil

	case lexer.Ident:
		name := t.Text
		p.advance()
		if name != "defined" {
			return &IntLit{V: 0}, nil
		}
		if p.cur().Kind == lexer.LParen {
			p.advance()
			if p.cur().Kind != lexer.Ident {
				return nil, fmt.Errorf("ppexpr: expected identifier after 'defined(', got %s", p.cur())
			}
			id := p.cur().Text
			p.advance()
			if p.cur().Kind != lexer.RParen {
				return nil, fmt.Errorf("ppexpr: expected ')' closing 'defined(...)', got %s", p.cur())
			}
			p.advance()
			return &Defined{Name: id}, nil
		}
		if p.cur().Kind == lexer.Ident {
			id := p.cur().Text
			p.advance()
			return &Defined{Name: id}, nil
		}
		return nil, fmt.Errorf("ppexpr: 'defined' requires an identifier operand")

	default:
		return nil, fmt.Errorf("ppexpr: unexpected token %s in constant expression", t)
	}
}

// Evaluate parses and evaluates text (the remainder of a #if/#elif
// line) against env. Per spec.md §4.3, a parse or eval error is
// reported to sink and the condition is treated as true, to avoid
// cascading errors down an entire #if branch.
func Evaluate(env Environment, sink *diag.Sink, file string, line int, text string) bool {
	pos := diag.Position{File: file, Line: line}
	expr, err := Parse(sink, file, source.Position{Line: line}, text)
	if err != nil {
		sink.Reportf(diag.Error, pos, "TCERR_BAD_PP_EXPR", "invalid preprocessor expression: %s", err)
		return true
	}
	v, err := expr.Eval(env)
	if err != nil {
		sink.Reportf(diag.Error, pos, "TCERR_BAD_PP_EXPR", "error evaluating preprocessor expression: %s", err)
		return true
	}
	return v != 0
}
