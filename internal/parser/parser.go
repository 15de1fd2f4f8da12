// Package parser implements a recursive-descent parser producing an
// ast.AST from lexer tokens.
package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pebble-lang/pebble/internal/ast"
	"github.com/pebble-lang/pebble/internal/lexer"
	"github.com/pebble-lang/pebble/internal/symbol"
)

// Parse tokenizes and parses src into an ast.AST.
func Parse(src string) (*ast.AST, error) {
	toks, lexDiags := lexer.Tokenize(src)
	p := &Parser{toks: toks, tree: &ast.AST{}}
	mod := p.parseProgram()
	var errs []error
	for _, d := range lexDiags {
		errs = append(errs, d)
	}
	errs = append(errs, p.diags...)
	p.tree.TopLevel = mod
	if len(errs) > 0 {
		return p.tree, errors.Join(errs...)
	}
	return p.tree, nil
}

// Parser holds the token stream and the AST under construction.
type Parser struct {
	toks  []lexer.Token
	pos   int
	tree  *ast.AST
	diags []error
}

type parseError struct{ err error }

func (p *Parser) fail(format string, args ...any) {
	panic(parseError{fmt.Errorf(format+" (at byte %d)", append(args, p.cur().Span.Start)...)})
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) kind() lexer.Kind  { return p.cur().Kind }
func (p *Parser) at(k lexer.Kind) bool { return p.kind() == k }

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k lexer.Kind) lexer.Token {
	if !p.at(k) {
		p.fail("expected %s, found %s", k, p.kind())
	}
	return p.advance()
}

func (p *Parser) accept(k lexer.Kind) (lexer.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	return lexer.Token{}, false
}

func (p *Parser) parseProgram() []ast.ExprID {
	var top []ast.ExprID
	for !p.at(lexer.TokenEOF) {
		id, ok := p.parseTopLevelSafe()
		if ok {
			top = append(top, id)
		}
	}
	return top
}

func (p *Parser) parseTopLevelSafe() (id ast.ExprID, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			pe, isPE := r.(parseError)
			if !isPE {
				panic(r)
			}
			p.diags = append(p.diags, pe.err)
			p.syncToTopLevel()
			ok = false
		}
	}()
	switch p.kind() {
	case lexer.TokenFn:
		return p.parseFnDecl(), true
	case lexer.TokenStruct:
		return p.parseStructDecl(), true
	default:
		p.fail("expected a function or struct declaration, found %s", p.kind())
		return 0, false
	}
}

func (p *Parser) syncToTopLevel() {
	for !p.at(lexer.TokenEOF) && !p.at(lexer.TokenFn) && !p.at(lexer.TokenStruct) {
		p.advance()
	}
}

func (p *Parser) parseFnDecl() ast.ExprID {
	start := p.cur().Span.Start
	p.expect(lexer.TokenFn)
	name := p.expect(lexer.TokenIdentifier).Text
	p.expect(lexer.TokenLParen)
	var params []ast.Param
	for !p.at(lexer.TokenRParen) {
		pname := p.expect(lexer.TokenIdentifier).Text
		p.expect(lexer.TokenColon)
		ty := p.parseType()
		params = append(params, ast.Param{Ident: symbol.Intern(pname), Type: ty})
		if _, ok := p.accept(lexer.TokenComma); !ok {
			break
		}
	}
	p.expect(lexer.TokenRParen)
	var ret *ast.TypeID
	if _, ok := p.accept(lexer.TokenArrow); ok {
		ty := p.parseType()
		ret = &ty
	}
	block := p.parseBlock()
	end := p.toks[p.pos-1].Span.End
	return p.tree.PushExpr(ast.Expr{
		Span: ast.Span{Start: start, End: end},
		Kind: ast.FnDecl{Ident: symbol.Intern(name), Params: params, Ret: ret, Block: block},
	})
}

func (p *Parser) parseStructDecl() ast.ExprID {
	start := p.cur().Span.Start
	p.expect(lexer.TokenStruct)
	name := p.expect(lexer.TokenIdentifier).Text
	p.expect(lexer.TokenLParen)
	var fields []ast.TypeID
	for !p.at(lexer.TokenRParen) {
		fields = append(fields, p.parseType())
		if _, ok := p.accept(lexer.TokenComma); !ok {
			break
		}
	}
	end := p.expect(lexer.TokenRParen).Span.End
	return p.tree.PushExpr(ast.Expr{
		Span: ast.Span{Start: start, End: end},
		Kind: ast.StructDecl{Ident: symbol.Intern(name), Fields: fields},
	})
}

func (p *Parser) parseType() ast.TypeID {
	switch p.kind() {
	case lexer.TokenLBracket:
		p.advance()
		elem := p.parseType()
		p.expect(lexer.TokenRBracket)
		return p.tree.PushType(ast.TypeExpr{Kind: ast.ArrayType{Elem: elem}})
	case lexer.TokenAmpersand:
		p.advance()
		elem := p.parseType()
		return p.tree.PushType(ast.TypeExpr{Kind: ast.RefType{Elem: elem}})
	case lexer.TokenIdentifier:
		name := p.advance().Text
		return p.tree.PushType(ast.TypeExpr{Kind: ast.NamedType{Name: symbol.Intern(name)}})
	default:
		p.fail("expected a type, found %s", p.kind())
		return 0
	}
}

// parseBlock parses `{ stmt (';' stmt)* [;]? }`, tracking whether the final
// statement was left without a trailing `;` (block-like expressions —
// If/While/BlockExpr/FnDecl — never require one between
// statements).
func (p *Parser) parseBlock() ast.BlockID {
	p.expect(lexer.TokenLBrace)
	var stmts []ast.ExprID
	isExpr := false
	for !p.at(lexer.TokenRBrace) {
		isExpr = false
		id := p.parseExpr()
		stmts = append(stmts, id)
		if _, ok := p.accept(lexer.TokenSemicolon); ok {
			continue
		}
		if p.at(lexer.TokenRBrace) {
			isExpr = true
			break
		}
		if !isBlockLike(p.tree.Exprs[id].Kind) {
			p.fail("expected ';' after statement, found %s", p.kind())
		}
	}
	p.expect(lexer.TokenRBrace)
	return p.tree.PushBlock(ast.Block{Stmts: stmts, IsExpr: isExpr})
}

func isBlockLike(k ast.ExprKind) bool {
	switch k.(type) {
	case ast.If, ast.While, ast.BlockExpr, ast.FnDecl:
		return true
	default:
		return false
	}
}

// --- expressions, lowest to highest precedence ---

func (p *Parser) parseExpr() ast.ExprID { return p.parseAssignment() }

func (p *Parser) parseAssignment() ast.ExprID {
	lhs := p.parseOr()
	if _, ok := p.accept(lexer.TokenAssign); ok {
		rhs := p.parseAssignment()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Assignment{Lhs: lhs, Expr: rhs}})
	}
	return lhs
}

func (p *Parser) parseOr() ast.ExprID {
	lhs := p.parseAnd()
	for {
		if _, ok := p.accept(lexer.TokenOr); !ok {
			return lhs
		}
		rhs := p.parseAnd()
		lhs = p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: ast.Or, Rhs: rhs}})
	}
}

func (p *Parser) parseAnd() ast.ExprID {
	lhs := p.parseComparison()
	for {
		if _, ok := p.accept(lexer.TokenAnd); !ok {
			return lhs
		}
		rhs := p.parseComparison()
		lhs = p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: ast.And, Rhs: rhs}})
	}
}

var comparisonOps = map[lexer.Kind]ast.BinaryOp{
	lexer.TokenEqualEqual:   ast.Eq,
	lexer.TokenBangEqual:    ast.Neq,
	lexer.TokenLess:         ast.Less,
	lexer.TokenLessEqual:    ast.LessEq,
	lexer.TokenGreater:      ast.Greater,
	lexer.TokenGreaterEqual: ast.GreaterEq,
}

func (p *Parser) parseComparison() ast.ExprID {
	lhs := p.parseRange()
	op, ok := comparisonOps[p.kind()]
	if !ok {
		return lhs
	}
	p.advance()
	rhs := p.parseRange()
	return p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: op, Rhs: rhs}})
}

func (p *Parser) parseRange() ast.ExprID {
	lhs := p.parseAdditive()
	switch p.kind() {
	case lexer.TokenDotDot:
		p.advance()
		rhs := p.parseAdditive()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: ast.Range, Rhs: rhs}})
	case lexer.TokenDotDotEq:
		p.advance()
		rhs := p.parseAdditive()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: ast.RangeInclusive, Rhs: rhs}})
	default:
		return lhs
	}
}

func (p *Parser) parseAdditive() ast.ExprID {
	lhs := p.parseMultiplicative()
	for {
		var op ast.BinaryOp
		switch p.kind() {
		case lexer.TokenPlus:
			op = ast.Add
		case lexer.TokenMinus:
			op = ast.Sub
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseMultiplicative()
		lhs = p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: op, Rhs: rhs}})
	}
}

func (p *Parser) parseMultiplicative() ast.ExprID {
	lhs := p.parseUnary()
	for {
		var op ast.BinaryOp
		switch p.kind() {
		case lexer.TokenStar:
			op = ast.Mul
		case lexer.TokenSlash:
			op = ast.Div
		case lexer.TokenPercent:
			op = ast.Mod
		default:
			return lhs
		}
		p.advance()
		rhs := p.parseUnary()
		lhs = p.tree.PushExpr(ast.Expr{Kind: ast.Binary{Lhs: lhs, Op: op, Rhs: rhs}})
	}
}

func (p *Parser) parseUnary() ast.ExprID {
	var op ast.UnaryOp
	switch p.kind() {
	case lexer.TokenBang:
		op = ast.Not
	case lexer.TokenMinus:
		op = ast.Neg
	case lexer.TokenAmpersand:
		op = ast.Ref
	case lexer.TokenStar:
		op = ast.Deref
	default:
		return p.parsePostfix()
	}
	p.advance()
	operand := p.parseUnary()
	return p.tree.PushExpr(ast.Expr{Kind: ast.Unary{Op: op, Expr: operand}})
}

func (p *Parser) parsePostfix() ast.ExprID {
	expr := p.parsePrimary()
	for {
		switch p.kind() {
		case lexer.TokenLParen:
			p.advance()
			var args []ast.ExprID
			for !p.at(lexer.TokenRParen) {
				args = append(args, p.parseExpr())
				if _, ok := p.accept(lexer.TokenComma); !ok {
					break
				}
			}
			p.expect(lexer.TokenRParen)
			expr = p.tree.PushExpr(ast.Expr{Kind: ast.FnCall{Function: expr, Args: args}})
		case lexer.TokenLBracket:
			p.advance()
			index := p.parseExpr()
			p.expect(lexer.TokenRBracket)
			expr = p.tree.PushExpr(ast.Expr{Kind: ast.Index{Expr: expr, Index: index}})
		case lexer.TokenDot:
			p.advance()
			idxTok := p.expect(lexer.TokenIntLiteral)
			var idx uint32
			fmt.Sscanf(idxTok.Text, "%d", &idx)
			expr = p.tree.PushExpr(ast.Expr{Kind: ast.Field{Expr: expr, Index: idx}})
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.ExprID {
	tok := p.cur()
	switch tok.Kind {
	case lexer.TokenIntLiteral:
		p.advance()
		var v int64
		fmt.Sscanf(tok.Text, "%d", &v)
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.IntLit{Value: v}}})
	case lexer.TokenCharLiteral:
		p.advance()
		r := []rune(tok.Text)[0]
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.CharLit{Value: r}}})
	case lexer.TokenStringLiteral:
		p.advance()
		return p.parseStringLiteral(tok)
	case lexer.TokenTrue:
		p.advance()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.BoolLit{Value: true}}})
	case lexer.TokenFalse:
		p.advance()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.BoolLit{Value: false}}})
	case lexer.TokenAbort:
		p.advance()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Abort{}})
	case lexer.TokenUnreachable:
		p.advance()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Unreachable{}})
	case lexer.TokenIdentifier:
		p.advance()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Ident{Name: symbol.Intern(tok.Text)}})
	case lexer.TokenLParen:
		p.advance()
		if _, ok := p.accept(lexer.TokenRParen); ok {
			return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.UnitLit{}}})
		}
		inner := p.parseExpr()
		p.expect(lexer.TokenRParen)
		return inner
	case lexer.TokenLBracket:
		return p.parseArrayLiteral()
	case lexer.TokenLBrace:
		block := p.parseBlock()
		return p.tree.PushExpr(ast.Expr{Kind: ast.BlockExpr{Block: block}})
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenBreak:
		p.advance()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Break{}})
	case lexer.TokenReturn:
		p.advance()
		if p.at(lexer.TokenSemicolon) || p.at(lexer.TokenRBrace) {
			return p.tree.PushExpr(ast.Expr{Kind: ast.Return{Has: false}})
		}
		val := p.parseExpr()
		return p.tree.PushExpr(ast.Expr{Kind: ast.Return{Expr: val, Has: true}})
	case lexer.TokenLet:
		return p.parseLet()
	case lexer.TokenFn:
		return p.parseFnDecl()
	default:
		p.fail("unexpected token %s", tok.Kind)
		return 0
	}
}

func (p *Parser) parseLet() ast.ExprID {
	p.expect(lexer.TokenLet)
	name := p.expect(lexer.TokenIdentifier).Text
	var ty *ast.TypeID
	if _, ok := p.accept(lexer.TokenColon); ok {
		t := p.parseType()
		ty = &t
	}
	p.expect(lexer.TokenAssign)
	val := p.parseExpr()
	return p.tree.PushExpr(ast.Expr{Kind: ast.Let{Ident: symbol.Intern(name), Type: ty, Expr: val}})
}

func (p *Parser) parseIf() ast.ExprID {
	var arms []ast.IfArm
	var els *ast.BlockID
	for {
		p.expect(lexer.TokenIf)
		cond := p.parseExpr()
		body := p.parseBlock()
		arms = append(arms, ast.IfArm{Condition: cond, Body: body})
		if _, ok := p.accept(lexer.TokenElse); !ok {
			break
		}
		if p.at(lexer.TokenIf) {
			continue
		}
		b := p.parseBlock()
		els = &b
		break
	}
	return p.tree.PushExpr(ast.Expr{Kind: ast.If{Arms: arms, Els: els}})
}

func (p *Parser) parseWhile() ast.ExprID {
	p.expect(lexer.TokenWhile)
	cond := p.parseExpr()
	body := p.parseBlock()
	return p.tree.PushExpr(ast.Expr{Kind: ast.While{Condition: cond, Block: body}})
}

func (p *Parser) parseArrayLiteral() ast.ExprID {
	p.expect(lexer.TokenLBracket)
	if _, ok := p.accept(lexer.TokenRBracket); ok {
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.ArrayLit{}}})
	}
	first := p.parseExpr()
	if _, ok := p.accept(lexer.TokenSemicolon); ok {
		count := p.parseExpr()
		p.expect(lexer.TokenRBracket)
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.ArrayLit{
			Segments: []ast.ArraySeg{{Expr: first, Repeated: &count}},
		}}})
	}
	segs := []ast.ArraySeg{{Expr: first}}
	for {
		if _, ok := p.accept(lexer.TokenComma); !ok {
			break
		}
		if p.at(lexer.TokenRBracket) {
			break
		}
		segs = append(segs, ast.ArraySeg{Expr: p.parseExpr()})
	}
	p.expect(lexer.TokenRBracket)
	return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.ArrayLit{Segments: segs}}})
}

// parseStringLiteral splits a lexed string's decoded text on `${...}`
// interpolation markers, recursively parsing each expression segment against
// this parser's own AST arena so the resulting sub-expression IDs share
// storage with the enclosing program. A single plain-string segment (no
// interpolation at all) degenerates to a normal StringLit rather than a
// one-element FStrLit.
func (p *Parser) parseStringLiteral(tok lexer.Token) ast.ExprID {
	text := tok.Text
	if !strings.Contains(text, "${") {
		return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.StringLit{Value: symbol.Intern(text)}}})
	}

	var segs []ast.ExprID
	pushLit := func(s string) {
		segs = append(segs, p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.StringLit{Value: symbol.Intern(s)}}}))
	}

	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "${")
		if start < 0 {
			pushLit(text[i:])
			break
		}
		start += i
		if start > i {
			pushLit(text[i:start])
		}
		depth := 1
		j := start + 2
		for j < len(text) && depth > 0 {
			switch text[j] {
			case '{':
				depth++
			case '}':
				depth--
			}
			if depth == 0 {
				break
			}
			j++
		}
		if depth != 0 {
			p.fail("unterminated '${' interpolation in string literal")
		}
		inner := text[start+2 : j]
		sub := &Parser{tree: p.tree}
		subToks, subDiags := lexer.Tokenize(inner)
		sub.toks = subToks
		id := sub.parseExpr()
		p.diags = append(p.diags, sub.diags...)
		for _, d := range subDiags {
			p.diags = append(p.diags, d)
		}
		segs = append(segs, id)
		i = j + 1
	}
	return p.tree.PushExpr(ast.Expr{Kind: ast.Literal{Lit: ast.FStrLit{Segments: segs}}})
}
