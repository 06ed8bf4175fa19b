// ABOUTME: Recursive-descent parser for the statement surface
// ABOUTME: One statement per call; a trailing semicolon is optional

package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meridb/meridb/pkg/record"
)

// ParseError reports a syntax error with its byte offset.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("sql: parse error at %d: %s", e.Pos, e.Msg)
}

// Parser consumes a token stream.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse lexes and parses a single statement.
func Parse(input string) (Statement, error) {
	p := &Parser{tokens: Tokens(input)}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.peek().Type == SEMICOLON {
		p.next()
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.errf(tok, "unexpected %s after statement", tok.Type)
	}
	return stmt, nil
}

func (p *Parser) peek() Token {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos]
	}
	return Token{Type: EOF}
}

func (p *Parser) next() Token {
	tok := p.peek()
	p.pos++
	return tok
}

func (p *Parser) expect(t TokenType) (Token, error) {
	tok := p.next()
	if tok.Type != t {
		return tok, p.errf(tok, "expected %s, found %s", t, tok.Type)
	}
	return tok, nil
}

func (p *Parser) errf(tok Token, format string, args ...any) error {
	return &ParseError{Pos: tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *Parser) parseStatement() (Statement, error) {
	switch tok := p.peek(); tok.Type {
	case CREATE:
		return p.parseCreate()
	case USE:
		p.next()
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return &UseDatabase{Name: name.Literal}, nil
	case SHOW:
		return p.parseShow()
	case INSERT:
		return p.parseInsert()
	case SELECT:
		return p.parseSelect()
	case UPDATE:
		return p.parseUpdate()
	case DELETE:
		return p.parseDelete()
	default:
		return nil, p.errf(tok, "expected a statement, found %s", tok.Type)
	}
}

func (p *Parser) parseCreate() (Statement, error) {
	p.next() // CREATE
	switch tok := p.next(); tok.Type {
	case DATABASE:
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		return &CreateDatabase{Name: name.Literal}, nil
	case TABLE:
		return p.parseCreateTable()
	default:
		return nil, p.errf(tok, "expected DATABASE or TABLE, found %s", tok.Type)
	}
}

func (p *Parser) parseCreateTable() (Statement, error) {
	name, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var columns []ColumnDef
	for {
		colName, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		typeTok := p.next()
		if typeTok.Type != IDENT {
			return nil, p.errf(typeTok, "expected a data type, found %s", typeTok.Type)
		}
		dt, ok := record.DataTypeFromName(strings.ToUpper(typeTok.Literal))
		if !ok {
			return nil, p.errf(typeTok, "unknown data type %q", typeTok.Literal)
		}

		nullable := true
		switch p.peek().Type {
		case NOT:
			p.next()
			if _, err := p.expect(NULL); err != nil {
				return nil, err
			}
			nullable = false
		case NULL:
			p.next()
		}

		columns = append(columns, ColumnDef{Name: colName.Literal, Type: dt, Nullable: nullable})

		sep := p.next()
		if sep.Type == COMMA {
			continue
		}
		if sep.Type == RPAREN {
			break
		}
		return nil, p.errf(sep, "expected , or ), found %s", sep.Type)
	}

	return &CreateTable{Name: name.Literal, Columns: columns}, nil
}

func (p *Parser) parseShow() (Statement, error) {
	p.next() // SHOW
	switch tok := p.next(); tok.Type {
	case DATABASES:
		return &Show{What: ShowDatabases}, nil
	case TABLES:
		return &Show{What: ShowTables}, nil
	default:
		return nil, p.errf(tok, "expected DATABASES or TABLES, found %s", tok.Type)
	}
}

func (p *Parser) parseInsert() (Statement, error) {
	p.next() // INSERT
	if _, err := p.expect(INTO); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(VALUES); err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}

	var values []record.Value
	for {
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, v)

		sep := p.next()
		if sep.Type == COMMA {
			continue
		}
		if sep.Type == RPAREN {
			break
		}
		return nil, p.errf(sep, "expected , or ), found %s", sep.Type)
	}

	return &Insert{Table: table.Literal, Values: values}, nil
}

func (p *Parser) parseSelect() (Statement, error) {
	p.next() // SELECT

	sel := &Select{}
	if p.peek().Type == ASTERISK {
		p.next()
		sel.Star = true
	} else {
		for {
			col, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			sel.Columns = append(sel.Columns, col.Literal)
			if p.peek().Type != COMMA {
				break
			}
			p.next()
		}
	}

	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	sel.Table = table.Literal

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	sel.Where = where
	return sel, nil
}

func (p *Parser) parseUpdate() (Statement, error) {
	p.next() // UPDATE
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(SET); err != nil {
		return nil, err
	}

	var assigns []Assignment
	for {
		col, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(EQ); err != nil {
			return nil, err
		}
		v, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, Assignment{Column: col.Literal, Value: v})
		if p.peek().Type != COMMA {
			break
		}
		p.next()
	}

	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	return &Update{Table: table.Literal, Assignments: assigns, Where: where}, nil
}

func (p *Parser) parseDelete() (Statement, error) {
	p.next() // DELETE
	if _, err := p.expect(FROM); err != nil {
		return nil, err
	}
	table, err := p.expect(IDENT)
	if err != nil {
		return nil, err
	}
	where, err := p.parseOptionalWhere()
	if err != nil {
		return nil, err
	}
	return &Delete{Table: table.Literal, Where: where}, nil
}

func (p *Parser) parseOptionalWhere() (Expr, error) {
	if p.peek().Type != WHERE {
		return nil, nil
	}
	p.next()
	return p.parseCondition()
}

// parseCondition handles AND/OR chains, left-associative.
func (p *Parser) parseCondition() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op Op
		switch p.peek().Type {
		case AND:
			op = OpAnd
		case OR:
			op = OpOr
		default:
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpr{Op: op, Left: left, Right: right}
	}
}

// parseTerm is a parenthesized condition or a single comparison.
func (p *Parser) parseTerm() (Expr, error) {
	if p.peek().Type == LPAREN {
		p.next()
		expr, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	var op Op
	switch tok := p.next(); tok.Type {
	case EQ:
		op = OpEq
	case NE:
		op = OpNe
	case LT:
		op = OpLt
	case LE:
		op = OpLe
	case GT:
		op = OpGt
	case GE:
		op = OpGe
	default:
		return nil, p.errf(tok, "expected a comparison operator, found %s", tok.Type)
	}

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return &BinaryExpr{Op: op, Left: left, Right: right}, nil
}

func (p *Parser) parseOperand() (Expr, error) {
	if p.peek().Type == IDENT {
		tok := p.next()
		return &ColumnRef{Name: tok.Literal}, nil
	}
	v, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	return &Literal{Value: v}, nil
}

func (p *Parser) parseLiteral() (record.Value, error) {
	neg := false
	if p.peek().Type == MINUS {
		p.next()
		neg = true
	}
	tok := p.next()
	switch tok.Type {
	case INT:
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return record.Value{}, p.errf(tok, "bad integer literal %q", tok.Literal)
		}
		if neg {
			i = -i
		}
		return record.NewInt(i), nil
	case FLOAT:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return record.Value{}, p.errf(tok, "bad float literal %q", tok.Literal)
		}
		if neg {
			f = -f
		}
		return record.NewFloat(f), nil
	case STRING:
		if neg {
			return record.Value{}, p.errf(tok, "cannot negate a string")
		}
		return record.NewString(tok.Literal), nil
	case TRUE:
		return record.NewBool(true), nil
	case FALSE:
		return record.NewBool(false), nil
	case NULL:
		if neg {
			return record.Value{}, p.errf(tok, "cannot negate NULL")
		}
		return record.Null(), nil
	default:
		return record.Value{}, p.errf(tok, "expected a literal, found %s", tok.Type)
	}
}
