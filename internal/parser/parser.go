package parser

import (
	"strings"
)

// parser walks a flat token slice, usually with one token of
// lookahead (nextIsSymbol peeks two ahead to tell an aggregate call
// from a property reference), producing a Statement or a *ParseError carrying a byte position.
// Keywords are matched case-insensitively; identifiers and string
// literals preserve case.
type parser struct {
	toks []Token
	pos  int
}

// Parse tokenizes src and parses exactly one Statement from it.
func Parse(src string) (Statement, error) {
	toks, err := newLexer(src).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	stmt, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if p.symbolIs(";") {
		p.advance()
	}
	if !p.atEOF() {
		return nil, p.errorf("end of statement", p.peek().String())
	}
	return stmt, nil
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) atEOF() bool { return p.peek().Kind == TokEOF }

func (p *parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) errorf(expected, found string) *ParseError {
	return &ParseError{Position: p.peek().Pos, Expected: expected, Found: found}
}

// keyword matches an identifier token case-insensitively without
// consuming it.
func (p *parser) keywordIs(kw string) bool {
	t := p.peek()
	return t.Kind == TokIdent && strings.EqualFold(t.Text, kw)
}

func (p *parser) expectKeyword(kw string) error {
	if !p.keywordIs(kw) {
		return p.errorf("keyword "+kw, p.peek().String())
	}
	p.advance()
	return nil
}

func (p *parser) expectSymbol(sym string) error {
	t := p.peek()
	if t.Kind != TokSymbol || t.Text != sym {
		return p.errorf("'"+sym+"'", t.String())
	}
	p.advance()
	return nil
}

func (p *parser) symbolIs(sym string) bool {
	t := p.peek()
	return t.Kind == TokSymbol && t.Text == sym
}

func (p *parser) expectIdent() (string, error) {
	t := p.peek()
	if t.Kind != TokIdent {
		return "", p.errorf("identifier", t.String())
	}
	p.advance()
	return t.Text, nil
}

func (p *parser) expectInt() (int64, error) {
	t := p.peek()
	if t.Kind != TokInt {
		return 0, p.errorf("integer", t.String())
	}
	p.advance()
	return t.IVal, nil
}

func (p *parser) parseLiteral() (Literal, error) {
	t := p.peek()
	switch t.Kind {
	case TokString:
		p.advance()
		return StringLiteral{Value: t.Text}, nil
	case TokInt:
		p.advance()
		return IntLiteral{Value: t.IVal}, nil
	default:
		return nil, p.errorf("a literal", t.String())
	}
}

func (p *parser) parseStatement() (Statement, error) {
	switch {
	case p.keywordIs("CREATE"):
		return p.parseCreate()
	case p.keywordIs("MATCH"):
		return p.parseMatch()
	case p.keywordIs("COPY"):
		return p.parseCopy()
	case p.keywordIs("EXPLAIN"):
		return p.parseExplain()
	default:
		return nil, p.errorf("CREATE, MATCH, COPY or EXPLAIN", p.peek().String())
	}
}

// ---- CREATE ----

func (p *parser) parseCreate() (Statement, error) {
	if err := p.expectKeyword("CREATE"); err != nil {
		return nil, err
	}
	switch {
	case p.keywordIs("NODE"):
		return p.parseCreateNodeTable()
	case p.keywordIs("REL"):
		return p.parseCreateRelTable()
	case p.symbolIs("("):
		return p.parseCreateNode()
	default:
		return nil, p.errorf("NODE, REL, or '('", p.peek().String())
	}
}

func (p *parser) parseCreateNodeTable() (Statement, error) {
	if err := p.expectKeyword("NODE"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	var cols []ColDef
	for {
		if p.keywordIs("PRIMARY") {
			break
		}
		col, err := p.parseColDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.symbolIs(",") {
			p.advance()
			continue
		}
		break
	}

	if err := p.expectKeyword("PRIMARY"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("KEY"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	pk, err := p.parseIdentList()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	return &CreateNodeTable{TableName: name, Columns: cols, PrimaryKey: pk}, nil
}

func (p *parser) parseCreateRelTable() (Statement, error) {
	if err := p.expectKeyword("REL"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	src, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("TO"); err != nil {
		return nil, err
	}
	dst, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	var cols []ColDef
	for p.symbolIs(",") {
		p.advance()
		col, err := p.parseColDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	return &CreateRelTable{TableName: name, SrcTable: src, DstTable: dst, Columns: cols}, nil
}

func (p *parser) parseColDef() (ColDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return ColDef{}, err
	}
	typ, err := p.expectIdent()
	if err != nil {
		return ColDef{}, err
	}
	return ColDef{Name: name, Type: strings.ToUpper(typ)}, nil
}

func (p *parser) parseIdentList() ([]string, error) {
	var ids []string
	first, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	ids = append(ids, first)
	for p.symbolIs(",") {
		p.advance()
		id, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseCreateNode parses 'CREATE (:Label {props})'; the caller has
// already consumed CREATE and confirmed a '(' follows. The
// 'MATCH (a),(b) CREATE (a)-[:Type {props}]->(b)' form is instead
// parsed by parseMatchCreate once MATCH has been seen.
func (p *parser) parseCreateNode() (Statement, error) {
	label, props, err := p.parseNodeLiteral()
	if err != nil {
		return nil, err
	}
	return &CreateNode{Label: label, Properties: props}, nil
}

// parseNodeLiteral parses '(' ':' Ident PropMap? ')' — the anonymous
// literal-node form used by CREATE (no variable, values not filters).
func (p *parser) parseNodeLiteral() (string, []PropEntry, error) {
	if err := p.expectSymbol("("); err != nil {
		return "", nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return "", nil, err
	}
	label, err := p.expectIdent()
	if err != nil {
		return "", nil, err
	}
	var props []PropEntry
	if p.symbolIs("{") {
		props, err = p.parsePropMap()
		if err != nil {
			return "", nil, err
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return "", nil, err
	}
	return label, props, nil
}

func (p *parser) parsePropMap() ([]PropEntry, error) {
	if err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	var entries []PropEntry
	for {
		if p.symbolIs("}") {
			break
		}
		key, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expectSymbol(":"); err != nil {
			return nil, err
		}
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		entries = append(entries, PropEntry{Key: key, Value: lit})
		if p.symbolIs(",") {
			p.advance()
			continue
		}
		break
	}
	if err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return entries, nil
}

// parseNodeFilter parses '(' Ident? ':' Ident PropMap? ')' — the
// variable-binding pattern form used inside MATCH.
func (p *parser) parseNodeFilter() (NodeFilter, error) {
	if err := p.expectSymbol("("); err != nil {
		return NodeFilter{}, err
	}
	var v string
	if p.peek().Kind == TokIdent {
		v = p.peek().Text
		p.advance()
	}
	if err := p.expectSymbol(":"); err != nil {
		return NodeFilter{}, err
	}
	label, err := p.expectIdent()
	if err != nil {
		return NodeFilter{}, err
	}
	var props []PropEntry
	if p.symbolIs("{") {
		props, err = p.parsePropMap()
		if err != nil {
			return NodeFilter{}, err
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return NodeFilter{}, err
	}
	return NodeFilter{Var: v, Label: label, PropertyFilters: props}, nil
}

// ---- MATCH ----

func (p *parser) parseMatch() (Statement, error) {
	if err := p.expectKeyword("MATCH"); err != nil {
		return nil, err
	}
	first, err := p.parseNodeFilter()
	if err != nil {
		return nil, err
	}

	if p.symbolIs(",") {
		p.advance()
		second, err := p.parseNodeFilter()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("CREATE"); err != nil {
			return nil, err
		}
		return p.parseMatchCreate(first, second)
	}

	if p.symbolIs("-") {
		return p.parseMatchRel(first)
	}

	return p.parseMatchReturn(first)
}

// parseMatchCreate parses 'CREATE (a)-[:Type {props}]->(b)' following
// 'MATCH (a),(b)'.
func (p *parser) parseMatchCreate(src, dst NodeFilter) (Statement, error) {
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	srcVar, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if srcVar != src.Var {
		return nil, p.errorf("variable "+src.Var, srcVar)
	}

	if err := p.expectSymbol("-"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("["); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	relType, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var relProps []PropEntry
	if p.symbolIs("{") {
		relProps, err = p.parsePropMap()
		if err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("-"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(">"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}
	dstVar, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}
	if dstVar != dst.Var {
		return nil, p.errorf("variable "+dst.Var, dstVar)
	}

	return &MatchCreate{SrcNode: src, DstNode: dst, RelType: relType, RelProps: relProps}, nil
}

// parseMatchRel parses the '-[RelPattern]->' NodePattern continuation
// of a relationship MATCH, plus the shared WHERE/RETURN/ORDER
// BY/SKIP/LIMIT tail.
func (p *parser) parseMatchRel(src NodeFilter) (Statement, error) {
	if err := p.expectSymbol("-"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("["); err != nil {
		return nil, err
	}
	var relVar string
	if p.peek().Kind == TokIdent {
		relVar = p.peek().Text
		p.advance()
	}
	if err := p.expectSymbol(":"); err != nil {
		return nil, err
	}
	relType, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var bounds *PathBounds
	if p.symbolIs("*") {
		b, err := p.parsePathBounds()
		if err != nil {
			return nil, err
		}
		bounds = &b
	}
	if p.symbolIs("{") {
		if _, err = p.parsePropMap(); err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol("]"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol("-"); err != nil {
		return nil, err
	}
	if err := p.expectSymbol(">"); err != nil {
		return nil, err
	}

	dst, err := p.parseNodeFilter()
	if err != nil {
		return nil, err
	}

	var filter *Expression
	if p.keywordIs("WHERE") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		filter = &e
	}

	if err := p.expectKeyword("RETURN"); err != nil {
		return nil, err
	}
	items, err := p.parseReturnList()
	if err != nil {
		return nil, err
	}

	orderBy, skip, limit, err := p.parseTail()
	if err != nil {
		return nil, err
	}

	return &MatchRel{
		SrcNode: src, RelVar: relVar, RelType: relType, DstNode: dst,
		Filter: filter, Projections: items, OrderBy: orderBy, Skip: skip, Limit: limit,
		PathBounds: bounds,
	}, nil
}

func (p *parser) parsePathBounds() (PathBounds, error) {
	if err := p.expectSymbol("*"); err != nil {
		return PathBounds{}, err
	}
	bounds := PathBounds{Min: 1}
	if p.peek().Kind == TokInt {
		n, _ := p.expectInt()
		bounds.Min = n
		bounds.Max = &n
	}
	if p.symbolIs("..") {
		p.advance()
		if p.peek().Kind == TokInt {
			n, _ := p.expectInt()
			bounds.Max = &n
		} else {
			bounds.Max = nil
		}
	}
	return bounds, nil
}

func (p *parser) parseMatchReturn(node NodeFilter) (Statement, error) {
	var filter *Expression
	if p.keywordIs("WHERE") {
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		filter = &e
	}

	if err := p.expectKeyword("RETURN"); err != nil {
		return nil, err
	}
	items, err := p.parseReturnList()
	if err != nil {
		return nil, err
	}

	orderBy, skip, limit, err := p.parseTail()
	if err != nil {
		return nil, err
	}

	return &Match{
		Var: node.Var, Label: node.Label, Filter: filter,
		Projections: items, OrderBy: orderBy, Skip: skip, Limit: limit,
	}, nil
}

func (p *parser) parseExpr() (Expression, error) {
	v, err := p.expectIdent()
	if err != nil {
		return Expression{}, err
	}
	if err := p.expectSymbol("."); err != nil {
		return Expression{}, err
	}
	prop, err := p.expectIdent()
	if err != nil {
		return Expression{}, err
	}
	opTok := p.peek()
	if opTok.Kind != TokSymbol {
		return Expression{}, p.errorf("a comparison operator", opTok.String())
	}
	op, ok := ParseComparisonOp(opTok.Text)
	if !ok {
		return Expression{}, p.errorf("a comparison operator", opTok.String())
	}
	p.advance()
	lit, err := p.parseLiteral()
	if err != nil {
		return Expression{}, err
	}
	return Expression{Var: v, Property: prop, Op: op, Value: lit}, nil
}

func (p *parser) parseReturnList() ([]ReturnItem, error) {
	var items []ReturnItem
	for {
		item, err := p.parseReturnItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.symbolIs(",") {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

func (p *parser) parseReturnItem() (ReturnItem, error) {
	t := p.peek()
	if t.Kind == TokIdent {
		if fn, ok := ParseAggregateFunction(strings.ToUpper(t.Text)); ok && p.nextIsSymbol("(") {
			p.advance() // function name
			p.advance() // '('
			if p.symbolIs("*") {
				p.advance()
				if err := p.expectSymbol(")"); err != nil {
					return ReturnItem{}, err
				}
				return ReturnItem{Aggregate: &AggregateExpr{Function: fn}}, nil
			}
			vp, err := p.parseVarProperty()
			if err != nil {
				return ReturnItem{}, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return ReturnItem{}, err
			}
			return ReturnItem{Aggregate: &AggregateExpr{Function: fn, Input: &vp}}, nil
		}
		vp, err := p.parseVarProperty()
		if err != nil {
			return ReturnItem{}, err
		}
		return ReturnItem{Projection: &vp}, nil
	}
	return ReturnItem{}, p.errorf("a return item", t.String())
}

func (p *parser) nextIsSymbol(sym string) bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	n := p.toks[p.pos+1]
	return n.Kind == TokSymbol && n.Text == sym
}

func (p *parser) parseVarProperty() (VarProperty, error) {
	v, err := p.expectIdent()
	if err != nil {
		return VarProperty{}, err
	}
	if err := p.expectSymbol("."); err != nil {
		return VarProperty{}, err
	}
	prop, err := p.expectIdent()
	if err != nil {
		return VarProperty{}, err
	}
	return VarProperty{Var: v, Property: prop}, nil
}

func (p *parser) parseTail() (orderBy []OrderByItem, skip, limit *int64, err error) {
	if p.keywordIs("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, nil, nil, err
		}
		for {
			vp, err := p.parseVarProperty()
			if err != nil {
				return nil, nil, nil, err
			}
			asc := true
			if p.keywordIs("ASC") {
				p.advance()
			} else if p.keywordIs("DESC") {
				p.advance()
				asc = false
			}
			orderBy = append(orderBy, OrderByItem{Var: vp.Var, Property: vp.Property, Ascending: asc})
			if p.symbolIs(",") {
				p.advance()
				continue
			}
			break
		}
	}

	if p.keywordIs("SKIP") {
		p.advance()
		n, err := p.expectInt()
		if err != nil {
			return nil, nil, nil, err
		}
		skip = &n
	}

	if p.keywordIs("LIMIT") {
		p.advance()
		n, err := p.expectInt()
		if err != nil {
			return nil, nil, nil, err
		}
		limit = &n
	}

	return orderBy, skip, limit, nil
}

// ---- COPY ----

func (p *parser) parseCopy() (Statement, error) {
	if err := p.expectKeyword("COPY"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	t := p.peek()
	if t.Kind != TokString {
		return nil, p.errorf("a file path string", t.String())
	}
	p.advance()

	opts := CopyOptions{}
	if p.symbolIs("(") {
		p.advance()
		for {
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			switch strings.ToUpper(name) {
			case "HEADER":
				v := true
				opts.HasHeader = &v
			case "DELIMITER":
				if err := p.expectSymbol("="); err != nil {
					return nil, err
				}
				lit := p.peek()
				if lit.Kind != TokString || len(lit.Text) != 1 {
					return nil, p.errorf("a single-character delimiter string", lit.String())
				}
				p.advance()
				d := lit.Text[0]
				opts.Delimiter = &d
			default:
				return nil, p.errorf("HEADER or DELIMITER", name)
			}
			if p.symbolIs(",") {
				p.advance()
				continue
			}
			break
		}
		if err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
	}

	return &Copy{TableName: table, FilePath: t.Text, Options: opts}, nil
}

// ---- EXPLAIN ----

func (p *parser) parseExplain() (Statement, error) {
	if err := p.expectKeyword("EXPLAIN"); err != nil {
		return nil, err
	}
	inner, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &Explain{Inner: inner}, nil
}
