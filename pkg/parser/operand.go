package parser

import (
	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

// NeedRegister parses one of the ten accepted register spellings.
func (p *Parser) NeedRegister() (*ast.Register, error) {
	mark := p.lx.Mark()
	lit, err := p.lx.NeedLiteral()
	if err != nil {
		return nil, p.lx.errorf("register", "expected register")
	}
	reg, ok := ast.LookupRegister(lit)
	if !ok {
		p.lx.Reset(mark)
		return nil, p.lx.errorf("register", "expected register, got %q", lit)
	}
	return reg, nil
}

// NeedAddressingOperand recognizes an A-kind operand, trying the forms in
// the fixed order spec.md §4.2 lists:
//
//  1. (R) or (R)+
//  2. @ followed by #expr / (R) / (R)+ / -(R) / bare R / expr(R) / lone expr
//  3. -(R)
//  4. #expr
//  5. expr(R)
//  6. bare R
//  7. lone expr (PC-relative, offset-flagged)
func (p *Parser) NeedAddressingOperand() (ast.Arg, error) {
	if p.lx.NeedPunct('(') == nil {
		reg, err := p.NeedRegister()
		if err != nil {
			return ast.Arg{}, err
		}
		if err := p.lx.NeedPunct(')'); err != nil {
			return ast.Arg{}, err
		}
		if p.lx.NeedPunct('+') == nil {
			return ast.NewA(reg, ast.ModeAutoInc, nil), nil
		}
		return ast.NewA(reg, ast.ModeDeferredReg, nil), nil
	}

	if p.lx.NeedPunct('@') == nil {
		return p.needIndirectOperand()
	}

	// expr(R) | lone expr | -(R) | #expr | bare R
	mark := p.lx.Mark()
	if expr, err := p.NeedExpression(false); err == nil {
		if p.lx.NeedPunct('(') == nil {
			reg, rerr := p.NeedRegister()
			if rerr != nil {
				return ast.Arg{}, rerr
			}
			if err := p.lx.NeedPunct(')'); err != nil {
				return ast.Arg{}, err
			}
			return ast.NewA(reg, ast.ModeIndex, expr), nil
		}
		arg := ast.NewA(ast.PC, ast.ModeIndex, expr)
		arg.IsOffset = true
		return arg, nil
	}
	p.lx.Reset(mark)

	if p.lx.NeedPunct('-') == nil {
		if err := p.lx.NeedPunct('('); err != nil {
			return ast.Arg{}, err
		}
		reg, err := p.NeedRegister()
		if err != nil {
			return ast.Arg{}, err
		}
		if err := p.lx.NeedPunct(')'); err != nil {
			return ast.Arg{}, err
		}
		return ast.NewA(reg, ast.ModeAutoDec, nil), nil
	}

	if p.lx.NeedPunct('#') == nil {
		expr, err := p.NeedExpression(false)
		if err != nil {
			return ast.Arg{}, err
		}
		return ast.NewA(ast.PC, ast.ModeAutoInc, expr), nil
	}

	reg, err := p.NeedRegister()
	if err != nil {
		return ast.Arg{}, err
	}
	return ast.NewA(reg, ast.ModeRn, nil), nil
}

// needIndirectOperand parses the forms after a leading "@".
func (p *Parser) needIndirectOperand() (ast.Arg, error) {
	mark := p.lx.Mark()
	if expr, err := p.NeedExpression(false); err == nil {
		if p.lx.NeedPunct('(') == nil {
			reg, rerr := p.NeedRegister()
			if rerr != nil {
				return ast.Arg{}, rerr
			}
			if err := p.lx.NeedPunct(')'); err != nil {
				return ast.Arg{}, err
			}
			return ast.NewA(reg, ast.ModeIndexDeferred, expr), nil
		}
		if p.lx.Dialect == DialectPDP11ASM {
			// Preserved bug (spec.md §9's Open Question): used verbatim,
			// not as a PC-relative offset.
			return ast.NewA(ast.PC, ast.ModeIndexDeferred, expr), nil
		}
		arg := ast.NewA(ast.PC, ast.ModeIndexDeferred, expr)
		arg.IsOffset = true
		return arg, nil
	}
	p.lx.Reset(mark)

	if p.lx.NeedPunct('#') == nil {
		expr, err := p.NeedExpression(false)
		if err != nil {
			return ast.Arg{}, err
		}
		return ast.NewA(ast.PC, ast.ModeAutoIncDeferred, expr), nil
	}

	if p.lx.NeedPunct('(') == nil {
		reg, err := p.NeedRegister()
		if err != nil {
			return ast.Arg{}, err
		}
		if err := p.lx.NeedPunct(')'); err != nil {
			return ast.Arg{}, err
		}
		if p.lx.NeedPunct('+') == nil {
			return ast.NewA(reg, ast.ModeAutoIncDeferred, nil), nil
		}
		return ast.NewA(reg, ast.ModeIndexDeferred, deferred.NewLiteral(0, deferred.TInt)), nil
	}

	if p.lx.NeedPunct('-') == nil {
		if err := p.lx.NeedPunct('('); err != nil {
			return ast.Arg{}, err
		}
		reg, err := p.NeedRegister()
		if err != nil {
			return ast.Arg{}, err
		}
		if err := p.lx.NeedPunct(')'); err != nil {
			return ast.Arg{}, err
		}
		return ast.NewA(reg, ast.ModeAutoDecDeferred, nil), nil
	}

	reg, err := p.NeedRegister()
	if err != nil {
		return ast.Arg{}, err
	}
	return ast.NewA(reg, ast.ModeDeferredReg, nil), nil
}
