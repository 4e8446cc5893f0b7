// Package solver 提供一个小型的约束规划求解器：布尔/有界整数变量、
// 带使能文字的线性约束以及线性目标函数，求解方式为带传播的分支定界搜索。
package solver

import (
	"errors"
	"fmt"
)

// 线性约束中表示"无界"的哨兵值，远大于任何合法模型中可能出现的和
const (
	PosInf int64 = 1 << 50
	NegInf int64 = -PosInf
)

// Var 是模型中变量的下标
type Var int32

// Literal 是一个布尔变量或它的取反
type Literal struct {
	Var     Var
	Negated bool
}

func (v Var) Lit() Literal {
	return Literal{Var: v}
}

func (v Var) Not() Literal {
	return Literal{Var: v, Negated: true}
}

func (l Literal) Not() Literal {
	return Literal{Var: l.Var, Negated: !l.Negated}
}

type Term struct {
	Var  Var
	Coef int64
}

// LinearExpr 表示 Σ coef·var + offset
type LinearExpr struct {
	terms  []Term
	offset int64
}

func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// Sum 返回若干变量的和
func Sum(vars ...Var) *LinearExpr {
	e := &LinearExpr{terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.terms = append(e.terms, Term{Var: v, Coef: 1})
	}
	return e
}

func (e *LinearExpr) AddTerm(v Var, coef int64) *LinearExpr {
	if coef != 0 {
		e.terms = append(e.terms, Term{Var: v, Coef: coef})
	}
	return e
}

func (e *LinearExpr) AddConstant(c int64) *LinearExpr {
	e.offset += c
	return e
}

// AddExpr 把 scale·o 加到 e 上
func (e *LinearExpr) AddExpr(o *LinearExpr, scale int64) *LinearExpr {
	for _, t := range o.terms {
		e.AddTerm(t.Var, t.Coef*scale)
	}
	e.offset += o.offset * scale
	return e
}

func (e *LinearExpr) Terms() []Term {
	return e.terms
}

func (e *LinearExpr) Offset() int64 {
	return e.offset
}

// Len 返回表达式中的项数（合并前）
func (e *LinearExpr) Len() int {
	return len(e.terms)
}

func (e *LinearExpr) clone() *LinearExpr {
	c := &LinearExpr{terms: make([]Term, len(e.terms)), offset: e.offset}
	copy(c.terms, e.terms)
	return c
}

// merged 合并同一变量的系数并去掉系数为 0 的项
func (e *LinearExpr) merged() []Term {
	index := make(map[Var]int, len(e.terms))
	out := make([]Term, 0, len(e.terms))
	for _, t := range e.terms {
		if i, ok := index[t.Var]; ok {
			out[i].Coef += t.Coef
			continue
		}
		index[t.Var] = len(out)
		out = append(out, t)
	}

	n := 0
	for _, t := range out {
		if t.Coef != 0 {
			out[n] = t
			n++
		}
	}
	return out[:n]
}

// Constraint 表示 lo <= expr <= hi，当所有使能文字为真时才生效
type Constraint struct {
	name    string
	expr    *LinearExpr
	lo, hi  int64
	enforce []Literal
}

// OnlyEnforceIf 追加使能文字，可以多次调用
func (c *Constraint) OnlyEnforceIf(lits ...Literal) *Constraint {
	c.enforce = append(c.enforce, lits...)
	return c
}

func (c *Constraint) WithName(name string) *Constraint {
	c.name = name
	return c
}

func (c *Constraint) Name() string {
	return c.name
}

func (c *Constraint) Bounds() (int64, int64) {
	return c.lo, c.hi
}

func (c *Constraint) Expr() *LinearExpr {
	return c.expr
}

func (c *Constraint) EnforcementLiterals() []Literal {
	return c.enforce
}

type varDef struct {
	name   string
	lo, hi int64
	isBool bool
}

// Model 是求解器的输入，变量和约束只增不减
type Model struct {
	name        string
	vars        []varDef
	constraints []*Constraint
	objective   *LinearExpr
}

func NewModel(name string) *Model {
	return &Model{name: name}
}

func (m *Model) Name() string {
	return m.name
}

func (m *Model) NewBoolVar(name string) Var {
	m.vars = append(m.vars, varDef{name: name, lo: 0, hi: 1, isBool: true})
	return Var(len(m.vars) - 1)
}

func (m *Model) NewIntVar(lo, hi int64, name string) Var {
	m.vars = append(m.vars, varDef{name: name, lo: lo, hi: hi})
	return Var(len(m.vars) - 1)
}

func (m *Model) NumVars() int {
	return len(m.vars)
}

func (m *Model) NumConstraints() int {
	return len(m.constraints)
}

func (m *Model) VarName(v Var) string {
	if int(v) < 0 || int(v) >= len(m.vars) {
		return fmt.Sprintf("var#%d", v)
	}
	return m.vars[v].name
}

func (m *Model) IsBool(v Var) bool {
	return int(v) >= 0 && int(v) < len(m.vars) && m.vars[v].isBool
}

func (m *Model) Domain(v Var) (int64, int64) {
	return m.vars[v].lo, m.vars[v].hi
}

// AddLinear 添加 lo <= expr <= hi，表达式中的常数项会被移到两侧
func (m *Model) AddLinear(expr *LinearExpr, lo, hi int64) *Constraint {
	e := expr.clone()
	if lo > NegInf {
		lo -= e.offset
	}
	if hi < PosInf {
		hi -= e.offset
	}
	e.offset = 0

	c := &Constraint{expr: e, lo: lo, hi: hi}
	m.constraints = append(m.constraints, c)
	return c
}

func (m *Model) AddLessOrEqual(expr *LinearExpr, ub int64) *Constraint {
	return m.AddLinear(expr, NegInf, ub)
}

func (m *Model) AddGreaterOrEqual(expr *LinearExpr, lb int64) *Constraint {
	return m.AddLinear(expr, lb, PosInf)
}

func (m *Model) AddEquality(expr *LinearExpr, value int64) *Constraint {
	return m.AddLinear(expr, value, value)
}

func (m *Model) AddAtMostOne(vars ...Var) *Constraint {
	return m.AddLessOrEqual(Sum(vars...), 1)
}

func (m *Model) AddExactlyOne(vars ...Var) *Constraint {
	return m.AddEquality(Sum(vars...), 1)
}

// Minimize 设置最小化目标，传入 nil 表示清除目标
func (m *Model) Minimize(expr *LinearExpr) {
	if expr == nil {
		m.objective = nil
		return
	}
	m.objective = expr.clone()
}

func (m *Model) HasObjective() bool {
	return m.objective != nil
}

func (m *Model) Objective() *LinearExpr {
	return m.objective
}

var ErrInvalidModel = errors.New("模型不合法")

// Validate 检查变量下标、变量定义域以及使能文字是否合法
func (m *Model) Validate() error {
	for i, v := range m.vars {
		if v.lo > v.hi {
			return fmt.Errorf("%w: 变量 %s 的定义域 [%d, %d] 为空", ErrInvalidModel, v.name, v.lo, v.hi)
		}
		if v.lo <= NegInf || v.hi >= PosInf {
			return fmt.Errorf("%w: 变量 #%d 的定义域过大", ErrInvalidModel, i)
		}
	}

	checkVar := func(v Var) error {
		if int(v) < 0 || int(v) >= len(m.vars) {
			return fmt.Errorf("%w: 引用了不存在的变量 #%d", ErrInvalidModel, v)
		}
		return nil
	}

	for i, c := range m.constraints {
		for _, t := range c.expr.terms {
			if err := checkVar(t.Var); err != nil {
				return err
			}
		}
		for _, l := range c.enforce {
			if err := checkVar(l.Var); err != nil {
				return err
			}
			if !m.vars[l.Var].isBool {
				return fmt.Errorf("%w: 约束 #%d 的使能文字 %s 不是布尔变量", ErrInvalidModel, i, m.vars[l.Var].name)
			}
		}
	}

	if m.objective != nil {
		for _, t := range m.objective.terms {
			if err := checkVar(t.Var); err != nil {
				return err
			}
		}
	}

	return nil
}
