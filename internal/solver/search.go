package solver

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

type compiledConstraint struct {
	terms       []Term
	lo, hi      int64
	enforce     []Literal
	isObjective bool
}

// compiled 是搜索使用的只读模型，多个 worker 共享同一份
type compiled struct {
	initLo, initHi []int64
	cons           []compiledConstraint
	watches        [][]int32 // 变量 -> 引用它的约束下标
	order          []Var     // 分支顺序
	objCoef        []int64
	objOffset      int64
	objIdx         int
	hasObjective   bool
}

func compile(m *Model) *compiled {
	n := len(m.vars)
	c := &compiled{
		initLo:  make([]int64, n),
		initHi:  make([]int64, n),
		watches: make([][]int32, n),
		objCoef: make([]int64, n),
		objIdx:  -1,
	}

	for i, v := range m.vars {
		c.initLo[i] = v.lo
		c.initHi[i] = v.hi
	}

	add := func(cc compiledConstraint) int {
		idx := int32(len(c.cons))
		c.cons = append(c.cons, cc)
		for _, t := range cc.terms {
			c.watches[t.Var] = append(c.watches[t.Var], idx)
		}
		for _, l := range cc.enforce {
			c.watches[l.Var] = append(c.watches[l.Var], idx)
		}
		return int(idx)
	}

	for _, con := range m.constraints {
		add(compiledConstraint{
			terms:   con.expr.merged(),
			lo:      con.lo,
			hi:      con.hi,
			enforce: con.enforce,
		})
	}

	if m.objective != nil {
		terms := m.objective.merged()
		for _, t := range terms {
			c.objCoef[t.Var] = t.Coef
		}
		c.hasObjective = true
		c.objOffset = m.objective.offset
		c.objIdx = add(compiledConstraint{terms: terms, lo: NegInf, hi: PosInf, isObjective: true})
	}

	// 先对不出现在目标函数中的决策变量分支，目标中的辅助变量大多能由传播直接确定
	c.order = make([]Var, 0, n)
	for i := 0; i < n; i++ {
		if c.objCoef[i] == 0 {
			c.order = append(c.order, Var(i))
		}
	}
	for i := 0; i < n; i++ {
		if c.objCoef[i] != 0 {
			c.order = append(c.order, Var(i))
		}
	}

	return c
}

// incumbent 保存所有 worker 共享的当前最优解
type incumbent struct {
	mu           sync.Mutex
	found        bool
	best         int64
	values       []int64
	hasObjective bool

	bound atomic.Int64 // 当前最优目标值，没有解时为 PosInf
	stop  atomic.Bool
}

func newIncumbent(hasObjective bool) *incumbent {
	in := &incumbent{hasObjective: hasObjective}
	in.bound.Store(PosInf)
	return in
}

func (in *incumbent) offer(values []int64, objective int64) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.found && objective >= in.best {
		return
	}

	in.found = true
	in.best = objective
	in.values = append(in.values[:0], values...)
	in.bound.Store(objective)

	// 没有目标函数时第一个可行解就是最终结果
	if !in.hasObjective {
		in.stop.Store(true)
	}
}

func (in *incumbent) result() ([]int64, int64, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.values, in.best, in.found
}

type trailEntry struct {
	v      Var
	lo, hi int64
}

type engine struct {
	c      *compiled
	shared *incumbent
	ctx    context.Context
	rng    *rand.Rand

	deadline time.Time
	lo, hi   []int64
	trail    []trailEntry
	queue    []int32
	inQueue  []bool

	ticks     int64
	branches  int64
	conflicts int64
	aborted   bool
}

func newEngine(ctx context.Context, c *compiled, shared *incumbent, deadline time.Time, seed int64) *engine {
	e := &engine{
		c:        c,
		shared:   shared,
		ctx:      ctx,
		rng:      rand.New(rand.NewSource(seed)),
		deadline: deadline,
		lo:       make([]int64, len(c.initLo)),
		hi:       make([]int64, len(c.initHi)),
		inQueue:  make([]bool, len(c.cons)),
	}
	copy(e.lo, c.initLo)
	copy(e.hi, c.initHi)
	return e
}

// run 执行完整的搜索，返回值表示搜索空间是否被完全遍历（即结论已被证明）
func (e *engine) run() bool {
	for ci := range e.c.cons {
		e.enqueue(int32(ci))
	}
	if !e.propagate() {
		return true
	}

	e.search(0)
	return !e.aborted
}

func (e *engine) search(pos int) {
	if e.shouldStop() {
		return
	}

	order := e.c.order
	i := pos
	for i < len(order) && e.lo[order[i]] == e.hi[order[i]] {
		i++
	}
	if i == len(order) {
		e.record()
		return
	}

	v := order[i]
	e.branches++

	for _, choice := range e.choices(v) {
		mark := len(e.trail)
		if e.setDomain(v, choice[0], choice[1]) {
			if e.c.objIdx >= 0 {
				e.enqueue(int32(e.c.objIdx))
			}
			if e.propagate() {
				e.search(i)
			}
		} else {
			e.conflicts++
		}
		e.undo(mark)

		if e.aborted {
			return
		}
	}
}

// choices 返回变量 v 的两个子定义域，按尝试顺序排列
func (e *engine) choices(v Var) [2][2]int64 {
	lo, hi := e.lo[v], e.hi[v]
	coef := e.c.objCoef[v]

	if hi-lo == 1 && coef == 0 {
		// 对目标无影响的布尔决策，用随机顺序打破平局
		if e.rng.Intn(2) == 0 {
			return [2][2]int64{{lo, lo}, {hi, hi}}
		}
		return [2][2]int64{{hi, hi}, {lo, lo}}
	}

	if coef < 0 {
		return [2][2]int64{{hi, hi}, {lo, hi - 1}}
	}
	return [2][2]int64{{lo, lo}, {lo + 1, hi}}
}

func (e *engine) record() {
	values := make([]int64, len(e.lo))
	copy(values, e.lo)

	objective := e.c.objOffset
	for v, coef := range e.c.objCoef {
		objective += coef * values[v]
	}

	e.shared.offer(values, objective)
}

func (e *engine) shouldStop() bool {
	if e.aborted {
		return true
	}
	if e.shared.stop.Load() {
		e.aborted = true
		return true
	}

	e.ticks++
	if e.ticks&255 == 0 {
		if !e.deadline.IsZero() && time.Now().After(e.deadline) {
			e.aborted = true
		}
		select {
		case <-e.ctx.Done():
			e.aborted = true
		default:
		}
	}
	return e.aborted
}

func (e *engine) enqueue(ci int32) {
	if e.inQueue[ci] {
		return
	}
	e.inQueue[ci] = true
	e.queue = append(e.queue, ci)
}

func (e *engine) clearQueue() {
	for _, ci := range e.queue {
		e.inQueue[ci] = false
	}
	e.queue = e.queue[:0]
}

func (e *engine) propagate() bool {
	for len(e.queue) > 0 {
		ci := e.queue[len(e.queue)-1]
		e.queue = e.queue[:len(e.queue)-1]
		e.inQueue[ci] = false

		if !e.propagateConstraint(int(ci)) {
			e.clearQueue()
			e.conflicts++
			return false
		}
	}
	return true
}

func (e *engine) undo(mark int) {
	for len(e.trail) > mark {
		t := e.trail[len(e.trail)-1]
		e.trail = e.trail[:len(e.trail)-1]
		e.lo[t.v] = t.lo
		e.hi[t.v] = t.hi
	}
}

// setDomain 把变量的定义域收缩到 [lo, hi] 与当前定义域的交集，定义域为空时返回 false
func (e *engine) setDomain(v Var, lo, hi int64) bool {
	if lo < e.lo[v] {
		lo = e.lo[v]
	}
	if hi > e.hi[v] {
		hi = e.hi[v]
	}
	if lo == e.lo[v] && hi == e.hi[v] {
		return true
	}
	if lo > hi {
		return false
	}

	e.trail = append(e.trail, trailEntry{v: v, lo: e.lo[v], hi: e.hi[v]})
	e.lo[v] = lo
	e.hi[v] = hi

	for _, ci := range e.c.watches[v] {
		e.enqueue(ci)
	}
	return true
}

// literalState 返回文字是否已确定以及确定后的取值
func (e *engine) literalState(l Literal) (bool, bool) {
	if e.lo[l.Var] != e.hi[l.Var] {
		return false, false
	}
	return true, (e.lo[l.Var] == 1) != l.Negated
}

func (e *engine) setLiteral(l Literal, value bool) bool {
	var x int64
	if value != l.Negated {
		x = 1
	}
	return e.setDomain(l.Var, x, x)
}

func (e *engine) bounds(terms []Term) (int64, int64) {
	var minSum, maxSum int64
	for _, t := range terms {
		if t.Coef > 0 {
			minSum += t.Coef * e.lo[t.Var]
			maxSum += t.Coef * e.hi[t.Var]
		} else {
			minSum += t.Coef * e.hi[t.Var]
			maxSum += t.Coef * e.lo[t.Var]
		}
	}
	return minSum, maxSum
}

func (e *engine) propagateConstraint(ci int) bool {
	c := &e.c.cons[ci]

	lo, hi := c.lo, c.hi
	if c.isObjective {
		best := e.shared.bound.Load()
		if best >= PosInf {
			return true
		}
		// 只接受严格更优的解
		hi = best - 1 - e.c.objOffset
	}

	var pending Literal
	unknown := 0
	for _, l := range c.enforce {
		fixed, value := e.literalState(l)
		if !fixed {
			unknown++
			pending = l
			continue
		}
		if !value {
			return true
		}
	}
	if unknown > 1 {
		return true
	}

	minSum, maxSum := e.bounds(c.terms)
	violated := minSum > hi || maxSum < lo

	if unknown == 1 {
		// 约束已不可能满足，唯一未确定的使能文字只能为假
		if violated {
			return e.setLiteral(pending, false)
		}
		return true
	}
	if violated {
		return false
	}

	if hi < PosInf {
		for _, t := range c.terms {
			v, a := t.Var, t.Coef
			if a > 0 {
				slack := hi - (minSum - a*e.lo[v])
				if nhi := floorDiv(slack, a); nhi < e.hi[v] {
					if !e.setDomain(v, e.lo[v], nhi) {
						return false
					}
				}
			} else {
				slack := hi - (minSum - a*e.hi[v])
				if nlo := ceilDiv(slack, a); nlo > e.lo[v] {
					if !e.setDomain(v, nlo, e.hi[v]) {
						return false
					}
				}
			}
		}
		_, maxSum = e.bounds(c.terms)
	}

	if lo > NegInf {
		for _, t := range c.terms {
			v, a := t.Var, t.Coef
			if a > 0 {
				need := lo - (maxSum - a*e.hi[v])
				if nlo := ceilDiv(need, a); nlo > e.lo[v] {
					if !e.setDomain(v, nlo, e.hi[v]) {
						return false
					}
				}
			} else {
				need := lo - (maxSum - a*e.lo[v])
				if nhi := floorDiv(need, a); nhi < e.hi[v] {
					if !e.setDomain(v, e.lo[v], nhi) {
						return false
					}
				}
			}
		}
	}

	return true
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) == (b < 0) {
		q++
	}
	return q
}
