package solver

import (
	"context"
	"math/bits"
	"time"

	pb "github.com/crillab/gophersat/solver"
)

// PBEngine 把模型编码成伪布尔问题交给 gophersat 求解。
// 整数变量按二进制位展开，使能文字以大 M 的方式并入约束。
// gophersat 只有一个搜索线程，NumWorkers 和 RandomSeed 不起作用。
type PBEngine struct{}

func (PBEngine) Solve(ctx context.Context, m *Model, params Parameters) (*Response, error) {
	return SolvePB(ctx, m, params)
}

type pbTerm struct {
	lit int
	w   int64
}

// pbEncoding 记录模型变量到伪布尔变量的映射，伪布尔变量从 1 开始编号
type pbEncoding struct {
	offset []int64 // 变量的下界
	bits   [][]int // 变量的二进制位，低位在前
	nbVars int
	maxID  int // 出现在约束中的最大编号

	constrs     []pb.PBConstr
	costLits    []pb.Lit
	costWeights []int
	fixed       map[int]bool // 只出现在目标中的变量直接取使目标最小的值
	unsat       bool
}

func encodePB(m *Model) *pbEncoding {
	enc := &pbEncoding{
		offset: make([]int64, len(m.vars)),
		bits:   make([][]int, len(m.vars)),
		fixed:  make(map[int]bool),
	}

	for i, v := range m.vars {
		span := v.hi - v.lo
		width := bits.Len64(uint64(span))
		ids := make([]int, width)
		for k := range ids {
			enc.nbVars++
			ids[k] = enc.nbVars
		}
		enc.offset[i] = v.lo
		enc.bits[i] = ids

		// 二进制位能表示的最大值超过定义域时限制上界
		if int64(1)<<width-1 > span {
			terms, _ := enc.expand([]Term{{Var: Var(i), Coef: 1}})
			enc.addAtLeast(terms, -span, nil, -1)
		}
	}

	for _, c := range m.constraints {
		terms, constant := enc.expand(c.expr.merged())
		enforce := make([]int, len(c.enforce))
		for i, l := range c.enforce {
			enforce[i] = enc.lit(l)
		}
		if c.lo > NegInf {
			enc.addAtLeast(terms, c.lo-constant, enforce, 1)
		}
		if c.hi < PosInf {
			enc.addAtLeast(terms, -(c.hi - constant), enforce, -1)
		}
	}

	if m.objective != nil {
		terms, _ := enc.expand(m.objective.merged())
		for _, t := range terms {
			lit, w := t.lit, t.w
			if w < 0 {
				lit, w = -lit, -w
			}
			if abs(lit) > enc.maxID {
				enc.fixed[abs(lit)] = lit < 0
				continue
			}
			enc.costLits = append(enc.costLits, pb.IntToLit(int32(lit)))
			enc.costWeights = append(enc.costWeights, int(w))
		}
	}

	return enc
}

// expand 把线性项展开成二进制位上的项，返回展开后的常数部分
func (enc *pbEncoding) expand(terms []Term) ([]pbTerm, int64) {
	var out []pbTerm
	var constant int64
	for _, t := range terms {
		constant += t.Coef * enc.offset[t.Var]
		for k, id := range enc.bits[t.Var] {
			out = append(out, pbTerm{lit: id, w: t.Coef << uint(k)})
		}
	}
	return out, constant
}

func (enc *pbEncoding) lit(l Literal) int {
	id := enc.bits[l.Var][0]
	if l.Negated {
		return -id
	}
	return id
}

// addAtLeast 添加 sign·Σ w·lit >= bound，enforce 中的文字全部为真时才生效
func (enc *pbEncoding) addAtLeast(terms []pbTerm, bound int64, enforce []int, sign int64) {
	coef := make(map[int]int64, len(terms)+len(enforce))
	order := make([]int, 0, len(terms)+len(enforce))
	add := func(lit int, w int64) {
		id := lit
		if lit < 0 {
			// w·¬x = w - w·x
			id = -lit
			bound -= w
			w = -w
		}
		if _, ok := coef[id]; !ok {
			order = append(order, id)
		}
		coef[id] += w
	}

	normalize := func() ([]int, []int, int64, int64) {
		lits := make([]int, 0, len(order))
		weights := make([]int, 0, len(order))
		b := bound
		var total int64
		for _, id := range order {
			switch w := coef[id]; {
			case w > 0:
				lits = append(lits, id)
				weights = append(weights, int(w))
				total += w
			case w < 0:
				// w·x = w + |w|·¬x
				lits = append(lits, -id)
				weights = append(weights, int(-w))
				total -= w
				b -= w
			}
		}
		return lits, weights, b, total
	}

	for _, t := range terms {
		add(t.lit, sign*t.w)
	}

	_, _, need, _ := normalize()
	if need <= 0 {
		return
	}
	for _, e := range enforce {
		add(-e, need)
	}

	lits, weights, need, total := normalize()
	if need <= 0 {
		return
	}
	if total < need {
		enc.unsat = true
		return
	}

	for _, l := range lits {
		enc.maxID = max(enc.maxID, abs(l))
	}
	enc.constrs = append(enc.constrs, pb.GtEq(lits, weights, int(need)))
}

func (enc *pbEncoding) decode(model []bool) []int64 {
	values := make([]int64, len(enc.bits))
	for i, ids := range enc.bits {
		v := enc.offset[i]
		for k, id := range ids {
			if enc.value(model, id) {
				v += int64(1) << uint(k)
			}
		}
		values[i] = v
	}
	return values
}

func (enc *pbEncoding) value(model []bool, id int) bool {
	if id <= len(model) {
		return model[id-1]
	}
	return enc.fixed[id]
}

// SolvePB 使用 gophersat 求解模型，超时或 ctx 取消时返回当前最好的解
func SolvePB(ctx context.Context, m *Model, params Parameters) (*Response, error) {
	start := time.Now()

	if err := m.Validate(); err != nil {
		return &Response{Status: ModelInvalid, WallTime: time.Since(start)}, err
	}

	enc := encodePB(m)
	respond := func(status Status, model []bool) *Response {
		resp := &Response{Status: status, Workers: 1, WallTime: time.Since(start)}
		if status.HasSolution() {
			resp.values = enc.decode(model)
			if m.objective != nil {
				resp.ObjectiveValue = m.objective.offset
				for _, t := range m.objective.merged() {
					resp.ObjectiveValue += t.Coef * resp.values[t.Var]
				}
			}
		}
		return resp
	}

	if enc.unsat {
		return respond(Infeasible, nil), nil
	}
	if len(enc.constrs) == 0 {
		return respond(Optimal, nil), nil
	}

	problem := pb.ParsePBConstrs(enc.constrs)
	if len(enc.costLits) > 0 {
		problem.SetCostFunc(enc.costLits, enc.costWeights)
	}
	s := pb.New(problem)

	var cancel context.CancelFunc
	if params.MaxTime > 0 {
		ctx, cancel = context.WithTimeout(ctx, params.MaxTime)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	results := make(chan pb.Result)
	stop := make(chan struct{})
	done := make(chan pb.Result, 1)
	go func() {
		done <- s.Optimal(results, stop)
	}()

	var best []bool
	for {
		select {
		case res, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			if res.Status == pb.Sat {
				best = append(best[:0], res.Model...)
			}
		case res := <-done:
			switch {
			case res.Status == pb.Sat:
				return respond(Optimal, res.Model), nil
			case best != nil:
				return respond(Optimal, best), nil
			case res.Status == pb.Unsat:
				return respond(Infeasible, nil), nil
			default:
				return respond(Unknown, nil), nil
			}
		case <-ctx.Done():
			// 求解器在两次改进之间检查 stop，剩余的结果在后台丢弃
			close(stop)
			if results != nil {
				go func(results chan pb.Result) {
					for range results {
					}
				}(results)
			}
			if best != nil {
				return respond(Feasible, best), nil
			}
			return respond(Unknown, nil), nil
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
