package evaluator

import (
	"math"

	"github.com/cncflow/gflow/pkg/types"
)

// eval recursively evaluates node to a typed Value, grounded on the
// teacher's per-operator dispatch shape (this file's evalBinary/evalAnd/...
// functions in their original form), adapted to this spec's five-variant
// Value union and widening-coercion table (SPEC_FULL §4.5) instead of
// JSONata's sequence/array semantics.
func (e *Evaluator) eval(node *types.Node) (types.Value, *types.Error) {
	switch node.Kind {
	case types.NodeStr:
		return types.Str(node.Str), nil
	case types.NodeInt:
		return types.Int(node.Int), nil
	case types.NodeFloat:
		return types.Float(node.Float), nil
	case types.NodeBool:
		return types.Bool(node.Bool), nil
	case types.NodeParam:
		return e.lookup(node.Name, types.Value{}, node.Pos)
	case types.NodeFunc:
		return e.evalFunc(node)
	case types.NodeOp:
		return e.evalOp(node)
	}
	return types.Value{}, evalError(types.ErrUnsupportedOp, node.Pos, "unsupported node kind")
}

func (e *Evaluator) lookup(key string, parent types.Value, pos types.Position) (types.Value, *types.Error) {
	if e.host.Lookup == nil {
		return types.Value{}, evalError(types.ErrUnknownParameter, pos, "no host environment: unknown parameter "+key)
	}
	v, ok := e.host.Lookup(key, parent)
	if !ok {
		return types.Value{}, evalError(types.ErrUnknownParameter, pos, "unknown parameter "+key)
	}
	return v, nil
}

func (e *Evaluator) evalOp(node *types.Node) (types.Value, *types.Error) {
	switch node.Operator {
	case types.OpOr, types.OpAnd:
		return e.evalBoolOp(node)
	case types.OpEq, types.OpLt, types.OpGt, types.OpLe, types.OpGe:
		return e.evalCompare(node)
	case types.OpConcat, types.OpBridge:
		return e.evalConcat(node)
	case types.OpAdd, types.OpSub, types.OpMul, types.OpDiv:
		return e.evalArith(node)
	case types.OpMod:
		return e.evalMod(node)
	case types.OpPow:
		return e.evalPow(node)
	case types.OpNot:
		return e.evalNot(node)
	case types.OpNeg, types.OpPos:
		return e.evalUnarySign(node)
	case types.OpMember:
		return e.evalMember(node)
	case types.OpIndex:
		return e.evalIndex(node)
	case types.OpIfElse:
		return e.evalIfElse(node)
	}
	return types.Value{}, evalError(types.ErrUnsupportedOp, node.Pos, "unsupported operator")
}

// evalBoolOp implements `and`/`or`. Both operands are always evaluated —
// spec.md §4.5 does not require short-circuiting, and every expression here
// is a pure lookup/computation with no side effect to avoid.
func (e *Evaluator) evalBoolOp(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	right, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}
	if node.Operator == types.OpOr {
		return types.Bool(left.ToBool() || right.ToBool()), nil
	}
	return types.Bool(left.ToBool() && right.ToBool()), nil
}

func (e *Evaluator) evalConcat(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	right, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}
	return types.Str(left.ToStr(e.serializer()) + right.ToStr(e.serializer())), nil
}

// evalCompare implements `=`, `<`, `>`, `<=`, `>=`: both sides are coerced to
// their common widened type (Dict < Str < Bool < Int < Float) before
// comparing.
func (e *Evaluator) evalCompare(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	right, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}

	kind := types.Widen(left.Kind, right.Kind)
	var cmp int
	switch kind {
	case types.KindFloat:
		lf, _ := left.ToFloat()
		rf, _ := right.ToFloat()
		cmp = compareFloat(lf, rf)
	case types.KindInt:
		li, _ := left.ToInt()
		ri, _ := right.ToInt()
		cmp = compareInt(li, ri)
	case types.KindBool:
		cmp = compareBool(left.ToBool(), right.ToBool())
	case types.KindStr:
		cmp = compareStr(left.ToStr(e.serializer()), right.ToStr(e.serializer()))
	default:
		return types.Value{}, evalError(types.ErrUnsupportedOp, node.Pos, "dictionaries are not comparable")
	}

	switch node.Operator {
	case types.OpEq:
		return types.Bool(cmp == 0), nil
	case types.OpLt:
		return types.Bool(cmp < 0), nil
	case types.OpGt:
		return types.Bool(cmp > 0), nil
	case types.OpLe:
		return types.Bool(cmp <= 0), nil
	case types.OpGe:
		return types.Bool(cmp >= 0), nil
	}
	return types.Value{}, evalError(types.ErrUnsupportedOp, node.Pos, "unsupported comparison")
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a && b {
		return -1
	}
	return 1
}

func compareStr(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// evalArith implements `+`, `-`, `*`, `/`: widen to Float if either operand
// is Float, else Int (SPEC_FULL §4.5). Integer overflow during `+`, `-` or
// `*` widens the result to Float rather than wrapping (spec.md §9 Design
// Notes: "the reference behavior is to widen to float on overflow for
// multiplicative ... ops").
func (e *Evaluator) evalArith(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	right, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}

	if left.Kind == types.KindFloat || right.Kind == types.KindFloat {
		lf, _ := left.ToFloat()
		rf, _ := right.ToFloat()
		return types.Float(arithFloat(node.Operator, lf, rf)), nil
	}

	li, ok1 := left.ToInt()
	ri, ok2 := right.ToInt()
	if !ok1 || !ok2 {
		return types.Value{}, evalError(types.ErrBadCoercion, node.Pos, "operand cannot be coerced to a number")
	}

	if node.Operator == types.OpDiv {
		if ri == 0 {
			return types.Value{}, evalError(types.ErrDivideByZero, node.Pos, "integer division by zero")
		}
		return types.Int(li / ri), nil
	}

	result, ok := checkedIntOp(node.Operator, li, ri)
	if !ok {
		return types.Float(arithFloat(node.Operator, float64(li), float64(ri))), nil
	}
	return types.Int(result), nil
}

func arithFloat(op types.Op, a, b float64) float64 {
	switch op {
	case types.OpAdd:
		return a + b
	case types.OpSub:
		return a - b
	case types.OpMul:
		return a * b
	case types.OpDiv:
		return a / b // IEEE ±Inf/NaN on division by zero, per spec.md §4.5
	case types.OpPow:
		return math.Pow(a, b)
	}
	return 0
}

func checkedIntOp(op types.Op, a, b int64) (int64, bool) {
	switch op {
	case types.OpAdd:
		return checkedAddInt(a, b)
	case types.OpSub:
		return checkedSubInt(a, b)
	case types.OpMul:
		return checkedMulInt(a, b)
	}
	return 0, false
}

func checkedAddInt(a, b int64) (int64, bool) {
	s := a + b
	if (b > 0 && s < a) || (b < 0 && s > a) {
		return 0, false
	}
	return s, true
}

func checkedSubInt(a, b int64) (int64, bool) {
	d := a - b
	if (b < 0 && d < a) || (b > 0 && d > a) {
		return 0, false
	}
	return d, true
}

func checkedMulInt(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	p := a * b
	if p/b != a {
		return 0, false
	}
	return p, true
}

// evalMod implements `%`: always Int-widened regardless of operand types
// (SPEC_FULL §4.5), distinct from the other arithmetic operators.
func (e *Evaluator) evalMod(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	right, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}
	li, ok1 := left.ToInt()
	ri, ok2 := right.ToInt()
	if !ok1 || !ok2 {
		return types.Value{}, evalError(types.ErrBadCoercion, node.Pos, "operand cannot be coerced to an integer")
	}
	if ri == 0 {
		return types.Value{}, evalError(types.ErrDivideByZero, node.Pos, "modulo by zero")
	}
	return types.Int(li % ri), nil
}

// evalPow implements `**`: widen to Float if either operand is Float, else
// Int, with the same overflow-widens-to-Float policy as evalArith.
func (e *Evaluator) evalPow(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	right, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}

	if left.Kind == types.KindFloat || right.Kind == types.KindFloat {
		lf, _ := left.ToFloat()
		rf, _ := right.ToFloat()
		return types.Float(math.Pow(lf, rf)), nil
	}

	li, ok1 := left.ToInt()
	ri, ok2 := right.ToInt()
	if !ok1 || !ok2 {
		return types.Value{}, evalError(types.ErrBadCoercion, node.Pos, "operand cannot be coerced to a number")
	}
	if ri < 0 {
		return types.Float(math.Pow(float64(li), float64(ri))), nil
	}
	result, ok := checkedPowInt(li, ri)
	if !ok {
		return types.Float(math.Pow(float64(li), float64(ri))), nil
	}
	return types.Int(result), nil
}

func checkedPowInt(base, exp int64) (int64, bool) {
	result := int64(1)
	for i := int64(0); i < exp; i++ {
		var ok bool
		result, ok = checkedMulInt(result, base)
		if !ok {
			return 0, false
		}
	}
	return result, true
}

func (e *Evaluator) evalNot(node *types.Node) (types.Value, *types.Error) {
	operand, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	return types.Bool(!operand.ToBool()), nil
}

// evalUnarySign implements unary `-` and `+`: the operand is coerced to a
// number and, for `-`, negated; Int stays Int, Float stays Float.
func (e *Evaluator) evalUnarySign(node *types.Node) (types.Value, *types.Error) {
	operand, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	if operand.Kind == types.KindFloat {
		f, _ := operand.ToFloat()
		if node.Operator == types.OpNeg {
			f = -f
		}
		return types.Float(f), nil
	}
	i, ok := operand.ToInt()
	if !ok {
		return types.Value{}, evalError(types.ErrBadCoercion, node.Pos, "operand cannot be coerced to a number")
	}
	if node.Operator == types.OpNeg {
		i = -i
	}
	return types.Int(i), nil
}

// evalMember implements `.`: the right child is always a bare NodeParam
// carrying the field name as a literal (SPEC_FULL §4.3 grammar: `expr "."
// param`), never an expression evaluated independently.
func (e *Evaluator) evalMember(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	name := node.Children.Next
	return e.lookup(name.Name, left, node.Pos)
}

// evalIndex implements `[]`: the right child is a general expression,
// coerced to Str to use as the lookup key (SPEC_FULL §4.5).
func (e *Evaluator) evalIndex(node *types.Node) (types.Value, *types.Error) {
	left, err := e.eval(node.Children)
	if err != nil {
		return types.Value{}, err
	}
	idx, err := e.eval(node.Children.Next)
	if err != nil {
		return types.Value{}, err
	}
	return e.lookup(idx.ToStr(e.serializer()), left, node.Pos)
}

func (e *Evaluator) evalIfElse(node *types.Node) (types.Value, *types.Error) {
	trueVal := node.Children
	cond := trueVal.Next
	elseVal := cond.Next

	condVal, err := e.eval(cond)
	if err != nil {
		return types.Value{}, err
	}
	if condVal.ToBool() {
		return e.eval(trueVal)
	}
	return e.eval(elseVal)
}

// evalFunc implements the four explicit coercion functions spec.md §4.5
// names: str(x), int(x), bool(x), float(x).
func (e *Evaluator) evalFunc(node *types.Node) (types.Value, *types.Error) {
	args := node.Children
	if args == nil || args.Next != nil {
		return types.Value{}, evalError(types.ErrArityMismatch, node.Pos, node.Name+"() takes exactly one argument")
	}
	arg, err := e.eval(args)
	if err != nil {
		return types.Value{}, err
	}
	switch node.Name {
	case "STR":
		return types.Str(arg.ToStr(e.serializer())), nil
	case "BOOL":
		return types.Bool(arg.ToBool()), nil
	case "INT":
		i, ok := arg.ToInt()
		if !ok {
			return types.Value{}, evalError(types.ErrBadCoercion, node.Pos, "cannot coerce to int")
		}
		return types.Int(i), nil
	case "FLOAT":
		f, ok := arg.ToFloat()
		if !ok {
			return types.Value{}, evalError(types.ErrBadCoercion, node.Pos, "cannot coerce to float")
		}
		return types.Float(f), nil
	}
	return types.Value{}, evalError(types.ErrUnsupportedOp, node.Pos, "unknown function "+node.Name)
}
