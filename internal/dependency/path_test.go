package dependency_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/container/intsets"

	"cryptoscan/internal/dependency"
	"cryptoscan/internal/ir"
)

// fork builds run(x) calling left(x) and right(1): a shared prefix whose
// call sites taint different argument sets.
func fork() (run, left, right *ir.Function) {
	c := ir.NewUnit().NewContract("Fork", ir.KindContract)
	left = c.NewFunction("left", ir.Internal)
	lp := left.AddParameter("p", ir.Uint256)
	lb := ir.NewBuilder(left)
	lb.Keccak(lb.Encode(false, lp))

	right = c.NewFunction("right", ir.Internal)
	rp := right.AddParameter("p", ir.Uint256)
	rb := ir.NewBuilder(right)
	rb.Keccak(rb.Encode(false, rp))

	run = c.NewFunction("run", ir.External)
	x := run.AddParameter("x", ir.Uint256)
	b := ir.NewBuilder(run)
	b.Call(left, x)
	b.Call(right, ir.IntConstant(1))
	return run, left, right
}

func seedEntry(entry *ir.Function) func(int, *ir.Function) []ir.Value {
	return func(i int, fn *ir.Function) []ir.Value {
		if i == 0 {
			return []ir.Value{entry.Parameters[0]}
		}
		return nil
	}
}

func terminal(o *dependency.Oracle, path []*ir.Function, seeds func(int, *ir.Function) []ir.Value) *dependency.Layer {
	var last *dependency.Layer
	o.WalkPath(path, seeds, func(l *dependency.Layer) bool {
		last = l
		return true
	})
	return last
}

func TestWalkPathIsPathSensitive(t *testing.T) {
	run, left, right := fork()
	o := dependency.New()

	l := terminal(o, []*ir.Function{run, left}, seedEntry(run))
	require.NotNil(t, l)
	assert.Equal(t, []int{0}, l.Params.AppendTo(nil))
	assert.True(t, l.Has(left.Parameters[0]))

	r := terminal(o, []*ir.Function{run, right}, seedEntry(run))
	require.NotNil(t, r)
	assert.True(t, r.Params.IsEmpty(), "the other call site passes a literal")
	assert.False(t, r.Has(right.Parameters[0]))

	again := terminal(o, []*ir.Function{run, left}, seedEntry(run))
	assert.Equal(t, l.Relation.Len(), again.Relation.Len(), "walks do not leak into each other")
}

func TestWalkPathLayers(t *testing.T) {
	run, left, _ := fork()
	o := dependency.New()

	var layers []*dependency.Layer
	o.WalkPath([]*ir.Function{run, left}, seedEntry(run), func(l *dependency.Layer) bool {
		layers = append(layers, l)
		return true
	})
	require.Len(t, layers, 2)
	require.NotNil(t, layers[0].Next)
	assert.Same(t, left, ir.Target(layers[0].Next))
	assert.Len(t, layers[0].Instructions(), 0, "the call into left is the first instruction")
	assert.Nil(t, layers[1].Next)
	assert.Len(t, layers[1].Instructions(), 2)

	stopped := 0
	o.WalkPath([]*ir.Function{run, left}, seedEntry(run), func(*dependency.Layer) bool {
		stopped++
		return false
	})
	assert.Equal(t, 1, stopped)
}

func TestParamsDependent(t *testing.T) {
	_, left, _ := fork()
	o := dependency.New()
	var digest ir.Value
	for _, ins := range left.Instructions() {
		if ir.IsBuiltinCall(ins, ir.Keccak256) {
			digest = ins.GetResult()
		}
	}
	require.NotNil(t, digest)

	var positions intsets.Sparse
	assert.False(t, o.ParamsDependent(digest, left, &positions))
	positions.Insert(0)
	assert.True(t, o.ParamsDependent(digest, left, &positions))
	positions.Insert(5)
	assert.True(t, o.ParamsDependent(digest, left, &positions), "out of range positions are ignored")
}
