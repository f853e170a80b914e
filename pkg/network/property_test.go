package network

import (
	"fmt"
	"slices"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type edgeOp struct {
	A, B    int
	Connect bool
}

func genEdgeOp(nodes int) gopter.Gen {
	return gopter.CombineGens(
		gen.IntRange(0, nodes-1),
		gen.IntRange(0, nodes-1),
		gen.Bool(),
	).Map(func(v []interface{}) edgeOp {
		return edgeOp{A: v[0].(int), B: v[1].(int), Connect: v[2].(bool)}
	})
}

// TestTopologyProperties drives random connect/disconnect sequences and
// checks that edges stay symmetric and delivery follows them.
func TestTopologyProperties(t *testing.T) {
	const nodes = 5

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	build := func(ops []edgeOp) (*Network, []*sink) {
		n := New()
		sinks := make([]*sink, nodes)
		for i := range sinks {
			sinks[i] = &sink{}
			_ = n.CreateNode(fmt.Sprintf("n%d", i), sinks[i])
		}
		for _, op := range ops {
			a, b := fmt.Sprintf("n%d", op.A), fmt.Sprintf("n%d", op.B)
			if op.Connect {
				_ = n.Connect(a, b)
			} else {
				_ = n.Disconnect(a, b)
			}
		}
		return n, sinks
	}

	properties.Property("edges are symmetric", prop.ForAll(
		func(ops []edgeOp) bool {
			n, _ := build(ops)
			for _, name := range n.NodeNames() {
				peers, _ := n.PeersOf(name)
				for _, p := range peers {
					back, _ := n.PeersOf(p)
					if !slices.Contains(back, name) || p == name {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOf(genEdgeOp(nodes)),
	))

	properties.Property("bytes reach exactly the peers", prop.ForAll(
		func(ops []edgeOp, sender int) bool {
			n, sinks := build(ops)
			src := fmt.Sprintf("n%d", sender)
			_ = n.BroadcastFrom(src, []byte{0x5A})
			n.DeliverMessages()

			peers, _ := n.PeersOf(src)
			for i, s := range sinks {
				name := fmt.Sprintf("n%d", i)
				want := 0
				if slices.Contains(peers, name) {
					want = 1
				}
				if len(s.got) != want {
					return false
				}
			}
			return true
		},
		gen.SliceOf(genEdgeOp(nodes)),
		gen.IntRange(0, nodes-1),
	))

	properties.TestingRun(t)
}
