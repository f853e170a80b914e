// Package network routes bytes between named nodes of a virtual bus.
//
// Every node owns an outgoing queue. BroadcastFrom appends to the queue and
// DeliverMessages hands each node's queued bytes to all of its peers. The
// topology is an undirected graph: connecting a to b also connects b to a.
package network

import (
	"errors"
	"fmt"
	"slices"
)

// Topology errors.
var (
	ErrUnknownNode    = errors.New("unknown node")
	ErrSelfConnection = errors.New("node cannot connect to itself")
	ErrNodeExists     = errors.New("node already exists")
)

// Receiver consumes bytes delivered to a node.
type Receiver interface {
	Receive(b byte)
}

// ReceiverFunc adapts a function to the Receiver interface.
type ReceiverFunc func(b byte)

// Receive calls fn(b).
func (fn ReceiverFunc) Receive(b byte) { fn(b) }

type node struct {
	name     string
	peers    map[string]struct{}
	outgoing []byte
	receiver Receiver
}

// Network is the router. It is driven from a single goroutine and is not
// safe for concurrent use.
type Network struct {
	nodes map[string]*node
	order []string
}

// New creates an empty network.
func New() *Network {
	return &Network{nodes: make(map[string]*node)}
}

// CreateNode registers name with the receiver that will consume its inbound bytes.
func (n *Network) CreateNode(name string, r Receiver) error {
	if _, exists := n.nodes[name]; exists {
		return fmt.Errorf("%w: %s", ErrNodeExists, name)
	}
	n.nodes[name] = &node{
		name:     name,
		peers:    make(map[string]struct{}),
		receiver: r,
	}
	n.order = append(n.order, name)
	return nil
}

// DestroyNode removes name and every edge referencing it. Unknown names are ignored.
func (n *Network) DestroyNode(name string) {
	target, ok := n.nodes[name]
	if !ok {
		return
	}
	for peer := range target.peers {
		delete(n.nodes[peer].peers, name)
	}
	delete(n.nodes, name)
	n.order = slices.DeleteFunc(n.order, func(s string) bool { return s == name })
}

// Connect links a and b in both directions. Connecting an existing edge is a no-op.
func (n *Network) Connect(a, b string) error {
	if a == b {
		return fmt.Errorf("%w: %s", ErrSelfConnection, a)
	}
	na, nb, err := n.pair(a, b)
	if err != nil {
		return err
	}
	na.peers[b] = struct{}{}
	nb.peers[a] = struct{}{}
	return nil
}

// ConnectAll connects name to each of peers, stopping at the first error.
func (n *Network) ConnectAll(name string, peers []string) error {
	for _, peer := range peers {
		if err := n.Connect(name, peer); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect removes the edge between a and b in both directions.
func (n *Network) Disconnect(a, b string) error {
	na, nb, err := n.pair(a, b)
	if err != nil {
		return err
	}
	delete(na.peers, b)
	delete(nb.peers, a)
	return nil
}

// BroadcastFrom queues data for delivery to every peer of name.
func (n *Network) BroadcastFrom(name string, data []byte) error {
	src, ok := n.nodes[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	src.outgoing = append(src.outgoing, data...)
	return nil
}

type delivery struct {
	peers []string
	data  []byte
}

// DeliverMessages drains every outgoing queue to the sender's peers.
//
// The plan is built and all queues are cleared before any receiver runs, so
// bytes queued by a receiver during delivery are held for the next call.
func (n *Network) DeliverMessages() {
	plan := make([]delivery, 0, len(n.order))
	for _, name := range n.order {
		src := n.nodes[name]
		if len(src.outgoing) == 0 {
			continue
		}
		plan = append(plan, delivery{
			peers: n.sortedPeers(src),
			data:  src.outgoing,
		})
		src.outgoing = nil
	}

	for _, d := range plan {
		for _, peer := range d.peers {
			dst, ok := n.nodes[peer]
			if !ok || dst.receiver == nil {
				continue
			}
			for _, b := range d.data {
				dst.receiver.Receive(b)
			}
		}
	}
}

// NodeNames returns node names in creation order.
func (n *Network) NodeNames() []string {
	return slices.Clone(n.order)
}

// PeersOf returns the sorted peers of name.
func (n *Network) PeersOf(name string) ([]string, error) {
	src, ok := n.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
	}
	return n.sortedPeers(src), nil
}

// Has reports whether name is registered.
func (n *Network) Has(name string) bool {
	_, ok := n.nodes[name]
	return ok
}

// Pending returns the number of bytes queued by name and not yet delivered.
func (n *Network) Pending(name string) int {
	if src, ok := n.nodes[name]; ok {
		return len(src.outgoing)
	}
	return 0
}

// Topology returns every node with its sorted peers.
func (n *Network) Topology() map[string][]string {
	out := make(map[string][]string, len(n.nodes))
	for name, src := range n.nodes {
		out[name] = n.sortedPeers(src)
	}
	return out
}

func (n *Network) pair(a, b string) (*node, *node, error) {
	na, ok := n.nodes[a]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownNode, a)
	}
	nb, ok := n.nodes[b]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownNode, b)
	}
	return na, nb, nil
}

func (n *Network) sortedPeers(src *node) []string {
	peers := make([]string, 0, len(src.peers))
	for p := range src.peers {
		peers = append(peers, p)
	}
	slices.Sort(peers)
	return peers
}
