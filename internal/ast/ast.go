// Package ast defines the Abstract Syntax Tree node types for Structured Text.
package ast

import (
	"sync/atomic"

	"github.com/plc-foundry/go-stc/internal/lexer"
)

// NodeId uniquely identifies an AST node across an entire build.
// Ids are handed out by a shared IdProvider so that nodes from different
// compilation units never collide.
type NodeId int64

// IdProvider hands out globally unique node ids. It has value semantics:
// copies share the same underlying counter, so every parser and the
// annotator can hold their own handle.
type IdProvider struct {
	counter *atomic.Int64
}

// NewIdProvider creates a provider starting at id 1.
func NewIdProvider() IdProvider {
	return IdProvider{counter: &atomic.Int64{}}
}

// Next returns the next unique node id. Safe for concurrent use.
func (p IdProvider) Next() NodeId {
	return NodeId(p.counter.Add(1))
}

// Node is the base interface for all AST nodes.
type Node interface {
	// ID returns the node's build-unique id.
	ID() NodeId

	// Pos returns the position of the node in the source code.
	Pos() lexer.Position

	// String returns a canonical Structured Text rendering of the node,
	// used for debugging and round-trip tests.
	String() string
}

// Expression represents any node that produces a value.
type Expression interface {
	Node
	expressionNode()
}

// Statement represents a node that performs an action.
type Statement interface {
	Node
	statementNode()
}

// NodeBase carries the id and position shared by every node.
type NodeBase struct {
	Id       NodeId
	Location lexer.Position
}

func (b *NodeBase) ID() NodeId          { return b.Id }
func (b *NodeBase) Pos() lexer.Position { return b.Location }

// NewNodeBase creates the embedded base for a node.
func NewNodeBase(id NodeId, pos lexer.Position) NodeBase {
	return NodeBase{Id: id, Location: pos}
}
