// Package ir defines the structured SSA input of the wavesel instruction
// selector.
//
// A Function owns:
//   - Values: every SSA value, identified by a ValueHandle, with its bit size,
//     component count and a divergence mark supplied by the producer
//   - Body: a tree of control-flow nodes (Block, If, Loop)
//
// # Structure
//
// A node list always starts and ends with a *Block, and an If or Loop is
// always surrounded by blocks. Blocks are numbered in the order the tree is
// walked, which is also the order the selector visits them. Phi sources name
// their predecessor by block index.
//
//	Block 0
//	If %c
//	  then: Block 1
//	  else: Block 2
//	Block 3    phi [1: %x, 2: %y]
//
// Jumps (break, continue) may only appear as the last instruction of a block
// inside a loop.
package ir
