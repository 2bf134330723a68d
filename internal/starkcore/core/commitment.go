package core

import (
	"fmt"
)

// TableCommitter is the abstract table-commitment contract the STARK core
// consumes: a transactional StartAdd/Add/Commit sequence that lets a prover
// assemble a batch of rows (or per-layer FRI evaluations) before fixing them
// under one root, plus a Decommit/Verify pair for opening individual rows
// against that root. The concrete commitment scheme (Merkle tree, vector
// commitment, etc.) is explicitly out of the STARK core's scope per
// spec.md §1; MerkleTableCommitter below is the default implementation used
// by this repo's tests and demo, not a requirement of the interface itself.
type TableCommitter interface {
	// StartAdd begins a new commitment batch of the given row count.
	StartAdd(numRows int) error
	// Add registers row data at rowIndex. Rows may be added out of order;
	// the commitment is only fixed once Commit is called.
	Add(rowIndex int, row []byte) error
	// Commit finalizes the batch and returns its root digest.
	Commit() (Digest, error)
	// Decommit returns the authentication path proving row rowIndex was
	// included under the most recent Commit.
	Decommit(rowIndex int) ([]Digest, error)
}

// TableVerifier checks authentication paths against a committed root,
// independent of how the root was produced.
type TableVerifier interface {
	Verify(root Digest, rowIndex int, row []byte, path []Digest) bool
}

// MerkleTableCommitter is the default TableCommitter: a binary Merkle tree
// over row hashes. Grounded on the example prover's core/merkle.go (bottom-up
// level construction, odd-level duplication), generalized from a one-shot
// constructor over a fixed leaf slice into the transactional
// StartAdd/Add/Commit model spec.md §5 requires, so a prover can build rows
// incrementally (e.g. one FRI layer's evaluations at a time) before fixing
// the root.
type MerkleTableCommitter struct {
	hash   HashFunction
	rows   [][]byte
	levels [][]Digest
}

// NewMerkleTableCommitter returns a committer using hf for leaf and internal
// node hashing.
func NewMerkleTableCommitter(hf HashFunction) *MerkleTableCommitter {
	return &MerkleTableCommitter{hash: hf}
}

func (m *MerkleTableCommitter) StartAdd(numRows int) error {
	if numRows <= 0 {
		return fmt.Errorf("core: StartAdd requires numRows > 0, got %d", numRows)
	}
	m.rows = make([][]byte, numRows)
	m.levels = nil
	return nil
}

func (m *MerkleTableCommitter) Add(rowIndex int, row []byte) error {
	if m.rows == nil {
		return fmt.Errorf("core: Add called before StartAdd")
	}
	if rowIndex < 0 || rowIndex >= len(m.rows) {
		return fmt.Errorf("core: Add row index %d out of range [0,%d)", rowIndex, len(m.rows))
	}
	m.rows[rowIndex] = row
	return nil
}

func (m *MerkleTableCommitter) Commit() (Digest, error) {
	if len(m.rows) == 0 {
		return nil, fmt.Errorf("core: Commit called with no rows")
	}
	leaves := make([]Digest, len(m.rows))
	for i, row := range m.rows {
		if row == nil {
			return nil, fmt.Errorf("core: Commit called with row %d never Add-ed", i)
		}
		leaves[i] = m.hash.Hash(row)
	}

	level := leaves
	m.levels = [][]Digest{level}
	for len(level) > 1 {
		next := make([]Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, m.hash.Compress(level[i], level[i+1]))
			} else {
				next = append(next, m.hash.Compress(level[i], level[i]))
			}
		}
		level = next
		m.levels = append(m.levels, level)
	}
	return m.levels[len(m.levels)-1][0], nil
}

func (m *MerkleTableCommitter) Decommit(rowIndex int) ([]Digest, error) {
	if m.levels == nil {
		return nil, fmt.Errorf("core: Decommit called before Commit")
	}
	if rowIndex < 0 || rowIndex >= len(m.rows) {
		return nil, fmt.Errorf("core: Decommit row index %d out of range", rowIndex)
	}
	path := make([]Digest, 0, len(m.levels)-1)
	idx := rowIndex
	for level := 0; level < len(m.levels)-1; level++ {
		siblings := m.levels[level]
		var sibling Digest
		if idx%2 == 0 {
			if idx+1 < len(siblings) {
				sibling = siblings[idx+1]
			} else {
				sibling = siblings[idx]
			}
		} else {
			sibling = siblings[idx-1]
		}
		path = append(path, sibling)
		idx /= 2
	}
	return path, nil
}

// MerkleTableVerifier verifies Decommit paths produced by
// MerkleTableCommitter.
type MerkleTableVerifier struct {
	hash HashFunction
}

// NewMerkleTableVerifier returns a verifier using hf, which must match the
// committer's hash function.
func NewMerkleTableVerifier(hf HashFunction) *MerkleTableVerifier {
	return &MerkleTableVerifier{hash: hf}
}

func (v *MerkleTableVerifier) Verify(root Digest, rowIndex int, row []byte, path []Digest) bool {
	cur := v.hash.Hash(row)
	idx := rowIndex
	for _, sibling := range path {
		if idx%2 == 0 {
			cur = v.hash.Compress(cur, sibling)
		} else {
			cur = v.hash.Compress(sibling, cur)
		}
		idx /= 2
	}
	if len(cur) != len(root) {
		return false
	}
	for i := range cur {
		if cur[i] != root[i] {
			return false
		}
	}
	return true
}
