// Package rankings maintains one sorted collection per ranked metric and
// answers rank, score, and paginated listing queries against them.
package rankings

import (
	"context"
	"math/rand"
	"sync"

	"github.com/mineworlds/leaderboard/internal/domain/types"
)

// ScoredMember pairs a member with its score for batch upserts.
type ScoredMember struct {
	Member string
	Score  float64
}

// RankedMember is one row of a rank-ordered listing. Rank is 0-based within
// the requested order.
type RankedMember struct {
	Rank   int
	Member string
	Score  float64
}

// SortedCollection is the sorted-set primitive the ranking index composes.
// Implementations must order members by score with a deterministic
// member-ascending tie-break, and must support both orders as exact
// reversals of one another.
type SortedCollection interface {
	// Upsert sets the member's score, last write wins.
	Upsert(ctx context.Context, member string, score float64) error

	// Rank returns the 0-based rank of member within the requested order,
	// or -1 if the member is absent.
	Rank(ctx context.Context, member string, order types.Order) (int, error)

	// Score returns the member's score, or ErrMemberNotFound.
	Score(ctx context.Context, member string) (float64, error)

	// List returns a rank-ordered page. Offset-based, not a live cursor.
	List(ctx context.Context, offset, limit int, order types.Order) ([]RankedMember, error)

	// Count returns the number of members.
	Count(ctx context.Context) (int, error)

	// Clear removes every member.
	Clear(ctx context.Context) error

	// Name returns the collection name.
	Name() string
}

// Treap-backed, in-memory SortedCollection.
//
// Canonical order is score ASC then member ASC; descending queries read the
// tree in reverse so the two orders are exact mirrors, matching sorted-set
// semantics. Subtree sizes give O(log n) expected rank and offset paging.

type node struct {
	member string
	score  float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less reports whether (aScore, aMember) sorts before (bScore, bMember) in
// canonical ascending order.
func less(aScore float64, aMember string, bScore float64, bMember string) bool {
	if aScore != bScore {
		return aScore < bScore
	}
	return aMember < bMember
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, member string, score float64, prio uint64) *node {
	if n == nil {
		return &node{member: member, score: score, prio: prio, size: 1}
	}
	if less(score, member, n.score, n.member) {
		n.left = insert(n.left, member, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, member, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, member string, score float64) *node {
	if n == nil {
		return nil
	}
	if score == n.score && member == n.member {
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, member, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, member, score)
		}
	} else if less(score, member, n.score, n.member) {
		n.left = remove(n.left, member, score)
	} else {
		n.right = remove(n.right, member, score)
	}
	fix(n)
	return n
}

// position returns the 0-based ascending position of (member, score).
func position(n *node, member string, score float64) int {
	pos := 0
	for n != nil {
		if score == n.score && member == n.member {
			return pos + nsize(n.left)
		}
		if less(score, member, n.score, n.member) {
			n = n.left
		} else {
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// kth returns the node at 0-based ascending position k.
func kth(n *node, k int) *node {
	for n != nil {
		leftSize := nsize(n.left)
		switch {
		case k < leftSize:
			n = n.left
		case k == leftSize:
			return n
		default:
			k -= leftSize + 1
			n = n.right
		}
	}
	return nil
}

// TreapCollection implements SortedCollection in process.
type TreapCollection struct {
	mu     sync.RWMutex
	name   string
	root   *node
	scores map[string]float64
	rng    *rand.Rand
}

// NewTreapCollection constructs an empty collection with the given name.
// The name must match [a-zA-Z0-9_]+.
func NewTreapCollection(name string) (*TreapCollection, error) {
	if err := types.ValidateCollectionName(name); err != nil {
		return nil, err
	}
	return &TreapCollection{
		name:   name,
		scores: make(map[string]float64),
		rng:    rand.New(rand.NewSource(rand.Int63())), //nolint:gosec // treap priorities, not security material
	}, nil
}

// Name returns the collection name.
func (c *TreapCollection) Name() string { return c.name }

// Upsert sets the member's score, replacing any previous score.
func (c *TreapCollection) Upsert(ctx context.Context, member string, score float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.scores[member]; ok {
		if old == score {
			return nil
		}
		c.root = remove(c.root, member, old)
	}
	c.scores[member] = score
	c.root = insert(c.root, member, score, c.rng.Uint64())
	return nil
}

// Rank returns the 0-based rank of member, or -1 when absent.
func (c *TreapCollection) Rank(ctx context.Context, member string, order types.Order) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	score, ok := c.scores[member]
	if !ok {
		return -1, nil
	}
	pos := position(c.root, member, score)
	if pos < 0 {
		return -1, nil
	}
	if order == types.OrderDesc {
		return len(c.scores) - 1 - pos, nil
	}
	return pos, nil
}

// Score returns the member's score.
func (c *TreapCollection) Score(ctx context.Context, member string) (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	score, ok := c.scores[member]
	if !ok {
		return 0, ErrMemberNotFound
	}
	return score, nil
}

// List returns up to limit members starting at offset in the requested order.
func (c *TreapCollection) List(ctx context.Context, offset, limit int, order types.Order) ([]RankedMember, error) {
	if offset < 0 || limit < 1 {
		return nil, ErrInvalidPage
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	total := len(c.scores)
	out := make([]RankedMember, 0, limit)
	for i := offset; i < total && len(out) < limit; i++ {
		k := i
		if order == types.OrderDesc {
			k = total - 1 - i
		}
		n := kth(c.root, k)
		if n == nil {
			break
		}
		out = append(out, RankedMember{Rank: i, Member: n.member, Score: n.score})
	}
	return out, nil
}

// Count returns the number of members.
func (c *TreapCollection) Count(ctx context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.scores), nil
}

// Clear removes every member.
func (c *TreapCollection) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.root = nil
	c.scores = make(map[string]float64)
	return nil
}
