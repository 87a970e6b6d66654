package pkguid

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/bwmarrin/snowflake"
)

// Snowflake generates time-ordered numeric IDs. IDs from one generator are
// strictly increasing, which makes them usable as an append sequence.
type Snowflake struct {
	node *snowflake.Node
}

//nolint:gochecknoglobals // snowflake.Epoch is package state of the library
var epochOnce sync.Once

func randomNodeID() (int64, error) {
	var nodeID int64
	if err := binary.Read(rand.Reader, binary.BigEndian, &nodeID); err != nil {
		return 0, err
	}

	return nodeID & (1<<snowflake.NodeBits - 1), nil
}

// NewSnowflake constructs a Snowflake generator on a random node.
func NewSnowflake() (*Snowflake, error) {
	nodeID, err := randomNodeID()
	if err != nil {
		return nil, err
	}

	epochOnce.Do(func() {
		snowflake.Epoch = 1767225600000 // Thu Jan 01 2026 00:00:00.000 UTC
	})

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}

	return &Snowflake{node: node}, nil
}

// Generate returns the next ID.
func (s *Snowflake) Generate() int64 {
	return s.node.Generate().Int64()
}
