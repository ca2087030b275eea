package utilities

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewRequestID returns a snowflake id from the node set by SNOWFLAKE_NODE
// (default 1). If the node cannot be created it falls back to a KSUID.
func NewRequestID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		node, _ = snowflake.NewNode(nodeID)
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}

// NewSessionToken mints an opaque session token: a random UUID followed by
// 16 bytes of crypto/rand entropy in hex.
func NewSessionToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return uuid.NewString() + "-" + hex.EncodeToString(b), nil
}
