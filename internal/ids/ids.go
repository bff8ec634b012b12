// Package ids generates and parses the 64-bit identifiers used for business
// records. Snowflake IDs exceed the 53-bit range JSON numbers can hold, so
// they are always encoded as strings.
package ids

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"

	"github.com/MrJamesThe3rd/tally/internal/apperr"
)

// Generator is satisfied by *snowflake.Node.
type Generator interface {
	Generate() snowflake.ID
}

// NewNode returns a generator for the given node number (0-1023).
func NewNode(node int64) (*snowflake.Node, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("creating id node %d: %w", node, err)
	}

	return n, nil
}

// Parse parses a decimal string ID.
func Parse(s string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", apperr.ErrInvalidInput, s)
	}

	return id, nil
}

// ParseOptional parses s, returning nil for an empty string.
func ParseOptional(s string) (*snowflake.ID, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	id, err := Parse(s)
	if err != nil {
		return nil, err
	}

	return &id, nil
}
