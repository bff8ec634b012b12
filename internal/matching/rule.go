package matching

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Rule rewrites a bank description containing RawPattern into
// PreferredDescription and optionally assigns a category.
type Rule struct {
	ID                   snowflake.ID
	RawPattern           string
	PreferredDescription string
	CategoryID           *snowflake.ID
	CreatedAt            time.Time
}

type Suggestion struct {
	Description string
	CategoryID  *snowflake.ID
}
