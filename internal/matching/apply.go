package matching

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/snowflake"

	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

// Apply rewrites imported descriptions from learned rules. A suggested
// category is only kept when its type matches the row. Lookup failures are
// logged and leave the row untouched.
func (s *Service) Apply(ctx context.Context, params []transaction.CreateParams, categories transaction.CategoryLookup) {
	types := make(map[snowflake.ID]category.Type)

	for i, p := range params {
		sug, err := s.Suggest(ctx, p.RawDescription)
		if err != nil {
			slog.WarnContext(ctx, "suggesting description", "raw", p.RawDescription, "error", err)
			continue
		}

		if sug == nil {
			continue
		}

		params[i].Description = sug.Description

		if sug.CategoryID == nil {
			continue
		}

		typ, ok := types[*sug.CategoryID]
		if !ok {
			c, err := categories.Get(ctx, *sug.CategoryID)
			if err != nil {
				slog.WarnContext(ctx, "resolving suggested category", "category_id", sug.CategoryID.String(), "error", err)
				continue
			}

			typ = c.Type
			types[*sug.CategoryID] = typ
		}

		if typ == p.Type {
			params[i].CategoryID = sug.CategoryID
		}
	}
}
