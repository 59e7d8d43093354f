package bot

import (
	"github.com/ytget/rip-bot/internal/model"
	"github.com/ytget/rip-bot/internal/telegram"
)

// MaxOptions is the most search results offered at once
const MaxOptions = 10

// BuildKeyboard renders one button per result, in order, capped at
// MaxOptions. Each button's callback data is the result's link.
func BuildKeyboard(results []model.SearchResult) *telegram.InlineKeyboardMarkup {
	if len(results) > MaxOptions {
		results = results[:MaxOptions]
	}
	rows := make([][]telegram.InlineKeyboardButton, 0, len(results))
	for _, r := range results {
		rows = append(rows, []telegram.InlineKeyboardButton{{
			Text:         r.Label(),
			CallbackData: r.Link,
		}})
	}
	return &telegram.InlineKeyboardMarkup{InlineKeyboard: rows}
}
