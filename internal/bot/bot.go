// Package bot routes chat updates to search, format changes and downloads.
package bot

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/ytget/rip-bot/internal/catalog"
	"github.com/ytget/rip-bot/internal/download"
	"github.com/ytget/rip-bot/internal/logging"
	"github.com/ytget/rip-bot/internal/model"
	"github.com/ytget/rip-bot/internal/preference"
	"github.com/ytget/rip-bot/internal/telegram"
)

var errInvalidSelection = errors.New("la selección no contiene un enlace válido")

// Commands
const (
	CommandStart = "start"
	CommandFLAC  = "flac"
	CommandMP3   = "mp3"
)

// Chat is the messaging surface the bot needs
type Chat interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup, replyToID int) (int, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string) error
	AnswerCallbackQuery(ctx context.Context, callbackID string) error
	SendAudio(ctx context.Context, upload telegram.AudioUpload) error
}

// Bot handles updates. It is safe for concurrent use.
type Bot struct {
	chat       Chat
	searcher   catalog.Searcher
	prefs      *preference.Store
	downloader download.Downloader
}

// New creates a bot
func New(chat Chat, searcher catalog.Searcher, prefs *preference.Store, downloader download.Downloader) *Bot {
	if prefs == nil {
		prefs = preference.NewStore()
	}
	return &Bot{
		chat:       chat,
		searcher:   searcher,
		prefs:      prefs,
		downloader: downloader,
	}
}

// HandleUpdate processes one update to completion. A panic in any handler
// is recovered and reported to the chat.
func (b *Bot) HandleUpdate(ctx context.Context, update telegram.Update) {
	chatID, userID := updateOrigin(update)
	ctx = logging.WithFields(ctx,
		logging.Int("update_id", update.UpdateID),
		logging.Int64("user_id", userID))

	defer func() {
		if r := recover(); r != nil {
			logging.WithContext(ctx).Error("update handler panicked",
				logging.Any("panic", r),
				logging.String("stack", string(debug.Stack())))
			if chatID != 0 {
				b.send(ctx, chatID, ErrorText(fmt.Errorf("%v", r)), nil, 0)
			}
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telegram.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	userID := senderID(msg)

	if cmd, ok := parseCommand(text); ok {
		b.handleCommand(ctx, msg, userID, cmd)
		return
	}

	if IsLink(text) {
		b.download(ctx, model.DownloadRequest{
			RequesterID: userID,
			ChatID:      msg.Chat.ID,
			ReplyToID:   msg.MessageID,
			Link:        text,
			Format:      b.prefs.Format(userID),
		})
		return
	}

	b.search(ctx, msg, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *telegram.Message, userID int64, cmd string) {
	log := logging.WithContext(ctx)
	if cmd == CommandStart {
		b.send(ctx, msg.Chat.ID, StartText(b.prefs.Format(userID)), nil, msg.MessageID)
		return
	}

	// /flac and /mp3 are the format names themselves
	format, ok := model.ParseFormat(cmd)
	if !ok {
		log.Debug("ignoring unknown command", logging.String("command", cmd))
		return
	}
	if !b.prefs.SetFormat(userID, format) {
		log.Warn("format rejected by store", logging.String("format", format.String()))
		return
	}
	log.Info("format changed", logging.String("format", format.String()))
	b.send(ctx, msg.Chat.ID, FormatChangedText(format), nil, msg.MessageID)
}

func (b *Bot) search(ctx context.Context, msg *telegram.Message, query string) {
	b.send(ctx, msg.Chat.ID, TextSearching, nil, msg.MessageID)

	results := b.searcher.Search(ctx, query)
	if len(results) == 0 {
		b.send(ctx, msg.Chat.ID, TextNothingFound, nil, msg.MessageID)
		return
	}
	b.send(ctx, msg.Chat.ID, TextChoose, BuildKeyboard(results), msg.MessageID)
}

func (b *Bot) handleCallback(ctx context.Context, cb *telegram.CallbackQuery) {
	log := logging.WithContext(ctx)
	if err := b.chat.AnswerCallbackQuery(ctx, cb.ID); err != nil {
		log.Warn("failed to answer callback", logging.Err(err))
	}

	link := strings.TrimSpace(cb.Data)
	if link == "" || cb.From == nil {
		log.Warn("callback without link or sender", logging.String("data", cb.Data))
		if cb.Message != nil {
			b.send(ctx, cb.Message.Chat.ID, ErrorText(errInvalidSelection), nil, cb.Message.MessageID)
		}
		return
	}

	req := model.DownloadRequest{
		RequesterID: cb.From.ID,
		ChatID:      cb.From.ID,
		Link:        link,
		Format:      b.prefs.Format(cb.From.ID),
	}
	if cb.Message != nil {
		req.ChatID = cb.Message.Chat.ID
		req.ReplyToID = cb.Message.MessageID
		if err := b.chat.EditMessageText(ctx, req.ChatID, cb.Message.MessageID, SelectedText(link)); err != nil {
			log.Warn("failed to edit selection message", logging.Err(err))
		}
	}
	b.download(ctx, req)
}

// download is the one routine behind both direct links and button presses.
// It posts a status message, runs the job and edits the status exactly once
// with the outcome.
func (b *Bot) download(ctx context.Context, req model.DownloadRequest) {
	statusID, _ := b.send(ctx, req.ChatID, TextDownloading, nil, req.ReplyToID)

	sink := &chatSink{
		chat:      b.chat,
		chatID:    req.ChatID,
		replyToID: req.ReplyToID,
		statusID:  statusID,
	}
	result := b.downloader.Run(ctx, req, sink)

	if statusID == 0 {
		b.send(ctx, req.ChatID, ResultText(result), nil, req.ReplyToID)
		return
	}
	if err := b.chat.EditMessageText(ctx, req.ChatID, statusID, ResultText(result)); err != nil {
		logging.WithContext(ctx).Warn("failed to edit status message", logging.Err(err))
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup, replyToID int) (int, error) {
	id, err := b.chat.SendMessage(ctx, chatID, text, markup, replyToID)
	if err != nil {
		logging.WithContext(ctx).Warn("failed to send message",
			logging.Int64("chat_id", chatID),
			logging.Err(err))
	}
	return id, err
}

// parseCommand returns the lower-case command name of text, without the
// leading slash or a @botname suffix
func parseCommand(text string) (string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", false
	}
	name := strings.Fields(text)[0][1:]
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), true
}

func senderID(msg *telegram.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

func updateOrigin(u telegram.Update) (chatID, userID int64) {
	switch {
	case u.CallbackQuery != nil:
		if u.CallbackQuery.From != nil {
			userID = u.CallbackQuery.From.ID
			chatID = userID
		}
		if u.CallbackQuery.Message != nil {
			chatID = u.CallbackQuery.Message.Chat.ID
		}
	case u.Message != nil:
		chatID = u.Message.Chat.ID
		userID = senderID(u.Message)
	}
	return chatID, userID
}
