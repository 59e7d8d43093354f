package bot

import (
	"context"

	"github.com/ytget/rip-bot/internal/logging"
	"github.com/ytget/rip-bot/internal/model"
	"github.com/ytget/rip-bot/internal/telegram"
)

// chatSink delivers one job's files to the requesting chat
type chatSink struct {
	chat      Chat
	chatID    int64
	replyToID int
	statusID  int
}

func (s *chatSink) DeliverAudio(ctx context.Context, file model.HarvestedFile, format model.Format) error {
	return s.chat.SendAudio(ctx, telegram.AudioUpload{
		ChatID:    s.chatID,
		ReplyToID: s.replyToID,
		Path:      file.Path,
		Caption:   CaptionText(format),
		Title:     file.Title,
		Performer: file.Performer,
	})
}

// FileSkipped puts the notice in the status message, or in a message of its
// own when there is no status message to edit.
func (s *chatSink) FileSkipped(ctx context.Context, file model.HarvestedFile) {
	var err error
	if s.statusID == 0 {
		_, err = s.chat.SendMessage(ctx, s.chatID, TextTooLarge, nil, s.replyToID)
	} else {
		err = s.chat.EditMessageText(ctx, s.chatID, s.statusID, TextTooLarge)
	}
	if err != nil {
		logging.WithContext(ctx).Warn("failed to post skip notice",
			logging.String("file", file.Name()),
			logging.Err(err))
	}
}
