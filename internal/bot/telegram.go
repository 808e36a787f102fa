package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/minaqr/botserver/config"
)

const (
	pollTimeoutSeconds = 30
	downloadTimeout    = 30 * time.Second
)

// Bot is the Telegram long-polling adapter. Each update is handled in its
// own goroutine; per-user consistency is the session store's job.
type Bot struct {
	api        *tgbotapi.BotAPI
	dispatcher *Dispatcher
	client     *http.Client
}

// NewBot authenticates against the Telegram Bot API. The token must come
// from configuration; there is deliberately no fallback value.
func NewBot(cfg config.TelegramConfig, dispatcher *Dispatcher) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	api.Debug = cfg.Debug

	return &Bot{
		api:        api,
		dispatcher: dispatcher,
		client:     &http.Client{Timeout: downloadTimeout},
	}, nil
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	log.Printf("bot authorized as @%s", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	switch {
	case msg.IsCommand():
		b.sendText(msg.Chat.ID, b.dispatchCommand(ctx, userID, msg))
	case len(msg.Photo) > 0:
		b.sendText(msg.Chat.ID, b.handlePhoto(ctx, userID, msg))
	case msg.Text != "":
		b.handleGenerate(ctx, msg)
	}
}

func (b *Bot) dispatchCommand(ctx context.Context, userID int64, msg *tgbotapi.Message) Reply {
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return b.dispatcher.Start(msg.From.FirstName)
	case "register":
		return b.dispatcher.Register(ctx, userID, args)
	case "login":
		return b.dispatcher.Login(ctx, userID, args)
	case "logout":
		return b.dispatcher.Logout(ctx, userID)
	case "profile":
		return b.dispatcher.Profile(userID)
	case "hd":
		return b.dispatcher.ToggleQuality(userID)
	case "color":
		return b.dispatcher.SetColors(userID, args)
	case "reset":
		return b.dispatcher.ResetSettings(ctx, userID)
	default:
		return Reply{Text: "Unknown command. Try <code>/start</code>."}
	}
}

// handlePhoto downloads the largest rendition of the uploaded photo and
// hands it to the dispatcher as the user's emblem. The temporary download
// file is removed on every path.
func (b *Bot) handlePhoto(ctx context.Context, userID int64, msg *tgbotapi.Message) Reply {
	photo := msg.Photo[len(msg.Photo)-1]

	path, err := b.downloadToTemp(ctx, photo.FileID)
	if err != nil {
		log.Printf("photo download failed for user %d: %v", userID, err)
		return Reply{Text: "❌ Could not download the photo."}
	}
	defer os.Remove(path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("photo read failed for user %d: %v", userID, err)
		return Reply{Text: "❌ Could not read the photo."}
	}
	return b.dispatcher.SetEmblem(ctx, userID, data)
}

// handleGenerate sends an interim status message, composes the code, and
// delivers it as a photo. The artifact is written to a temporary file for
// the upload and removed on every exit path.
func (b *Bot) handleGenerate(ctx context.Context, msg *tgbotapi.Message) {
	// Anonymous users get the denial only; the status bubble would imply
	// work is happening.
	if !b.dispatcher.Authenticated(msg.From.ID) {
		b.sendText(msg.Chat.ID, accessDenied)
		return
	}

	status, statusErr := b.api.Send(tgbotapi.NewMessage(msg.Chat.ID, "⏳ Generating..."))

	reply := b.dispatcher.Generate(ctx, msg.From.ID, msg.Text)
	if reply.PNG == nil {
		b.sendText(msg.Chat.ID, reply)
	} else if err := b.sendPhoto(msg.Chat.ID, reply); err != nil {
		log.Printf("photo send failed for user %d: %v", msg.From.ID, err)
		b.sendText(msg.Chat.ID, Reply{Text: "❌ Could not send the image."})
	}

	if statusErr == nil {
		_, _ = b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, status.MessageID))
	}
}

func (b *Bot) sendPhoto(chatID int64, reply Reply) error {
	return sendArtifactFile(reply.PNG, func(path string) error {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
		photo.Caption = reply.Caption
		photo.ParseMode = tgbotapi.ModeHTML
		_, err := b.api.Send(photo)
		return err
	})
}

// sendArtifactFile stages the artifact in a temporary file for the duration
// of the send callback. The file is removed on every path, including send
// failure.
func sendArtifactFile(artifact []byte, send func(path string) error) error {
	f, err := os.CreateTemp("", "qr-*.png")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(artifact); err != nil {
		_ = f.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	return send(path)
}

func (b *Bot) sendText(chatID int64, reply Reply) {
	if reply.Text == "" {
		return
	}
	m := tgbotapi.NewMessage(chatID, reply.Text)
	m.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(m); err != nil {
		log.Printf("reply send failed: %v", err)
	}
}

func (b *Bot) downloadToTemp(ctx context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("resolve file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: unexpected status %d", resp.StatusCode)
	}

	f, err := os.CreateTemp("", "emblem-*.img")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}
