package bot

import (
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/flipnotify/backend/internal/service"
)

// FormPath is where signed links point on the web app.
const FormPath = "/api/v1/telegram/form"

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot answers Telegram commands with signed links into the preferences form.
type Bot struct {
	api     telegramAPI
	signer  *service.LinkSigner
	baseURL string
	quit    chan struct{}
}

// New creates a Bot with the given Telegram token.
func New(token string, signer *service.LinkSigner, baseURL string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		signer:  signer,
		baseURL: baseURL,
		quit:    make(chan struct{}),
	}, nil
}

// Run starts the long-polling loop and blocks until Stop is called.
func (b *Bot) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-b.quit:
			b.api.StopReceivingUpdates()
			return
		case update := <-updates:
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(update.Message)
		}
	}
}

// Stop signals the polling loop to exit.
func (b *Bot) Stop() {
	close(b.quit)
}

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.handleStart(msg)
	case "check":
		b.handleCheck(msg)
	case "help":
		b.handleHelp(msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help for a list of commands.")
	}
}

// displayName mirrors Telegram's own convention: first name, plus last name
// when present.
func displayName(user *tgbotapi.User) string {
	if user.LastName != "" {
		return user.FirstName + " " + user.LastName
	}
	return user.FirstName
}

func (b *Bot) signedLink(user *tgbotapi.User) string {
	return b.signer.SignedURL(b.baseURL, FormPath, strconv.FormatInt(user.ID, 10), displayName(user))
}

func (b *Bot) handleStart(msg *tgbotapi.Message) {
	link := b.signedLink(msg.From)

	reply := tgbotapi.NewMessage(msg.Chat.ID,
		fmt.Sprintf("Hi %s! Welcome to the iPhone Flippers bot.\n\n"+
			"Click the button below to access your iPhone preferences form:", msg.From.FirstName))
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔒 Manage iPhone Preferences", link),
		),
	)
	b.send(reply)
}

func (b *Bot) handleCheck(msg *tgbotapi.Message) {
	link := b.signedLink(msg.From)

	reply := tgbotapi.NewMessage(msg.Chat.ID,
		"Click the button below to view or update your iPhone preferences:")
	reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("🔒 View/Update Preferences", link),
		),
	)
	b.send(reply)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID,
		"iPhone Flippers Bot Help:\n\n"+
			"/start - Get access to your iPhone preferences\n"+
			"/check - Check your current preferences\n"+
			"/help - Show this help message")
}

func (b *Bot) reply(chatID int64, text string) {
	b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		log.Printf("Failed to send telegram message: %v", err)
	}
}
