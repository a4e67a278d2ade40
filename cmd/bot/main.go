package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/flipnotify/backend/config"
	"github.com/flipnotify/backend/internal/bot"
	"github.com/flipnotify/backend/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is not set")
	}

	signer := service.NewLinkSigner(cfg.SecretKey)

	b, err := bot.New(cfg.TelegramBotToken, signer, cfg.WebAppURL)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Printf("Received signal: %v", sig)
		b.Stop()
	}()

	log.Println("Bot started polling")
	b.Run()
	log.Println("Bot stopped")
}
