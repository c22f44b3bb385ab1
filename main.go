package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/ovaskevich/campuschat/internal/api"
	"github.com/ovaskevich/campuschat/internal/chat"
	"github.com/ovaskevich/campuschat/internal/config"
	"github.com/ovaskevich/campuschat/internal/notify"
	"github.com/ovaskevich/campuschat/internal/session"
	"github.com/ovaskevich/campuschat/internal/ui"
)

const version = "1.0.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "-v", "--version":
			fmt.Printf("Campuschat v%s\n", version)
			return
		case "help", "-h", "--help":
			printHelp()
			return
		case "login":
			if err := runLogin(); err != nil {
				fmt.Printf("Login failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Logged in.")
			return
		case "logout":
			if err := runLogout(); err != nil {
				fmt.Printf("Logout failed: %v\n", err)
				os.Exit(1)
			}
			fmt.Println("Logged out.")
			return
		default:
			fmt.Printf("Unknown command: %s\n", os.Args[1])
			printHelp()
			os.Exit(1)
		}
	}

	if err := run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	sess, err := session.Open(cfg.HomeDir)
	if err != nil {
		return err
	}
	defer sess.Close()

	if _, ok := sess.Token(); !ok {
		fmt.Println("No session found. Run `campuschat login` first.")
		return nil
	}

	client := api.New(cfg.APIBaseURL, sess, cfg.RequestTimeout, logger)
	store := chat.NewStore(client, sess, chat.Options{
		DirectoryDebounce: cfg.DirectoryDebounce,
		Logger:            logger,
	})
	center := notify.NewCenter(client, sess, notify.Options{
		PollInterval: cfg.NotifyInterval,
		Logger:       logger,
	})
	poller := chat.NewPoller(store, chat.PollerOptions{
		MainInterval: cfg.PollInterval,
		TypingMin:    cfg.TypingPollMin,
		TypingMax:    cfg.TypingPollMax,
		Logger:       logger,
	})

	app := &ui.App{
		Client:  client,
		Store:   store,
		Notify:  center,
		Session: sess,
		Poller:  poller,
	}

	p := tea.NewProgram(ui.NewMenuModel(app), tea.WithAltScreen())

	store.Subscribe(func(e chat.Event) {
		p.Send(ui.StoreChangedMsg{Event: e})
	})
	center.Subscribe(func() {
		p.Send(ui.NotifyChangedMsg{})
	})

	poller.Start()
	center.StartPolling()
	defer poller.Stop()
	defer center.StopPolling()

	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func runLogin() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return err
	}

	client := api.New(cfg.APIBaseURL, api.TokenFunc(func() (string, bool) { return "", false }), cfg.RequestTimeout, nil)
	token, err := client.Login(context.Background(), strings.TrimSpace(email), string(password))
	if err != nil {
		return err
	}

	sess, err := session.Open(cfg.HomeDir)
	if err != nil {
		return err
	}
	defer sess.Close()
	return sess.SaveToken(token)
}

func runLogout() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	sess, err := session.Open(cfg.HomeDir)
	if err != nil {
		return err
	}
	defer sess.Close()
	return sess.ClearToken()
}

func openLogger(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(file, nil))
	return logger, func() { file.Close() }, nil
}

func printHelp() {
	help := `Campuschat - Terminal client for the course marketplace

Usage:
  campuschat             Start the client
  campuschat login       Sign in and store the session
  campuschat logout      Clear the stored session
  campuschat version     Show version information
  campuschat help        Show this help message

Navigation:
  ↑/↓ or j/k        Navigate lists
  Enter             Select/Open item
  ESC               Go back
  q                 Quit from current view
  ctrl+c            Force quit

Menu:
  💬 Messages       Direct and group conversations
  👥 Contacts       Start a new conversation
  🔔 Notifications  Course and system notifications

Messages:
  n or c            Compose a message
  ctrl+s            Send message (while composing)
  o                 Load older history
  r                 Refresh
  ↑/↓ or j/k        Scroll

Configuration:
  ~/.campuschat/config.yml  Settings (API URL, poll intervals)
  ~/.campuschat/state.db    Session storage
  Environment overrides: CAMPUSCHAT_API_URL, CAMPUSCHAT_POLL_INTERVAL, ...

Notes:
  - The backend has no push channel; the client polls every few seconds
    and merges results, so brief staleness windows are expected.
  - Messages you send appear immediately and are confirmed in place.
`
	fmt.Print(help)
}
