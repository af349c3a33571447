package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wonkchat/wonk/internal/client"
	"github.com/wonkchat/wonk/internal/domain"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "server base URL")
	name := flag.String("name", "", "username (3-16 chars, alphanumerics and underscore)")
	room := flag.String("room", "wonk", "room to join on start")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "usage: client -name <username> [-server url] [-room name]")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl, err := client.New(*server, client.Options{})
	if err != nil {
		fmt.Fprintln(os.Stderr, "bad server URL:", err)
		os.Exit(1)
	}

	ctrl.OnState(func(s client.State) {
		switch s {
		case client.StateOpen:
			fmt.Println("* connected")
		case client.StateClosed:
			fmt.Println("* disconnected, chat locked")
		case client.StateReconnecting:
			fmt.Println("* reconnecting...")
		case client.StateDestroyed:
			fmt.Println("* connection lost for good, restart the client")
		}
	})
	ctrl.OnEvent(func(data []byte) {
		printEvent(data)
	})

	if err := ctrl.Login(ctx, *name, ""); err != nil {
		fmt.Fprintln(os.Stderr, "login failed:", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := ctrl.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintln(os.Stderr, "session ended:", err)
		}
	}()

	// Give the push connection a moment before the initial join.
	time.Sleep(200 * time.Millisecond)
	current := *room
	if _, err := ctrl.JoinRoom(ctx, current); err != nil {
		fmt.Fprintln(os.Stderr, "join failed:", err)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			cancel()
			<-done
			return
		case line == "/rooms":
			for name, snap := range ctrl.Rooms() {
				fmt.Printf("#%s (%d members)\n", name, len(snap.Members))
			}
		case strings.HasPrefix(line, "/join "):
			current = strings.TrimSpace(strings.TrimPrefix(line, "/join "))
			if _, err := ctrl.JoinRoom(ctx, current); err != nil {
				fmt.Println("join failed:", err)
			}
		case strings.HasPrefix(line, "/leave"):
			if err := ctrl.LeaveRoom(ctx, current); err != nil {
				fmt.Println("leave failed:", err)
			}
		default:
			if err := ctrl.SendMessage(ctx, current, line, nil); err != nil {
				fmt.Println("send failed:", err)
			}
		}
	}
	cancel()
	<-done
}

func printEvent(data []byte) {
	var env struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return
	}
	switch env.Event {
	case domain.EventMessage:
		var ev domain.MessageEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			fmt.Printf("[#%s] %s: %s\n", ev.Room, ev.Author.Username, ev.Content)
		}
	case domain.EventUpdateMember:
		var ev domain.UpdateMemberEvent
		if err := json.Unmarshal(data, &ev); err == nil {
			fmt.Printf("[#%s] %s %sed\n", ev.Room, ev.ID, ev.State)
		}
	case domain.EventTyping:
		var ev domain.TypingEvent
		if err := json.Unmarshal(data, &ev); err == nil && ev.Typing {
			fmt.Printf("[#%s] %s is typing...\n", ev.Room, ev.User.Username)
		}
	}
}
