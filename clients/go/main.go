// Command inbox is a command line client for the messaging API.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rafiki-aymane-ar/SunshinePropertiesPHP-API-sub000/clients/go/inbox"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	client := inbox.NewClient(os.Getenv("MESSAGING_URL"))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "health":
		resp, err := client.Health(ctx)
		exitOnError(err)
		printJSON(resp)

	case "send":
		need(args, 3, "send <me> <other> <message>")
		msg, err := client.SendMessage(ctx, inbox.NewSendRequest(participant(args[0]), participant(args[1]), strings.Join(args[2:], " ")))
		exitOnError(err)
		fmt.Printf("Sent #%d as %s\n", msg.ID, msg.SenderName)

	case "inbox":
		need(args, 1, "inbox <me>")
		me := participant(args[0])
		convs, err := client.ListConversations(ctx, me)
		exitOnError(err)
		unread, err := client.UnreadCount(ctx, me)
		exitOnError(err)
		fmt.Printf("%d unread\n", unread)
		for _, c := range convs {
			printConversation(c)
		}

	case "read":
		need(args, 2, "read <me> <other>")
		msgs, err := client.ListThread(ctx, participant(args[0]), participant(args[1]))
		exitOnError(err)
		for _, m := range msgs {
			printMessage(m)
		}

	case "typing":
		need(args, 3, "typing <me> <other> on|off")
		on := args[2] == "on" || args[2] == "true"
		exitOnError(client.SetTyping(ctx, participant(args[0]), participant(args[1]), on))
		fmt.Println("ok")

	case "watch":
		need(args, 1, "watch <me> [other]")
		w := inbox.NewWatcher(client, participant(args[0]))
		if len(args) > 1 {
			other := participant(args[1])
			w.Other = &other
		}
		w.OnInbox = func(convs []inbox.Conversation, unread int64) {
			fmt.Printf("-- inbox: %d unread\n", unread)
			for _, c := range convs {
				printConversation(c)
			}
		}
		w.OnThread = func(msgs []inbox.Message) {
			if len(msgs) > 0 {
				printMessage(msgs[len(msgs)-1])
			}
		}
		w.OnTyping = func(typing bool) {
			if typing {
				fmt.Println("  ... typing")
			}
		}
		w.OnError = func(err error) {
			fmt.Fprintf(os.Stderr, "poll failed: %v\n", err)
		}
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			exitOnError(err)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// participant parses "kind:id", e.g. client:10 or agent:nadia@sunshine.ma.
func participant(s string) inbox.Participant {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || kind == "" || id == "" {
		fmt.Fprintf(os.Stderr, "invalid participant %q, want kind:id\n", s)
		os.Exit(1)
	}
	return inbox.Participant{Kind: kind, ID: id}
}

func need(args []string, n int, use string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "Usage: inbox "+use)
		os.Exit(1)
	}
}

func printConversation(c inbox.Conversation) {
	preview := []rune(c.LastMessage)
	if len(preview) > 40 {
		preview = append(preview[:40], []rune("...")...)
	}
	fmt.Printf("  #%d  %-24s %3d unread  %s\n", c.ID, c.OtherParticipant.Name, c.UnreadCount, string(preview))
}

func printMessage(m inbox.Message) {
	ts := m.CreatedAt.Local().Format("2006-01-02 15:04:05")
	fmt.Printf("[%s] %s:%d: %s\n", ts, m.Sender.Kind, m.Sender.ID, m.Content)
}

func usage() {
	fmt.Println(`inbox - messaging CLI

Usage:
  inbox health                        Check server health
  inbox send <me> <other> <message>   Send a message
  inbox inbox <me>                    List conversations and unread count
  inbox read <me> <other>             Show a thread (marks it read)
  inbox typing <me> <other> on|off    Set the typing indicator
  inbox watch <me> [other]            Poll the inbox (and a thread)

Participants are kind:id, e.g. client:10 or agent:nadia@sunshine.ma

Environment:
  MESSAGING_URL   Server URL (default: http://localhost:8080)`)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(v interface{}) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}
