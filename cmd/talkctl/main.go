package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/kshitizb/talk/internal/config"
	"github.com/kshitizb/talk/internal/session"
)

func main() {
	addrFlag := flag.String("addr", "", "daemon address (overrides config)")
	jsonFlag := flag.Bool("json", false, "output raw JSON")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := &client{
		base: "http://" + resolveAddr(*addrFlag),
		http: &http.Client{Timeout: 10 * time.Second},
		raw:  *jsonFlag,
	}

	switch args[0] {
	case "status":
		c.get("/v1/status")
	case "me":
		c.get("/v1/me")
	case "users":
		cmdUsers(c, args[1:])
	case "chats":
		cmdChats(c, args[1:])
	case "send":
		cmdSend(c, args[1:])
	case "messages":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: talkctl messages <conversation-id>")
			os.Exit(1)
		}
		c.get("/v1/conversations/" + url.PathEscape(args[1]) + "/messages")
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: talkctl [--addr <host:port>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                               Show daemon state")
	fmt.Fprintln(os.Stderr, "  me                                   Show local identity")
	fmt.Fprintln(os.Stderr, "  users list                           List directory entries")
	fmt.Fprintln(os.Stderr, "  users search <query>                 Prefix-search the directory")
	fmt.Fprintln(os.Stderr, "  users add <uid> <first> <last> <email>")
	fmt.Fprintln(os.Stderr, "  chats list                           List conversations")
	fmt.Fprintln(os.Stderr, "  chats delete <conversation-id>       Remove from your registry")
	fmt.Fprintln(os.Stderr, "  send <uid> <text>                    Send a text (creates the chat if needed)")
	fmt.Fprintln(os.Stderr, "  messages <conversation-id>           Show a conversation's log")
}

func resolveAddr(override string) string {
	if override != "" {
		return override
	}
	cfg, err := config.Load(session.ConfigPath())
	if err == nil && cfg.Server.Listen != "" {
		return cfg.Server.Listen
	}
	return config.Default().Server.Listen
}

type client struct {
	base string
	http *http.Client
	raw  bool
}

func (c *client) get(path string) {
	resp, err := c.http.Get(c.base + path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon: %v\n", err)
		os.Exit(1)
	}
	c.render(resp)
}

func (c *client) post(path string, body any) {
	raw, err := json.Marshal(body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	resp, err := c.http.Post(c.base+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon: %v\n", err)
		os.Exit(1)
	}
	c.render(resp)
}

func (c *client) delete(path string) {
	req, err := http.NewRequest(http.MethodDelete, c.base+path, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon: %v\n", err)
		os.Exit(1)
	}
	c.render(resp)
}

func (c *client) render(resp *http.Response) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if resp.StatusCode >= 400 {
		fmt.Fprintf(os.Stderr, "error (%d): %s\n", resp.StatusCode, bytes.TrimSpace(data))
		os.Exit(1)
	}
	if len(data) == 0 {
		fmt.Println("ok")
		return
	}
	if c.raw {
		fmt.Println(string(bytes.TrimSpace(data)))
		return
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return
	}
	fmt.Println(buf.String())
}

func cmdUsers(c *client, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: talkctl users <list|search|add>")
		os.Exit(1)
	}
	switch args[0] {
	case "list":
		c.get("/v1/users")
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: talkctl users search <query>")
			os.Exit(1)
		}
		c.get("/v1/users/search?q=" + url.QueryEscape(args[1]))
	case "add":
		if len(args) < 5 {
			fmt.Fprintln(os.Stderr, "usage: talkctl users add <uid> <first> <last> <email>")
			os.Exit(1)
		}
		c.post("/v1/users", map[string]string{
			"uid":        args[1],
			"first_name": args[2],
			"last_name":  args[3],
			"email":      args[4],
		})
	default:
		fmt.Fprintf(os.Stderr, "unknown users subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func cmdChats(c *client, args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: talkctl chats <list|delete>")
		os.Exit(1)
	}
	switch args[0] {
	case "list":
		c.get("/v1/conversations")
	case "delete":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: talkctl chats delete <conversation-id>")
			os.Exit(1)
		}
		c.delete("/v1/conversations/" + url.PathEscape(args[1]))
	default:
		fmt.Fprintf(os.Stderr, "unknown chats subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func cmdSend(c *client, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: talkctl send <uid> <text>")
		os.Exit(1)
	}
	c.post("/v1/conversations", map[string]any{
		"counterparty_uid": args[0],
		"kind":             "text",
		"content":          args[1],
	})
}
