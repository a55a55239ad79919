package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	serverURL string
	authToken string
	limit     float64
	mailboxFl string
	listFl    string
)

func main() {
	root := &cobra.Command{
		Use:   "bridge-cli",
		Short: "CLI client for safe-apple-bridge",
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8787", "Server URL")
	root.PersistentFlags().StringVar(&authToken, "token", os.Getenv("MCP_AUTH_TOKEN"), "Auth token")
	root.PersistentFlags().Float64VarP(&limit, "limit", "n", 10, "Maximum results")

	mailSearch := &cobra.Command{
		Use:   "mail-search [query]",
		Short: "Search Mail messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/v1/mail/search", map[string]any{
				"query": args[0], "mailbox": mailboxFl, "limit": limit,
			})
		},
	}
	mailSearch.Flags().StringVar(&mailboxFl, "mailbox", "", "Mailbox to search")
	root.AddCommand(mailSearch)

	root.AddCommand(&cobra.Command{
		Use:   "mail-unread",
		Short: "List unread Mail messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(fmt.Sprintf("/v1/mail/unread?limit=%g", limit))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "mail-send [to] [subject] [body]",
		Short: "Send an email",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/v1/mail/send", map[string]any{
				"to": args[0], "subject": args[1], "body": args[2],
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "msg-send [recipient] [text]",
		Short: "Send an iMessage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/v1/messages/send", map[string]any{
				"recipient": args[0], "text": args[1],
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "msg-recent [recipient]",
		Short: "Show recent messages for a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/v1/messages/recent", map[string]any{
				"recipient": args[0], "limit": limit,
			})
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "contacts [name]",
		Short: "Search contacts by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/v1/contacts/search", map[string]any{
				"name": args[0], "limit": limit,
			})
		},
	})

	reminderCmd := &cobra.Command{
		Use:   "remind [name]",
		Short: "Create a reminder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return post("/v1/reminders", map[string]any{
				"name": args[0], "list": listFl,
			})
		},
	}
	reminderCmd.Flags().StringVar(&listFl, "list", "", "Reminder list name")
	root.AddCommand(reminderCmd)

	root.AddCommand(&cobra.Command{
		Use:   "audit",
		Short: "Show recent audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get(fmt.Sprintf("/v1/audit/logs?limit=%g", limit))
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return get("/health")
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func post(path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, serverURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return send(req)
}

func get(path string) error {
	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		return err
	}
	return send(req)
}

func send(req *http.Request) error {
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	// Pretty-print JSON when possible.
	var pretty bytes.Buffer
	if json.Indent(&pretty, data, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(data))
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return nil
}
