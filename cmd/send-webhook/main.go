package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/jafarshop/orderhook/internal/signature"
)

// Smoke-test tool: signs a JSON payload file with the shared secret and
// posts it to a running webhook endpoint.
func main() {
	if len(os.Args) < 4 {
		fmt.Println("Usage: go run cmd/send-webhook/main.go <url> <secret> <payload-file>")
		fmt.Println("Example: go run cmd/send-webhook/main.go http://localhost:8080/v1/webhooks/orders whsec_test order.json")
		os.Exit(1)
	}

	url := os.Args[1]
	secret := os.Args[2]
	payloadFile := os.Args[3]

	payload, err := os.ReadFile(payloadFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read payload file: %v\n", err)
		os.Exit(1)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create request: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Signature", "sha256="+signature.Sign(payload, secret))
	req.Header.Set("X-Webhook-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Body: %s\n", string(body))
}
