// Copyright 2025 Certen Protocol
//
// Reference adapter CLI. The adapter SDK itself — the process that turns
// a rollup's native proofs into SubmitProof transactions — lives outside
// this repository; this binary is a thin client exercising the RPC
// contract it would use: read GET /range for a start_nexus_hash, then
// POST /tx an InitAccount transaction.

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type rangeResponse struct {
	Headers []string `json:"headers"`
}

type txRequest struct {
	Kind           string `json:"kind"`
	AppID          uint32 `json:"app_id"`
	Signature      string `json:"signature"`
	Statement      string `json:"statement,omitempty"`
	StartNexusHash string `json:"start_nexus_hash,omitempty"`
}

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags)

	proofAPIURL := flag.String("proof-api-url", "", "base URL of the Nexus RPC surface (required)")
	dev := flag.Bool("dev", false, "purge local adapter state before starting")
	statePath := flag.String("state-path", "./data/adapter", "local adapter state directory")
	appID := flag.Uint("app-id", 1, "application id this adapter registers on behalf of")
	statement := flag.String("statement", "0x"+strings.Repeat("00", 32), "32-byte hex digest of this rollup's verifier program")
	flag.Parse()

	if *proofAPIURL == "" {
		log.Fatal("adapter: -proof-api-url is required")
	}

	if *dev {
		log.Printf("adapter: --dev set, purging local state at %s", *statePath)
		if err := os.RemoveAll(*statePath); err != nil {
			log.Fatalf("adapter: purging state: %v", err)
		}
	}
	if err := os.MkdirAll(*statePath, 0o755); err != nil {
		log.Fatalf("adapter: creating state directory: %v", err)
	}

	if err := run(*proofAPIURL, uint32(*appID), *statement); err != nil {
		log.Printf("adapter: fatal error: %v", err)
		os.Exit(1)
	}
	log.Println("adapter: registered with Nexus, exiting")
}

func run(baseURL string, appID uint32, statement string) error {
	client := &http.Client{Timeout: 10 * time.Second}

	startHash, err := latestHeaderHash(client, baseURL)
	if err != nil {
		return fmt.Errorf("fetching /range: %w", err)
	}

	req := txRequest{
		Kind:           "init_account",
		AppID:          appID,
		Signature:      "0x" + strings.Repeat("00", 64),
		Statement:      statement,
		StartNexusHash: startHash,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding InitAccount request: %w", err)
	}

	resp, err := client.Post(baseURL+"/tx", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("posting /tx: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nexus rejected InitAccount: status %d", resp.StatusCode)
	}
	log.Printf("adapter: InitAccount(app_id=%d, statement=%s, start_nexus_hash=%s) accepted", appID, statement, startHash)
	return nil
}

func latestHeaderHash(client *http.Client, baseURL string) (string, error) {
	resp, err := client.Get(baseURL + "/range")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	var rr rangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", err
	}
	if len(rr.Headers) == 0 {
		return "0x" + strings.Repeat("00", 32), nil
	}
	return rr.Headers[0], nil
}
