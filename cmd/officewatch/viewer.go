package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/gosuda/officewatch/internal/tui"
)

func runTUI(flagAddr string) error {
	addr := resolveAddr(flagAddr)
	return tui.Run("ws://" + addr + "/ws")
}

func runState(ctx context.Context, flagAddr string) error {
	addr := resolveAddr(flagAddr)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+addr+"/api/state", nil)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("state: server returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("state: %w", err)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, body, "", "  "); err != nil {
		_, _ = os.Stdout.Write(body)
		return nil
	}
	pretty.WriteByte('\n')
	_, _ = os.Stdout.Write(pretty.Bytes())
	return nil
}
