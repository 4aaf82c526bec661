package llama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sync"

	"github.com/dgallion1/patentalloy/internal/extract"
)

// Server is a running llama-server bound to one model and tier.
type Server struct {
	baseURL string
	client  *http.Client

	cmd     *exec.Cmd
	exited  chan struct{}
	waitErr error

	closeOnce sync.Once
}

type completionRequest struct {
	Prompt        string   `json:"prompt"`
	Temperature   float64  `json:"temperature"`
	TopP          float64  `json:"top_p"`
	TopK          int      `json:"top_k"`
	NPredict      int      `json:"n_predict"`
	RepeatPenalty float64  `json:"repeat_penalty"`
	Stop          []string `json:"stop,omitempty"`
	CachePrompt   bool     `json:"cache_prompt"`
}

type completionResponse struct {
	Content string `json:"content"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate runs one completion. No timeout is imposed beyond ctx.
func (s *Server) Generate(ctx context.Context, prompt string, p extract.GenerateParams) (string, error) {
	body, err := json.Marshal(completionRequest{
		Prompt:        prompt,
		Temperature:   p.Temperature,
		TopP:          p.TopP,
		TopK:          p.TopK,
		NPredict:      p.MaxTokens,
		RepeatPenalty: p.RepeatPenalty,
		Stop:          p.Stop,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llama-server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llama-server status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var out completionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("llama-server error %d: %s", out.Error.Code, out.Error.Message)
	}
	return out.Content, nil
}

// Close stops the server process and waits for it to exit. Safe to call
// more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.client.CloseIdleConnections()
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		select {
		case <-s.exited:
		default:
			_ = s.cmd.Process.Kill()
			<-s.exited
		}
	})
	return nil
}

func (s *Server) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

// truncate keeps the first n characters of s, never splitting a rune.
func truncate(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos] + "..."
		}
		i++
	}
	return s
}
