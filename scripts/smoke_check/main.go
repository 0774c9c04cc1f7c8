package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// step is one request of the scripted walk through the app shell.
type step struct {
	Name     string          `json:"name"`
	Method   string          `json:"method"`
	Path     string          `json:"path"`
	Body     json.RawMessage `json:"body,omitempty"`
	Status   int             `json:"status"`
	Gate     string          `json:"gate,omitempty"`
	Critical bool            `json:"critical"`
}

type plan struct {
	Steps []step `json:"steps"`
}

type result struct {
	Step     step
	Status   int
	Gate     string
	Duration time.Duration
	Error    error
}

func (r result) ok() bool {
	if r.Error != nil || r.Status != r.Step.Status {
		return false
	}
	return r.Step.Gate == "" || r.Step.Gate == r.Gate
}

func main() {
	var (
		base     string
		planPath string
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "App shell base URL")
	flag.StringVar(&planPath, "plan", filepath.Join("scripts", "smoke_check", "steps.json"), "Path to JSON step plan")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	steps, err := loadPlan(planPath)
	if err != nil {
		log.Fatalf("failed to load plan: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		results  []result
		breaking int
		optional int
	)
	for _, s := range steps {
		res := run(client, base, s)
		if !res.ok() {
			if s.Critical {
				breaking++
			} else {
				optional++
			}
		}
		results = append(results, res)
	}

	printReport(results)
	fmt.Printf("Breaking failures: %d, Optional failures: %d\n", breaking, optional)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadPlan(path string) ([]step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	if len(p.Steps) == 0 {
		return nil, fmt.Errorf("no steps defined in %s", path)
	}
	return p.Steps, nil
}

func run(client *http.Client, base string, s step) result {
	res := result{Step: s}
	if client == nil {
		res.Error = errors.New("nil client")
		return res
	}

	method := strings.ToUpper(strings.TrimSpace(s.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := s.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	var body io.Reader
	if len(s.Body) > 0 {
		body = bytes.NewReader(s.Body)
	}
	req, err := http.NewRequest(method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		res.Error = err
		return res
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err
		return res
	}
	defer resp.Body.Close()
	res.Status = resp.StatusCode

	if s.Gate != "" {
		var envelope struct {
			Data struct {
				Gate string `json:"gate"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
			res.Error = fmt.Errorf("decode state: %w", err)
			return res
		}
		res.Gate = envelope.Data.Gate
	}
	return res
}

func printReport(results []result) {
	fmt.Println("Smoke Check Report")
	fmt.Println("==================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.ok() {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s: %s %s (%s)\n", status, res.Step.Name, res.Step.Method, res.Step.Path, res.Duration)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (want %d)", res.Status, res.Step.Status)
		if res.Step.Gate != "" {
			fmt.Printf(" | Gate: %s (want %s)", res.Gate, res.Step.Gate)
		}
		fmt.Printf(" | Critical: %t\n", res.Step.Critical)
	}
}
