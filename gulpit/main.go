package main

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
)

type SendCmd struct {
	URL       string        `arg:"--url,required" help:"Gulp base URL"`
	Secret    string        `arg:"--secret,required" help:"HMAC secret shared with gulp"`
	Count     int           `arg:"--count" default:"100" help:"Total events to send"`
	Batch     int           `arg:"--batch" default:"1" help:"Events per batch"`
	Interval  time.Duration `arg:"--interval" default:"100ms" help:"Delay between batches"`
	EventType string        `arg:"--event-type" default:"loadtest.event" help:"event_type for generated events"`
}

type ServeCmd struct {
	Port        int           `arg:"--port" default:"8007" help:"Local listen port"`
	FailureRate float64       `arg:"--failure-rate" default:"0.2" help:"Fraction of requests that misbehave"`
	RateLimit   int           `arg:"--rate-limit" default:"10" help:"Requests per second before 429s"`
	MinDelay    time.Duration `arg:"--min-delay" default:"0s" help:"Minimum artificial processing delay"`
	MaxDelay    time.Duration `arg:"--max-delay" default:"0s" help:"Maximum artificial processing delay"`
}

type args struct {
	Send  *SendCmd  `arg:"subcommand:send" help:"Send signed event batches to Gulp"`
	Serve *ServeCmd `arg:"subcommand:serve" help:"Run a deliberately flaky downstream consumer"`
}

func (args) Description() string {
	return "gulpit — load generator and downstream simulator for the Gulp delivery pipeline"
}

func main() {
	var a args
	p := arg.MustParse(&a)

	switch {
	case a.Send != nil:
		runSend(a.Send)
	case a.Serve != nil:
		runServe(a.Serve)
	default:
		p.WriteUsage(os.Stdout)
		fmt.Println()
		p.WriteHelp(os.Stdout)
		os.Exit(1)
	}
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func runSend(cmd *SendCmd) {
	client := &http.Client{Timeout: 10 * time.Second}

	// Random run suffix keeps idempotency keys from colliding across runs.
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = letters[rand.Intn(len(letters))]
	}
	runID := string(suffix)

	if cmd.Batch < 1 {
		cmd.Batch = 1
	}

	var sent, duplicates, errors int
	start := time.Now()

	for seq := 0; seq < cmd.Count; {
		size := cmd.Batch
		if remaining := cmd.Count - seq; size > remaining {
			size = remaining
		}

		batch := make([]map[string]any, 0, size)
		for i := 0; i < size; i++ {
			batch = append(batch, map[string]any{
				"idempotency_key": fmt.Sprintf("gulpit-%s-%d", runID, seq+i),
				"event_type":      cmd.EventType,
				"sent_at":         time.Now().UTC().Format(time.RFC3339Nano),
				"seq":             seq + i,
			})
		}
		seq += size

		body, _ := json.Marshal(batch)

		req, err := http.NewRequest(http.MethodPost, cmd.URL+"/webhooks/ingest", bytes.NewReader(body))
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror creating request: %v\n", err)
			errors += size
			continue
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Signature", sign(cmd.Secret, body))

		resp, err := client.Do(req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "\nerror sending batch: %v\n", err)
			errors += size
			continue
		}

		if resp.StatusCode != http.StatusAccepted {
			resp.Body.Close()
			fmt.Fprintf(os.Stderr, "\nunexpected status %d for batch ending at %d\n", resp.StatusCode, seq)
			errors += size
			continue
		}

		var ingestResp struct {
			Results []struct {
				ID        string `json:"id"`
				Duplicate bool   `json:"duplicate"`
			} `json:"results"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&ingestResp); err != nil {
			fmt.Fprintf(os.Stderr, "\nerror decoding response: %v\n", err)
		}
		resp.Body.Close()

		for _, result := range ingestResp.Results {
			if result.Duplicate {
				duplicates++
			}
		}
		sent += size
		fmt.Fprintf(os.Stderr, "\rSent: %d/%d  Duplicates: %d  Errors: %d", sent, cmd.Count, duplicates, errors)

		if cmd.Interval > 0 && seq < cmd.Count {
			time.Sleep(cmd.Interval)
		}
	}

	elapsed := time.Since(start)
	actualRate := float64(sent) / elapsed.Seconds()
	fmt.Fprintf(os.Stderr, "\r%s\r", "                                                  ")
	fmt.Fprintf(os.Stderr, "Send complete: %d/%d sent, %d duplicates, %d errors, %.1fs elapsed, %.1f events/sec\n",
		sent, cmd.Count, duplicates, errors, elapsed.Seconds(), actualRate)
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeError
	outcomeThrottled
	outcomeSlow
)

// pickOutcome maps a uniform roll in [0,1) to what this request does.  The
// failure budget splits into half hard errors, a quarter throttles, and a
// quarter slow-but-successful responses.
func pickOutcome(roll, failureRate float64) outcome {
	switch {
	case roll < failureRate/2:
		return outcomeError
	case roll < failureRate*3/4:
		return outcomeThrottled
	case roll < failureRate:
		return outcomeSlow
	default:
		return outcomeOK
	}
}

// windowLimiter is a single-process fixed-window counter, one window per
// wall-clock second.
type windowLimiter struct {
	mu     sync.Mutex
	limit  int
	window int64
	count  int
}

func (l *windowLimiter) allow(now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	window := now.Unix()
	if window != l.window {
		l.window = window
		l.count = 0
	}
	l.count++
	return l.count <= l.limit
}

func pickDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)))
}

type receiver struct {
	cmd       *ServeCmd
	limiter   *windowLimiter
	delivered int64
	errored   int64
	throttled int64
}

func (rcv *receiver) handleReceive(w http.ResponseWriter, r *http.Request) {
	io.Copy(io.Discard, r.Body)

	if r.Header.Get("X-Event-Id") == "" {
		http.Error(w, "missing X-Event-Id header", http.StatusBadRequest)
		return
	}

	if delay := pickDelay(rcv.cmd.MinDelay, rcv.cmd.MaxDelay); delay > 0 {
		time.Sleep(delay)
	}

	if !rcv.limiter.allow(time.Now()) {
		atomic.AddInt64(&rcv.throttled, 1)
		rcv.progress()
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}

	switch pickOutcome(rand.Float64(), rcv.cmd.FailureRate) {
	case outcomeError:
		atomic.AddInt64(&rcv.errored, 1)
		rcv.progress()
		http.Error(w, "simulated failure", http.StatusInternalServerError)
	case outcomeThrottled:
		atomic.AddInt64(&rcv.throttled, 1)
		rcv.progress()
		w.WriteHeader(http.StatusTooManyRequests)
	case outcomeSlow:
		time.Sleep(2*time.Second + time.Duration(rand.Int63n(int64(3*time.Second))))
		atomic.AddInt64(&rcv.delivered, 1)
		rcv.progress()
		w.WriteHeader(http.StatusOK)
	default:
		atomic.AddInt64(&rcv.delivered, 1)
		rcv.progress()
		w.WriteHeader(http.StatusOK)
	}
}

func (rcv *receiver) progress() {
	fmt.Fprintf(os.Stderr, "\rDelivered: %d  500s: %d  429s: %d",
		atomic.LoadInt64(&rcv.delivered), atomic.LoadInt64(&rcv.errored), atomic.LoadInt64(&rcv.throttled))
}

func runServe(cmd *ServeCmd) {
	rcv := &receiver{cmd: cmd, limiter: &windowLimiter{limit: cmd.RateLimit}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /receive", rcv.handleReceive)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cmd.Port),
		Handler: mux,
	}

	go func() {
		fmt.Fprintf(os.Stderr, "Listening on :%d (failure rate %.0f%%, limit %d/sec)\n",
			cmd.Port, cmd.FailureRate*100, cmd.RateLimit)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	fmt.Fprintf(os.Stderr, "\nServe complete: %d delivered, %d errored, %d throttled\n",
		atomic.LoadInt64(&rcv.delivered), atomic.LoadInt64(&rcv.errored), atomic.LoadInt64(&rcv.throttled))
}
